package adb

import (
	"testing"
	"time"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/andjs/internal/binding"
)

type recordingSink struct {
	entries []Entry
}

func (r *recordingSink) Publish(e Entry) { r.entries = append(r.entries, e) }

func TestAdbWritesLoggerAndSink(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := &recordingSink{}

	reg, err := binding.NewRegistry(binding.WithCapability(New(zap.New(core), sink)))
	require.NoError(t, err)

	rt := goja.New()
	require.NoError(t, reg.Install(rt))

	_, err = rt.RunString(`
		adb.info("this is a ADB message", " QuickJS, It's great");
		adb.info("after seal:", 42, true);
		adb.error("failed");
		adb.info();
	`)
	require.NoError(t, err)

	require.Len(t, sink.entries, 4)
	assert.Equal(t, "this is a ADB message QuickJS, It's great", sink.entries[0].Message)
	assert.Equal(t, "after seal:42true", sink.entries[1].Message)
	assert.Equal(t, LevelError, sink.entries[2].Level)
	assert.Equal(t, "", sink.entries[3].Message)

	all := logs.All()
	require.Len(t, all, 4)
	assert.Equal(t, "adb", all[0].LoggerName)
	assert.Equal(t, zapcore.InfoLevel, all[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, all[2].Level)
	assert.Equal(t, "failed", all[2].Message)
}

func TestAdbWithoutSink(t *testing.T) {
	reg, err := binding.NewRegistry(binding.WithCapability(New(zap.NewNop(), nil)))
	require.NoError(t, err)

	rt := goja.New()
	require.NoError(t, reg.Install(rt))

	v, err := rt.RunString(`adb.info("x") === undefined`)
	require.NoError(t, err)
	assert.True(t, v.ToBoolean())
}

func TestHubRecent(t *testing.T) {
	hub := NewHub(3)
	assert.Empty(t, hub.Recent(10))

	for _, msg := range []string{"a", "b"} {
		hub.Publish(Entry{Message: msg})
	}
	assert.Equal(t, []string{"a", "b"}, messages(hub.Recent(0)))
	assert.Equal(t, []string{"b"}, messages(hub.Recent(1)))

	for _, msg := range []string{"c", "d", "e"} {
		hub.Publish(Entry{Message: msg})
	}
	assert.Equal(t, []string{"c", "d", "e"}, messages(hub.Recent(10)))
	assert.Equal(t, []string{"d", "e"}, messages(hub.Recent(2)))
}

func TestHubSubscribe(t *testing.T) {
	hub := NewHub(8)
	ch, cancel := hub.Subscribe(1)
	assert.Equal(t, 1, hub.Subscribers())

	hub.Publish(Entry{Message: "first"})
	hub.Publish(Entry{Message: "second"})

	select {
	case e := <-ch:
		assert.Equal(t, "first", e.Message)
	case <-time.After(time.Second):
		t.Fatal("no entry delivered")
	}
	assert.Equal(t, uint64(1), hub.Dropped())

	cancel()
	cancel()
	assert.Equal(t, 0, hub.Subscribers())
	_, open := <-ch
	assert.False(t, open)

	hub.Publish(Entry{Message: "after cancel"})
}

func TestHubSubscribeWithHistory(t *testing.T) {
	hub := NewHub(8)
	for _, m := range []string{"a", "b", "c"} {
		hub.Publish(Entry{Message: m})
	}

	history, ch, cancel := hub.SubscribeWithHistory(2, 4)
	defer cancel()
	assert.Equal(t, []string{"b", "c"}, messages(history))

	hub.Publish(Entry{Message: "d"})
	select {
	case e := <-ch:
		assert.Equal(t, "d", e.Message)
	case <-time.After(time.Second):
		t.Fatal("no entry delivered")
	}
	assert.Empty(t, ch)

	none, _, cancelNone := hub.SubscribeWithHistory(0, 1)
	defer cancelNone()
	assert.Empty(t, none)
}

func messages(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Message
	}
	return out
}

package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testFactory() Factory {
	return func() (*Host, error) {
		return New(Config{Timeout: time.Second}, zap.NewNop())
	}
}

func TestPoolAcquireRelease(t *testing.T) {
	pool, err := NewPool(PoolConfig{Size: 2, AcquireTimeout: 50 * time.Millisecond}, testFactory(), nil)
	require.NoError(t, err)
	defer pool.Close()

	assert.Equal(t, PoolStats{Size: 2, Available: 2, InUse: 0}, pool.Stats())

	a, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	b, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, PoolStats{Size: 2, Available: 0, InUse: 2}, pool.Stats())

	_, err = pool.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrAcquire)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = pool.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	require.NoError(t, pool.Release(a))
	require.NoError(t, pool.Release(b))
	assert.Equal(t, 2, pool.Stats().Available)
}

func TestPoolReleaseResetsState(t *testing.T) {
	pool, err := NewPool(PoolConfig{Size: 1}, testFactory(), nil)
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Execute(context.Background(), "set.js", "var leaked = 1")
	require.NoError(t, err)

	res, err := pool.Execute(context.Background(), "get.js", "typeof leaked")
	require.NoError(t, err)
	assert.Equal(t, "undefined", res.Value)
}

func TestPoolExecuteScriptError(t *testing.T) {
	pool, err := NewPool(PoolConfig{Size: 1}, testFactory(), nil)
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Execute(context.Background(), "boom.js", "throw new Error('boom')")
	var scriptErr *ScriptError
	assert.True(t, errors.As(err, &scriptErr))

	assert.Equal(t, 1, pool.Stats().Available)
}

func TestPoolBindings(t *testing.T) {
	pool, err := NewPool(PoolConfig{Size: 1}, testFactory(), nil)
	require.NoError(t, err)
	defer pool.Close()

	names, err := pool.Bindings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"adb"}, names)
	assert.Equal(t, 1, pool.Stats().Available)
}

func TestPoolClose(t *testing.T) {
	pool, err := NewPool(PoolConfig{Size: 2}, testFactory(), nil)
	require.NoError(t, err)

	held, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	require.NoError(t, pool.Close())
	require.NoError(t, pool.Close())
	assert.True(t, pool.Stats().Closed)

	_, err = pool.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrPoolClosed)

	_, err = pool.Execute(context.Background(), "x.js", "1")
	assert.ErrorIs(t, err, ErrPoolClosed)

	require.NoError(t, pool.Release(held))
	_, err = held.Run(context.Background(), "x.js", "1")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPoolCloseWakesWaiters(t *testing.T) {
	pool, err := NewPool(PoolConfig{Size: 1, AcquireTimeout: 5 * time.Second}, testFactory(), nil)
	require.NoError(t, err)

	held, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	waited := make(chan error, 1)
	go func() {
		_, err := pool.Acquire(context.Background())
		waited <- err
	}()
	time.Sleep(20 * time.Millisecond)

	closed := make(chan error, 1)
	go func() { closed <- pool.Close() }()

	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Close blocked behind a waiting Acquire")
	}

	select {
	case err := <-waited:
		assert.ErrorIs(t, err, ErrPoolClosed)
	case <-time.After(time.Second):
		t.Fatal("waiting Acquire was not woken by Close")
	}

	require.NoError(t, pool.Release(held))
	_, err = held.Run(context.Background(), "x.js", "1")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPoolReleaseHandsOffToWaiter(t *testing.T) {
	pool, err := NewPool(PoolConfig{Size: 1, AcquireTimeout: 5 * time.Second}, testFactory(), nil)
	require.NoError(t, err)
	defer pool.Close()

	held, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	got := make(chan *Host, 1)
	go func() {
		host, err := pool.Acquire(context.Background())
		if err != nil {
			got <- nil
			return
		}
		got <- host
	}()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, pool.Release(held))

	select {
	case host := <-got:
		require.NotNil(t, host)
		assert.Equal(t, held.ID(), host.ID())
		require.NoError(t, pool.Release(host))
	case <-time.After(time.Second):
		t.Fatal("Release did not reach the waiting Acquire")
	}
}

func TestPoolFactoryError(t *testing.T) {
	calls := 0
	factory := func() (*Host, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("no runtime")
		}
		return New(Config{}, zap.NewNop())
	}

	_, err := NewPool(PoolConfig{Size: 3}, factory, nil)
	assert.EqualError(t, err, "no runtime")
}

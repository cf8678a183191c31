package binding

import (
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCapability struct {
	name  string
	value any
}

func (s staticCapability) Name() string { return s.name }

func (s staticCapability) Install(in *Installer) (goja.Value, error) {
	return in.Runtime().ToValue(s.value), nil
}

func TestNewRegistryRejectsBadNames(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want error
	}{
		{
			name: "empty name",
			opts: []Option{WithCapability(staticCapability{name: ""})},
			want: ErrEmptyName,
		},
		{
			name: "duplicate",
			opts: []Option{
				WithCapability(staticCapability{name: "adb"}),
				WithFunc("adb", func(goja.FunctionCall) goja.Value { return goja.Undefined() }),
			},
			want: ErrDuplicateName,
		},
		{
			name: "nil capability",
			opts: []Option{WithCapability(nil)},
			want: ErrNilCapability,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.opts...)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	reg, err := NewRegistry(
		WithCapability(staticCapability{name: "zeta", value: 1}),
		WithCapability(staticCapability{name: "alpha", value: 2}),
		WithFunc("mid", func(goja.FunctionCall) goja.Value { return goja.Undefined() }),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, reg.Names())
	assert.True(t, reg.Has("mid"))
	assert.False(t, reg.Has("missing"))

	names := reg.Names()
	names[0] = "mutated"
	assert.Equal(t, "alpha", reg.Names()[0])
}

func TestRegistryInstallsGlobals(t *testing.T) {
	reg, err := NewRegistry(
		WithCapability(staticCapability{name: "answer", value: 42}),
		WithFunc("twice", func(call goja.FunctionCall) goja.Value {
			return goja.Undefined()
		}),
	)
	require.NoError(t, err)

	rt := goja.New()
	require.NoError(t, reg.Install(rt))

	v, err := rt.RunString("typeof twice + ':' + answer")
	require.NoError(t, err)
	assert.Equal(t, "function:42", v.String())
}

func TestMiddlewareOrder(t *testing.T) {
	var order []string
	mark := func(tag string) Middleware {
		return func(info CallInfo, next NativeFunc) NativeFunc {
			return func(call goja.FunctionCall) goja.Value {
				order = append(order, tag+">"+info.String())
				return next(call)
			}
		}
	}

	reg, err := NewRegistry(
		WithMiddleware(mark("outer"), mark("inner")),
		WithFunc("ping", func(goja.FunctionCall) goja.Value {
			order = append(order, "ping")
			return goja.Undefined()
		}),
	)
	require.NoError(t, err)

	rt := goja.New()
	require.NoError(t, reg.Install(rt))
	_, err = rt.RunString("ping()")
	require.NoError(t, err)

	assert.Equal(t, []string{"outer>ping.ping", "inner>ping.ping", "ping"}, order)
}

func TestRecoverConvertsGoPanics(t *testing.T) {
	rt := goja.New()
	reg, err := NewRegistry(
		WithMiddleware(Recover(testLogger(t))),
		WithFunc("explode", func(goja.FunctionCall) goja.Value {
			panic("boom")
		}),
		WithFunc("throwType", func(call goja.FunctionCall) goja.Value {
			panic(rt.NewTypeError("bad input"))
		}),
	)
	require.NoError(t, err)
	require.NoError(t, reg.Install(rt))

	v, err := rt.RunString(`
		var caught;
		try { explode(); } catch (e) { caught = String(e); }
		caught
	`)
	require.NoError(t, err)
	assert.Contains(t, v.String(), "explode.explode: internal error: boom")

	_, err = rt.RunString("throwType()")
	var ex *goja.Exception
	require.ErrorAs(t, err, &ex)
	assert.Contains(t, ex.Error(), "bad input")
}

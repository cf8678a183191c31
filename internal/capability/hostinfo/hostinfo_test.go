package hostinfo

import (
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/andjs/internal/binding"
)

func TestHostInfo(t *testing.T) {
	names := []string{"adb", "andjs"}
	reg, err := binding.NewRegistry(binding.WithCapability(New("1.2.3", func() []string { return names })))
	require.NoError(t, err)

	rt := goja.New()
	require.NoError(t, reg.Install(rt))

	v, err := rt.RunString(`andjs.version()`)
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", v.String())

	v, err = rt.RunString(`andjs.bindings().join(",")`)
	require.NoError(t, err)
	assert.Equal(t, "adb,andjs", v.String())

	names = append(names, "myobject")
	v, err = rt.RunString(`andjs.bindings().length`)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v.ToInteger())
}

func TestHostInfoNilBindings(t *testing.T) {
	reg, err := binding.NewRegistry(binding.WithCapability(New("dev", nil)))
	require.NoError(t, err)

	rt := goja.New()
	require.NoError(t, reg.Install(rt))

	v, err := rt.RunString(`Array.isArray(andjs.bindings()) && andjs.bindings().length === 0`)
	require.NoError(t, err)
	assert.True(t, v.ToBoolean())
}

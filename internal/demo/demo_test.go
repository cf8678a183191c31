package demo

import (
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/andjs/internal/binding"
)

func bind(t *testing.T, obj any) *goja.Runtime {
	t.Helper()
	reg, err := binding.NewRegistry()
	require.NoError(t, err)

	rt := goja.New()
	proxy, _, err := binding.NewBridge(reg, rt, nil).Wrap(obj)
	require.NoError(t, err)
	require.NoError(t, rt.Set(ObjectName, proxy))
	return rt
}

func TestScriptMethods(t *testing.T) {
	obj := NewMyObject(zap.NewNop(), NewRecordingSurface(zap.NewNop()))

	names, err := binding.MethodNames(obj)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"doLog", "getMessage", "getMyHome"}, names)

	names, err = binding.MethodNames(obj.GetMyHome())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"printRect", "getMessage"}, names)
}

func TestMyObjectFromScript(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	surface := NewRecordingSurface(zap.New(core))
	rt := bind(t, NewMyObject(zap.New(core), surface))

	_, err := rt.RunString(`myobject.doLog("This is a JS String")`)
	require.NoError(t, err)
	entries := logs.Filter(func(e observer.LoggedEntry) bool { return e.LoggerName == "MyObject" }).All()
	require.Len(t, entries, 1)
	assert.Equal(t, "This is a JS String", entries[0].Message)

	v, err := rt.RunString(`myobject.getMessage()`)
	require.NoError(t, err)
	assert.Equal(t, "This is a Go string", v.String())

	v, err = rt.RunString(`var home = myobject.getMyHome(); home.printRect(0, 0, 512, 512); home.getMessage()`)
	require.NoError(t, err)
	assert.Equal(t, "This is a Go string from MyHome", v.String())
	assert.Equal(t, []Rect{{X0: 0, Y0: 0, X1: 512, Y1: 512}}, surface.Rects())

	drawn := logs.FilterMessage("Rect drawn").All()
	require.Len(t, drawn, 1)
	assert.Equal(t, "Surface", drawn[0].LoggerName)
	assert.Equal(t, int64(512), drawn[0].ContextMap()["x1"])
}

func TestHiddenMethods(t *testing.T) {
	rt := bind(t, NewMyObject(zap.NewNop(), NewRecordingSurface(zap.NewNop())))

	v, err := rt.RunString(`typeof myobject.getMyHome().surface`)
	require.NoError(t, err)
	assert.Equal(t, "undefined", v.String())

	v, err = rt.RunString(`typeof myobject.scriptMethods`)
	require.NoError(t, err)
	assert.Equal(t, "undefined", v.String())
}

func TestPrintRectArity(t *testing.T) {
	rt := bind(t, NewMyObject(zap.NewNop(), NewRecordingSurface(zap.NewNop())))

	_, err := rt.RunString(`myobject.getMyHome().printRect(1, 2)`)
	var ex *goja.Exception
	require.ErrorAs(t, err, &ex)
	assert.Contains(t, ex.Value().String(), "TypeError")
}

func TestSampleScriptEmbedded(t *testing.T) {
	assert.Contains(t, SampleScript, `JSCrypto.key("mykey")`)
	assert.Contains(t, SampleScript, `home.printRect(0, 0, 512, 512);`)
}

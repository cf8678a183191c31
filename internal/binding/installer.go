package binding

import (
	"sort"

	"github.com/dop251/goja"
)

// Installer builds script values for one capability. Every function it
// creates is wrapped in the registry's middleware chain.
type Installer struct {
	rt         *goja.Runtime
	capability string
	middleware []Middleware
}

// Runtime returns the runtime values are being built for.
func (in *Installer) Runtime() *goja.Runtime {
	return in.rt
}

// Capability returns the name the values are installed under.
func (in *Installer) Capability() string {
	return in.capability
}

// Func wraps fn as a script function named method.
func (in *Installer) Func(method string, fn NativeFunc) goja.Value {
	return in.rt.ToValue(in.wrap(method, fn))
}

// Object builds a plain object whose properties are the given methods.
func (in *Installer) Object(methods map[string]NativeFunc) (*goja.Object, error) {
	names := make([]string, 0, len(methods))
	for name := range methods {
		names = append(names, name)
	}
	sort.Strings(names)

	obj := in.rt.NewObject()
	for _, name := range names {
		if err := obj.Set(name, in.Func(name, methods[name])); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

// Sub returns an installer for values nested under this capability, such as
// objects returned from a factory.
func (in *Installer) Sub(capability string) *Installer {
	return &Installer{
		rt:         in.rt,
		capability: capability,
		middleware: in.middleware,
	}
}

func (in *Installer) wrap(method string, fn NativeFunc) func(goja.FunctionCall) goja.Value {
	info := CallInfo{Runtime: in.rt, Capability: in.capability, Method: method}
	wrapped := fn
	for i := len(in.middleware) - 1; i >= 0; i-- {
		wrapped = in.middleware[i](info, wrapped)
	}
	return wrapped
}

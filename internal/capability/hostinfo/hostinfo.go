package hostinfo

import (
	"github.com/dop251/goja"

	"github.com/GriffinCanCode/andjs/internal/binding"
)

// Name is the global the capability is installed under.
const Name = "andjs"

// Capability installs andjs.version() and andjs.bindings().
type Capability struct {
	version  string
	bindings func() []string
}

// New creates the capability. bindings is called on every andjs.bindings()
// call so objects injected after startup are listed.
func New(version string, bindings func() []string) *Capability {
	return &Capability{version: version, bindings: bindings}
}

func (c *Capability) Name() string { return Name }

func (c *Capability) Install(in *binding.Installer) (goja.Value, error) {
	rt := in.Runtime()
	return in.Object(map[string]binding.NativeFunc{
		"version": func(goja.FunctionCall) goja.Value {
			return rt.ToValue(c.version)
		},
		"bindings": func(goja.FunctionCall) goja.Value {
			var items []any
			if c.bindings != nil {
				for _, name := range c.bindings() {
					items = append(items, name)
				}
			}
			return rt.NewArray(items...)
		},
	})
}

package binding

import (
	"fmt"
	"sort"

	"github.com/dop251/goja"
)

// NativeFunc is a host function callable from script code.
type NativeFunc func(call goja.FunctionCall) goja.Value

// Capability is a named value installed as a script global before any
// script runs.
type Capability interface {
	Name() string
	Install(in *Installer) (goja.Value, error)
}

// Registry is an immutable set of capabilities. Once built with NewRegistry
// nothing can be added or removed, so a single registry can back any number
// of runtimes.
type Registry struct {
	capabilities map[string]Capability
	names        []string
	middleware   []Middleware
}

// Option configures a Registry under construction.
type Option func(*registryBuilder)

type registryBuilder struct {
	capabilities map[string]Capability
	middleware   []Middleware
	errors       []error
}

// NewRegistry builds a Registry. The first registration error is returned.
//
//	reg, err := binding.NewRegistry(
//	    binding.WithMiddleware(binding.Recover(logger)),
//	    binding.WithCapability(adb.New(logger, hub)),
//	    binding.WithFunc("now", nowFunc),
//	)
func NewRegistry(opts ...Option) (*Registry, error) {
	b := &registryBuilder{
		capabilities: make(map[string]Capability),
	}

	for _, opt := range opts {
		opt(b)
	}

	if len(b.errors) > 0 {
		return nil, b.errors[0]
	}

	names := make([]string, 0, len(b.capabilities))
	for name := range b.capabilities {
		names = append(names, name)
	}
	sort.Strings(names)

	return &Registry{
		capabilities: b.capabilities,
		names:        names,
		middleware:   append([]Middleware(nil), b.middleware...),
	}, nil
}

func (b *registryBuilder) add(c Capability) {
	if c == nil {
		b.errors = append(b.errors, ErrNilCapability)
		return
	}
	name := c.Name()
	if name == "" {
		b.errors = append(b.errors, ErrEmptyName)
		return
	}
	if _, exists := b.capabilities[name]; exists {
		b.errors = append(b.errors, fmt.Errorf("%w: %q", ErrDuplicateName, name))
		return
	}
	b.capabilities[name] = c
}

// WithCapability registers one or more capabilities.
func WithCapability(caps ...Capability) Option {
	return func(b *registryBuilder) {
		for _, c := range caps {
			b.add(c)
		}
	}
}

// WithFunc registers a plain global function.
func WithFunc(name string, fn NativeFunc) Option {
	return func(b *registryBuilder) {
		b.add(funcCapability{name: name, fn: fn})
	}
}

// WithMiddleware adds middleware wrapped around every native call.
// Middleware runs in FIFO order: the first added is outermost.
func WithMiddleware(mw ...Middleware) Option {
	return func(b *registryBuilder) {
		b.middleware = append(b.middleware, mw...)
	}
}

// Names returns the sorted capability names.
func (r *Registry) Names() []string {
	result := make([]string, len(r.names))
	copy(result, r.names)
	return result
}

// Has reports whether a capability is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.capabilities[name]
	return ok
}

// Install sets every capability as a global of rt, in name order.
func (r *Registry) Install(rt *goja.Runtime) error {
	for _, name := range r.names {
		value, err := r.capabilities[name].Install(r.Installer(rt, name))
		if err != nil {
			return fmt.Errorf("install %s: %w", name, err)
		}
		if err := rt.Set(name, value); err != nil {
			return fmt.Errorf("install %s: %w", name, err)
		}
	}
	return nil
}

// Installer returns an installer for values bound under capability.
func (r *Registry) Installer(rt *goja.Runtime, capability string) *Installer {
	return &Installer{
		rt:         rt,
		capability: capability,
		middleware: r.middleware,
	}
}

type funcCapability struct {
	name string
	fn   NativeFunc
}

func (f funcCapability) Name() string { return f.name }

func (f funcCapability) Install(in *Installer) (goja.Value, error) {
	return in.Func(f.name, f.fn), nil
}

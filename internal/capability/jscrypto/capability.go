package jscrypto

import (
	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/andjs/internal/binding"
)

const (
	// ObjectName is the global holding the key factory: JSCrypto.key(name).
	ObjectName = "JSCrypto"
	// FactoryName is the alternate global factory: getJSCrypto(name).
	FactoryName = "getJSCrypto"
)

// Factory creates sealing capabilities for scripts.
type Factory struct {
	scheme Scheme
	logger *zap.Logger
}

// NewFactory creates a factory sealing with scheme.
func NewFactory(scheme Scheme, logger *zap.Logger) *Factory {
	return &Factory{scheme: scheme, logger: logger.Named("jscrypto")}
}

// Scheme returns the factory's scheme.
func (f *Factory) Scheme() Scheme { return f.scheme }

// Capabilities returns the JSCrypto and getJSCrypto globals.
func (f *Factory) Capabilities() []binding.Capability {
	return []binding.Capability{
		objectCapability{f},
		factoryCapability{f},
	}
}

type objectCapability struct{ f *Factory }

func (c objectCapability) Name() string { return ObjectName }

func (c objectCapability) Install(in *binding.Installer) (goja.Value, error) {
	return in.Object(map[string]binding.NativeFunc{
		"key": c.f.keyFunc(in),
		"schemes": func(goja.FunctionCall) goja.Value {
			return in.Runtime().ToValue(Schemes())
		},
	})
}

type factoryCapability struct{ f *Factory }

func (c factoryCapability) Name() string { return FactoryName }

func (c factoryCapability) Install(in *binding.Installer) (goja.Value, error) {
	return in.Func(FactoryName, c.f.keyFunc(in)), nil
}

func (f *Factory) keyFunc(in *binding.Installer) binding.NativeFunc {
	rt := in.Runtime()
	sub := in.Sub(ObjectName)

	return func(call goja.FunctionCall) goja.Value {
		arg := call.Argument(0)
		if goja.IsUndefined(arg) {
			panic(rt.NewTypeError("key name is required"))
		}
		key, ok := arg.Export().(string)
		if !ok {
			panic(rt.NewTypeError("key name must be a string, got %s", arg.ExportType()))
		}

		sealer, err := NewSealer(f.scheme, key)
		if err != nil {
			panic(rt.NewGoError(err))
		}

		obj, err := sub.Object(map[string]binding.NativeFunc{
			"seal": f.transform(rt, "seal", sealer.Seal),
			"open": f.transform(rt, "open", sealer.Open),
		})
		if err != nil {
			panic(rt.NewGoError(err))
		}
		return obj
	}
}

// transform adapts Seal or Open. Failures yield undefined and are logged;
// the text itself never reaches the log.
func (f *Factory) transform(rt *goja.Runtime, op string, fn func(string) (string, error)) binding.NativeFunc {
	return func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			panic(rt.NewTypeError("%s requires one argument", op))
		}
		out, err := fn(call.Arguments[0].String())
		if err != nil {
			f.logger.Error("Crypto operation failed",
				zap.String("op", op),
				zap.String("scheme", string(f.scheme)),
				zap.Error(err),
			)
			return goja.Undefined()
		}
		f.logger.Debug("Crypto operation",
			zap.String("op", op),
			zap.String("scheme", string(f.scheme)),
			zap.Int("in_len", len(call.Arguments[0].String())),
			zap.Int("out_len", len(out)),
		)
		return rt.ToValue(out)
	}
}

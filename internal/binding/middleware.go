package binding

import (
	"fmt"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// CallInfo describes the native function a middleware is wrapping.
type CallInfo struct {
	Runtime    *goja.Runtime
	Capability string
	Method     string
}

// String returns "capability.method".
func (c CallInfo) String() string {
	return c.Capability + "." + c.Method
}

// Middleware wraps a native function. It is applied once, when the function
// is created, not on every call.
type Middleware func(info CallInfo, next NativeFunc) NativeFunc

// Recover turns a Go panic inside a native function into a script
// exception. Script exceptions raised by the function itself pass through.
func Recover(logger *zap.Logger) Middleware {
	return func(info CallInfo, next NativeFunc) NativeFunc {
		return func(call goja.FunctionCall) (result goja.Value) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				switch r.(type) {
				case goja.Value, *goja.Exception, *goja.InterruptedError:
					panic(r)
				}
				logger.Error("Native call panicked",
					zap.String("binding", info.String()),
					zap.Any("panic", r),
				)
				panic(info.Runtime.NewGoError(fmt.Errorf("%s: internal error: %v", info, r)))
			}()
			return next(call)
		}
	}
}

// Trace logs every native call at debug level.
func Trace(logger *zap.Logger) Middleware {
	return func(info CallInfo, next NativeFunc) NativeFunc {
		return func(call goja.FunctionCall) goja.Value {
			logger.Debug("Native call",
				zap.String("binding", info.String()),
				zap.Int("args", len(call.Arguments)),
			)
			return next(call)
		}
	}
}

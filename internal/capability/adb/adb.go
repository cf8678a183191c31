package adb

import (
	"strings"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/andjs/internal/binding"
)

// Name is the global the capability is installed under.
const Name = "adb"

// Capability installs the adb object: adb.info(...) and adb.error(...).
// Arguments are stringified and concatenated without a separator.
type Capability struct {
	logger *zap.Logger
	sink   Sink
}

// New creates the adb capability. Entries are logged on logger and, when
// sink is non-nil, published to it.
func New(logger *zap.Logger, sink Sink) *Capability {
	return &Capability{
		logger: logger.Named(Name),
		sink:   sink,
	}
}

func (c *Capability) Name() string { return Name }

func (c *Capability) Install(in *binding.Installer) (goja.Value, error) {
	return in.Object(map[string]binding.NativeFunc{
		"info":  c.logFunc(LevelInfo),
		"error": c.logFunc(LevelError),
	})
}

func (c *Capability) logFunc(level Level) binding.NativeFunc {
	return func(call goja.FunctionCall) goja.Value {
		var b strings.Builder
		for _, arg := range call.Arguments {
			b.WriteString(arg.String())
		}
		msg := b.String()

		switch level {
		case LevelError:
			c.logger.Error(msg)
		default:
			c.logger.Info(msg)
		}

		if c.sink != nil {
			c.sink.Publish(Entry{Level: level, Message: msg, Time: time.Now()})
		}
		return goja.Undefined()
	}
}

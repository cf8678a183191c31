package engine

import (
	"errors"
	"time"

	"github.com/GriffinCanCode/andjs/internal/binding"
	"github.com/GriffinCanCode/andjs/internal/capability/adb"
	"github.com/GriffinCanCode/andjs/internal/shared/id"
)

var (
	ErrClosed    = errors.New("script host is closed")
	ErrTimeout   = errors.New("script execution timed out")
	ErrEmptyName = binding.ErrEmptyName
)

// AnonymousResource names scripts submitted without a resource name.
const AnonymousResource = "<anonymous>"

// Config controls script execution on a Host.
type Config struct {
	Timeout      time.Duration
	MaxCallStack int
	QueueSize    int
}

// DefaultConfig returns the configuration used for zero fields.
func DefaultConfig() Config {
	return Config{
		Timeout:      5 * time.Second,
		MaxCallStack: 1024,
		QueueSize:    64,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.MaxCallStack <= 0 {
		c.MaxCallStack = d.MaxCallStack
	}
	if c.QueueSize <= 0 {
		c.QueueSize = d.QueueSize
	}
	return c
}

// Result is the outcome of one script evaluation.
type Result struct {
	RunID    id.RunID      `json:"run_id"`
	Resource string        `json:"resource"`
	Value    any           `json:"value"`
	Logs     []adb.Entry   `json:"logs"`
	Duration time.Duration `json:"duration"`
}

// ScriptError reports a script that threw, failed to compile, or was
// interrupted. Cause is ErrTimeout, a context error or ErrClosed for
// interrupts and nil otherwise.
type ScriptError struct {
	Resource string `json:"resource"`
	Message  string `json:"message"`
	Stack    string `json:"stack,omitempty"`
	Cause    error  `json:"-"`
}

func (e *ScriptError) Error() string {
	return e.Resource + ": " + e.Message
}

func (e *ScriptError) Unwrap() error {
	return e.Cause
}

// RunObserver is notified after every evaluation. status is "ok", "error"
// or "interrupted".
type RunObserver interface {
	ObserveRun(resource, status string, d time.Duration)
}

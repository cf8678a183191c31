package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/andjs/internal/binding"
	"github.com/GriffinCanCode/andjs/internal/capability/adb"
	"github.com/GriffinCanCode/andjs/internal/capability/hostinfo"
	"github.com/GriffinCanCode/andjs/internal/scripts"
	"github.com/GriffinCanCode/andjs/internal/shared/id"
)

// Globals removed from every runtime before capabilities are installed.
var strippedGlobals = []string{"require", "process", "module", "exports"}

// Option configures a Host.
type Option func(*options)

type options struct {
	capabilities []binding.Capability
	middleware   []binding.Middleware
	sink         adb.Sink
	loader       *scripts.Loader
	observer     RunObserver
	objects      []injection
	startup      []scripts.Source
	version      string
	hostInfo     bool
}

// WithCapabilities installs additional capabilities next to adb.
func WithCapabilities(caps ...binding.Capability) Option {
	return func(o *options) {
		o.capabilities = append(o.capabilities, caps...)
	}
}

// WithMiddleware wraps every native call made by scripts.
func WithMiddleware(mw ...binding.Middleware) Option {
	return func(o *options) {
		o.middleware = append(o.middleware, mw...)
	}
}

// WithSink forwards adb entries to sink after they are recorded on the
// current Result.
func WithSink(sink adb.Sink) Option {
	return func(o *options) {
		o.sink = sink
	}
}

// WithLoader sets the loader used by RunFile and PostFile.
func WithLoader(loader *scripts.Loader) Option {
	return func(o *options) {
		o.loader = loader
	}
}

// WithObserver reports every evaluation to observer.
func WithObserver(observer RunObserver) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// WithObject injects obj under name before any startup script runs. It
// behaves like Inject and survives Reset.
func WithObject(name string, obj any) Option {
	return func(o *options) {
		o.objects = append(o.objects, injection{name: name, value: obj})
	}
}

// WithStartup evaluates srcs, in order, on every fresh runtime: once in New
// and again after each Reset.
func WithStartup(srcs ...scripts.Source) Option {
	return func(o *options) {
		o.startup = append(o.startup, srcs...)
	}
}

// WithHostInfo installs the andjs global reporting version and bindings.
func WithHostInfo(version string) Option {
	return func(o *options) {
		o.hostInfo = true
		o.version = version
	}
}

type task struct {
	run   func()
	abort func(error)
}

type injection struct {
	name  string
	value any
}

// Host owns one JavaScript runtime. The runtime is not safe for concurrent
// use, so every operation is queued as a task and executed in order on the
// host's own goroutine.
type Host struct {
	id       id.HostID
	cfg      Config
	logger   *zap.Logger
	reg      *binding.Registry
	sink     adb.Sink
	loader   *scripts.Loader
	observer RunObserver

	// Owned by the task goroutine.
	rt       *goja.Runtime
	bridge   *binding.Bridge
	injected []injection
	startup  []scripts.Source
	current  *Result

	runtime atomic.Pointer[goja.Runtime]
	objects atomic.Pointer[binding.Objects]

	namesMu sync.RWMutex
	names   []string

	mu      sync.RWMutex
	closed  bool
	tasks   chan task
	quit    chan struct{}
	stopped chan struct{}
}

// New creates a host, installs the adb capability plus any given with
// WithCapabilities, and starts its task goroutine.
func New(cfg Config, logger *zap.Logger, opts ...Option) (*Host, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	hostID := id.NewHostID()
	h := &Host{
		id:       hostID,
		cfg:      cfg.withDefaults(),
		logger:   logger.Named("engine").With(zap.String("host_id", hostID.String())),
		sink:     o.sink,
		loader:   o.loader,
		observer: o.observer,
		quit:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	h.tasks = make(chan task, h.cfg.QueueSize)
	if h.loader == nil {
		h.loader = scripts.NewLoader(".", 0)
	}

	caps := []binding.Capability{adb.New(logger, hostSink{h})}
	if o.hostInfo {
		caps = append(caps, hostinfo.New(o.version, h.Bindings))
	}
	caps = append(caps, o.capabilities...)

	reg, err := binding.NewRegistry(
		binding.WithMiddleware(o.middleware...),
		binding.WithCapability(caps...),
	)
	if err != nil {
		return nil, err
	}
	h.reg = reg
	h.names = reg.Names()
	h.startup = o.startup

	for _, inj := range o.objects {
		switch {
		case inj.name == "":
			return nil, ErrEmptyName
		case inj.value == nil:
			return nil, binding.ErrNilObject
		case reg.Has(inj.name) || h.isInjected(inj.name):
			return nil, fmt.Errorf("%w: %s", binding.ErrDuplicateName, inj.name)
		}
		h.injected = append(h.injected, inj)
		h.names = append(h.names, inj.name)
	}
	sort.Strings(h.names)

	if err := h.setup(); err != nil {
		return nil, err
	}

	go h.loop()

	h.logger.Debug("Script host started", zap.Strings("bindings", h.names))
	return h, nil
}

// ID returns the host's instance identifier.
func (h *Host) ID() id.HostID {
	return h.id
}

// Objects returns the bound-object table of the current runtime.
func (h *Host) Objects() *binding.Objects {
	return h.objects.Load()
}

// Bindings returns the sorted names of installed capabilities and injected
// objects.
func (h *Host) Bindings() []string {
	h.namesMu.RLock()
	defer h.namesMu.RUnlock()

	result := make([]string, len(h.names))
	copy(result, h.names)
	return result
}

// Inject binds obj under the global name. The binding survives Reset.
func (h *Host) Inject(name string, obj any) error {
	if name == "" {
		return ErrEmptyName
	}
	if obj == nil {
		return binding.ErrNilObject
	}

	return h.call(context.Background(), func() error {
		if h.reg.Has(name) || h.isInjected(name) {
			return fmt.Errorf("%w: %s", binding.ErrDuplicateName, name)
		}
		if err := h.bind(name, obj); err != nil {
			return err
		}
		h.injected = append(h.injected, injection{name: name, value: obj})

		h.namesMu.Lock()
		h.names = append(h.names, name)
		sort.Strings(h.names)
		h.namesMu.Unlock()

		h.logger.Debug("Object injected", zap.String("name", name))
		return nil
	})
}

// Run evaluates source and waits for it to finish. The script is
// interrupted when ctx is done or the configured timeout elapses.
func (h *Host) Run(ctx context.Context, name, source string) (*Result, error) {
	var (
		result *Result
		runErr error
	)
	err := h.call(ctx, func() error {
		result, runErr = h.evaluate(ctx, name, source)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, runErr
}

// Post queues source for evaluation and returns without waiting. Script
// errors are logged.
func (h *Host) Post(name, source string) error {
	return h.submit(context.Background(), task{
		run: func() {
			_, _ = h.evaluate(context.Background(), name, source)
		},
		abort: func(error) {},
	})
}

// RunFile loads the script at path and runs it, named by its base name.
func (h *Host) RunFile(ctx context.Context, path string) (*Result, error) {
	src, err := h.loader.Load(path)
	if err != nil {
		return nil, err
	}
	return h.Run(ctx, src.Name, src.Code)
}

// PostFile loads the script at path and posts it. Load errors are returned.
func (h *Host) PostFile(path string) error {
	src, err := h.loader.Load(path)
	if err != nil {
		return err
	}
	return h.Post(src.Name, src.Code)
}

// Reset discards all script state by rebuilding the runtime. Capabilities
// and injected objects are installed again.
func (h *Host) Reset() error {
	return h.call(context.Background(), h.setup)
}

// Shutdown stops the task goroutine. Queued tasks fail with ErrClosed and
// a running script is interrupted. Calling Shutdown again is a no-op.
func (h *Host) Shutdown() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	close(h.quit)
	h.mu.Unlock()

	if rt := h.runtime.Load(); rt != nil {
		rt.Interrupt(ErrClosed)
	}
	<-h.stopped

	h.logger.Debug("Script host stopped")
	return nil
}

// call runs fn on the task goroutine and waits for its error.
func (h *Host) call(ctx context.Context, fn func() error) error {
	reply := make(chan error, 1)
	err := h.submit(ctx, task{
		run: func() {
			if err := ctx.Err(); err != nil {
				reply <- err
				return
			}
			reply <- fn()
		},
		abort: func(err error) { reply <- err },
	})
	if err != nil {
		return err
	}
	return <-reply
}

func (h *Host) submit(ctx context.Context, t task) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return ErrClosed
	}

	select {
	case h.tasks <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Host) loop() {
	defer close(h.stopped)

	for {
		select {
		case <-h.quit:
			h.drain()
			return
		default:
		}

		select {
		case t := <-h.tasks:
			t.run()
		case <-h.quit:
			h.drain()
			return
		}
	}
}

func (h *Host) drain() {
	for {
		select {
		case t := <-h.tasks:
			t.abort(ErrClosed)
		default:
			return
		}
	}
}

// setup builds a fresh runtime. Runs on the task goroutine, or before it
// starts.
func (h *Host) setup() error {
	rt := goja.New()
	rt.SetMaxCallStackSize(h.cfg.MaxCallStack)

	for _, name := range strippedGlobals {
		if err := rt.Set(name, goja.Undefined()); err != nil {
			return err
		}
	}
	if err := h.reg.Install(rt); err != nil {
		return err
	}

	objects := binding.NewObjects()
	prevRT, prevBridge := h.rt, h.bridge
	h.rt = rt
	h.bridge = binding.NewBridge(h.reg, rt, objects)

	for _, inj := range h.injected {
		if err := h.bind(inj.name, inj.value); err != nil {
			h.rt, h.bridge = prevRT, prevBridge
			return fmt.Errorf("reinject %s: %w", inj.name, err)
		}
	}

	h.runtime.Store(rt)
	h.objects.Store(objects)

	for _, src := range h.startup {
		if _, err := h.evaluate(context.Background(), src.Name, src.Code); err != nil {
			return fmt.Errorf("startup script %s: %w", src.Name, err)
		}
	}
	return nil
}

func (h *Host) bind(name string, obj any) error {
	proxy, _, err := h.bridge.Wrap(obj)
	if err != nil {
		return fmt.Errorf("inject %s: %w", name, err)
	}
	return h.rt.Set(name, proxy)
}

func (h *Host) isInjected(name string) bool {
	for _, inj := range h.injected {
		if inj.name == name {
			return true
		}
	}
	return false
}

// evaluate runs one script on the task goroutine.
func (h *Host) evaluate(ctx context.Context, name, source string) (*Result, error) {
	if name == "" {
		name = AnonymousResource
	}

	result := &Result{
		RunID:    id.NewRunID(),
		Resource: name,
		Logs:     []adb.Entry{},
	}
	h.current = result
	defer func() { h.current = nil }()

	logger := h.logger.With(
		zap.String("resource", name),
		zap.String("run_id", result.RunID.String()),
	)

	rt := h.rt
	timer := time.NewTimer(h.cfg.Timeout)
	defer timer.Stop()

	done := make(chan struct{})
	watching := make(chan struct{})
	go func() {
		defer close(watching)
		select {
		case <-timer.C:
			rt.Interrupt(ErrTimeout)
		case <-ctx.Done():
			rt.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	start := time.Now()
	val, err := rt.RunScript(name, source)
	close(done)
	<-watching
	rt.ClearInterrupt()
	result.Duration = time.Since(start)

	if err != nil {
		scriptErr := h.scriptError(name, err)
		status := "error"
		if scriptErr.Cause != nil {
			status = "interrupted"
			logger.Warn("Script interrupted", zap.Error(scriptErr.Cause))
		} else {
			logger.Error("Script exception",
				zap.String("message", scriptErr.Message),
				zap.String("stack", scriptErr.Stack))
		}
		h.observe(name, status, result.Duration)
		return result, scriptErr
	}

	result.Value = exportValue(val)
	h.observe(name, "ok", result.Duration)
	logger.Debug("Script completed", zap.Duration("duration", result.Duration))
	return result, nil
}

func (h *Host) scriptError(name string, err error) *ScriptError {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		cause, ok := interrupted.Value().(error)
		if !ok {
			cause = fmt.Errorf("interrupted: %v", interrupted.Value())
		}
		return &ScriptError{Resource: name, Message: cause.Error(), Cause: cause}
	}

	var exception *goja.Exception
	if errors.As(err, &exception) {
		msg := exception.Error()
		if v := exception.Value(); v != nil {
			msg = v.String()
		}
		return &ScriptError{Resource: name, Message: msg, Stack: exception.String()}
	}

	return &ScriptError{Resource: name, Message: err.Error()}
}

func (h *Host) observe(name, status string, d time.Duration) {
	if h.observer != nil {
		h.observer.ObserveRun(name, status, d)
	}
}

// exportValue converts a completion value to plain Go data. Objects are
// passed through JSON so bound proxies and functions drop out.
func exportValue(val goja.Value) any {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil
	}
	if _, ok := goja.AssertFunction(val); ok {
		return nil
	}
	obj, ok := val.(*goja.Object)
	if !ok {
		v := val.Export()
		// JSON has no NaN or Infinity; JSON.stringify writes null.
		if f, isFloat := v.(float64); isFloat && (math.IsNaN(f) || math.IsInf(f, 0)) {
			return nil
		}
		return v
	}

	data, err := obj.MarshalJSON()
	if err != nil {
		return nil
	}
	var out any
	if err := sonic.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

// hostSink attributes adb entries to the running script before forwarding
// them. Native calls happen on the task goroutine, so current needs no lock.
type hostSink struct{ h *Host }

func (s hostSink) Publish(e adb.Entry) {
	if cur := s.h.current; cur != nil {
		e.Resource = cur.Resource
		e.RunID = cur.RunID.String()
		cur.Logs = append(cur.Logs, e)
	}
	if s.h.sink != nil {
		s.h.sink.Publish(e)
	}
}

package server

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/andjs/internal/binding"
	"github.com/GriffinCanCode/andjs/internal/capability/adb"
	"github.com/GriffinCanCode/andjs/internal/capability/jscrypto"
	"github.com/GriffinCanCode/andjs/internal/demo"
	"github.com/GriffinCanCode/andjs/internal/engine"
	"github.com/GriffinCanCode/andjs/internal/infrastructure/config"
	"github.com/GriffinCanCode/andjs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/andjs/internal/manifest"
	"github.com/GriffinCanCode/andjs/internal/scripts"
)

// HostDeps is everything a host factory needs. Metrics may be nil.
type HostDeps struct {
	Config   *config.Config
	Manifest *manifest.Manifest
	Loader   *scripts.Loader
	Sink     adb.Sink
	Metrics  *monitoring.Metrics
	Logger   *zap.Logger
	Version  string
}

// NewHostFactory resolves the manifest once (crypto scheme, startup scripts)
// and returns a factory building identically configured hosts.
func NewHostFactory(ctx context.Context, d HostDeps) (engine.Factory, error) {
	m := d.Manifest
	if m == nil {
		m = manifest.Default()
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	schemeName := d.Config.Crypto.Scheme
	if m.Crypto.Scheme != "" {
		schemeName = m.Crypto.Scheme
	}
	scheme, err := jscrypto.ParseScheme(schemeName)
	if err != nil {
		return nil, err
	}
	crypto := jscrypto.NewFactory(scheme, logger)

	startup, err := loadStartup(ctx, d.Loader, m.Startup)
	if err != nil {
		return nil, err
	}

	cfg := engine.Config{
		Timeout:      d.Config.Engine.Timeout,
		MaxCallStack: d.Config.Engine.MaxCallStack,
		QueueSize:    d.Config.Engine.QueueSize,
	}

	middleware := []binding.Middleware{binding.Recover(logger)}
	if d.Config.Logging.Development {
		middleware = append(middleware, binding.Trace(logger.Named("binding")))
	}
	if d.Metrics != nil {
		middleware = append(middleware, monitoring.BindingMiddleware(d.Metrics))
	}

	return func() (*engine.Host, error) {
		opts := []engine.Option{
			engine.WithLoader(d.Loader),
			engine.WithMiddleware(middleware...),
			engine.WithStartup(startup...),
		}
		if d.Sink != nil {
			opts = append(opts, engine.WithSink(d.Sink))
		}
		if d.Metrics != nil {
			opts = append(opts, engine.WithObserver(d.Metrics))
		}
		if m.Has(manifest.CapabilityCrypto) {
			opts = append(opts, engine.WithCapabilities(crypto.Capabilities()...))
		}
		if m.Has(manifest.CapabilityHost) {
			opts = append(opts, engine.WithHostInfo(d.Version))
		}
		for _, obj := range m.Objects {
			opts = append(opts, engine.WithObject(obj.Name, newObject(obj.Kind, logger)))
		}

		return engine.New(cfg, logger, opts...)
	}, nil
}

func newObject(kind string, logger *zap.Logger) any {
	switch kind {
	case manifest.KindDemo:
		return demo.NewMyObject(logger, demo.NewRecordingSurface(logger))
	default:
		// Unreachable for a validated manifest.
		return nil
	}
}

func loadStartup(ctx context.Context, loader *scripts.Loader, patterns []string) ([]scripts.Source, error) {
	var srcs []scripts.Source
	for _, pattern := range patterns {
		paths, err := loader.Glob(ctx, pattern)
		if err != nil {
			return nil, fmt.Errorf("startup %q: %w", pattern, err)
		}
		for _, path := range paths {
			src, err := loader.Load(path)
			if err != nil {
				return nil, fmt.Errorf("startup %q: %w", pattern, err)
			}
			srcs = append(srcs, src)
		}
	}
	return srcs, nil
}

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	nethttp "net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/andjs/internal/api/http"
	"github.com/GriffinCanCode/andjs/internal/api/middleware"
	"github.com/GriffinCanCode/andjs/internal/api/ws"
	"github.com/GriffinCanCode/andjs/internal/capability/adb"
	"github.com/GriffinCanCode/andjs/internal/engine"
	"github.com/GriffinCanCode/andjs/internal/infrastructure/config"
	"github.com/GriffinCanCode/andjs/internal/infrastructure/logging"
	"github.com/GriffinCanCode/andjs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/andjs/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/andjs/internal/manifest"
	"github.com/GriffinCanCode/andjs/internal/scripts"
)

// Options carries optional server dependencies.
type Options struct {
	Version string
	// Logger defaults to one built from the logging config.
	Logger *logging.Logger
	// Registry defaults to a fresh registry with Go and process collectors.
	Registry *prometheus.Registry
}

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	pool     *engine.Pool
	hub      *adb.Hub
	loader   *scripts.Loader
	manifest *manifest.Manifest
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer

	mu     sync.Mutex
	http   *nethttp.Server
	closed bool
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewFromLevel(cfg.Logging.Level, cfg.Logging.Development)
	}

	logger.Info("Initializing andjs server",
		zap.String("port", cfg.Server.Port),
		zap.String("script_root", cfg.Scripts.Root),
		zap.Int("pool_size", cfg.Engine.PoolSize),
	)

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	metrics := monitoring.NewMetrics(reg)
	tracer := tracing.New("andjs", logger.Logger)

	m, err := manifest.Load(cfg.Scripts.Manifest)
	if err != nil {
		tracer.Close()
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}
	logger.Info("Manifest loaded",
		zap.String("name", m.Name),
		zap.Strings("capabilities", m.Capabilities),
		zap.Int("objects", len(m.Objects)),
		zap.Strings("startup", m.Startup),
	)

	hub := adb.NewHub(cfg.Server.LogHistory)
	loader := scripts.NewLoader(cfg.Scripts.Root, cfg.Scripts.MaxBytes)

	factory, err := NewHostFactory(context.Background(), HostDeps{
		Config:   cfg,
		Manifest: m,
		Loader:   loader,
		Sink:     hub,
		Metrics:  metrics,
		Logger:   logger.Logger,
		Version:  opts.Version,
	})
	if err != nil {
		tracer.Close()
		return nil, err
	}

	pool, err := engine.NewPool(engine.PoolConfig{
		Size:           cfg.Engine.PoolSize,
		AcquireTimeout: cfg.Engine.AcquireTimeout,
	}, factory, logger.Logger)
	if err != nil {
		tracer.Close()
		return nil, fmt.Errorf("failed to start script hosts: %w", err)
	}
	logger.Info("Script host pool ready", zap.Int("size", cfg.Engine.PoolSize))

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(poolGauges(pool, metrics))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.Server.CORSOrigins
	router.Use(middleware.CORS(corsCfg))

	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	handlers := http.NewHandlers(pool, loader, hub, metrics, logger.Logger, opts.Version)
	wsHandler := ws.NewHandler(hub, metrics, logger.Logger)

	// Register routes
	router.GET("/health", handlers.Health)
	router.GET("/bindings", handlers.Bindings)
	router.POST("/scripts/run", handlers.RunScript)
	router.POST("/scripts/file", handlers.RunFile)
	router.GET("/logs", handlers.Logs)
	router.GET("/logs/stream", wsHandler.HandleConnection)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	logger.Info("Server initialized successfully")

	return &Server{
		router:   router,
		pool:     pool,
		hub:      hub,
		loader:   loader,
		manifest: m,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
		tracer:   tracer,
	}, nil
}

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine { return s.router }

// Pool returns the script host pool.
func (s *Server) Pool() *engine.Pool { return s.pool }

// Hub returns the script log hub.
func (s *Server) Hub() *adb.Hub { return s.hub }

// Run starts the HTTP server and blocks until it stops. A server stopped by
// Shutdown returns nil.
func (s *Server) Run() error {
	addr := net.JoinHostPort(s.config.Server.Host, s.config.Server.Port)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.http = &nethttp.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.http
	s.mu.Unlock()

	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones until ctx is
// done, then closes the host pool.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	s.mu.Lock()
	s.closed = true
	srv := s.http
	s.mu.Unlock()

	var err error
	if srv != nil {
		if err = srv.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP shutdown failed", zap.Error(err))
		}
	}
	if cerr := s.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Close releases the host pool without waiting for HTTP clients.
func (s *Server) Close() error {
	if err := s.pool.Close(); err != nil {
		s.logger.Error("Failed to close host pool", zap.Error(err))
		return fmt.Errorf("failed to close host pool: %w", err)
	}
	s.logger.Info("Closed host pool")

	s.tracer.Close()

	// Sync logger before exit
	s.logger.Sync()
	return nil
}

// poolGauges refreshes the pool usage gauges after every request.
func poolGauges(pool *engine.Pool, metrics *monitoring.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		stats := pool.Stats()
		metrics.SetPoolUsage(stats.Available, stats.InUse)
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/andjs/internal/demo"
	"github.com/GriffinCanCode/andjs/internal/engine"
	"github.com/GriffinCanCode/andjs/internal/infrastructure/config"
	"github.com/GriffinCanCode/andjs/internal/infrastructure/logging"
	"github.com/GriffinCanCode/andjs/internal/infrastructure/server"
	"github.com/GriffinCanCode/andjs/internal/manifest"
	"github.com/GriffinCanCode/andjs/internal/scripts"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Parse flags
	script := flag.String("script", "", "Run one script file and exit")
	sample := flag.Bool("sample", false, "Run the embedded sample script and exit")
	manifestPath := flag.String("manifest", "", "Host manifest, overrides ANDJS_MANIFEST")
	port := flag.String("port", "", "Server port, overrides ANDJS_PORT")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *manifestPath != "" {
		cfg.Scripts.Manifest = *manifestPath
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	if *script != "" || *sample {
		os.Exit(runOnce(cfg, *script))
	}

	srv, err := server.NewServer(cfg, server.Options{Version: version})
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	// Wait for shutdown signal or error
	select {
	case <-sigChan:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	case err := <-errChan:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}
}

// runOnce evaluates one script on a fresh host and prints its result as
// JSON. The exit code is 1 when the script throws or cannot be loaded.
func runOnce(cfg *config.Config, path string) int {
	logger := logging.NewFromLevel(cfg.Logging.Level, cfg.Logging.Development)
	defer logger.Sync()

	m, err := manifest.Load(cfg.Scripts.Manifest)
	if err != nil {
		logger.Error("Failed to load manifest", zap.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	factory, err := server.NewHostFactory(ctx, server.HostDeps{
		Config:   cfg,
		Manifest: m,
		Loader:   scripts.NewLoader(cfg.Scripts.Root, cfg.Scripts.MaxBytes),
		Logger:   logger.Logger,
		Version:  version,
	})
	if err != nil {
		logger.Error("Failed to prepare host", zap.Error(err))
		return 1
	}

	host, err := factory()
	if err != nil {
		logger.Error("Failed to start host", zap.Error(err))
		return 1
	}
	defer host.Shutdown()

	var result *engine.Result
	resource := demo.SampleName
	if path != "" {
		resource = path
		result, err = host.RunFile(ctx, path)
	} else {
		result, err = host.Run(ctx, demo.SampleName, demo.SampleScript)
	}
	scriptLog := logger.Script(resource)

	if result != nil {
		out, merr := sonic.Marshal(result)
		if merr != nil {
			scriptLog.Error("Failed to encode result", zap.Error(merr))
			return 1
		}
		fmt.Println(string(out))
	}
	if err != nil {
		scriptLog.Error("Script failed", zap.Error(err))
		return 1
	}
	return 0
}

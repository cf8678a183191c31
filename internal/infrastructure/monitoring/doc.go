/*
Package monitoring provides Prometheus metrics for the script host.

# Overview

Metrics covers HTTP requests, script evaluations, native binding calls,
host pool usage and log stream connections. Collectors are registered on
the Registerer passed to NewMetrics, so tests can use a private registry.

# Usage

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	// HTTP requests
	router.Use(monitoring.Middleware(metrics))

	// Script runs and native calls
	host, err := engine.New(cfg, logger,
	    engine.WithObserver(metrics),
	    engine.WithMiddleware(monitoring.BindingMiddleware(metrics)),
	)

# Metrics Endpoint

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
*/
package monitoring

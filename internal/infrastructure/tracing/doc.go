/*
Package tracing provides lightweight request tracing.

Every HTTP request gets a span. Handlers tag it with what they did (the
script resource and run ID), and the collector writes finished spans to
the log, so one trace ID ties an API call to the script run and the adb
output it produced.

# Usage

	tracer := tracing.New("andjs", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	// In a handler
	tracing.Tag(c.Request.Context(), "run_id", result.RunID.String())

# Trace Format

Traces use HTTP headers for propagation:
  - X-Trace-ID: identifier for the entire request flow
  - X-Span-ID: identifier for the current operation
*/
package tracing

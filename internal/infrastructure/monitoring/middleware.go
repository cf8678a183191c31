package monitoring

import (
	"strconv"
	"time"

	"github.com/dop251/goja"
	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/andjs/internal/binding"
)

// Middleware creates a Gin middleware for metrics collection
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		// Get request size
		reqSize := c.Request.ContentLength
		if reqSize < 0 {
			reqSize = 0
		}

		// Process request
		c.Next()

		// Route template keeps label cardinality bounded
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		duration := time.Since(start)
		status := strconv.Itoa(c.Writer.Status())
		respSize := int64(c.Writer.Size())
		if respSize < 0 {
			respSize = 0
		}

		metrics.RecordHTTPRequest(method, path, status, duration, reqSize, respSize)
	}
}

// BindingMiddleware records every native call made by scripts. A call that
// throws is counted with status "error".
func BindingMiddleware(metrics *Metrics) binding.Middleware {
	return func(info binding.CallInfo, next binding.NativeFunc) binding.NativeFunc {
		return func(call goja.FunctionCall) goja.Value {
			start := time.Now()
			status := "error"
			defer func() {
				metrics.RecordBindingCall(info.Capability, info.Method, status, time.Since(start))
			}()

			result := next(call)
			status = "ok"
			return result
		}
	}
}

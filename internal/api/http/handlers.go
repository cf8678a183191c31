package http

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/andjs/internal/capability/adb"
	"github.com/GriffinCanCode/andjs/internal/engine"
	"github.com/GriffinCanCode/andjs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/andjs/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/andjs/internal/scripts"
)

const defaultLogLimit = 100

// Executor runs scripts on pooled hosts.
type Executor interface {
	Execute(ctx context.Context, name, source string) (*engine.Result, error)
	ExecuteFile(ctx context.Context, path string) (*engine.Result, error)
	Bindings(ctx context.Context) ([]string, error)
	Stats() engine.PoolStats
}

// Handlers contains all HTTP handlers
type Handlers struct {
	executor Executor
	loader   *scripts.Loader
	hub      *adb.Hub
	metrics  *monitoring.Metrics
	logger   *zap.Logger
	version  string
}

// NewHandlers creates a new handler set. metrics may be nil.
func NewHandlers(
	executor Executor,
	loader *scripts.Loader,
	hub *adb.Hub,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
	version string,
) *Handlers {
	return &Handlers{
		executor: executor,
		loader:   loader,
		hub:      hub,
		metrics:  metrics,
		logger:   logger.Named("http"),
		version:  version,
	}
}

// RunRequest is the body of POST /scripts/run.
type RunRequest struct {
	Name   string `json:"name" binding:"max=256"`
	Source string `json:"source" binding:"required"`
}

// FileRequest is the body of POST /scripts/file.
type FileRequest struct {
	Path string `json:"path" binding:"required"`
}

// Health handles the health check
func (h *Handlers) Health(c *gin.Context) {
	body := gin.H{
		"status":  "healthy",
		"service": "andjs",
		"version": h.version,
		"pool":    h.executor.Stats(),
	}
	if h.metrics != nil {
		body["metrics"] = h.metrics.Snapshot()
	}
	c.JSON(http.StatusOK, body)
}

// Bindings lists the globals a script can use
func (h *Handlers) Bindings(c *gin.Context) {
	names, err := h.executor.Bindings(c.Request.Context())
	if err != nil {
		h.writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bindings": names})
}

// RunScript evaluates the posted source
func (h *Handlers) RunScript(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	result, err := h.executor.Execute(c.Request.Context(), req.Name, req.Source)
	tagRun(c, result)
	if err != nil {
		h.writeError(c, err, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RunFile evaluates a script under the script root
func (h *Handlers) RunFile(c *gin.Context) {
	var req FileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	path, err := h.loader.Resolve(req.Path)
	if err != nil {
		h.writeError(c, err, nil)
		return
	}

	result, err := h.executor.ExecuteFile(c.Request.Context(), path)
	tagRun(c, result)
	if err != nil {
		h.writeError(c, err, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Logs returns the most recent adb entries
func (h *Handlers) Logs(c *gin.Context) {
	limit := defaultLogLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	entries := h.hub.Recent(limit)
	if entries == nil {
		entries = []adb.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
		"dropped": h.hub.Dropped(),
	})
}

// writeError maps err to a status code. Script failures still carry the
// partial result, including any adb output produced before the failure.
func (h *Handlers) writeError(c *gin.Context, err error, result *engine.Result) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}

	var scriptErr *engine.ScriptError
	if errors.As(err, &scriptErr) {
		body["script_error"] = scriptErr
	}
	if result != nil {
		body["result"] = result
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, body)
}

func tagRun(c *gin.Context, result *engine.Result) {
	if result == nil {
		return
	}
	ctx := c.Request.Context()
	tracing.Tag(ctx, "resource", result.Resource)
	tracing.Tag(ctx, "run_id", result.RunID.String())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrTimeout):
		return http.StatusRequestTimeout
	case errors.Is(err, engine.ErrAcquire),
		errors.Is(err, engine.ErrPoolClosed),
		errors.Is(err, engine.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, scripts.ErrOutsideRoot):
		return http.StatusForbidden
	case errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, scripts.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, scripts.ErrUnsupported),
		errors.Is(err, scripts.ErrNotText),
		errors.Is(err, scripts.ErrEncoding):
		return http.StatusUnsupportedMediaType
	}

	var scriptErr *engine.ScriptError
	if errors.As(err, &scriptErr) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

package demo

import (
	"sync"

	"go.uber.org/zap"
)

// Rect is a rectangle drawn by a script, as passed to printRect.
type Rect struct {
	X0 int `json:"x0"`
	Y0 int `json:"y0"`
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
}

// Surface is a drawable surface handed to scripts.
type Surface interface {
	DrawRect(r Rect)
	Rects() []Rect
}

// RecordingSurface keeps every rectangle drawn on it and logs each one.
type RecordingSurface struct {
	mu     sync.Mutex
	rects  []Rect
	logger *zap.Logger
}

// NewRecordingSurface creates an empty surface logging under "Surface".
func NewRecordingSurface(logger *zap.Logger) *RecordingSurface {
	return &RecordingSurface{logger: logger.Named("Surface")}
}

func (s *RecordingSurface) DrawRect(r Rect) {
	s.mu.Lock()
	s.rects = append(s.rects, r)
	s.mu.Unlock()

	s.logger.Info("Rect drawn",
		zap.Int("x0", r.X0),
		zap.Int("y0", r.Y0),
		zap.Int("x1", r.X1),
		zap.Int("y1", r.Y1),
	)
}

func (s *RecordingSurface) Rects() []Rect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Rect(nil), s.rects...)
}

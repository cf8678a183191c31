package demo

import (
	_ "embed"

	"go.uber.org/zap"
)

// SampleScript exercises every capability a default host installs.
//
//go:embed sample.js
var SampleScript string

// SampleName is the resource name SampleScript runs under.
const SampleName = "sample.js"

// ObjectName is the global MyObject is injected under.
const ObjectName = "myobject"

// MyObject is the application object scripts see as myobject.
type MyObject struct {
	logger *zap.Logger
	home   *MyHome
}

// NewMyObject creates an application object drawing on surface.
func NewMyObject(logger *zap.Logger, surface Surface) *MyObject {
	logger = logger.Named("MyObject")
	return &MyObject{
		logger: logger,
		home:   &MyHome{logger: logger.Named("MyHome"), surface: surface},
	}
}

func (o *MyObject) ScriptMethods() []string {
	return []string{"DoLog", "GetMessage", "GetMyHome"}
}

// DoLog writes msg to the host log.
func (o *MyObject) DoLog(msg string) {
	o.logger.Info(msg)
}

// GetMessage returns a fixed greeting from the host.
func (o *MyObject) GetMessage() string {
	return "This is a Go string"
}

// GetMyHome returns the drawable home surface.
func (o *MyObject) GetMyHome() *MyHome {
	return o.home
}

// MyHome is the drawable-surface handle returned by myobject.getMyHome().
type MyHome struct {
	logger  *zap.Logger
	surface Surface
}

func (h *MyHome) ScriptMethods() []string {
	return []string{"PrintRect", "GetMessage"}
}

// PrintRect draws the rectangle (x0, y0)-(x1, y1).
func (h *MyHome) PrintRect(x0, y0, x1, y1 int) {
	h.surface.DrawRect(Rect{X0: x0, Y0: y0, X1: x1, Y1: y1})
}

// GetMessage returns a fixed greeting from the home surface.
func (h *MyHome) GetMessage() string {
	return "This is a Go string from MyHome"
}

// Surface returns the surface rectangles are drawn on.
func (h *MyHome) Surface() Surface {
	return h.surface
}

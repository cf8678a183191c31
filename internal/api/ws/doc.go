// Package ws streams adb log entries to websocket clients as they are
// published, encoded as JSON Message frames.
package ws

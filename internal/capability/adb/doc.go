// Package adb implements the script logging capability.
//
// Scripts call adb.info(...) and adb.error(...) with any number of
// arguments. Each call becomes one zap entry on the "adb" logger and one
// Entry published to a Sink, normally the Hub that backs the /logs API and
// the websocket stream.
package adb

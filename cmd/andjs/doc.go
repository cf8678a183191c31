// Command andjs runs JavaScript against the native bindings.
//
// Usage:
//
//	andjs -sample                 run the embedded sample script
//	andjs -script path/to/main.js run one script and print its result
//	andjs [-manifest host.yaml]   serve the HTTP API
//
// Configuration comes from ANDJS_* environment variables; see
// internal/infrastructure/config.
package main

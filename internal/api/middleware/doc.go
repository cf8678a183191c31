// Package middleware provides the gin middleware in front of the script
// API: CORS and per-client rate limiting.
package middleware

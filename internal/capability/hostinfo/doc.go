// Package hostinfo exposes the andjs global, which lets scripts ask the
// host for its version and the names of its installed bindings.
package hostinfo

// Package config loads host configuration from the environment.
//
// Every field has a default, so an empty environment yields a working
// host: port 8000, 5s script timeout, a pool of four runtimes and the
// AES-128-CTR-HMAC-SHA256 sealing scheme.
package config

// Package server assembles the andjs HTTP service: it loads the manifest,
// builds the script host pool, and mounts the API, log stream and metrics
// routes on a gin router.
package server

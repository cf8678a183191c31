/*
Package http implements the script API handlers.

Routes (registered by the server package):

	GET  /health        pool and request statistics
	GET  /bindings      globals available to scripts
	POST /scripts/run   {"name": "main.js", "source": "..."}
	POST /scripts/file  {"path": "startup/main.js"}, relative to the script root
	GET  /logs?limit=n  most recent adb entries

Script exceptions answer 422 with the script error and the partial result.
Timeouts answer 408; an exhausted or closed pool answers 503.
*/
package http

// Package manifest reads the host manifest.
//
// A manifest selects the optional capability groups, the JSCrypto scheme,
// the host objects to inject and the startup scripts:
//
//	name: demo
//	capabilities: [jscrypto, host]
//	crypto:
//	  scheme: aes-128-ctr-hmac-sha256
//	objects:
//	  - name: myobject
//	    kind: demo
//	startup:
//	  - startup/**/*.js
//
// The same structure may be written as TOML. Omitted capabilities and objects
// fall back to Default.
package manifest

// Package scripts loads script sources from disk.
//
// A Loader is rooted at the configured script directory. Load accepts
// .js, .mjs and .cjs files, optionally compressed as .gz or .zst, and rejects
// anything that is oversized, binary, or not UTF-8 (naming the detected
// charset when it can). Glob walks the root and returns files matching a
// doublestar pattern such as "startup/**/*.js".
package scripts

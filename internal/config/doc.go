// Package config loads, normalizes, and validates tornedge configuration.
//
// Configuration is read from TOML. Load falls back to built-in defaults when
// no file exists, expands "~" in paths, and rejects unusable values before
// the server or CLI start working.
package config

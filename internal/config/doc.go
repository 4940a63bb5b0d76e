// Package config loads, normalizes, and validates the sdrprep TOML
// configuration. Path fields are expanded (including ~) before use and the
// returned Config is safe to share read-only across components.
package config

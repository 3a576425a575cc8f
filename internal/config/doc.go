// Package config loads, normalizes, and validates the splice TOML
// configuration.
package config

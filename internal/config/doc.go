// Package config builds the immutable updater settings from the environment
// and an optional YAML or TOML settings file, and validates them once at
// startup.
//
// Precedence is defaults, then the settings file, then environment variables.
package config

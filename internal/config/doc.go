// Package config loads, validates, and normalizes the TOML configuration
// shared by the daemon and the CLI. Defaults live in defaults.go and the
// annotated sample shipped to new installs is embedded from
// sample_config.toml.
package config

// Package config loads the service configuration from defaults, an optional
// YAML or TOML file and environment variables, in that order of precedence.
package config

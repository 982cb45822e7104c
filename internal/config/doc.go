// Package config loads application settings from an optional .env file, an
// optional YAML config file and SCRY_-prefixed environment variables, in
// increasing order of precedence, and validates the result.
package config

// Package config loads the YAML application configuration.
package config

// Package config loads application configuration from defaults, an
// optional YAML file, and COVIDVIEW_* environment variables, and
// resolves the filesystem layout through the Paths type.
package config

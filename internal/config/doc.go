// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// When no path is given, the file is looked up under the XDG config home.
package config

// Package config provides YAML configuration loading, defaulting and
// validation for the editor messaging service.
package config

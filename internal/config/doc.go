// Package config loads and validates replay configuration.
//
// Configuration is YAML with ${VAR} environment expansion. Loading is a
// three-step pipeline: Load (parse), applyDefaults (fill optional fields),
// Validate (reject inconsistent values). CLI flags may override individual
// fields after loading.
package config

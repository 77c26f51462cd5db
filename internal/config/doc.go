// Package config loads and validates the millwatch YAML configuration.
//
// Load(path) parses config.yaml, fills defaults, and rejects structurally
// invalid settings — in particular a health-band table that does not tile
// [0, 1] contiguously, which would otherwise silently misclassify readings.
//
// Watch(ctx, path, onChange) hot-reloads the file via fsnotify. Only the
// health classification policy (bands + failure threshold) is applied live;
// fleet size and sensor ranges require a restart.
package config

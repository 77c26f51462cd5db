// Package simulator generates correlated sensor telemetry for a fixed fleet
// of milling machines.
//
// machine.go holds the per-machine model: a sensor profile (tool wear,
// four baselines, degradation rate) that advances one cycle per reading.
// Wear is monotone except on an explicit maintenance reset; baselines drift
// only every 100th cycle; every emitted value is clamped to the configured
// physical ranges.
//
// fleet.go fans requests out across the ordered machine set and handles
// by-id lookup. Machines accept an injectable timestamp and random source so
// tests are deterministic.
package simulator

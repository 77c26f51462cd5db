// Package metrics exposes service activity counters in the Prometheus text
// exposition format on /metrics: predictions per health status, failed
// predictions, alert-threshold crossings, maintenance resets, and model
// availability.
package metrics

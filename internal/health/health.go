package health

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/millwatch/millwatch/internal/config"
)

// Band is one health-status interval over failure probability. Intervals are
// half-open [Min, Max); the last band in a policy additionally includes its
// Max, so a probability of exactly 1.0 still classifies.
type Band struct {
	Name string
	Min  float64
	Max  float64
}

// Policy is the complete classification configuration: the ordered band
// table plus the independent alert threshold.
type Policy struct {
	Bands []Band

	// Threshold is the failure probability at or above which the alert flag
	// is raised. It is evaluated separately from the band table — the two
	// stay consistent by configuration convention, not by code.
	Threshold float64
}

// PolicyFromConfig maps the monitoring section of the service config to a
// Policy. The config loader has already validated that the bands tile [0, 1].
func PolicyFromConfig(mc config.MonitoringConfig) Policy {
	bands := make([]Band, 0, len(mc.HealthBands))
	for _, b := range mc.HealthBands {
		bands = append(bands, Band{Name: b.Name, Min: b.Min, Max: b.Max})
	}
	return Policy{Bands: bands, Threshold: mc.FailureThreshold}
}

// FallbackStatus is returned when a probability matches no configured band.
// With a validated band table this only happens for values outside [0, 1] —
// a broken classifier or a live policy swap gone wrong. Failing toward
// "maintenance required" pages a human instead of hiding a failure, and the
// path logs loudly so the misconfiguration is visible.
const FallbackStatus = "MAINTENANCE REQUIRED"

// Classifier maps a failure probability to a discrete health-status band and
// an alert flag. The policy can be swapped atomically at runtime (config
// hot-reload); Classify is safe for concurrent use.
type Classifier struct {
	mu     sync.RWMutex
	policy Policy
}

// New returns a Classifier using the given policy.
func New(p Policy) *Classifier {
	return &Classifier{policy: p}
}

// Update replaces the policy atomically. In-flight classifications finish
// under the policy they already resolved.
func (c *Classifier) Update(p Policy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.policy = p
	slog.Info("health: policy updated", "bands", len(p.Bands), "threshold", p.Threshold)
}

// Threshold returns the current alert threshold.
func (c *Classifier) Threshold() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.policy.Threshold
}

// Classify maps a failure probability to its health-status band and alert
// flag. Interior boundaries belong to the higher band: exactly 0.3 is RISK,
// exactly 0.6 is MAINTENANCE REQUIRED. The alert flag is computed from the
// threshold alone, independent of which band matched.
func (c *Classifier) Classify(p float64) (status string, alert bool) {
	c.mu.RLock()
	policy := c.policy
	c.mu.RUnlock()

	alert = p >= policy.Threshold

	for i, b := range policy.Bands {
		last := i == len(policy.Bands)-1
		if p >= b.Min && (p < b.Max || (last && p == b.Max)) {
			return statusLabel(b.Name), alert
		}
	}

	slog.Warn("health: probability matched no configured band — using fallback",
		"probability", p, "fallback", FallbackStatus)
	return FallbackStatus, alert
}

// statusLabel renders a configured band name as the reported status string:
// upper-cased with underscores as spaces ("maintenance_required" →
// "MAINTENANCE REQUIRED").
func statusLabel(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "_", " "))
}

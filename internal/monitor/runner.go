package monitor

import (
	"context"
	"log/slog"
	"time"
)

// Run drives the continuous simulation loop: every interval it predicts the
// whole fleet, which feeds the verdict store, the alert engine, and the
// telemetry counters. Run blocks until ctx is cancelled; cancellation is
// observed between ticks, never mid-batch.
//
// Errors fail the tick, not the loop — a transient model or pipeline fault
// is logged and the next tick retries from scratch.
func (c *Coordinator) Run(ctx context.Context, interval time.Duration) {
	slog.Info("monitor: simulation loop starting",
		"interval", interval, "machines", c.fleet.Count())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("monitor: simulation loop stopped")
			return
		case <-ticker.C:
			results, err := c.PredictFleet()
			if err != nil {
				slog.Warn("monitor: fleet prediction failed", "err", err)
				continue
			}
			var alerts int
			for _, r := range results {
				if r.Alert {
					alerts++
				}
			}
			slog.Debug("monitor: tick complete", "machines", len(results), "alerts", alerts)
		}
	}
}

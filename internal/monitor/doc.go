// Package monitor orchestrates the prediction pipeline.
//
// Coordinator wires the fleet simulator, the frozen classifier, and the
// health bander together per request: generate reading(s) → preprocess →
// predict → band, stamping one shared timestamp per fleet-wide batch.
// Verdicts fan out to the attached store, alert engine, and telemetry
// counters. Run adds the continuous tick loop on top, cancellable between
// ticks.
package monitor

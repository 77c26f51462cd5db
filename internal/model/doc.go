// Package model loads and serves the frozen failure classifier.
//
// The artifact directory is produced by an offline training pipeline and is
// read-only to this service: model_metadata.json (name, training date,
// metrics, ordered feature columns), <model_name>.json (a flattened decision
// tree ensemble), and label_encoder.json (the fitted machine-type
// vocabulary). Load reads all three before any prediction is answered.
//
// Handle is the guarded slot callers resolve the artifact through; until a
// load succeeds every resolution returns ErrModelUnavailable.
package model

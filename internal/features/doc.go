// Package features turns raw sensor readings into the fixed-order numeric
// vectors the frozen classifier expects.
//
// Transform derives Temp_diff and Power, encodes the machine type through
// the artifact's fitted encoder, and assembles the vector strictly in the
// column order recorded in the model metadata. SensorPayload normalizes the
// two accepted external field spellings into the canonical Reading before
// anything reaches the core.
package features

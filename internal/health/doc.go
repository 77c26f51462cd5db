// Package health maps failure probabilities to named status bands and an
// independent alert flag.
//
// Bands are half-open intervals with the last band inclusive at its upper
// bound, so Classify is total over [0, 1]. Out-of-range probabilities fall
// back to MAINTENANCE REQUIRED with a logged warning — deliberate policy,
// see DESIGN.md.
package health

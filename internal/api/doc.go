// Package api implements the HTTP REST API for millwatch.
//
// New(coordinator, store, alerts) returns an http.Handler that serves:
//
//	GET  /api/v1/health                       service + fleet health summary
//	GET  /api/v1/model/info                   loaded model metadata
//	POST /api/v1/predict                      classify one external reading
//	POST /api/v1/predict/batch                classify several external readings
//	GET  /api/v1/simulate-and-predict         fresh fleet readings + verdicts
//	GET  /api/v1/machines/status              fleet profile summaries
//	GET  /api/v1/machines/{id}/predict        fresh reading + verdict for one machine
//	POST /api/v1/machines/{id}/maintenance    reset one machine's tool wear
//	GET  /api/v1/alerts                       firing and recently resolved alerts
//
// External readings accept both the bracketed-unit and normalized field
// spellings; bounds are validated before anything reaches the pipeline.
// CORS and optional API-key middleware wrap the handler in cmd/millwatch.
package api

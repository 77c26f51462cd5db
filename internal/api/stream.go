package api

import (
	"time"

	"github.com/millwatch/millwatch/internal/store"
)

// BuildStream assembles the latest fleet verdicts from the store into the
// envelope shared by the WebSocket hub and the REST dashboard endpoint.
func BuildStream(st *store.Store) StreamResponse {
	entries := st.List()
	out := make([]PredictionResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toPredictionResponse(e.Verdict))
	}
	return StreamResponse{
		Predictions: out,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/millwatch/millwatch/internal/alerts"
	"github.com/millwatch/millwatch/internal/features"
	"github.com/millwatch/millwatch/internal/model"
	"github.com/millwatch/millwatch/internal/monitor"
	"github.com/millwatch/millwatch/internal/simulator"
	"github.com/millwatch/millwatch/internal/store"
)

// Handler is the HTTP handler for all /api/v1/* endpoints.
// It drives the monitoring coordinator and reads cached verdicts from the
// store.
type Handler struct {
	coord    *monitor.Coordinator
	store    *store.Store
	alerts   *alerts.Engine
	validate *validator.Validate
	mux      *http.ServeMux
}

// New creates a Handler wired to its collaborators and registers all routes.
func New(coord *monitor.Coordinator, st *store.Store, ae *alerts.Engine) http.Handler {
	h := &Handler{
		coord:    coord,
		store:    st,
		alerts:   ae,
		validate: validator.New(),
		mux:      http.NewServeMux(),
	}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/model/info", h.modelInfo)
	h.mux.HandleFunc("/api/v1/predict", h.predict)
	h.mux.HandleFunc("/api/v1/predict/batch", h.predictBatch)
	h.mux.HandleFunc("/api/v1/simulate-and-predict", h.simulateAndPredict)
	h.mux.HandleFunc("/api/v1/machines/", h.machines) // subtree — extracts {id}
	h.mux.HandleFunc("/api/v1/alerts", h.listAlerts)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health — model availability and the band
// breakdown of the latest fleet verdicts.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := HealthResponse{
		Status:       "ok",
		ModelLoaded:  h.coord.ModelLoaded(),
		MachineCount: len(h.coord.FleetStatus()),
	}
	if !resp.ModelLoaded {
		resp.Status = "degraded"
	}

	for _, e := range h.store.List() {
		switch e.Verdict.HealthStatus {
		case "HEALTHY":
			resp.HealthyCount++
		case "RISK":
			resp.RiskCount++
		default:
			resp.MaintenanceCount++
		}
		if e.Verdict.Alert {
			resp.AlertCount++
		}
	}

	jsonResp(w, http.StatusOK, resp)
}

// modelInfo returns GET /api/v1/model/info — the loaded model's metadata.
func (h *Handler) modelInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	meta, err := h.coord.ModelInfo()
	if err != nil {
		h.writeErr(w, err)
		return
	}

	jsonResp(w, http.StatusOK, ModelInfoResponse{
		ModelName:      meta.ModelName,
		TrainingDate:   meta.TrainingDate,
		Metrics:        meta.Metrics,
		FeatureColumns: meta.FeatureColumns,
		Status:         "loaded",
	})
}

// predict handles POST /api/v1/predict — classify one manually supplied reading.
func (h *Handler) predict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var payload features.SensorPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		jsonErr(w, http.StatusBadRequest, "malformed JSON body: "+err.Error())
		return
	}

	res, err := h.predictPayload(&payload)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, toPredictionResponse(res))
}

// predictBatch handles POST /api/v1/predict/batch — classify several
// manually supplied readings in one call.
func (h *Handler) predictBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		Machines []features.SensorPayload `json:"machines"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonErr(w, http.StatusBadRequest, "malformed JSON body: "+err.Error())
		return
	}
	if len(body.Machines) == 0 {
		jsonErr(w, http.StatusBadRequest, "machines list must not be empty")
		return
	}

	out := make([]PredictionResponse, 0, len(body.Machines))
	for i := range body.Machines {
		res, err := h.predictPayload(&body.Machines[i])
		if err != nil {
			h.writeErr(w, err)
			return
		}
		out = append(out, toPredictionResponse(res))
	}
	jsonResp(w, http.StatusOK, out)
}

// simulateAndPredict handles GET /api/v1/simulate-and-predict — the main
// dashboard endpoint: one fresh reading and verdict per machine.
func (h *Handler) simulateAndPredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	results, err := h.coord.PredictFleet()
	if err != nil {
		h.writeErr(w, err)
		return
	}

	out := make([]PredictionResponse, 0, len(results))
	for _, res := range results {
		out = append(out, toPredictionResponse(res))
	}
	jsonResp(w, http.StatusOK, out)
}

// machines routes the /api/v1/machines/ subtree:
//
//	GET  /api/v1/machines/status
//	GET  /api/v1/machines/{id}/predict
//	POST /api/v1/machines/{id}/maintenance
func (h *Handler) machines(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/machines/")

	if rest == "status" {
		if r.Method != http.MethodGet {
			jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		jsonResp(w, http.StatusOK, h.coord.FleetStatus())
		return
	}

	id, action, ok := strings.Cut(rest, "/")
	if !ok || id == "" {
		jsonErr(w, http.StatusNotFound, "not found")
		return
	}

	switch action {
	case "predict":
		if r.Method != http.MethodGet {
			jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		res, err := h.coord.PredictOne(id)
		if err != nil {
			h.writeErr(w, err)
			return
		}
		jsonResp(w, http.StatusOK, toPredictionResponse(res))

	case "maintenance":
		if r.Method != http.MethodPost {
			jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if h.coord.Maintain(id) {
			jsonResp(w, http.StatusOK, MaintenanceResponse{
				Success:   true,
				Message:   "Maintenance performed on " + id,
				MachineID: id,
			})
			return
		}
		// Unknown machine is an ordinary negative result here, not an error.
		jsonResp(w, http.StatusOK, MaintenanceResponse{
			Success: false,
			Message: "Machine " + id + " not found",
		})

	default:
		jsonErr(w, http.StatusNotFound, "not found")
	}
}

// listAlerts returns GET /api/v1/alerts — firing and recently resolved alerts.
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.alerts.Active())
}

// --- helpers ----------------------------------------------------------------

// predictPayload normalizes, bounds-checks, and classifies one external reading.
func (h *Handler) predictPayload(p *features.SensorPayload) (monitor.PredictionResult, error) {
	reading, err := p.Normalize(time.Now())
	if err != nil {
		return monitor.PredictionResult{}, err
	}

	if err := h.validate.Struct(canonicalReading{
		Type:        reading.Type,
		AirTemp:     reading.AirTemp,
		ProcessTemp: reading.ProcessTemp,
		Speed:       reading.RotationalSpeed,
		Torque:      reading.Torque,
		ToolWear:    reading.ToolWear,
	}); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return monitor.PredictionResult{}, &features.InvalidInputError{
				Field:  verrs[0].Field(),
				Reason: "value out of accepted bounds",
			}
		}
		return monitor.PredictionResult{}, err
	}

	return h.coord.PredictReading(reading)
}

// writeErr maps pipeline errors to HTTP status codes.
func (h *Handler) writeErr(w http.ResponseWriter, err error) {
	var invalid *features.InvalidInputError
	switch {
	case errors.As(err, &invalid):
		jsonErr(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, simulator.ErrMachineNotFound):
		jsonErr(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrModelUnavailable):
		jsonErr(w, http.StatusServiceUnavailable, err.Error())
	default:
		jsonErr(w, http.StatusInternalServerError, err.Error())
	}
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

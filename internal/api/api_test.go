package api

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/millwatch/millwatch/internal/alerts"
	"github.com/millwatch/millwatch/internal/config"
	"github.com/millwatch/millwatch/internal/health"
	"github.com/millwatch/millwatch/internal/model"
	"github.com/millwatch/millwatch/internal/monitor"
	"github.com/millwatch/millwatch/internal/simulator"
	"github.com/millwatch/millwatch/internal/store"
)

// writeArtifact lays down a single decision stump on tool wear at 150
// minutes: at or below the split the failure probability is 0.1, above it 0.8.
func writeArtifact(t *testing.T, dir string) {
	t.Helper()
	files := map[string]string{
		"model_metadata.json": `{
			"model_name": "failure_forest",
			"training_date": "2026-01-15",
			"metrics": {"accuracy": 0.97},
			"feature_columns": ["Air_temperature_K", "Process_temperature_K",
				"Rotational_speed_rpm", "Torque_Nm", "Tool_wear_min",
				"Type_encoded", "Temp_diff", "Power"]
		}`,
		"failure_forest.json": `{
			"trees": [{
				"feature": [4, -1, -1],
				"threshold": [150, 0, 0],
				"left": [1, 0, 0],
				"right": [2, 0, 0],
				"value": [[0, 0], [9, 1], [2, 8]]
			}]
		}`,
		"label_encoder.json": `{"classes": ["H", "L", "M"]}`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

type testEnv struct {
	handler http.Handler
	coord   *monitor.Coordinator
	store   *store.Store
	models  *model.Handle
}

func newTestEnv(t *testing.T, loaded bool) *testEnv {
	t.Helper()

	cfg := config.Defaults()
	fleet := simulator.NewFleet(5, cfg.Sensors, rand.New(rand.NewSource(7)))
	hc := health.New(health.PolicyFromConfig(cfg.Monitoring))
	st := store.New(time.Minute)
	engine := alerts.New(config.AlertsConfig{})
	models := model.NewHandle()
	if loaded {
		dir := t.TempDir()
		writeArtifact(t, dir)
		art, err := model.Load(dir)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		models.Set(art)
	}

	coord := monitor.New(fleet, models, hc, monitor.WithVerdictSink(st))
	return &testEnv{
		handler: New(coord, st, engine),
		coord:   coord,
		store:   st,
		models:  models,
	}
}

func (env *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return v
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, true)

	w := env.do(t, http.MethodGet, "/api/v1/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	resp := decode[HealthResponse](t, w)
	if resp.Status != "ok" || !resp.ModelLoaded {
		t.Errorf("got status=%q model_loaded=%v", resp.Status, resp.ModelLoaded)
	}
	if resp.MachineCount != 5 {
		t.Errorf("machine count: got %d, want 5", resp.MachineCount)
	}

	// Populate the verdict store and check the band breakdown.
	if _, err := env.coord.PredictFleet(); err != nil {
		t.Fatalf("PredictFleet: %v", err)
	}
	resp = decode[HealthResponse](t, env.do(t, http.MethodGet, "/api/v1/health", ""))
	if resp.HealthyCount != 3 || resp.MaintenanceCount != 2 || resp.AlertCount != 2 {
		t.Errorf("band breakdown: healthy=%d maintenance=%d alerts=%d, want 3/2/2",
			resp.HealthyCount, resp.MaintenanceCount, resp.AlertCount)
	}
}

func TestHealthEndpoint_Degraded(t *testing.T) {
	env := newTestEnv(t, false)

	resp := decode[HealthResponse](t, env.do(t, http.MethodGet, "/api/v1/health", ""))
	if resp.Status != "degraded" || resp.ModelLoaded {
		t.Errorf("got status=%q model_loaded=%v, want degraded/false", resp.Status, resp.ModelLoaded)
	}
}

func TestModelInfoEndpoint(t *testing.T) {
	env := newTestEnv(t, true)

	w := env.do(t, http.MethodGet, "/api/v1/model/info", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	resp := decode[ModelInfoResponse](t, w)
	if resp.ModelName != "failure_forest" || resp.Status != "loaded" {
		t.Errorf("got name=%q status=%q", resp.ModelName, resp.Status)
	}
	if len(resp.FeatureColumns) != 8 {
		t.Errorf("feature columns: got %d, want 8", len(resp.FeatureColumns))
	}
}

func TestModelInfoEndpoint_Unavailable(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodGet, "/api/v1/model/info", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", w.Code)
	}
}

func TestPredictEndpoint(t *testing.T) {
	env := newTestEnv(t, true)

	body := `{
		"machine_id": "M001",
		"Type": "M",
		"Air temperature [K]": 298.5,
		"Process temperature [K]": 308.9,
		"Rotational speed [rpm]": 1500,
		"Torque [Nm]": 42.0,
		"Tool wear [min]": 200
	}`
	w := env.do(t, http.MethodPost, "/api/v1/predict", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	resp := decode[PredictionResponse](t, w)
	if resp.FailureProbability != 0.8 {
		t.Errorf("failure probability: got %v, want 0.8", resp.FailureProbability)
	}
	if resp.HealthStatus != "MAINTENANCE REQUIRED" || !resp.Alert {
		t.Errorf("got status=%q alert=%v", resp.HealthStatus, resp.Alert)
	}
	if resp.Prediction != 1 {
		t.Errorf("prediction: got %d, want 1", resp.Prediction)
	}
	if resp.SensorData.ToolWear != 200 {
		t.Errorf("echoed tool wear: got %d, want 200", resp.SensorData.ToolWear)
	}
}

func TestPredictEndpoint_NormalizedFieldNames(t *testing.T) {
	env := newTestEnv(t, true)

	// Underscore spelling must be accepted interchangeably.
	body := `{
		"Type": "L",
		"Air_temperature_K": 298.5,
		"Process_temperature_K": 308.9,
		"Rotational_speed_rpm": 1500,
		"Torque_Nm": 42.0,
		"Tool_wear_min": 30
	}`
	w := env.do(t, http.MethodPost, "/api/v1/predict", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	resp := decode[PredictionResponse](t, w)
	if resp.HealthStatus != "HEALTHY" {
		t.Errorf("health status: got %q, want HEALTHY", resp.HealthStatus)
	}
	if resp.MachineID != "Unknown" {
		t.Errorf("default machine id: got %q, want Unknown", resp.MachineID)
	}
}

func TestPredictEndpoint_Errors(t *testing.T) {
	env := newTestEnv(t, true)

	valid := map[string]interface{}{
		"Type":                    "M",
		"Air temperature [K]":     298.5,
		"Process temperature [K]": 308.9,
		"Rotational speed [rpm]":  1500,
		"Torque [Nm]":             42.0,
		"Tool wear [min]":         100,
	}
	mutate := func(fn func(m map[string]interface{})) string {
		m := make(map[string]interface{}, len(valid))
		for k, v := range valid {
			m[k] = v
		}
		fn(m)
		b, _ := json.Marshal(m)
		return string(b)
	}

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"malformed json", `{"Type": `, http.StatusBadRequest},
		{"missing field", mutate(func(m map[string]interface{}) { delete(m, "Torque [Nm]") }), http.StatusBadRequest},
		{"bad type", mutate(func(m map[string]interface{}) { m["Type"] = "X" }), http.StatusBadRequest},
		{"air temp out of bounds", mutate(func(m map[string]interface{}) { m["Air temperature [K]"] = 350.0 }), http.StatusBadRequest},
		{"tool wear out of bounds", mutate(func(m map[string]interface{}) { m["Tool wear [min]"] = 999 }), http.StatusBadRequest},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/predict", tt.body)
			if w.Code != tt.wantCode {
				t.Errorf("status: got %d, want %d (body %s)", w.Code, tt.wantCode, w.Body.String())
			}
			resp := decode[errorResponse](t, w)
			if resp.Error == "" {
				t.Error("error body has no message")
			}
		})
	}
}

func TestPredictEndpoint_ModelUnavailable(t *testing.T) {
	env := newTestEnv(t, false)

	body := `{
		"Type": "M",
		"Air temperature [K]": 298.5,
		"Process temperature [K]": 308.9,
		"Rotational speed [rpm]": 1500,
		"Torque [Nm]": 42.0,
		"Tool wear [min]": 100
	}`
	w := env.do(t, http.MethodPost, "/api/v1/predict", body)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", w.Code)
	}
}

func TestPredictBatchEndpoint(t *testing.T) {
	env := newTestEnv(t, true)

	body := `{"machines": [
		{"Type": "L", "Air temperature [K]": 298.5, "Process temperature [K]": 308.9,
		 "Rotational speed [rpm]": 1500, "Torque [Nm]": 42.0, "Tool wear [min]": 30},
		{"Type": "H", "Air temperature [K]": 300.1, "Process temperature [K]": 310.2,
		 "Rotational speed [rpm]": 1400, "Torque [Nm]": 55.0, "Tool wear [min]": 210}
	]}`
	w := env.do(t, http.MethodPost, "/api/v1/predict/batch", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	resp := decode[[]PredictionResponse](t, w)
	if len(resp) != 2 {
		t.Fatalf("results: got %d, want 2", len(resp))
	}
	if resp[0].HealthStatus != "HEALTHY" || resp[1].HealthStatus != "MAINTENANCE REQUIRED" {
		t.Errorf("statuses: got %q, %q", resp[0].HealthStatus, resp[1].HealthStatus)
	}

	w = env.do(t, http.MethodPost, "/api/v1/predict/batch", `{"machines": []}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty batch: got %d, want 400", w.Code)
	}
}

func TestSimulateAndPredictEndpoint(t *testing.T) {
	env := newTestEnv(t, true)

	w := env.do(t, http.MethodGet, "/api/v1/simulate-and-predict", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	resp := decode[[]PredictionResponse](t, w)
	if len(resp) != 5 {
		t.Fatalf("results: got %d, want 5", len(resp))
	}
	for _, p := range resp {
		if _, err := time.Parse(time.RFC3339, p.Timestamp); err != nil {
			t.Errorf("%s: timestamp %q not RFC3339: %v", p.MachineID, p.Timestamp, err)
		}
	}

	// The fleet endpoint records its verdicts.
	if env.store.Count() != 5 {
		t.Errorf("store count: got %d, want 5", env.store.Count())
	}
}

func TestMachineStatusEndpoint(t *testing.T) {
	env := newTestEnv(t, true)

	w := env.do(t, http.MethodGet, "/api/v1/machines/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	resp := decode[[]simulator.MachineSummary](t, w)
	if len(resp) != 5 {
		t.Fatalf("machines: got %d, want 5", len(resp))
	}
	if resp[0].MachineID != "M001" {
		t.Errorf("first machine: got %q", resp[0].MachineID)
	}
}

func TestMachinePredictEndpoint(t *testing.T) {
	env := newTestEnv(t, true)

	w := env.do(t, http.MethodGet, "/api/v1/machines/M002/predict", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	resp := decode[PredictionResponse](t, w)
	if resp.MachineID != "M002" {
		t.Errorf("machine id: got %q", resp.MachineID)
	}

	w = env.do(t, http.MethodGet, "/api/v1/machines/M099/predict", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown machine: got %d, want 404", w.Code)
	}
}

func TestMaintenanceEndpoint(t *testing.T) {
	env := newTestEnv(t, true)

	w := env.do(t, http.MethodPost, "/api/v1/machines/M001/maintenance", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	resp := decode[MaintenanceResponse](t, w)
	if !resp.Success || resp.MachineID != "M001" {
		t.Errorf("got success=%v machine_id=%q", resp.Success, resp.MachineID)
	}

	// Unknown machine: still 200, success false.
	w = env.do(t, http.MethodPost, "/api/v1/machines/M099/maintenance", "")
	if w.Code != http.StatusOK {
		t.Fatalf("unknown machine status: got %d, want 200", w.Code)
	}
	resp = decode[MaintenanceResponse](t, w)
	if resp.Success {
		t.Error("success: got true for unknown machine")
	}
}

func TestAlertsEndpoint(t *testing.T) {
	env := newTestEnv(t, true)

	w := env.do(t, http.MethodGet, "/api/v1/alerts", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	resp := decode[[]alerts.Alert](t, w)
	if len(resp) != 0 {
		t.Errorf("alerts: got %d, want 0", len(resp))
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, true)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/health"},
		{http.MethodGet, "/api/v1/predict"},
		{http.MethodPost, "/api/v1/simulate-and-predict"},
		{http.MethodGet, "/api/v1/machines/M001/maintenance"},
		{http.MethodPost, "/api/v1/machines/M001/predict"},
	}
	for _, tt := range tests {
		w := env.do(t, tt.method, tt.path, "")
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: got %d, want 405", tt.method, tt.path, w.Code)
		}
	}
}

func TestSensorDataFieldNames(t *testing.T) {
	env := newTestEnv(t, true)

	w := env.do(t, http.MethodGet, "/api/v1/machines/M001/predict", "")
	var raw map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	sensor, ok := raw["sensor_data"].(map[string]interface{})
	if !ok {
		t.Fatalf("no sensor_data object in %v", raw)
	}
	for _, key := range []string{
		"Air temperature [K]", "Process temperature [K]",
		"Rotational speed [rpm]", "Torque [Nm]", "Tool wear [min]",
	} {
		if _, ok := sensor[key]; !ok {
			t.Errorf("sensor_data missing %q", key)
		}
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	env := newTestEnv(t, true)
	protected := APIKey("apikey", "x-api-key", "secret", env.handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	protected.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("missing key: got %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("x-api-key", "wrong")
	w = httptest.NewRecorder()
	protected.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: got %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("x-api-key", "secret")
	w = httptest.NewRecorder()
	protected.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("correct key: got %d, want 200", w.Code)
	}

	// Auth disabled: pass-through.
	open := APIKey("none", "x-api-key", "secret", env.handler)
	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w = httptest.NewRecorder()
	open.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("auth disabled: got %d, want 200", w.Code)
	}
}

func TestCORSMiddleware(t *testing.T) {
	env := newTestEnv(t, true)
	wrapped := CORS(env.handler)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("preflight: got %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow origin: got %q", got)
	}
}

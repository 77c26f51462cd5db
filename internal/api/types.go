package api

import (
	"time"

	"github.com/millwatch/millwatch/internal/monitor"
	"github.com/millwatch/millwatch/internal/simulator"
)

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status           string `json:"status"`
	ModelLoaded      bool   `json:"model_loaded"`
	MachineCount     int    `json:"machine_count"`
	HealthyCount     int    `json:"healthy_count"`
	RiskCount        int    `json:"risk_count"`
	MaintenanceCount int    `json:"maintenance_count"`
	AlertCount       int    `json:"alert_count"`
}

// SensorDataResponse echoes the sensor snapshot a verdict was derived from,
// using the bracketed-unit field naming of the training dataset.
type SensorDataResponse struct {
	MachineID     string  `json:"machine_id"`
	Type          string  `json:"Type"`
	AirTemp       float64 `json:"Air temperature [K]"`
	ProcessTemp   float64 `json:"Process temperature [K]"`
	Speed         int     `json:"Rotational speed [rpm]"`
	Torque        float64 `json:"Torque [Nm]"`
	ToolWear      int     `json:"Tool wear [min]"`
	OperatingMode string  `json:"operating_mode"`
	Cycles        int     `json:"cycles"`
}

// PredictionResponse is one classified reading in prediction endpoints.
type PredictionResponse struct {
	MachineID          string             `json:"machine_id"`
	Prediction         int                `json:"prediction"`
	FailureProbability float64            `json:"failure_probability"`
	NormalProbability  float64            `json:"normal_probability"`
	HealthStatus       string             `json:"health_status"`
	Alert              bool               `json:"alert"`
	SensorData         SensorDataResponse `json:"sensor_data"`
	Timestamp          string             `json:"timestamp"` // RFC3339
}

// MaintenanceResponse is the payload for POST /api/v1/machines/{id}/maintenance.
type MaintenanceResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	MachineID string `json:"machine_id,omitempty"`
}

// ModelInfoResponse is the payload for GET /api/v1/model/info.
type ModelInfoResponse struct {
	ModelName      string             `json:"model_name"`
	TrainingDate   string             `json:"training_date"`
	Metrics        map[string]float64 `json:"metrics"`
	FeatureColumns []string           `json:"feature_columns"`
	Status         string             `json:"status"`
}

// StreamResponse is the envelope broadcast to WebSocket clients and returned
// by GET /api/v1/simulate-and-predict.
type StreamResponse struct {
	Predictions []PredictionResponse `json:"predictions"`
	GeneratedAt string               `json:"generated_at"` // RFC3339
}

type errorResponse struct {
	Error string `json:"error"`
}

// canonicalReading carries the bounds validation for manual predictions.
// The limits mirror the plausibility window the API has always accepted —
// wider than the simulator's physical ranges so borderline external
// readings still classify.
type canonicalReading struct {
	Type        string  `validate:"required,oneof=L M H"`
	AirTemp     float64 `validate:"gte=290,lte=310"`
	ProcessTemp float64 `validate:"gte=300,lte=320"`
	Speed       int     `validate:"gte=1000,lte=3000"`
	Torque      float64 `validate:"gte=0,lte=100"`
	ToolWear    int     `validate:"gte=0,lte=300"`
}

// toPredictionResponse maps a verdict to its JSON representation.
func toPredictionResponse(v monitor.PredictionResult) PredictionResponse {
	return PredictionResponse{
		MachineID:          v.MachineID,
		Prediction:         v.Prediction,
		FailureProbability: v.FailureProbability,
		NormalProbability:  v.NormalProbability,
		HealthStatus:       v.HealthStatus,
		Alert:              v.Alert,
		SensorData:         toSensorData(v.Sensor),
		Timestamp:          v.Timestamp.UTC().Format(time.RFC3339),
	}
}

func toSensorData(r simulator.Reading) SensorDataResponse {
	return SensorDataResponse{
		MachineID:     r.MachineID,
		Type:          r.Type,
		AirTemp:       r.AirTemp,
		ProcessTemp:   r.ProcessTemp,
		Speed:         r.RotationalSpeed,
		Torque:        r.Torque,
		ToolWear:      r.ToolWear,
		OperatingMode: r.OperatingMode,
		Cycles:        r.Cycles,
	}
}

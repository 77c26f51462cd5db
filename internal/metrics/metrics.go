package metrics

import (
	"log/slog"
	"net/http"
	"sort"
	"sync"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Metric names exposed on /metrics.
const (
	namePredictions      = "millwatch_predictions_total"
	namePredictionErrors = "millwatch_prediction_errors_total"
	nameAlertVerdicts    = "millwatch_alert_verdicts_total"
	nameMaintenance      = "millwatch_maintenance_total"
	nameModelLoaded      = "millwatch_model_loaded"
)

// Registry counts service activity and renders it in the Prometheus text
// exposition format. It implements the coordinator's Telemetry interface
// and http.Handler for the /metrics endpoint.
//
// All methods are safe for concurrent use.
type Registry struct {
	mu sync.Mutex

	predictionsByStatus map[string]float64
	predictionErrors    float64
	alertVerdicts       float64
	maintenance         float64

	modelLoaded func() bool
}

// New creates a Registry. modelLoaded is polled at scrape time to render the
// model availability gauge; pass nil to omit it.
func New(modelLoaded func() bool) *Registry {
	return &Registry{
		predictionsByStatus: make(map[string]float64),
		modelLoaded:         modelLoaded,
	}
}

// PredictionObserved records one classified reading.
func (r *Registry) PredictionObserved(status string, alert bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.predictionsByStatus[status]++
	if alert {
		r.alertVerdicts++
	}
}

// PredictionFailed records one failed prediction request.
func (r *Registry) PredictionFailed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.predictionErrors++
}

// MaintenancePerformed records one successful maintenance reset.
func (r *Registry) MaintenancePerformed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maintenance++
}

// Gather assembles the current counter values into metric families.
func (r *Registry) Gather() []*dto.MetricFamily {
	r.mu.Lock()
	defer r.mu.Unlock()

	predictions := &dto.MetricFamily{
		Name: strPtr(namePredictions),
		Help: strPtr("Classified readings by health status."),
		Type: typePtr(dto.MetricType_COUNTER),
	}
	statuses := make([]string, 0, len(r.predictionsByStatus))
	for s := range r.predictionsByStatus {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)
	for _, s := range statuses {
		predictions.Metric = append(predictions.Metric, &dto.Metric{
			Label:   []*dto.LabelPair{{Name: strPtr("status"), Value: strPtr(s)}},
			Counter: &dto.Counter{Value: floatPtr(r.predictionsByStatus[s])},
		})
	}

	families := []*dto.MetricFamily{
		predictions,
		counterFamily(namePredictionErrors, "Prediction requests that failed.", r.predictionErrors),
		counterFamily(nameAlertVerdicts, "Verdicts that crossed the failure-alert threshold.", r.alertVerdicts),
		counterFamily(nameMaintenance, "Maintenance resets performed.", r.maintenance),
	}

	if r.modelLoaded != nil {
		var loaded float64
		if r.modelLoaded() {
			loaded = 1
		}
		families = append(families, &dto.MetricFamily{
			Name: strPtr(nameModelLoaded),
			Help: strPtr("Whether the model artifact is loaded (1) or not (0)."),
			Type: typePtr(dto.MetricType_GAUGE),
			Metric: []*dto.Metric{
				{Gauge: &dto.Gauge{Value: floatPtr(loaded)}},
			},
		})
	}

	return families
}

// ServeHTTP renders all metric families in the text exposition format.
func (r *Registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	for _, mf := range r.Gather() {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			slog.Warn("metrics: encode failed", "family", mf.GetName(), "err", err)
			return
		}
	}
}

func counterFamily(name, help string, value float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: strPtr(name),
		Help: strPtr(help),
		Type: typePtr(dto.MetricType_COUNTER),
		Metric: []*dto.Metric{
			{Counter: &dto.Counter{Value: floatPtr(value)}},
		},
	}
}

func strPtr(s string) *string { return &s }
func floatPtr(f float64) *float64 { return &f }
func typePtr(t dto.MetricType) *dto.MetricType { return &t }

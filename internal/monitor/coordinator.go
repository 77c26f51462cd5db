package monitor

import (
	"fmt"
	"math"
	"time"

	"github.com/millwatch/millwatch/internal/features"
	"github.com/millwatch/millwatch/internal/health"
	"github.com/millwatch/millwatch/internal/model"
	"github.com/millwatch/millwatch/internal/simulator"
)

// PredictionResult is the annotated verdict for one reading: the classifier
// output, the health band, the alert flag, and the sensor snapshot it was
// derived from. It carries no independent state.
type PredictionResult struct {
	MachineID          string
	Prediction         int
	FailureProbability float64
	NormalProbability  float64
	HealthStatus       string
	Alert              bool
	Sensor             simulator.Reading
	Timestamp          time.Time
}

// VerdictSink receives every fleet verdict the coordinator produces.
// Implemented by the in-memory verdict store.
type VerdictSink interface {
	Put(PredictionResult)
}

// AlertEvaluator is notified of every fleet verdict so threshold rules can
// fire or resolve. Implemented by the alerts engine.
type AlertEvaluator interface {
	Evaluate(PredictionResult)
}

// Telemetry counts coordinator activity for the metrics endpoint.
// Implemented by the metrics registry.
type Telemetry interface {
	PredictionObserved(status string, alert bool)
	PredictionFailed()
	MaintenancePerformed()
}

// Coordinator orchestrates the prediction pipeline: fleet simulation →
// feature preprocessing → frozen classifier → health banding. It holds no
// state of its own beyond references to its collaborators, all injected at
// construction.
type Coordinator struct {
	fleet     *simulator.Fleet
	models    *model.Handle
	health    *health.Classifier
	verdicts  VerdictSink
	alerts    AlertEvaluator
	telemetry Telemetry

	now func() time.Time // injectable for deterministic tests
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithVerdictSink attaches a sink that receives every fleet verdict.
func WithVerdictSink(s VerdictSink) Option {
	return func(c *Coordinator) { c.verdicts = s }
}

// WithAlertEvaluator attaches an evaluator notified of every fleet verdict.
func WithAlertEvaluator(a AlertEvaluator) Option {
	return func(c *Coordinator) { c.alerts = a }
}

// WithTelemetry attaches an activity counter.
func WithTelemetry(t Telemetry) Option {
	return func(c *Coordinator) { c.telemetry = t }
}

// WithClock overrides the coordinator's clock. Tests use a fixed clock.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// New builds a Coordinator over the given collaborators.
func New(fleet *simulator.Fleet, models *model.Handle, hc *health.Classifier, opts ...Option) *Coordinator {
	c := &Coordinator{
		fleet:  fleet,
		models: models,
		health: hc,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PredictFleet generates one reading per machine and classifies each. All
// readings in the batch carry the identical generation timestamp. Verdicts
// are forwarded to the attached sink and alert evaluator.
func (c *Coordinator) PredictFleet() ([]PredictionResult, error) {
	art, err := c.models.Artifact()
	if err != nil {
		return nil, err
	}

	now := c.now()
	readings := c.fleet.GenerateAll(now)

	out := make([]PredictionResult, 0, len(readings))
	for _, r := range readings {
		res, err := c.classify(art, r)
		if err != nil {
			if c.telemetry != nil {
				c.telemetry.PredictionFailed()
			}
			return nil, fmt.Errorf("machine %s: %w", r.MachineID, err)
		}
		c.record(res)
		out = append(out, res)
	}
	return out, nil
}

// PredictOne generates a reading for one machine and classifies it. An
// unknown id surfaces simulator.ErrMachineNotFound.
func (c *Coordinator) PredictOne(machineID string) (PredictionResult, error) {
	art, err := c.models.Artifact()
	if err != nil {
		return PredictionResult{}, err
	}

	r, err := c.fleet.Generate(machineID, c.now())
	if err != nil {
		return PredictionResult{}, err
	}

	res, err := c.classify(art, r)
	if err != nil {
		if c.telemetry != nil {
			c.telemetry.PredictionFailed()
		}
		return PredictionResult{}, err
	}
	c.record(res)
	return res, nil
}

// PredictReading classifies an externally supplied reading. Used for manual
// predictions posted through the API; the verdict is not recorded against
// the fleet.
func (c *Coordinator) PredictReading(r simulator.Reading) (PredictionResult, error) {
	art, err := c.models.Artifact()
	if err != nil {
		return PredictionResult{}, err
	}

	res, err := c.classify(art, r)
	if err != nil {
		if c.telemetry != nil {
			c.telemetry.PredictionFailed()
		}
		return PredictionResult{}, err
	}
	if c.telemetry != nil {
		c.telemetry.PredictionObserved(res.HealthStatus, res.Alert)
	}
	return res, nil
}

// Maintain resets the tool wear of the given machine. It returns false for
// an unknown id — an ordinary negative result, not an error.
func (c *Coordinator) Maintain(machineID string) bool {
	ok := c.fleet.PerformMaintenance(machineID)
	if ok && c.telemetry != nil {
		c.telemetry.MaintenancePerformed()
	}
	return ok
}

// FleetStatus returns the current profile summary of every machine.
func (c *Coordinator) FleetStatus() []simulator.MachineSummary {
	return c.fleet.Machines()
}

// ModelInfo returns the loaded model's metadata, or ErrModelUnavailable.
func (c *Coordinator) ModelInfo() (model.Metadata, error) {
	art, err := c.models.Artifact()
	if err != nil {
		return model.Metadata{}, err
	}
	return art.Meta(), nil
}

// ModelLoaded reports whether the model artifact is available.
func (c *Coordinator) ModelLoaded() bool { return c.models.Loaded() }

// UpdatePolicy swaps the health classification policy atomically. Driven by
// config hot-reload.
func (c *Coordinator) UpdatePolicy(p health.Policy) {
	c.health.Update(p)
}

// classify runs preprocessing and classification for one reading. An
// unexpected panic anywhere in the pipeline is contained here: it fails this
// single request and never crashes the coordinator or touches other
// machines' state.
func (c *Coordinator) classify(art *model.Artifact, r simulator.Reading) (res PredictionResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("prediction pipeline: %v", rec)
		}
	}()

	vec, err := features.Transform(r, art.Encoder(), art.FeatureColumns())
	if err != nil {
		return PredictionResult{}, err
	}

	label, failureProb := art.Predict(vec)
	status, alert := c.health.Classify(failureProb)

	return PredictionResult{
		MachineID:          r.MachineID,
		Prediction:         label,
		FailureProbability: round4(failureProb),
		NormalProbability:  round4(1 - failureProb),
		HealthStatus:       status,
		Alert:              alert,
		Sensor:             r,
		Timestamp:          r.Timestamp,
	}, nil
}

// record forwards a fleet verdict to the attached collaborators.
func (c *Coordinator) record(res PredictionResult) {
	if c.verdicts != nil {
		c.verdicts.Put(res)
	}
	if c.alerts != nil {
		c.alerts.Evaluate(res)
	}
	if c.telemetry != nil {
		c.telemetry.PredictionObserved(res.HealthStatus, res.Alert)
	}
}

// round4 rounds v to four decimal places, the precision verdict
// probabilities are reported at.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

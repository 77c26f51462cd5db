package model

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// File names the artifact directory is expected to contain, by convention
// with the offline training pipeline.
const (
	metadataFile = "model_metadata.json"
	encoderFile  = "label_encoder.json"
)

// Metadata describes the frozen model: which file holds it, when it was
// trained, how it scored, and — critically — the exact feature column order
// it expects. Any column-order mismatch invalidates predictions silently,
// so the order is enforced by contract from this document, never by
// convention in code.
type Metadata struct {
	ModelName      string             `json:"model_name"`
	TrainingDate   string             `json:"training_date"`
	Metrics        map[string]float64 `json:"metrics"`
	FeatureColumns []string           `json:"feature_columns"`
}

// encoderDoc is the on-disk shape of label_encoder.json.
type encoderDoc struct {
	Classes []string `json:"classes"`
}

// Artifact bundles the frozen classifier, the fitted categorical encoder,
// and the training metadata. It is loaded once at startup and shared
// read-only across all prediction calls — nothing in it mutates.
type Artifact struct {
	meta    Metadata
	forest  *Forest
	encoder *Encoder
}

// Load reads the three artifact files from dir. It fails if any file is
// missing or structurally invalid; a partially loaded artifact is never
// returned.
func Load(dir string) (*Artifact, error) {
	var meta Metadata
	if err := readJSON(filepath.Join(dir, metadataFile), &meta); err != nil {
		return nil, fmt.Errorf("model: load metadata: %w", err)
	}
	if meta.ModelName == "" {
		return nil, fmt.Errorf("model: metadata %q has no model_name", metadataFile)
	}
	if len(meta.FeatureColumns) == 0 {
		return nil, fmt.Errorf("model: metadata %q has no feature_columns", metadataFile)
	}

	var forest Forest
	if err := readJSON(filepath.Join(dir, meta.ModelName+".json"), &forest); err != nil {
		return nil, fmt.Errorf("model: load classifier %q: %w", meta.ModelName, err)
	}
	if err := forest.validate(); err != nil {
		return nil, fmt.Errorf("model: classifier %q: %w", meta.ModelName, err)
	}

	var enc encoderDoc
	if err := readJSON(filepath.Join(dir, encoderFile), &enc); err != nil {
		return nil, fmt.Errorf("model: load encoder: %w", err)
	}
	if len(enc.Classes) == 0 {
		return nil, fmt.Errorf("model: encoder %q has no classes", encoderFile)
	}

	slog.Info("model: artifact loaded",
		"name", meta.ModelName,
		"training_date", meta.TrainingDate,
		"features", len(meta.FeatureColumns),
		"trees", len(forest.Trees),
	)

	return &Artifact{
		meta:    meta,
		forest:  &forest,
		encoder: NewEncoder(enc.Classes),
	}, nil
}

// Meta returns the training metadata.
func (a *Artifact) Meta() Metadata { return a.meta }

// Encoder returns the fitted categorical encoder.
func (a *Artifact) Encoder() *Encoder { return a.encoder }

// FeatureColumns returns the ordered feature schema the classifier expects.
func (a *Artifact) FeatureColumns() []string { return a.meta.FeatureColumns }

// Predict runs the frozen classifier on one feature vector and returns the
// binary label together with the failure probability. The label is 1 when
// the failure probability reaches 0.5.
func (a *Artifact) Predict(x []float64) (label int, failureProb float64) {
	p := a.forest.PredictProba(x)
	if p[1] >= 0.5 {
		label = 1
	}
	return label, p[1]
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %q: %w", filepath.Base(path), err)
	}
	return nil
}

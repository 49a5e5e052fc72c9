// Package artifact persists the immutable model bundles. A bundle is written
// once by a training run and only ever replaced wholesale: writers stage a
// temp file and rename it over the old one so readers never observe a
// partial artifact.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/hemoflow/hemoflow/pkg/features"
	"github.com/hemoflow/hemoflow/pkg/trainer"
)

// Bundle is the demand-model artifact: the fitted regressor, the categorical
// vocabularies, the feature scaler, the ordered feature names the regressor
// expects, and the winning algorithm's identifier.
type Bundle struct {
	Version      string                   `json:"version"`
	CreatedAt    time.Time                `json:"created_at"`
	Algorithm    string                   `json:"algorithm"`
	ScaledInput  bool                     `json:"scaled_input"`
	FeatureNames []string                 `json:"feature_names"`
	Vocabs       *features.Vocabularies   `json:"vocabularies"`
	Scaler       *features.StandardScaler `json:"scaler"`
	Medians      []float64                `json:"medians"`
	GBRT         *trainer.GBRT            `json:"gbrt,omitempty"`
	Linear       *trainer.LinearModel     `json:"linear,omitempty"`
	Metrics      trainer.Metrics          `json:"metrics"`
}

// FromTraining assembles a new bundle from a training result.
func FromTraining(res *trainer.Result, vocabs *features.Vocabularies, medians []float64) *Bundle {
	return &Bundle{
		Version:      uuid.NewString(),
		CreatedAt:    time.Now().UTC(),
		Algorithm:    res.Algorithm,
		ScaledInput:  res.ScaledInput,
		FeatureNames: features.FeatureNames,
		Vocabs:       vocabs,
		Scaler:       res.Scaler,
		Medians:      medians,
		GBRT:         res.GBRT,
		Linear:       res.Linear,
		Metrics:      res.Metrics,
	}
}

// Predict runs the bundled model on an unscaled, fully imputed feature
// vector.
func (b *Bundle) Predict(row []float64) (float64, error) {
	if len(row) != len(b.FeatureNames) {
		return 0, fmt.Errorf("expected %d features, got %d", len(b.FeatureNames), len(row))
	}
	if b.ScaledInput {
		scaled, err := b.Scaler.TransformRow(row)
		if err != nil {
			return 0, err
		}
		return b.Linear.Predict(scaled), nil
	}
	if b.GBRT == nil {
		return 0, fmt.Errorf("artifact %s has no model for algorithm %s", b.Version, b.Algorithm)
	}
	return b.GBRT.Predict(row), nil
}

// DonorBundle is the secondary artifact backing donor ranking: the RFM
// feature scaler and the fitted contribution-score regressor.
type DonorBundle struct {
	Version   string                   `json:"version"`
	CreatedAt time.Time                `json:"created_at"`
	Scaler    *features.StandardScaler `json:"scaler"`
	Linear    *trainer.LinearModel     `json:"linear"`
}

// NewDonorBundle assembles a donor artifact.
func NewDonorBundle(scaler *features.StandardScaler, linear *trainer.LinearModel) *DonorBundle {
	return &DonorBundle{
		Version:   uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Scaler:    scaler,
		Linear:    linear,
	}
}

// Predict scores one raw RFM feature vector.
func (b *DonorBundle) Predict(row []float64) (float64, error) {
	scaled, err := b.Scaler.TransformRow(row)
	if err != nil {
		return 0, err
	}
	return b.Linear.Predict(scaled), nil
}

// Save atomically writes any artifact value: stage to a temp file in the
// destination directory, fsync, then rename over the target.
func Save(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Load reads a demand-model bundle.
func Load(path string) (*Bundle, error) {
	var b Bundle
	if err := LoadJSON(path, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// LoadDonor reads a donor-model bundle.
func LoadDonor(path string) (*DonorBundle, error) {
	var b DonorBundle
	if err := LoadJSON(path, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// LoadJSON reads any persisted JSON artifact document.
func LoadJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse artifact %s: %w", path, err)
	}
	return nil
}

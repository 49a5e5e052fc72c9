package artifact

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/hemoflow/hemoflow/pkg/features"
	"github.com/hemoflow/hemoflow/pkg/logx"
	"github.com/hemoflow/hemoflow/pkg/trainer"
)

func trainedBundle(t *testing.T) *Bundle {
	t.Helper()

	n := 100
	matrix := make([][]float64, n)
	target := make([]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, len(features.FeatureNames))
		row[0] = float64(i)
		for j := 1; j < len(row); j++ {
			row[j] = math.Sin(float64(i * (j + 1)))
		}
		target[i] = 2*row[0] + 10
		matrix[i] = row
	}

	res, err := trainer.Train(matrix, target, features.FeatureNames, 42, logx.New("error"))
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	vocabs := &features.Vocabularies{
		City:      features.FitVocabulary("city", []string{"Delhi", "Mumbai"}),
		BloodType: features.FitVocabulary("blood_type", []string{"O+", "A+"}),
		Season:    features.FitVocabulary("season", []string{"Winter", "Summer"}),
	}
	medians := make([]float64, len(features.FeatureNames))
	return FromTraining(res, vocabs, medians)
}

func TestBundleRoundTrip(t *testing.T) {
	bundle := trainedBundle(t)
	path := filepath.Join(t.TempDir(), "models", "demand_model.json")

	if err := Save(path, bundle); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.Version != bundle.Version {
		t.Fatalf("version changed across round trip: %s vs %s", bundle.Version, loaded.Version)
	}
	if loaded.Algorithm != bundle.Algorithm || loaded.ScaledInput != bundle.ScaledInput {
		t.Fatalf("model selection changed across round trip")
	}
	if loaded.Metrics != bundle.Metrics {
		t.Fatalf("metrics changed across round trip: %+v vs %+v", bundle.Metrics, loaded.Metrics)
	}

	row := make([]float64, len(features.FeatureNames))
	row[0] = 25
	row[1] = 3

	want, err := bundle.Predict(row)
	if err != nil {
		t.Fatalf("predict original: %v", err)
	}
	got, err := loaded.Predict(row)
	if err != nil {
		t.Fatalf("predict loaded: %v", err)
	}
	if math.Abs(want-got) > 1e-9 {
		t.Fatalf("loaded bundle predicts %v, original %v", got, want)
	}

	if _, err := loaded.Vocabs.City.Encode("Delhi"); err != nil {
		t.Fatalf("vocabularies lost across round trip: %v", err)
	}
}

func TestBundlePredictDimensionCheck(t *testing.T) {
	bundle := trainedBundle(t)

	if _, err := bundle.Predict([]float64{1, 2, 3}); err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
}

func TestDonorBundleRoundTrip(t *testing.T) {
	matrix := [][]float64{{1, 10, 2500}, {5, 20, 5000}, {12, 2, 500}, {3, 40, 10000}}
	target := []float64{40, 60, 10, 90}

	scaler := features.FitScaler(matrix)
	scaled, err := scaler.Transform(matrix)
	if err != nil {
		t.Fatalf("scale: %v", err)
	}
	linear, err := trainer.FitLinear(scaled, target, []string{"recency_months", "frequency", "monetary_cc"})
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	bundle := NewDonorBundle(scaler, linear)

	path := filepath.Join(t.TempDir(), "donor_model.json")
	if err := Save(path, bundle); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadDonor(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want, err := bundle.Predict([]float64{4, 15, 3750})
	if err != nil {
		t.Fatalf("predict original: %v", err)
	}
	got, err := loaded.Predict([]float64{4, 15, 3750})
	if err != nil {
		t.Fatalf("predict loaded: %v", err)
	}
	if math.Abs(want-got) > 1e-9 {
		t.Fatalf("loaded donor bundle predicts %v, original %v", got, want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatalf("expected error for missing artifact")
	}
}

package features

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/hemoflow/hemoflow/pkg/blood"
)

// seriesRecords builds one (city, blood_type) group of consecutive days with
// demand 10, 20, 30, ...
func seriesRecords(city blood.City, bt blood.BloodType, days int) []blood.DemandRecord {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	records := make([]blood.DemandRecord, 0, days)
	for i := 0; i < days; i++ {
		r := blood.DemandRecord{
			Date:               start.AddDate(0, 0, i),
			City:               city,
			BloodType:          bt,
			Population:         1000000,
			Hospitals:          20,
			Demand:             (i + 1) * 10,
			Supply:             (i + 1) * 10,
			SeasonalMultiplier: 1.0,
			WeatherFactor:      1.0,
		}
		r.Derive()
		records = append(records, r)
	}
	return records
}

func TestTransformDropsIncompleteLagRows(t *testing.T) {
	records := seriesRecords(blood.Delhi, blood.OPos, 35)

	res, err := Transform(records, nil)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}

	// Positions 0..29 lack the 30-day lag; 5 rows survive.
	if len(res.Matrix) != 5 {
		t.Fatalf("expected 5 surviving rows got %d", len(res.Matrix))
	}
	if len(res.Target) != 5 {
		t.Fatalf("expected 5 targets got %d", len(res.Target))
	}
	if len(res.Medians) != len(FeatureNames) {
		t.Fatalf("expected %d medians got %d", len(FeatureNames), len(res.Medians))
	}
}

func TestTransformLagAndRollingValues(t *testing.T) {
	records := seriesRecords(blood.Delhi, blood.OPos, 35)

	res, err := Transform(records, nil)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}

	// First surviving row is group position 30 (demand 310).
	row := res.Matrix[0]
	cases := []struct {
		name     string
		idx      int
		expected float64
	}{
		{"demand_lag_1", 14, 300},
		{"demand_lag_7", 15, 240},
		{"demand_lag_30", 16, 10},
		{"demand_ma_7", 17, 280},  // mean of 250..310
		{"demand_ma_30", 18, 165}, // mean of 20..310
	}
	for _, c := range cases {
		if math.Abs(row[c.idx]-c.expected) > 1e-9 {
			t.Fatalf("%s expected %v got %v", c.name, c.expected, row[c.idx])
		}
	}
	if res.Target[0] != 310 {
		t.Fatalf("expected target 310 got %v", res.Target[0])
	}
}

func TestTransformGroupsAreIndependent(t *testing.T) {
	records := append(
		seriesRecords(blood.Delhi, blood.OPos, 32),
		seriesRecords(blood.Mumbai, blood.APos, 32)...,
	)

	res, err := Transform(records, nil)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}

	// Each group independently drops its first 30 rows.
	if len(res.Matrix) != 4 {
		t.Fatalf("expected 4 surviving rows got %d", len(res.Matrix))
	}
	// Lag 30 of each group's first surviving row is that group's first demand.
	if res.Matrix[0][16] != 10 || res.Matrix[2][16] != 10 {
		t.Fatalf("lag 30 leaked across groups: %v / %v", res.Matrix[0][16], res.Matrix[2][16])
	}
}

func TestTransformInferenceUnseenCity(t *testing.T) {
	records := seriesRecords(blood.Delhi, blood.OPos, 35)
	res, err := Transform(records, nil)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}

	query := seriesRecords(blood.Mumbai, blood.OPos, 1)
	_, err = Transform(query, res.Vocabs)
	if err == nil {
		t.Fatalf("expected unseen category error for Mumbai")
	}
	var unseen *blood.UnseenCategoryError
	if !errors.As(err, &unseen) {
		t.Fatalf("expected UnseenCategoryError got %T", err)
	}
}

func TestPredictionRowImpute(t *testing.T) {
	records := seriesRecords(blood.Delhi, blood.OPos, 35)
	res, err := Transform(records, nil)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}

	row, err := PredictionRow(PredictionInput{
		Date:       time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC),
		Population: 1000000,
		Hospitals:  20,
	}, res.Vocabs)
	if err != nil {
		t.Fatalf("prediction row: %v", err)
	}

	// Optional categoricals and lags are NaN before imputation.
	for _, idx := range []int{11, 12, 14, 15, 16, 17, 18} {
		if !math.IsNaN(row[idx]) {
			t.Fatalf("feature %d should be NaN before imputation, got %v", idx, row[idx])
		}
	}
	if row[9] != 0.9 {
		t.Fatalf("January should carry seasonal multiplier 0.9, got %v", row[9])
	}

	imputed := ImputeRow(row, res.Medians)
	for i, v := range imputed {
		if math.IsNaN(v) {
			t.Fatalf("feature %d still NaN after imputation", i)
		}
	}
	// Non-NaN slots are untouched.
	if imputed[0] != row[0] || imputed[9] != row[9] {
		t.Fatalf("imputation altered present features")
	}
}

func TestPredictionRowUnseenBloodType(t *testing.T) {
	records := seriesRecords(blood.Delhi, blood.OPos, 35)
	res, err := Transform(records, nil)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}

	_, err = PredictionRow(PredictionInput{
		Date:       time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC),
		BloodType:  "AB-",
		Population: 1000000,
		Hospitals:  20,
	}, res.Vocabs)
	var unseen *blood.UnseenCategoryError
	if !errors.As(err, &unseen) {
		t.Fatalf("expected UnseenCategoryError got %v", err)
	}
}

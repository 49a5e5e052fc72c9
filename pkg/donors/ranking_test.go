package donors

import (
	"errors"
	"math"
	"testing"

	"github.com/hemoflow/hemoflow/pkg/blood"
)

func testRegistry() []blood.DonorRecord {
	return []blood.DonorRecord{
		{ID: 1, BloodGroup: "O+", RecencyMonths: 1, Frequency: 40, MonetaryCC: 10000},
		{ID: 2, BloodGroup: "O+", RecencyMonths: 20, Frequency: 10, MonetaryCC: 3000},
		{ID: 3, BloodGroup: "A+", RecencyMonths: 5, Frequency: 25, MonetaryCC: 6000},
		{ID: 4, BloodGroup: "o+", RecencyMonths: 39, Frequency: 1, MonetaryCC: 500},
	}
}

func TestRFMScoresRange(t *testing.T) {
	scores := RFMScores(testRegistry())
	if len(scores) != 4 {
		t.Fatalf("expected 4 scores got %d", len(scores))
	}

	for i, s := range scores {
		if s < 0 || s > 100 {
			t.Fatalf("score %d out of range: %v", i, s)
		}
	}

	// Donor 1 dominates every axis: max frequency/monetary, min recency.
	if scores[0] != 100 {
		t.Fatalf("dominating donor should score 100, got %v", scores[0])
	}
	// Donor 4 is worst on every axis.
	if scores[3] != 0 {
		t.Fatalf("dominated donor should score 0, got %v", scores[3])
	}
}

func TestRFMScoresWeighting(t *testing.T) {
	scores := RFMScores(testRegistry())

	// Donor 2: recency (20-1)/38, frequency (10-1)/39, monetary (3000-500)/9500.
	rec := (20.0 - 1) / 38
	freq := (10.0 - 1) / 39
	mon := (3000.0 - 500) / 9500
	want := (0.4*freq + 0.4*mon + 0.2*(1-rec)) * 100
	if math.Abs(scores[1]-want) > 1e-9 {
		t.Fatalf("donor 2 expected %v got %v", want, scores[1])
	}
}

func TestRankFiltersAndSorts(t *testing.T) {
	registry := testRegistry()
	bundle, err := TrainModel(registry)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	ranker := NewRanker(registry, bundle)

	ranked, err := ranker.Rank("O+", 5)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}

	// Case-insensitive group match picks up donor 4 as well.
	if len(ranked) != 3 {
		t.Fatalf("expected 3 O+ donors got %d", len(ranked))
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score > ranked[i-1].Score {
			t.Fatalf("ranking not descending at %d: %v > %v", i, ranked[i].Score, ranked[i-1].Score)
		}
	}
	if ranked[0].ID != 1 {
		t.Fatalf("dominating donor should rank first, got id %d", ranked[0].ID)
	}
}

func TestRankTruncates(t *testing.T) {
	registry := testRegistry()
	bundle, err := TrainModel(registry)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	ranker := NewRanker(registry, bundle)

	ranked, err := ranker.Rank("O+", 2)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("expected truncation to 2 got %d", len(ranked))
	}
}

func TestRankNoDonorsFound(t *testing.T) {
	registry := testRegistry()
	bundle, err := TrainModel(registry)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	ranker := NewRanker(registry, bundle)

	_, err = ranker.Rank("AB-", 5)
	if err == nil {
		t.Fatalf("expected error for unmatched blood group")
	}
	var notFound *blood.NoDonorsFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NoDonorsFoundError got %T", err)
	}
	if notFound.BloodGroup != "AB-" {
		t.Fatalf("unexpected error payload: %+v", notFound)
	}
}

func TestTrainModelEmptyRegistry(t *testing.T) {
	_, err := TrainModel(nil)
	var insufficient *blood.InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientDataError got %v", err)
	}
}

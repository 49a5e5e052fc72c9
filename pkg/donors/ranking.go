// Package donors ranks donors by predicted contribution likelihood: a
// normalized RFM (recency/frequency/monetary) score blended with a fitted
// secondary regressor. Ranking is a pure read path; the registry is never
// mutated.
package donors

import (
	"sort"
	"strings"

	"github.com/hemoflow/hemoflow/pkg/artifact"
	"github.com/hemoflow/hemoflow/pkg/blood"
	"github.com/hemoflow/hemoflow/pkg/features"
	"github.com/hemoflow/hemoflow/pkg/trainer"
)

// RFM weighting: frequency and volume dominate, recency counts inverted.
const (
	weightFrequency = 0.4
	weightMonetary  = 0.4
	weightRecency   = 0.2
)

// RankedDonor is one entry of a ranking result.
type RankedDonor struct {
	ID         int     `json:"id"`
	BloodGroup string  `json:"bloodGroup"`
	Score      float64 `json:"score"`
	RFMScore   float64 `json:"rfmScore"`
}

// Ranker scores a donor registry against a fitted donor model.
type Ranker struct {
	donors []blood.DonorRecord
	rfm    []float64
	bundle *artifact.DonorBundle
}

// NewRanker precomputes the normalized RFM scores across the full donor
// population. Normalization is population-wide, not per blood group.
func NewRanker(donors []blood.DonorRecord, bundle *artifact.DonorBundle) *Ranker {
	return &Ranker{
		donors: donors,
		rfm:    RFMScores(donors),
		bundle: bundle,
	}
}

// RFMScores min-max normalizes recency, frequency and monetary independently
// across all donors and combines them into a [0,100] score.
func RFMScores(donors []blood.DonorRecord) []float64 {
	recency := normalize(extract(donors, func(d blood.DonorRecord) float64 { return d.RecencyMonths }))
	frequency := normalize(extract(donors, func(d blood.DonorRecord) float64 { return d.Frequency }))
	monetary := normalize(extract(donors, func(d blood.DonorRecord) float64 { return d.MonetaryCC }))

	scores := make([]float64, len(donors))
	for i := range donors {
		scores[i] = (weightFrequency*frequency[i] + weightMonetary*monetary[i] + weightRecency*(1-recency[i])) * 100
	}
	return scores
}

// Rank returns the top-N donors of a blood group by predicted score,
// descending. Group matching is case-insensitive and exact. Zero matches
// fail with NoDonorsFoundError so callers can tell "no such group" from an
// empty top-N.
func (r *Ranker) Rank(bloodGroup string, topN int) ([]RankedDonor, error) {
	var ranked []RankedDonor
	for i, d := range r.donors {
		if !strings.EqualFold(d.BloodGroup, bloodGroup) {
			continue
		}
		predicted, err := r.bundle.Predict([]float64{d.RecencyMonths, d.Frequency, d.MonetaryCC})
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, RankedDonor{
			ID:         d.ID,
			BloodGroup: d.BloodGroup,
			Score:      predicted,
			RFMScore:   r.rfm[i],
		})
	}
	if len(ranked) == 0 {
		return nil, &blood.NoDonorsFoundError{BloodGroup: bloodGroup}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked, nil
}

// TrainModel fits the donor artifact: a scaler over the raw RFM features and
// an OLS regressor targeting the normalized RFM score. Fitted once at
// training time so the ranking path never fits at query time.
func TrainModel(donors []blood.DonorRecord) (*artifact.DonorBundle, error) {
	if len(donors) == 0 {
		return nil, &blood.InsufficientDataError{Rows: 0, Reason: "empty donor registry"}
	}

	matrix := make([][]float64, len(donors))
	for i, d := range donors {
		matrix[i] = []float64{d.RecencyMonths, d.Frequency, d.MonetaryCC}
	}
	target := RFMScores(donors)

	scaler := features.FitScaler(matrix)
	scaled, err := scaler.Transform(matrix)
	if err != nil {
		return nil, err
	}
	linear, err := trainer.FitLinear(scaled, target, []string{"recency_months", "frequency", "monetary_cc"})
	if err != nil {
		return nil, err
	}
	return artifact.NewDonorBundle(scaler, linear), nil
}

func extract(donors []blood.DonorRecord, f func(blood.DonorRecord) float64) []float64 {
	out := make([]float64, len(donors))
	for i, d := range donors {
		out[i] = f(d)
	}
	return out
}

// normalize min-max scales values to [0,1]; a constant column maps to zero.
func normalize(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	out := make([]float64, len(values))
	if max == min {
		return out
	}
	for i, v := range values {
		out[i] = (v - min) / (max - min)
	}
	return out
}

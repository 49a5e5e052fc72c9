// Package trainer fits the candidate regressor families, evaluates them on a
// held-out split and selects the winner by mean absolute error.
package trainer

import (
	"sort"
)

// Stump is a single-split regression tree: one feature, one threshold, two
// leaf values.
type Stump struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      float64 `json:"left"`
	Right     float64 `json:"right"`
}

// GBRT is a gradient-boosted ensemble of regression stumps. Tree splits are
// scale-invariant, so it trains on unscaled features.
type GBRT struct {
	LearningRate float64 `json:"learning_rate"`
	Base         float64 `json:"base"`
	Stumps       []Stump `json:"stumps"`
}

const maxSplitCandidates = 16

// FitGBRT fits the ensemble with squared-error gradient boosting.
func FitGBRT(matrix [][]float64, target []float64, rounds int, learningRate float64) *GBRT {
	n := len(matrix)
	base := 0.0
	for _, v := range target {
		base += v
	}
	base /= float64(n)

	model := &GBRT{LearningRate: learningRate, Base: base}

	residual := make([]float64, n)
	for i, v := range target {
		residual[i] = v - base
	}

	candidates := splitCandidates(matrix)

	for round := 0; round < rounds; round++ {
		stump, ok := bestStump(matrix, residual, candidates)
		if !ok {
			break
		}
		model.Stumps = append(model.Stumps, stump)
		for i, row := range matrix {
			if row[stump.Feature] <= stump.Threshold {
				residual[i] -= learningRate * stump.Left
			} else {
				residual[i] -= learningRate * stump.Right
			}
		}
	}
	return model
}

// Predict returns the ensemble output for one feature vector.
func (m *GBRT) Predict(row []float64) float64 {
	out := m.Base
	for _, s := range m.Stumps {
		if row[s.Feature] <= s.Threshold {
			out += m.LearningRate * s.Left
		} else {
			out += m.LearningRate * s.Right
		}
	}
	return out
}

// splitCandidates picks up to maxSplitCandidates quantile thresholds per
// feature.
func splitCandidates(matrix [][]float64) [][]float64 {
	cols := len(matrix[0])
	out := make([][]float64, cols)
	values := make([]float64, len(matrix))
	for j := 0; j < cols; j++ {
		for i := range matrix {
			values[i] = matrix[i][j]
		}
		sort.Float64s(values)
		unique := values[:0:0]
		for i, v := range values {
			if i == 0 || v != unique[len(unique)-1] {
				unique = append(unique, v)
			}
		}
		if len(unique) < 2 {
			continue
		}
		step := 1
		if len(unique) > maxSplitCandidates {
			step = len(unique) / maxSplitCandidates
		}
		var thresholds []float64
		for i := 0; i+1 < len(unique); i += step {
			thresholds = append(thresholds, (unique[i]+unique[i+1])/2)
		}
		out[j] = thresholds
	}
	return out
}

// bestStump finds the split minimizing squared error against the residuals.
func bestStump(matrix [][]float64, residual []float64, candidates [][]float64) (Stump, bool) {
	var best Stump
	bestErr := 0.0
	found := false

	for feature, thresholds := range candidates {
		for _, thr := range thresholds {
			sumL, sumR := 0.0, 0.0
			nL, nR := 0, 0
			for i, row := range matrix {
				if row[feature] <= thr {
					sumL += residual[i]
					nL++
				} else {
					sumR += residual[i]
					nR++
				}
			}
			if nL == 0 || nR == 0 {
				continue
			}
			meanL := sumL / float64(nL)
			meanR := sumR / float64(nR)

			sse := 0.0
			for i, row := range matrix {
				var d float64
				if row[feature] <= thr {
					d = residual[i] - meanL
				} else {
					d = residual[i] - meanR
				}
				sse += d * d
			}
			if !found || sse < bestErr {
				bestErr = sse
				best = Stump{Feature: feature, Threshold: thr, Left: meanL, Right: meanR}
				found = true
			}
		}
	}
	return best, found
}

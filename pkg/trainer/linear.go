package trainer

import (
	"fmt"

	"github.com/sajari/regression"
)

// LinearModel is an ordinary least squares regressor. Coefficient order is
// intercept first, then one weight per feature. Scale-sensitive: trains and
// predicts on scaler output.
type LinearModel struct {
	Coeffs []float64 `json:"coeffs"`
	R2     float64   `json:"r2"`
}

// FitLinear fits an OLS model on the (scaled) feature matrix.
func FitLinear(matrix [][]float64, target []float64, names []string) (*LinearModel, error) {
	var r regression.Regression
	r.SetObserved("demand")
	for i, name := range names {
		r.SetVar(i, name)
	}
	for i, row := range matrix {
		r.Train(regression.DataPoint(target[i], row))
	}
	if err := r.Run(); err != nil {
		return nil, fmt.Errorf("ols fit failed: %w", err)
	}

	coeffs := r.GetCoeffs()
	if len(coeffs) != len(names)+1 {
		return nil, fmt.Errorf("ols returned %d coefficients for %d features", len(coeffs), len(names))
	}
	return &LinearModel{Coeffs: coeffs, R2: r.R2}, nil
}

// Predict returns the linear combination for one (scaled) feature vector.
func (m *LinearModel) Predict(row []float64) float64 {
	out := m.Coeffs[0]
	for i, v := range row {
		out += m.Coeffs[i+1] * v
	}
	return out
}

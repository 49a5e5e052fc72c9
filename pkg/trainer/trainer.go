package trainer

import (
	"math"
	"math/rand"

	"github.com/hemoflow/hemoflow/pkg/blood"
	"github.com/hemoflow/hemoflow/pkg/features"
	"github.com/hemoflow/hemoflow/pkg/logx"
)

// Algorithm identifiers persisted in the artifact. Registration order breaks
// MAE ties: the tree family wins an exact tie.
const (
	AlgorithmGradientBoosting = "gradient_boosting"
	AlgorithmLinearRegression = "linear_regression"
)

const (
	testFraction     = 0.2
	gbrtRounds       = 100
	gbrtLearningRate = 0.1
)

// Metrics are the held-out evaluation results for one family. MAE is the
// sole selection criterion; RMSE and R² are diagnostics.
type Metrics struct {
	MAE  float64 `json:"mae"`
	RMSE float64 `json:"rmse"`
	R2   float64 `json:"r2"`
}

// Result is the outcome of a training run: the winning family, its fitted
// model, and the scaler fitted on the training split.
type Result struct {
	Algorithm   string
	ScaledInput bool
	GBRT        *GBRT
	Linear      *LinearModel
	Scaler      *features.StandardScaler
	Metrics     Metrics
}

// Predict runs the selected model on an unscaled feature vector, applying
// the scaler first when the winning family requires it.
func (r *Result) Predict(row []float64) (float64, error) {
	if r.ScaledInput {
		scaled, err := r.Scaler.TransformRow(row)
		if err != nil {
			return 0, err
		}
		return r.Linear.Predict(scaled), nil
	}
	return r.GBRT.Predict(row), nil
}

// Train splits the feature matrix 80/20 with a fixed shuffle seed, fits both
// regressor families and selects the lower held-out MAE.
func Train(matrix [][]float64, target []float64, names []string, seed int64, logger *logx.Logger) (*Result, error) {
	n := len(matrix)
	if n == 0 {
		return nil, &blood.InsufficientDataError{Rows: 0, Reason: "no rows survived feature preparation"}
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	nTest := int(math.Ceil(testFraction * float64(n)))
	if nTest >= n {
		return nil, &blood.InsufficientDataError{Rows: n, Reason: "not enough rows for a held-out split"}
	}

	testIdx, trainIdx := perm[:nTest], perm[nTest:]
	xTrain, yTrain := subset(matrix, target, trainIdx)
	xTest, yTest := subset(matrix, target, testIdx)

	scaler := features.FitScaler(xTrain)
	xTrainScaled, err := scaler.Transform(xTrain)
	if err != nil {
		return nil, err
	}
	xTestScaled, err := scaler.Transform(xTest)
	if err != nil {
		return nil, err
	}

	logger.Info("training candidate models", "rows", n, "train", len(trainIdx), "test", len(testIdx), "features", len(names))

	gbrt := FitGBRT(xTrain, yTrain, gbrtRounds, gbrtLearningRate)
	gbrtMetrics := evaluate(yTest, predictAll(gbrt.Predict, xTest))
	logger.Info("model evaluated", "algorithm", AlgorithmGradientBoosting,
		"mae", gbrtMetrics.MAE, "rmse", gbrtMetrics.RMSE, "r2", gbrtMetrics.R2)

	linear, err := FitLinear(xTrainScaled, yTrain, names)
	if err != nil {
		return nil, err
	}
	linearMetrics := evaluate(yTest, predictAll(linear.Predict, xTestScaled))
	logger.Info("model evaluated", "algorithm", AlgorithmLinearRegression,
		"mae", linearMetrics.MAE, "rmse", linearMetrics.RMSE, "r2", linearMetrics.R2)

	res := &Result{
		Algorithm: AlgorithmGradientBoosting,
		GBRT:      gbrt,
		Linear:    linear,
		Scaler:    scaler,
		Metrics:   gbrtMetrics,
	}
	if linearMetrics.MAE < gbrtMetrics.MAE {
		res.Algorithm = AlgorithmLinearRegression
		res.ScaledInput = true
		res.Metrics = linearMetrics
	}

	logger.Info("model selected", "algorithm", res.Algorithm, "mae", res.Metrics.MAE)
	return res, nil
}

func subset(matrix [][]float64, target []float64, idx []int) ([][]float64, []float64) {
	x := make([][]float64, len(idx))
	y := make([]float64, len(idx))
	for i, j := range idx {
		x[i] = matrix[j]
		y[i] = target[j]
	}
	return x, y
}

func predictAll(predict func([]float64) float64, matrix [][]float64) []float64 {
	out := make([]float64, len(matrix))
	for i, row := range matrix {
		out[i] = predict(row)
	}
	return out
}

func evaluate(observed, predicted []float64) Metrics {
	n := float64(len(observed))
	mean := 0.0
	for _, v := range observed {
		mean += v
	}
	mean /= n

	var absSum, sqSum, totSum float64
	for i, v := range observed {
		diff := predicted[i] - v
		absSum += math.Abs(diff)
		sqSum += diff * diff
		totSum += (v - mean) * (v - mean)
	}

	m := Metrics{
		MAE:  absSum / n,
		RMSE: math.Sqrt(sqSum / n),
	}
	if totSum > 0 {
		m.R2 = 1 - sqSum/totSum
	}
	return m
}

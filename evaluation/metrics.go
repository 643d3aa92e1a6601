// Package evaluation measures how well a configuration forecasts held-out
// demand. It submits training requests to the model-execution service,
// aligns returned forecasts with holdout actuals, and computes accuracy,
// performance, and fitness metrics plus constraint violations.
package evaluation

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// MAPESentinel is returned when every actual value is zero and the mean
// absolute percentage error is undefined.
const MAPESentinel = 100.0

// MAPE computes the mean absolute percentage error on a 0-100 scale.
// Zero-actual points are skipped; when all actuals are zero the sentinel
// is returned instead of dividing by zero.
func MAPE(actual, predicted []float64) float64 {
	sum := 0.0
	count := 0
	for i := range actual {
		if actual[i] == 0 {
			continue
		}
		sum += math.Abs((actual[i] - predicted[i]) / actual[i])
		count++
	}
	if count == 0 {
		return MAPESentinel
	}
	return sum / float64(count) * 100
}

// MAE computes the mean absolute error.
func MAE(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	sum := 0.0
	for i := range actual {
		sum += math.Abs(actual[i] - predicted[i])
	}
	return sum / float64(len(actual))
}

// RMSE computes the root mean squared error.
func RMSE(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	sum := 0.0
	for i := range actual {
		diff := actual[i] - predicted[i]
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(actual)))
}

// RSquared computes the coefficient of determination, 1 - SSres/SStot.
// Exact predictions score 1; a zero total sum of squares otherwise floors
// the result at 0 instead of dividing by zero.
func RSquared(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}

	ssRes := 0.0
	for i := range actual {
		diff := actual[i] - predicted[i]
		ssRes += diff * diff
	}
	if ssRes == 0 {
		return 1
	}

	r2 := stat.RSquaredFrom(predicted, actual, nil)
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		return 0
	}
	return r2
}

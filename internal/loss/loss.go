// Package loss provides diagnostic loss functions.
//
// Training does not consume these; the update rule works on the signed
// output error directly. They summarise how well a network fits a dataset
// for reports and logs.
package loss

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// MSE (Mean Squared Error) loss.
type MSE struct{}

// Forward computes mean squared error: (1/n) * sum((y_pred - y_true)^2)
// Returns 0 for empty input.
func (m MSE) Forward(yPred, yTrue []float64) float64 {
	n := len(yPred)
	if n != len(yTrue) {
		panic("MSE: prediction and target must have same length")
	}
	if n == 0 {
		return 0
	}

	diff := make([]float64, n)
	floats.SubTo(diff, yPred, yTrue)
	return floats.Dot(diff, diff) / float64(n)
}

// MaxAbs returns the largest absolute difference between prediction and target.
func (m MSE) MaxAbs(yPred, yTrue []float64) float64 {
	if len(yPred) != len(yTrue) {
		panic("MSE: prediction and target must have same length")
	}
	if len(yPred) == 0 {
		return 0
	}
	diff := make([]float64, len(yPred))
	floats.SubTo(diff, yPred, yTrue)
	return floats.Norm(diff, math.Inf(1))
}

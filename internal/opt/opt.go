// Package opt provides the online gradient update rule.
package opt

import "gonum.org/v1/gonum/floats"

// SGD (Stochastic Gradient Descent) optimizer.
//
// Updates move parameters along the signed error, so a positive delta
// raises the output towards the target:
//
//	params += LearningRate * delta * signal
type SGD struct {
	LearningRate float64
}

// StepInPlace updates params in-place: params[i] += lr * delta * signal[i]
func (s SGD) StepInPlace(params []float64, delta float64, signal []float64) {
	floats.AddScaled(params, s.LearningRate*delta, signal)
}

// StepScalar updates a single parameter (a bias) in-place: p += lr * delta
func (s SGD) StepScalar(p *float64, delta float64) {
	*p += s.LearningRate * delta
}

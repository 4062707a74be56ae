// Package activations provides the squashing function used by every unit of the network.
package activations

import "math"

// Sigmoid is the logistic activation 1/(1+e^-x).
type Sigmoid struct{}

// sigmoid computes the logistic function
func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Activate computes sigmoid(x)
func (s Sigmoid) Activate(x float64) float64 {
	return sigmoid(x)
}

// Derivative computes sigmoid(x) * (1 - sigmoid(x))
func (s Sigmoid) Derivative(x float64) float64 {
	sigma := sigmoid(x)
	return sigma * (1 - sigma)
}

// DerivativeFromOutput computes the derivative given an already activated value y = sigmoid(x).
// The backward pass only keeps activations, so this is the form it uses.
func (s Sigmoid) DerivativeFromOutput(y float64) float64 {
	return y * (1 - y)
}

// Package net provides the single-hidden-layer network and its online trainer.
package net

import (
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/FlavioCFOliveira/backprop/internal/activations"
)

// Network is a fully connected in -> hidden -> 1 network with sigmoid units.
type Network struct {
	// Input weights stored as row-major contiguous slice
	// Shape: [hidden * in] where weight for hidden unit h, input i is at inputWeights[h*in + i]
	inputWeights  []float64
	hiddenBias    []float64
	outputWeights []float64
	outputBias    float64
	act           activations.Sigmoid
	inSize        int
	hiddenSize    int

	// Activations of the last forward pass, overwritten on every call
	hidden []float64
}

// Snapshot is a copy of all trainable parameters of a Network.
type Snapshot struct {
	InputWeights  [][]float64 // [hidden][in]
	HiddenBias    []float64
	OutputWeights []float64
	OutputBias    float64
}

// New creates a network with weights and biases drawn uniformly from [-scale, scale).
func New(in, hidden int, scale float64, rng *rand.Rand) *Network {
	n := alloc(in, hidden)
	uniform := func() float64 {
		return rng.Float64()*2*scale - scale
	}
	for i := range n.inputWeights {
		n.inputWeights[i] = uniform()
	}
	for h := range n.hiddenBias {
		n.hiddenBias[h] = uniform()
	}
	for h := range n.outputWeights {
		n.outputWeights[h] = uniform()
	}
	n.outputBias = uniform()
	return n
}

// FromSnapshot creates a network holding exactly the parameters in s.
func FromSnapshot(s Snapshot) (*Network, error) {
	hidden := len(s.InputWeights)
	if len(s.HiddenBias) != hidden || len(s.OutputWeights) != hidden {
		return nil, errors.Errorf("snapshot: %d input weight rows, %d hidden biases, %d output weights",
			hidden, len(s.HiddenBias), len(s.OutputWeights))
	}
	in := 0
	if hidden > 0 {
		in = len(s.InputWeights[0])
	}
	n := alloc(in, hidden)
	for h, row := range s.InputWeights {
		if len(row) != in {
			return nil, errors.Errorf("snapshot: input weight row %d has %d entries, want %d", h, len(row), in)
		}
		copy(n.inputWeights[h*in:(h+1)*in], row)
	}
	copy(n.hiddenBias, s.HiddenBias)
	copy(n.outputWeights, s.OutputWeights)
	n.outputBias = s.OutputBias
	return n, nil
}

func alloc(in, hidden int) *Network {
	return &Network{
		inputWeights:  make([]float64, hidden*in),
		hiddenBias:    make([]float64, hidden),
		outputWeights: make([]float64, hidden),
		hidden:        make([]float64, hidden),
		inSize:        in,
		hiddenSize:    hidden,
	}
}

// Forward computes the network output for x and caches the hidden activations.
// x must have InSize() elements.
func (n *Network) Forward(x []float64) float64 {
	in := n.inSize
	for h := 0; h < n.hiddenSize; h++ {
		row := n.inputWeights[h*in : (h+1)*in]
		n.hidden[h] = n.act.Activate(n.hiddenBias[h] + floats.Dot(row, x))
	}
	return n.act.Activate(n.outputBias + floats.Dot(n.outputWeights, n.hidden))
}

// Hidden returns a copy of the activations computed by the last Forward.
func (n *Network) Hidden() []float64 {
	out := make([]float64, len(n.hidden))
	copy(out, n.hidden)
	return out
}

// Snapshot returns a deep copy of the parameters.
func (n *Network) Snapshot() Snapshot {
	s := Snapshot{
		InputWeights:  make([][]float64, n.hiddenSize),
		HiddenBias:    make([]float64, n.hiddenSize),
		OutputWeights: make([]float64, n.hiddenSize),
		OutputBias:    n.outputBias,
	}
	for h := range s.InputWeights {
		s.InputWeights[h] = make([]float64, n.inSize)
		copy(s.InputWeights[h], n.inputWeights[h*n.inSize:(h+1)*n.inSize])
	}
	copy(s.HiddenBias, n.hiddenBias)
	copy(s.OutputWeights, n.outputWeights)
	return s
}

// InSize returns the number of inputs.
func (n *Network) InSize() int {
	return n.inSize
}

// HiddenSize returns the number of hidden units.
func (n *Network) HiddenSize() int {
	return n.hiddenSize
}

// Package dataset provides the labelled boolean-function samples a network is trained on.
package dataset

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
)

// MaxParityBits bounds Parity so a typo cannot ask for billions of rows.
const MaxParityBits = 20

var (
	// ErrEmpty is returned for a dataset with no samples.
	ErrEmpty = errors.New("dataset is empty")
	// ErrShape is returned when a sample's input length differs from the network input size.
	ErrShape = errors.New("sample input size mismatch")
	// ErrTarget is returned when a target lies outside [0,1].
	ErrTarget = errors.New("sample target outside [0,1]")
)

// Sample is one labelled input vector. Samples are shared by reference
// once they are in a Dataset and must not be modified.
type Sample struct {
	Inputs []float64
	Target float64
}

// Dataset is an ordered, index-addressable sequence of samples.
type Dataset []Sample

// XOR returns the four-row exclusive-or table.
func XOR() Dataset {
	return Dataset{
		{Inputs: []float64{0, 0}, Target: 0},
		{Inputs: []float64{0, 1}, Target: 1},
		{Inputs: []float64{1, 0}, Target: 1},
		{Inputs: []float64{1, 1}, Target: 0},
	}
}

// Parity returns the 2^bits rows of the n-bit parity function.
// Row r encodes r in binary with the most significant bit first,
// and its target is the XOR of those bits.
func Parity(bits int) (Dataset, error) {
	if bits < 1 || bits > MaxParityBits {
		return nil, errors.Errorf("parity: bits must be in [1,%d] (got %d)", MaxParityBits, bits)
	}

	rows := 1 << bits
	ds := make(Dataset, rows)
	for r := 0; r < rows; r++ {
		in := make([]float64, bits)
		parity := 0
		for i := 0; i < bits; i++ {
			bit := Bit(r, bits, i)
			in[i] = float64(bit)
			parity ^= bit
		}
		ds[r] = Sample{Inputs: in, Target: float64(parity)}
	}
	return ds, nil
}

// Bit extracts input position i of row r in a bits-wide encoding,
// position 0 being the most significant bit.
func Bit(r, bits, i int) int {
	return (r >> (bits - 1 - i)) & 1
}

// Validate checks the dataset is usable by a network with inputSize inputs.
func (d Dataset) Validate(inputSize int) error {
	if len(d) == 0 {
		return ErrEmpty
	}
	for i, s := range d {
		if len(s.Inputs) != inputSize {
			return errors.Wrapf(ErrShape, "sample %d has %d inputs, network expects %d", i, len(s.Inputs), inputSize)
		}
		if math.IsNaN(s.Target) || s.Target < 0 || s.Target > 1 {
			return errors.Wrapf(ErrTarget, "sample %d target %v", i, s.Target)
		}
	}
	return nil
}

// Targets returns the targets in dataset order.
func (d Dataset) Targets() []float64 {
	out := make([]float64, len(d))
	for i, s := range d {
		out[i] = s.Target
	}
	return out
}

// Sampler draws uniformly random sample indices.
type Sampler struct {
	rng *rand.Rand
	n   int
}

// NewSampler creates a sampler over n samples using rng.
func NewSampler(n int, rng *rand.Rand) (*Sampler, error) {
	if n <= 0 {
		return nil, ErrEmpty
	}
	if rng == nil {
		return nil, errors.New("sampler: nil random source")
	}
	return &Sampler{rng: rng, n: n}, nil
}

// Next returns an index in [0,n).
func (s *Sampler) Next() int {
	return s.rng.Intn(s.n)
}

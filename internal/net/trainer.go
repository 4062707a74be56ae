package net

import (
	"context"

	"github.com/pkg/errors"

	"github.com/FlavioCFOliveira/backprop/internal/dataset"
	"github.com/FlavioCFOliveira/backprop/internal/opt"
)

// Learner is the capability set a training driver needs.
type Learner interface {
	Forward(x []float64) float64
	Step(s dataset.Sample) float64
	Snapshot() Snapshot
}

var _ Learner = (*Trainer)(nil)

// Trainer owns a Network and applies one online update per sample.
// It is not safe for concurrent use; updates must be serialised.
type Trainer struct {
	net *Network
	opt opt.SGD

	// Per-hidden-unit local gradients, reused across steps
	deltaBuf []float64
}

// NewTrainer creates a trainer that updates n with the given learning rate.
func NewTrainer(n *Network, learningRate float64) *Trainer {
	return &Trainer{
		net:      n,
		opt:      opt.SGD{LearningRate: learningRate},
		deltaBuf: make([]float64, n.hiddenSize),
	}
}

// Network returns the trained network.
func (t *Trainer) Network() *Network {
	return t.net
}

// LearningRate returns the fixed learning rate.
func (t *Trainer) LearningRate() float64 {
	return t.opt.LearningRate
}

// Forward runs the network on x.
func (t *Trainer) Forward(x []float64) float64 {
	return t.net.Forward(x)
}

// Snapshot returns a copy of the network parameters.
func (t *Trainer) Snapshot() Snapshot {
	return t.net.Snapshot()
}

// Step performs a forward pass on s, then updates every weight and bias in place.
// It returns the signed output error target - output.
func (t *Trainer) Step(s dataset.Sample) float64 {
	n := t.net
	output := n.Forward(s.Inputs)
	outputError := s.Target - output

	// Hidden gradients use the output weights as they were before this step
	delta := t.deltaBuf
	for h, a := range n.hidden {
		delta[h] = outputError * n.outputWeights[h] * n.act.DerivativeFromOutput(a)
	}

	// Output layer
	t.opt.StepInPlace(n.outputWeights, outputError, n.hidden)
	t.opt.StepScalar(&n.outputBias, outputError)

	// Hidden layer
	in := n.inSize
	for h := 0; h < n.hiddenSize; h++ {
		t.opt.StepInPlace(n.inputWeights[h*in:(h+1)*in], delta[h], s.Inputs)
		t.opt.StepScalar(&n.hiddenBias[h], delta[h])
	}

	return outputError
}

// Predict returns the network output for every sample of data, in order.
func (t *Trainer) Predict(data dataset.Dataset) []float64 {
	out := make([]float64, len(data))
	for i, s := range data {
		out[i] = t.net.Forward(s.Inputs)
	}
	return out
}

// RunConfig controls a training run.
type RunConfig struct {
	Data    dataset.Dataset
	Sampler *dataset.Sampler

	// Steps is the number of updates to apply; 0 trains until ctx is done.
	Steps int64

	// ReportEvery triggers OnReport after every ReportEvery completed steps.
	// A report for step 0 is always emitted before training starts.
	ReportEvery int64

	Callbacks []Callback
}

// cancelCheckInterval is how many steps pass between context checks.
const cancelCheckInterval = 256

// Run draws samples from cfg.Sampler and trains on them until cfg.Steps
// updates are done, ctx is cancelled or a callback fails.
// It returns the number of completed steps.
func (t *Trainer) Run(ctx context.Context, cfg RunConfig) (int64, error) {
	if cfg.Sampler == nil {
		return 0, errors.New("run: nil sampler")
	}
	if len(cfg.Data) == 0 {
		return 0, dataset.ErrEmpty
	}
	if cfg.ReportEvery <= 0 {
		return 0, errors.Errorf("run: report interval must be > 0 (got %d)", cfg.ReportEvery)
	}
	if cfg.Steps < 0 {
		return 0, errors.Errorf("run: steps must be >= 0 (got %d)", cfg.Steps)
	}

	for i, cb := range cfg.Callbacks {
		if err := cb.OnTrainBegin(t); err != nil {
			// Release whatever the earlier callbacks opened
			for _, started := range cfg.Callbacks[:i] {
				started.OnTrainEnd(t)
			}
			return 0, errors.Wrap(err, "train begin")
		}
	}

	done, err := t.loop(ctx, cfg)

	for _, cb := range cfg.Callbacks {
		if endErr := cb.OnTrainEnd(t); endErr != nil && err == nil {
			err = errors.Wrap(endErr, "train end")
		}
	}
	return done, err
}

func (t *Trainer) loop(ctx context.Context, cfg RunConfig) (int64, error) {
	if err := t.report(0, cfg); err != nil {
		return 0, err
	}

	var done int64
	for cfg.Steps == 0 || done < cfg.Steps {
		if done%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return done, err
			}
		}

		t.Step(cfg.Data[cfg.Sampler.Next()])
		done++

		if done%cfg.ReportEvery == 0 {
			if err := t.report(done, cfg); err != nil {
				return done, err
			}
		}
	}
	return done, nil
}

func (t *Trainer) report(step int64, cfg RunConfig) error {
	if len(cfg.Callbacks) == 0 {
		return nil
	}
	r := Report{
		Step:        step,
		Snapshot:    t.net.Snapshot(),
		Data:        cfg.Data,
		Predictions: t.Predict(cfg.Data),
	}
	for _, cb := range cfg.Callbacks {
		if err := cb.OnReport(r); err != nil {
			return errors.Wrapf(err, "report at step %d", step)
		}
	}
	return nil
}

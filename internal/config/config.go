// Package config holds the hyperparameters and driver settings of a training run.
package config

import (
	"flag"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/FlavioCFOliveira/backprop/internal/dataset"
)

// Dataset names accepted by Config.Dataset.
const (
	DatasetXOR    = "xor"
	DatasetParity = "parity"
)

// ErrInvalid is the cause of every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config captures the runtime knobs for a training run.
type Config struct {
	InputSize    int
	HiddenSize   int
	LearningRate float64
	PrintEvery   int
	Seed         int64
	InitScale    float64

	// Steps bounds the run; 0 trains until interrupted.
	Steps int64

	Dataset string
	Pause   bool
	CSVLog  string
}

// Default returns the settings of the classic XOR demo.
func Default() Config {
	return Config{
		InputSize:    2,
		HiddenSize:   2,
		LearningRate: 0.1,
		PrintEvery:   10000,
		Seed:         time.Now().UnixNano(),
		InitScale:    0.5,
		Dataset:      DatasetXOR,
		Pause:        true,
	}
}

// RegisterFlags binds every field to a flag on fs, using the current values as defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.InputSize, "input-size", c.InputSize, "Number of network inputs")
	fs.IntVar(&c.HiddenSize, "hidden-size", c.HiddenSize, "Number of hidden units")
	fs.Float64Var(&c.LearningRate, "learning-rate", c.LearningRate, "SGD learning rate")
	fs.IntVar(&c.PrintEvery, "print-every", c.PrintEvery, "Report every N steps")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "PRNG seed")
	fs.Float64Var(&c.InitScale, "init-scale", c.InitScale, "Initial weights are uniform in [-scale, scale)")
	fs.Int64Var(&c.Steps, "steps", c.Steps, "Stop after N steps (0 = run until interrupted)")
	fs.StringVar(&c.Dataset, "dataset", c.Dataset, "Training set: xor or parity")
	fs.BoolVar(&c.Pause, "pause", c.Pause, "Wait for Enter after every report")
	fs.StringVar(&c.CSVLog, "csv", c.CSVLog, "Append report metrics to this CSV file")
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.Wrap(ErrInvalid, "config is nil")
	}
	if c.InputSize <= 0 {
		return errors.Wrapf(ErrInvalid, "input_size must be > 0 (got %d)", c.InputSize)
	}
	if c.HiddenSize <= 0 {
		return errors.Wrapf(ErrInvalid, "hidden_size must be > 0 (got %d)", c.HiddenSize)
	}
	if !(c.LearningRate > 0) || math.IsInf(c.LearningRate, 0) {
		return errors.Wrapf(ErrInvalid, "learning_rate must be a finite value > 0 (got %v)", c.LearningRate)
	}
	if c.PrintEvery <= 0 {
		return errors.Wrapf(ErrInvalid, "print_every must be > 0 (got %d)", c.PrintEvery)
	}
	if !(c.InitScale >= 0) || math.IsInf(c.InitScale, 0) {
		return errors.Wrapf(ErrInvalid, "init_scale must be a finite value >= 0 (got %v)", c.InitScale)
	}
	if c.Steps < 0 {
		return errors.Wrapf(ErrInvalid, "steps must be >= 0 (got %d)", c.Steps)
	}
	switch c.Dataset {
	case DatasetXOR:
		if c.InputSize != 2 {
			return errors.Wrapf(ErrInvalid, "xor dataset needs input_size 2 (got %d)", c.InputSize)
		}
	case DatasetParity:
		if c.InputSize > dataset.MaxParityBits {
			return errors.Wrapf(ErrInvalid, "parity dataset supports at most %d inputs (got %d)", dataset.MaxParityBits, c.InputSize)
		}
	default:
		return errors.Wrapf(ErrInvalid, "unknown dataset %q", c.Dataset)
	}
	return nil
}

// BuildDataset constructs the configured training set and checks it fits the network.
func (c *Config) BuildDataset() (dataset.Dataset, error) {
	var (
		ds  dataset.Dataset
		err error
	)
	switch c.Dataset {
	case DatasetXOR:
		ds = dataset.XOR()
	case DatasetParity:
		ds, err = dataset.Parity(c.InputSize)
		if err != nil {
			return nil, errors.Wrap(err, "build dataset")
		}
	default:
		return nil, errors.Wrapf(ErrInvalid, "unknown dataset %q", c.Dataset)
	}

	if err := ds.Validate(c.InputSize); err != nil {
		return nil, errors.Wrapf(err, "dataset %s", c.Dataset)
	}
	return ds, nil
}

package net

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/FlavioCFOliveira/backprop/internal/dataset"
	"github.com/FlavioCFOliveira/backprop/internal/loss"
)

// Callback defines the interface for training callbacks.
type Callback interface {
	OnTrainBegin(t *Trainer) error
	OnReport(r Report) error
	OnTrainEnd(t *Trainer) error
}

// BaseCallback provides default empty implementations for Callback.
type BaseCallback struct{}

func (c BaseCallback) OnTrainBegin(t *Trainer) error { return nil }
func (c BaseCallback) OnReport(r Report) error       { return nil }
func (c BaseCallback) OnTrainEnd(t *Trainer) error   { return nil }

// Report is the state handed to callbacks at every report interval.
type Report struct {
	Step        int64
	Snapshot    Snapshot
	Data        dataset.Dataset
	Predictions []float64 // network output per sample of Data
}

// MSE returns the mean squared error of the predictions.
func (r Report) MSE() float64 {
	return loss.MSE{}.Forward(r.Predictions, r.Data.Targets())
}

// MaxError returns the largest absolute prediction error.
func (r Report) MaxError() float64 {
	return loss.MSE{}.MaxAbs(r.Predictions, r.Data.Targets())
}

// Printer writes weights and per-sample predictions to W.
type Printer struct {
	BaseCallback
	W io.Writer
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{W: w}
}

func (p *Printer) OnReport(r Report) error {
	var b strings.Builder
	s := r.Snapshot

	fmt.Fprintf(&b, "Step %d\n", r.Step)
	b.WriteString("Weights:\n")
	for h, row := range s.InputWeights {
		fmt.Fprintf(&b, "w_input: %s\n", formatRow(row, ", "))
		fmt.Fprintf(&b, "bias: %0.3f\n", s.HiddenBias[h])
		fmt.Fprintf(&b, "w_hidden: %0.3f\n", s.OutputWeights[h])
	}
	fmt.Fprintf(&b, "output bias: %0.3f\n", s.OutputBias)

	for i, sample := range r.Data {
		fmt.Fprintf(&b, "%s | %0.3f %0.3f\n", formatRow(sample.Inputs, " "), r.Predictions[i], sample.Target)
	}
	fmt.Fprintf(&b, "mse: %0.6f\n", r.MSE())

	_, err := io.WriteString(p.W, b.String())
	return errors.Wrap(err, "printer")
}

func formatRow(v []float64, sep string) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%0.3f", x)
	}
	return strings.Join(parts, sep)
}

// Pauser blocks after every report until a line is read from R or ctx is done.
// Once R is exhausted it stops pausing.
type Pauser struct {
	BaseCallback
	W io.Writer // prompt destination, may be nil

	ctx     context.Context
	r       *bufio.Reader
	pending chan error // read still in flight from an earlier report
	eof     bool
}

// NewPauser creates a Pauser reading from r and prompting on w.
// A cancelled ctx releases a pending pause with ctx.Err().
func NewPauser(ctx context.Context, r io.Reader, w io.Writer) *Pauser {
	return &Pauser{W: w, ctx: ctx, r: bufio.NewReader(r)}
}

func (p *Pauser) OnReport(r Report) error {
	if p.eof {
		return nil
	}
	if p.W != nil {
		fmt.Fprint(p.W, "press Enter to continue\n")
	}

	if p.pending == nil {
		ch := make(chan error, 1)
		go func() {
			_, err := p.r.ReadString('\n')
			ch <- err
		}()
		p.pending = ch
	}

	select {
	case err := <-p.pending:
		p.pending = nil
		if err == io.EOF {
			p.eof = true
			return nil
		}
		return errors.Wrap(err, "pause")
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

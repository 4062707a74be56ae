package net

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"

	"github.com/FlavioCFOliveira/backprop/internal/dataset"
)

// TestTrainerStepZeroError tests that an exact prediction leaves every parameter unchanged.
func TestTrainerStepZeroError(t *testing.T) {
	// All-zero parameters output sigmoid(0) = 0.5 exactly
	n := New(2, 3, 0, rand.New(rand.NewSource(1)))
	tr := NewTrainer(n, 0.1)
	before := n.Snapshot()

	if e := tr.Step(dataset.Sample{Inputs: []float64{1, 1}, Target: 0.5}); e != 0 {
		t.Fatalf("Step error = %v, want 0", e)
	}

	after := n.Snapshot()
	for h := range before.InputWeights {
		for i := range before.InputWeights[h] {
			if after.InputWeights[h][i] != before.InputWeights[h][i] {
				t.Errorf("InputWeights[%d][%d] changed: %v -> %v", h, i, before.InputWeights[h][i], after.InputWeights[h][i])
			}
		}
		if after.OutputWeights[h] != before.OutputWeights[h] {
			t.Errorf("OutputWeights[%d] changed: %v -> %v", h, before.OutputWeights[h], after.OutputWeights[h])
		}
		if after.HiddenBias[h] != before.HiddenBias[h] {
			t.Errorf("HiddenBias[%d] changed: %v -> %v", h, before.HiddenBias[h], after.HiddenBias[h])
		}
	}
	if after.OutputBias != before.OutputBias {
		t.Errorf("OutputBias changed: %v -> %v", before.OutputBias, after.OutputBias)
	}
}

// TestTrainerStepNonZeroError tests that a wrong prediction moves every weight.
func TestTrainerStepNonZeroError(t *testing.T) {
	n, err := FromSnapshot(Snapshot{
		InputWeights:  [][]float64{{0.3, -0.2}, {0.1, 0.4}},
		HiddenBias:    []float64{0.05, -0.05},
		OutputWeights: []float64{0.7, -0.6},
		OutputBias:    0.1,
	})
	if err != nil {
		t.Fatalf("FromSnapshot error: %v", err)
	}
	tr := NewTrainer(n, 0.1)
	before := n.Snapshot()

	e := tr.Step(dataset.Sample{Inputs: []float64{1, 1}, Target: 1})
	if e <= 0 {
		t.Fatalf("Step error = %v, want > 0", e)
	}

	after := n.Snapshot()
	for h := range before.InputWeights {
		for i := range before.InputWeights[h] {
			if after.InputWeights[h][i] == before.InputWeights[h][i] {
				t.Errorf("InputWeights[%d][%d] unchanged", h, i)
			}
		}
		if after.OutputWeights[h] <= before.OutputWeights[h] {
			t.Errorf("OutputWeights[%d] = %v, want > %v", h, after.OutputWeights[h], before.OutputWeights[h])
		}
		if after.HiddenBias[h] == before.HiddenBias[h] {
			t.Errorf("HiddenBias[%d] unchanged", h)
		}
	}
	if after.OutputBias <= before.OutputBias {
		t.Errorf("OutputBias = %v, want > %v", after.OutputBias, before.OutputBias)
	}
}

// TestTrainerStepUsesPreUpdateOutputWeights guards the ordering of the backward pass:
// the hidden gradient must be computed from the output weight before it is updated.
func TestTrainerStepUsesPreUpdateOutputWeights(t *testing.T) {
	const (
		lr   = 1.0
		wIn  = 0.5
		wOut = 2.0
		x    = 1.0
		y    = 1.0
	)
	n, err := FromSnapshot(Snapshot{
		InputWeights:  [][]float64{{wIn}},
		HiddenBias:    []float64{0},
		OutputWeights: []float64{wOut},
	})
	if err != nil {
		t.Fatalf("FromSnapshot error: %v", err)
	}

	a := sigmoid(wIn * x)
	e := y - sigmoid(wOut*a)
	deltaPre := e * wOut * a * (1 - a)
	wOutNew := wOut + lr*e*a
	deltaPost := e * wOutNew * a * (1 - a)

	if math.Abs(deltaPre-deltaPost) < 1e-6 {
		t.Fatalf("test case does not separate orderings: %v vs %v", deltaPre, deltaPost)
	}

	NewTrainer(n, lr).Step(dataset.Sample{Inputs: []float64{x}, Target: y})
	s := n.Snapshot()

	if want := wIn + lr*deltaPre*x; math.Abs(s.InputWeights[0][0]-want) > 1e-12 {
		t.Errorf("InputWeights[0][0] = %v, want %v (post-update ordering would give %v)",
			s.InputWeights[0][0], want, wIn+lr*deltaPost*x)
	}
	if want := lr * deltaPre; math.Abs(s.HiddenBias[0]-want) > 1e-12 {
		t.Errorf("HiddenBias[0] = %v, want %v", s.HiddenBias[0], want)
	}
	if math.Abs(s.OutputWeights[0]-wOutNew) > 1e-12 {
		t.Errorf("OutputWeights[0] = %v, want %v", s.OutputWeights[0], wOutNew)
	}
	if want := lr * e; math.Abs(s.OutputBias-want) > 1e-12 {
		t.Errorf("OutputBias = %v, want %v", s.OutputBias, want)
	}
}

// TestTrainerStepHiddenShape tests the activation cache keeps its size across steps.
func TestTrainerStepHiddenShape(t *testing.T) {
	n := New(3, 4, 0.5, rand.New(rand.NewSource(2)))
	tr := NewTrainer(n, 0.1)
	ds, err := dataset.Parity(3)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range ds {
		tr.Step(s)
		if got := len(n.Hidden()); got != 4 {
			t.Fatalf("len(Hidden()) = %d, want 4", got)
		}
	}
}

// TestTrainerXOR tests that a 2-2-1 network learns XOR.
// A small share of initialisations stall in the known XOR local minimum,
// so several seeds are tried and one success is required.
func TestTrainerXOR(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping XOR convergence in short mode")
	}
	data := dataset.XOR()

	for seed := int64(1); seed <= 8; seed++ {
		rng := rand.New(rand.NewSource(seed))
		tr := NewTrainer(New(2, 2, 0.5, rng), 0.1)
		sampler, err := dataset.NewSampler(len(data), rng)
		if err != nil {
			t.Fatal(err)
		}

		done, err := tr.Run(context.Background(), RunConfig{
			Data:        data,
			Sampler:     sampler,
			Steps:       50000,
			ReportEvery: 50000,
		})
		if err != nil {
			t.Fatalf("seed %d: Run error: %v", seed, err)
		}
		if done != 50000 {
			t.Fatalf("seed %d: Run completed %d steps, want 50000", seed, done)
		}

		preds := tr.Predict(data)
		ok := true
		for i, s := range data {
			if math.Abs(preds[i]-s.Target) > 0.15 {
				ok = false
			}
		}
		if ok {
			t.Logf("seed %d learned XOR: %v", seed, preds)
			return
		}
		t.Logf("seed %d did not converge: %v", seed, preds)
	}
	t.Error("no seed learned XOR within 50000 steps")
}

type recorder struct {
	BaseCallback
	begins, ends int
	steps        []int64
	failAt       int64
}

var errRecorder = errors.New("recorder failure")

func (r *recorder) OnTrainBegin(t *Trainer) error { r.begins++; return nil }
func (r *recorder) OnTrainEnd(t *Trainer) error   { r.ends++; return nil }
func (r *recorder) OnReport(rep Report) error {
	r.steps = append(r.steps, rep.Step)
	if len(rep.Predictions) != len(rep.Data) {
		return errors.Errorf("got %d predictions for %d samples", len(rep.Predictions), len(rep.Data))
	}
	if r.failAt > 0 && rep.Step == r.failAt {
		return errRecorder
	}
	return nil
}

func newRun(t *testing.T, seed int64) (*Trainer, RunConfig) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	data := dataset.XOR()
	sampler, err := dataset.NewSampler(len(data), rng)
	if err != nil {
		t.Fatal(err)
	}
	return NewTrainer(New(2, 2, 0.5, rng), 0.1), RunConfig{Data: data, Sampler: sampler}
}

// TestTrainerRunReports tests callback order and report steps.
func TestTrainerRunReports(t *testing.T) {
	tr, cfg := newRun(t, 1)
	rec := &recorder{}
	cfg.Steps = 10
	cfg.ReportEvery = 3
	cfg.Callbacks = []Callback{rec}

	done, err := tr.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if done != 10 {
		t.Errorf("done = %d, want 10", done)
	}
	if rec.begins != 1 || rec.ends != 1 {
		t.Errorf("begins = %d, ends = %d, want 1 and 1", rec.begins, rec.ends)
	}
	want := []int64{0, 3, 6, 9}
	if len(rec.steps) != len(want) {
		t.Fatalf("report steps = %v, want %v", rec.steps, want)
	}
	for i := range want {
		if rec.steps[i] != want[i] {
			t.Errorf("report steps = %v, want %v", rec.steps, want)
			break
		}
	}
}

// TestTrainerRunCallbackError tests a failing callback stops training.
func TestTrainerRunCallbackError(t *testing.T) {
	tr, cfg := newRun(t, 1)
	rec := &recorder{failAt: 4}
	cfg.ReportEvery = 2
	cfg.Callbacks = []Callback{rec}

	done, err := tr.Run(context.Background(), cfg)
	if errors.Cause(err) != errRecorder {
		t.Fatalf("Run error = %v, want %v", err, errRecorder)
	}
	if done != 4 {
		t.Errorf("done = %d, want 4", done)
	}
	if rec.ends != 1 {
		t.Errorf("OnTrainEnd called %d times, want 1", rec.ends)
	}
}

type failingBegin struct {
	BaseCallback
}

var errBegin = errors.New("begin failure")

func (f failingBegin) OnTrainBegin(t *Trainer) error { return errBegin }

// TestTrainerRunBeginError tests callbacks that already began are ended when a later one fails to begin.
func TestTrainerRunBeginError(t *testing.T) {
	tr, cfg := newRun(t, 1)
	rec := &recorder{}
	after := &recorder{}
	cfg.Steps = 5
	cfg.ReportEvery = 1
	cfg.Callbacks = []Callback{rec, failingBegin{}, after}

	done, err := tr.Run(context.Background(), cfg)
	if errors.Cause(err) != errBegin {
		t.Fatalf("Run error = %v, want %v", err, errBegin)
	}
	if done != 0 {
		t.Errorf("done = %d, want 0", done)
	}
	if rec.begins != 1 || rec.ends != 1 {
		t.Errorf("started callback: begins = %d, ends = %d, want 1 and 1", rec.begins, rec.ends)
	}
	if after.begins != 0 || after.ends != 0 || len(after.steps) != 0 {
		t.Errorf("unstarted callback was invoked: %+v", after)
	}
	if len(rec.steps) != 0 {
		t.Errorf("reports emitted despite failed begin: %v", rec.steps)
	}
}

// TestTrainerRunCancelled tests an unbounded run stops when its context ends.
func TestTrainerRunCancelled(t *testing.T) {
	tr, cfg := newRun(t, 1)
	cfg.ReportEvery = 1000

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done, err := tr.Run(ctx, cfg)
	if err != context.Canceled {
		t.Errorf("Run error = %v, want %v", err, context.Canceled)
	}
	if done != 0 {
		t.Errorf("done = %d, want 0", done)
	}
}

// TestTrainerRunInvalid tests refused run configurations.
func TestTrainerRunInvalid(t *testing.T) {
	tr, cfg := newRun(t, 1)

	tests := []struct {
		name string
		edit func(c *RunConfig)
	}{
		{"nil sampler", func(c *RunConfig) { c.Sampler = nil }},
		{"empty data", func(c *RunConfig) { c.Data = nil }},
		{"zero report interval", func(c *RunConfig) { c.ReportEvery = 0 }},
		{"negative steps", func(c *RunConfig) { c.Steps = -1 }},
	}

	for _, tt := range tests {
		c := cfg
		c.ReportEvery = 10
		c.Steps = 1
		tt.edit(&c)
		if _, err := tr.Run(context.Background(), c); err == nil {
			t.Errorf("%s: Run expected error", tt.name)
		}
	}
}

// TestTrainerLearner tests the trainer exposes the network through Learner.
func TestTrainerLearner(t *testing.T) {
	n := New(2, 2, 0.5, rand.New(rand.NewSource(4)))
	var l Learner = NewTrainer(n, 0.1)
	x := []float64{0, 1}
	if a, b := l.Forward(x), n.Forward(x); a != b {
		t.Errorf("Learner.Forward = %v, Network.Forward = %v", a, b)
	}
	if l.Snapshot().OutputBias != n.Snapshot().OutputBias {
		t.Error("Learner.Snapshot differs from Network.Snapshot")
	}
}

// BenchmarkTrainerStep benchmarks one online update on XOR.
func BenchmarkTrainerStep(b *testing.B) {
	data := dataset.XOR()
	tr := NewTrainer(New(2, 2, 0.5, rand.New(rand.NewSource(1))), 0.1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tr.Step(data[i%len(data)])
	}
}

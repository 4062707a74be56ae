package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"github.com/klauspost/cpuid/v2"
	"github.com/pkg/errors"

	"github.com/FlavioCFOliveira/backprop/internal/config"
	"github.com/FlavioCFOliveira/backprop/internal/dataset"
	"github.com/FlavioCFOliveira/backprop/internal/net"
)

func main() {
	cfg := config.Default()
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	data, err := cfg.BuildDataset()
	if err != nil {
		log.Fatalf("invalid dataset: %v", err)
	}

	log.Printf("cpu=%q cores=%d avx2=%t fma3=%t",
		cpuid.CPU.BrandName, cpuid.CPU.LogicalCores,
		cpuid.CPU.Supports(cpuid.AVX2), cpuid.CPU.Supports(cpuid.FMA3))
	log.Printf("network=%d-%d-1 lr=%g dataset=%s rows=%d seed=%d",
		cfg.InputSize, cfg.HiddenSize, cfg.LearningRate, cfg.Dataset, len(data), cfg.Seed)

	rng := rand.New(rand.NewSource(cfg.Seed))
	network := net.New(cfg.InputSize, cfg.HiddenSize, cfg.InitScale, rng)
	trainer := net.NewTrainer(network, cfg.LearningRate)

	sampler, err := dataset.NewSampler(len(data), rng)
	if err != nil {
		log.Fatalf("sampler: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	callbacks := []net.Callback{net.NewPrinter(os.Stdout)}
	if cfg.CSVLog != "" {
		callbacks = append(callbacks, net.NewCSVLogger(cfg.CSVLog, true))
	}
	if cfg.Pause {
		callbacks = append(callbacks, net.NewPauser(ctx, os.Stdin, os.Stdout))
	}

	done, err := trainer.Run(ctx, net.RunConfig{
		Data:        data,
		Sampler:     sampler,
		Steps:       cfg.Steps,
		ReportEvery: int64(cfg.PrintEvery),
		Callbacks:   callbacks,
	})
	switch {
	case errors.Cause(err) == context.Canceled:
		log.Printf("interrupted after %d steps", done)
	case err != nil:
		log.Fatalf("training failed after %d steps: %v", done, err)
	default:
		log.Printf("finished %d steps", done)
	}
}

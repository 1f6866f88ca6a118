package main

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marketcore/lob/internal/book"
	"github.com/marketcore/lob/pkg/logger"
)

var (
	benchMessages int
	benchSeed     int64
)

func newBenchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Drive synthetic order flow against an in-process book and report latency percentiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench()
		},
	}
	cmd.Flags().IntVar(&benchMessages, "messages", 1_000_000, "number of order messages to generate")
	cmd.Flags().Int64Var(&benchSeed, "seed", 1, "random seed for the synthetic workload")
	return cmd
}

func runBench() error {
	log, err := logger.New(logger.Config{Level: "info", Encoding: "console"})
	if err != nil {
		return err
	}
	defer log.Sync()

	runID := uuid.NewString()
	log = log.With(zap.String("run_id", runID))
	log.Info("starting synthetic bench run", zap.Int("messages", benchMessages))

	b := book.NewBook()
	rng := rand.New(rand.NewSource(benchSeed))

	var resting []uint64
	var nextID uint64
	latencies := make([]time.Duration, 0, benchMessages)

	for i := 0; i < benchMessages; i++ {
		var order book.Order
		var op func() error

		switch {
		case len(resting) == 0 || rng.Intn(3) == 0:
			nextID++
			order = book.Order{
				ID:    nextID,
				Side:  book.Side(rng.Intn(2)),
				Size:  uint64(rng.Intn(500) + 1),
				Price: int64(rng.Intn(10000) + 1),
			}
			op = func() error {
				resting = append(resting, order.ID)
				return b.Add(order)
			}
		case rng.Intn(2) == 0:
			idx := rng.Intn(len(resting))
			id := resting[idx]
			existing, _ := b.Resting(id)
			existing.Size = uint64(rng.Intn(500) + 1)
			op = func() error { return b.Update(existing) }
		default:
			idx := rng.Intn(len(resting))
			id := resting[idx]
			resting[idx] = resting[len(resting)-1]
			resting = resting[:len(resting)-1]
			op = func() error { return b.Remove(id) }
		}

		start := time.Now()
		_ = op()
		latencies = append(latencies, time.Since(start))
	}

	reportLatencies(log, latencies)
	return nil
}

func reportLatencies(log *logger.Logger, latencies []time.Duration) {
	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	pct := func(p float64) time.Duration {
		if len(sorted) == 0 {
			return 0
		}
		idx := int(p * float64(len(sorted)-1))
		return sorted[idx]
	}

	log.Info("bench complete",
		zap.Int("messages", len(sorted)),
		zap.Duration("p50", pct(0.50)),
		zap.Duration("p90", pct(0.90)),
		zap.Duration("p99", pct(0.99)),
		zap.Duration("p999", pct(0.999)),
		zap.Duration("max", pct(1.0)),
	)
	fmt.Printf("p50=%s p90=%s p99=%s p999=%s max=%s\n", pct(0.50), pct(0.90), pct(0.99), pct(0.999), pct(1.0))
}

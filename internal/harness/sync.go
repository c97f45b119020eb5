package harness

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/mkoval/inferbench/internal/pool"
)

// RunSync benchmarks a single worker executed synchronously on the calling
// goroutine: one warm-up call, then one latency sample per iteration until the
// run bounds are exhausted. No pool is involved; concurrency is one by
// definition.
func (h *Harness) RunSync(ctx context.Context, runner pool.Runner) (Result, error) {
	effective := h.cfg.MinIterations
	if effective <= 0 {
		if h.cfg.MinDuration <= 0 {
			return Result{}, fmt.Errorf("run needs an iteration or duration bound")
		}
		effective = math.MaxInt
	}

	if err := runner.Run(); err != nil {
		return Result{}, fmt.Errorf("warm-up failed: %w", err)
	}

	latencies := make([]time.Duration, 0, minInt(effective, 1024))
	start := time.Now()
	deadline := start.Add(h.cfg.MinDuration)
	if h.cfg.MinDuration <= 0 {
		deadline = start.Add(time.Duration(math.MaxInt64) - time.Duration(start.UnixNano()))
	}

	last := start
	for last.Before(deadline) && len(latencies) < effective {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if err := runner.Run(); err != nil {
			return Result{}, fmt.Errorf("inference failed: %w", err)
		}
		now := time.Now()
		latencies = h.record(latencies, now.Sub(last))
		last = now
	}
	duration := last.Sub(start)

	return Result{Count: len(latencies), Duration: duration, Latencies: latencies}, nil
}

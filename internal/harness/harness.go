package harness

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// Pool abstracts the fixed set of asynchronous execution slots the harness
// saturates. *pool.RequestPool satisfies it.
type Pool interface {
	Size() int
	IdleID(ctx context.Context) (int, error)
	Start(id int) error
	WaitAll()
	Latency(id int) time.Duration
	Err() error
}

// RunConfig bounds one benchmark run. It is immutable once the run starts.
type RunConfig struct {
	// MinDuration is the wall-clock window. Zero means the run is bounded by
	// iterations only.
	MinDuration time.Duration
	// MinIterations is the requested iteration budget, rounded up to a full
	// multiple of the pool size before use. Zero means duration-bounded only.
	MinIterations int
}

// Result is the outcome of a completed run. Latencies are collected in
// observation order; they are sorted by the statistics layer, so ordering here
// carries no meaning.
type Result struct {
	Count     int
	Duration  time.Duration
	Latencies []time.Duration
}

// Harness drives a slot pool to saturation for a bounded window and collects
// per-item latencies. A single goroutine runs the loop; all concurrency lives
// behind the pool.
type Harness struct {
	pool Pool
	cfg  RunConfig
	log  *logrus.Logger

	// OnSample, when set, observes each latency as it is recorded. Used to
	// feed the live progress collector.
	OnSample func(time.Duration)
}

// New builds a harness over pool. log may be nil to silence diagnostics.
func New(p Pool, cfg RunConfig, log *logrus.Logger) *Harness {
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.PanicLevel)
	}
	return &Harness{pool: p, cfg: cfg, log: log}
}

// EffectiveIterations rounds minIterations up to the smallest multiple of
// poolSize that is >= minIterations, so every slot completes an equal share.
func EffectiveIterations(minIterations, poolSize int) int {
	if minIterations <= 0 || poolSize <= 0 {
		return 0
	}
	return (minIterations + poolSize - 1) / poolSize * poolSize
}

// Run executes the saturation benchmark: a warm-up pass over every slot, then
// the bounded dispatch loop, then a final drain. Warm-up latencies are
// discarded so first-call overhead does not bias the statistics.
func (h *Harness) Run(ctx context.Context) (Result, error) {
	n := h.pool.Size()

	effective := EffectiveIterations(h.cfg.MinIterations, n)
	if effective == 0 {
		if h.cfg.MinDuration <= 0 {
			return Result{}, fmt.Errorf("run needs an iteration or duration bound")
		}
		effective = math.MaxInt
	} else if effective != h.cfg.MinIterations {
		h.log.Warnf("Number of iterations was aligned by request number from %d to %d using number of requests %d",
			h.cfg.MinIterations, effective, n)
	}

	if err := h.warmUp(ctx); err != nil {
		return Result{}, err
	}

	// Per-slot bookkeeping: dispatched[id] means the slot has an unobserved
	// dispatch outstanding. A slot observed idle while dispatched just
	// completed that work, so its latency is recorded before redispatch.
	dispatched := make([]bool, n)
	inFlight := 0
	latencies := make([]time.Duration, 0, minInt(effective, 1024))

	start := time.Now()
	deadline := start.Add(h.cfg.MinDuration)
	if h.cfg.MinDuration <= 0 {
		deadline = start.Add(time.Duration(math.MaxInt64) - time.Duration(start.UnixNano()))
	}

	for time.Now().Before(deadline) && len(latencies)+inFlight < effective {
		id, err := h.pool.IdleID(ctx)
		if err != nil {
			return Result{}, err
		}
		if dispatched[id] {
			latencies = h.record(latencies, h.pool.Latency(id))
		} else {
			dispatched[id] = true
			inFlight++
		}
		if err := h.pool.Start(id); err != nil {
			return Result{}, err
		}
	}

	// Reported duration deliberately stops at loop exit: drained latencies
	// below still count toward throughput although the drain time does not.
	// Changing this would silently shift reported numbers.
	duration := time.Since(start)

	h.pool.WaitAll()
	if err := h.pool.Err(); err != nil {
		return Result{}, fmt.Errorf("inference failed: %w", err)
	}
	for id := 0; id < n; id++ {
		if dispatched[id] {
			latencies = h.record(latencies, h.pool.Latency(id))
		}
	}

	return Result{Count: len(latencies), Duration: duration, Latencies: latencies}, nil
}

func (h *Harness) warmUp(ctx context.Context) error {
	for i := 0; i < h.pool.Size(); i++ {
		id, err := h.pool.IdleID(ctx)
		if err != nil {
			return err
		}
		if err := h.pool.Start(id); err != nil {
			return err
		}
	}
	h.pool.WaitAll()
	if err := h.pool.Err(); err != nil {
		return fmt.Errorf("warm-up failed: %w", err)
	}
	return nil
}

func (h *Harness) record(latencies []time.Duration, d time.Duration) []time.Duration {
	if h.OnSample != nil {
		h.OnSample(d)
	}
	return append(latencies, d)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Collector records completed-iteration latencies in a thread-safe manner.
// It backs the live progress view during a run; the authoritative end-of-run
// statistics come from Summarize over the exact sample sequence.
type Collector struct {
	mu         sync.Mutex
	hist       *hdrhistogram.Histogram
	completed  int64
	failures   int64
	minLatency time.Duration
	maxLatency time.Duration
	sumLatency time.Duration
}

// LiveStats is a point-in-time snapshot of collector state.
type LiveStats struct {
	Completed   int64
	Failures    int64
	MinLatency  time.Duration
	MaxLatency  time.Duration
	MeanLatency time.Duration
	P50Latency  time.Duration
	P90Latency  time.Duration
	P99Latency  time.Duration
	FPS         float64
}

func NewCollector() *Collector {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	h := hdrhistogram.New(1, 60_000_000, 3)
	return &Collector{hist: h}
}

// Record adds one completed iteration's latency.
func (c *Collector) Record(latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if latency > 0 {
		us := latency.Microseconds()
		if us < c.hist.LowestTrackableValue() {
			us = c.hist.LowestTrackableValue()
		}
		if us > c.hist.HighestTrackableValue() {
			us = c.hist.HighestTrackableValue()
		}
		_ = c.hist.RecordValue(us)
	}
	c.sumLatency += latency
	c.completed++

	if c.minLatency == 0 || latency < c.minLatency {
		c.minLatency = latency
	}
	if latency > c.maxLatency {
		c.maxLatency = latency
	}
}

// RecordFailure counts an iteration that errored instead of completing.
func (c *Collector) RecordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures++
}

// Stats computes a snapshot over the given elapsed wall-clock time.
func (c *Collector) Stats(elapsed time.Duration) LiveStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := LiveStats{
		Completed:  c.completed,
		Failures:   c.failures,
		MinLatency: c.minLatency,
		MaxLatency: c.maxLatency,
	}
	if c.completed > 0 {
		stats.MeanLatency = time.Duration(int64(c.sumLatency) / c.completed)
	}
	if c.hist.TotalCount() > 0 {
		stats.P50Latency = time.Duration(c.hist.ValueAtQuantile(50)) * time.Microsecond
		stats.P90Latency = time.Duration(c.hist.ValueAtQuantile(90)) * time.Microsecond
		stats.P99Latency = time.Duration(c.hist.ValueAtQuantile(99)) * time.Microsecond
	}
	if elapsed > 0 && c.completed > 0 {
		stats.FPS = float64(c.completed) / elapsed.Seconds()
	}
	return stats
}

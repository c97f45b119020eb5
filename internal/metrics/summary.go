package metrics

import (
	"math"
	"sort"
	"time"
)

// Summary holds the final statistics of a completed run. Durations are kept in
// native form for programmatic use; the *Ms fields carry the same values in
// milliseconds for the JSON report.
type Summary struct {
	Count          int           `json:"count"`
	Duration       time.Duration `json:"-"`
	Min            time.Duration `json:"-"`
	Max            time.Duration `json:"-"`
	Mean           time.Duration `json:"-"`
	Percentile     time.Duration `json:"-"`
	PercentileRank float64       `json:"percentile_rank"`
	FPS            float64       `json:"throughput_fps"`

	DurationMs   float64 `json:"duration_ms"`
	MinMs        float64 `json:"latency_min_ms"`
	MaxMs        float64 `json:"latency_max_ms"`
	MeanMs       float64 `json:"latency_avg_ms"`
	PercentileMs float64 `json:"latency_percentile_ms"`
}

// Summarize reduces the collected samples to a Summary. The input slice is not
// modified; percentileRank selects which latency percentile is reported.
func Summarize(samples []time.Duration, duration time.Duration, percentileRank float64) Summary {
	s := Summary{
		Count:          len(samples),
		Duration:       duration,
		PercentileRank: percentileRank,
		DurationMs:     toMs(duration),
	}
	if len(samples) == 0 {
		return s
	}

	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, d := range sorted {
		total += d
	}

	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.Mean = total / time.Duration(len(sorted))
	s.Percentile = NearestRank(sorted, percentileRank)
	if duration > 0 {
		s.FPS = float64(len(sorted)) / duration.Seconds()
	}

	s.MinMs = toMs(s.Min)
	s.MaxMs = toMs(s.Max)
	s.MeanMs = toMs(s.Mean)
	s.PercentileMs = toMs(s.Percentile)
	return s
}

// NearestRank returns the p-th percentile of sorted using the nearest-rank
// method: the smallest element with at least p percent of the samples at or
// below it. No interpolation between samples is performed.
func NearestRank(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(float64(len(sorted))*p/100)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func toMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

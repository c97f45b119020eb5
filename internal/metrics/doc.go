// Package metrics aggregates benchmark latency samples. Summarize computes the
// authoritative end-of-run statistics with nearest-rank percentiles over the
// exact sample sequence; Collector keeps an HdrHistogram-backed live view for
// progress reporting while a run is in flight.
package metrics

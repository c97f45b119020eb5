package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mkoval/inferbench/internal/metrics"
)

// Report is the complete result of one benchmark run.
type Report struct {
	RunID  string          `json:"run_id"`
	Device string          `json:"device"`
	Model  string          `json:"model"`
	API    string          `json:"api"`
	Stats  metrics.Summary `json:"stats"`
}

// PrintReport outputs the human-readable summary block. The throughput line
// ends in "FPS"; downstream smoke checks key off that substring.
func PrintReport(w io.Writer, r Report) {
	s := r.Stats
	fmt.Fprintf(w, "Run:        %s (%s on %s, %s)\n", r.RunID, r.Model, r.Device, r.API)
	fmt.Fprintf(w, "Count:      %d iterations\n", s.Count)
	fmt.Fprintf(w, "Duration:   %.2f ms\n", s.DurationMs)
	fmt.Fprintln(w, "Latency:")
	if s.PercentileRank == 50 {
		fmt.Fprintf(w, "    Median:     %.2f ms\n", s.PercentileMs)
	} else {
		fmt.Fprintf(w, "    (%g percentile):     %.2f ms\n", s.PercentileRank, s.PercentileMs)
	}
	fmt.Fprintf(w, "    AVG:        %.2f ms\n", s.MeanMs)
	fmt.Fprintf(w, "    MIN:        %.2f ms\n", s.MinMs)
	fmt.Fprintf(w, "    MAX:        %.2f ms\n", s.MaxMs)
	fmt.Fprintf(w, "Throughput: %.2f FPS\n", s.FPS)
}

// PrintJSONReport outputs the report as indented JSON.
func PrintJSONReport(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

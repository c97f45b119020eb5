package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "inferbench MODEL",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Execution flags
	flags.StringP("device", "d", "CPU", "Target device to benchmark on")
	flags.String("api", string(APIAsync), "Execution mode: 'sync' or 'async'")
	flags.Int("niter", 0, "Minimum number of iterations (0 means duration-bounded)")
	flags.DurationP("time", "t", 15*time.Second, "Minimum benchmark window (e.g. 15s, 1m)")
	flags.Int("nireq", 0, "Number of parallel infer requests (0 means device recommendation)")

	// Input shape flags
	flags.IntP("batch", "b", 0, "Batch size to apply to the inputs' batch axis (0 keeps model shapes)")
	flags.String("shape", "", "Input shape override, e.g. 'data[1,3,227,227]' or '[?,3,?,?]'")
	flags.String("data-shape", "", "Concrete shapes for dynamic inputs, e.g. '[1,3,227,227]'")
	flags.String("layout", "", "Input layout override, e.g. '[NCHW]' or 'data[NCHW]'")

	// Device tuning flags
	flags.Int("nstreams", 0, "Number of execution streams (requires --hint none)")
	flags.Int("nthreads", 0, "Number of device worker threads")
	flags.String("pin", "", "Thread affinity: YES, NO, NUMA or HYBRID_AWARE (requires --hint none)")
	flags.String("hint", string(HintThroughput), "Performance hint: 'throughput', 'latency' or 'none'")

	// Output flags
	flags.Float64("percentile", 50, "Latency percentile to report")
	flags.Bool("json-output", false, "Emit JSON formatted results")
	flags.Bool("progress", false, "Show live progress while the benchmark runs")
	flags.String("exec-graph-path", "", "Dump the executable graph to the given file")
	flags.String("dump-config", "", "Dump the effective device configuration as JSON to the given file")
	flags.Int64("seed", 0, "Random seed for synthetic input generation")
	flags.String("config", "", "Path to run configuration file (JSON or YAML)")

	// Tracing flags
	flags.String("trace-endpoint", "", "OTLP endpoint for per-request tracing (empty disables tracing)")
	flags.String("trace-protocol", "grpc", "OTLP transport: 'grpc' or 'http'")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// PrintUsage writes the one-line usage string shown on usage errors.
func PrintUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: inferbench MODEL [flags] (see --help)")
}

package config

import (
	"fmt"
	"strings"
	"time"
)

// APIMode selects synchronous or asynchronous execution.
type APIMode string

const (
	APISync  APIMode = "sync"
	APIAsync APIMode = "async"
)

// PinMode is the user-facing thread-affinity selector. YES and NO are mapped
// to the device's CORE and NONE affinities; other values pass through.
type PinMode string

const (
	PinYes         PinMode = "YES"
	PinNo          PinMode = "NO"
	PinNUMA        PinMode = "NUMA"
	PinHybridAware PinMode = "HYBRID_AWARE"
)

// HintMode selects the performance profile. "none" is required before
// explicit stream or affinity settings are accepted.
type HintMode string

const (
	HintThroughput HintMode = "throughput"
	HintLatency    HintMode = "latency"
	HintNone       HintMode = "none"
)

// TracingConfig configures optional OpenTelemetry export.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
}

// Enabled reports whether tracing should be initialized at all.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != ""
}

// Config is the resolved benchmark configuration for one run.
type Config struct {
	ModelPath string `mapstructure:"-"`

	Device     string        `mapstructure:"device"`
	API        APIMode       `mapstructure:"api"`
	Iterations int           `mapstructure:"niter"`
	Time       time.Duration `mapstructure:"time"`
	Requests   int           `mapstructure:"nireq"`
	Batch      int           `mapstructure:"batch"`
	Shape      string        `mapstructure:"shape"`
	DataShape  string        `mapstructure:"data_shape"`
	Layout     string        `mapstructure:"layout"`
	Streams    int           `mapstructure:"nstreams"`
	Threads    int           `mapstructure:"nthreads"`
	Pin        PinMode       `mapstructure:"pin"`
	Hint       HintMode      `mapstructure:"hint"`
	Percentile float64       `mapstructure:"percentile"`
	Seed       int64         `mapstructure:"seed"`

	JSONOutput     bool          `mapstructure:"json_output"`
	Progress       bool          `mapstructure:"progress"`
	ExecGraphPath  string        `mapstructure:"exec_graph_path"`
	DumpConfigPath string        `mapstructure:"dump_config"`
	Tracing        TracingConfig `mapstructure:"tracing"`

	ConfigFile string `mapstructure:"-"`
	// TimeSet records whether the duration bound was given explicitly, so
	// iteration-only runs are not capped by the default window.
	TimeSet bool `mapstructure:"-"`
}

// UsageError is a fatal misuse of the command line. The caller prints a
// one-line usage string and exits non-zero.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string {
	return e.Msg
}

// Validate checks cross-field consistency. A missing model path is a
// UsageError; everything else is a plain validation failure.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ModelPath) == "" {
		return &UsageError{Msg: "missing required argument: path to model"}
	}
	switch c.API {
	case APISync, APIAsync:
	default:
		return fmt.Errorf("api must be %q or %q, got %q", APISync, APIAsync, c.API)
	}
	switch c.Hint {
	case HintThroughput, HintLatency, HintNone:
	default:
		return fmt.Errorf("hint must be throughput, latency or none, got %q", c.Hint)
	}
	if c.Pin != "" {
		switch c.Pin {
		case PinYes, PinNo, PinNUMA, PinHybridAware:
		default:
			return fmt.Errorf("pin must be one of YES, NO, NUMA, HYBRID_AWARE, got %q", c.Pin)
		}
	}
	if (c.Streams > 0 || c.Pin != "") && c.Hint != HintNone {
		return fmt.Errorf("explicit nstreams/pin settings require --hint none")
	}
	if c.Iterations < 0 {
		return fmt.Errorf("niter must be >= 0")
	}
	if c.Time < 0 {
		return fmt.Errorf("time must be >= 0")
	}
	if c.Requests < 0 {
		return fmt.Errorf("nireq must be >= 0")
	}
	if c.Batch < 0 {
		return fmt.Errorf("batch must be >= 0")
	}
	if c.Streams < 0 {
		return fmt.Errorf("nstreams must be >= 0")
	}
	if c.Threads < 0 {
		return fmt.Errorf("nthreads must be >= 0")
	}
	if c.Percentile <= 0 || c.Percentile > 100 {
		return fmt.Errorf("percentile must be in (0, 100], got %g", c.Percentile)
	}
	if c.Iterations == 0 && !c.TimeSet && c.Time <= 0 {
		return fmt.Errorf("either --niter or -t/--time must be positive")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing sample_rate must be between 0.0 and 1.0, got %g", c.Tracing.SampleRate)
	}
	return nil
}

// EffectiveDuration resolves the wall-clock bound for the run: an explicit -t
// always wins; with only --niter given the run is iteration-bounded; with
// neither override the default window applies.
func (c *Config) EffectiveDuration() time.Duration {
	if c.TimeSet {
		return c.Time
	}
	if c.Iterations > 0 {
		return 0
	}
	return c.Time
}

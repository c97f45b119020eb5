package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and an optional configuration file into a
// Config. Precedence: defaults < config file < flags. The first positional
// argument is the model path.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, &UsageError{Msg: err.Error()}
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	cfg := &Config{
		Device:     "CPU",
		API:        APIAsync,
		Time:       15 * time.Second,
		Hint:       HintThroughput,
		Percentile: 50,
	}

	configPath := flagSet.Lookup("config").Value.String()
	if configPath != "" {
		cfgViper := viper.New()
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
		if err := applyConfigSettings(cfg, cfgViper); err != nil {
			return nil, err
		}
		cfg.ConfigFile = configPath
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	if positional := flagSet.Args(); len(positional) > 0 {
		cfg.ModelPath = strings.TrimSpace(positional[0])
		if len(positional) > 1 {
			return nil, &UsageError{Msg: fmt.Sprintf("unexpected argument %q", positional[1])}
		}
	}

	cfg.Device = strings.ToUpper(strings.TrimSpace(cfg.Device))
	cfg.API = APIMode(strings.ToLower(strings.TrimSpace(string(cfg.API))))
	cfg.Hint = HintMode(strings.ToLower(strings.TrimSpace(string(cfg.Hint))))
	cfg.Pin = PinMode(strings.ToUpper(strings.TrimSpace(string(cfg.Pin))))

	return cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config.
func applyConfigSettings(cfg *Config, v *viper.Viper) error {
	if v.IsSet("device") {
		cfg.Device = v.GetString("device")
	}
	if v.IsSet("api") {
		cfg.API = APIMode(v.GetString("api"))
	}
	if v.IsSet("niter") {
		cfg.Iterations = v.GetInt("niter")
	}
	if v.IsSet("time") {
		dur, err := asDuration(v.Get("time"))
		if err != nil {
			return fmt.Errorf("time: %w", err)
		}
		cfg.Time = dur
		cfg.TimeSet = true
	}
	if v.IsSet("nireq") {
		cfg.Requests = v.GetInt("nireq")
	}
	if v.IsSet("batch") {
		cfg.Batch = v.GetInt("batch")
	}
	if v.IsSet("shape") {
		cfg.Shape = v.GetString("shape")
	}
	if v.IsSet("data_shape") {
		cfg.DataShape = v.GetString("data_shape")
	}
	if v.IsSet("layout") {
		cfg.Layout = v.GetString("layout")
	}
	if v.IsSet("nstreams") {
		cfg.Streams = v.GetInt("nstreams")
	}
	if v.IsSet("nthreads") {
		cfg.Threads = v.GetInt("nthreads")
	}
	if v.IsSet("pin") {
		cfg.Pin = PinMode(v.GetString("pin"))
	}
	if v.IsSet("hint") {
		cfg.Hint = HintMode(v.GetString("hint"))
	}
	if v.IsSet("percentile") {
		cfg.Percentile = v.GetFloat64("percentile")
	}
	if v.IsSet("seed") {
		cfg.Seed = v.GetInt64("seed")
	}
	if v.IsSet("json_output") {
		cfg.JSONOutput = v.GetBool("json_output")
	}
	if v.IsSet("progress") {
		cfg.Progress = v.GetBool("progress")
	}
	if v.IsSet("exec_graph_path") {
		cfg.ExecGraphPath = v.GetString("exec_graph_path")
	}
	if v.IsSet("dump_config") {
		cfg.DumpConfigPath = v.GetString("dump_config")
	}
	if v.IsSet("model") {
		cfg.ModelPath = v.GetString("model")
	}
	if v.IsSet("tracing") {
		if err := v.UnmarshalKey("tracing", &cfg.Tracing); err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
	}
	return nil
}

// applyFlagOverrides applies command-line flag values to the config,
// overriding values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("device") {
		val, err := fs.GetString("device")
		if err != nil {
			return err
		}
		cfg.Device = val
	}
	if fs.Changed("api") {
		val, err := fs.GetString("api")
		if err != nil {
			return err
		}
		cfg.API = APIMode(val)
	}
	if fs.Changed("niter") {
		val, err := fs.GetInt("niter")
		if err != nil {
			return err
		}
		cfg.Iterations = val
	}
	if fs.Changed("time") {
		val, err := fs.GetDuration("time")
		if err != nil {
			return err
		}
		cfg.Time = val
		cfg.TimeSet = true
	}
	if fs.Changed("nireq") {
		val, err := fs.GetInt("nireq")
		if err != nil {
			return err
		}
		cfg.Requests = val
	}
	if fs.Changed("batch") {
		val, err := fs.GetInt("batch")
		if err != nil {
			return err
		}
		cfg.Batch = val
	}
	if fs.Changed("shape") {
		val, err := fs.GetString("shape")
		if err != nil {
			return err
		}
		cfg.Shape = val
	}
	if fs.Changed("data-shape") {
		val, err := fs.GetString("data-shape")
		if err != nil {
			return err
		}
		cfg.DataShape = val
	}
	if fs.Changed("layout") {
		val, err := fs.GetString("layout")
		if err != nil {
			return err
		}
		cfg.Layout = val
	}
	if fs.Changed("nstreams") {
		val, err := fs.GetInt("nstreams")
		if err != nil {
			return err
		}
		cfg.Streams = val
	}
	if fs.Changed("nthreads") {
		val, err := fs.GetInt("nthreads")
		if err != nil {
			return err
		}
		cfg.Threads = val
	}
	if fs.Changed("pin") {
		val, err := fs.GetString("pin")
		if err != nil {
			return err
		}
		cfg.Pin = PinMode(val)
	}
	if fs.Changed("hint") {
		val, err := fs.GetString("hint")
		if err != nil {
			return err
		}
		cfg.Hint = HintMode(val)
	}
	if fs.Changed("percentile") {
		val, err := fs.GetFloat64("percentile")
		if err != nil {
			return err
		}
		cfg.Percentile = val
	}
	if fs.Changed("seed") {
		val, err := fs.GetInt64("seed")
		if err != nil {
			return err
		}
		cfg.Seed = val
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}
	if fs.Changed("progress") {
		val, err := fs.GetBool("progress")
		if err != nil {
			return err
		}
		cfg.Progress = val
	}
	if fs.Changed("exec-graph-path") {
		val, err := fs.GetString("exec-graph-path")
		if err != nil {
			return err
		}
		cfg.ExecGraphPath = val
	}
	if fs.Changed("dump-config") {
		val, err := fs.GetString("dump-config")
		if err != nil {
			return err
		}
		cfg.DumpConfigPath = val
	}
	if fs.Changed("trace-endpoint") {
		val, err := fs.GetString("trace-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = val
	}
	if fs.Changed("trace-protocol") {
		val, err := fs.GetString("trace-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = val
	}
	return nil
}

func asDuration(value interface{}) (time.Duration, error) {
	switch v := value.(type) {
	case time.Duration:
		return v, nil
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		if n, err := strconv.Atoi(s); err == nil {
			return time.Duration(n) * time.Second, nil
		}
		return time.ParseDuration(s)
	default:
		return 0, fmt.Errorf("unsupported duration value %v", value)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/mkoval/inferbench/internal/config"
	"github.com/mkoval/inferbench/internal/engine"
	"github.com/mkoval/inferbench/internal/harness"
	"github.com/mkoval/inferbench/internal/metrics"
	"github.com/mkoval/inferbench/internal/model"
	"github.com/mkoval/inferbench/internal/output"
	"github.com/mkoval/inferbench/internal/pool"
	"github.com/mkoval/inferbench/internal/tracing"
)

var version = "dev"

const progressInterval = time.Second

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		var usageErr *config.UsageError
		if errors.As(err, &usageErr) {
			config.PrintUsage(os.Stdout)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	log := newLogger()

	cfg, err := config.NewLoader().Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log.Infof("inferbench %s", version)

	desc, err := model.Load(cfg.ModelPath)
	if err != nil {
		return err
	}
	if err := applyInputOverrides(cfg, desc); err != nil {
		return err
	}

	eng, err := engine.ForDevice(cfg.Device)
	if err != nil {
		return err
	}
	compiled, err := eng.Compile(desc, engine.Options{
		Hint:     toEngineHint(cfg.Hint),
		Streams:  cfg.Streams,
		Threads:  cfg.Threads,
		Affinity: toEngineAffinity(cfg.Pin),
		Seed:     cfg.Seed,
	})
	if err != nil {
		return err
	}

	if cfg.DumpConfigPath != "" {
		if err := output.DumpEffectiveConfig(cfg.DumpConfigPath, cfg.Device, compiled.EffectiveConfig()); err != nil {
			return err
		}
		log.Infof("Effective configuration dumped to %s", cfg.DumpConfigPath)
	}
	if cfg.ExecGraphPath != "" {
		if err := output.DumpExecGraph(cfg.ExecGraphPath, compiled.ExecGraph()); err != nil {
			return err
		}
		log.Infof("Executable graph dumped to %s", cfg.ExecGraphPath)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.Warnf("tracing shutdown: %v", err)
		}
	}()

	modelName := desc.Name
	if modelName == "" {
		modelName = filepath.Base(cfg.ModelPath)
	}

	nireq := cfg.Requests
	if cfg.API == config.APISync {
		nireq = 1
	} else if nireq == 0 {
		nireq = compiled.OptimalRequests()
	}
	log.Infof("Benchmarking %s on %s, api=%s, %d infer request(s)", modelName, cfg.Device, cfg.API, nireq)

	runners := make([]pool.Runner, 0, nireq)
	for i := 0; i < nireq; i++ {
		req, err := compiled.CreateRequest()
		if err != nil {
			return err
		}
		runners = append(runners, &inferRunner{
			req:    req,
			tracer: provider.Tracer(),
			traced: cfg.Tracing.Enabled(),
			device: cfg.Device,
			model:  modelName,
		})
	}

	collector := metrics.NewCollector()
	runCfg := harness.RunConfig{
		MinDuration:   cfg.EffectiveDuration(),
		MinIterations: cfg.Iterations,
	}

	var progress *output.ProgressReporter
	if cfg.Progress {
		progress = output.NewProgressReporter(collector, progressInterval, os.Stderr)
		progress.Start()
	}

	var result harness.Result
	if cfg.API == config.APISync {
		h := harness.New(nil, runCfg, log)
		h.OnSample = collector.Record
		result, err = h.RunSync(ctx, runners[0])
	} else {
		var p *pool.RequestPool
		p, err = pool.New(runners)
		if err != nil {
			return err
		}
		h := harness.New(p, runCfg, log)
		h.OnSample = collector.Record
		result, err = h.Run(ctx)
	}
	if progress != nil {
		progress.Stop()
	}
	if err != nil {
		return err
	}

	report := output.Report{
		RunID:  ulid.Make().String(),
		Device: cfg.Device,
		Model:  modelName,
		API:    string(cfg.API),
		Stats:  metrics.Summarize(result.Latencies, result.Duration, cfg.Percentile),
	}
	if cfg.JSONOutput {
		return output.PrintJSONReport(out, report)
	}
	output.PrintReport(out, report)
	return nil
}

// applyInputOverrides resolves --shape, --data-shape, --layout and -b against
// the loaded descriptor.
func applyInputOverrides(cfg *config.Config, desc *model.Descriptor) error {
	shapes, err := model.ParseShapes(cfg.Shape)
	if err != nil {
		return err
	}
	if err := desc.ApplyShapeOverrides(shapes); err != nil {
		return err
	}

	positional, named, err := model.ParseDataShapes(cfg.DataShape)
	if err != nil {
		return err
	}
	if named != nil {
		if err := desc.ApplyShapeOverrides(named); err != nil {
			return err
		}
	}
	for i, shape := range positional {
		if i >= len(desc.Inputs) {
			return fmt.Errorf("data shape count %d exceeds input count %d", len(positional), len(desc.Inputs))
		}
		desc.Inputs[i].Shape = shape
	}

	layouts, err := model.ParseLayouts(cfg.Layout)
	if err != nil {
		return err
	}
	if err := desc.ApplyLayoutOverrides(layouts); err != nil {
		return err
	}

	return desc.ApplyBatch(int64(cfg.Batch))
}

func toEngineHint(h config.HintMode) engine.Hint {
	switch h {
	case config.HintLatency:
		return engine.HintLatency
	case config.HintNone:
		return engine.HintNone
	default:
		return engine.HintThroughput
	}
}

func toEngineAffinity(p config.PinMode) engine.Affinity {
	switch p {
	case config.PinYes:
		return engine.AffinityCore
	case config.PinNo:
		return engine.AffinityNone
	case config.PinNUMA:
		return engine.AffinityNUMA
	case config.PinHybridAware:
		return engine.AffinityHybridAware
	default:
		return ""
	}
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
	})
	return log
}

// inferRunner adapts an engine request to the pool's Runner interface, adding
// an optional tracing span around each dispatch.
type inferRunner struct {
	req    engine.InferRequest
	tracer trace.Tracer
	traced bool
	device string
	model  string
}

func (r *inferRunner) Run() error {
	if !r.traced {
		return r.req.Infer()
	}
	_, span := tracing.StartInferSpan(context.Background(), r.tracer, r.device, r.model)
	err := r.req.Infer()
	tracing.EndSpan(span, err)
	return err
}

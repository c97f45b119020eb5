package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/mkoval/inferbench/internal/config"
	"github.com/mkoval/inferbench/internal/model"
)

const modelPath = "testdata/tinynet.yaml"

func runBench(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	if err := run(args, &buf); err != nil {
		t.Fatalf("run(%v) failed: %v", args, err)
	}
	return buf.String()
}

func TestRunReportsFPS(t *testing.T) {
	out := runBench(t, "--niter", "8", modelPath)
	if !strings.Contains(out, "FPS") {
		t.Errorf("output misses FPS:\n%s", out)
	}
	if !strings.Contains(out, "Median:") {
		t.Errorf("output misses default median line:\n%s", out)
	}
}

func TestRunSyncAPI(t *testing.T) {
	out := runBench(t, "--api", "sync", "--niter", "4", modelPath)
	if !strings.Contains(out, "FPS") {
		t.Errorf("sync output misses FPS:\n%s", out)
	}
	if !strings.Contains(out, "sync") {
		t.Errorf("sync output does not name the api:\n%s", out)
	}
}

func TestRunMissingModelArgument(t *testing.T) {
	err := run([]string{"--niter", "8"}, &bytes.Buffer{})
	var usage *config.UsageError
	if !errors.As(err, &usage) {
		t.Fatalf("err = %v, want *config.UsageError", err)
	}
}

func TestRunHelp(t *testing.T) {
	if err := run([]string{"-h"}, &bytes.Buffer{}); err != nil {
		t.Fatalf("help must not be an error: %v", err)
	}
}

func TestRunUnknownDevice(t *testing.T) {
	if err := run([]string{"-d", "TPU", "--niter", "4", modelPath}, &bytes.Buffer{}); err == nil {
		t.Error("expected error for unknown device")
	}
}

func TestRunMissingModelFile(t *testing.T) {
	if err := run([]string{"--niter", "4", "testdata/no-such.yaml"}, &bytes.Buffer{}); err == nil {
		t.Error("expected error for missing model file")
	}
}

func TestRunDumpConfig(t *testing.T) {
	confPath := filepath.Join(t.TempDir(), "conf.json")
	runBench(t,
		"--hint", "none",
		"--nstreams", "2",
		"--pin", "YES",
		"--niter", "4",
		"--dump-config", confPath,
		modelPath,
	)

	data, err := os.ReadFile(confPath)
	if err != nil {
		t.Fatalf("config dump not written: %v", err)
	}
	doc := string(data)
	if got := gjson.Get(doc, "CPU.NUM_STREAMS").String(); got != "2" {
		t.Errorf("CPU.NUM_STREAMS = %q, want 2", got)
	}
	if got := gjson.Get(doc, "CPU.AFFINITY").String(); got != "CORE" {
		t.Errorf("CPU.AFFINITY = %q, want CORE (pin YES)", got)
	}
}

func TestRunDumpConfigPinNo(t *testing.T) {
	confPath := filepath.Join(t.TempDir(), "conf.json")
	runBench(t, "--hint", "none", "--pin", "NO", "--niter", "4", "--dump-config", confPath, modelPath)

	data, err := os.ReadFile(confPath)
	if err != nil {
		t.Fatal(err)
	}
	if got := gjson.Get(string(data), "CPU.AFFINITY").String(); got != "NONE" {
		t.Errorf("CPU.AFFINITY = %q, want NONE (pin NO)", got)
	}
}

func TestRunExecGraphDump(t *testing.T) {
	graphPath := filepath.Join(t.TempDir(), "graph.xml")
	runBench(t, "--niter", "4", "--exec-graph-path", graphPath, modelPath)

	data, err := os.ReadFile(graphPath)
	if err != nil {
		t.Fatalf("exec graph not written: %v", err)
	}
	if !strings.Contains(string(data), `name="tinynet"`) {
		t.Errorf("exec graph misses the model name:\n%s", data)
	}
}

func TestRunJSONOutput(t *testing.T) {
	out := runBench(t, "--niter", "8", "--nireq", "4", "--json-output", modelPath)
	if !gjson.Valid(out) {
		t.Fatalf("output is not valid JSON:\n%s", out)
	}
	if got := gjson.Get(out, "stats.count").Int(); got != 8 {
		t.Errorf("stats.count = %d, want 8", got)
	}
	if gjson.Get(out, "stats.throughput_fps").Float() <= 0 {
		t.Errorf("stats.throughput_fps not positive:\n%s", out)
	}
	if gjson.Get(out, "run_id").String() == "" {
		t.Errorf("run_id missing:\n%s", out)
	}
}

func TestRunDynamicShapeNeedsDataShape(t *testing.T) {
	err := run([]string{"--niter", "4", "testdata/dynamic.yaml"}, &bytes.Buffer{})
	var empty *model.EmptyInputError
	if !errors.As(err, &empty) {
		t.Fatalf("err = %v, want *model.EmptyInputError", err)
	}
}

func TestRunDynamicShapeWithDataShape(t *testing.T) {
	out := runBench(t, "--niter", "4", "--data-shape", "[2,3,8,8]", "testdata/dynamic.yaml")
	if !strings.Contains(out, "FPS") {
		t.Errorf("output misses FPS:\n%s", out)
	}
}

func TestRunShapeOverride(t *testing.T) {
	out := runBench(t, "--niter", "4", "--nireq", "2", "--shape", "data[2,3,8,8]", "--json-output", modelPath)
	if !gjson.Valid(out) {
		t.Fatalf("output is not valid JSON:\n%s", out)
	}
	if got := gjson.Get(out, "stats.count").Int(); got != 4 {
		t.Errorf("stats.count = %d, want 4", got)
	}
}

func TestRunPercentileFlag(t *testing.T) {
	out := runBench(t, "--niter", "8", "--percentile", "90", modelPath)
	if strings.Contains(out, "Median:") {
		t.Errorf("p90 run must not print a Median line:\n%s", out)
	}
	if !strings.Contains(out, "(90 percentile):") {
		t.Errorf("p90 label missing:\n%s", out)
	}
}

func TestRunNireqOverride(t *testing.T) {
	out := runBench(t, "--niter", "8", "--nireq", "2", "--json-output", modelPath)
	if got := gjson.Get(out, "stats.count").Int(); got != 8 {
		t.Errorf("stats.count = %d, want 8 (aligned to 2 requests)", got)
	}
}

func TestRunStreamsRequireHintNone(t *testing.T) {
	if err := run([]string{"--nstreams", "2", "--niter", "4", modelPath}, &bytes.Buffer{}); err == nil {
		t.Error("expected error: explicit nstreams without --hint none")
	}
}

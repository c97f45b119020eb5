package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/mkoval/inferbench/internal/model"
)

func staticDescriptor() *model.Descriptor {
	return &model.Descriptor{
		Name: "tinynet",
		Inputs: []model.TensorInfo{
			{Name: "data", Shape: model.Shape{1, 3, 8, 8}, ElementType: model.ElementF32, Layout: "NCHW"},
		},
		Layers: []model.Layer{
			{Name: "conv1", Type: "Convolution", Cost: 2},
			{Name: "relu1", Type: "ReLU", Cost: 1},
		},
	}
}

func TestForDevice(t *testing.T) {
	e, err := ForDevice("cpu")
	if err != nil {
		t.Fatalf("ForDevice(cpu) failed: %v", err)
	}
	if e.Device() != "CPU" {
		t.Errorf("Device() = %q, want CPU", e.Device())
	}

	if _, err := ForDevice("TPU"); err == nil {
		t.Error("expected error for unregistered device")
	}
}

func TestCompileDefaults(t *testing.T) {
	e, _ := ForDevice("CPU")
	cm, err := e.Compile(staticDescriptor(), Options{})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	cfg := cm.EffectiveConfig()
	if cfg["PERFORMANCE_HINT"] != "THROUGHPUT" {
		t.Errorf("PERFORMANCE_HINT = %q, want THROUGHPUT", cfg["PERFORMANCE_HINT"])
	}
	if cfg["AFFINITY"] != "CORE" {
		t.Errorf("AFFINITY = %q, want CORE", cfg["AFFINITY"])
	}
	if cfg["NUM_STREAMS"] == "" || cfg["NUM_STREAMS"] == "0" {
		t.Errorf("NUM_STREAMS = %q, want a positive default", cfg["NUM_STREAMS"])
	}
	if cm.OptimalRequests() < 1 {
		t.Errorf("OptimalRequests() = %d, want >= 1", cm.OptimalRequests())
	}
}

func TestCompileExplicitOptions(t *testing.T) {
	e, _ := ForDevice("CPU")
	cm, err := e.Compile(staticDescriptor(), Options{
		Hint:     HintNone,
		Streams:  3,
		Threads:  2,
		Affinity: AffinityNUMA,
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	cfg := cm.EffectiveConfig()
	if cfg["NUM_STREAMS"] != "3" {
		t.Errorf("NUM_STREAMS = %q, want 3", cfg["NUM_STREAMS"])
	}
	if cfg["INFERENCE_NUM_THREADS"] != "2" {
		t.Errorf("INFERENCE_NUM_THREADS = %q, want 2", cfg["INFERENCE_NUM_THREADS"])
	}
	if cfg["AFFINITY"] != "NUMA" {
		t.Errorf("AFFINITY = %q, want NUMA", cfg["AFFINITY"])
	}
	if cm.OptimalRequests() != 3 {
		t.Errorf("OptimalRequests() = %d, want streams", cm.OptimalRequests())
	}
}

func TestCompileLatencyHint(t *testing.T) {
	e, _ := ForDevice("CPU")
	cm, err := e.Compile(staticDescriptor(), Options{Hint: HintLatency})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if cm.OptimalRequests() != 1 {
		t.Errorf("OptimalRequests() = %d, want 1 under the latency hint", cm.OptimalRequests())
	}
	if cfg := cm.EffectiveConfig(); cfg["NUM_STREAMS"] != "1" {
		t.Errorf("NUM_STREAMS = %q, want 1 under the latency hint", cfg["NUM_STREAMS"])
	}
}

func TestCompileNilDescriptor(t *testing.T) {
	e, _ := ForDevice("CPU")
	if _, err := e.Compile(nil, Options{}); err == nil {
		t.Error("expected error for nil descriptor")
	}
}

func TestCreateRequestFillsTensors(t *testing.T) {
	e, _ := ForDevice("CPU")
	cm, _ := e.Compile(staticDescriptor(), Options{Seed: 42})

	req, err := cm.CreateRequest()
	if err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}
	tensors := req.Tensors()
	if len(tensors) != 1 {
		t.Fatalf("len(Tensors()) = %d, want 1", len(tensors))
	}
	if got, want := len(tensors[0].Values), 1*3*8*8; got != want {
		t.Errorf("tensor size = %d, want %d", got, want)
	}
}

func TestCreateRequestDynamicShape(t *testing.T) {
	desc := staticDescriptor()
	desc.Inputs[0].Shape = model.Shape{model.DynamicDim, 3, 8, 8}

	e, _ := ForDevice("CPU")
	cm, _ := e.Compile(desc, Options{})

	_, err := cm.CreateRequest()
	var empty *model.EmptyInputError
	if !errors.As(err, &empty) {
		t.Fatalf("err = %v, want *model.EmptyInputError", err)
	}
	if empty.Tensor != "data" {
		t.Errorf("Tensor = %q, want data", empty.Tensor)
	}
}

func TestRequestsGetDistinctData(t *testing.T) {
	e, _ := ForDevice("CPU")
	cm, _ := e.Compile(staticDescriptor(), Options{Seed: 7})

	a, _ := cm.CreateRequest()
	b, _ := cm.CreateRequest()

	same := true
	va, vb := a.Tensors()[0].Values, b.Tensors()[0].Values
	for i := range va {
		if va[i] != vb[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("two requests were filled with identical data")
	}
}

func TestInfer(t *testing.T) {
	e, _ := ForDevice("CPU")
	cm, _ := e.Compile(staticDescriptor(), Options{Streams: 2})

	req, err := cm.CreateRequest()
	if err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := req.Infer(); err != nil {
			t.Fatalf("Infer %d failed: %v", i, err)
		}
	}
}

func TestExecGraph(t *testing.T) {
	e, _ := ForDevice("CPU")
	cm, _ := e.Compile(staticDescriptor(), Options{Streams: 2})

	graph := cm.ExecGraph()
	for _, want := range []string{`name="tinynet"`, `streams="2"`, `name="conv1"`, `shape="[1,3,8,8]"`} {
		if !strings.Contains(graph, want) {
			t.Errorf("exec graph missing %s:\n%s", want, graph)
		}
	}
}

func TestDevices(t *testing.T) {
	found := false
	for _, d := range Devices() {
		if d == "CPU" {
			found = true
		}
	}
	if !found {
		t.Errorf("Devices() = %v, want to contain CPU", Devices())
	}
}

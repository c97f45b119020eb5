package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mkoval/inferbench/internal/model"
)

// Hint selects the performance profile used to derive stream and request
// recommendations when they are not set explicitly.
type Hint string

const (
	HintThroughput Hint = "throughput"
	HintLatency    Hint = "latency"
	HintNone       Hint = "none"
)

// Affinity controls worker-thread pinning, reported through the effective
// configuration snapshot.
type Affinity string

const (
	AffinityCore        Affinity = "CORE"
	AffinityNone        Affinity = "NONE"
	AffinityNUMA        Affinity = "NUMA"
	AffinityHybridAware Affinity = "HYBRID_AWARE"
)

// Options configure model compilation for a device. Zero values mean "let the
// engine decide".
type Options struct {
	Hint     Hint
	Streams  int
	Threads  int
	Affinity Affinity
	Seed     int64
}

// Engine compiles model descriptors for one device.
type Engine interface {
	Device() string
	Compile(desc *model.Descriptor, opt Options) (CompiledModel, error)
}

// CompiledModel is a device-ready workload.
type CompiledModel interface {
	Inputs() []model.TensorInfo
	// OptimalRequests recommends the async request-pool size for the
	// compiled configuration.
	OptimalRequests() int
	CreateRequest() (InferRequest, error)
	// EffectiveConfig snapshots the settings the device actually applied,
	// e.g. NUM_STREAMS and AFFINITY.
	EffectiveConfig() map[string]string
	// ExecGraph serializes the executable graph for offline inspection.
	ExecGraph() string
}

// InferRequest executes one inference over its bound input tensors. Requests
// are reusable but not safe for concurrent Infer calls.
type InferRequest interface {
	Infer() error
	Tensors() []*model.Tensor
}

var registry = map[string]Engine{}

// Register installs an engine under its device name. Called from engine
// implementations' init.
func Register(e Engine) {
	registry[strings.ToUpper(e.Device())] = e
}

// ForDevice resolves the engine for a device selector.
func ForDevice(device string) (Engine, error) {
	e, ok := registry[strings.ToUpper(strings.TrimSpace(device))]
	if !ok {
		return nil, fmt.Errorf("unsupported device %q (available: %s)", device, strings.Join(Devices(), ", "))
	}
	return e, nil
}

// Devices lists registered device names in stable order.
func Devices() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

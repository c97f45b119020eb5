package engine

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mkoval/inferbench/internal/model"
)

func init() {
	Register(&cpuEngine{})
}

// cpuEngine is the built-in reference device. It executes the descriptor's
// layer graph as synthetic floating-point work so the harness can be exercised
// end-to-end without an external runtime.
type cpuEngine struct{}

func (cpuEngine) Device() string { return "CPU" }

func (e *cpuEngine) Compile(desc *model.Descriptor, opt Options) (CompiledModel, error) {
	if desc == nil {
		return nil, fmt.Errorf("nil model descriptor")
	}

	hint := opt.Hint
	if hint == "" {
		hint = HintThroughput
	}

	streams := opt.Streams
	if streams <= 0 {
		switch hint {
		case HintLatency:
			streams = 1
		default:
			streams = clampInt(runtime.NumCPU()/2, 1, 8)
		}
	}

	threads := opt.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	affinity := opt.Affinity
	if affinity == "" {
		affinity = AffinityCore
	}

	layers := desc.Layers
	if len(layers) == 0 {
		layers = []model.Layer{{Name: "eltwise0", Type: "Eltwise", Cost: 1}}
	}

	cm := &cpuModel{
		desc:       desc,
		layers:     layers,
		hint:       hint,
		streams:    streams,
		threads:    threads,
		affinity:   affinity,
		seed:       opt.Seed,
		streamGate: make(chan struct{}, streams),
	}
	return cm, nil
}

type cpuModel struct {
	desc     *model.Descriptor
	layers   []model.Layer
	hint     Hint
	streams  int
	threads  int
	affinity Affinity
	seed     int64

	// streamGate bounds concurrently executing inferences to the stream
	// count, mirroring stream-limited device parallelism.
	streamGate chan struct{}
	created    int64
}

func (m *cpuModel) Inputs() []model.TensorInfo {
	return append([]model.TensorInfo(nil), m.desc.Inputs...)
}

func (m *cpuModel) OptimalRequests() int {
	if m.hint == HintLatency {
		return 1
	}
	return m.streams
}

func (m *cpuModel) CreateRequest() (InferRequest, error) {
	ordinal := atomic.AddInt64(&m.created, 1)
	tensors := make([]*model.Tensor, 0, len(m.desc.Inputs))
	for _, info := range m.desc.Inputs {
		t, err := model.NewTensor(info)
		if err != nil {
			return nil, err
		}
		tensors = append(tensors, t)
	}

	req := &cpuRequest{model: m, tensors: tensors}
	rng := rand.New(rand.NewSource(m.seed + ordinal))
	for _, t := range tensors {
		t.FillRandom(rng)
	}
	return req, nil
}

func (m *cpuModel) EffectiveConfig() map[string]string {
	return map[string]string{
		"NUM_STREAMS":           strconv.Itoa(m.streams),
		"INFERENCE_NUM_THREADS": strconv.Itoa(m.threads),
		"AFFINITY":              string(m.affinity),
		"PERFORMANCE_HINT":      strings.ToUpper(string(m.hint)),
	}
}

func (m *cpuModel) ExecGraph() string {
	var b strings.Builder
	name := m.desc.Name
	if name == "" {
		name = "model"
	}
	fmt.Fprintf(&b, "<net name=%q device=\"CPU\" streams=\"%d\">\n", name, m.streams)
	b.WriteString("  <layers>\n")
	for i, l := range m.layers {
		fmt.Fprintf(&b, "    <layer id=\"%d\" name=%q type=%q cost=\"%g\"/>\n", i, l.Name, l.Type, l.Cost)
	}
	b.WriteString("  </layers>\n")
	b.WriteString("  <inputs>\n")
	for _, in := range m.desc.Inputs {
		fmt.Fprintf(&b, "    <input name=%q shape=%q precision=%q/>\n", in.Name, in.Shape.String(), string(in.ElementType))
	}
	b.WriteString("  </inputs>\n")
	b.WriteString("</net>\n")
	return b.String()
}

type cpuRequest struct {
	model   *cpuModel
	tensors []*model.Tensor
	mu      sync.Mutex
	sink    float64
}

func (r *cpuRequest) Tensors() []*model.Tensor {
	return r.tensors
}

// Infer runs the synthetic layer graph over the request's tensors. One stream
// slot is held for the duration, so at most NUM_STREAMS inferences make
// progress at once.
func (r *cpuRequest) Infer() error {
	r.model.streamGate <- struct{}{}
	defer func() { <-r.model.streamGate }()

	acc := 0.0
	for _, layer := range r.model.layers {
		cost := layer.Cost
		if cost <= 0 {
			cost = 1
		}
		passes := int(math.Ceil(cost))
		for p := 0; p < passes; p++ {
			for _, t := range r.tensors {
				for _, v := range t.Values {
					acc += v*1.0000001 + float64(p)
				}
			}
		}
	}

	// Keep the accumulator observable so the work is not optimized away.
	r.mu.Lock()
	r.sink = acc
	r.mu.Unlock()
	return nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package model

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ElementType identifies the scalar kind of a tensor's elements.
type ElementType string

const (
	ElementF32  ElementType = "f32"
	ElementF16  ElementType = "f16"
	ElementI64  ElementType = "i64"
	ElementI32  ElementType = "i32"
	ElementI8   ElementType = "i8"
	ElementU8   ElementType = "u8"
	ElementBool ElementType = "boolean"
)

// Size returns the element width in bytes.
func (e ElementType) Size() int {
	switch e {
	case ElementF32, ElementI32:
		return 4
	case ElementI64:
		return 8
	case ElementF16:
		return 2
	default:
		return 1
	}
}

func (e ElementType) valid() bool {
	switch e {
	case ElementF32, ElementF16, ElementI64, ElementI32, ElementI8, ElementU8, ElementBool:
		return true
	}
	return false
}

// TensorInfo describes one model input or output.
type TensorInfo struct {
	Name        string      `yaml:"name"`
	Shape       Shape       `yaml:"shape"`
	ElementType ElementType `yaml:"element_type"`
	Layout      string      `yaml:"layout"`
}

// ByteSize returns the static byte footprint, or 0 when the shape is dynamic.
func (t TensorInfo) ByteSize() int64 {
	n := t.Shape.NumElements()
	if n <= 0 {
		return 0
	}
	return n * int64(t.ElementType.Size())
}

// Descriptor is a compiled-workload definition loaded from a model artifact.
type Descriptor struct {
	Name    string       `yaml:"name"`
	Version int          `yaml:"version"`
	Inputs  []TensorInfo `yaml:"inputs"`
	Outputs []TensorInfo `yaml:"outputs"`
	// Layers drives the synthetic compute cost of one inference pass.
	Layers []Layer `yaml:"layers"`
}

// Layer is one node of the workload's execution graph.
type Layer struct {
	Name string  `yaml:"name"`
	Type string  `yaml:"type"`
	Cost float64 `yaml:"cost"`
}

// Load reads and validates a model descriptor from path.
func Load(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var desc Descriptor
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("parse model %s: %w", path, err)
	}
	if err := desc.validate(); err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}
	return &desc, nil
}

func (d *Descriptor) validate() error {
	if len(d.Inputs) == 0 {
		return fmt.Errorf("model declares no inputs")
	}
	seen := map[string]bool{}
	for _, in := range d.Inputs {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return fmt.Errorf("input with empty name")
		}
		if seen[name] {
			return fmt.Errorf("duplicate input %q", name)
		}
		seen[name] = true
		if !in.ElementType.valid() {
			return fmt.Errorf("input %q: unknown element type %q", name, in.ElementType)
		}
		if err := in.Shape.validate(); err != nil {
			return fmt.Errorf("input %q: %w", name, err)
		}
	}
	for _, out := range d.Outputs {
		if !out.ElementType.valid() {
			return fmt.Errorf("output %q: unknown element type %q", out.Name, out.ElementType)
		}
	}
	return nil
}

// Input returns the input tensor info with the given name.
func (d *Descriptor) Input(name string) (TensorInfo, bool) {
	for _, in := range d.Inputs {
		if in.Name == name {
			return in, true
		}
	}
	return TensorInfo{}, false
}

// ApplyShapeOverrides reshapes inputs in place. An override keyed by the empty
// name applies to every input (the anonymous "[...]" form).
func (d *Descriptor) ApplyShapeOverrides(overrides map[string]Shape) error {
	if len(overrides) == 0 {
		return nil
	}
	for name, shape := range overrides {
		if name == "" {
			for i := range d.Inputs {
				d.Inputs[i].Shape = shape.clone()
			}
			continue
		}
		idx := -1
		for i := range d.Inputs {
			if d.Inputs[i].Name == name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("shape override for unknown input %q", name)
		}
		d.Inputs[idx].Shape = shape.clone()
	}
	return nil
}

// ApplyLayoutOverrides replaces input layouts. Same naming rules as shapes.
func (d *Descriptor) ApplyLayoutOverrides(overrides map[string]string) error {
	for name, layout := range overrides {
		if name == "" {
			for i := range d.Inputs {
				d.Inputs[i].Layout = layout
			}
			continue
		}
		idx := -1
		for i := range d.Inputs {
			if d.Inputs[i].Name == name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("layout override for unknown input %q", name)
		}
		d.Inputs[idx].Layout = layout
	}
	return nil
}

// ApplyBatch sets the batch dimension of every input to n. The batch axis is
// the position of 'N' in the input's layout, defaulting to dimension 0.
func (d *Descriptor) ApplyBatch(n int64) error {
	if n <= 0 {
		return nil
	}
	for i := range d.Inputs {
		in := &d.Inputs[i]
		if len(in.Shape) == 0 {
			continue
		}
		axis := 0
		if in.Layout != "" {
			pos := strings.IndexByte(strings.Trim(in.Layout, "[]"), 'N')
			if pos < 0 {
				continue
			}
			axis = pos
		}
		if axis >= len(in.Shape) {
			return fmt.Errorf("input %q: batch axis %d out of range for shape %s", in.Name, axis, in.Shape)
		}
		in.Shape[axis] = n
	}
	return nil
}

// TotalElements sums the static element counts of all inputs. Returns 0 if any
// input is still dynamic.
func (d *Descriptor) TotalElements() int64 {
	var total int64
	for _, in := range d.Inputs {
		n := in.Shape.NumElements()
		if n <= 0 {
			return 0
		}
		total += n
	}
	return total
}

package model

import (
	"fmt"
	"math"
	"math/rand"
)

// EmptyInputError reports a tensor whose byte footprint could not be
// determined before dispatch. The benchmark cannot synthesize data for it.
type EmptyInputError struct {
	Tensor string
	Shape  Shape
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("input %q has dynamic shape %s with no concrete size; set a data shape before dispatch", e.Tensor, e.Shape)
}

// Tensor is a concrete buffer bound to one model input. Element values are
// held as float64 regardless of element type; the type controls the value
// range and the synthetic engine's arithmetic only.
type Tensor struct {
	Info   TensorInfo
	Values []float64
}

// NewTensor allocates a buffer for info. Dynamic shapes are rejected with
// EmptyInputError.
func NewTensor(info TensorInfo) (*Tensor, error) {
	n := info.Shape.NumElements()
	if n <= 0 {
		return nil, &EmptyInputError{Tensor: info.Name, Shape: info.Shape}
	}
	return &Tensor{Info: info, Values: make([]float64, n)}, nil
}

// fillSpec gives the random generation parameters for one element kind.
// Integer kinds use an exclusive upper bound, so max is bumped by one to make
// the nominal maximum reachable.
type fillSpec struct {
	min, max float64
	integer  bool
}

var fillSpecs = map[ElementType]fillSpec{
	ElementF32:  {0, 255, false},
	ElementF16:  {0, 255, false},
	ElementI64:  {0, 255, true},
	ElementI32:  {0, 255, true},
	ElementI8:   {math.MinInt8, math.MaxInt8, true},
	ElementU8:   {0, math.MaxUint8, true},
	ElementBool: {0, 1, true},
}

// FillRandom populates the tensor with uniform random values drawn from the
// element kind's range.
func (t *Tensor) FillRandom(rng *rand.Rand) {
	spec, ok := fillSpecs[t.Info.ElementType]
	if !ok {
		spec = fillSpec{0, 1, false}
	}
	max := spec.max
	if spec.integer {
		max++
	}
	for i := range t.Values {
		v := spec.min + rng.Float64()*(max-spec.min)
		if spec.integer {
			v = math.Floor(v)
			if v > spec.max {
				v = spec.max
			}
		}
		t.Values[i] = v
	}
}

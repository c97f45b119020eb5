package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Shape is an ordered list of tensor dimensions. A dimension of -1 is dynamic
// (the "?" form in override strings).
type Shape []int64

// DynamicDim marks a dimension whose extent is not yet determined.
const DynamicDim int64 = -1

func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		if d == DynamicDim {
			parts[i] = "?"
		} else {
			parts[i] = strconv.FormatInt(d, 10)
		}
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// IsStatic reports whether every dimension is concrete.
func (s Shape) IsStatic() bool {
	for _, d := range s {
		if d <= 0 {
			return false
		}
	}
	return true
}

// NumElements returns the product of all dimensions, or 0 when the shape is
// dynamic or empty.
func (s Shape) NumElements() int64 {
	if len(s) == 0 || !s.IsStatic() {
		return 0
	}
	n := int64(1)
	for _, d := range s {
		n *= d
	}
	return n
}

func (s Shape) clone() Shape {
	return append(Shape(nil), s...)
}

func (s Shape) validate() error {
	for _, d := range s {
		if d == 0 || d < DynamicDim {
			return fmt.Errorf("invalid dimension %d in shape %s", d, s)
		}
	}
	return nil
}

// ParseShapes parses a shape-override string of the form
// "name1[1,3,227,227],name2[?,3,?,?]" or the anonymous "[2,3,227,227]" which
// applies to every input. Dynamic dimensions are written "?" or "-1".
func ParseShapes(spec string) (map[string]Shape, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	out := map[string]Shape{}
	for _, part := range splitBracketed(spec) {
		open := strings.IndexByte(part, '[')
		close_ := strings.LastIndexByte(part, ']')
		if open < 0 || close_ != len(part)-1 {
			return nil, fmt.Errorf("malformed shape %q, expected name[d,...] or [d,...]", part)
		}
		name := strings.TrimSpace(part[:open])
		shape, err := parseDims(part[open+1 : close_])
		if err != nil {
			return nil, fmt.Errorf("shape %q: %w", part, err)
		}
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("duplicate shape override for %q", name)
		}
		out[name] = shape
	}
	return out, nil
}

// ParseDataShapes parses the concrete-shape list used to resolve dynamic
// inputs, e.g. "[1,3,227,227][1,3,227,227]" (positional, matched to inputs in
// declaration order) or the named form accepted by ParseShapes. Every parsed
// shape must be fully static.
func ParseDataShapes(spec string) ([]Shape, map[string]Shape, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil, nil
	}
	if strings.HasPrefix(spec, "[") && !strings.Contains(spec, ",[") {
		// Positional "[...][...]" form.
		var shapes []Shape
		rest := spec
		for rest != "" {
			if rest[0] != '[' {
				return nil, nil, fmt.Errorf("malformed data shape %q", spec)
			}
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return nil, nil, fmt.Errorf("unterminated data shape %q", spec)
			}
			shape, err := parseDims(rest[1:end])
			if err != nil {
				return nil, nil, err
			}
			if !shape.IsStatic() {
				return nil, nil, fmt.Errorf("data shape %s must be static", shape)
			}
			shapes = append(shapes, shape)
			rest = rest[end+1:]
		}
		return shapes, nil, nil
	}
	named, err := ParseShapes(spec)
	if err != nil {
		return nil, nil, err
	}
	for name, shape := range named {
		if !shape.IsStatic() {
			return nil, nil, fmt.Errorf("data shape for %q must be static, got %s", name, shape)
		}
	}
	return nil, named, nil
}

// ParseLayouts parses layout overrides like "[NCHW]" or "data[NCHW],prob[NC]".
func ParseLayouts(spec string) (map[string]string, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	out := map[string]string{}
	for _, part := range splitBracketed(spec) {
		open := strings.IndexByte(part, '[')
		close_ := strings.LastIndexByte(part, ']')
		if open < 0 || close_ != len(part)-1 {
			return nil, fmt.Errorf("malformed layout %q, expected name[NCHW] or [NCHW]", part)
		}
		name := strings.TrimSpace(part[:open])
		layout := strings.TrimSpace(part[open+1 : close_])
		if layout == "" {
			return nil, fmt.Errorf("empty layout in %q", part)
		}
		out[name] = layout
	}
	return out, nil
}

// splitBracketed splits on commas that sit outside square brackets.
func splitBracketed(spec string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(spec); i++ {
		switch spec[i] {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(spec[start:i]))
				start = i + 1
			}
		}
	}
	if tail := strings.TrimSpace(spec[start:]); tail != "" {
		parts = append(parts, tail)
	}
	return parts
}

func parseDims(body string) (Shape, error) {
	fields := strings.Split(body, ",")
	shape := make(Shape, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "?" || f == "-1" {
			shape = append(shape, DynamicDim)
			continue
		}
		d, err := strconv.ParseInt(f, 10, 64)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid dimension %q", f)
		}
		shape = append(shape, d)
	}
	return shape, nil
}

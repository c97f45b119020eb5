package model

import (
	"testing"
)

func TestParseShapesNamed(t *testing.T) {
	shapes, err := ParseShapes("data[2,3,227,227]")
	if err != nil {
		t.Fatalf("ParseShapes failed: %v", err)
	}
	got, ok := shapes["data"]
	if !ok {
		t.Fatal("expected shape for input data")
	}
	want := Shape{2, 3, 227, 227}
	if got.String() != want.String() {
		t.Errorf("shape = %s, want %s", got, want)
	}
}

func TestParseShapesAnonymous(t *testing.T) {
	shapes, err := ParseShapes("[1,3,8,8]")
	if err != nil {
		t.Fatalf("ParseShapes failed: %v", err)
	}
	if _, ok := shapes[""]; !ok {
		t.Fatal("expected anonymous shape entry")
	}
}

func TestParseShapesMultiple(t *testing.T) {
	shapes, err := ParseShapes("a[1,2],b[?,4]")
	if err != nil {
		t.Fatalf("ParseShapes failed: %v", err)
	}
	if len(shapes) != 2 {
		t.Fatalf("len(shapes) = %d, want 2", len(shapes))
	}
	if shapes["b"][0] != DynamicDim {
		t.Errorf("b[0] = %d, want dynamic", shapes["b"][0])
	}
}

func TestParseShapesMalformed(t *testing.T) {
	for _, spec := range []string{"data", "data[1,", "data[0]", "[1,x]"} {
		if _, err := ParseShapes(spec); err == nil {
			t.Errorf("ParseShapes(%q) succeeded, want error", spec)
		}
	}
}

func TestParseDataShapesPositional(t *testing.T) {
	positional, named, err := ParseDataShapes("[1,3,227,227][1,3,227,227]")
	if err != nil {
		t.Fatalf("ParseDataShapes failed: %v", err)
	}
	if named != nil {
		t.Fatal("expected positional form, got named")
	}
	if len(positional) != 2 {
		t.Fatalf("len(positional) = %d, want 2", len(positional))
	}
	if n := positional[0].NumElements(); n != 1*3*227*227 {
		t.Errorf("NumElements = %d, want %d", n, 1*3*227*227)
	}
}

func TestParseDataShapesRejectsDynamic(t *testing.T) {
	if _, _, err := ParseDataShapes("[?,3,8,8]"); err == nil {
		t.Error("expected error for dynamic data shape")
	}
	if _, _, err := ParseDataShapes("data[?,3]"); err == nil {
		t.Error("expected error for dynamic named data shape")
	}
}

func TestParseLayouts(t *testing.T) {
	layouts, err := ParseLayouts("[NCHW]")
	if err != nil {
		t.Fatalf("ParseLayouts failed: %v", err)
	}
	if layouts[""] != "NCHW" {
		t.Errorf("anonymous layout = %q, want NCHW", layouts[""])
	}

	layouts, err = ParseLayouts("data[NHWC]")
	if err != nil {
		t.Fatalf("ParseLayouts failed: %v", err)
	}
	if layouts["data"] != "NHWC" {
		t.Errorf("data layout = %q, want NHWC", layouts["data"])
	}
}

func TestShapeNumElements(t *testing.T) {
	tests := []struct {
		shape Shape
		want  int64
	}{
		{Shape{1, 3, 227, 227}, 154587},
		{Shape{DynamicDim, 3, 8, 8}, 0},
		{Shape{}, 0},
		{Shape{5}, 5},
	}
	for _, tt := range tests {
		if got := tt.shape.NumElements(); got != tt.want {
			t.Errorf("NumElements(%s) = %d, want %d", tt.shape, got, tt.want)
		}
	}
}

func TestShapeString(t *testing.T) {
	s := Shape{DynamicDim, 3, DynamicDim}
	if got := s.String(); got != "[?,3,?]" {
		t.Errorf("String() = %q, want [?,3,?]", got)
	}
}

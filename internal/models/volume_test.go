package models

import (
	"testing"
)

// TestGridIndexRoundTrip verifies that Index and Coord are inverses and that x varies fastest
func TestGridIndexRoundTrip(t *testing.T) {
	g := Grid{X: 4, Y: 3, Z: 2}

	if g.Index(Coord{X: 1}) != 1 {
		t.Errorf("Expected x to vary fastest, got index %d", g.Index(Coord{X: 1}))
	}
	if g.Index(Coord{Y: 1}) != 4 {
		t.Errorf("Expected y stride 4, got %d", g.Index(Coord{Y: 1}))
	}
	if g.Index(Coord{Z: 1}) != 12 {
		t.Errorf("Expected z stride 12, got %d", g.Index(Coord{Z: 1}))
	}

	for idx := 0; idx < g.Len(); idx++ {
		c := g.Coord(idx)
		if !g.Contains(c) {
			t.Fatalf("Coord(%d) = %v lies outside the grid", idx, c)
		}
		if got := g.Index(c); got != idx {
			t.Fatalf("Index(Coord(%d)) = %d", idx, got)
		}
	}
}

func TestGridContains(t *testing.T) {
	g := Grid{X: 2, Y: 2, Z: 2}
	tests := []struct {
		c    Coord
		want bool
	}{
		{Coord{X: 0, Y: 0, Z: 0}, true},
		{Coord{X: 1, Y: 1, Z: 1}, true},
		{Coord{X: -1, Y: 0, Z: 0}, false},
		{Coord{X: 0, Y: 2, Z: 0}, false},
		{Coord{X: 0, Y: 0, Z: 2}, false},
	}
	for _, tt := range tests {
		if got := g.Contains(tt.c); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.c, got, tt.want)
		}
	}
}

// TestVolumeChannels verifies that channel vectors are contiguous per voxel
func TestVolumeChannels(t *testing.T) {
	v := NewVolume(Grid{X: 2, Y: 2, Z: 1}, 3)
	c := Coord{X: 1, Y: 1}

	v.Set(c, 0, 1)
	v.Set(c, 2, 5)

	vec := v.At(c)
	if len(vec) != 3 {
		t.Fatalf("Expected 3 channels, got %d", len(vec))
	}
	if vec[0] != 1 || vec[1] != 0 || vec[2] != 5 {
		t.Errorf("Unexpected channel vector %v", vec)
	}

	if cap(vec) != 3 {
		t.Errorf("At() view is not capacity-limited: cap %d", cap(vec))
	}
}

func TestParseAxis(t *testing.T) {
	for in, want := range map[string]Axis{"x": AxisX, "Y": AxisY, " z ": AxisZ} {
		got, err := ParseAxis(in)
		if err != nil {
			t.Fatalf("ParseAxis(%q) failed: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseAxis(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseAxis("w"); err == nil {
		t.Error("Expected error for invalid axis")
	}

	c := Coord{X: 1, Y: 2, Z: 3}
	if AxisY.Component(c) != 2 {
		t.Errorf("AxisY.Component = %d, want 2", AxisY.Component(c))
	}
	if got := AxisZ.With(c, 9); got != (Coord{X: 1, Y: 2, Z: 9}) {
		t.Errorf("AxisZ.With = %v", got)
	}
}

// TestNewMask verifies mask derivation and raster ordering (x slowest)
func TestNewMask(t *testing.T) {
	g := Grid{X: 2, Y: 2, Z: 2}
	v := NewVolume(g, 1)
	v.Set(Coord{X: 1, Y: 0, Z: 0}, 0, 3)
	v.Set(Coord{X: 0, Y: 1, Z: 1}, 0, 1)
	v.Set(Coord{X: 0, Y: 0, Z: 1}, 0, -1)

	m := NewMask(v)
	want := []Coord{{X: 0, Y: 0, Z: 1}, {X: 0, Y: 1, Z: 1}, {X: 1, Y: 0, Z: 0}}
	if m.Len() != len(want) {
		t.Fatalf("Expected %d active voxels, got %d", len(want), m.Len())
	}
	for i, c := range want {
		if m.Coords[i] != c {
			t.Errorf("Coords[%d] = %v, want %v", i, m.Coords[i], c)
		}
	}
	if !m.Contains(Coord{X: 1, Y: 0, Z: 0}) || m.Contains(Coord{X: 1, Y: 1, Z: 1}) {
		t.Error("Contains disagrees with the mask volume")
	}
	if m.Contains(Coord{X: 5, Y: 0, Z: 0}) {
		t.Error("Contains must be false outside the grid")
	}
}

func TestLabelVolumeClone(t *testing.T) {
	l := NewLabelVolume(Grid{X: 2, Y: 1, Z: 1})
	l.Set(Coord{X: 1, Y: 0, Z: 0}, 80)

	c := l.Clone()
	c.Set(Coord{X: 1, Y: 0, Z: 0}, 70)

	if l.At(Coord{X: 1, Y: 0, Z: 0}) != 80 {
		t.Error("Clone shares storage with the original")
	}
	if f := c.Float64s(); f[1] != 70 || f[0] != 0 {
		t.Errorf("Float64s() = %v", f)
	}
}

package models

import (
	"fmt"
	"strings"
)

// Coord addresses a single voxel of a grid
type Coord struct {
	X, Y, Z int
}

// Axis names one of the three spatial axes of a grid
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// ParseAxis converts "x", "y" or "z" (any case) into an Axis
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("invalid axis: %q (must be x, y, or z)", s)
}

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	}
	return fmt.Sprintf("Axis(%d)", int(a))
}

// Component returns the coordinate of c along the axis
func (a Axis) Component(c Coord) int {
	switch a {
	case AxisY:
		return c.Y
	case AxisZ:
		return c.Z
	}
	return c.X
}

// With returns c with its coordinate along the axis replaced by v
func (a Axis) With(c Coord, v int) Coord {
	switch a {
	case AxisY:
		c.Y = v
	case AxisZ:
		c.Z = v
	default:
		c.X = v
	}
	return c
}

// Grid is the spatial extent (in voxels) shared by every volume of a run.
// Samples are laid out in NIfTI order: x varies fastest, then y, then z.
type Grid struct {
	X, Y, Z int
}

// Len returns the number of voxels in the grid
func (g Grid) Len() int {
	return g.X * g.Y * g.Z
}

// Size returns the extent of the grid along the axis
func (g Grid) Size(a Axis) int {
	switch a {
	case AxisY:
		return g.Y
	case AxisZ:
		return g.Z
	}
	return g.X
}

// Contains reports whether c lies inside the grid
func (g Grid) Contains(c Coord) bool {
	return c.X >= 0 && c.X < g.X &&
		c.Y >= 0 && c.Y < g.Y &&
		c.Z >= 0 && c.Z < g.Z
}

// Index returns the flat voxel index of c
func (g Grid) Index(c Coord) int {
	return c.X + g.X*(c.Y+g.Y*c.Z)
}

// Coord is the inverse of Index
func (g Grid) Coord(idx int) Coord {
	x := idx % g.X
	idx /= g.X
	return Coord{X: x, Y: idx % g.Y, Z: idx / g.Y}
}

func (g Grid) String() string {
	return fmt.Sprintf("%dx%dx%d", g.X, g.Y, g.Z)
}

// Volume is a 3-D grid of non-negative samples with Channels values per
// voxel. The values of one voxel are stored contiguously.
type Volume struct {
	// Grid is the spatial extent of the volume
	Grid Grid

	// Channels is the number of values held by each voxel (K)
	Channels int

	// Data holds Grid.Len()*Channels samples
	Data []float64
}

// NewVolume allocates a zeroed volume
func NewVolume(g Grid, channels int) *Volume {
	return &Volume{
		Grid:     g,
		Channels: channels,
		Data:     make([]float64, g.Len()*channels),
	}
}

// At returns the channel vector of the voxel at c. The returned slice
// aliases the volume's storage.
func (v *Volume) At(c Coord) []float64 {
	off := v.Grid.Index(c) * v.Channels
	return v.Data[off : off+v.Channels : off+v.Channels]
}

// Value returns a single channel value
func (v *Volume) Value(c Coord, ch int) float64 {
	return v.Data[v.Grid.Index(c)*v.Channels+ch]
}

// Set stores a single channel value
func (v *Volume) Set(c Coord, ch int, value float64) {
	v.Data[v.Grid.Index(c)*v.Channels+ch] = value
}

// LabelVolume is a single-channel volume of integer labels. Zero means
// "not in mask / untouched".
type LabelVolume struct {
	Grid Grid
	Data []uint32
}

// NewLabelVolume allocates a label volume filled with zeros
func NewLabelVolume(g Grid) *LabelVolume {
	return &LabelVolume{Grid: g, Data: make([]uint32, g.Len())}
}

// At returns the label at c
func (l *LabelVolume) At(c Coord) uint32 {
	return l.Data[l.Grid.Index(c)]
}

// Set stores the label at c
func (l *LabelVolume) Set(c Coord, label uint32) {
	l.Data[l.Grid.Index(c)] = label
}

// Clone returns a deep copy
func (l *LabelVolume) Clone() *LabelVolume {
	data := make([]uint32, len(l.Data))
	copy(data, l.Data)
	return &LabelVolume{Grid: l.Grid, Data: data}
}

// Float64s returns the labels as float64 samples, in storage order
func (l *LabelVolume) Float64s() []float64 {
	out := make([]float64, len(l.Data))
	for i, v := range l.Data {
		out[i] = float64(v)
	}
	return out
}

package models

// Mask is the set of active voxels of a run: every voxel whose first
// channel is non-zero in the mask volume.
type Mask struct {
	// Grid is the extent of the mask volume
	Grid Grid

	// Coords lists the active voxels in raster order, x slowest, then y,
	// then z.
	Coords []Coord

	active []bool
}

// NewMask derives the mask from the first channel of v
func NewMask(v *Volume) *Mask {
	g := v.Grid
	m := &Mask{
		Grid:   g,
		active: make([]bool, g.Len()),
	}
	for x := 0; x < g.X; x++ {
		for y := 0; y < g.Y; y++ {
			for z := 0; z < g.Z; z++ {
				c := Coord{X: x, Y: y, Z: z}
				if v.Value(c, 0) != 0 {
					m.active[g.Index(c)] = true
					m.Coords = append(m.Coords, c)
				}
			}
		}
	}
	return m
}

// Contains reports whether c is an active voxel
func (m *Mask) Contains(c Coord) bool {
	if !m.Grid.Contains(c) {
		return false
	}
	return m.active[m.Grid.Index(c)]
}

// Len returns the number of active voxels
func (m *Mask) Len() int {
	return len(m.Coords)
}

package voting

import "ccvote/internal/models"

// neighborOffsets holds the 26 offsets of a voxel's 26-connected
// neighbourhood, centre excluded.
var neighborOffsets = func() []models.Coord {
	offsets := make([]models.Coord, 0, 26)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				offsets = append(offsets, models.Coord{X: dx, Y: dy, Z: dz})
			}
		}
	}
	return offsets
}()

// AppendNeighbors appends to dst the 26-connected neighbours of c that lie
// inside g. Out-of-range neighbours are omitted, never wrapped or padded.
func AppendNeighbors(dst []models.Coord, g models.Grid, c models.Coord) []models.Coord {
	for _, o := range neighborOffsets {
		n := models.Coord{X: c.X + o.X, Y: c.Y + o.Y, Z: c.Z + o.Z}
		if g.Contains(n) {
			dst = append(dst, n)
		}
	}
	return dst
}

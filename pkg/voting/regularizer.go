package voting

import (
	"gonum.org/v1/gonum/floats"

	"ccvote/internal/models"
)

// Weights controls how a voxel's own vote is mixed with its neighbours'
type Weights struct {
	// Central is the weight of the voxel's own vote vector
	Central float64

	// Neighbors is the total weight shared evenly by the contributing
	// neighbours, whatever their number
	Neighbors float64
}

// DefaultWeights gives the voxel and its neighbourhood equal weight
var DefaultWeights = Weights{Central: 0.5, Neighbors: 0.5}

// Regularizer computes smoothed vote vectors over a fixed vote field. It
// never mutates the field, so it is safe for concurrent use.
type Regularizer struct {
	field   *models.Volume
	weights Weights
}

// NewRegularizer creates a regularizer reading the given vote field
func NewRegularizer(field *models.Volume, w Weights) *Regularizer {
	return &Regularizer{field: field, weights: w}
}

// Regularize returns the smoothed vote vector at c.
//
// A neighbour contributes when at least one of its channels is non-zero.
// With n > 0 contributing neighbours the result is
//
//	center*Central + sum(neighbours)*(Neighbors/n)
//
// With no contributing neighbour the voxel's own vector is returned
// unscaled, so an isolated vote is preserved rather than attenuated.
func (r *Regularizer) Regularize(c models.Coord) []float64 {
	var buf [26]models.Coord
	vec, _ := r.regularize(c, buf[:0])
	return vec
}

// regularize also reports the number of contributing neighbours. scratch
// is reused for neighbour enumeration.
func (r *Regularizer) regularize(c models.Coord, scratch []models.Coord) ([]float64, int) {
	center := r.field.At(c)
	out := make([]float64, len(center))

	n, sum := r.neighborSum(c, scratch)
	if n == 0 {
		copy(out, center)
		return out, 0
	}

	floats.ScaleTo(out, r.weights.Central, center)
	floats.AddScaled(out, r.weights.Neighbors/float64(n), sum)
	return out, n
}

// neighborSum returns the number of contributing neighbours of c and the
// sum of their vote vectors
func (r *Regularizer) neighborSum(c models.Coord, scratch []models.Coord) (int, []float64) {
	sum := make([]float64, r.field.Channels)
	n := 0
	for _, nb := range AppendNeighbors(scratch, r.field.Grid, c) {
		vec := r.field.At(nb)
		if floats.Max(vec) == 0 {
			continue
		}
		floats.Add(sum, vec)
		n++
	}
	return n, sum
}

package voting

import "errors"

var (
	// ErrShapeMismatch is returned when input volumes do not share one grid
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrEmptyMask is returned when the mask has no active voxel
	ErrEmptyMask = errors.New("empty mask")

	// ErrInvalidVote is returned for negative or NaN track densities
	ErrInvalidVote = errors.New("invalid vote value")
)

package voting

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"ccvote/internal/models"
)

// DefaultExtension is the number of slices added on each side of the
// central slice
const DefaultExtension = 3

// CentralSlice returns the median coordinate of the mask voxels along the
// axis. For an even number of voxels the median is the mean of the two
// middle coordinates, and a half-integer median is truncated toward zero,
// not rounded: coordinates {1, 2} give slice 1, not 2.
func CentralSlice(mask *models.Mask, axis models.Axis) (int, error) {
	if mask.Len() == 0 {
		return 0, ErrEmptyMask
	}
	pos := make([]float64, mask.Len())
	for i, c := range mask.Coords {
		pos[i] = float64(axis.Component(c))
	}
	median, err := stats.Median(pos)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrEmptyMask, err)
	}
	return int(median), nil
}

// ExtendSlab widens the label pattern for display. The extended volume
// starts as a copy of result; then, for every slice s in
// [central-extension, central+extension] along the axis and every mask
// voxel c, the voxel c moved to slice s receives result[c]. Each voxel's
// own coordinate along the axis is discarded, so the pattern seen across
// the other two axes is replicated over the whole slab. Slices outside the
// grid are skipped. When several mask voxels project onto the same
// position the last one in raster order wins.
//
// The central slice is returned alongside the extended volume.
func ExtendSlab(result *models.LabelVolume, mask *models.Mask, axis models.Axis, extension int) (*models.LabelVolume, int, error) {
	if result.Grid != mask.Grid {
		return nil, 0, fmt.Errorf("%w: result has extents %v, mask has %v", ErrShapeMismatch, result.Grid, mask.Grid)
	}
	if extension < 0 {
		return nil, 0, fmt.Errorf("negative slab extension %d", extension)
	}
	central, err := CentralSlice(mask, axis)
	if err != nil {
		return nil, 0, err
	}

	extended := result.Clone()
	size := result.Grid.Size(axis)
	for s := central - extension; s <= central+extension; s++ {
		if s < 0 || s >= size {
			continue
		}
		for _, c := range mask.Coords {
			extended.Set(axis.With(c, s), result.At(c))
		}
	}

	return extended, central, nil
}

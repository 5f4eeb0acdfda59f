package voting

import (
	"fmt"
	"math"

	"ccvote/internal/models"
)

// StackChannels builds the K-channel vote field from K single-channel
// track density volumes. Channel i holds inputs[i]; the input order defines
// the correspondence with the output labels. Every voxel outside the mask
// has its whole channel vector zeroed. No resampling is performed: all
// inputs must share the mask's grid.
func StackChannels(mask *models.Mask, inputs []*models.Volume) (*models.Volume, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no input volumes to stack")
	}
	g := mask.Grid
	for i, in := range inputs {
		if in.Grid != g {
			return nil, fmt.Errorf("%w: input %d has extents %v, mask has %v", ErrShapeMismatch, i, in.Grid, g)
		}
		if in.Channels != 1 {
			return nil, fmt.Errorf("%w: input %d has %d channels, expected 1", ErrShapeMismatch, i, in.Channels)
		}
	}

	k := len(inputs)
	field := models.NewVolume(g, k)
	for _, c := range mask.Coords {
		idx := g.Index(c)
		vec := field.Data[idx*k : (idx+1)*k]
		for ch, in := range inputs {
			v := in.Data[idx]
			if v < 0 || math.IsNaN(v) {
				return nil, fmt.Errorf("%w: input %d has value %g at %v", ErrInvalidVote, ch, v, c)
			}
			vec[ch] = v
		}
	}

	return field, nil
}

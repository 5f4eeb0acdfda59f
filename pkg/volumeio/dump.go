package volumeio

import (
	"fmt"
	"path/filepath"

	"github.com/kshedden/gonpy"
	"gonum.org/v1/gonum/mat"

	"ccvote/internal/models"
	"ccvote/pkg/logging"
)

// DumpVotes writes the regularized vote matrix (one row per mask voxel) and
// the matching voxel coordinates as numpy .npy files in dir
func DumpVotes(dir, subject string, coords []models.Coord, votes *mat.Dense) error {
	rows, cols := votes.Dims()
	if rows != len(coords) {
		return fmt.Errorf("vote matrix has %d rows for %d mask voxels", rows, len(coords))
	}

	data := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		data = append(data, votes.RawRowView(i)...)
	}
	votesPath := filepath.Join(dir, subject+votesSuffix)
	if err := writeNpy(votesPath, []int{rows, cols}, data); err != nil {
		return err
	}

	xyz := make([]float64, 0, 3*len(coords))
	for _, c := range coords {
		xyz = append(xyz, float64(c.X), float64(c.Y), float64(c.Z))
	}
	coordsPath := filepath.Join(dir, subject+coordsSuffix)
	if err := writeNpy(coordsPath, []int{len(coords), 3}, xyz); err != nil {
		return err
	}

	logging.Infof("Dumped %dx%d regularized votes to %s", rows, cols, votesPath)
	return nil
}

func writeNpy(path string, shape []int, data []float64) error {
	w, err := gonpy.NewFileWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	w.Shape = shape
	w.Version = 2
	if err := w.WriteFloat64(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

package volumeio

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"ccvote/internal/models"
	"ccvote/pkg/logging"
	"ccvote/pkg/nifti"
	"ccvote/pkg/voting"
)

// Inputs holds the volumes read for one run
type Inputs struct {
	// MaskHeader is the header of the mask file; outputs copy its geometry
	MaskHeader nifti.Header

	// Mask is the set of active voxels
	Mask *models.Mask

	// Densities holds one single-channel volume per track density image,
	// in command-line order
	Densities []*models.Volume
}

// LoadInputs reads the mask named by paths and the track density images.
// Every density must be a single 3-D volume on the mask's grid.
func LoadInputs(paths Paths, tdis []string) (*Inputs, error) {
	maskVol, hdr, err := LoadMask(paths.Mask)
	if err != nil {
		return nil, err
	}
	logging.Infof("Loaded mask %s (%v)", paths.Mask, maskVol.Grid)

	in := &Inputs{
		MaskHeader: hdr,
		Mask:       models.NewMask(maskVol),
		Densities:  make([]*models.Volume, 0, len(tdis)),
	}

	for _, path := range tdis {
		vol, err := LoadDensity(path)
		if err != nil {
			return nil, err
		}
		if vol.Grid != maskVol.Grid {
			return nil, fmt.Errorf("%w: %s has extents %v, mask has %v", voting.ErrShapeMismatch, path, vol.Grid, maskVol.Grid)
		}
		logging.Debugf("Loaded track density image %s", path)
		in.Densities = append(in.Densities, vol)
	}

	return in, nil
}

// LoadMask reads a mask volume. Only the first frame of a 4-D file is used.
func LoadMask(path string) (*models.Volume, nifti.Header, error) {
	img, err := nifti.Read(path)
	if err != nil {
		return nil, nifti.Header{}, fmt.Errorf("failed to load mask: %w", err)
	}
	dims := img.Dims()
	g := models.Grid{X: dims[0], Y: dims[1], Z: dims[2]}

	vol := models.NewVolume(g, 1)
	copy(vol.Data, img.Data[:g.Len()])
	return vol, img.Header, nil
}

// LoadDensity reads a single-frame track density image
func LoadDensity(path string) (*models.Volume, error) {
	img, err := nifti.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load track density image: %w", err)
	}
	dims := img.Dims()
	g := models.Grid{X: dims[0], Y: dims[1], Z: dims[2]}
	if frames := img.Header.NumVoxels() / g.Len(); frames != 1 {
		return nil, fmt.Errorf("%w: %s has %d frames, expected 1", voting.ErrShapeMismatch, path, frames)
	}

	return &models.Volume{Grid: g, Channels: 1, Data: img.Data}, nil
}

// WriteLabels writes a label volume with the given datatype, copying the
// spatial metadata of ref so the output stays aligned with the inputs.
// descrip replaces the reference's description when not empty.
func WriteLabels(path string, ref *nifti.Header, datatype int16, descrip string, labels *models.LabelVolume) error {
	g := labels.Grid
	hdr := nifti.NewHeader(ref, [3]int{g.X, g.Y, g.Z}, datatype)
	if descrip != "" {
		hdr.SetDescription(descrip)
	}
	if err := nifti.Write(path, hdr, labels.Float64s()); err != nil {
		return fmt.Errorf("failed to write labels: %w", err)
	}

	if fi, err := os.Stat(path); err == nil {
		logging.Infof("Wrote %s (%s, %s)", path, nifti.DatatypeName(datatype), humanize.Bytes(uint64(fi.Size())))
	}
	return nil
}

// WriteResults writes the result and then the extended result. The two
// writes are sequential and not atomic: if the second one fails, the first
// file stays on disk.
func WriteResults(paths Paths, ref *nifti.Header, datatype int16, descrip string, result, extended *models.LabelVolume) error {
	if err := WriteLabels(paths.Result, ref, datatype, descrip, result); err != nil {
		return err
	}
	return WriteLabels(paths.ExtendedResult, ref, datatype, descrip, extended)
}

// Description summarizes the labelling of a run for the NIfTI descrip
// field, e.g. "ccvote labels=80,70 novote=2"
func Description(labels []uint32, noVote uint32) string {
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = strconv.FormatUint(uint64(l), 10)
	}
	return fmt.Sprintf("ccvote labels=%s novote=%d", strings.Join(parts, ","), noVote)
}

// SliceSequenceDir returns the directory receiving every preview plane of a
// subject
func SliceSequenceDir(dir, subject string) string {
	return filepath.Join(dir, subject+sliceSequenceSuffix)
}

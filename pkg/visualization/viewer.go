package visualization

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"ccvote/internal/models"
)

// previewSize is the target length in pixels of the longer preview side
const previewSize = 256

var (
	backgroundColor = color.NRGBA{A: 255}
	noVoteColor     = color.NRGBA{R: 128, G: 128, B: 128, A: 255}
	unknownColor    = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

// palette is cycled over the output labels in their configured order
var palette = []color.NRGBA{
	{R: 31, G: 119, B: 180, A: 255},
	{R: 255, G: 127, B: 14, A: 255},
	{R: 44, G: 160, B: 44, A: 255},
	{R: 214, G: 39, B: 40, A: 255},
	{R: 148, G: 103, B: 189, A: 255},
	{R: 140, G: 86, B: 75, A: 255},
	{R: 227, G: 119, B: 194, A: 255},
	{R: 188, G: 189, B: 34, A: 255},
	{R: 23, G: 190, B: 207, A: 255},
	{R: 255, G: 187, B: 120, A: 255},
}

// Viewer renders slices of a label volume as colour images
type Viewer struct {
	labels *models.LabelVolume
	colors map[uint32]color.NRGBA
}

// NewViewer creates a viewer for labels. Each output label gets a palette
// colour by position, the no-vote label is grey and background is black.
func NewViewer(labels *models.LabelVolume, outputLabels []uint32, noVote uint32) *Viewer {
	colors := make(map[uint32]color.NRGBA, len(outputLabels)+2)
	for i, l := range outputLabels {
		colors[l] = palette[i%len(palette)]
	}
	colors[noVote] = noVoteColor
	colors[0] = backgroundColor

	return &Viewer{labels: labels, colors: colors}
}

// Color returns the display colour of a label
func (v *Viewer) Color(label uint32) color.NRGBA {
	if c, ok := v.colors[label]; ok {
		return c
	}
	return unknownColor
}

// planeAxes returns the grid axes mapped to image columns and rows for a
// slice taken across axis
func planeAxes(axis models.Axis) (models.Axis, models.Axis) {
	switch axis {
	case models.AxisX:
		return models.AxisY, models.AxisZ
	case models.AxisY:
		return models.AxisX, models.AxisZ
	default:
		return models.AxisX, models.AxisY
	}
}

// ExtractSlice renders the plane at position along axis. Image row r holds
// the voxels with row coordinate r, so the image is upside down with respect
// to the usual radiological display until flipped.
func (v *Viewer) ExtractSlice(axis models.Axis, position int) (*image.NRGBA, error) {
	g := v.labels.Grid
	if position < 0 || position >= g.Size(axis) {
		return nil, fmt.Errorf("position %d outside [0, %d) along %v", position, g.Size(axis), axis)
	}

	colAxis, rowAxis := planeAxes(axis)
	w, h := g.Size(colAxis), g.Size(rowAxis)
	img := image.NewNRGBA(image.Rect(0, 0, w, h))

	c := axis.With(models.Coord{}, position)
	for r := 0; r < h; r++ {
		c = rowAxis.With(c, r)
		for col := 0; col < w; col++ {
			c = colAxis.With(c, col)
			img.SetNRGBA(col, r, v.Color(v.labels.At(c)))
		}
	}
	return img, nil
}

// SaveSlice upscales img by an integer factor with nearest-neighbour
// sampling, flips it vertically and saves it. The format follows the
// filename extension.
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	b := img.Bounds()
	factor := previewSize / max(b.Dx(), b.Dy())
	if factor < 1 {
		factor = 1
	}

	out := imaging.FlipV(imaging.Resize(img, b.Dx()*factor, b.Dy()*factor, imaging.NearestNeighbor))
	if err := imaging.Save(out, filename); err != nil {
		return fmt.Errorf("failed to save %s: %w", filename, err)
	}
	return nil
}

// SavePreview renders and saves the plane at position along axis
func (v *Viewer) SavePreview(axis models.Axis, position int, filename string) error {
	img, err := v.ExtractSlice(axis, position)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}
	return v.SaveSlice(img, filename)
}

// SaveSliceSequence saves every plane along axis as slice_<axis>_<pos>.png
func (v *Viewer) SaveSliceSequence(axis models.Axis, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for pos := 0; pos < v.labels.Grid.Size(axis); pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%v_%03d.png", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}

// Package volumeio loads the inputs of a voting run and writes its outputs
// following the pipeline's fixed file naming convention.
package volumeio

import "path/filepath"

const (
	maskSuffix           = "_maskCC_registered2dwi.nii.gz"
	resultSuffix         = "_segmented_cc_2dwi_mean.nii.gz"
	extendedResultSuffix = "_segmented_cc_bis_2dwi_mean.nii.gz"
	previewSuffix        = "_segmented_cc_preview.png"
	sliceSequenceSuffix  = "_segmented_cc_slices"
	votesSuffix          = "_regularized_votes.npy"
	coordsSuffix         = "_mask_coords.npy"
)

// Paths holds the file names used for one subject
type Paths struct {
	Mask           string
	Result         string
	ExtendedResult string
}

// NewPaths resolves the mask and output file names of a subject in resultDir
func NewPaths(resultDir, subject string) Paths {
	return Paths{
		Mask:           filepath.Join(resultDir, subject+maskSuffix),
		Result:         filepath.Join(resultDir, subject+resultSuffix),
		ExtendedResult: filepath.Join(resultDir, subject+extendedResultSuffix),
	}
}

// PreviewPath returns the preview image name of a subject in dir
func PreviewPath(dir, subject string) string {
	return filepath.Join(dir, subject+previewSuffix)
}

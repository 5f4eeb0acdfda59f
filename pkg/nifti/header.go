// Package nifti reads and writes single-file NIfTI-1 volumes (.nii and
// .nii.gz).
//
// Based on the official definition of the nifti1 header,
// https://nifti.nimh.nih.gov/pub/dist/src/niftilib/nifti1.h
package nifti

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// Header defines the structure of the NIfTI-1 header.
type Header struct {
	SizeofHdr          int32      // Must be 348
	UnusedDataType     [10]byte   // Unused
	UnusedDbName       [18]byte   // Unused
	UnusedExtents      int32      // Unused
	UnusedSessionError int16      // Unused
	UnusedRegular      byte       // Unused
	DimInfo            byte       // MRI slice ordering
	Dim                [8]int16   // Data array dimensions
	IntentP1           float32    // 1st intent parameter
	IntentP2           float32    // 2nd intent parameter
	IntentP3           float32    // 3rd intent parameter
	IntentCode         int16      // NIFTI_INTENT_* code
	Datatype           int16      // Defines data type
	Bitpix             int16      // Number bits/voxel
	SliceStart         int16      // First slice index
	Pixdim             [8]float32 // Grid spacing
	VoxOffset          float32    // Offset into .nii file
	SclSlope           float32    // Data scaling: slope
	SclInter           float32    // Data scaling: offset
	SliceEnd           int16      // Last slice index
	SliceCode          byte       // Slice timing order
	XyztUnits          byte       // Units of pixdim[1..4]
	CalMax             float32    // Max display intensity
	CalMin             float32    // Min display intensity
	SliceDuration      float32    // Time for 1 slice
	Toffset            float32    // Time axis shift
	UnusedGlmax        int32      // Unused
	UnusedGlmin        int32      // Unused
	Descrip            [80]byte   // Any text you like
	AuxFile            [24]byte   // Auxiliary filename
	QformCode          int16      // NIFTI_XFORM_* code
	SformCode          int16      // NIFTI_XFORM_* code
	QuaternB           float32    // Quaternion b params
	QuaternC           float32    // Quaternion c params
	QuaternD           float32    // Quaternion d params
	QoffsetX           float32    // Quaternion x shift
	QoffsetY           float32    // Quaternion y shift
	QoffsetZ           float32    // Quaternion z shift
	SrowX              [4]float32 // 1st row affine transform
	SrowY              [4]float32 // 2nd row affine transform
	SrowZ              [4]float32 // 3rd row affine transform
	IntentName         [16]byte   // 'name' or meaning of data
	Magic              [4]byte    // Must be "n+1\0" for single-file data
}

const (
	headerSize    = 348
	minVoxOffset  = 352
	extensionSize = 4

	// maxSamples bounds the voxel count of a readable volume
	maxSamples = math.MaxInt32
)

var (
	magicSingle = [4]byte{'n', '+', '1', 0}
	magicPair   = [4]byte{'n', 'i', '1', 0}
)

// ErrInvalidHeader is returned for data that is not a NIfTI-1 header
var ErrInvalidHeader = errors.New("invalid nifti-1 header")

// NIfTI-1 datatype codes supported by this package
const (
	DTUint8   int16 = 2
	DTInt16   int16 = 4
	DTInt32   int16 = 8
	DTFloat32 int16 = 16
	DTFloat64 int16 = 64
	DTInt8    int16 = 256
	DTUint16  int16 = 512
	DTUint32  int16 = 768
	DTInt64   int16 = 1024
	DTUint64  int16 = 1280
)

// BytesPerVoxel returns the storage size of a datatype, or 0 when the
// datatype is not supported.
func BytesPerVoxel(datatype int16) int {
	switch datatype {
	case DTUint8, DTInt8:
		return 1
	case DTInt16, DTUint16:
		return 2
	case DTInt32, DTUint32, DTFloat32:
		return 4
	case DTInt64, DTUint64, DTFloat64:
		return 8
	}
	return 0
}

// DatatypeName returns a short name for a datatype code
func DatatypeName(datatype int16) string {
	switch datatype {
	case DTUint8:
		return "uint8"
	case DTInt8:
		return "int8"
	case DTInt16:
		return "int16"
	case DTUint16:
		return "uint16"
	case DTInt32:
		return "int32"
	case DTUint32:
		return "uint32"
	case DTInt64:
		return "int64"
	case DTUint64:
		return "uint64"
	case DTFloat32:
		return "float32"
	case DTFloat64:
		return "float64"
	}
	return fmt.Sprintf("datatype(%d)", datatype)
}

// Dims returns the extents of the seven data dimensions. Dimensions beyond
// dim[0] are reported as 1.
func (h *Header) Dims() [7]int {
	var dims [7]int
	for i := range dims {
		dims[i] = 1
		if i < int(h.Dim[0]) && h.Dim[i+1] > 0 {
			dims[i] = int(h.Dim[i+1])
		}
	}
	return dims
}

// NumVoxels returns the number of samples stored in the file
func (h *Header) NumVoxels() int {
	n := 1
	for _, d := range h.Dims() {
		n *= d
	}
	return n
}

// readHeader decodes a header from r. The byte order is detected from
// sizeof_hdr, which must read 348 in one of the two orders.
func readHeader(r io.Reader) (Header, binary.ByteOrder, error) {
	raw := make([]byte, headerSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return Header{}, nil, fmt.Errorf("reading header: %w", err)
	}

	var order binary.ByteOrder
	switch {
	case binary.LittleEndian.Uint32(raw) == headerSize:
		order = binary.LittleEndian
	case binary.BigEndian.Uint32(raw) == headerSize:
		order = binary.BigEndian
	default:
		return Header{}, nil, fmt.Errorf("%w: sizeof_hdr is not %d", ErrInvalidHeader, headerSize)
	}

	var h Header
	if err := binary.Read(bytes.NewReader(raw), order, &h); err != nil {
		return Header{}, nil, fmt.Errorf("decoding header: %w", err)
	}
	if err := h.validate(); err != nil {
		return Header{}, nil, err
	}
	return h, order, nil
}

func (h *Header) validate() error {
	switch {
	case h.Magic != magicSingle && h.Magic != magicPair:
		return fmt.Errorf("%w: bad magic %q", ErrInvalidHeader, h.Magic[:3])
	case h.Magic == magicPair:
		return fmt.Errorf("%w: header/image pairs (.hdr/.img) are not supported", ErrInvalidHeader)
	case h.Dim[0] < 1 || h.Dim[0] > 7:
		return fmt.Errorf("%w: dim[0] = %d is not in range [1, 7]", ErrInvalidHeader, h.Dim[0])
	case BytesPerVoxel(h.Datatype) == 0:
		return fmt.Errorf("%w: unsupported datatype %d", ErrInvalidHeader, h.Datatype)
	}
	for i := 1; i <= int(h.Dim[0]); i++ {
		if h.Dim[i] < 1 {
			return fmt.Errorf("%w: dim[%d] = %d", ErrInvalidHeader, i, h.Dim[i])
		}
	}
	if _, err := h.dataSize(); err != nil {
		return err
	}
	return nil
}

// dataSize returns the number of bytes of voxel data the header describes.
// The sample count is capped at maxSamples.
func (h *Header) dataSize() (int64, error) {
	n := int64(1)
	for _, d := range h.Dims() {
		if n > maxSamples/int64(d) {
			return 0, fmt.Errorf("%w: dimensions %v exceed %d samples", ErrInvalidHeader, h.Dim[1:h.Dim[0]+1], int64(maxSamples))
		}
		n *= int64(d)
	}
	return n * int64(BytesPerVoxel(h.Datatype)), nil
}

// SetDescription stores s (truncated to 79 bytes) in the descrip field
func (h *Header) SetDescription(s string) {
	h.Descrip = [80]byte{}
	copy(h.Descrip[:len(h.Descrip)-1], s)
}

// Description returns the descrip field as a string
func (h *Header) Description() string {
	n := bytes.IndexByte(h.Descrip[:], 0)
	if n < 0 {
		n = len(h.Descrip)
	}
	return string(h.Descrip[:n])
}

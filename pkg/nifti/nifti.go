package nifti

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Image is a decoded NIfTI-1 volume. Data holds every sample, scaled by
// scl_slope/scl_inter, in file order (x fastest).
type Image struct {
	Header Header
	Data   []float64
}

// Dims returns the extents of the seven data dimensions
func (img *Image) Dims() [7]int {
	return img.Header.Dims()
}

// Read loads a .nii or .nii.gz file. Compression is detected from the gzip
// magic bytes rather than from the file name.
func Read(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// Decode reads a NIfTI-1 volume from r, gunzipping it if needed
func Decode(r io.Reader) (*Image, error) {
	br := bufio.NewReader(r)
	var src io.Reader = br

	magic, err := br.Peek(2)
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream: %w", err)
		}
		defer zr.Close()
		src = zr
	}

	h, order, err := readHeader(src)
	if err != nil {
		return nil, err
	}

	offset := int64(h.VoxOffset)
	if offset < minVoxOffset {
		offset = minVoxOffset
	}
	if _, err := io.CopyN(io.Discard, src, offset-headerSize); err != nil {
		return nil, fmt.Errorf("file has fewer bytes than vox_offset requires: %w", err)
	}

	size, err := h.dataSize()
	if err != nil {
		return nil, err
	}
	if size > math.MaxInt {
		return nil, fmt.Errorf("%w: %d bytes of voxel data do not fit in memory", ErrInvalidHeader, size)
	}

	// the buffer grows with the bytes actually present, so a truncated file
	// never triggers an allocation sized by its header
	n := h.NumVoxels()
	raw, err := io.ReadAll(io.LimitReader(src, size))
	if err != nil {
		return nil, fmt.Errorf("reading %d samples of %s: %w", n, DatatypeName(h.Datatype), err)
	}
	if int64(len(raw)) != size {
		return nil, fmt.Errorf("reading %d samples of %s: %w", n, DatatypeName(h.Datatype), io.ErrUnexpectedEOF)
	}

	data := decodeSamples(raw, h.Datatype, order, n)
	if scaled(h.SclSlope, h.SclInter) {
		slope, inter := float64(h.SclSlope), float64(h.SclInter)
		for i, v := range data {
			data[i] = v*slope + inter
		}
	}

	return &Image{Header: h, Data: data}, nil
}

// scaled reports whether scl_slope/scl_inter must be applied. A zero slope
// means no scaling.
func scaled(slope, inter float32) bool {
	if slope == 0 || math.IsNaN(float64(slope)) || math.IsInf(float64(slope), 0) {
		return false
	}
	return slope != 1 || inter != 0
}

func decodeSamples(raw []byte, datatype int16, order binary.ByteOrder, n int) []float64 {
	data := make([]float64, n)
	switch datatype {
	case DTUint8:
		for i := range data {
			data[i] = float64(raw[i])
		}
	case DTInt8:
		for i := range data {
			data[i] = float64(int8(raw[i]))
		}
	case DTInt16:
		for i := range data {
			data[i] = float64(int16(order.Uint16(raw[2*i:])))
		}
	case DTUint16:
		for i := range data {
			data[i] = float64(order.Uint16(raw[2*i:]))
		}
	case DTInt32:
		for i := range data {
			data[i] = float64(int32(order.Uint32(raw[4*i:])))
		}
	case DTUint32:
		for i := range data {
			data[i] = float64(order.Uint32(raw[4*i:]))
		}
	case DTFloat32:
		for i := range data {
			data[i] = float64(math.Float32frombits(order.Uint32(raw[4*i:])))
		}
	case DTInt64:
		for i := range data {
			data[i] = float64(int64(order.Uint64(raw[8*i:])))
		}
	case DTUint64:
		for i := range data {
			data[i] = float64(order.Uint64(raw[8*i:]))
		}
	case DTFloat64:
		for i := range data {
			data[i] = math.Float64frombits(order.Uint64(raw[8*i:]))
		}
	}
	return data
}

// NewHeader returns a 3-D header for a volume of the given extents and
// datatype. The spatial metadata (voxel sizes, units, qform/sform, slice
// information, description) is copied from ref when it is not nil so the new
// volume stays aligned with the reference in physical space.
func NewHeader(ref *Header, dims [3]int, datatype int16) Header {
	var h Header
	if ref != nil {
		h = *ref
	} else {
		h.Pixdim = [8]float32{1, 1, 1, 1, 1, 1, 1, 1}
	}

	h.SizeofHdr = headerSize
	h.Dim = [8]int16{3, int16(dims[0]), int16(dims[1]), int16(dims[2]), 1, 1, 1, 1}
	h.Datatype = datatype
	h.Bitpix = int16(8 * BytesPerVoxel(datatype))
	h.VoxOffset = minVoxOffset
	h.SclSlope = 0
	h.SclInter = 0
	h.CalMin = 0
	h.CalMax = 0
	h.IntentCode = 0
	h.Magic = magicSingle
	return h
}

// Write stores data as a single-file NIfTI-1 volume described by h. The
// file is gzip-compressed when path ends in ".gz". Samples must fit the
// header's datatype.
func Write(path string, h Header, data []float64) error {
	if n := h.NumVoxels(); n != len(data) {
		return fmt.Errorf("%s: header describes %d samples, got %d", path, n, len(data))
	}
	raw, err := encodeSamples(data, h.Datatype)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	// cal_min/cal_max give viewers a sensible default display range
	if len(data) > 0 {
		lo, hi := data[0], data[0]
		for _, v := range data {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		h.CalMin, h.CalMax = float32(lo), float32(hi)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	var w io.Writer = f
	var zw *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		zw = gzip.NewWriter(f)
		w = zw
	}
	bw := bufio.NewWriter(w)

	err = encode(bw, h, raw)
	if err == nil {
		err = bw.Flush()
	}
	if zw != nil {
		if cerr := zw.Close(); err == nil {
			err = cerr
		}
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func encode(w io.Writer, h Header, raw []byte) error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, &h); err != nil {
		return err
	}
	// no extensions follow the header
	buf.Write(make([]byte, extensionSize))
	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}
	_, err := w.Write(raw)
	return err
}

func encodeSamples(data []float64, datatype int16) ([]byte, error) {
	bpv := BytesPerVoxel(datatype)
	if bpv == 0 {
		return nil, fmt.Errorf("unsupported datatype %d", datatype)
	}
	raw := make([]byte, len(data)*bpv)
	le := binary.LittleEndian

	var limit float64
	switch datatype {
	case DTUint8:
		limit = math.MaxUint8
	case DTUint16:
		limit = math.MaxUint16
	case DTUint32:
		limit = math.MaxUint32
	}

	for i, v := range data {
		if limit > 0 && (v < 0 || v > limit || v != math.Trunc(v)) {
			return nil, fmt.Errorf("sample %d (%g) does not fit %s", i, v, DatatypeName(datatype))
		}
		switch datatype {
		case DTUint8:
			raw[i] = uint8(v)
		case DTUint16:
			le.PutUint16(raw[2*i:], uint16(v))
		case DTUint32:
			le.PutUint32(raw[4*i:], uint32(v))
		case DTFloat32:
			le.PutUint32(raw[4*i:], math.Float32bits(float32(v)))
		case DTFloat64:
			le.PutUint64(raw[8*i:], math.Float64bits(v))
		default:
			return nil, fmt.Errorf("writing %s volumes is not supported", DatatypeName(datatype))
		}
	}
	return raw, nil
}

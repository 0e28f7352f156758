// Package nifti implements the benchmark transform: adding one to every voxel of a
// single-file NIfTI-1 image. Headers in either byte order are accepted; intensity scaling
// (scl_slope/scl_inter) is not applied, so the stored values are incremented directly.
package nifti

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	headerSize      = 348
	dimOffset       = 40
	datatypeOffset  = 70
	bitpixOffset    = 72
	voxOffsetOffset = 108
	magicOffset     = 344
)

// Datatype codes from the NIfTI-1 standard
const (
	DTUint8   = 2
	DTInt16   = 4
	DTInt32   = 8
	DTFloat32 = 16
	DTFloat64 = 64
	DTInt8    = 256
	DTUint16  = 512
	DTUint32  = 768
	DTInt64   = 1024
	DTUint64  = 1280
)

var bytesPerVoxel = map[int16]int{
	DTUint8:   1,
	DTInt8:    1,
	DTInt16:   2,
	DTUint16:  2,
	DTInt32:   4,
	DTUint32:  4,
	DTFloat32: 4,
	DTInt64:   8,
	DTUint64:  8,
	DTFloat64: 8,
}

// Header holds the fields of a NIfTI-1 header the transform needs
type Header struct {
	Order     binary.ByteOrder
	Dims      []int
	Datatype  int16
	Bitpix    int16
	VoxOffset int
}

// NumVoxels returns the number of voxels described by the header. It fails if the count
// overflows an int.
func (h *Header) NumVoxels() (int, error) {
	n := 1
	for _, d := range h.Dims {
		if n > math.MaxInt/d {
			return 0, fmt.Errorf("nifti: dimensions %v overflow the voxel count", h.Dims)
		}
		n *= d
	}
	return n, nil
}

// ParseHeader reads the NIfTI-1 header at the start of data
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("nifti: %d bytes is shorter than a header", len(data))
	}
	var order binary.ByteOrder
	switch {
	case binary.LittleEndian.Uint32(data) == headerSize:
		order = binary.LittleEndian
	case binary.BigEndian.Uint32(data) == headerSize:
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("nifti: not a NIfTI-1 header")
	}
	if magic := string(data[magicOffset : magicOffset+3]); magic != "n+1" {
		return nil, fmt.Errorf("nifti: only single-file images are supported, magic is %q", magic)
	}
	ndim := int(int16(order.Uint16(data[dimOffset:])))
	if ndim < 1 || ndim > 7 {
		return nil, fmt.Errorf("nifti: invalid dimension count %d", ndim)
	}
	dims := make([]int, ndim)
	for i := range dims {
		d := int(int16(order.Uint16(data[dimOffset+2*(i+1):])))
		if d < 1 {
			return nil, fmt.Errorf("nifti: invalid size %d for dimension %d", d, i+1)
		}
		dims[i] = d
	}
	voxOffset := float64(math.Float32frombits(order.Uint32(data[voxOffsetOffset:])))
	if math.IsNaN(voxOffset) || math.IsInf(voxOffset, 0) {
		return nil, fmt.Errorf("nifti: invalid vox_offset %v", voxOffset)
	}
	if voxOffset < headerSize {
		voxOffset = headerSize
	}
	if voxOffset > float64(len(data)) {
		return nil, fmt.Errorf("nifti: vox_offset %v is beyond the %d byte image", voxOffset, len(data))
	}
	return &Header{
		Order:     order,
		Dims:      dims,
		Datatype:  int16(order.Uint16(data[datatypeOffset:])),
		Bitpix:    int16(order.Uint16(data[bitpixOffset:])),
		VoxOffset: int(voxOffset),
	}, nil
}

// Increment returns a copy of a NIfTI-1 image with one added to every voxel. Integer voxels wrap
// on overflow.
func Increment(data []byte) ([]byte, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	width, ok := bytesPerVoxel[h.Datatype]
	if !ok {
		return nil, fmt.Errorf("nifti: unsupported datatype %d", h.Datatype)
	}
	n, err := h.NumVoxels()
	if err != nil {
		return nil, err
	}
	// VoxOffset <= len(data), so the subtraction cannot go negative
	if n > (len(data)-h.VoxOffset)/width {
		return nil, fmt.Errorf("nifti: %d voxels of %d bytes do not fit in %d bytes after offset %d",
			n, width, len(data), h.VoxOffset)
	}
	end := h.VoxOffset + n*width
	out := append([]byte(nil), data...)
	voxels := out[h.VoxOffset:end]
	o := h.Order
	for i := 0; i < len(voxels); i += width {
		v := voxels[i : i+width]
		switch h.Datatype {
		case DTUint8, DTInt8:
			v[0]++
		case DTInt16, DTUint16:
			o.PutUint16(v, o.Uint16(v)+1)
		case DTInt32, DTUint32:
			o.PutUint32(v, o.Uint32(v)+1)
		case DTInt64, DTUint64:
			o.PutUint64(v, o.Uint64(v)+1)
		case DTFloat32:
			o.PutUint32(v, math.Float32bits(math.Float32frombits(o.Uint32(v))+1))
		case DTFloat64:
			o.PutUint64(v, math.Float64bits(math.Float64frombits(o.Uint64(v))+1))
		}
	}
	return out, nil
}

// Transform is the NIfTI increment as a pipeline Transform
type Transform struct{}

// Apply increments every voxel of data
func (Transform) Apply(data []byte) ([]byte, error) {
	return Increment(data)
}

// Build assembles a single-file NIfTI-1 image from dims, a datatype and raw voxel bytes
func Build(order binary.ByteOrder, dims []int, datatype int16, voxels []byte) []byte {
	width := bytesPerVoxel[datatype]
	hdr := make([]byte, headerSize+4)
	order.PutUint32(hdr, headerSize)
	order.PutUint16(hdr[dimOffset:], uint16(len(dims)))
	for i, d := range dims {
		order.PutUint16(hdr[dimOffset+2*(i+1):], uint16(d))
	}
	order.PutUint16(hdr[datatypeOffset:], uint16(datatype))
	order.PutUint16(hdr[bitpixOffset:], uint16(width*8))
	order.PutUint32(hdr[voxOffsetOffset:], math.Float32bits(float32(headerSize+4)))
	copy(hdr[magicOffset:], "n+1\x00")
	return append(hdr, voxels...)
}

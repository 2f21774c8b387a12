package encoder

import (
	"errors"
	"fmt"
)

var (
	// ErrFinished is returned for any call on an encoder after Finish
	ErrFinished = errors.New("encoder already finished")
	// ErrDimensions is returned for non-positive dimensions
	ErrDimensions = errors.New("invalid dimensions")
	// ErrFrameSize is returned when a frame's dimensions differ from the encoder's
	ErrFrameSize = errors.New("frame size does not match encoder")
	// ErrBufferSize is returned when a buffer length disagrees with its stride and height
	ErrBufferSize = errors.New("buffer length does not match stride and height")
)

// PlanarFrame is a bi-planar 4:2:0 frame (NV12): a luminance plane and an
// interleaved CbCr plane at half vertical resolution
type PlanarFrame struct {
	Width        int
	Height       int
	DisplayTime  int64 // nanoseconds
	LumaStride   int
	Luma         []byte
	ChromaStride int
	Chroma       []byte
}

// PackedFrame is a single interleaved BGRA plane
type PackedFrame struct {
	Width       int
	Height      int
	DisplayTime int64 // nanoseconds
	BytesPerRow int
	Pixels      []byte
}

// Validate checks the frame's buffers against its strides and dimensions
func (f PlanarFrame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrDimensions, f.Width, f.Height)
	}
	if f.Width > maxWidth || f.Height > maxWidth {
		return fmt.Errorf("%w: %dx%d", ErrDimensions, f.Width, f.Height)
	}
	if f.LumaStride < f.Width {
		return fmt.Errorf("%w: luma stride %d < width %d", ErrBufferSize, f.LumaStride, f.Width)
	}
	if f.ChromaStride < chromaRowBytes(f.Width) {
		return fmt.Errorf("%w: chroma stride %d < %d", ErrBufferSize, f.ChromaStride, chromaRowBytes(f.Width))
	}
	if !planeFits(f.Luma, f.LumaStride, f.Height) {
		return fmt.Errorf("%w: luma has %d bytes for stride %d x %d rows", ErrBufferSize, len(f.Luma), f.LumaStride, f.Height)
	}
	if rows := chromaRows(f.Height); !planeFits(f.Chroma, f.ChromaStride, rows) {
		return fmt.Errorf("%w: chroma has %d bytes for stride %d x %d rows", ErrBufferSize, len(f.Chroma), f.ChromaStride, rows)
	}
	return nil
}

// Validate checks the pixel buffer against bytes-per-row and dimensions
func (f PackedFrame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrDimensions, f.Width, f.Height)
	}
	if f.Width > maxWidth || f.Height > maxWidth {
		return fmt.Errorf("%w: %dx%d", ErrDimensions, f.Width, f.Height)
	}
	if f.BytesPerRow < 4*f.Width {
		return fmt.Errorf("%w: bytes per row %d < %d", ErrBufferSize, f.BytesPerRow, 4*f.Width)
	}
	if !planeFits(f.Pixels, f.BytesPerRow, f.Height) {
		return fmt.Errorf("%w: pixels have %d bytes for stride %d x %d rows", ErrBufferSize, len(f.Pixels), f.BytesPerRow, f.Height)
	}
	return nil
}

// planeFits reports whether buf holds exactly stride*rows bytes. The stride
// is bounded by the buffer first so the product cannot overflow.
func planeFits(buf []byte, stride, rows int) bool {
	return stride <= len(buf)/rows && len(buf) == stride*rows
}

// maxWidth bounds either dimension so 4*width stays in range
const maxWidth = 1 << 28

func chromaRowBytes(width int) int {
	return 2 * ((width + 1) / 2)
}

func chromaRows(height int) int {
	return (height + 1) / 2
}

// nv12Size is the byte size of a tightly packed NV12 frame
func nv12Size(width, height int) int {
	return width*height + chromaRowBytes(width)*chromaRows(height)
}

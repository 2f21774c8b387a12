package encoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func solidBGRA(w, h, stride int, b, g, r byte) PackedFrame {
	px := make([]byte, stride*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			o := y*stride + 4*x
			px[o], px[o+1], px[o+2], px[o+3] = b, g, r, 0xff
		}
	}
	return PackedFrame{Width: w, Height: h, BytesPerRow: stride, Pixels: px}
}

func TestBGRAToNV12_Primaries(t *testing.T) {
	tests := []struct {
		name      string
		b, g, r   byte
		y, cb, cr byte
	}{
		{"white", 255, 255, 255, 255, 128, 128},
		{"black", 0, 0, 0, 0, 128, 128},
		{"red", 0, 0, 255, 76, 85, 255},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := solidBGRA(2, 2, 8, tt.b, tt.g, tt.r)
			dst := make([]byte, nv12Size(2, 2))
			bgraToNV12(dst, f)
			assert.Equal(t, []byte{tt.y, tt.y, tt.y, tt.y, tt.cb, tt.cr}, dst)
		})
	}
}

func TestBGRAToNV12_IgnoresRowPadding(t *testing.T) {
	f := solidBGRA(2, 2, 12, 255, 255, 255)
	// Garbage in the padding must not leak into the output
	for y := 0; y < 2; y++ {
		copy(f.Pixels[y*12+8:y*12+12], []byte{1, 2, 3, 4})
	}
	dst := make([]byte, nv12Size(2, 2))
	bgraToNV12(dst, f)
	assert.Equal(t, []byte{255, 255, 255, 255, 128, 128}, dst)
}

func TestPackNV12_StripsStride(t *testing.T) {
	f := PlanarFrame{
		Width: 2, Height: 2,
		LumaStride: 4, Luma: []byte{1, 2, 0, 0, 3, 4, 0, 0},
		ChromaStride: 3, Chroma: []byte{5, 6, 0},
	}
	dst := make([]byte, nv12Size(2, 2))
	packNV12(dst, f)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, dst)
}

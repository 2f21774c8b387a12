package encoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanarFrameValidate(t *testing.T) {
	valid := PlanarFrame{
		Width: 4, Height: 3,
		LumaStride: 8, Luma: make([]byte, 8*3),
		ChromaStride: 4, Chroma: make([]byte, 4*2),
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*PlanarFrame)
		want   error
	}{
		{"zero width", func(f *PlanarFrame) { f.Width = 0 }, ErrDimensions},
		{"negative height", func(f *PlanarFrame) { f.Height = -2 }, ErrDimensions},
		{"luma stride below width", func(f *PlanarFrame) { f.LumaStride = 3 }, ErrBufferSize},
		{"chroma stride below width", func(f *PlanarFrame) { f.ChromaStride = 2 }, ErrBufferSize},
		{"short luma", func(f *PlanarFrame) { f.Luma = f.Luma[:len(f.Luma)-1] }, ErrBufferSize},
		{"long chroma", func(f *PlanarFrame) { f.Chroma = append(f.Chroma, 0) }, ErrBufferSize},
		{"nil luma", func(f *PlanarFrame) { f.Luma = nil }, ErrBufferSize},
		{"luma stride overflows", func(f *PlanarFrame) { f.LumaStride = 1 << 62; f.Luma = nil }, ErrBufferSize},
		{"chroma stride overflows", func(f *PlanarFrame) { f.ChromaStride = 1 << 62; f.Chroma = nil }, ErrBufferSize},
		{"huge width", func(f *PlanarFrame) { f.Width = 1 << 40 }, ErrDimensions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := valid
			f.Luma = append([]byte(nil), valid.Luma...)
			f.Chroma = append([]byte(nil), valid.Chroma...)
			tt.mutate(&f)
			assert.ErrorIs(t, f.Validate(), tt.want)
		})
	}
}

func TestPackedFrameValidate(t *testing.T) {
	valid := PackedFrame{Width: 2, Height: 2, BytesPerRow: 16, Pixels: make([]byte, 32)}
	assert.NoError(t, valid.Validate())

	f := valid
	f.BytesPerRow = 7
	f.Pixels = make([]byte, 14)
	assert.ErrorIs(t, f.Validate(), ErrBufferSize)

	f = valid
	f.Pixels = make([]byte, 31)
	assert.ErrorIs(t, f.Validate(), ErrBufferSize)

	f = valid
	f.Width = 0
	assert.ErrorIs(t, f.Validate(), ErrDimensions)

	// 1<<62 * 4 rows wraps to zero
	f = valid
	f.Height = 4
	f.BytesPerRow = 1 << 62
	f.Pixels = nil
	assert.ErrorIs(t, f.Validate(), ErrBufferSize)
}

func TestPlanarFrameValidate_OddDimensions(t *testing.T) {
	f := PlanarFrame{
		Width: 3, Height: 3,
		LumaStride: 3, Luma: make([]byte, 9),
		ChromaStride: 4, Chroma: make([]byte, 8),
	}
	assert.NoError(t, f.Validate())
}

func TestNV12Size(t *testing.T) {
	assert.Equal(t, 4*2+4*1, nv12Size(4, 2))
	assert.Equal(t, 1920*1080*3/2, nv12Size(1920, 1080))
	assert.Equal(t, 1365*767+1366*384, nv12Size(1365, 767))
}

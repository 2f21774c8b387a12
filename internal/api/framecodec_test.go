package api

import (
	"testing"

	"github.com/bryanchriswhite/wincap/internal/encoder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrame_YUV(t *testing.T) {
	in := encoder.PlanarFrame{
		Width: 2, Height: 2, DisplayTime: -5,
		LumaStride: 2, Luma: []byte{1, 2, 3, 4}, ChromaStride: 2, Chroma: []byte{5, 6},
	}
	f, err := decodeFrame(EncodeYUVFrame(in))
	require.NoError(t, err)
	assert.Equal(t, FrameKindYUV, f.Kind)
	assert.Equal(t, in, f.Planar)
}

func TestDecodeFrame_BGRA(t *testing.T) {
	in := encoder.PackedFrame{Width: 1, Height: 1, DisplayTime: 1234567890, BytesPerRow: 4, Pixels: []byte{9, 8, 7, 6}}
	f, err := decodeFrame(EncodeBGRAFrame(in))
	require.NoError(t, err)
	assert.Equal(t, FrameKindBGRA, f.Kind)
	assert.Equal(t, in, f.Packed)
}

func TestDecodeFrame_Errors(t *testing.T) {
	_, err := decodeFrame([]byte{1, 2, 3})
	assert.ErrorIs(t, err, errShortFrame)

	msg := EncodeYUVFrame(encoder.PlanarFrame{Width: 2, Height: 2, LumaStride: 2, Luma: make([]byte, 4), ChromaStride: 2, Chroma: make([]byte, 2)})
	_, err = decodeFrame(msg[:len(msg)-1])
	assert.ErrorIs(t, err, errShortFrame)

	msg = EncodeBGRAFrame(encoder.PackedFrame{Width: 1, Height: 1, BytesPerRow: 4, Pixels: make([]byte, 4)})
	msg[0] = 9
	_, err = decodeFrame(msg)
	assert.Error(t, err)
}

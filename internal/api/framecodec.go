package api

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/bryanchriswhite/wincap/internal/encoder"
)

// Frame message kinds
const (
	FrameKindYUV  byte = 1
	FrameKindBGRA byte = 2
)

const (
	frameHeaderSize = 1 + 4 + 4 + 8
	yuvHeaderSize   = 4 * 4
	bgraHeaderSize  = 4
)

var errShortFrame = errors.New("frame message truncated")

// decodedFrame holds exactly one of Planar or Packed
type decodedFrame struct {
	Kind   byte
	Planar encoder.PlanarFrame
	Packed encoder.PackedFrame
}

// decodeFrame parses a binary frame message. Layout (little-endian):
//
//	kind u8, width u32, height u32, display_time i64
//	yuv:  luma_stride u32, luma_len u32, chroma_stride u32, chroma_len u32, luma, chroma
//	bgra: bytes_per_row u32, bgra
//
// The returned planes alias msg.
func decodeFrame(msg []byte) (decodedFrame, error) {
	if len(msg) < frameHeaderSize {
		return decodedFrame{}, errShortFrame
	}
	le := binary.LittleEndian
	kind := msg[0]
	width := int(le.Uint32(msg[1:]))
	height := int(le.Uint32(msg[5:]))
	ts := int64(le.Uint64(msg[9:]))
	body := msg[frameHeaderSize:]

	switch kind {
	case FrameKindYUV:
		if len(body) < yuvHeaderSize {
			return decodedFrame{}, errShortFrame
		}
		lumaStride := int(le.Uint32(body[0:]))
		lumaLen := int(le.Uint32(body[4:]))
		chromaStride := int(le.Uint32(body[8:]))
		chromaLen := int(le.Uint32(body[12:]))
		planes := body[yuvHeaderSize:]
		if len(planes) != lumaLen+chromaLen {
			return decodedFrame{}, fmt.Errorf("%w: have %d plane bytes, header says %d",
				errShortFrame, len(planes), lumaLen+chromaLen)
		}
		return decodedFrame{Kind: kind, Planar: encoder.PlanarFrame{
			Width:        width,
			Height:       height,
			DisplayTime:  ts,
			LumaStride:   lumaStride,
			Luma:         planes[:lumaLen],
			ChromaStride: chromaStride,
			Chroma:       planes[lumaLen:],
		}}, nil

	case FrameKindBGRA:
		if len(body) < bgraHeaderSize {
			return decodedFrame{}, errShortFrame
		}
		return decodedFrame{Kind: kind, Packed: encoder.PackedFrame{
			Width:       width,
			Height:      height,
			DisplayTime: ts,
			BytesPerRow: int(le.Uint32(body)),
			Pixels:      body[bgraHeaderSize:],
		}}, nil
	}
	return decodedFrame{}, fmt.Errorf("unknown frame kind %d", kind)
}

// EncodeYUVFrame builds a frame message for an NV12 frame
func EncodeYUVFrame(f encoder.PlanarFrame) []byte {
	msg := make([]byte, frameHeaderSize+yuvHeaderSize, frameHeaderSize+yuvHeaderSize+len(f.Luma)+len(f.Chroma))
	putHeader(msg, FrameKindYUV, f.Width, f.Height, f.DisplayTime)
	le := binary.LittleEndian
	le.PutUint32(msg[frameHeaderSize:], uint32(f.LumaStride))
	le.PutUint32(msg[frameHeaderSize+4:], uint32(len(f.Luma)))
	le.PutUint32(msg[frameHeaderSize+8:], uint32(f.ChromaStride))
	le.PutUint32(msg[frameHeaderSize+12:], uint32(len(f.Chroma)))
	msg = append(msg, f.Luma...)
	return append(msg, f.Chroma...)
}

// EncodeBGRAFrame builds a frame message for a BGRA frame
func EncodeBGRAFrame(f encoder.PackedFrame) []byte {
	msg := make([]byte, frameHeaderSize+bgraHeaderSize, frameHeaderSize+bgraHeaderSize+len(f.Pixels))
	putHeader(msg, FrameKindBGRA, f.Width, f.Height, f.DisplayTime)
	binary.LittleEndian.PutUint32(msg[frameHeaderSize:], uint32(f.BytesPerRow))
	return append(msg, f.Pixels...)
}

func putHeader(msg []byte, kind byte, width, height int, ts int64) {
	le := binary.LittleEndian
	msg[0] = kind
	le.PutUint32(msg[1:], uint32(width))
	le.PutUint32(msg[5:], uint32(height))
	le.PutUint64(msg[9:], uint64(ts))
}

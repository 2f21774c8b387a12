package encoder

// packNV12 copies a strided planar frame into a tightly packed NV12 buffer
func packNV12(dst []byte, f PlanarFrame) {
	w, h := f.Width, f.Height
	for y := 0; y < h; y++ {
		copy(dst[y*w:(y+1)*w], f.Luma[y*f.LumaStride:y*f.LumaStride+w])
	}
	uv := dst[w*h:]
	cw := chromaRowBytes(w)
	for y := 0; y < chromaRows(h); y++ {
		copy(uv[y*cw:(y+1)*cw], f.Chroma[y*f.ChromaStride:y*f.ChromaStride+cw])
	}
}

// bgraToNV12 converts a packed BGRA frame to full-range BT.601 NV12.
// Chroma is the average of each 2x2 block.
func bgraToNV12(dst []byte, f PackedFrame) {
	w, h := f.Width, f.Height
	src := f.Pixels
	stride := f.BytesPerRow

	for y := 0; y < h; y++ {
		row := src[y*stride:]
		out := dst[y*w:]
		for x := 0; x < w; x++ {
			b, g, r := int32(row[4*x]), int32(row[4*x+1]), int32(row[4*x+2])
			out[x] = clamp8((19595*r + 38470*g + 7471*b + 32768) >> 16)
		}
	}

	uv := dst[w*h:]
	cw := chromaRowBytes(w)
	for cy := 0; cy < chromaRows(h); cy++ {
		y0 := 2 * cy
		y1 := y0 + 1
		if y1 >= h {
			y1 = y0
		}
		for cx := 0; cx < cw/2; cx++ {
			x0 := 2 * cx
			x1 := x0 + 1
			if x1 >= w {
				x1 = x0
			}
			var r, g, b int32
			for _, p := range [4]int{y0*stride + 4*x0, y0*stride + 4*x1, y1*stride + 4*x0, y1*stride + 4*x1} {
				b += int32(src[p])
				g += int32(src[p+1])
				r += int32(src[p+2])
			}
			r, g, b = (r+2)/4, (g+2)/4, (b+2)/4
			uv[cy*cw+2*cx] = clamp8((-11059*r - 21709*g + 32768*b + 128<<16 + 32768) >> 16)
			uv[cy*cw+2*cx+1] = clamp8((32768*r - 27439*g - 5329*b + 128<<16 + 32768) >> 16)
		}
	}
}

func clamp8(v int32) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

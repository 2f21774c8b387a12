package capture

import (
	"image"

	"github.com/bryanchriswhite/wincap/internal/window"
)

// Capturer defines the interface for window capture backends
type Capturer interface {
	// CaptureWindow captures the contents of a specific window
	CaptureWindow(w *window.Descriptor) (*image.RGBA, error)

	// CanCapture reports whether this capturer can capture the given window
	CanCapture(w *window.Descriptor) bool

	// Close releases the capturer's resources
	Close() error

	// Name returns a human-readable name for this capturer
	Name() string
}

// ToBGRA returns the image as tightly packed BGRA rows, the layout the
// encoder's packed-frame ingestion expects
func ToBGRA(img *image.RGBA) (data []byte, bytesPerRow int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	bytesPerRow = w * 4
	data = make([]byte, bytesPerRow*h)
	for y := 0; y < h; y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		src := img.Pix[off : off+w*4]
		dst := data[y*bytesPerRow : (y+1)*bytesPerRow]
		for x := 0; x < w*4; x += 4 {
			dst[x] = src[x+2]
			dst[x+1] = src[x+1]
			dst[x+2] = src[x]
			dst[x+3] = src[x+3]
		}
	}
	return data, bytesPerRow
}

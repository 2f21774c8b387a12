package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/bryanchriswhite/wincap/internal/config"
	"github.com/bryanchriswhite/wincap/internal/logger"
	"github.com/bryanchriswhite/wincap/internal/window"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	"golang.org/x/sync/errgroup"
)

// Thumbnailer captures, scales and encodes window thumbnails
type Thumbnailer struct {
	capturer  Capturer
	configMgr *config.Manager
}

// NewThumbnailer creates a thumbnailer over the given capturer
func NewThumbnailer(capturer Capturer, configMgr *config.Manager) *Thumbnailer {
	return &Thumbnailer{
		capturer:  capturer,
		configMgr: configMgr,
	}
}

// Thumbnails captures every capturable window. Failures are logged and the
// window is left out of the result.
func (t *Thumbnailer) Thumbnails(ctx context.Context, windows []*window.Descriptor) map[uint32][]byte {
	cfg := t.configMgr.Get().Thumbnails
	log := logger.WithComponent("thumbnails")

	var mu sync.Mutex
	out := make(map[uint32][]byte, len(windows))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)

	for _, w := range windows {
		if !t.capturer.CanCapture(w) {
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			data, err := t.Thumbnail(w, cfg)
			if err != nil {
				log.Debug().Err(err).Uint32("window_id", w.ID).Msg("Thumbnail capture failed")
				return nil
			}
			mu.Lock()
			out[w.ID] = data
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Warn().Err(err).Int("captured", len(out)).Msg("Thumbnail capture interrupted")
	}
	return out
}

// Thumbnail captures a single window and returns the encoded thumbnail
func (t *Thumbnailer) Thumbnail(w *window.Descriptor, cfg config.ThumbnailConfig) ([]byte, error) {
	img, err := t.capturer.CaptureWindow(w)
	if err != nil {
		return nil, err
	}
	factor := ScaleFactor(img.Bounds().Dx(), img.Bounds().Dy(), cfg)
	return Encode(Scale(img, factor), cfg.Format)
}

// Capture grabs a window at full size and encodes it in the configured format
func (t *Thumbnailer) Capture(w *window.Descriptor) ([]byte, error) {
	if !t.capturer.CanCapture(w) {
		return nil, fmt.Errorf("window %d cannot be captured by %s", w.ID, t.capturer.Name())
	}
	img, err := t.capturer.CaptureWindow(w)
	if err != nil {
		return nil, err
	}
	return Encode(img, t.configMgr.Get().Thumbnails.Format)
}

// ScaleFactor returns cfg.Scale, or 1 when both sides are below FullSizeMax
func ScaleFactor(width, height int, cfg config.ThumbnailConfig) float64 {
	if width < cfg.FullSizeMax && height < cfg.FullSizeMax {
		return 1.0
	}
	if cfg.Scale <= 0 || cfg.Scale > 1 {
		return 1.0
	}
	return cfg.Scale
}

// Scale resizes img by factor with Catmull-Rom resampling
func Scale(img image.Image, factor float64) image.Image {
	if factor == 1.0 {
		return img
	}
	b := img.Bounds()
	w := int(float64(b.Dx()) * factor)
	h := int(float64(b.Dy()) * factor)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// Encode serializes img as png or tiff
func Encode(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case config.ThumbnailPNG, "":
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to encode png: %w", err)
		}
	case config.ThumbnailTIFF:
		if err := tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
			return nil, fmt.Errorf("failed to encode tiff: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported thumbnail format: %s", format)
	}
	return buf.Bytes(), nil
}

// ContentType returns the MIME type for a thumbnail format
func ContentType(format string) string {
	if format == config.ThumbnailTIFF {
		return "image/tiff"
	}
	return "image/png"
}

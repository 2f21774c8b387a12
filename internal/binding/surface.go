// Package binding is the process-wide surface shared by the C library, the
// HTTP API and the CLI. Error-returning methods serve Go callers; the
// Encoder*/Get* methods convert failures into boundary sentinels.
package binding

import (
	"context"
	"fmt"

	"github.com/bryanchriswhite/wincap/internal/config"
	"github.com/bryanchriswhite/wincap/internal/display"
	"github.com/bryanchriswhite/wincap/internal/encoder"
	"github.com/bryanchriswhite/wincap/internal/logger"
	"github.com/bryanchriswhite/wincap/internal/window"
)

// WindowLister enumerates windows
type WindowLister interface {
	Enumerate(ctx context.Context, opts window.Options) ([]*window.Descriptor, error)
	Find(ctx context.Context, id uint32) (*window.Descriptor, error)
}

// IconResolver finds application icons
type IconResolver interface {
	IconPath(bundleID string) string
}

// DisplaySource lists monitors
type DisplaySource interface {
	Displays() ([]display.Display, error)
}

// WindowGrabber captures one window at full size
type WindowGrabber interface {
	Capture(w *window.Descriptor) ([]byte, error)
}

// EncoderFactory opens an encoder for the given parameters
type EncoderFactory func(ctx context.Context, p encoder.Params) (*encoder.Encoder, error)

// Deps are the components behind a Surface
type Deps struct {
	Config     *config.Manager
	Windows    WindowLister
	Icons      IconResolver
	Displays   DisplaySource
	Thumbnails window.Thumbnailer
	Grabber    WindowGrabber
	NewEncoder EncoderFactory // defaults to encoder.New
	Closers    []func() error
}

// Surface implements every binding operation
type Surface struct {
	deps     Deps
	encoders *Registry
}

// NewSurface creates a surface over deps
func NewSurface(deps Deps) *Surface {
	if deps.NewEncoder == nil {
		deps.NewEncoder = encoder.New
	}
	return &Surface{deps: deps, encoders: NewRegistry()}
}

// Encoders returns the handle registry
func (s *Surface) Encoders() *Registry {
	return s.encoders
}

// Close finishes any encoders still open and releases the backends
func (s *Surface) Close() error {
	log := logger.WithComponent("binding")
	for h, e := range s.encoders.Drain() {
		if _, err := e.Finish(); err != nil {
			log.Warn().Err(err).Uint64("handle", uint64(h)).Msg("Failed to finish encoder on close")
		}
	}
	var firstErr error
	for _, closeFn := range s.deps.Closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// OpenEncoder starts an encoder writing to outFile and registers it
func (s *Surface) OpenEncoder(ctx context.Context, width, height int, outFile string) (Handle, error) {
	cfg := config.Defaults().Encoder
	if s.deps.Config != nil {
		cfg = s.deps.Config.Get().Encoder
	}
	e, err := s.deps.NewEncoder(ctx, encoder.ParamsFromConfig(width, height, outFile, cfg))
	if err != nil {
		return 0, fmt.Errorf("failed to open encoder: %w", err)
	}
	return s.encoders.Add(e), nil
}

// IngestPlanar appends an NV12 frame to the encoder behind h
func (s *Surface) IngestPlanar(h Handle, f encoder.PlanarFrame) error {
	e, err := s.encoders.Get(h)
	if err != nil {
		return err
	}
	return e.IngestPlanar(f)
}

// IngestPacked appends a BGRA frame to the encoder behind h
func (s *Surface) IngestPacked(h Handle, f encoder.PackedFrame) error {
	e, err := s.encoders.Get(h)
	if err != nil {
		return err
	}
	return e.IngestPacked(f)
}

// CloseEncoder finalizes the file and releases h. The handle is released
// before finishing, so a concurrent second call gets ErrUnknownHandle.
func (s *Surface) CloseEncoder(h Handle) (encoder.Stats, error) {
	e, err := s.encoders.Remove(h)
	if err != nil {
		return encoder.Stats{}, err
	}
	return e.Finish()
}

// Windows enumerates windows as current records
func (s *Surface) Windows(ctx context.Context, opts window.Options) ([]WindowInfoV2, error) {
	if s.deps.Windows == nil {
		return nil, fmt.Errorf("window enumeration unavailable")
	}
	windows, err := s.deps.Windows.Enumerate(ctx, opts)
	if err != nil {
		return nil, err
	}
	out := make([]WindowInfoV2, 0, len(windows))
	for _, w := range windows {
		out = append(out, toWindowInfoV2(w))
	}
	return out, nil
}

// Window returns one window by id, including windows hidden by the filters
func (s *Surface) Window(ctx context.Context, id uint32) (*window.Descriptor, error) {
	if s.deps.Windows == nil {
		return nil, fmt.Errorf("window enumeration unavailable")
	}
	return s.deps.Windows.Find(ctx, id)
}

// Thumbnail captures one window scaled like the thumbnails attached during
// enumeration. The second result is the image format.
func (s *Surface) Thumbnail(ctx context.Context, id uint32) ([]byte, string, error) {
	w, err := s.Window(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if s.deps.Thumbnails == nil {
		return nil, "", fmt.Errorf("window capture unavailable")
	}
	data := s.deps.Thumbnails.Thumbnails(ctx, []*window.Descriptor{w})[w.ID]
	if len(data) == 0 {
		return nil, "", fmt.Errorf("window %d could not be captured", id)
	}
	return data, s.imageFormat(), nil
}

// CaptureWindow captures one window at its full size
func (s *Surface) CaptureWindow(ctx context.Context, id uint32) ([]byte, string, error) {
	w, err := s.Window(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if s.deps.Grabber == nil {
		return nil, "", fmt.Errorf("window capture unavailable")
	}
	data, err := s.deps.Grabber.Capture(w)
	if err != nil {
		return nil, "", fmt.Errorf("window %d could not be captured: %w", id, err)
	}
	return data, s.imageFormat(), nil
}

func (s *Surface) imageFormat() string {
	if s.deps.Config != nil {
		return s.deps.Config.Get().Thumbnails.Format
	}
	return config.Defaults().Thumbnails.Format
}

// Pairs relates on-screen windows to the displays they intersect
func (s *Surface) Pairs(ctx context.Context) ([]IntPair, error) {
	if s.deps.Windows == nil || s.deps.Displays == nil {
		return nil, fmt.Errorf("display pairing unavailable")
	}
	displays, err := s.deps.Displays.Displays()
	if err != nil {
		return nil, fmt.Errorf("failed to list displays: %w", err)
	}
	windows, err := s.deps.Windows.Enumerate(ctx, window.Options{Filter: true})
	if err != nil {
		return nil, err
	}
	pairs := display.Pairs(displays, windows)
	out := make([]IntPair, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, toIntPair(p))
	}
	return out, nil
}

// EncoderInit opens an encoder and returns its handle, or 0 on any failure
func (s *Surface) EncoderInit(width, height int, outFile string) Handle {
	h, err := s.OpenEncoder(context.Background(), width, height, outFile)
	if err != nil {
		logger.WithComponent("binding").Error().Err(err).
			Int("width", width).
			Int("height", height).
			Str("out_file", outFile).
			Msg("encoder_init failed")
		return 0
	}
	return h
}

// EncoderIngestYUVFrame appends an NV12 frame. Errors are logged and dropped.
func (s *Surface) EncoderIngestYUVFrame(h Handle, width, height int, displayTime int64,
	lumaStride int, luma []byte, chromaStride int, chroma []byte) {
	err := s.IngestPlanar(h, encoder.PlanarFrame{
		Width:        width,
		Height:       height,
		DisplayTime:  displayTime,
		LumaStride:   lumaStride,
		Luma:         luma,
		ChromaStride: chromaStride,
		Chroma:       chroma,
	})
	if err != nil {
		logDropped("encoder_ingest_yuv_frame", h, err)
	}
}

// EncoderIngestBGRAFrame appends a BGRA frame. Errors are logged and dropped.
func (s *Surface) EncoderIngestBGRAFrame(h Handle, width, height int, displayTime int64,
	bytesPerRow int, bgra []byte) {
	err := s.IngestPacked(h, encoder.PackedFrame{
		Width:       width,
		Height:      height,
		DisplayTime: displayTime,
		BytesPerRow: bytesPerRow,
		Pixels:      bgra,
	})
	if err != nil {
		logDropped("encoder_ingest_bgra_frame", h, err)
	}
}

// EncoderFinish finalizes the file behind h. Unknown or finished handles are
// a logged no-op.
func (s *Surface) EncoderFinish(h Handle) {
	if _, err := s.CloseEncoder(h); err != nil {
		logDropped("encoder_finish", h, err)
	}
}

// GetWindows returns window records, or an empty slice on failure
func (s *Surface) GetWindows(filter, capture bool) []WindowInfoV2 {
	windows, err := s.Windows(context.Background(), window.Options{Filter: filter, Capture: capture})
	if err != nil {
		logger.WithComponent("binding").Error().Err(err).Msg("get_windows failed")
		return []WindowInfoV2{}
	}
	return windows
}

// GetWindowsInfo returns legacy window records.
//
// Deprecated: use GetWindows.
func (s *Surface) GetWindowsInfo(filter, capture bool) []WindowInfo {
	windows := s.GetWindows(filter, capture)
	out := make([]WindowInfo, 0, len(windows))
	for _, w := range windows {
		out = append(out, w.Legacy())
	}
	return out
}

// GetAppIcon returns the icon path for bundleID, or "" when there is none
func (s *Surface) GetAppIcon(bundleID string) string {
	if s.deps.Icons == nil {
		return ""
	}
	return s.deps.Icons.IconPath(bundleID)
}

// GetIntPairs returns display/window pairs, or an empty slice on failure
func (s *Surface) GetIntPairs() []IntPair {
	pairs, err := s.Pairs(context.Background())
	if err != nil {
		logger.WithComponent("binding").Error().Err(err).Msg("get_int_pairs failed")
		return []IntPair{}
	}
	return pairs
}

func logDropped(op string, h Handle, err error) {
	logger.WithComponent("binding").Warn().
		Err(err).
		Uint64("handle", uint64(h)).
		Msg(op + " ignored")
}

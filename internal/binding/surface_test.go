package binding

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bryanchriswhite/wincap/internal/config"
	"github.com/bryanchriswhite/wincap/internal/display"
	"github.com/bryanchriswhite/wincap/internal/encoder"
	"github.com/bryanchriswhite/wincap/internal/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWindows struct {
	windows []*window.Descriptor
	err     error
}

func (f *fakeWindows) Enumerate(ctx context.Context, opts window.Options) ([]*window.Descriptor, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*window.Descriptor
	for _, w := range f.windows {
		if opts.Filter && (!w.IsOnScreen || w.Title == "") {
			continue
		}
		c := *w
		if !opts.Capture {
			c.Thumbnail = nil
		}
		out = append(out, &c)
	}
	return out, nil
}

func (f *fakeWindows) Find(ctx context.Context, id uint32) (*window.Descriptor, error) {
	for _, w := range f.windows {
		if w.ID == id {
			return w, nil
		}
	}
	return nil, errors.New("not found")
}

type fakeIcons map[string]string

func (f fakeIcons) IconPath(bundleID string) string { return f[bundleID] }

type fakeDisplays []display.Display

func (f fakeDisplays) Displays() ([]display.Display, error) { return f, nil }

type recordingSink struct {
	mu     sync.Mutex
	frames int
	closed int
}

func (s *recordingSink) Write(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames++
	return len(b), nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func newTestSurface(t *testing.T) (*Surface, *recordingSink) {
	t.Helper()
	cfgMgr, err := config.NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	sink := &recordingSink{}
	s := NewSurface(Deps{
		Config: cfgMgr,
		Windows: &fakeWindows{windows: []*window.Descriptor{
			{ID: 1, Title: "Inbox ✉ Mail", AppName: "Thunderbird", BundleID: "org.mozilla.Thunderbird", IsOnScreen: true,
				Thumbnail: []byte{0x89, 'P', 'N', 'G'}, Geometry: window.Geometry{Width: 800, Height: 600}},
			{ID: 2, Title: "", AppName: "Files", BundleID: "org.gnome.Nautilus", IsOnScreen: true,
				Geometry: window.Geometry{Width: 800, Height: 600}},
			{ID: 3, Title: "日本語のタイトル", AppName: "エディタ", BundleID: "", IsOnScreen: false,
				Geometry: window.Geometry{X: 2000, Width: 800, Height: 600}},
			{ID: 4, Title: "Spanning", AppName: "Term", BundleID: "term", IsOnScreen: true,
				Geometry: window.Geometry{X: 1800, Width: 400, Height: 300}},
		}},
		Icons: fakeIcons{"org.mozilla.Thunderbird": "/usr/share/icons/hicolor/64x64/apps/thunderbird.png"},
		Displays: fakeDisplays{
			{Index: 0, Geometry: window.Geometry{Width: 1920, Height: 1080}},
			{Index: 1, Geometry: window.Geometry{X: 1920, Width: 1920, Height: 1080}},
		},
		NewEncoder: func(ctx context.Context, p encoder.Params) (*encoder.Encoder, error) {
			return encoder.NewWithSink(p, sink)
		},
	})
	return s, sink
}

func TestEncoderInit_Sentinels(t *testing.T) {
	s, _ := newTestSurface(t)

	h := s.EncoderInit(4, 2, "out.mp4")
	assert.NotZero(t, h)

	assert.Zero(t, s.EncoderInit(0, 0, "out.mp4"))
	assert.Zero(t, s.EncoderInit(-4, 2, "out.mp4"))
	assert.Zero(t, s.EncoderInit(4, 2, ""))
	assert.Equal(t, 1, s.Encoders().Len())

	odd := s.EncoderInit(1365, 767, "odd.mp4")
	assert.NotZero(t, odd, "odd dimensions are padded by the encoder")

	h2 := s.EncoderInit(4, 2, "other.mp4")
	assert.NotEqual(t, h, h2)
}

func TestEncoder_ZeroAndUnknownHandlesAreNoOps(t *testing.T) {
	s, sink := newTestSurface(t)

	bgra := make([]byte, 4*4*2)
	assert.NotPanics(t, func() {
		s.EncoderIngestBGRAFrame(0, 4, 2, 0, 16, bgra)
		s.EncoderIngestBGRAFrame(99, 4, 2, 0, 16, bgra)
		s.EncoderIngestYUVFrame(0, 4, 2, 0, 4, make([]byte, 8), 4, make([]byte, 4))
		s.EncoderFinish(0)
		s.EncoderFinish(99)
	})
	assert.Zero(t, sink.frames)

	_, err := s.CloseEncoder(42)
	assert.ErrorIs(t, err, ErrUnknownHandle)
}

func TestEncoder_BufferLengthsCheckedBeforeIngest(t *testing.T) {
	s, sink := newTestSurface(t)
	h := s.EncoderInit(4, 2, "out.mp4")
	require.NotZero(t, h)

	err := s.IngestPacked(h, encoder.PackedFrame{Width: 4, Height: 2, BytesPerRow: 16, Pixels: make([]byte, 31)})
	assert.ErrorIs(t, err, encoder.ErrBufferSize)

	err = s.IngestPlanar(h, encoder.PlanarFrame{Width: 4, Height: 2, LumaStride: 4, Luma: make([]byte, 8), ChromaStride: 4, Chroma: make([]byte, 3)})
	assert.ErrorIs(t, err, encoder.ErrBufferSize)

	s.EncoderIngestBGRAFrame(h, 4, 2, 0, 16, make([]byte, 16))
	assert.Zero(t, sink.frames)

	// Strides whose product with the height wraps around must not reach the copy
	assert.NotPanics(t, func() {
		s.EncoderIngestYUVFrame(h, 4, 2, 0, 1<<62, nil, 4, make([]byte, 4))
		s.EncoderIngestYUVFrame(h, 4, 2, 0, 4, make([]byte, 8), 1<<63-1, nil)
		s.EncoderIngestBGRAFrame(h, 4, 4, 0, 1<<62, nil)
	})
	assert.Zero(t, sink.frames)

	s.EncoderIngestBGRAFrame(h, 4, 2, 0, 16, make([]byte, 32))
	s.EncoderIngestYUVFrame(h, 4, 2, int64(time.Second/30), 4, make([]byte, 8), 4, make([]byte, 4))
	assert.Equal(t, 2, sink.frames)
}

func TestEncoderFinish_Twice(t *testing.T) {
	s, sink := newTestSurface(t)
	h := s.EncoderInit(4, 2, "out.mp4")
	require.NotZero(t, h)

	s.EncoderIngestBGRAFrame(h, 4, 2, 0, 16, make([]byte, 32))
	assert.NotPanics(t, func() {
		s.EncoderFinish(h)
		s.EncoderFinish(h)
	})
	assert.Equal(t, 1, sink.closed)
	assert.Equal(t, 0, s.Encoders().Len())

	// Ingest after finish is a no-op too
	s.EncoderIngestBGRAFrame(h, 4, 2, int64(time.Second), 16, make([]byte, 32))
	assert.Equal(t, 1, sink.frames)
}

func TestEncoderFinish_Concurrent(t *testing.T) {
	s, sink := newTestSurface(t)
	h := s.EncoderInit(4, 2, "out.mp4")
	require.NotZero(t, h)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.EncoderFinish(h)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, sink.closed)
}

func TestGetWindows_FilterOnlyOnScreen(t *testing.T) {
	s, _ := newTestSurface(t)

	all := s.GetWindows(false, false)
	assert.Len(t, all, 4)

	visible := s.GetWindows(true, false)
	require.NotEmpty(t, visible)
	for _, w := range visible {
		assert.True(t, w.IsOnScreen, "window %d", w.ID)
	}
}

func TestGetWindows_CaptureAndRoundTrip(t *testing.T) {
	s, _ := newTestSurface(t)

	withThumbs := s.GetWindows(false, true)
	require.Len(t, withThumbs, 4)
	assert.Equal(t, WindowInfoV2{
		Title: "Inbox ✉ Mail", AppName: "Thunderbird", BundleID: "org.mozilla.Thunderbird",
		IsOnScreen: true, ID: 1, Thumbnail: []byte{0x89, 'P', 'N', 'G'},
	}, withThumbs[0])
	assert.Empty(t, withThumbs[1].Title)
	assert.Equal(t, "日本語のタイトル", withThumbs[2].Title)
	assert.Equal(t, "エディタ", withThumbs[2].AppName)
	assert.Empty(t, withThumbs[2].BundleID)

	without := s.GetWindows(false, false)
	assert.Empty(t, without[0].Thumbnail)
}

func TestGetWindowsInfo_Legacy(t *testing.T) {
	s, _ := newTestSurface(t)

	legacy := s.GetWindowsInfo(false, true)
	require.Len(t, legacy, 4)
	assert.Equal(t, WindowInfo{
		Title: "Inbox ✉ Mail", AppName: "Thunderbird", BundleID: "org.mozilla.Thunderbird",
		IsOnScreen: true, ID: 1,
	}, legacy[0])
}

func TestGetWindows_FailureIsEmpty(t *testing.T) {
	s := NewSurface(Deps{Windows: &fakeWindows{err: errors.New("no display")}})

	windows := s.GetWindows(true, true)
	assert.NotNil(t, windows)
	assert.Empty(t, windows)
	assert.Empty(t, s.GetWindowsInfo(false, false))
	assert.Empty(t, s.GetIntPairs())
}

func TestGetAppIcon(t *testing.T) {
	s, _ := newTestSurface(t)

	assert.Equal(t, "/usr/share/icons/hicolor/64x64/apps/thunderbird.png", s.GetAppIcon("org.mozilla.Thunderbird"))
	assert.Equal(t, "", s.GetAppIcon("com.example.unknown"))
	assert.Equal(t, "", NewSurface(Deps{}).GetAppIcon("anything"))
}

func TestGetIntPairs(t *testing.T) {
	s, _ := newTestSurface(t)

	// Window 2 is untitled and window 3 off-screen, so only 1 and 4 are paired
	assert.Equal(t, []IntPair{
		{First: 0, Second: 1},
		{First: 0, Second: 4},
		{First: 1, Second: 4},
	}, s.GetIntPairs())
}

func TestSurfaceClose_FinishesOpenEncoders(t *testing.T) {
	s, sink := newTestSurface(t)
	require.NotZero(t, s.EncoderInit(4, 2, "a.mp4"))
	require.NotZero(t, s.EncoderInit(4, 2, "b.mp4"))

	require.NoError(t, s.Close())
	assert.Equal(t, 2, sink.closed)
	assert.Equal(t, 0, s.Encoders().Len())
}

type fakeThumbs map[uint32][]byte

func (f fakeThumbs) Thumbnails(ctx context.Context, windows []*window.Descriptor) map[uint32][]byte {
	out := map[uint32][]byte{}
	for _, w := range windows {
		if data, ok := f[w.ID]; ok {
			out[w.ID] = data
		}
	}
	return out
}

func TestThumbnail(t *testing.T) {
	s, _ := newTestSurface(t)
	_, _, err := s.Thumbnail(context.Background(), 1)
	assert.Error(t, err, "no thumbnailer configured")

	s.deps.Thumbnails = fakeThumbs{1: []byte("png")}
	data, format, err := s.Thumbnail(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)
	assert.Equal(t, config.ThumbnailPNG, format)

	_, _, err = s.Thumbnail(context.Background(), 2)
	assert.Error(t, err, "capture produced nothing")

	_, _, err = s.Thumbnail(context.Background(), 404)
	assert.Error(t, err)
}

type fakeGrabber map[uint32][]byte

func (f fakeGrabber) Capture(w *window.Descriptor) ([]byte, error) {
	if data, ok := f[w.ID]; ok {
		return data, nil
	}
	return nil, errors.New("not capturable")
}

func TestCaptureWindow(t *testing.T) {
	s, _ := newTestSurface(t)
	_, _, err := s.CaptureWindow(context.Background(), 1)
	assert.Error(t, err, "no grabber configured")

	s.deps.Thumbnails = fakeThumbs{1: []byte("small")}
	s.deps.Grabber = fakeGrabber{1: []byte("full")}
	data, format, err := s.CaptureWindow(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("full"), data)
	assert.Equal(t, config.ThumbnailPNG, format)

	_, _, err = s.CaptureWindow(context.Background(), 2)
	assert.Error(t, err)
}

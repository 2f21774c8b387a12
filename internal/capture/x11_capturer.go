package capture

import (
	"fmt"
	"image"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/wincap/internal/logger"
	"github.com/bryanchriswhite/wincap/internal/window"
)

// X11Capturer captures windows using X11/XWayland
type X11Capturer struct {
	conn             *xgb.Conn
	screen           *xproto.ScreenInfo
	compositeEnabled bool
	mu               sync.Mutex
}

// NewX11Capturer connects to the X server and enables Composite when available
func NewX11Capturer() (*X11Capturer, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	c := &X11Capturer{
		conn:   conn,
		screen: screen,
	}

	log := logger.WithComponent("x11-capturer")
	if err := composite.Init(conn); err != nil {
		log.Warn().
			Err(err).
			Msg("Composite extension not available - thumbnails of obscured windows may be wrong")
	} else {
		c.compositeEnabled = true
		log.Debug().Msg("Composite extension initialized")
	}

	return c, nil
}

// Close closes the X11 connection
func (c *X11Capturer) Close() error {
	c.conn.Close()
	return nil
}

// Name returns the capturer name
func (c *X11Capturer) Name() string {
	return "x11"
}

// CanCapture checks if this capturer can capture the given window
func (c *X11Capturer) CanCapture(w *window.Descriptor) bool {
	if w.IsNativeWayland {
		return false
	}
	return w.ID != 0
}

// CaptureWindow captures a window by its descriptor
func (c *X11Capturer) CaptureWindow(w *window.Descriptor) (*image.RGBA, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.CanCapture(w) {
		return nil, fmt.Errorf("cannot capture window %d: native Wayland or invalid ID", w.ID)
	}

	log := logger.WithComponent("x11-capturer")
	win := xproto.Window(w.ID)

	attrs, err := xproto.GetWindowAttributes(c.conn, win).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get window attributes: %w", err)
	}

	// Frame windows of reparenting WMs are InputOnly or unmapped; use a child
	if attrs.Class != xproto.WindowClassInputOutput || attrs.MapState != xproto.MapStateViewable {
		child, err := c.findCapturableChild(win)
		if err != nil {
			return nil, fmt.Errorf("no capturable window found: %w", err)
		}
		log.Debug().
			Uint32("window_id", w.ID).
			Uint32("child_window_id", uint32(child)).
			Msg("Using capturable child window")
		win = child
	}

	geom, err := xproto.GetGeometry(c.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get window geometry: %w", err)
	}

	return c.captureDrawable(win, geom)
}

// findCapturableChild recursively searches for a viewable InputOutput child
func (c *X11Capturer) findCapturableChild(parent xproto.Window) (xproto.Window, error) {
	tree, err := xproto.QueryTree(c.conn, parent).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to query tree: %w", err)
	}

	for _, child := range tree.Children {
		attrs, err := xproto.GetWindowAttributes(c.conn, child).Reply()
		if err != nil {
			continue
		}
		geom, err := xproto.GetGeometry(c.conn, xproto.Drawable(child)).Reply()
		if err != nil {
			continue
		}
		if attrs.Class == xproto.WindowClassInputOutput && attrs.MapState == xproto.MapStateViewable &&
			geom.Width > 10 && geom.Height > 10 {
			return child, nil
		}
		if grandchild, err := c.findCapturableChild(child); err == nil {
			return grandchild, nil
		}
	}

	return 0, fmt.Errorf("no capturable child found")
}

// captureDrawable reads a window's pixels, through a Composite pixmap when possible
func (c *X11Capturer) captureDrawable(win xproto.Window, geom *xproto.GetGeometryReply) (*image.RGBA, error) {
	drawable := xproto.Drawable(win)

	if c.compositeEnabled {
		if err := composite.RedirectWindowChecked(c.conn, win, composite.RedirectAutomatic).Check(); err == nil {
			defer composite.UnredirectWindow(c.conn, win, composite.RedirectAutomatic)

			if pixmap, err := xproto.NewPixmapId(c.conn); err == nil {
				if err := composite.NameWindowPixmapChecked(c.conn, win, pixmap).Check(); err == nil {
					drawable = xproto.Drawable(pixmap)
					defer xproto.FreePixmap(c.conn, pixmap)
				}
			}
		}
	}

	reply, err := xproto.GetImage(
		c.conn,
		xproto.ImageFormatZPixmap,
		drawable,
		0, 0,
		geom.Width, geom.Height,
		0xffffffff,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	return zpixmapToRGBA(reply.Data, int(geom.Width), int(geom.Height), int(c.screen.RootDepth))
}

// zpixmapToRGBA converts 24/32-bit little-endian ZPixmap data (BGRX) to RGBA
func zpixmapToRGBA(data []byte, width, height, depth int) (*image.RGBA, error) {
	if depth != 24 && depth != 32 {
		return nil, fmt.Errorf("unsupported screen depth %d", depth)
	}
	if len(data) < width*height*4 {
		return nil, fmt.Errorf("short image data: got %d bytes for %dx%d", len(data), width, height)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < width*height*4; i += 4 {
		img.Pix[i] = data[i+2]
		img.Pix[i+1] = data[i+1]
		img.Pix[i+2] = data[i]
		img.Pix[i+3] = 255
	}
	return img, nil
}

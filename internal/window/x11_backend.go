package window

import (
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/wincap/internal/logger"
)

// X11Backend implements the Backend interface using X11
type X11Backend struct {
	conn   *xgb.Conn
	root   xproto.Window
	screen *xproto.ScreenInfo

	atomMu sync.Mutex
	atoms  map[string]xproto.Atom
}

// NewX11Backend creates a new X11 backend
func NewX11Backend() (*X11Backend, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	return &X11Backend{
		conn:   conn,
		root:   screen.Root,
		screen: screen,
		atoms:  make(map[string]xproto.Atom),
	}, nil
}

// Close closes the X11 connection
func (b *X11Backend) Close() error {
	b.conn.Close()
	return nil
}

// Name returns the backend name
func (b *X11Backend) Name() string {
	return "x11"
}

// Conn returns the X11 connection so capture and display code can share it
func (b *X11Backend) Conn() *xgb.Conn {
	return b.conn
}

// Screen returns the default screen
func (b *X11Backend) Screen() *xproto.ScreenInfo {
	return b.screen
}

// ListWindows returns all client windows using EWMH _NET_CLIENT_LIST with QueryTree fallback
func (b *X11Backend) ListWindows() ([]*Descriptor, error) {
	log := logger.WithComponent("x11-backend")

	ids, err := b.clientListEWMH()
	if err != nil || len(ids) == 0 {
		log.Debug().Err(err).Msg("ListWindows: EWMH unavailable, falling back to QueryTree")
		tree, err := xproto.QueryTree(b.conn, b.root).Reply()
		if err != nil {
			return nil, fmt.Errorf("failed to query window tree: %w", err)
		}
		ids = tree.Children
	}

	currentDesktop := b.currentDesktop()
	windows := make([]*Descriptor, 0, len(ids))
	for _, id := range ids {
		info, err := b.describe(id, currentDesktop)
		if err != nil {
			log.Debug().Uint32("winID", uint32(id)).Err(err).Msg("ListWindows: failed to get window info")
			continue
		}
		// No title and no class is never a user window
		if info.Title == "" && info.Class == "" {
			continue
		}
		windows = append(windows, info)
	}

	log.Debug().Int("count", len(windows)).Msg("ListWindows: done")
	return windows, nil
}

// Describe returns the descriptor of a single window
func (b *X11Backend) Describe(windowID uint32) (*Descriptor, error) {
	return b.describe(xproto.Window(windowID), b.currentDesktop())
}

// clientListEWMH reads the window ids from _NET_CLIENT_LIST
func (b *X11Backend) clientListEWMH() ([]xproto.Window, error) {
	atom, err := b.atom("_NET_CLIENT_LIST")
	if err != nil {
		return nil, err
	}
	reply, err := xproto.GetProperty(b.conn, false, b.root, atom,
		xproto.GetPropertyTypeAny, 0, (1<<32)-1).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get _NET_CLIENT_LIST: %w", err)
	}

	ids := make([]xproto.Window, 0, len(reply.Value)/4)
	for i := 0; i+4 <= len(reply.Value); i += 4 {
		ids = append(ids, xproto.Window(binary.LittleEndian.Uint32(reply.Value[i:])))
	}
	return ids, nil
}

// describe retrieves information about a window
func (b *X11Backend) describe(win xproto.Window, currentDesktop int) (*Descriptor, error) {
	attrs, err := xproto.GetWindowAttributes(b.conn, win).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get window attributes: %w", err)
	}

	info := &Descriptor{ID: uint32(win)}

	if geom, err := xproto.GetGeometry(b.conn, xproto.Drawable(win)).Reply(); err == nil {
		info.Geometry = Geometry{
			X:      int(geom.X),
			Y:      int(geom.Y),
			Width:  int(geom.Width),
			Height: int(geom.Height),
		}
		// Geometry is parent-relative; reparenting WMs need root coordinates
		if tr, err := xproto.TranslateCoordinates(b.conn, win, b.root, 0, 0).Reply(); err == nil {
			info.Geometry.X = int(tr.DstX)
			info.Geometry.Y = int(tr.DstY)
		}
	}

	if title, err := b.textProperty(win, "_NET_WM_NAME"); err == nil {
		info.Title = title
	}
	if info.Title == "" {
		if title, err := b.textProperty(win, "WM_NAME"); err == nil {
			info.Title = title
		}
	}

	// WM_CLASS is instance\0class\0
	if classRaw, err := b.textProperty(win, "WM_CLASS"); err == nil {
		parts := strings.Split(classRaw, "\x00")
		if len(parts) >= 1 {
			info.Instance = parts[0]
		}
		if len(parts) >= 2 && parts[1] != "" {
			info.Class = parts[1]
		} else {
			info.Class = info.Instance
		}
	}

	if pid, ok := b.cardinal(win, "_NET_WM_PID"); ok {
		info.PID = int(pid)
	}

	info.Desktop = 0
	if desktop, ok := b.cardinal(win, "_NET_WM_DESKTOP"); ok {
		if desktop == 0xFFFFFFFF {
			info.Desktop = -1
		} else {
			info.Desktop = int(desktop)
		}
	}

	info.IsOnScreen = attrs.MapState == xproto.MapStateViewable &&
		!b.hasState(win, "_NET_WM_STATE_HIDDEN") &&
		(info.Desktop == -1 || currentDesktop < 0 || info.Desktop == currentDesktop)

	return info, nil
}

// currentDesktop returns _NET_CURRENT_DESKTOP, or -1 when the WM does not publish it
func (b *X11Backend) currentDesktop() int {
	if v, ok := b.cardinal(b.root, "_NET_CURRENT_DESKTOP"); ok {
		return int(v)
	}
	return -1
}

// hasState reports whether the named atom is in the window's _NET_WM_STATE
func (b *X11Backend) hasState(win xproto.Window, state string) bool {
	stateAtom, err := b.atom("_NET_WM_STATE")
	if err != nil {
		return false
	}
	want, err := b.atom(state)
	if err != nil {
		return false
	}
	reply, err := xproto.GetProperty(b.conn, false, win, stateAtom,
		xproto.AtomAtom, 0, (1<<32)-1).Reply()
	if err != nil {
		return false
	}
	for i := 0; i+4 <= len(reply.Value); i += 4 {
		if xproto.Atom(binary.LittleEndian.Uint32(reply.Value[i:])) == want {
			return true
		}
	}
	return false
}

// cardinal reads a single CARDINAL property value
func (b *X11Backend) cardinal(win xproto.Window, name string) (uint32, bool) {
	atom, err := b.atom(name)
	if err != nil {
		return 0, false
	}
	reply, err := xproto.GetProperty(b.conn, false, win, atom,
		xproto.AtomCardinal, 0, 1).Reply()
	if err != nil || len(reply.Value) < 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(reply.Value), true
}

// textProperty reads a text property, decoding STRING as Latin-1 and
// UTF8_STRING as-is
func (b *X11Backend) textProperty(win xproto.Window, name string) (string, error) {
	atom, err := b.atom(name)
	if err != nil {
		return "", err
	}
	reply, err := xproto.GetProperty(b.conn, false, win, atom,
		xproto.GetPropertyTypeAny, 0, (1<<32)-1).Reply()
	if err != nil {
		return "", err
	}
	if reply.ValueLen == 0 {
		return "", fmt.Errorf("empty property %s", name)
	}
	if reply.Type == xproto.AtomString {
		return latin1ToUTF8(reply.Value), nil
	}
	return string(reply.Value), nil
}

// atom interns and caches an atom by name
func (b *X11Backend) atom(name string) (xproto.Atom, error) {
	b.atomMu.Lock()
	defer b.atomMu.Unlock()

	if a, ok := b.atoms[name]; ok {
		return a, nil
	}
	reply, err := xproto.InternAtom(b.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	b.atoms[name] = reply.Atom
	return reply.Atom, nil
}

// Package display enumerates physical monitors and relates them to windows.
package display

import (
	"fmt"
	"sort"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xinerama"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/wincap/internal/logger"
	"github.com/bryanchriswhite/wincap/internal/window"
)

// Display is one monitor in root-window coordinates
type Display struct {
	Index    int             `json:"index"`
	Geometry window.Geometry `json:"geometry"`
}

// Pair links a display index to the id of a window intersecting it
type Pair struct {
	Display int    `json:"display"`
	Window  uint32 `json:"window"`
}

// Manager reads the monitor layout from the X server
type Manager struct {
	conn     *xgb.Conn
	screen   *xproto.ScreenInfo
	ownsConn bool

	initOnce sync.Once
	xinerama bool
}

// NewManager opens its own X connection
func NewManager() (*Manager, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}
	m := NewManagerWithConn(conn, xproto.Setup(conn).DefaultScreen(conn))
	m.ownsConn = true
	return m, nil
}

// NewManagerWithConn shares an existing connection, usually the window backend's
func NewManagerWithConn(conn *xgb.Conn, screen *xproto.ScreenInfo) *Manager {
	return &Manager{conn: conn, screen: screen}
}

// Close closes the connection if the manager opened it
func (m *Manager) Close() error {
	if m.ownsConn {
		m.conn.Close()
	}
	return nil
}

// Displays returns the active monitors ordered by index. Without Xinerama
// the whole root screen is reported as display 0.
func (m *Manager) Displays() ([]Display, error) {
	log := logger.WithComponent("display")

	m.initOnce.Do(func() {
		if err := xinerama.Init(m.conn); err != nil {
			log.Debug().Err(err).Msg("Xinerama extension unavailable")
			return
		}
		m.xinerama = true
	})

	if m.xinerama {
		if active, err := xinerama.IsActive(m.conn).Reply(); err == nil && active.State != 0 {
			reply, err := xinerama.QueryScreens(m.conn).Reply()
			if err != nil {
				return nil, fmt.Errorf("failed to query xinerama screens: %w", err)
			}
			displays := fromXinerama(reply.ScreenInfo)
			if len(displays) > 0 {
				log.Debug().Int("count", len(displays)).Msg("Displays from Xinerama")
				return displays, nil
			}
		}
	}

	return []Display{{
		Index: 0,
		Geometry: window.Geometry{
			Width:  int(m.screen.WidthInPixels),
			Height: int(m.screen.HeightInPixels),
		},
	}}, nil
}

func fromXinerama(screens []xinerama.ScreenInfo) []Display {
	displays := make([]Display, 0, len(screens))
	for i, s := range screens {
		if s.Width == 0 || s.Height == 0 {
			continue
		}
		displays = append(displays, Display{
			Index: i,
			Geometry: window.Geometry{
				X:      int(s.XOrg),
				Y:      int(s.YOrg),
				Width:  int(s.Width),
				Height: int(s.Height),
			},
		})
	}
	return displays
}

// Pairs returns one pair per (display, window) whose rectangles intersect,
// ordered by display index and then by the window order given
func Pairs(displays []Display, windows []*window.Descriptor) []Pair {
	sorted := append([]Display(nil), displays...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	pairs := []Pair{}
	for _, d := range sorted {
		for _, w := range windows {
			if w.Geometry.Intersects(d.Geometry) {
				pairs = append(pairs, Pair{Display: d.Index, Window: w.ID})
			}
		}
	}
	return pairs
}

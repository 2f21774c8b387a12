package window

import (
	"fmt"
	"strings"

	"github.com/bryanchriswhite/wincap/internal/logger"
	"github.com/godbus/dbus/v5"
)

// KWin D-Bus constants
const (
	kwinService       = "org.kde.KWin"
	kwinPath          = "/KWin"
	kwinInterface     = "org.kde.KWin"
	windowsRunnerPath = "/WindowsRunner"
	krunnerInterface  = "org.kde.krunner1"
)

// KWinBackend enumerates windows through KWin's D-Bus interface, for
// Wayland sessions where X11 only sees XWayland clients
type KWinBackend struct {
	conn *dbus.Conn
}

// NewKWinBackend connects to the session bus and checks that KWin is present
func NewKWinBackend() (*KWinBackend, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to list D-Bus names: %w", err)
	}

	found := false
	for _, name := range names {
		if name == kwinService {
			found = true
			break
		}
	}
	if !found {
		conn.Close()
		return nil, fmt.Errorf("KWin service not found on D-Bus")
	}

	logger.WithComponent("kwin-backend").Info().Msg("Connected to KWin D-Bus service")
	return &KWinBackend{conn: conn}, nil
}

// Close closes the D-Bus connection
func (b *KWinBackend) Close() error {
	return b.conn.Close()
}

// Name returns the backend name
func (b *KWinBackend) Name() string {
	return "kwin"
}

// ListWindows asks the KRunner WindowsRunner plugin for every window, then
// fills in details from KWin.getWindowInfo
func (b *KWinBackend) ListWindows() ([]*Descriptor, error) {
	log := logger.WithComponent("kwin-backend")

	// Match returns a(sssida{sv}); an empty query matches every window
	var rawMatches [][]interface{}
	obj := b.conn.Object(kwinService, windowsRunnerPath)
	if err := obj.Call(krunnerInterface+".Match", 0, "").Store(&rawMatches); err != nil {
		return nil, fmt.Errorf("failed to call Match: %w", err)
	}

	windows := make([]*Descriptor, 0, len(rawMatches))
	for _, rawMatch := range rawMatches {
		if len(rawMatch) < 3 {
			continue
		}
		rawID, ok := rawMatch[0].(string)
		if !ok {
			continue
		}
		text, _ := rawMatch[1].(string)
		iconName, _ := rawMatch[2].(string)

		info := &Descriptor{
			ID:              hashStringToUint32(rawID),
			Title:           text,
			Class:           iconName,
			Instance:        iconName,
			IsOnScreen:      true,
			IsNativeWayland: true,
		}

		// rawID looks like "0_{dc80ff04-3245-4d9b-b9a8-1582640d39e1}"
		if uuid := extractUUID(rawID); uuid != "" {
			b.applyWindowInfo(info, uuid)
			if xid, err := b.windowXID("/org/kde/KWin/Window/" + uuid); err == nil && xid > 0 {
				info.ID = xid
				info.IsNativeWayland = false
			}
		}

		if info.Title == "" && info.Class == "" {
			continue
		}
		windows = append(windows, info)
	}

	log.Debug().Int("count", len(windows)).Msg("ListWindows: done")
	return windows, nil
}

// applyWindowInfo copies caption, class, geometry and minimized state from
// KWin.getWindowInfo
func (b *KWinBackend) applyWindowInfo(info *Descriptor, uuid string) {
	var result map[string]dbus.Variant
	obj := b.conn.Object(kwinService, kwinPath)
	if err := obj.Call(kwinInterface+".getWindowInfo", 0, uuid).Store(&result); err != nil {
		return
	}

	if s, ok := variantString(result, "caption"); ok && s != "" {
		info.Title = s
	}
	if s, ok := variantString(result, "resourceClass"); ok && s != "" {
		info.Class = s
	}
	if s, ok := variantString(result, "resourceName"); ok && s != "" {
		info.Instance = s
	}
	if s, ok := variantString(result, "desktopFile"); ok && s != "" {
		info.BundleID = s
	}
	if v, ok := result["minimized"]; ok {
		if minimized, ok := v.Value().(bool); ok {
			info.IsOnScreen = !minimized
		}
	}
	info.Geometry = Geometry{
		X:      variantInt(result, "x"),
		Y:      variantInt(result, "y"),
		Width:  variantInt(result, "width"),
		Height: variantInt(result, "height"),
	}
}

// windowXID returns the X11 id of an XWayland window
func (b *KWinBackend) windowXID(windowPath string) (uint32, error) {
	obj := b.conn.Object(kwinService, dbus.ObjectPath(windowPath))
	for _, iface := range []string{"org.kde.KWin.Window", "org.kde.KWin.Client"} {
		for _, prop := range []string{"internalId", "windowId"} {
			v, err := obj.GetProperty(iface + "." + prop)
			if err != nil {
				continue
			}
			switch x := v.Value().(type) {
			case uint32:
				return x, nil
			case int32:
				return uint32(x), nil
			case uint64:
				return uint32(x), nil
			case int64:
				return uint32(x), nil
			}
		}
	}
	return 0, fmt.Errorf("no XID found")
}

func extractUUID(rawID string) string {
	start := strings.Index(rawID, "{")
	end := strings.Index(rawID, "}")
	if start < 0 || end <= start {
		return ""
	}
	return rawID[start+1 : end]
}

func variantString(m map[string]dbus.Variant, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.Value().(string)
	return s, ok
}

func variantInt(m map[string]dbus.Variant, key string) int {
	v, ok := m[key]
	if !ok {
		return 0
	}
	switch x := v.Value().(type) {
	case float64:
		return int(x)
	case int32:
		return int(x)
	case int64:
		return int(x)
	case uint32:
		return int(x)
	}
	return 0
}

// hashStringToUint32 maps KWin's UUID-style ids onto numeric ids (djb2)
func hashStringToUint32(s string) uint32 {
	var hash uint32 = 5381
	for i := 0; i < len(s); i++ {
		hash = ((hash << 5) + hash) + uint32(s[i])
	}
	return hash
}

package window

import (
	"fmt"
	"os"
	"strings"

	"github.com/bryanchriswhite/wincap/internal/config"
	"github.com/bryanchriswhite/wincap/internal/logger"
)

// Backend defines the interface for window discovery backends (X11, KWin)
type Backend interface {
	// ListWindows returns all application windows the display server knows about,
	// with IsOnScreen set by the backend
	ListWindows() ([]*Descriptor, error)

	// Close closes the connection to the display server
	Close() error

	// Name returns the backend name (e.g., "x11", "kwin")
	Name() string
}

// NewBackend opens the named backend. "auto" prefers KWin on a KDE Wayland
// session and X11 everywhere else.
func NewBackend(name string) (Backend, error) {
	log := logger.WithComponent("window")

	switch name {
	case config.BackendX11:
		return NewX11Backend()
	case config.BackendKWin:
		return NewKWinBackend()
	case config.BackendAuto, "":
	default:
		return nil, fmt.Errorf("unknown window backend: %s", name)
	}

	if isKDEWayland() {
		b, err := NewKWinBackend()
		if err == nil {
			return b, nil
		}
		log.Warn().Err(err).Msg("KWin backend unavailable, falling back to X11")
	}
	return NewX11Backend()
}

func isKDEWayland() bool {
	desktop := strings.ToUpper(os.Getenv("XDG_CURRENT_DESKTOP"))
	return strings.Contains(desktop, "KDE") &&
		(os.Getenv("WAYLAND_DISPLAY") != "" || os.Getenv("XDG_SESSION_TYPE") == "wayland")
}

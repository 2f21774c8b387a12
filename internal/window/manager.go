package window

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/bryanchriswhite/wincap/internal/config"
	"github.com/bryanchriswhite/wincap/internal/logger"
)

// AppResolver maps a window's class to its installed application identity
type AppResolver interface {
	// Resolve returns the desktop entry id and display name for a window class
	Resolve(class, instance string) (bundleID, appName string, ok bool)
}

// Thumbnailer captures thumbnails for a set of windows, keyed by window id.
// Windows it cannot capture are left out of the result.
type Thumbnailer interface {
	Thumbnails(ctx context.Context, windows []*Descriptor) map[uint32][]byte
}

// Manager enumerates windows through a backend and applies the configured rules
type Manager struct {
	backend   Backend
	configMgr *config.Manager
	apps      AppResolver
	thumbs    Thumbnailer
	selfPID   int
}

// NewManager creates a window manager. apps and thumbs may be nil; without a
// Thumbnailer, Capture requests return descriptors with empty thumbnails.
func NewManager(backend Backend, configMgr *config.Manager, apps AppResolver, thumbs Thumbnailer) *Manager {
	return &Manager{
		backend:   backend,
		configMgr: configMgr,
		apps:      apps,
		thumbs:    thumbs,
		selfPID:   os.Getpid(),
	}
}

// Backend returns the underlying backend
func (m *Manager) Backend() Backend {
	return m.backend
}

// Close closes the backend
func (m *Manager) Close() error {
	return m.backend.Close()
}

// Enumerate lists windows in backend order
func (m *Manager) Enumerate(ctx context.Context, opts Options) ([]*Descriptor, error) {
	log := logger.WithComponent("window")

	raw, err := m.backend.ListWindows()
	if err != nil {
		return nil, fmt.Errorf("failed to list windows: %w", err)
	}

	for _, w := range raw {
		m.resolveApp(w)
	}

	windows := Apply(raw, m.configMgr.Get().Windows, opts, m.selfPID)

	if opts.Capture && m.thumbs != nil && len(windows) > 0 {
		thumbs := m.thumbs.Thumbnails(ctx, windows)
		for _, w := range windows {
			w.Thumbnail = thumbs[w.ID]
		}
	}

	log.Debug().
		Str("backend", m.backend.Name()).
		Int("listed", len(raw)).
		Int("returned", len(windows)).
		Bool("filter", opts.Filter).
		Bool("capture", opts.Capture).
		Msg("Enumerated windows")

	return windows, nil
}

// Find returns one window by id regardless of filtering rules
func (m *Manager) Find(ctx context.Context, id uint32) (*Descriptor, error) {
	raw, err := m.backend.ListWindows()
	if err != nil {
		return nil, fmt.Errorf("failed to list windows: %w", err)
	}
	for _, w := range raw {
		if w.ID == id {
			m.resolveApp(w)
			return w, nil
		}
	}
	return nil, fmt.Errorf("window %d not found", id)
}

// resolveApp fills AppName and BundleID, falling back to the window class
func (m *Manager) resolveApp(w *Descriptor) {
	if m.apps != nil {
		lookup := w.Class
		if w.BundleID != "" {
			lookup = w.BundleID
		}
		if bundleID, appName, ok := m.apps.Resolve(lookup, w.Instance); ok {
			w.BundleID = bundleID
			w.AppName = appName
			return
		}
	}
	if w.AppName == "" {
		w.AppName = w.Class
	}
	if w.BundleID == "" {
		w.BundleID = strings.ToLower(w.Class)
	}
}

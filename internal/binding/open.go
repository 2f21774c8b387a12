package binding

import (
	"fmt"

	"github.com/bryanchriswhite/wincap/internal/appinfo"
	"github.com/bryanchriswhite/wincap/internal/capture"
	"github.com/bryanchriswhite/wincap/internal/config"
	"github.com/bryanchriswhite/wincap/internal/display"
	"github.com/bryanchriswhite/wincap/internal/logger"
	"github.com/bryanchriswhite/wincap/internal/window"
)

// Open wires the configured window backend, capturer, display manager and
// application registry into a Surface
func Open(configMgr *config.Manager) (*Surface, error) {
	log := logger.WithComponent("binding")
	cfg := configMgr.Get()

	backend, err := window.NewBackend(cfg.Windows.Backend)
	if err != nil {
		return nil, fmt.Errorf("failed to open window backend: %w", err)
	}
	closers := []func() error{backend.Close}

	var thumbs window.Thumbnailer
	var grabber WindowGrabber
	if capturer, err := capture.NewX11Capturer(); err != nil {
		log.Warn().Err(err).Msg("Window capture unavailable, thumbnails will be empty")
	} else {
		t := capture.NewThumbnailer(capturer, configMgr)
		thumbs, grabber = t, t
		closers = append(closers, capturer.Close)
	}

	var displays DisplaySource
	if x11, ok := backend.(*window.X11Backend); ok {
		displays = display.NewManagerWithConn(x11.Conn(), x11.Screen())
	} else if dm, err := display.NewManager(); err != nil {
		log.Warn().Err(err).Msg("Display layout unavailable")
	} else {
		displays = dm
		closers = append(closers, dm.Close)
	}

	apps := appinfo.NewRegistry(cfg.Icons)
	windows := window.NewManager(backend, configMgr, apps, thumbs)

	log.Info().Str("backend", backend.Name()).Msg("Binding surface ready")

	return NewSurface(Deps{
		Config:     configMgr,
		Windows:    windows,
		Icons:      apps,
		Displays:   displays,
		Thumbnails: thumbs,
		Grabber:    grabber,
		Closers:    closers,
	}), nil
}

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bryanchriswhite/wincap/internal/binding"
	"github.com/bryanchriswhite/wincap/internal/capture"
	"github.com/bryanchriswhite/wincap/internal/config"
	"github.com/bryanchriswhite/wincap/internal/logger"
	"github.com/bryanchriswhite/wincap/internal/window"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Version is reported by the health endpoint
const Version = "0.1.0"

// Server represents the HTTP API server
type Server struct {
	router    *mux.Router
	surface   *binding.Surface
	configMgr *config.Manager
	upgrader  websocket.Upgrader
	http      *http.Server
}

// NewServer creates a new API server
func NewServer(surface *binding.Surface, configMgr *config.Manager) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		surface:   surface,
		configMgr: configMgr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1 << 16,
			WriteBufferSize: 1 << 12,
			CheckOrigin:     localOrigin,
		},
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/windows", s.handleGetWindows).Methods("GET")
	api.HandleFunc("/windows/legacy", s.handleGetWindowsLegacy).Methods("GET")
	api.HandleFunc("/windows/{id:[0-9]+}/thumbnail", s.handleGetThumbnail).Methods("GET")
	api.HandleFunc("/windows/{id:[0-9]+}/capture", s.handleGetCapture).Methods("GET")
	api.HandleFunc("/apps/{bundle}/icon", s.handleGetIcon).Methods("GET")
	api.HandleFunc("/pairs", s.handleGetPairs).Methods("GET")

	// Encoder sessions
	api.HandleFunc("/encoder", s.handleEncoderSession)

	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the routed handler with CORS applied
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

// Start serves on host:port until Shutdown is called
func (s *Server) Start(host string, port int) error {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.WithComponent("api").Info().Str("addr", "http://"+addr).Msg("Starting server")

	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for handlers to return
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// localOrigin accepts requests without an Origin header (non-browser
// clients) and browser requests from pages served by this machine
func localOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// enableCORS adds CORS headers for local origins only
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !localOrigin(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}
		if origin := r.Header.Get("Origin"); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithComponent("api").Debug().Err(err).Msg("Failed to write response")
	}
}

// windowOptions reads the filter and capture query flags
func windowOptions(r *http.Request) (window.Options, error) {
	var opts window.Options
	q := r.URL.Query()
	for name, dst := range map[string]*bool{"filter": &opts.Filter, "capture": &opts.Capture} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return opts, fmt.Errorf("invalid %s: %q", name, raw)
		}
		*dst = v
	}
	return opts, nil
}

// HTTP Handlers

func (s *Server) handleGetWindows(w http.ResponseWriter, r *http.Request) {
	opts, err := windowOptions(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	windows, err := s.surface.Windows(r.Context(), opts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, windows)
}

func (s *Server) handleGetWindowsLegacy(w http.ResponseWriter, r *http.Request) {
	opts, err := windowOptions(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	windows, err := s.surface.Windows(r.Context(), opts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	legacy := make([]binding.WindowInfo, 0, len(windows))
	for _, win := range windows {
		legacy = append(legacy, win.Legacy())
	}
	writeJSON(w, legacy)
}

func (s *Server) handleGetThumbnail(w http.ResponseWriter, r *http.Request) {
	s.serveWindowImage(w, r, s.surface.Thumbnail)
}

func (s *Server) handleGetCapture(w http.ResponseWriter, r *http.Request) {
	s.serveWindowImage(w, r, s.surface.CaptureWindow)
}

func (s *Server) serveWindowImage(w http.ResponseWriter, r *http.Request,
	grab func(ctx context.Context, id uint32) ([]byte, string, error)) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		http.Error(w, "invalid window id", http.StatusBadRequest)
		return
	}
	data, format, err := grab(r.Context(), uint32(id))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", capture.ContentType(format))
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

func (s *Server) handleGetIcon(w http.ResponseWriter, r *http.Request) {
	path := s.surface.GetAppIcon(mux.Vars(r)["bundle"])
	if path == "" {
		http.Error(w, "icon not found", http.StatusNotFound)
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) handleGetPairs(w http.ResponseWriter, r *http.Request) {
	pairs, err := s.surface.Pairs(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, pairs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.configMgr.Get())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status":   "healthy",
		"version":  Version,
		"encoders": s.surface.Encoders().Len(),
	})
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/bryanchriswhite/wincap/internal/binding"
	"github.com/bryanchriswhite/wincap/internal/config"
	"github.com/bryanchriswhite/wincap/internal/encoder"
	"github.com/bryanchriswhite/wincap/internal/logger"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const maxFrameMessage = 64 << 20

// sessionInit is the first message of an encoder session
type sessionInit struct {
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	OutFile string `json:"out_file"`
}

// sessionReply is sent after init, on frame errors and after finish
type sessionReply struct {
	Session string         `json:"session,omitempty"`
	Handle  uint64         `json:"handle,omitempty"`
	Error   string         `json:"error,omitempty"`
	Stats   *encoder.Stats `json:"stats,omitempty"`
}

// handleEncoderSession runs one encoder over a WebSocket: a JSON init text
// message, binary frame messages, then the text message "finish". Closing
// the connection early finishes the file too.
func (s *Server) handleEncoderSession(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithComponent("api").Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameMessage)

	id := uuid.NewString()
	log := logger.WithComponent("api").With().Str("session", id).Logger()

	msgType, data, err := conn.ReadMessage()
	if err != nil {
		return
	}
	var req sessionInit
	if msgType != websocket.TextMessage {
		conn.WriteJSON(sessionReply{Error: "first message must be a JSON init message"})
		return
	}
	if err := json.Unmarshal(data, &req); err != nil {
		conn.WriteJSON(sessionReply{Error: "invalid init message: " + err.Error()})
		return
	}

	out, err := s.outputPath(req.OutFile)
	if err != nil {
		log.Warn().Err(err).Str("out_file", req.OutFile).Msg("Encoder session rejected")
		conn.WriteJSON(sessionReply{Error: err.Error()})
		return
	}
	h, err := s.surface.OpenEncoder(context.Background(), req.Width, req.Height, out)
	if err != nil {
		log.Warn().Err(err).Msg("Encoder session rejected")
		conn.WriteJSON(sessionReply{Error: err.Error()})
		return
	}
	log.Info().Uint64("handle", uint64(h)).Str("out_file", out).Msg("Encoder session started")

	finished := false
	defer func() {
		if !finished {
			if _, err := s.surface.CloseEncoder(h); err != nil {
				log.Warn().Err(err).Msg("Failed to finish abandoned encoder session")
			}
		}
	}()

	if err := conn.WriteJSON(sessionReply{Session: id, Handle: uint64(h)}); err != nil {
		return
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Msg("Encoder session read error")
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if err := s.ingest(h, data); err != nil {
				log.Debug().Err(err).Msg("Frame rejected")
				if err := conn.WriteJSON(sessionReply{Error: err.Error()}); err != nil {
					return
				}
			}

		case websocket.TextMessage:
			if strings.TrimSpace(string(data)) != "finish" {
				conn.WriteJSON(sessionReply{Error: "unknown command"})
				continue
			}
			finished = true
			stats, err := s.surface.CloseEncoder(h)
			reply := sessionReply{Session: id, Stats: &stats}
			if err != nil {
				reply.Error = err.Error()
			}
			conn.WriteJSON(reply)
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "finished"))
			log.Info().Int("written", stats.Written).Msg("Encoder session finished")
			return
		}
	}
}

// outputPath resolves a client-supplied file name inside encoder.output_dir.
// Absolute paths and paths leaving the directory are rejected.
func (s *Server) outputPath(name string) (string, error) {
	if name == "" {
		return "", errors.New("out_file is required")
	}
	if filepath.IsAbs(name) || !filepath.IsLocal(name) {
		return "", fmt.Errorf("out_file %q must be a relative path inside the output directory", name)
	}
	cfg := config.Defaults().Encoder
	if s.configMgr != nil {
		cfg = s.configMgr.Get().Encoder
	}
	dir, err := cfg.ResolveOutputDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return path, nil
}

func (s *Server) ingest(h binding.Handle, msg []byte) error {
	f, err := decodeFrame(msg)
	if err != nil {
		return err
	}
	if f.Kind == FrameKindYUV {
		return s.surface.IngestPlanar(h, f.Planar)
	}
	return s.surface.IngestPacked(h, f.Packed)
}

// Package encoder turns timestamped NV12 or BGRA frames into an H.264 MP4
// file through an ffmpeg subprocess.
package encoder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bryanchriswhite/wincap/internal/config"
	"github.com/bryanchriswhite/wincap/internal/logger"
)

// Params describes one output file
type Params struct {
	Width        int
	Height       int
	OutputPath   string
	FPS          int
	MaxGapFrames int
	Codec        string
	Preset       string
	CRF          int
	FFmpegPath   string
}

// ParamsFromConfig fills encoder settings from the configuration
func ParamsFromConfig(width, height int, outputPath string, cfg config.EncoderConfig) Params {
	return Params{
		Width:        width,
		Height:       height,
		OutputPath:   outputPath,
		FPS:          cfg.FPS,
		MaxGapFrames: cfg.MaxGapFrames,
		Codec:        cfg.Codec,
		Preset:       cfg.Preset,
		CRF:          cfg.CRF,
		FFmpegPath:   cfg.FFmpegPath,
	}
}

func (p Params) validate() error {
	if p.Width <= 0 || p.Height <= 0 || p.Width > maxWidth || p.Height > maxWidth {
		return fmt.Errorf("%w: %dx%d", ErrDimensions, p.Width, p.Height)
	}
	if p.OutputPath == "" {
		return fmt.Errorf("output path is required")
	}
	return nil
}

// Stats counts what the encoder did with incoming frames
type Stats struct {
	Written  int           `json:"written"`
	Repeated int           `json:"repeated"`
	Dropped  int           `json:"dropped"`
	Duration time.Duration `json:"duration"`
}

// Encoder owns one output file. All methods are safe for concurrent use,
// but frames must be ingested in presentation order.
type Encoder struct {
	mu       sync.Mutex
	params   Params
	sink     Sink
	timeline *Timeline
	frame    []byte
	scratch  []byte
	stats    Stats
	last     int64
	finished bool
}

// New starts ffmpeg and returns an encoder writing to p.OutputPath
func New(ctx context.Context, p Params) (*Encoder, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if p.FPS <= 0 {
		p.FPS = 30
	}
	if p.Codec == "" {
		p.Codec = "libx264"
	}
	proc, err := StartFFmpeg(ctx, p)
	if err != nil {
		return nil, err
	}
	return NewWithSink(p, proc)
}

// NewWithSink returns an encoder writing packed NV12 frames to sink
func NewWithSink(p Params, sink Sink) (*Encoder, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if p.FPS <= 0 {
		p.FPS = 30
	}

	logger.WithComponent("encoder").Info().
		Int("width", p.Width).
		Int("height", p.Height).
		Int("fps", p.FPS).
		Str("output", p.OutputPath).
		Msg("Encoder started")

	size := nv12Size(p.Width, p.Height)
	return &Encoder{
		params:   p,
		sink:     sink,
		timeline: NewTimeline(p.FPS, p.MaxGapFrames),
		frame:    make([]byte, size),
		scratch:  make([]byte, size),
	}, nil
}

// Width returns the frame width the encoder accepts
func (e *Encoder) Width() int { return e.params.Width }

// Height returns the frame height the encoder accepts
func (e *Encoder) Height() int { return e.params.Height }

// OutputPath returns the destination file
func (e *Encoder) OutputPath() string { return e.params.OutputPath }

// IngestPlanar appends an NV12 frame
func (e *Encoder) IngestPlanar(f PlanarFrame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if err := e.checkSize(f.Width, f.Height); err != nil {
		return err
	}
	return e.ingest(f.DisplayTime, func(dst []byte) { packNV12(dst, f) })
}

// IngestPacked converts a BGRA frame to NV12 and appends it
func (e *Encoder) IngestPacked(f PackedFrame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if err := e.checkSize(f.Width, f.Height); err != nil {
		return err
	}
	return e.ingest(f.DisplayTime, func(dst []byte) { bgraToNV12(dst, f) })
}

func (e *Encoder) checkSize(width, height int) error {
	if width != e.params.Width || height != e.params.Height {
		return fmt.Errorf("%w: got %dx%d, want %dx%d",
			ErrFrameSize, width, height, e.params.Width, e.params.Height)
	}
	return nil
}

func (e *Encoder) ingest(ts int64, fill func([]byte)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.finished {
		return ErrFinished
	}

	repeats, write := e.timeline.Place(ts)
	if !write {
		e.stats.Dropped++
		return nil
	}

	// Fill the scratch buffer first so a failed repeat leaves the previous frame intact
	fill(e.scratch)

	for i := 0; i < repeats; i++ {
		if _, err := e.sink.Write(e.frame); err != nil {
			return fmt.Errorf("failed to repeat frame: %w", err)
		}
		e.stats.Repeated++
	}
	if _, err := e.sink.Write(e.scratch); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	e.frame, e.scratch = e.scratch, e.frame
	e.stats.Written++
	e.last = ts
	return nil
}

// Finish flushes the output and finalizes the file. A second call returns
// ErrFinished.
func (e *Encoder) Finish() (Stats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.finished {
		return e.stats, ErrFinished
	}
	e.finished = true

	if origin, ok := e.timeline.Origin(); ok {
		e.stats.Duration = time.Duration(e.last - origin)
	}

	log := logger.WithComponent("encoder")
	if err := e.sink.Close(); err != nil {
		log.Error().Err(err).Str("output", e.params.OutputPath).Msg("Encoder failed to finalize output")
		return e.stats, err
	}

	log.Info().
		Str("output", e.params.OutputPath).
		Int("written", e.stats.Written).
		Int("repeated", e.stats.Repeated).
		Int("dropped", e.stats.Dropped).
		Dur("duration", e.stats.Duration).
		Msg("Encoder finished")
	return e.stats, nil
}

// Stats returns the counters so far
func (e *Encoder) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

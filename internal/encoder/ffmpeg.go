package encoder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
)

// Sink receives packed NV12 frames; Close flushes and finalizes the output
type Sink interface {
	io.Writer
	Close() error
}

// findBinary locates a binary in PATH or common locations
func findBinary(name string) (string, error) {
	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	var paths []string
	switch runtime.GOOS {
	case "darwin":
		paths = []string{"/opt/homebrew/bin/" + name, "/usr/local/bin/" + name}
	case "linux":
		paths = []string{"/usr/bin/" + name, "/usr/local/bin/" + name}
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s not found in PATH or common locations", name)
}

// FFmpegPath returns the configured binary, or the ffmpeg found on the system
func FFmpegPath(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("ffmpeg not found at %s: %w", configured, err)
		}
		return configured, nil
	}
	return findBinary("ffmpeg")
}

// buildArgs builds the ffmpeg command line for raw NV12 on stdin to an
// H.264 MP4 file
func buildArgs(p Params) []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",

		"-f", "rawvideo",
		"-pix_fmt", "nv12",
		"-s", fmt.Sprintf("%dx%d", p.Width, p.Height),
		"-r", strconv.Itoa(p.FPS),
		"-i", "pipe:0",

		"-c:v", p.Codec,
	}
	if p.Preset != "" {
		args = append(args, "-preset", p.Preset)
	}
	if p.CRF > 0 {
		args = append(args, "-crf", strconv.Itoa(p.CRF))
	}
	// yuv420p output needs even dimensions; odd sources get one padded row or column
	if p.Width%2 != 0 || p.Height%2 != 0 {
		args = append(args, "-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2")
	}
	args = append(args,
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		p.OutputPath,
	)
	return args
}

// Process is a running ffmpeg reading frames from stdin
type Process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *tailBuffer
	done   chan error
	mu     sync.Mutex
	closed bool
}

// StartFFmpeg starts an ffmpeg process encoding to p.OutputPath
func StartFFmpeg(ctx context.Context, p Params) (*Process, error) {
	bin, err := FFmpegPath(p.FFmpegPath)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, bin, buildArgs(p)...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("get stdin pipe: %w", err)
	}
	stderr := &tailBuffer{limit: 4096}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	proc := &Process{
		cmd:    cmd,
		stdin:  stdin,
		stderr: stderr,
		done:   make(chan error, 1),
	}
	go func() {
		proc.done <- cmd.Wait()
	}()
	return proc, nil
}

// Write writes one raw frame to ffmpeg's stdin
func (p *Process) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, os.ErrClosed
	}
	n, err := p.stdin.Write(data)
	if err != nil {
		return n, fmt.Errorf("write to ffmpeg: %w%s", err, p.stderr.suffix())
	}
	return n, nil
}

// Close closes stdin and waits for ffmpeg to finalize the file
func (p *Process) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		p.stdin.Close()
	}
	p.mu.Unlock()

	if err := <-p.done; err != nil {
		return fmt.Errorf("ffmpeg exited: %w%s", err, p.stderr.suffix())
	}
	return nil
}

// Kill terminates ffmpeg without finalizing the output
func (p *Process) Kill() error {
	return p.cmd.Process.Kill()
}

// tailBuffer keeps the last limit bytes written to it
type tailBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (t *tailBuffer) Write(b []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write(b)
	if over := t.buf.Len() - t.limit; over > 0 {
		t.buf.Next(over)
	}
	return len(b), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(bytes.TrimSpace(t.buf.Bytes()))
}

func (t *tailBuffer) suffix() string {
	if s := t.String(); s != "" {
		return ": " + s
	}
	return ""
}

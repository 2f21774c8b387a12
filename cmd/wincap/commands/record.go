package commands

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanchriswhite/wincap/internal/capture"
	"github.com/bryanchriswhite/wincap/internal/encoder"
	"github.com/bryanchriswhite/wincap/internal/logger"
	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a window to an MP4 file",
	Long: `Capture a window repeatedly and encode it to H.264 MP4 through ffmpeg.

The recording stops after --duration or on Ctrl+C. The output keeps the
size of the first captured frame; later frames from a grown window are
cropped to it and frames from a shrunk window are skipped.`,
	Example: `  # Record window 0x3a00007 for ten seconds
  wincap record --window 60817415 --out clip.mp4 --duration 10s`,
	RunE: runRecord,
}

var (
	recordWindow   uint32
	recordOut      string
	recordDuration time.Duration
	recordFPS      int
)

func init() {
	rootCmd.AddCommand(recordCmd)

	recordCmd.Flags().Uint32VarP(&recordWindow, "window", "w", 0, "window id (see 'wincap list')")
	recordCmd.Flags().StringVarP(&recordOut, "out", "o", "", "output MP4 file")
	recordCmd.Flags().DurationVarP(&recordDuration, "duration", "d", 0, "stop after this long (0 records until interrupted)")
	recordCmd.Flags().IntVar(&recordFPS, "fps", 0, "capture rate (default is encoder.fps from the config)")
	recordCmd.MarkFlagRequired("window")
	recordCmd.MarkFlagRequired("out")
}

func runRecord(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("record")

	surface, configMgr, err := openSurface()
	if err != nil {
		return err
	}
	defer surface.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if recordDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, recordDuration)
		defer cancel()
	}

	win, err := surface.Window(ctx, recordWindow)
	if err != nil {
		return err
	}

	capturer, err := capture.NewX11Capturer()
	if err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}
	defer capturer.Close()

	first, err := capturer.CaptureWindow(win)
	if err != nil {
		return fmt.Errorf("failed to capture window %d: %w", win.ID, err)
	}
	width, height := first.Bounds().Dx(), first.Bounds().Dy()

	h, err := surface.OpenEncoder(context.Background(), width, height, recordOut)
	if err != nil {
		return err
	}

	fps := recordFPS
	if fps <= 0 {
		fps = configMgr.Get().Encoder.FPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	fmt.Fprintf(os.Stderr, "Recording %q (%dx%d) to %s, press Ctrl+C to stop\n", win.Title, width, height, recordOut)

	start := time.Now()
	img := first
	for {
		frame := crop(img, width, height)
		data, bytesPerRow := capture.ToBGRA(frame)
		err := surface.IngestPacked(h, encoder.PackedFrame{
			Width:       width,
			Height:      height,
			DisplayTime: time.Since(start).Nanoseconds(),
			BytesPerRow: bytesPerRow,
			Pixels:      data,
		})
		if err != nil {
			if !errors.Is(err, encoder.ErrFrameSize) {
				surface.CloseEncoder(h)
				return err
			}
			log.Warn().Err(err).Msg("Window was resized, skipping frame")
		}

		select {
		case <-ctx.Done():
			stats, err := surface.CloseEncoder(h)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Wrote %d frames (%d repeated, %d dropped) covering %s\n",
				stats.Written, stats.Repeated, stats.Dropped, stats.Duration.Round(time.Millisecond))
			return nil
		case <-ticker.C:
		}

		next, err := capturer.CaptureWindow(win)
		if err != nil {
			log.Warn().Err(err).Msg("Capture failed, repeating previous frame")
			continue
		}
		img = next
	}
}

// crop returns the top-left width x height region of img
func crop(img *image.RGBA, width, height int) *image.RGBA {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}
	if b.Dx() < width || b.Dy() < height {
		return img
	}
	return img.SubImage(image.Rect(b.Min.X, b.Min.Y, b.Min.X+width, b.Min.Y+height)).(*image.RGBA)
}

// Package compositor burns positioned photos onto a background video.
package compositor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/race-reels/internal/models"
)

// Overlay binds a local image file to its placement on the video timeline.
type Overlay struct {
	ImagePath string
	Placement models.Placement
}

// Compositor writes a new video at outputPath with overlays applied in order.
type Compositor interface {
	Composite(ctx context.Context, backgroundPath string, overlays []Overlay, outputPath string) error
}

// CommandRunner executes an external command.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// ErrNoOverlays is returned when nothing would be drawn on the background.
var ErrNoOverlays = errors.New("at least one overlay is required")

// FFmpeg composites with the ffmpeg overlay filter.
type FFmpeg struct {
	binary    string
	extraArgs []string
	run       CommandRunner
	logger    *logrus.Entry
}

// NewFFmpeg creates an ffmpeg compositor. extraArgs are inserted before the
// output path, e.g. codec or preset flags.
func NewFFmpeg(binary string, extraArgs []string, logger *logrus.Logger) *FFmpeg {
	if binary == "" {
		binary = "ffmpeg"
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &FFmpeg{
		binary:    binary,
		extraArgs: extraArgs,
		run:       defaultCommandRunner,
		logger:    logger.WithField("component", "compositor"),
	}
}

// WithCommandRunner replaces the process runner, used in tests.
func (f *FFmpeg) WithCommandRunner(r CommandRunner) *FFmpeg {
	if r != nil {
		f.run = r
	}
	return f
}

// Composite runs ffmpeg and verifies the output file was produced
func (f *FFmpeg) Composite(ctx context.Context, backgroundPath string, overlays []Overlay, outputPath string) error {
	if strings.TrimSpace(backgroundPath) == "" {
		return fmt.Errorf("background path is required")
	}
	if len(overlays) == 0 {
		return ErrNoOverlays
	}
	if _, err := os.Stat(backgroundPath); err != nil {
		return fmt.Errorf("background video not found: %w", err)
	}
	for _, o := range overlays {
		if _, err := os.Stat(o.ImagePath); err != nil {
			return fmt.Errorf("overlay image not found %q: %w", o.ImagePath, err)
		}
	}

	args := f.BuildArgs(backgroundPath, overlays, outputPath)

	f.logger.WithFields(logrus.Fields{
		"background":    backgroundPath,
		"overlay_count": len(overlays),
		"output":        outputPath,
	}).Debug("Executing ffmpeg")

	if err := f.run(ctx, f.binary, args...); err != nil {
		_ = os.Remove(outputPath)
		return fmt.Errorf("ffmpeg failed: %w", err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return fmt.Errorf("ffmpeg did not produce output file: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("ffmpeg produced an empty output file")
	}
	return nil
}

// BuildArgs constructs the ffmpeg arguments. Input 0 is the background and
// input i+1 is overlay i; overlays are chained so later ones draw on top.
func (f *FFmpeg) BuildArgs(backgroundPath string, overlays []Overlay, outputPath string) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-y", "-i", backgroundPath}
	for _, o := range overlays {
		args = append(args, "-i", o.ImagePath)
	}

	args = append(args,
		"-filter_complex", FilterGraph(overlays),
		"-map", fmt.Sprintf("[v%d]", len(overlays)),
		"-map", "0:a?",
		"-c:a", "copy",
	)
	args = append(args, f.extraArgs...)
	return append(args, outputPath)
}

// FilterGraph renders the overlay chain for ffmpeg's -filter_complex.
func FilterGraph(overlays []Overlay) string {
	parts := make([]string, 0, len(overlays)*2)
	prev := "0:v"
	for i, o := range overlays {
		input := fmt.Sprintf("%d:v", i+1)
		p := o.Placement
		if p.Width > 0 || p.Height > 0 {
			scaled := fmt.Sprintf("img%d", i)
			parts = append(parts, fmt.Sprintf("[%s]scale=%d:%d[%s]", input, scaleDim(p.Width), scaleDim(p.Height), scaled))
			input = scaled
		}
		out := fmt.Sprintf("v%d", i+1)
		parts = append(parts, fmt.Sprintf("[%s][%s]overlay=%d:%d:enable='between(t,%s,%s)'[%s]",
			prev, input, p.X, p.Y, formatSeconds(p.StartTime), formatSeconds(p.EndTime), out))
		prev = out
	}
	return strings.Join(parts, ";")
}

// scaleDim maps an unset dimension to -1 so ffmpeg keeps the aspect ratio.
func scaleDim(v int) int {
	if v <= 0 {
		return -1
	}
	return v
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

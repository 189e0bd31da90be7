package compositor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/race-reels/internal/models"
)

func TestFilterGraph(t *testing.T) {
	overlays := []Overlay{
		{ImagePath: "a.jpg", Placement: models.Placement{X: 10, Y: 20, StartTime: 0, EndTime: 2.5}},
		{ImagePath: "b.jpg", Placement: models.Placement{X: 0, Y: 0, Width: 640, StartTime: 3, EndTime: 5}},
	}

	got := FilterGraph(overlays)
	want := "[0:v][1:v]overlay=10:20:enable='between(t,0,2.5)'[v1];" +
		"[2:v]scale=640:-1[img1];" +
		"[v1][img1]overlay=0:0:enable='between(t,3,5)'[v2]"
	assert.Equal(t, want, got)
}

func TestBuildArgs(t *testing.T) {
	f := NewFFmpeg("", []string{"-c:v", "libx264"}, nil)
	overlays := []Overlay{
		{ImagePath: "/tmp/a.jpg", Placement: models.Placement{EndTime: 1}},
		{ImagePath: "/tmp/b.jpg", Placement: models.Placement{EndTime: 1}},
	}

	args := f.BuildArgs("/tmp/bg.mp4", overlays, "/tmp/out.mp4")

	assert.Equal(t, "ffmpeg", f.binary)
	assert.Equal(t, []string{"-hide_banner", "-loglevel", "error", "-y", "-i", "/tmp/bg.mp4", "-i", "/tmp/a.jpg", "-i", "/tmp/b.jpg"}, args[:10])
	assert.Contains(t, args, "[v2]")
	assert.Equal(t, []string{"-c:v", "libx264", "/tmp/out.mp4"}, args[len(args)-3:])
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(name), 0o600))
	return path
}

func TestCompositeRunsCommand(t *testing.T) {
	dir := t.TempDir()
	bg := writeFile(t, dir, "bg.mp4")
	img := writeFile(t, dir, "a.jpg")
	out := filepath.Join(dir, "out.mp4")

	var gotName string
	f := NewFFmpeg("/usr/bin/ffmpeg", nil, nil).WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		gotName = name
		assert.Equal(t, out, args[len(args)-1])
		return os.WriteFile(out, []byte("video"), 0o600)
	})

	err := f.Composite(context.Background(), bg, []Overlay{{ImagePath: img, Placement: models.Placement{EndTime: 1}}}, out)
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/ffmpeg", gotName)
}

func TestCompositeFailures(t *testing.T) {
	dir := t.TempDir()
	bg := writeFile(t, dir, "bg.mp4")
	img := writeFile(t, dir, "a.jpg")
	out := filepath.Join(dir, "out.mp4")
	overlays := []Overlay{{ImagePath: img, Placement: models.Placement{EndTime: 1}}}

	t.Run("no overlays", func(t *testing.T) {
		err := NewFFmpeg("", nil, nil).Composite(context.Background(), bg, nil, out)
		assert.ErrorIs(t, err, ErrNoOverlays)
	})

	t.Run("missing image", func(t *testing.T) {
		missing := []Overlay{{ImagePath: filepath.Join(dir, "nope.jpg")}}
		err := NewFFmpeg("", nil, nil).Composite(context.Background(), bg, missing, out)
		assert.Error(t, err)
	})

	t.Run("command error", func(t *testing.T) {
		f := NewFFmpeg("", nil, nil).WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
			return errors.New("exit status 1")
		})
		err := f.Composite(context.Background(), bg, overlays, out)
		assert.ErrorContains(t, err, "ffmpeg failed")
	})

	t.Run("no output", func(t *testing.T) {
		f := NewFFmpeg("", nil, nil).WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
			return nil
		})
		err := f.Composite(context.Background(), bg, overlays, out)
		assert.ErrorContains(t, err, "did not produce output")
	})
}

package ffmpeg_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/keagan/stillwater/internal/ffmpeg"
)

// local helper (cannot use unexported ones from ffmpeg package)
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH")
	}
}

// makeTestClip generates a short moving test pattern with lavfi.
func makeTestClip(t *testing.T, dir string, seconds int) string {
	t.Helper()
	path := filepath.Join(dir, "source.mp4")
	cmd := exec.Command("ffmpeg", "-y",
		"-f", "lavfi", "-i", fmt.Sprintf("testsrc=duration=%d:size=320x240:rate=25", seconds),
		"-pix_fmt", "yuv420p", path)
	if err := cmd.Run(); err != nil {
		t.Skipf("could not generate test clip: %v", err)
	}
	return path
}

// makeTestTone generates a short sine tone.
func makeTestTone(t *testing.T, dir string, seconds int) string {
	t.Helper()
	path := filepath.Join(dir, "tone.m4a")
	cmd := exec.Command("ffmpeg", "-y",
		"-f", "lavfi", "-i", fmt.Sprintf("sine=frequency=440:duration=%d", seconds),
		"-c:a", "aac", path)
	if err := cmd.Run(); err != nil {
		t.Skipf("could not generate test tone: %v", err)
	}
	return path
}

func TestIntegration_LoopExtendsWithoutFreeze(t *testing.T) {
	skipIfNoFFmpeg(t)

	dir := t.TempDir()
	source := makeTestClip(t, dir, 2)

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	ff, err := ffmpeg.New(logger, 2)
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}

	ctx := context.Background()
	looped := filepath.Join(dir, "looped.mp4")

	err = ff.LoopToDuration(ctx, ffmpeg.LoopOptions{
		Input:    source,
		Output:   looped,
		Duration: 6 * time.Second,
		Width:    320,
		Height:   240,
		FPS:      25,
	})
	if err != nil {
		t.Fatalf("LoopToDuration failed: %v", err)
	}

	info, err := ff.ProbeMedia(ctx, looped)
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if diff := info.Duration - 6*time.Second; diff < -100*time.Millisecond || diff > 100*time.Millisecond {
		t.Errorf("expected ~6s output, got %v", info.Duration)
	}

	// Frames either side of the 2s loop boundary must differ: the
	// whole point of -stream_loop over concatenation.
	frameA := filepath.Join(dir, "a.png")
	frameB := filepath.Join(dir, "b.png")
	if err := ff.ExtractFrame(ctx, looped, 1900*time.Millisecond, frameA); err != nil {
		t.Fatalf("frame extraction failed: %v", err)
	}
	if err := ff.ExtractFrame(ctx, looped, 2300*time.Millisecond, frameB); err != nil {
		t.Fatalf("frame extraction failed: %v", err)
	}

	a, _ := os.ReadFile(frameA)
	b, _ := os.ReadFile(frameB)
	if string(a) == string(b) {
		t.Error("frames across the loop boundary are byte-identical")
	}
}

func TestIntegration_MixAudioLoopsTone(t *testing.T) {
	skipIfNoFFmpeg(t)

	dir := t.TempDir()
	source := makeTestClip(t, dir, 4)
	tone := makeTestTone(t, dir, 1)

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	ff, err := ffmpeg.New(logger, 2)
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}

	ctx := context.Background()
	mixed := filepath.Join(dir, "mixed.mp4")

	err = ff.MixAudio(ctx, ffmpeg.MixOptions{
		VideoInput: source,
		AudioInput: tone,
		Output:     mixed,
		Duration:   4 * time.Second,
		Volume:     0.3,
	})
	if err != nil {
		t.Fatalf("MixAudio failed: %v", err)
	}

	info, err := ff.ProbeMedia(ctx, mixed)
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if !info.HasAudio {
		t.Error("mixed output has no audio stream")
	}

	stats, err := ff.AnalyzeVolume(ctx, mixed)
	if err != nil {
		t.Fatalf("AnalyzeVolume failed: %v", err)
	}
	if stats.MaxVolume >= 0 {
		t.Errorf("attenuated music should not clip, max volume %.2f dB", stats.MaxVolume)
	}
}

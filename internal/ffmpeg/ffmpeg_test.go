package ffmpeg

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// skipIfNoFFmpeg skips the test if ffmpeg is not available
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH")
	}
}

func TestFilterBuilderScaleToCanvas(t *testing.T) {
	got := NewFilterBuilder().ScaleToCanvas(1920, 1080).Build()
	want := "scale=1920:1080:force_original_aspect_ratio=decrease,pad=1920:1080:(ow-iw)/2:(oh-ih)/2:black"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestFilterBuilderAudioChain(t *testing.T) {
	got := NewFilterBuilder().Volume(0.3).ALoop().ATrim(60 * time.Second).Build()
	want := "volume=0.30,aloop=loop=-1:size=2e+09,atrim=0:60.000"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestFilterBuilderVideoChain(t *testing.T) {
	got := NewFilterBuilder().ScaleToCanvas(1920, 1080).FPS(25).Build()
	want := "scale=1920:1080:force_original_aspect_ratio=decrease,pad=1920:1080:(ow-iw)/2:(oh-ih)/2:black,fps=25"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestFilterBuilderCustom(t *testing.T) {
	got := NewFilterBuilder().Custom("volumedetect").Build()
	if got != "volumedetect" {
		t.Errorf("expected %q, got %q", "volumedetect", got)
	}
}

func TestFilterBuilderEmpty(t *testing.T) {
	if got := NewFilterBuilder().Build(); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestOverlayEnableHalfOpen(t *testing.T) {
	got := OverlayEnable(20*time.Second, 40*time.Second)
	want := "overlay=0:0:enable='gte(t,20.000)*lt(t,40.000)'"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestLoopArgsUseStreamLoop(t *testing.T) {
	args := loopArgs(LoopOptions{
		Input:    "in.mp4",
		Output:   "out.mp4",
		Duration: 60 * time.Second,
		Width:    1920,
		Height:   1080,
		FPS:      25,
	})

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-stream_loop -1 -i in.mp4") {
		t.Errorf("loop must use the native -stream_loop primitive, got %q", joined)
	}
	if strings.Contains(joined, "concat") {
		t.Errorf("loop must never concatenate, got %q", joined)
	}
	if !strings.Contains(joined, "-t 60.000") {
		t.Errorf("loop must cut at the exact duration, got %q", joined)
	}
	if !strings.Contains(joined, "-an") {
		t.Errorf("background loop must strip audio, got %q", joined)
	}
	if !strings.Contains(joined, "fps=25") {
		t.Errorf("loop must pin the output frame rate, got %q", joined)
	}
}

func TestOverlayChainArgs(t *testing.T) {
	args := overlayChainArgs(OverlayChainOptions{
		Input:  "base.mp4",
		Output: "out.mp4",
		Layers: []TimedImage{
			{Path: "a.png", Start: 0, End: 20 * time.Second},
			{Path: "b.png", Start: 20 * time.Second, End: 40 * time.Second},
			{Path: "c.png", Start: 40 * time.Second, End: 60 * time.Second},
		},
	})

	var filter string
	for i, a := range args {
		if a == "-filter_complex" {
			filter = args[i+1]
		}
	}
	if filter == "" {
		t.Fatal("missing -filter_complex")
	}

	want := "[0:v][1:v]overlay=0:0:enable='gte(t,0.000)*lt(t,20.000)'[v0];" +
		"[v0][2:v]overlay=0:0:enable='gte(t,20.000)*lt(t,40.000)'[v1];" +
		"[v1][3:v]overlay=0:0:enable='gte(t,40.000)*lt(t,60.000)'[v2]"
	if filter != want {
		t.Errorf("expected chain %q, got %q", want, filter)
	}

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-map [v2]") {
		t.Errorf("final chain label must be mapped, got %q", joined)
	}
}

func TestMixArgs(t *testing.T) {
	args := mixArgs(MixOptions{
		VideoInput: "video.mp4",
		AudioInput: "music.mp3",
		Output:     "out.mp4",
		Duration:   60 * time.Second,
		Volume:     0.3,
	})

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "[1:a]volume=0.30,aloop=loop=-1:size=2e+09,atrim=0:60.000[audio]") {
		t.Errorf("mix must loop and trim natively, got %q", joined)
	}
	if !strings.Contains(joined, "-c:v copy") {
		t.Errorf("mix must not re-encode video, got %q", joined)
	}
	if !strings.Contains(joined, "-shortest") {
		t.Errorf("mix must bound output by the video stream, got %q", joined)
	}
}

func TestParseVolumeOutput(t *testing.T) {
	output := `[Parsed_volumedetect_0 @ 0x55] n_samples: 5760000
[Parsed_volumedetect_0 @ 0x55] mean_volume: -21.5 dB
[Parsed_volumedetect_0 @ 0x55] max_volume: -3.1 dB`

	stats, err := parseVolumeOutput(output)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if stats.MeanVolume != -21.5 {
		t.Errorf("expected mean -21.5, got %f", stats.MeanVolume)
	}
	if stats.MaxVolume != -3.1 {
		t.Errorf("expected max -3.1, got %f", stats.MaxVolume)
	}
}

func TestParseVolumeOutputEmpty(t *testing.T) {
	if _, err := parseVolumeOutput("no stats here"); err == nil {
		t.Error("expected error for output without stats")
	}
}

func TestExecutorCreation(t *testing.T) {
	skipIfNoFFmpeg(t)

	exec, err := New(zerolog.New(os.Stderr), 2)
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	if exec.ffmpegPath == "" {
		t.Error("ffmpeg path is empty")
	}
	if exec.ffprobePath == "" {
		t.Error("ffprobe path is empty")
	}
}

func TestProbeMediaInvalidFile(t *testing.T) {
	skipIfNoFFmpeg(t)

	exec, err := New(zerolog.New(os.Stderr), 2)
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}

	ctx := context.Background()

	if _, err := exec.ProbeMedia(ctx, "nonexistent.mp4"); err == nil {
		t.Error("ProbeMedia should fail for non-existent file")
	}

	invalidPath := filepath.Join(t.TempDir(), "invalid.txt")
	os.WriteFile(invalidPath, []byte("not a video"), 0644)

	info, err := exec.ProbeMedia(ctx, invalidPath)
	if err == nil && (info.HasVideo || info.HasAudio) {
		t.Error("ProbeMedia should not report streams for a text file")
	}
}

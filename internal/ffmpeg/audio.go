package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// MixAudio loops or trims a music track to the video's duration and
// muxes it in. Looping uses the native aloop primitive for the same
// reason the video side uses -stream_loop: no re-encoded join points.
// The video stream is copied untouched.
func (e *Executor) MixAudio(ctx context.Context, opts MixOptions) error {
	if opts.VideoInput == "" || opts.AudioInput == "" {
		return fmt.Errorf("video and audio inputs are required")
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}
	if opts.Duration <= 0 {
		return fmt.Errorf("mix duration must be positive")
	}

	e.logger.Info().
		Str("video", opts.VideoInput).
		Str("audio", opts.AudioInput).
		Float64("volume", opts.Volume).
		Dur("duration", opts.Duration).
		Msg("mixing music track")

	args := mixArgs(opts)

	runOpts := RunOptions{
		Args:            args,
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("audio mix")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("audio mix failed: %w", err)
	}

	e.logger.Info().Str("output", opts.Output).Msg("audio mix complete")
	return nil
}

// mixArgs builds the argument list for MixAudio.
func mixArgs(opts MixOptions) []string {
	volume := opts.Volume
	if volume <= 0 || volume > 1 {
		volume = 1
	}

	filter := NewFilterBuilder().
		Volume(volume).
		ALoop().
		ATrim(opts.Duration).
		Build()

	return []string{
		"-i", opts.VideoInput,
		"-i", opts.AudioInput,
		"-filter_complex", fmt.Sprintf("[1:a]%s[audio]", filter),
		"-map", "0:v",
		"-map", "[audio]",
		"-c:v", "copy",
		"-c:a", DefaultAudioCodec,
		"-shortest",
		opts.Output,
	}
}

// VolumeStats holds volume analysis results
type VolumeStats struct {
	MeanVolume float64
	MaxVolume  float64
}

// AnalyzeVolume calculates volume statistics for an audio or video file
func (e *Executor) AnalyzeVolume(ctx context.Context, input string) (*VolumeStats, error) {
	e.logger.Info().Str("input", input).Msg("analyzing volume")

	var stderrBuf bytes.Buffer
	var mu sync.Mutex

	opts := RunOptions{
		Args: []string{
			"-i", input,
			"-af", NewFilterBuilder().Custom("volumedetect").Build(),
			"-f", "null",
			"-",
		},
		LogHandler: func(line string) {
			mu.Lock()
			stderrBuf.WriteString(line + "\n")
			mu.Unlock()
		},
	}

	err := e.Run(ctx, opts)

	mu.Lock()
	output := stderrBuf.String()
	mu.Unlock()

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// The null muxer run can report conversion noise while the
		// volumedetect stats still landed on stderr.
		if !strings.Contains(err.Error(), "Conversion failed") &&
			!strings.Contains(err.Error(), "Invalid return value") &&
			!strings.Contains(err.Error(), "Output file is empty") {
			return nil, fmt.Errorf("volume analysis failed: %w", err)
		}
	}

	if output == "" {
		return nil, fmt.Errorf("volume analysis produced no output")
	}

	return parseVolumeOutput(output)
}

// parseVolumeOutput extracts volume stats from ffmpeg output
func parseVolumeOutput(output string) (*VolumeStats, error) {
	stats := &VolumeStats{}
	found := false

	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, "mean_volume:") {
			parts := strings.Split(line, "mean_volume:")
			if len(parts) == 2 {
				valStr := strings.Fields(strings.TrimSpace(parts[1]))[0]
				stats.MeanVolume, _ = strconv.ParseFloat(valStr, 64)
				found = true
			}
		} else if strings.Contains(line, "max_volume:") {
			parts := strings.Split(line, "max_volume:")
			if len(parts) == 2 {
				valStr := strings.Fields(strings.TrimSpace(parts[1]))[0]
				stats.MaxVolume, _ = strconv.ParseFloat(valStr, 64)
				found = true
			}
		}
	}

	if !found {
		return nil, fmt.Errorf("no volumedetect stats in output")
	}
	return stats, nil
}

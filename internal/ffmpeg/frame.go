package ffmpeg

import (
	"context"
	"fmt"
	"time"

	"github.com/keagan/stillwater/pkg/util"
)

// ExtractFrame grabs the single frame at the given timestamp as a PNG.
func (e *Executor) ExtractFrame(ctx context.Context, input string, at time.Duration, output string) error {
	if input == "" {
		return fmt.Errorf("input path is required")
	}
	if output == "" {
		return fmt.Errorf("output path is required")
	}
	if at < 0 {
		return fmt.Errorf("timestamp cannot be negative")
	}

	e.logger.Debug().
		Str("input", input).
		Dur("at", at).
		Str("output", output).
		Msg("extracting frame")

	args := []string{
		"-ss", util.FormatDuration(at),
		"-i", input,
		"-frames:v", "1",
		output,
	}

	opts := RunOptions{
		Args: args,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("frame extraction")
		},
	}

	if err := e.Run(ctx, opts); err != nil {
		return fmt.Errorf("frame extraction at %s failed: %w", util.FormatDuration(at), err)
	}
	if !util.FileExists(output) {
		return fmt.Errorf("no frame produced at %s", util.FormatDuration(at))
	}
	return nil
}

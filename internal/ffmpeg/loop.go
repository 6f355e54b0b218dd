package ffmpeg

import (
	"context"
	"fmt"

	"github.com/keagan/stillwater/pkg/util"
)

// LoopToDuration extends (or trims) a source clip to an exact duration
// by continuous looping. The source stream is repeated from its own
// start with -stream_loop and cut at the target duration, so the output
// contains no join points between separately encoded segments. This is
// the only duration-extension primitive in the engine: concatenation of
// independently encoded copies repeats the last decodable frame at each
// boundary while the demuxer resynchronizes, which shows up as a freeze.
func (e *Executor) LoopToDuration(ctx context.Context, opts LoopOptions) error {
	if opts.Input == "" {
		return fmt.Errorf("input path is required")
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}
	if opts.Duration <= 0 {
		return fmt.Errorf("loop duration must be positive")
	}

	e.logger.Info().
		Str("input", opts.Input).
		Str("output", opts.Output).
		Dur("duration", opts.Duration).
		Msg("looping background to duration")

	args := loopArgs(opts)

	runOpts := RunOptions{
		Args:            args,
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("background loop")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("background loop failed: %w", err)
	}

	e.logger.Info().Str("output", opts.Output).Msg("background loop complete")
	return nil
}

// loopArgs builds the argument list for LoopToDuration.
func loopArgs(opts LoopOptions) []string {
	crf := opts.CRF
	if crf == 0 {
		crf = DefaultCRF
	}
	preset := opts.Preset
	if preset == "" {
		preset = DefaultPreset
	}
	fps := opts.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}

	vf := NewFilterBuilder().
		ScaleToCanvas(opts.Width, opts.Height).
		FPS(fps).
		Build()

	args := []string{
		"-stream_loop", "-1",
		"-i", opts.Input,
		"-t", util.FormatSeconds(opts.Duration),
	}
	if vf != "" {
		args = append(args, "-vf", vf)
	}
	args = append(args,
		"-c:v", DefaultVideoCodec,
		"-preset", preset,
		"-crf", fmt.Sprintf("%d", crf),
		"-an",
		opts.Output,
	)
	return args
}

package ffmpeg

import (
	"context"
	"fmt"
	"strings"
)

// OverlayImages composites image layers onto a video, each layer visible
// only inside its scheduled window. Layers are chained through a single
// filter_complex graph so the whole composite is one encode.
func (e *Executor) OverlayImages(ctx context.Context, opts OverlayChainOptions) error {
	if opts.Input == "" {
		return fmt.Errorf("input path is required")
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}
	if len(opts.Layers) == 0 {
		return fmt.Errorf("no overlay layers provided")
	}

	e.logger.Info().
		Str("input", opts.Input).
		Str("output", opts.Output).
		Int("layers", len(opts.Layers)).
		Msg("compositing timed overlays")

	args := overlayChainArgs(opts)

	runOpts := RunOptions{
		Args:            args,
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("overlay composite")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("overlay composite failed: %w", err)
	}

	e.logger.Info().Str("output", opts.Output).Msg("overlay composite complete")
	return nil
}

// overlayChainArgs builds the argument list for OverlayImages. Each layer
// n becomes input n+1 and a chain link
// [prev][n+1:v]overlay=...enable=...[vN], with the final label mapped out.
func overlayChainArgs(opts OverlayChainOptions) []string {
	crf := opts.CRF
	if crf == 0 {
		crf = DefaultCRF
	}
	preset := opts.Preset
	if preset == "" {
		preset = DefaultPreset
	}

	args := []string{"-i", opts.Input}
	for _, layer := range opts.Layers {
		args = append(args, "-i", layer.Path)
	}

	var chain strings.Builder
	prev := "[0:v]"
	for i, layer := range opts.Layers {
		if i > 0 {
			chain.WriteString(";")
		}
		label := fmt.Sprintf("[v%d]", i)
		chain.WriteString(fmt.Sprintf("%s[%d:v]%s%s",
			prev, i+1, OverlayEnable(layer.Start, layer.End), label))
		prev = label
	}

	args = append(args,
		"-filter_complex", chain.String(),
		"-map", prev,
		"-c:v", DefaultVideoCodec,
		"-preset", preset,
		"-crf", fmt.Sprintf("%d", crf),
		opts.Output,
	)
	return args
}

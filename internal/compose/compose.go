package compose

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/keagan/stillwater/internal/ffmpeg"
	"github.com/keagan/stillwater/internal/timeline"
	"github.com/keagan/stillwater/pkg/util"
)

// Options configures the composition engine.
type Options struct {
	CRF    int
	Preset string

	// Deadline for the whole composite: TimeoutBase plus
	// TimeoutPerOutputSecond for every second of target duration.
	TimeoutBase            time.Duration
	TimeoutPerOutputSecond time.Duration

	// KeepIntermediates leaves base/composited files in the work dir
	// for debugging instead of removing them after success.
	KeepIntermediates bool
}

// Engine executes a timeline against real media files. It is a staged
// pipeline, not iterative refinement: loop the background, composite the
// timed layers, fit the audio, publish the container.
type Engine struct {
	logger zerolog.Logger
	ff     *ffmpeg.Executor
	opts   Options
}

// New creates a composition engine.
func New(logger zerolog.Logger, ff *ffmpeg.Executor, opts Options) *Engine {
	if opts.TimeoutBase <= 0 {
		opts.TimeoutBase = time.Minute
	}
	if opts.TimeoutPerOutputSecond <= 0 {
		opts.TimeoutPerOutputSecond = 2 * time.Second
	}
	return &Engine{
		logger: logger.With().Str("component", "compose").Logger(),
		ff:     ff,
		opts:   opts,
	}
}

// Deadline returns the wall-clock budget for a composite of the given
// output duration.
func (e *Engine) Deadline(total time.Duration) time.Duration {
	return e.opts.TimeoutBase + time.Duration(total.Seconds())*e.opts.TimeoutPerOutputSecond
}

// Assemble produces the finished video at outputPath. Intermediates live
// in workDir; the output is written to a temporary sibling and renamed
// into place only on success, so a failed run never leaves a partial
// file at the final path.
func (e *Engine) Assemble(ctx context.Context, tl *timeline.Timeline, workDir, outputPath string) error {
	if tl == nil {
		return fmt.Errorf("timeline is nil")
	}
	if outputPath == "" {
		return fmt.Errorf("output path is required")
	}

	budget := e.Deadline(tl.Total)
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	e.logger.Info().
		Dur("total", tl.Total).
		Int("windows", len(tl.Windows)).
		Bool("audio", tl.HasAudio()).
		Dur("budget", budget).
		Str("output", outputPath).
		Msg("starting composition")

	basePath := filepath.Join(workDir, "base.mp4")
	compositedPath := filepath.Join(workDir, "composited.mp4")
	tmpOutput := outputPath + ".partial"

	cleanup := func() {
		util.CleanupFiles(tmpOutput)
		if !e.opts.KeepIntermediates {
			util.CleanupFiles(basePath, compositedPath)
		}
	}

	// Stage 1: continuous-loop the background to the exact total,
	// normalized to the canvas. No concatenation anywhere.
	err := e.ff.LoopToDuration(ctx, ffmpeg.LoopOptions{
		Input:    tl.Background.Source,
		Output:   basePath,
		Duration: tl.Total,
		Width:    tl.Canvas.Width,
		Height:   tl.Canvas.Height,
		FPS:      tl.FPS,
		CRF:      e.opts.CRF,
		Preset:   e.opts.Preset,
	})
	if err != nil {
		cleanup()
		return e.stageErr(ctx, "background", err)
	}

	// Stage 2: composite every layer at its scheduled window.
	layers := make([]ffmpeg.TimedImage, len(tl.Windows))
	for i, w := range tl.Windows {
		layers[i] = ffmpeg.TimedImage{
			Path:  w.Layer.Path,
			Start: w.Start,
			End:   w.End,
		}
	}
	err = e.ff.OverlayImages(ctx, ffmpeg.OverlayChainOptions{
		Input:  basePath,
		Output: compositedPath,
		Layers: layers,
		CRF:    e.opts.CRF,
		Preset: e.opts.Preset,
	})
	if err != nil {
		cleanup()
		return e.stageErr(ctx, "overlay", err)
	}

	// Stage 3: fit the music track, or finalize silent.
	if tl.HasAudio() {
		err = e.ff.MixAudio(ctx, ffmpeg.MixOptions{
			VideoInput: compositedPath,
			AudioInput: tl.Audio.Source,
			Output:     tmpOutput,
			Duration:   tl.Total,
			Volume:     tl.Audio.Volume,
		})
		if err != nil {
			cleanup()
			return e.stageErr(ctx, "audio", err)
		}
	} else {
		e.logger.Warn().Msg("no music track, output will be silent")
		if err := util.CopyFile(compositedPath, tmpOutput); err != nil {
			cleanup()
			return fmt.Errorf("stage finalize: %w", err)
		}
	}

	// Stage 4: publish atomically.
	if err := os.Rename(tmpOutput, outputPath); err != nil {
		cleanup()
		return fmt.Errorf("stage publish: %w", err)
	}

	if !e.opts.KeepIntermediates {
		util.CleanupFiles(basePath, compositedPath)
	}

	e.logger.Info().Str("output", outputPath).Msg("composition complete")
	return nil
}

func (e *Engine) stageErr(ctx context.Context, stage string, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("stage %s: composition deadline exceeded: %w", stage, err)
	}
	return fmt.Errorf("stage %s: %w", stage, err)
}

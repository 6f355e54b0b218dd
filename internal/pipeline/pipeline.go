package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/keagan/stillwater/internal/compose"
	"github.com/keagan/stillwater/internal/config"
	"github.com/keagan/stillwater/internal/ffmpeg"
	"github.com/keagan/stillwater/internal/logging"
	"github.com/keagan/stillwater/internal/overlay"
	"github.com/keagan/stillwater/internal/timeline"
	"github.com/keagan/stillwater/internal/verify"
	"github.com/keagan/stillwater/pkg/util"
)

// Runner drives one assembly run through the strictly sequential
// stages: render overlays, plan the timeline, composite, verify. Each
// run works in its own directory, so independent runs may execute
// concurrently without shared state.
type Runner struct {
	logger zerolog.Logger
	cfg    *config.Config
	ff     *ffmpeg.Executor
}

// New creates a runner.
func New(logger zerolog.Logger, cfg *config.Config) (*Runner, error) {
	ff, err := ffmpeg.New(logger, cfg.FFmpeg.Threads)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ffmpeg: %w", err)
	}

	return &Runner{
		logger: logger.With().Str("component", "pipeline").Logger(),
		cfg:    cfg,
		ff:     ff,
	}, nil
}

// Run executes one assembly end to end. On verification failure the
// returned Result describes the unpublishable file and the error wraps
// ErrIntegrity; the output is left on disk for the caller to inspect.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	if err := validateRequest(req); err != nil {
		return nil, stageErr("validate", ErrInput, err)
	}

	runID := uuid.NewString()
	log := logging.WithRun(r.logger, runID)

	workDir := filepath.Join(r.cfg.WorkDir, "run-"+runID)
	if err := util.EnsureDir(workDir); err != nil {
		return nil, stageErr("workdir", ErrInput, err)
	}
	if !req.KeepWorkDir {
		defer os.RemoveAll(workDir)
	}

	log.Info().
		Str("background", req.Background).
		Str("music", req.Music).
		Int("segments", len(req.Segments)).
		Dur("total", req.Total).
		Str("output", req.OutputPath).
		Msg("starting assembly run")

	// Probe assets before any media processing starts.
	background, err := r.ff.ProbeMedia(ctx, req.Background)
	if err != nil {
		return nil, stageErr("probe background", ErrInput, err)
	}

	var music *ffmpeg.MediaInfo
	if req.Music != "" {
		music, err = r.ff.ProbeMedia(ctx, req.Music)
		if err != nil {
			return nil, stageErr("probe music", ErrInput, err)
		}
	}

	// Stage 1: overlay rendering.
	renderer, err := overlay.NewRenderer(log, workDir, req.Canvas.Width, req.Canvas.Height, overlay.Style{
		FontPath:          r.cfg.Overlay.FontPath,
		FontSize:          r.cfg.Overlay.FontSize,
		ReferenceFontSize: r.cfg.Overlay.ReferenceFontSize,
		WrapWidth:         r.cfg.Overlay.WrapWidth,
		PanelAlpha:        uint8(r.cfg.Overlay.PanelAlpha),
	})
	if err != nil {
		return nil, stageErr("renderer", ErrRender, err)
	}

	layers, err := renderer.RenderAll(req.Segments)
	if err != nil {
		return nil, stageErr("render", ErrRender, err)
	}

	// Stage 2: timing plan.
	tl, err := timeline.Plan(timeline.Params{
		Total:       req.Total,
		Canvas:      req.Canvas,
		FPS:         r.cfg.FFmpeg.FPS,
		MusicVolume: r.cfg.Audio.MusicVolume,
	}, layers, background, music)
	if err != nil {
		return nil, stageErr("plan", ErrInput, err)
	}

	// Stage 3: composition.
	engine := compose.New(log, r.ff, compose.Options{
		CRF:                    r.cfg.FFmpeg.CRF,
		Preset:                 r.cfg.FFmpeg.Preset,
		TimeoutBase:            secondsOrZero(r.cfg.FFmpeg.TimeoutBaseSec),
		TimeoutPerOutputSecond: secondsOrZero(r.cfg.FFmpeg.TimeoutPerOutSec),
		KeepIntermediates:      req.KeepWorkDir,
	})
	if err := engine.Assemble(ctx, tl, workDir, req.OutputPath); err != nil {
		return nil, stageErr("compose", ErrComposition, err)
	}

	// Stage 4: integrity verification.
	verifier := verify.New(log, r.ff, verify.Options{
		MaxSamples: r.cfg.Verify.MaxSamples,
		PairGap:    time.Duration(r.cfg.Verify.PairGapMS) * time.Millisecond,
	})
	report, err := verifier.Verify(ctx, req.OutputPath, tl.Total, tl.Background.SourceDuration, tl.FPS, workDir)
	if err != nil {
		return nil, stageErr("verify", ErrIntegrity, err)
	}

	result := &Result{
		OutputPath: req.OutputPath,
		Duration:   report.Duration,
		Verified:   report.OK,
		Reason:     report.Reason,
	}

	if !report.OK {
		log.Error().Str("reason", report.Reason).Msg("output failed verification, not publishable")
		return result, stageErr("verify", ErrIntegrity, fmt.Errorf("%s", report.Reason))
	}

	log.Info().
		Str("output", result.OutputPath).
		Dur("duration", result.Duration).
		Msg("assembly run complete")

	return result, nil
}

// validateRequest fails fast on inputs that would waste a render pass.
// The planner re-checks its own invariants against probed assets.
func validateRequest(req Request) error {
	if req.Background == "" {
		return fmt.Errorf("background video path is required")
	}
	if req.OutputPath == "" {
		return fmt.Errorf("output path is required")
	}
	if req.Total <= 0 {
		return fmt.Errorf("total duration must be positive, got %s", req.Total)
	}
	if len(req.Segments) == 0 {
		return fmt.Errorf("no overlay segments provided")
	}
	if req.Canvas.Width <= 0 || req.Canvas.Height <= 0 {
		return fmt.Errorf("canvas size must be positive, got %dx%d", req.Canvas.Width, req.Canvas.Height)
	}
	last := -1
	for i, seg := range req.Segments {
		if seg.Index <= last {
			return fmt.Errorf("segment indices must be strictly increasing, got %d after %d at position %d", seg.Index, last, i)
		}
		last = seg.Index
	}
	return nil
}

func secondsOrZero(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}

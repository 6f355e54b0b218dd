package verify

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/keagan/stillwater/internal/ffmpeg"
	"github.com/keagan/stillwater/pkg/util"
)

// Options tunes the verification pass. The sample budget is deliberately
// configurable: more samples tighten the freeze check but slow the
// pipeline on long outputs.
type Options struct {
	MaxSamples int
	// PairGap is the spacing between a sample and its comparison frame.
	// Frames this far apart during continuous motion must differ.
	PairGap time.Duration
}

// Sample records one compared frame pair.
type Sample struct {
	At       time.Duration
	PairAt   time.Duration
	Hash     string
	PairHash string
}

// Report is the verification verdict for one produced file.
type Report struct {
	OK       bool
	Reason   string
	Duration time.Duration
	Samples  []Sample
}

// Verifier checks a produced video for the historical defect class of
// this pipeline: frozen or duplicated frames at loop boundaries. The
// check is heuristic, but it is the only automated guard before an
// unattended publish.
type Verifier struct {
	logger zerolog.Logger
	ff     *ffmpeg.Executor
	opts   Options
}

// New creates a verifier.
func New(logger zerolog.Logger, ff *ffmpeg.Executor, opts Options) *Verifier {
	if opts.MaxSamples <= 0 {
		opts.MaxSamples = 6
	}
	if opts.PairGap <= 0 {
		opts.PairGap = 500 * time.Millisecond
	}
	return &Verifier{
		logger: logger.With().Str("component", "verify").Logger(),
		ff:     ff,
		opts:   opts,
	}
}

// Verify accepts or rejects a produced file. sourceLoop is the duration
// of the background source clip: its multiples are the historically
// risky boundary points. fps bounds the duration tolerance to one frame
// interval. workDir receives the extracted sample frames.
func (v *Verifier) Verify(ctx context.Context, output string, total, sourceLoop time.Duration, fps int, workDir string) (*Report, error) {
	if !util.FileExists(output) {
		return nil, fmt.Errorf("output file does not exist: %s", output)
	}

	info, err := v.ff.ProbeMedia(ctx, output)
	if err != nil {
		return nil, fmt.Errorf("failed to probe output: %w", err)
	}

	report := &Report{Duration: info.Duration}

	if fps <= 0 {
		fps = ffmpeg.DefaultFPS
	}
	tolerance := time.Second / time.Duration(fps)
	if diff := absDuration(info.Duration - total); diff > tolerance {
		report.Reason = fmt.Sprintf("duration %s deviates from requested %s by more than one frame interval", info.Duration, total)
		return report, nil
	}

	plan := samplePlan(total, sourceLoop, v.opts.PairGap, v.opts.MaxSamples)
	if len(plan) == 0 {
		return nil, fmt.Errorf("no sampleable timestamps for total %s", total)
	}

	v.logger.Info().
		Str("output", output).
		Int("samples", len(plan)).
		Msg("sampling frames for freeze detection")

	for i, at := range plan {
		pairAt := at + v.opts.PairGap

		hash, err := v.frameHash(ctx, output, at, filepath.Join(workDir, fmt.Sprintf("sample_%02d_a.png", i)))
		if err != nil {
			return nil, err
		}
		pairHash, err := v.frameHash(ctx, output, pairAt, filepath.Join(workDir, fmt.Sprintf("sample_%02d_b.png", i)))
		if err != nil {
			return nil, err
		}

		sample := Sample{At: at, PairAt: pairAt, Hash: hash, PairHash: pairHash}
		report.Samples = append(report.Samples, sample)

		if hash == pairHash {
			report.Reason = fmt.Sprintf("frozen frame: samples at %s and %s are identical", at, pairAt)
			v.logger.Error().
				Dur("at", at).
				Dur("pair_at", pairAt).
				Msg("duplicate frame fingerprints detected")
			return report, nil
		}
	}

	if info.HasAudio {
		stats, err := v.ff.AnalyzeVolume(ctx, output)
		if err != nil {
			v.logger.Warn().Err(err).Msg("volume analysis unavailable, skipping clip check")
		} else if stats.MaxVolume >= 0 {
			report.Reason = fmt.Sprintf("audio clipping: max volume %.2f dB", stats.MaxVolume)
			return report, nil
		}
	}

	report.OK = true
	v.logger.Info().Int("samples", len(report.Samples)).Msg("verification passed")
	return report, nil
}

// frameHash extracts the frame at ts and fingerprints its decoded pixel
// data. Hashing pixels rather than file bytes keeps container metadata
// (timestamps, encoder tags) from masking identical content.
func (v *Verifier) frameHash(ctx context.Context, input string, at time.Duration, framePath string) (string, error) {
	if err := v.ff.ExtractFrame(ctx, input, at, framePath); err != nil {
		return "", fmt.Errorf("cannot sample frame at %s: %w", at, err)
	}
	defer os.Remove(framePath)

	f, err := os.Open(framePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return "", fmt.Errorf("cannot decode sampled frame at %s: %w", at, err)
	}

	return hashPixels(img), nil
}

// hashPixels computes the content fingerprint of an image's pixels.
func hashPixels(img image.Image) string {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(bounds)
		draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	}

	h := sha256.New()
	var dims [8]byte
	binary.BigEndian.PutUint32(dims[:4], uint32(bounds.Dx()))
	binary.BigEndian.PutUint32(dims[4:], uint32(bounds.Dy()))
	h.Write(dims[:])
	h.Write(rgba.Pix)
	return hex.EncodeToString(h.Sum(nil))
}

// samplePlan picks the timestamps to probe: every loop boundary (the
// risk points the old multi-clip design introduced), one point strictly
// inside the first loop iteration and one inside a later iteration.
// Timestamps too close to the end to fit a comparison pair are dropped,
// and the budget caps the count.
func samplePlan(total, sourceLoop, gap time.Duration, max int) []time.Duration {
	if total <= 0 {
		return nil
	}
	if sourceLoop <= 0 || sourceLoop > total {
		sourceLoop = total
	}

	seen := make(map[time.Duration]bool)
	var plan []time.Duration
	add := func(ts time.Duration) {
		if ts < 0 || ts+gap >= total || seen[ts] {
			return
		}
		seen[ts] = true
		plan = append(plan, ts)
	}

	// Inside the first iteration, then inside a later one.
	add(sourceLoop / 2)
	add(sourceLoop*2 + sourceLoop/2)

	// Loop boundaries.
	for ts := sourceLoop; ts < total; ts += sourceLoop {
		add(ts)
	}

	sort.Slice(plan, func(i, j int) bool { return plan[i] < plan[j] })
	if len(plan) > max {
		plan = plan[:max]
	}
	return plan
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

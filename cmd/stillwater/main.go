package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/keagan/stillwater/internal/config"
	"github.com/keagan/stillwater/internal/ffmpeg"
	"github.com/keagan/stillwater/internal/logging"
	"github.com/keagan/stillwater/internal/overlay"
	"github.com/keagan/stillwater/internal/pipeline"
	"github.com/keagan/stillwater/internal/timeline"
	"github.com/keagan/stillwater/internal/verify"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "stillwater",
	Short: "stillwater - meditation video assembly engine",
	Long:  "Assembles scripture-overlay meditation videos: a looped nature background, timed text layers, and music, verified frame-by-frame before publishing.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(verbose)

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(assembleCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(verifyCmd)
}

var (
	assembleBackground string
	assembleMusic      string
	assembleSegments   string
	assembleDuration   float64
	assembleWidth      int
	assembleHeight     int
	assembleOutput     string
	assembleKeepWork   bool
)

var assembleCmd = &cobra.Command{
	Use:   "assemble",
	Short: "Assemble and verify one video",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		segments, err := loadSegments(assembleSegments)
		if err != nil {
			return err
		}

		runner, err := pipeline.New(log.Logger, cfg)
		if err != nil {
			return err
		}

		req := pipeline.Request{
			Background:  assembleBackground,
			Music:       assembleMusic,
			Segments:    segments,
			Total:       time.Duration(assembleDuration * float64(time.Second)),
			Canvas:      timeline.Canvas{Width: assembleWidth, Height: assembleHeight},
			OutputPath:  assembleOutput,
			KeepWorkDir: assembleKeepWork,
		}

		result, err := runner.Run(cmd.Context(), req)
		if err != nil {
			if errors.Is(err, pipeline.ErrIntegrity) && result != nil {
				log.Error().
					Str("output", result.OutputPath).
					Str("reason", result.Reason).
					Msg("video produced but failed verification")
			}
			return err
		}

		log.Info().
			Str("output", result.OutputPath).
			Dur("duration", result.Duration).
			Msg("video assembled and verified")
		return nil
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe [media file]",
	Short: "Print probed media metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		ff, err := ffmpeg.New(log.Logger, cfg.FFmpeg.Threads)
		if err != nil {
			return err
		}

		info, err := ff.ProbeMedia(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("file:       %s\n", info.FilePath)
		fmt.Printf("duration:   %s\n", info.Duration)
		if info.HasVideo {
			fmt.Printf("video:      %s %dx%d @ %.2f fps\n", info.VideoCodec, info.Width, info.Height, info.FPS)
		}
		if info.HasAudio {
			fmt.Printf("audio:      %s\n", info.AudioCodec)
		}
		return nil
	},
}

var (
	verifyTotal      float64
	verifySourceLoop float64
)

var verifyCmd = &cobra.Command{
	Use:   "verify [video file]",
	Short: "Run the integrity check against an existing video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		ff, err := ffmpeg.New(log.Logger, cfg.FFmpeg.Threads)
		if err != nil {
			return err
		}

		workDir, err := os.MkdirTemp("", "stillwater-verify-")
		if err != nil {
			return err
		}
		defer os.RemoveAll(workDir)

		v := verify.New(log.Logger, ff, verify.Options{
			MaxSamples: cfg.Verify.MaxSamples,
			PairGap:    time.Duration(cfg.Verify.PairGapMS) * time.Millisecond,
		})

		report, err := v.Verify(cmd.Context(), args[0],
			time.Duration(verifyTotal*float64(time.Second)),
			time.Duration(verifySourceLoop*float64(time.Second)),
			cfg.FFmpeg.FPS, workDir)
		if err != nil {
			return err
		}

		if !report.OK {
			log.Error().Str("reason", report.Reason).Msg("verification failed")
			return fmt.Errorf("verification failed: %s", report.Reason)
		}

		log.Info().Int("samples", len(report.Samples)).Msg("verification passed")
		return nil
	},
}

func init() {
	assembleCmd.Flags().StringVar(&assembleBackground, "background", "", "background video file (required)")
	assembleCmd.Flags().StringVar(&assembleMusic, "music", "", "music track (optional)")
	assembleCmd.Flags().StringVar(&assembleSegments, "segments", "", "YAML file of overlay segments (required)")
	assembleCmd.Flags().Float64Var(&assembleDuration, "duration", 300, "total output duration in seconds")
	assembleCmd.Flags().IntVar(&assembleWidth, "width", 1920, "canvas width")
	assembleCmd.Flags().IntVar(&assembleHeight, "height", 1080, "canvas height")
	assembleCmd.Flags().StringVar(&assembleOutput, "output", "", "output video path (required)")
	assembleCmd.Flags().BoolVar(&assembleKeepWork, "keep-workdir", false, "preserve the run working directory")
	_ = assembleCmd.MarkFlagRequired("background")
	_ = assembleCmd.MarkFlagRequired("segments")
	_ = assembleCmd.MarkFlagRequired("output")

	verifyCmd.Flags().Float64Var(&verifyTotal, "total", 0, "requested total duration in seconds (required)")
	verifyCmd.Flags().Float64Var(&verifySourceLoop, "source-duration", 0, "background source clip duration in seconds")
	_ = verifyCmd.MarkFlagRequired("total")
}

// segmentEntry is one item of the --segments YAML file.
type segmentEntry struct {
	Text      string  `yaml:"text"`
	Reference string  `yaml:"reference"`
	Duration  float64 `yaml:"duration"`
}

func loadSegments(path string) ([]overlay.Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read segments file: %w", err)
	}

	var entries []segmentEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse segments file: %w", err)
	}

	segments := make([]overlay.Segment, len(entries))
	for i, e := range entries {
		segments[i] = overlay.Segment{
			Text:      e.Text,
			Reference: e.Reference,
			Duration:  time.Duration(e.Duration * float64(time.Second)),
			Index:     i,
		}
	}
	return segments, nil
}

package config

import (
	"context"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// WorkDir is the parent of per-run working directories. Each
	// assembly run gets its own subdirectory so concurrent runs never
	// touch each other's intermediate files.
	WorkDir string `yaml:"work_dir"`

	FFmpeg  FFmpegConfig  `yaml:"ffmpeg"`
	Overlay OverlayConfig `yaml:"overlay"`
	Audio   AudioConfig   `yaml:"audio"`
	Verify  VerifyConfig  `yaml:"verify"`
}

type FFmpegConfig struct {
	Threads int    `yaml:"threads"`
	Preset  string `yaml:"preset"`
	CRF     int    `yaml:"crf"`
	FPS     int    `yaml:"fps"`

	// Composition deadline: base + per output second. An 8-hour sleep
	// video is allowed proportionally more wall time than a short.
	TimeoutBaseSec   float64 `yaml:"timeout_base_sec"`
	TimeoutPerOutSec float64 `yaml:"timeout_per_output_sec"`
}

type OverlayConfig struct {
	FontPath          string  `yaml:"font_path"`
	FontSize          float64 `yaml:"font_size"`
	ReferenceFontSize float64 `yaml:"reference_font_size"`
	WrapWidth         int     `yaml:"wrap_width"`
	PanelAlpha        int     `yaml:"panel_alpha"`
}

type AudioConfig struct {
	// MusicVolume is the attenuation applied to the looped music track.
	MusicVolume float64 `yaml:"music_volume"`
}

type VerifyConfig struct {
	// MaxSamples bounds how many timestamps the integrity check probes.
	MaxSamples int `yaml:"max_samples"`
	// PairGapMS is the spacing between a sample and its comparison
	// frame; frames this far apart during motion must differ.
	PairGapMS int `yaml:"pair_gap_ms"`
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	return cfg, nil
}

// normalize clamps loaded values into their valid ranges. Panel alpha
// feeds a uint8 channel; an out-of-range value would otherwise wrap.
func (c *Config) normalize() {
	if c.Overlay.PanelAlpha < 0 {
		c.Overlay.PanelAlpha = 0
	}
	if c.Overlay.PanelAlpha > 255 {
		c.Overlay.PanelAlpha = 255
	}
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func defaultConfig() *Config {
	return &Config{
		WorkDir: "./work",
		FFmpeg: FFmpegConfig{
			Threads:          0,
			Preset:           "medium",
			CRF:              23,
			FPS:              25,
			TimeoutBaseSec:   60,
			TimeoutPerOutSec: 2,
		},
		Overlay: OverlayConfig{
			FontPath:          "/usr/share/fonts/truetype/dejavu/DejaVuSerif.ttf",
			FontSize:          52,
			ReferenceFontSize: 36,
			WrapWidth:         50,
			PanelAlpha:        120,
		},
		Audio: AudioConfig{
			MusicVolume: 0.3,
		},
		Verify: VerifyConfig{
			MaxSamples: 6,
			PairGapMS:  500,
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		"./config.yml",
		filepath.Join(os.Getenv("HOME"), ".stillwater", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}

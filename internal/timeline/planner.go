package timeline

import (
	"fmt"
	"time"

	"github.com/keagan/stillwater/internal/ffmpeg"
	"github.com/keagan/stillwater/internal/overlay"
)

// Params are the run parameters the planner schedules against.
type Params struct {
	Total       time.Duration
	Canvas      Canvas
	FPS         int
	MusicVolume float64
}

// Plan computes the authoritative timeline for one run: per-window
// offsets for every layer, the background loop instruction and the audio
// fit instruction. It validates everything up front and performs no
// partial computation. music may be nil for a silent video.
func Plan(params Params, layers []*overlay.Rendered, background *ffmpeg.MediaInfo, music *ffmpeg.MediaInfo) (*Timeline, error) {
	if params.Total <= 0 {
		return nil, fmt.Errorf("total duration must be positive, got %s", params.Total)
	}
	if len(layers) == 0 {
		return nil, fmt.Errorf("no overlay segments provided")
	}
	if params.Canvas.Width <= 0 || params.Canvas.Height <= 0 {
		return nil, fmt.Errorf("canvas size must be positive, got %dx%d", params.Canvas.Width, params.Canvas.Height)
	}
	if background == nil || !background.HasVideo {
		return nil, fmt.Errorf("background asset has no video stream")
	}
	if background.Duration <= 0 {
		return nil, fmt.Errorf("background %s probed no valid duration", background.FilePath)
	}
	if music != nil {
		if !music.HasAudio {
			return nil, fmt.Errorf("music asset %s has no audio stream", music.FilePath)
		}
		if music.Duration <= 0 {
			return nil, fmt.Errorf("music %s probed no valid duration", music.FilePath)
		}
	}

	windows, err := scheduleWindows(params.Total, layers)
	if err != nil {
		return nil, err
	}

	fps := params.FPS
	if fps <= 0 {
		fps = ffmpeg.DefaultFPS
	}

	tl := &Timeline{
		Total:   params.Total,
		Windows: windows,
		Background: LoopSpec{
			Source:         background.FilePath,
			SourceDuration: background.Duration,
			Loop:           background.Duration < params.Total,
		},
		Canvas: params.Canvas,
		FPS:    fps,
	}

	if music != nil {
		volume := params.MusicVolume
		if volume <= 0 || volume > 1 {
			volume = 1
		}
		tl.Audio = AudioSpec{
			Source:         music.FilePath,
			SourceDuration: music.Duration,
			Loop:           music.Duration < params.Total,
			Trim:           music.Duration > params.Total,
			Volume:         volume,
		}
	}

	return tl, nil
}

// scheduleWindows allocates each layer its window. Layers with an
// explicit requested duration keep it; the remainder is split equally
// among the rest. The final end offset is clamped to exactly total so
// cumulative rounding never leaves a gap or overlap at the tail.
func scheduleWindows(total time.Duration, layers []*overlay.Rendered) ([]Window, error) {
	var explicit time.Duration
	unspecified := 0
	for _, layer := range layers {
		d := layer.Segment.Duration
		if d < 0 {
			return nil, fmt.Errorf("segment %d has negative duration", layer.Segment.Index)
		}
		if d == 0 {
			unspecified++
		} else {
			explicit += d
		}
	}

	if explicit > total {
		return nil, fmt.Errorf("requested segment durations (%s) exceed total %s", explicit, total)
	}
	if explicit == total && unspecified > 0 {
		return nil, fmt.Errorf("no time left for %d unspecified segments", unspecified)
	}

	var share time.Duration
	if unspecified > 0 {
		share = (total - explicit) / time.Duration(unspecified)
	}

	windows := make([]Window, len(layers))
	cursor := time.Duration(0)
	for i, layer := range layers {
		d := layer.Segment.Duration
		if d == 0 {
			d = share
		}
		windows[i] = Window{
			Layer: layer,
			Start: cursor,
			End:   cursor + d,
		}
		cursor += d
	}

	// Absorb integer-division remainder into the last window.
	windows[len(windows)-1].End = total

	for i, w := range windows {
		if w.Duration() <= 0 {
			return nil, fmt.Errorf("segment %d would display for %s", layers[i].Segment.Index, w.Duration())
		}
	}

	return windows, nil
}

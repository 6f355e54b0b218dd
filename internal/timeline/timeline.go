package timeline

import (
	"time"

	"github.com/keagan/stillwater/internal/overlay"
)

// Canvas is the fixed output resolution all layers are composited at.
type Canvas struct {
	Width  int
	Height int
}

// Window schedules one rendered layer for the half-open interval
// [Start, End).
type Window struct {
	Layer *overlay.Rendered
	Start time.Duration
	End   time.Duration
}

// Duration returns the window's display time.
func (w Window) Duration() time.Duration {
	return w.End - w.Start
}

// LoopSpec instructs the composition engine to extend a single source
// clip by continuous looping. Loop is false when the source already
// covers the total and only needs trimming.
type LoopSpec struct {
	Source         string
	SourceDuration time.Duration
	Loop           bool
}

// AudioSpec instructs the engine how to fit the music track: looped when
// shorter than the total, trimmed when longer, attenuated by Volume.
type AudioSpec struct {
	Source         string
	SourceDuration time.Duration
	Loop           bool
	Trim           bool
	Volume         float64
}

// Timeline is the authoritative, immutable schedule for one assembly
// run. Windows partition [0, Total) with no gaps or overlaps.
type Timeline struct {
	Total      time.Duration
	Windows    []Window
	Background LoopSpec
	Audio      AudioSpec
	Canvas     Canvas
	FPS        int
}

// HasAudio reports whether a music track is scheduled.
func (t *Timeline) HasAudio() bool {
	return t.Audio.Source != ""
}

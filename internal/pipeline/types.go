package pipeline

import (
	"time"

	"github.com/keagan/stillwater/internal/overlay"
	"github.com/keagan/stillwater/internal/timeline"
)

// Request describes one assembly run. All asset paths are already
// resolved by the caller; acquisition is not this engine's concern.
type Request struct {
	Background string
	// Music is optional; empty produces a silent video.
	Music      string
	Segments   []overlay.Segment
	Total      time.Duration
	Canvas     timeline.Canvas
	OutputPath string

	// KeepWorkDir preserves the run's working directory (overlay
	// layers, intermediates, sampled frames) for inspection.
	KeepWorkDir bool
}

// Result is the terminal outcome of one run. A result with Verified
// false must not be handed to a publisher; the caller decides whether
// to retry with adjusted parameters.
type Result struct {
	OutputPath string
	Duration   time.Duration
	Verified   bool
	Reason     string
}

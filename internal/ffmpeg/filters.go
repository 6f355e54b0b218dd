package ffmpeg

import (
	"fmt"
	"strings"
	"time"

	"github.com/keagan/stillwater/pkg/util"
)

// FilterBuilder helps construct ffmpeg filter chains
type FilterBuilder struct {
	filters []string
}

// NewFilterBuilder creates a new filter builder
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{
		filters: make([]string, 0),
	}
}

// ScaleToCanvas normalizes an input to the canvas resolution, preserving
// aspect ratio and padding with black bars. Overlay coordinates computed
// for the canvas stay valid regardless of the source resolution.
func (fb *FilterBuilder) ScaleToCanvas(width, height int) *FilterBuilder {
	if width <= 0 || height <= 0 {
		return fb
	}
	fb.filters = append(fb.filters,
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", width, height),
		fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black", width, height))
	return fb
}

// FPS adds an fps filter
func (fb *FilterBuilder) FPS(fps int) *FilterBuilder {
	if fps <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("fps=%d", fps))
	return fb
}

// Volume attenuates audio by a linear factor
func (fb *FilterBuilder) Volume(factor float64) *FilterBuilder {
	fb.filters = append(fb.filters, fmt.Sprintf("volume=%.2f", factor))
	return fb
}

// ALoop loops the audio stream indefinitely without concatenation
func (fb *FilterBuilder) ALoop() *FilterBuilder {
	fb.filters = append(fb.filters, "aloop=loop=-1:size=2e+09")
	return fb
}

// ATrim cuts the audio stream at the given duration
func (fb *FilterBuilder) ATrim(d time.Duration) *FilterBuilder {
	fb.filters = append(fb.filters, fmt.Sprintf("atrim=0:%s", util.FormatSeconds(d)))
	return fb
}

// Custom adds a custom filter string
func (fb *FilterBuilder) Custom(filter string) *FilterBuilder {
	fb.filters = append(fb.filters, filter)
	return fb
}

// Build returns the complete filter string joined with commas
func (fb *FilterBuilder) Build() string {
	if len(fb.filters) == 0 {
		return ""
	}
	return strings.Join(fb.filters, ",")
}

// OverlayEnable returns an overlay filter gated to the half-open window
// [start, end): the layer is fully visible inside it and invisible
// outside, a hard cut with no easing. gte*lt rather than between() so
// back-to-back windows never both enable on the shared boundary frame.
func OverlayEnable(start, end time.Duration) string {
	return fmt.Sprintf("overlay=0:0:enable='gte(t,%s)*lt(t,%s)'",
		util.FormatSeconds(start), util.FormatSeconds(end))
}

package overlay

import "time"

// Segment is one unit of on-screen text. Duration is the requested
// display time; zero means the planner allocates an equal share of the
// total. Reference is an optional attribution line rendered beneath the
// text in a smaller face.
type Segment struct {
	Text      string
	Reference string
	Duration  time.Duration
	Index     int
}

// Rendered is a rasterized transparent layer for one segment, at the
// exact canvas resolution. All layers of a run share dimensions; the
// composite places every layer at a single fixed position.
type Rendered struct {
	Path    string
	Segment Segment
	Width   int
	Height  int
}

// Style controls text layout and panel appearance.
type Style struct {
	FontPath          string
	FontSize          float64
	ReferenceFontSize float64
	// WrapWidth is the maximum line width in characters.
	WrapWidth int
	// PanelAlpha is the opacity of the dark panel behind the text,
	// 0 (invisible) to 255 (opaque).
	PanelAlpha uint8
}

// DefaultStyle mirrors the panel and type sizes used for 1080p output.
func DefaultStyle() Style {
	return Style{
		FontPath:          "/usr/share/fonts/truetype/dejavu/DejaVuSerif.ttf",
		FontSize:          52,
		ReferenceFontSize: 36,
		WrapWidth:         50,
		PanelAlpha:        120,
	}
}

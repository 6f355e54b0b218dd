package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Renderer rasterizes segments into transparent PNG layers at a fixed
// canvas resolution.
type Renderer struct {
	logger  zerolog.Logger
	workDir string
	width   int
	height  int
	style   Style
	face    font.Face
	refFace font.Face
}

// NewRenderer creates a renderer for one run. The canvas size is fixed
// for the whole run; every rendered layer has exactly these dimensions.
func NewRenderer(logger zerolog.Logger, workDir string, width, height int, style Style) (*Renderer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("canvas size must be positive, got %dx%d", width, height)
	}
	if style.WrapWidth <= 0 {
		style.WrapWidth = DefaultStyle().WrapWidth
	}
	if style.FontSize <= 0 {
		style.FontSize = DefaultStyle().FontSize
	}
	if style.ReferenceFontSize <= 0 {
		style.ReferenceFontSize = DefaultStyle().ReferenceFontSize
	}

	log := logger.With().Str("component", "overlay").Logger()

	face, err := loadFace(style.FontPath, style.FontSize)
	if err != nil {
		log.Warn().Err(err).Str("font", style.FontPath).Msg("font unavailable, using built-in fallback")
		face, err = builtinFace(style.FontSize)
		if err != nil {
			return nil, fmt.Errorf("failed to load fallback font: %w", err)
		}
	}

	refFace, err := loadFace(style.FontPath, style.ReferenceFontSize)
	if err != nil {
		refFace, err = builtinFace(style.ReferenceFontSize)
		if err != nil {
			return nil, fmt.Errorf("failed to load fallback font: %w", err)
		}
	}

	return &Renderer{
		logger:  log,
		workDir: workDir,
		width:   width,
		height:  height,
		style:   style,
		face:    face,
		refFace: refFace,
	}, nil
}

// Render rasterizes one segment. The output path is deterministic per
// segment index, so a rerun overwrites instead of accumulating files.
func (r *Renderer) Render(seg Segment) (*Rendered, error) {
	text := strings.TrimSpace(strings.Trim(seg.Text, `"'`))
	if text == "" {
		return nil, fmt.Errorf("segment %d has no text", seg.Index)
	}

	lines := wrapText(text, r.style.WrapWidth)

	img := image.NewRGBA(image.Rect(0, 0, r.width, r.height))

	metrics := r.face.Metrics()
	lineHeight := metrics.Height.Ceil() + 8
	blockHeight := len(lines) * lineHeight

	refMetrics := r.refFace.Metrics()
	refGap := 0
	if seg.Reference != "" {
		refGap = 20
		blockHeight += refGap + refMetrics.Height.Ceil()
	}

	// Dark panel behind the whole text block for legibility against
	// arbitrary footage.
	pad := 40
	top := (r.height - blockHeight) / 2
	panel := image.Rect(0, top-pad, r.width, top+blockHeight+pad)
	draw.Draw(img, panel, image.NewUniform(color.NRGBA{0, 0, 0, r.style.PanelAlpha}), image.Point{}, draw.Over)

	white := image.NewUniform(color.NRGBA{255, 255, 255, 255})
	cursor := top
	for _, line := range lines {
		r.drawCentered(img, r.face, white, line, cursor+metrics.Ascent.Ceil())
		cursor += lineHeight
	}

	if seg.Reference != "" {
		gray := image.NewUniform(color.NRGBA{200, 200, 200, 255})
		cursor += refGap
		r.drawCentered(img, r.refFace, gray, seg.Reference, cursor+refMetrics.Ascent.Ceil())
	}

	path := filepath.Join(r.workDir, fmt.Sprintf("overlay_%03d.png", seg.Index))
	if err := writePNG(path, img); err != nil {
		return nil, fmt.Errorf("failed to write overlay %d: %w", seg.Index, err)
	}

	r.logger.Debug().
		Int("segment", seg.Index).
		Int("lines", len(lines)).
		Str("path", path).
		Msg("rendered overlay")

	return &Rendered{
		Path:    path,
		Segment: seg,
		Width:   r.width,
		Height:  r.height,
	}, nil
}

// RenderAll rasterizes segments in order, failing on the first error. A
// missing layer would silently desynchronize the timeline downstream, so
// there is no partial success.
func (r *Renderer) RenderAll(segments []Segment) ([]*Rendered, error) {
	rendered := make([]*Rendered, 0, len(segments))
	for _, seg := range segments {
		layer, err := r.Render(seg)
		if err != nil {
			return nil, err
		}
		rendered = append(rendered, layer)
	}
	r.logger.Info().Int("layers", len(rendered)).Msg("all overlays rendered")
	return rendered, nil
}

// drawCentered draws a single line horizontally centered by its measured
// pixel advance.
func (r *Renderer) drawCentered(img *image.RGBA, face font.Face, src image.Image, line string, baseline int) {
	width := font.MeasureString(face, line).Ceil()
	d := &font.Drawer{
		Dst:  img,
		Src:  src,
		Face: face,
		Dot:  fixed.P((r.width-width)/2, baseline),
	}
	d.DrawString(line)
}

// wrapText breaks text into lines of at most width characters, on word
// boundaries. Width is counted in runes, not bytes, so accented text
// and curly quotes do not wrap early. A single word longer than the
// width gets its own line.
func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	currentLen := utf8.RuneCountInString(words[0])
	for _, word := range words[1:] {
		wordLen := utf8.RuneCountInString(word)
		if currentLen+1+wordLen <= width {
			current += " " + word
			currentLen += 1 + wordLen
		} else {
			lines = append(lines, current)
			current = word
			currentLen = wordLen
		}
	}
	return append(lines, current)
}

func loadFace(path string, size float64) (font.Face, error) {
	if path == "" {
		return nil, fmt.Errorf("no font path configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseFace(data, size)
}

func builtinFace(size float64) (font.Face, error) {
	return parseFace(goregular.TTF, size)
}

func parseFace(ttf []byte, size float64) (font.Face, error) {
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

func writePNG(path string, img image.Image) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

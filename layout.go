package gtext

// The layout input model mirrors what a shaping/layout collaborator
// produces: an ordered sequence of lines, each an ordered sequence of
// runs, each an ordered sequence of positioned glyphs. The shape package
// builds Layouts from plain text; callers with their own shaping stack
// fill these structs directly.

// Layout is a fully shaped and line-broken piece of text, ready for quad
// building. Iteration order (lines, then runs, then glyphs) defines the
// draw-instance order, which the depth-partitioned renderer relies on.
type Layout struct {
	Lines []Line
}

// Line is one visual line of a layout.
type Line struct {
	// Baseline is the y coordinate of the line's baseline, relative to
	// the layout origin.
	Baseline float64

	Runs []Run
}

// Run is a maximal sequence of glyphs sharing font, size, and color.
type Run struct {
	// FontID is an opaque identifier for the font face and variable-font
	// instance. Equal FontIDs must mean identical glyph outlines.
	FontID uint64

	// Size is the font size in pixels per em.
	Size float32

	// Color is the run's fill color, applied to mask glyphs at draw time.
	Color Color

	// Offset is the run's x position relative to the layout origin.
	Offset float64

	Glyphs []Glyph
}

// Glyph is one positioned glyph within a run.
type Glyph struct {
	// ID is the glyph index within the run's font.
	ID uint16

	// XAdvance is how far the pen moves after this glyph.
	XAdvance float64

	// XOffset and YOffset fine-position the glyph relative to the pen.
	// YOffset is positive upward, matching font conventions.
	XOffset float64
	YOffset float64
}

// Color is a straight-alpha RGBA color.
type Color struct {
	R, G, B, A uint8
}

// RGBA constructs an opaque-by-default color.
func RGBA(r, g, b, a uint8) Color {
	return Color{R: r, G: g, B: b, A: a}
}

// Packed returns the color as the little-endian u32 the shader unpacks:
// R in the low byte, then G, B, A.
func (c Color) Packed() uint32 {
	return uint32(c.R) | uint32(c.G)<<8 | uint32(c.B)<<16 | uint32(c.A)<<24
}

// IsEmpty reports whether the layout contains no glyphs at all.
func (l *Layout) IsEmpty() bool {
	for _, line := range l.Lines {
		for _, run := range line.Runs {
			if len(run.Glyphs) > 0 {
				return false
			}
		}
	}
	return true
}

// Package shape turns strings into gtext layouts. It wraps
// go-text/typesetting's HarfBuzz shaper for glyph selection and
// positioning, splits paragraphs into bidi runs, and provides a glyph
// rasterizer backed by golang.org/x/image for the renderer's atlas
// misses.
package shape

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/gtext"
)

// Shaping errors.
var (
	// ErrUnknownFont is returned when a font ID was never registered.
	ErrUnknownFont = errors.New("gtext/shape: unknown font id")

	// ErrEmptyFont is returned when AddFont receives no data.
	ErrEmptyFont = errors.New("gtext/shape: empty font data")
)

// fontEntry holds both parsed views of one font: the go-text Font used
// for shaping and the sfnt Font used for rasterization. Both are
// read-only after parsing and safe for concurrent use.
type fontEntry struct {
	shaping *font.Font
	outline *sfnt.Font
}

// Context owns the registered fonts and the shaping machinery. It is
// safe for concurrent use; HarfbuzzShaper instances carry mutable state
// and are pooled per call.
type Context struct {
	shaperPool sync.Pool

	mu     sync.RWMutex
	fonts  map[uint64]*fontEntry
	nextID uint64
}

// NewContext creates an empty shaping context.
func NewContext() *Context {
	return &Context{
		shaperPool: sync.Pool{
			New: func() any {
				return &shaping.HarfbuzzShaper{}
			},
		},
		fonts: make(map[uint64]*fontEntry),
	}
}

// AddFont parses TTF/OTF font data and registers it, returning the font
// ID used in layouts and glyph keys. The data is parsed twice: once for
// shaping and once for outline extraction.
func (c *Context) AddFont(data []byte) (uint64, error) {
	if len(data) == 0 {
		return 0, ErrEmptyFont
	}

	face, err := font.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("gtext/shape: parse font: %w", err)
	}
	outline, err := sfnt.Parse(data)
	if err != nil {
		return 0, fmt.Errorf("gtext/shape: parse font outlines: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.fonts[id] = &fontEntry{shaping: face.Font, outline: outline}
	return id, nil
}

// RemoveFont unregisters a font. Layouts already shaped with it keep
// rendering from cached atlas entries until those are evicted.
func (c *Context) RemoveFont(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.fonts, id)
}

func (c *Context) font(id uint64) (*fontEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.fonts[id]
	return e, ok
}

// ShapeRun shapes one directional run of text into a gtext.Run. The
// run's Offset is left zero; callers position runs within a line.
func (c *Context) ShapeRun(text string, fontID uint64, size float32, color gtext.Color, rtl bool) (gtext.Run, error) {
	entry, ok := c.font(fontID)
	if !ok {
		return gtext.Run{}, fmt.Errorf("%w: %d", ErrUnknownFont, fontID)
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return gtext.Run{FontID: fontID, Size: size, Color: color}, nil
	}

	dir := di.DirectionLTR
	if rtl {
		dir = di.DirectionRTL
	}

	input := shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: dir,
		// font.Face is not safe for concurrent use; each call wraps the
		// shared thread-safe *Font in a fresh Face.
		Face:     font.NewFace(entry.shaping),
		Size:     floatToFixed(float64(size)),
		Script:   detectScript(runes),
		Language: language.NewLanguage("en"),
	}

	hbShaper := c.shaperPool.Get().(*shaping.HarfbuzzShaper)
	output := hbShaper.Shape(input)
	c.shaperPool.Put(hbShaper)

	glyphs := make([]gtext.Glyph, len(output.Glyphs))
	for i, g := range output.Glyphs {
		glyphs[i] = gtext.Glyph{
			ID:       uint16(g.GlyphID),
			XAdvance: fixedToFloat(g.Advance),
			XOffset:  fixedToFloat(g.XOffset),
			YOffset:  fixedToFloat(g.YOffset),
		}
	}

	return gtext.Run{
		FontID: fontID,
		Size:   size,
		Color:  color,
		Glyphs: glyphs,
	}, nil
}

// LayoutOptions controls ShapeLayout.
type LayoutOptions struct {
	// LineHeight is the baseline-to-baseline distance in pixels. Zero
	// defaults to 1.2 times the font size.
	LineHeight float64

	// RTL sets the base paragraph direction to right-to-left.
	RTL bool
}

// ShapeLayout shapes a whole string into a layout: paragraphs split on
// newlines, each paragraph segmented into bidi runs and shaped
// separately. The first baseline sits one line height below the origin.
func (c *Context) ShapeLayout(text string, fontID uint64, size float32, color gtext.Color, opts LayoutOptions) (*gtext.Layout, error) {
	lineHeight := opts.LineHeight
	if lineHeight <= 0 {
		lineHeight = float64(size) * 1.2
	}

	layout := &gtext.Layout{}
	baseline := 0.0

	for _, lineText := range splitLines(text) {
		baseline += lineHeight
		line := gtext.Line{Baseline: baseline}

		offset := 0.0
		for _, seg := range bidiSegments(lineText, opts.RTL) {
			run, err := c.ShapeRun(seg.text, fontID, size, color, seg.rtl)
			if err != nil {
				return nil, err
			}
			run.Offset = offset
			for _, g := range run.Glyphs {
				offset += g.XAdvance
			}
			if len(run.Glyphs) > 0 {
				line.Runs = append(line.Runs, run)
			}
		}

		layout.Lines = append(layout.Lines, line)
	}

	return layout, nil
}

// splitLines splits on "\n", treating "\r\n" as one break.
func splitLines(text string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] != '\n' {
			continue
		}
		end := i
		if end > start && text[end-1] == '\r' {
			end--
		}
		lines = append(lines, text[start:end])
		start = i + 1
	}
	lines = append(lines, text[start:])
	return lines
}

// detectScript returns the script of the first non-space rune, the same
// heuristic HarfBuzz applies for short runs. Mixed-script text should be
// segmented before shaping.
func detectScript(runes []rune) language.Script {
	for _, r := range runes {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		return language.LookupScript(r)
	}
	return language.Latin
}

// floatToFixed converts a font size to 26.6 fixed point.
func floatToFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(v * 64)
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64.0
}

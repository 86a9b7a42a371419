package atlas

import "math"

// GlyphKey uniquely identifies a cached glyph bitmap. Two requests
// producing equal keys are visually indistinguishable and reuse the same
// bitmap. Immutable value type; usable as a map key.
type GlyphKey struct {
	// FontID is an opaque identifier for the font (and variable-font
	// instance) the glyph belongs to.
	FontID uint64

	// GlyphID is the glyph index within the font.
	GlyphID uint16

	// SizeBits is the font size in pixels, stored as float32 bits so the
	// key stays comparable.
	SizeBits uint32

	// XBin and YBin are the quantized subpixel bins (see Quantize).
	XBin uint8
	YBin uint8
}

// MakeGlyphKey builds a GlyphKey from a font identity, glyph id, pixel
// size, and quantized subpixel bins.
func MakeGlyphKey(fontID uint64, glyphID uint16, size float32, xBin, yBin uint8) GlyphKey {
	return GlyphKey{
		FontID:   fontID,
		GlyphID:  glyphID,
		SizeBits: math.Float32bits(size),
		XBin:     xBin,
		YBin:     yBin,
	}
}

// Size returns the font size the key was built with.
func (k GlyphKey) Size() float32 {
	return math.Float32frombits(k.SizeBits)
}

// StoredGlyph records where a glyph bitmap lives in the atlas and how to
// place it relative to the pen position. Owned by the Atlas; Resolve and
// Lookup return copies, never references into cache state.
type StoredGlyph struct {
	// Page is the index of the page holding the bitmap.
	Page int

	// X, Y, Width, Height is the allocation rectangle within the page,
	// in pixels.
	X, Y          int
	Width, Height int

	// Left and Top are the raster placement offsets: the destination
	// rectangle's top-left corner is (penX + Left, penY - Top).
	Left, Top int
}

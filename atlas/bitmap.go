package atlas

// Kind selects between the two glyph bitmap representations. It is an
// explicit two-case tag rather than an interface: every consumer switches
// on it, and the GPU side needs the tag as a plain integer anyway.
type Kind uint8

const (
	// KindMask is a single-channel grayscale coverage bitmap (1 byte per
	// pixel). Most glyphs rasterize to masks; the run color is applied at
	// draw time.
	KindMask Kind = 0

	// KindColor is an RGBA bitmap (4 bytes per pixel), used for embedded
	// color glyphs such as emoji.
	KindColor Kind = 1
)

// String returns the string representation of the bitmap kind.
func (k Kind) String() string {
	switch k {
	case KindMask:
		return "Mask"
	case KindColor:
		return "Color"
	default:
		return "Unknown"
	}
}

// BytesPerPixel returns the pixel stride for the kind.
func (k Kind) BytesPerPixel() int {
	if k == KindColor {
		return 4
	}
	return 1
}

// Bitmap is a rasterized glyph image plus its placement offsets.
// Data holds Height rows of Stride bytes each; only the leading
// Width*Kind.BytesPerPixel() bytes of each row are meaningful.
type Bitmap struct {
	Kind   Kind
	Width  int
	Height int
	Stride int
	Data   []byte

	// Left and Top are the raster placement offsets relative to the pen
	// position (see StoredGlyph).
	Left int
	Top  int
}

// IsEmpty reports whether the bitmap has no coverage at all, e.g. a space
// glyph. Empty bitmaps are cached as negative entries so the rasterizer
// is never re-invoked for them.
func (b Bitmap) IsEmpty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// RasterizeFunc produces the bitmap for a glyph on cache miss.
// Returning ok=false (or an empty bitmap) marks the glyph as
// confirmed-empty.
type RasterizeFunc func() (Bitmap, bool)

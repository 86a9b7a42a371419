package gtext

import (
	"github.com/gogpu/gtext/atlas"
)

// Rasterizer produces glyph bitmaps for atlas misses. offsetX and
// offsetY are the quantized subpixel offsets in [0, 1) the glyph must be
// rendered at. ok is false when the glyph produces no pixels; errors are
// logged and treated the same way.
type Rasterizer interface {
	Rasterize(fontID uint64, glyphID uint16, size float32, offsetX, offsetY float64) (atlas.Bitmap, bool, error)
}

// buildQuads appends one quad per visible glyph of the layout to dst and
// returns the extended slice. Glyphs are resolved against the mask atlas
// first and the color atlas second; a full miss rasterizes exactly once
// and inserts into the atlas matching the bitmap kind. Glyphs that are
// confirmed empty, dropped by an exhausted atlas, or fail to rasterize
// produce no quad.
//
// Quads are appended in layout order (lines, then runs, then glyphs), so
// the resulting slice order is the draw order.
func buildQuads(
	dst []Quad,
	layout *Layout,
	originX, originY float64,
	depth float32,
	mode atlas.SubpixelMode,
	maskAtlas, colorAtlas *atlas.Atlas,
	ras Rasterizer,
) []Quad {
	for li := range layout.Lines {
		line := &layout.Lines[li]
		for ri := range line.Runs {
			run := &line.Runs[ri]
			packed := run.Color.Packed()
			penX := originX + run.Offset

			for gi := range run.Glyphs {
				g := &run.Glyphs[gi]
				glyphX := penX + g.XOffset
				glyphY := originY + line.Baseline - g.YOffset
				penX += g.XAdvance

				intX, intY, binX, binY := atlas.QuantizePoint(glyphX, glyphY, mode)
				key := atlas.MakeGlyphKey(run.FontID, g.ID, run.Size, binX, binY)

				stored, kind, ok := resolveGlyph(key, mode, maskAtlas, colorAtlas, ras)
				if !ok {
					continue
				}

				dst = append(dst, Quad{
					X:      int32(intX + stored.Left),
					Y:      int32(intY - stored.Top),
					Width:  uint16(stored.Width),
					Height: uint16(stored.Height),
					U:      uint16(stored.X),
					V:      uint16(stored.Y),
					Page:   uint8(stored.Page),
					Kind:   kind,
					Color:  packed,
					Depth:  depth,
				})
			}
		}
	}
	return dst
}

// resolveGlyph finds or creates the atlas entry for key. Negative
// entries live in the mask atlas regardless of the glyph's kind, so a
// mask lookup decides "known empty" for both.
func resolveGlyph(
	key atlas.GlyphKey,
	mode atlas.SubpixelMode,
	maskAtlas, colorAtlas *atlas.Atlas,
	ras Rasterizer,
) (atlas.StoredGlyph, atlas.Kind, bool) {
	if stored, negative, found := maskAtlas.Lookup(key); found {
		if negative {
			return atlas.StoredGlyph{}, atlas.KindMask, false
		}
		return stored, atlas.KindMask, true
	}
	if stored, _, found := colorAtlas.Lookup(key); found {
		return stored, atlas.KindColor, true
	}

	bmp, ok, err := ras.Rasterize(key.FontID, key.GlyphID, key.Size(),
		atlas.Offset(key.XBin, mode), atlas.Offset(key.YBin, mode))
	if err != nil {
		Logger().Warn("glyph rasterization failed",
			"font", key.FontID, "glyph", key.GlyphID, "err", err)
		maskAtlas.InsertEmpty(key)
		return atlas.StoredGlyph{}, atlas.KindMask, false
	}
	if !ok || bmp.IsEmpty() {
		maskAtlas.InsertEmpty(key)
		return atlas.StoredGlyph{}, atlas.KindMask, false
	}

	target := maskAtlas
	if bmp.Kind == atlas.KindColor {
		target = colorAtlas
	}
	stored, ok := target.Insert(key, bmp)
	if !ok {
		return atlas.StoredGlyph{}, bmp.Kind, false
	}
	return stored, bmp.Kind, true
}

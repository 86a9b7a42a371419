package shape

import (
	"fmt"
	"image"
	"image/draw"
	"math"
	"sync"

	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/gogpu/gtext/atlas"
)

// GlyphRasterizer renders coverage masks for glyph outlines. It
// implements gtext.Rasterizer on top of the fonts registered in a
// Context: outlines come from sfnt.LoadGlyph and are filled with the
// x/image vector rasterizer at the requested subpixel offset.
//
// Color glyph formats (sbix, COLR) are reported as errors; pair this
// rasterizer with a bitmap-font one when emoji are needed.
type GlyphRasterizer struct {
	ctx *Context

	// sfnt.Buffer is not safe for concurrent use.
	mu  sync.Mutex
	buf sfnt.Buffer
}

// NewGlyphRasterizer creates a rasterizer over the context's fonts.
func NewGlyphRasterizer(ctx *Context) *GlyphRasterizer {
	return &GlyphRasterizer{ctx: ctx}
}

// Rasterize implements gtext.Rasterizer. offsetX and offsetY are the
// quantized subpixel offsets in [0, 1) the outline is shifted by before
// filling. ok is false for glyphs without an outline, such as spaces.
func (r *GlyphRasterizer) Rasterize(fontID uint64, glyphID uint16, size float32, offsetX, offsetY float64) (atlas.Bitmap, bool, error) {
	entry, found := r.ctx.font(fontID)
	if !found {
		return atlas.Bitmap{}, false, fmt.Errorf("%w: %d", ErrUnknownFont, fontID)
	}

	ppem := floatToFixed(float64(size))

	r.mu.Lock()
	defer r.mu.Unlock()

	segments, err := entry.outline.LoadGlyph(&r.buf, sfnt.GlyphIndex(glyphID), ppem, nil)
	if err != nil {
		return atlas.Bitmap{}, false, fmt.Errorf("gtext/shape: load glyph %d: %w", glyphID, err)
	}
	if len(segments) == 0 {
		return atlas.Bitmap{}, false, nil
	}

	// Outline bounds in pixels, y growing down, origin on the baseline.
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	visit := func(p fixed.Point26_6) {
		x := float64(p.X)/64 + offsetX
		y := float64(p.Y)/64 + offsetY
		minX = math.Min(minX, x)
		minY = math.Min(minY, y)
		maxX = math.Max(maxX, x)
		maxY = math.Max(maxY, y)
	}
	for _, seg := range segments {
		switch seg.Op {
		case sfnt.SegmentOpMoveTo, sfnt.SegmentOpLineTo:
			visit(seg.Args[0])
		case sfnt.SegmentOpQuadTo:
			visit(seg.Args[0])
			visit(seg.Args[1])
		case sfnt.SegmentOpCubeTo:
			visit(seg.Args[0])
			visit(seg.Args[1])
			visit(seg.Args[2])
		}
	}

	left := int(math.Floor(minX))
	top := int(math.Floor(minY))
	width := int(math.Ceil(maxX)) - left
	height := int(math.Ceil(maxY)) - top
	if width <= 0 || height <= 0 {
		return atlas.Bitmap{}, false, nil
	}

	// Translate the outline so the bitmap's top-left is (0, 0).
	dx := float32(offsetX - float64(left))
	dy := float32(offsetY - float64(top))

	vr := vector.NewRasterizer(width, height)
	vr.DrawOp = draw.Src
	for _, seg := range segments {
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			vr.MoveTo(pointX(seg.Args[0])+dx, pointY(seg.Args[0])+dy)
		case sfnt.SegmentOpLineTo:
			vr.LineTo(pointX(seg.Args[0])+dx, pointY(seg.Args[0])+dy)
		case sfnt.SegmentOpQuadTo:
			vr.QuadTo(
				pointX(seg.Args[0])+dx, pointY(seg.Args[0])+dy,
				pointX(seg.Args[1])+dx, pointY(seg.Args[1])+dy)
		case sfnt.SegmentOpCubeTo:
			vr.CubeTo(
				pointX(seg.Args[0])+dx, pointY(seg.Args[0])+dy,
				pointX(seg.Args[1])+dx, pointY(seg.Args[1])+dy,
				pointX(seg.Args[2])+dx, pointY(seg.Args[2])+dy)
		}
	}
	vr.ClosePath()

	mask := image.NewAlpha(image.Rect(0, 0, width, height))
	vr.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

	return atlas.Bitmap{
		Kind:   atlas.KindMask,
		Width:  width,
		Height: height,
		Stride: mask.Stride,
		Data:   mask.Pix,
		Left:   left,
		// Top is the distance from the baseline up to the bitmap's top
		// row; outline coordinates grow downward.
		Top: -top,
	}, true, nil
}

func pointX(p fixed.Point26_6) float32 { return float32(p.X) / 64 }
func pointY(p fixed.Point26_6) float32 { return float32(p.Y) / 64 }

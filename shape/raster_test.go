package shape

import (
	"errors"
	"testing"

	"golang.org/x/image/font/gofont/goregular"

	"github.com/gogpu/gtext"
	"github.com/gogpu/gtext/atlas"
)

func newTestRasterizer(t *testing.T) (*GlyphRasterizer, *Context, uint64) {
	t.Helper()
	ctx := NewContext()
	id, err := ctx.AddFont(goregular.TTF)
	if err != nil {
		t.Fatalf("AddFont failed: %v", err)
	}
	return NewGlyphRasterizer(ctx), ctx, id
}

// glyphID shapes a single rune and returns its glyph index.
func glyphID(t *testing.T, ctx *Context, fontID uint64, r rune) uint16 {
	t.Helper()
	run, err := ctx.ShapeRun(string(r), fontID, 16, gtext.Color{}, false)
	if err != nil {
		t.Fatalf("ShapeRun failed: %v", err)
	}
	if len(run.Glyphs) != 1 {
		t.Fatalf("expected 1 glyph for %q, got %d", r, len(run.Glyphs))
	}
	return run.Glyphs[0].ID
}

func TestRasterizeGlyph(t *testing.T) {
	ras, ctx, fontID := newTestRasterizer(t)
	gid := glyphID(t, ctx, fontID, 'H')

	bmp, ok, err := ras.Rasterize(fontID, gid, 16, 0, 0)
	if err != nil {
		t.Fatalf("Rasterize failed: %v", err)
	}
	if !ok {
		t.Fatal("expected a visible glyph")
	}
	if bmp.Kind != atlas.KindMask {
		t.Errorf("kind = %v, want mask", bmp.Kind)
	}
	if bmp.Width <= 0 || bmp.Height <= 0 {
		t.Fatalf("bitmap size %dx%d", bmp.Width, bmp.Height)
	}
	if bmp.Top <= 0 {
		t.Errorf("Top = %d, want > 0 (glyph above baseline)", bmp.Top)
	}
	if len(bmp.Data) < bmp.Stride*bmp.Height {
		t.Fatalf("data too short: %d < %d", len(bmp.Data), bmp.Stride*bmp.Height)
	}

	// An uppercase H must produce actual coverage.
	covered := 0
	for _, v := range bmp.Data {
		if v > 0 {
			covered++
		}
	}
	if covered == 0 {
		t.Error("no covered pixels")
	}
}

func TestRasterizeSpaceIsEmpty(t *testing.T) {
	ras, ctx, fontID := newTestRasterizer(t)
	gid := glyphID(t, ctx, fontID, ' ')

	_, ok, err := ras.Rasterize(fontID, gid, 16, 0, 0)
	if err != nil {
		t.Fatalf("Rasterize failed: %v", err)
	}
	if ok {
		t.Error("space should rasterize to nothing")
	}
}

func TestRasterizeUnknownFont(t *testing.T) {
	ras, _, _ := newTestRasterizer(t)
	if _, _, err := ras.Rasterize(99, 1, 16, 0, 0); !errors.Is(err, ErrUnknownFont) {
		t.Errorf("expected ErrUnknownFont, got %v", err)
	}
}

func TestRasterizeSubpixelOffsetsDiffer(t *testing.T) {
	ras, ctx, fontID := newTestRasterizer(t)
	gid := glyphID(t, ctx, fontID, 'i')

	a, ok, err := ras.Rasterize(fontID, gid, 16, 0, 0)
	if err != nil || !ok {
		t.Fatalf("Rasterize failed: ok=%v err=%v", ok, err)
	}
	b, ok, err := ras.Rasterize(fontID, gid, 16, 0.5, 0)
	if err != nil || !ok {
		t.Fatalf("Rasterize failed: ok=%v err=%v", ok, err)
	}

	// A half-pixel shift must change the coverage data (or the width).
	same := a.Width == b.Width && a.Height == b.Height
	if same {
		for i := range a.Data {
			if a.Data[i] != b.Data[i] {
				same = false
				break
			}
		}
	}
	if same {
		t.Error("subpixel offset produced identical bitmaps")
	}
}

func TestRasterizeScalesWithSize(t *testing.T) {
	ras, ctx, fontID := newTestRasterizer(t)
	gid := glyphID(t, ctx, fontID, 'M')

	small, ok, err := ras.Rasterize(fontID, gid, 12, 0, 0)
	if err != nil || !ok {
		t.Fatalf("Rasterize failed: ok=%v err=%v", ok, err)
	}
	large, ok, err := ras.Rasterize(fontID, gid, 48, 0, 0)
	if err != nil || !ok {
		t.Fatalf("Rasterize failed: ok=%v err=%v", ok, err)
	}
	if large.Width <= small.Width || large.Height <= small.Height {
		t.Errorf("48px glyph (%dx%d) not larger than 12px glyph (%dx%d)",
			large.Width, large.Height, small.Width, small.Height)
	}
}

package shape

import (
	"errors"
	"testing"

	"golang.org/x/image/font/gofont/goregular"

	"github.com/gogpu/gtext"
)

func newTestContext(t *testing.T) (*Context, uint64) {
	t.Helper()
	ctx := NewContext()
	id, err := ctx.AddFont(goregular.TTF)
	if err != nil {
		t.Fatalf("AddFont failed: %v", err)
	}
	return ctx, id
}

func TestAddFont(t *testing.T) {
	ctx, id := newTestContext(t)
	if id == 0 {
		t.Error("expected non-zero font id")
	}

	id2, err := ctx.AddFont(goregular.TTF)
	if err != nil {
		t.Fatalf("second AddFont failed: %v", err)
	}
	if id2 == id {
		t.Error("font ids must be unique")
	}
}

func TestAddFontEmpty(t *testing.T) {
	ctx := NewContext()
	if _, err := ctx.AddFont(nil); !errors.Is(err, ErrEmptyFont) {
		t.Errorf("expected ErrEmptyFont, got %v", err)
	}
}

func TestAddFontGarbage(t *testing.T) {
	ctx := NewContext()
	if _, err := ctx.AddFont([]byte("not a font")); err == nil {
		t.Error("expected parse error for garbage data")
	}
}

func TestShapeRun(t *testing.T) {
	ctx, id := newTestContext(t)

	run, err := ctx.ShapeRun("Hello", id, 16, gtext.Color{A: 255}, false)
	if err != nil {
		t.Fatalf("ShapeRun failed: %v", err)
	}
	if len(run.Glyphs) != 5 {
		t.Fatalf("expected 5 glyphs, got %d", len(run.Glyphs))
	}
	if run.FontID != id || run.Size != 16 {
		t.Errorf("run metadata = font %d size %v", run.FontID, run.Size)
	}
	for i, g := range run.Glyphs {
		if g.ID == 0 {
			t.Errorf("glyph %d has .notdef id", i)
		}
		if g.XAdvance <= 0 {
			t.Errorf("glyph %d advance = %v, want > 0", i, g.XAdvance)
		}
	}

	// "l" repeats; identical glyph IDs confirm shaping consistency.
	if run.Glyphs[2].ID != run.Glyphs[3].ID {
		t.Error("repeated rune shaped to different glyphs")
	}
}

func TestShapeRunUnknownFont(t *testing.T) {
	ctx := NewContext()
	if _, err := ctx.ShapeRun("x", 42, 16, gtext.Color{}, false); !errors.Is(err, ErrUnknownFont) {
		t.Errorf("expected ErrUnknownFont, got %v", err)
	}
}

func TestShapeRunEmptyText(t *testing.T) {
	ctx, id := newTestContext(t)
	run, err := ctx.ShapeRun("", id, 16, gtext.Color{}, false)
	if err != nil {
		t.Fatalf("ShapeRun failed: %v", err)
	}
	if len(run.Glyphs) != 0 {
		t.Errorf("expected no glyphs, got %d", len(run.Glyphs))
	}
}

func TestShapeLayoutLines(t *testing.T) {
	ctx, id := newTestContext(t)

	layout, err := ctx.ShapeLayout("one\ntwo\r\nthree", id, 16, gtext.Color{A: 255}, LayoutOptions{LineHeight: 20})
	if err != nil {
		t.Fatalf("ShapeLayout failed: %v", err)
	}
	if len(layout.Lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(layout.Lines))
	}
	for i, want := range []float64{20, 40, 60} {
		if layout.Lines[i].Baseline != want {
			t.Errorf("line %d baseline = %v, want %v", i, layout.Lines[i].Baseline, want)
		}
	}
	if len(layout.Lines[1].Runs) != 1 || len(layout.Lines[1].Runs[0].Glyphs) != 3 {
		t.Error("line 1 should shape to one run of 3 glyphs")
	}
}

func TestShapeLayoutDefaultLineHeight(t *testing.T) {
	ctx, id := newTestContext(t)
	layout, err := ctx.ShapeLayout("x", id, 10, gtext.Color{}, LayoutOptions{})
	if err != nil {
		t.Fatalf("ShapeLayout failed: %v", err)
	}
	if layout.Lines[0].Baseline != 12 {
		t.Errorf("baseline = %v, want 12 (1.2 * size)", layout.Lines[0].Baseline)
	}
}

func TestShapeLayoutRunOffsets(t *testing.T) {
	ctx, id := newTestContext(t)

	// Latin and Hebrew mix forces at least two bidi runs.
	layout, err := ctx.ShapeLayout("ab אב", id, 16, gtext.Color{A: 255}, LayoutOptions{LineHeight: 20})
	if err != nil {
		t.Fatalf("ShapeLayout failed: %v", err)
	}
	runs := layout.Lines[0].Runs
	if len(runs) < 2 {
		t.Fatalf("expected at least 2 runs, got %d", len(runs))
	}
	if runs[0].Offset != 0 {
		t.Errorf("first run offset = %v, want 0", runs[0].Offset)
	}
	// Later runs start after the advance of everything before them.
	var advance float64
	for _, g := range runs[0].Glyphs {
		advance += g.XAdvance
	}
	if runs[1].Offset <= 0 || runs[1].Offset < advance {
		t.Errorf("second run offset = %v, want >= %v", runs[1].Offset, advance)
	}
}

func TestRemoveFont(t *testing.T) {
	ctx, id := newTestContext(t)
	ctx.RemoveFont(id)
	if _, err := ctx.ShapeRun("x", id, 16, gtext.Color{}, false); !errors.Is(err, ErrUnknownFont) {
		t.Errorf("expected ErrUnknownFont after removal, got %v", err)
	}
}

func TestBidiSegments(t *testing.T) {
	cases := []struct {
		name    string
		text    string
		baseRTL bool
		want    []segment
	}{
		{
			name: "pure latin",
			text: "hello",
			want: []segment{{text: "hello", rtl: false}},
		},
		{
			name: "pure hebrew",
			text: "שלום",
			want: []segment{{text: "שלום", rtl: true}},
		},
		{
			name: "empty",
			text: "",
			want: nil,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := bidiSegments(c.text, c.baseRTL)
			if len(got) != len(c.want) {
				t.Fatalf("got %d segments, want %d: %+v", len(got), len(c.want), got)
			}
			for i := range got {
				if got[i] != c.want[i] {
					t.Errorf("segment %d = %+v, want %+v", i, got[i], c.want[i])
				}
			}
		})
	}
}

func TestBidiSegmentsMixed(t *testing.T) {
	segs := bidiSegments("abc אבג xyz", false)
	if len(segs) < 3 {
		t.Fatalf("expected at least 3 segments, got %d: %+v", len(segs), segs)
	}
	if segs[0].rtl {
		t.Error("leading latin segment should be LTR")
	}

	// Logical order must reassemble the original string.
	joined := ""
	sawRTL := false
	for _, s := range segs {
		joined += s.text
		sawRTL = sawRTL || s.rtl
	}
	if joined != "abc אבג xyz" {
		t.Errorf("segments not in logical order: %q", joined)
	}
	if !sawRTL {
		t.Error("expected an RTL segment for the Hebrew span")
	}
}

func TestSplitLines(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", []string{""}},
		{"one", []string{"one"}},
		{"a\nb", []string{"a", "b"}},
		{"a\r\nb", []string{"a", "b"}},
		{"a\n", []string{"a", ""}},
	}
	for _, c := range cases {
		got := splitLines(c.in)
		if len(got) != len(c.want) {
			t.Errorf("splitLines(%q) = %q, want %q", c.in, got, c.want)
			continue
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("splitLines(%q)[%d] = %q, want %q", c.in, i, got[i], c.want[i])
			}
		}
	}
}

package shape

import (
	"golang.org/x/text/unicode/bidi"
)

// segment is one directionally uniform slice of a paragraph, in logical
// order.
type segment struct {
	text string
	rtl  bool
}

// bidiSegments splits a single paragraph (no newlines) into runs of
// uniform direction using the Unicode bidi algorithm. Segments are
// returned in logical order; the shaper reverses RTL glyph order
// internally.
func bidiSegments(text string, baseRTL bool) []segment {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	levels := bidiLevels(text, len(runes), baseRTL)

	byteOffsets := make([]int, len(runes)+1)
	off := 0
	for i, r := range runes {
		byteOffsets[i] = off
		off += len(string(r))
	}
	byteOffsets[len(runes)] = len(text)

	var segments []segment
	start := 0
	for i := 1; i <= len(runes); i++ {
		if i < len(runes) && levels[i] == levels[start] {
			continue
		}
		segments = append(segments, segment{
			text: text[byteOffsets[start]:byteOffsets[i]],
			rtl:  levels[start]%2 == 1,
		})
		start = i
	}
	return segments
}

// bidiLevels computes an embedding level per rune. Runs from the bidi
// ordering come back in visual order; mapping them onto per-rune levels
// restores logical segmentation.
func bidiLevels(text string, runeCount int, baseRTL bool) []int {
	levels := make([]int, runeCount)
	if baseRTL {
		for i := range levels {
			levels[i] = 1
		}
	}

	defaultDir := bidi.Neutral
	if baseRTL {
		defaultDir = bidi.RightToLeft
	}

	var p bidi.Paragraph
	if _, err := p.SetString(text, bidi.DefaultDirection(defaultDir)); err != nil {
		return levels
	}
	ordering, err := p.Order()
	if err != nil {
		return levels
	}

	for i := 0; i < ordering.NumRuns(); i++ {
		run := ordering.Run(i)
		// Pos returns inclusive rune indices.
		startRune, endRune := run.Pos()
		level := 0
		if run.Direction() == bidi.RightToLeft {
			level = 1
		}
		for j := startRune; j <= endRune && j < len(levels); j++ {
			levels[j] = level
		}
	}
	return levels
}

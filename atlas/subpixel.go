// Package atlas implements the glyph bitmap cache: subpixel position
// quantization, shelf-based rectangle packing, fixed-size texture pages,
// and an LRU keyed by quantized glyph identity with frame-aware eviction
// protection.
package atlas

import "math"

// SubpixelMode controls subpixel position quantization.
// Quantizing fractional glyph positions into a small number of bins lets
// near-identical offsets share one cached bitmap instead of thrashing the
// cache on every sub-pixel jitter. The cost is a positional error of at
// most 1/(2N) pixel for N bins.
type SubpixelMode int

const (
	// SubpixelNone disables subpixel positioning.
	// Positions round to whole pixels. Fastest, smallest cache.
	SubpixelNone SubpixelMode = 0

	// Subpixel4 uses 4 subpixel bins (offsets 0.0, 0.25, 0.5, 0.75).
	// Good balance of quality and cache size.
	Subpixel4 SubpixelMode = 4

	// Subpixel8 uses 8 subpixel bins.
	// Highest quality, 8x cache entries per glyph.
	Subpixel8 SubpixelMode = 8
)

// String returns the string representation of the subpixel mode.
func (m SubpixelMode) String() string {
	switch m {
	case SubpixelNone:
		return "SubpixelNone"
	case Subpixel4:
		return "Subpixel4"
	case Subpixel8:
		return "Subpixel8"
	default:
		return "Unknown"
	}
}

// IsEnabled returns true if subpixel positioning is enabled.
func (m SubpixelMode) IsEnabled() bool {
	return m > 0
}

// Bins returns the number of subpixel bins.
// Returns 1 for SubpixelNone.
func (m SubpixelMode) Bins() int {
	if m <= 0 {
		return 1
	}
	return int(m)
}

// Quantize maps a continuous coordinate to an integer origin and a
// subpixel bin in [0, Bins()). The fractional part is rounded to the
// nearest of 2N half-open sub-intervals folded into N bins, so bin 0
// covers both [0, 1/2N) and the wrap-around [1-1/2N, 1); in the latter
// case the integer origin is incremented and the bin resets to 0.
//
// Quantize is deterministic and side-effect free. The reconstructed
// position intPos + bin/N differs from pos by at most 1/(2N).
//
// With Subpixel4:
//   - pos=10.0   returns (10, 0)
//   - pos=10.3   returns (10, 1)
//   - pos=10.8   returns (10, 3)
//   - pos=10.9   returns (11, 0)  // rounds up past the last bin
func Quantize(pos float64, mode SubpixelMode) (intPos int, bin uint8) {
	if !mode.IsEnabled() {
		return int(math.Round(pos)), 0
	}

	floor := math.Floor(pos)
	frac := pos - floor

	n := mode.Bins()
	b := int(frac*float64(n) + 0.5)
	if b >= n {
		// Rounded past the last bin boundary: fold into the next pixel.
		return int(floor) + 1, 0
	}
	if b < 0 {
		b = 0
	}
	return int(floor), uint8(b)
}

// QuantizePoint quantizes x and y independently.
func QuantizePoint(x, y float64, mode SubpixelMode) (intX, intY int, binX, binY uint8) {
	intX, binX = Quantize(x, mode)
	intY, binY = Quantize(y, mode)
	return intX, intY, binX, binY
}

// Offset returns the fractional offset represented by a subpixel bin.
// The rasterizer applies this offset when rendering the glyph so that the
// cached bitmap matches the quantized position.
// For Subpixel4: 0 -> 0.0, 1 -> 0.25, 2 -> 0.5, 3 -> 0.75.
func Offset(bin uint8, mode SubpixelMode) float64 {
	if !mode.IsEnabled() {
		return 0
	}
	return float64(bin) / float64(mode.Bins())
}

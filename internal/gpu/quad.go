package gpu

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/gtext/atlas"
)

// quadStride is the byte stride per instance in the text pipeline.
// Layout per instance, matching VertexInput in shaders/text.wgsl:
//
//	pos    (vec2<i32>)  = 8 bytes  (location 0)
//	dim    (u32, w|h<<16) = 4 bytes (location 1)
//	uv     (u32, u|v<<16) = 4 bytes (location 2)
//	flags  (u32, page|kind<<8) = 4 bytes (location 3)
//	color  (u32, rgba)  = 4 bytes  (location 4)
//	depth  (f32)        = 4 bytes  (location 5)
//
// Total = 28 bytes per instance.
const quadStride = 28

// Quad is one device-ready draw instance for a single glyph cell. Quads
// are produced fresh every prepare pass and never mutated in place.
type Quad struct {
	// X, Y is the destination top-left corner in pixels.
	X, Y int32

	// Width, Height is the glyph cell size in pixels.
	Width, Height uint16

	// U, V is the top-left corner of the glyph bitmap within its atlas
	// page, in texels.
	U, V uint16

	// Page is the atlas page (texture array layer) holding the bitmap.
	Page uint8

	// Kind selects the mask or color atlas.
	Kind atlas.Kind

	// Color is the packed RGBA fill color (see gtext.Color.Packed).
	// Ignored for color glyphs.
	Color uint32

	// Depth is the instance depth in [0, 1], 0 front, 1 back. Used by
	// the optional depth test and by z-range partitioned draws.
	Depth float32
}

// encodeQuads serializes quads into raw instance bytes for GPU upload.
func encodeQuads(quads []Quad) []byte {
	if len(quads) == 0 {
		return nil
	}
	data := make([]byte, len(quads)*quadStride)
	off := 0
	for _, q := range quads {
		binary.LittleEndian.PutUint32(data[off:], uint32(q.X))
		binary.LittleEndian.PutUint32(data[off+4:], uint32(q.Y))
		binary.LittleEndian.PutUint32(data[off+8:], uint32(q.Width)|uint32(q.Height)<<16)
		binary.LittleEndian.PutUint32(data[off+12:], uint32(q.U)|uint32(q.V)<<16)
		binary.LittleEndian.PutUint32(data[off+16:], uint32(q.Page)|uint32(q.Kind)<<8)
		binary.LittleEndian.PutUint32(data[off+20:], q.Color)
		binary.LittleEndian.PutUint32(data[off+24:], math.Float32bits(q.Depth))
		off += quadStride
	}
	return data
}

package gpu

import (
	"encoding/binary"
	"math"
)

// paramsUniformSize is the byte size of the params uniform block.
// Layout: screen_resolution (vec2<u32>) = 8 bytes + srgb flag (u32) =
// 4 bytes + padding = 16 bytes (uniform blocks are 16-byte aligned).
const paramsUniformSize = 16

// encodeParams serializes the params uniform block.
func encodeParams(screenWidth, screenHeight uint32, srgb bool) []byte {
	buf := make([]byte, paramsUniformSize)
	binary.LittleEndian.PutUint32(buf[0:], screenWidth)
	binary.LittleEndian.PutUint32(buf[4:], screenHeight)
	if srgb {
		binary.LittleEndian.PutUint32(buf[8:], 1)
	}
	return buf
}

// zRangeSlotStride is the byte stride between z-range uniform slots.
// Uniform buffer binding offsets must be multiples of the device's
// minimum uniform offset alignment; 256 is the WebGPU guaranteed maximum.
const zRangeSlotStride = 256

// zRangeUniformSize is the bound size of one z-range slot:
// far (f32) + near (f32) + padding to 16 bytes.
const zRangeUniformSize = 16

// encodeZRange serializes one z-range slot. Instances with depth outside
// [far, near] are discarded by the z-range shader variant.
func encodeZRange(near, far float32) []byte {
	buf := make([]byte, zRangeUniformSize)
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(far))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(near))
	return buf
}

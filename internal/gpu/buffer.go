package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// growBuffer is a GPU buffer that grows geometrically and never shrinks.
// Recreating a buffer invalidates bind groups referencing it, so the
// caller checks the recreated result.
type growBuffer struct {
	buf      hal.Buffer
	capacity uint64
	label    string
	usage    gputypes.BufferUsage
}

// ensure guarantees capacity for size bytes, doubling from the current
// capacity (or starting at initial) until it fits.
func (b *growBuffer) ensure(device hal.Device, size, initial uint64) (recreated bool, err error) {
	if b.buf != nil && size <= b.capacity {
		return false, nil
	}

	newCap := b.capacity
	if newCap == 0 {
		newCap = initial
	}
	for newCap < size {
		newCap *= 2
	}

	if b.buf != nil {
		device.DestroyBuffer(b.buf)
		b.buf = nil
		logger().Debug("buffer grown", "label", b.label, "capacity", newCap)
	}

	buf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: b.label,
		Size:  alignBufferSize(newCap),
		Usage: b.usage,
	})
	if err != nil {
		return false, fmt.Errorf("create buffer %q: %w", b.label, err)
	}
	b.buf = buf
	b.capacity = newCap
	return true, nil
}

func (b *growBuffer) destroy(device hal.Device) {
	if b.buf != nil {
		device.DestroyBuffer(b.buf)
		b.buf = nil
		b.capacity = 0
	}
}

// alignBufferSize rounds a byte size up to the 4-byte alignment required
// for buffer creation.
func alignBufferSize(size uint64) uint64 {
	return (size + 3) &^ 3
}

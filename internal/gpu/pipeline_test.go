package gpu

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/gtext/atlas"
)

// createNoopDevice creates a noop device and queue for testing.
// Returns the device, queue, and a cleanup function.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

func testAtlases(t *testing.T) (*atlas.Atlas, *atlas.Atlas) {
	t.Helper()
	cfg := atlas.Config{PageSize: 256, MaxPages: 4, Padding: 1}
	return atlas.New(atlas.KindMask, cfg), atlas.New(atlas.KindColor, cfg)
}

// maskBitmap returns a fully opaque coverage bitmap.
func maskBitmap(w, h int) atlas.Bitmap {
	data := make([]byte, w*h)
	for i := range data {
		data[i] = 0xff
	}
	return atlas.Bitmap{Kind: atlas.KindMask, Width: w, Height: h, Stride: w, Data: data}
}

func TestNewRenderer(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	r, err := New(device, queue, DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer r.Destroy()

	if r.pipeline == nil {
		t.Error("expected non-nil pipeline")
	}
	if r.sampler == nil {
		t.Error("expected non-nil sampler")
	}
	if r.paramsBuf == nil {
		t.Error("expected non-nil params buffer")
	}
	if r.zRangeBuf != nil {
		t.Error("expected nil zrange buffer without EnableZRange")
	}
}

func TestNewRendererNilDevice(t *testing.T) {
	_, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	if _, err := New(nil, queue, DefaultConfig()); !errors.Is(err, ErrNilDevice) {
		t.Errorf("expected ErrNilDevice, got %v", err)
	}
}

func TestNewRendererZRange(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	cfg := DefaultConfig()
	cfg.EnableZRange = true
	r, err := New(device, queue, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer r.Destroy()

	if r.zRangeBuf == nil {
		t.Error("expected zrange buffer with EnableZRange")
	}
	if r.zRangeLayout == nil {
		t.Error("expected zrange bind group layout with EnableZRange")
	}
}

func TestLoadGrowsQuadBuffer(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	cfg := DefaultConfig()
	cfg.InitialQuadCapacity = 4
	r, err := New(device, queue, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer r.Destroy()

	mask, color := testAtlases(t)

	quads := make([]Quad, 3)
	if err := r.Load(quads, 800, 600, mask, color); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if r.quadCount != 3 {
		t.Errorf("quadCount = %d, want 3", r.quadCount)
	}
	capAfterFirst := r.quadBuf.capacity
	if capAfterFirst != 4*quadStride {
		t.Errorf("capacity = %d, want %d", capAfterFirst, 4*quadStride)
	}

	// 10 quads exceed the 4-instance capacity; doubling reaches 16.
	quads = make([]Quad, 10)
	if err := r.Load(quads, 800, 600, mask, color); err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if r.quadBuf.capacity != 16*quadStride {
		t.Errorf("capacity = %d, want %d", r.quadBuf.capacity, 16*quadStride)
	}

	// Shrinking the quad list keeps the buffer.
	quads = make([]Quad, 1)
	if err := r.Load(quads, 800, 600, mask, color); err != nil {
		t.Fatalf("third Load failed: %v", err)
	}
	if r.quadBuf.capacity != 16*quadStride {
		t.Errorf("capacity shrank to %d", r.quadBuf.capacity)
	}
	if r.quadCount != 1 {
		t.Errorf("quadCount = %d, want 1", r.quadCount)
	}
}

func TestLoadQuadOverflow(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	cfg := DefaultConfig()
	cfg.InitialQuadCapacity = 4
	cfg.MaxQuadCapacity = 8
	r, err := New(device, queue, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer r.Destroy()

	mask, color := testAtlases(t)
	err = r.Load(make([]Quad, 9), 800, 600, mask, color)
	if !errors.Is(err, ErrQuadBufferOverflow) {
		t.Errorf("expected ErrQuadBufferOverflow, got %v", err)
	}
}

// bindGroupCountingDevice wraps a hal.Device and counts CreateBindGroup
// calls. The noop backend returns indistinguishable resources, so the
// bind-group rebuild is observed through the call count.
type bindGroupCountingDevice struct {
	hal.Device
	bindGroups int
}

func (d *bindGroupCountingDevice) CreateBindGroup(desc *hal.BindGroupDescriptor) (hal.BindGroup, error) {
	d.bindGroups++
	return d.Device.CreateBindGroup(desc)
}

func TestLoadRecreatesTextureOnPageGrowth(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	counting := &bindGroupCountingDevice{Device: device}
	r, err := New(counting, queue, DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer r.Destroy()

	mask, color := testAtlases(t)
	if err := r.Load(nil, 800, 600, mask, color); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if r.maskTexture.layers != 1 {
		t.Fatalf("mask layers = %d, want 1", r.maskTexture.layers)
	}
	afterFirstLoad := counting.bindGroups
	if afterFirstLoad == 0 {
		t.Fatal("first Load created no bind group")
	}

	// An unchanged page set keeps the bind group.
	if err := r.Load(nil, 800, 600, mask, color); err != nil {
		t.Fatalf("repeat Load failed: %v", err)
	}
	if counting.bindGroups != afterFirstLoad {
		t.Errorf("bind groups = %d after unchanged Load, want %d",
			counting.bindGroups, afterFirstLoad)
	}

	// Fill page 0 within one frame so the next insert opens page 1.
	mask.BeginFrame()
	key := func(i int) atlas.GlyphKey {
		return atlas.MakeGlyphKey(1, uint16(i), 16, 0, 0)
	}
	i := 0
	for mask.PageCount() == 1 {
		if _, ok := mask.Insert(key(i), maskBitmap(64, 64)); !ok {
			t.Fatal("insert failed before page growth")
		}
		i++
		if i > 100 {
			t.Fatal("page never grew")
		}
	}

	if err := r.Load(nil, 800, 600, mask, color); err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if r.maskTexture.layers != 2 {
		t.Errorf("mask layers = %d, want 2", r.maskTexture.layers)
	}
	if counting.bindGroups != afterFirstLoad+1 {
		t.Errorf("bind groups = %d after texture recreate, want %d",
			counting.bindGroups, afterFirstLoad+1)
	}
}

func TestLoadUploadsDirtyPagesOnly(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	r, err := New(device, queue, DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer r.Destroy()

	mask, color := testAtlases(t)
	mask.BeginFrame()
	if _, ok := mask.Insert(atlas.MakeGlyphKey(1, 7, 16, 0, 0), maskBitmap(32, 32)); !ok {
		t.Fatal("insert failed")
	}
	if !mask.Page(0).Dirty() {
		t.Fatal("page should be dirty after insert")
	}

	if err := r.Load(nil, 800, 600, mask, color); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if mask.Page(0).Dirty() {
		t.Error("page should be clean after Load")
	}
}

func TestRenderBeforeLoad(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	r, err := New(device, queue, DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer r.Destroy()

	if err := r.Render(nil); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("expected ErrNotLoaded, got %v", err)
	}
}

func TestRenderRangeDisabled(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	r, err := New(device, queue, DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer r.Destroy()

	if err := r.RenderRange(nil, 1.0, 0.0); !errors.Is(err, ErrZRangeDisabled) {
		t.Errorf("expected ErrZRangeDisabled, got %v", err)
	}
}

func TestRenderRangeSlotExhaustion(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	cfg := DefaultConfig()
	cfg.EnableZRange = true
	r, err := New(device, queue, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer r.Destroy()

	mask, color := testAtlases(t)
	if err := r.Load(make([]Quad, 1), 800, 600, mask, color); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if r.zRangeUsed != 1 {
		t.Fatalf("zRangeUsed = %d after Load, want 1", r.zRangeUsed)
	}

	r.zRangeUsed = zRangeSlotCount
	if err := r.RenderRange(nil, 1.0, 0.0); !errors.Is(err, ErrZRangeSlotsExhausted) {
		t.Errorf("expected ErrZRangeSlotsExhausted, got %v", err)
	}

	// A new Load resets the slots.
	if err := r.Load(make([]Quad, 1), 800, 600, mask, color); err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if r.zRangeUsed != 1 {
		t.Errorf("zRangeUsed = %d after reload, want 1", r.zRangeUsed)
	}
}

func TestRenderEmptyQuadListIsNoop(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	r, err := New(device, queue, DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer r.Destroy()

	mask, color := testAtlases(t)
	if err := r.Load(nil, 800, 600, mask, color); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	// A nil pass is safe because zero quads return before recording.
	if err := r.Render(nil); err != nil {
		t.Errorf("Render with zero quads: %v", err)
	}
}

func TestDestroyIdempotent(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	cfg := DefaultConfig()
	cfg.EnableZRange = true
	r, err := New(device, queue, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	r.Destroy()
	r.Destroy()

	if r.pipeline != nil || r.shader != nil || r.bindGroup != nil {
		t.Error("resources not cleared after Destroy")
	}
}

func TestConfigNormalize(t *testing.T) {
	var cfg Config
	cfg.normalize()
	if cfg.TargetFormat != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("TargetFormat = %v, want BGRA8Unorm", cfg.TargetFormat)
	}
	if cfg.InitialQuadCapacity != 256 {
		t.Errorf("InitialQuadCapacity = %d, want 256", cfg.InitialQuadCapacity)
	}
	if cfg.MaxQuadCapacity != 16384 {
		t.Errorf("MaxQuadCapacity = %d, want 16384", cfg.MaxQuadCapacity)
	}
}

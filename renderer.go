package gtext

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gtext/atlas"
	"github.com/gogpu/gtext/internal/gpu"
)

// Renderer errors. Errors from the GPU layer are re-exported so callers
// match against a single package.
var (
	// ErrInvalidProvider is returned when a device provider does not
	// expose HAL device and queue handles.
	ErrInvalidProvider = errors.New("gtext: provider does not expose HAL types")

	// ErrReleased is returned when using a renderer after Release.
	ErrReleased = errors.New("gtext: renderer released")

	// ErrZRangeDisabled is returned by RenderInRange when the renderer
	// was built without EnableZRange.
	ErrZRangeDisabled = gpu.ErrZRangeDisabled

	// ErrQuadBufferOverflow is returned by LoadToGPU when a prepare pass
	// produced more quads than MaxQuadCapacity.
	ErrQuadBufferOverflow = gpu.ErrQuadBufferOverflow
)

// TextRenderer draws prepared text layouts. It owns a mask atlas for
// coverage glyphs, a color atlas for emoji and other bitmap glyphs, and
// the GPU pipeline that renders the per-glyph instance quads.
//
// The frame protocol is Prepare (one or more layouts), LoadToGPU, then
// Render or RenderInRange into an open render pass. A TextRenderer is
// single-owner; no method is safe for concurrent use.
type TextRenderer struct {
	cfg      RendererConfig
	gpu      *gpu.Renderer
	mask     *atlas.Atlas
	color    *atlas.Atlas
	quads    []Quad
	inFrame  bool
	released bool
}

// NewTextRenderer creates a renderer on an explicit HAL device and
// queue. The caller keeps ownership of both.
func NewTextRenderer(device hal.Device, queue hal.Queue, cfg RendererConfig) (*TextRenderer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	pageSize, err := cfg.pageSize()
	if err != nil {
		return nil, err
	}

	atlasCfg := atlas.Config{
		PageSize: pageSize,
		MaxPages: cfg.MaxPages,
	}

	gpuRenderer, err := gpu.New(device, queue, gpu.Config{
		TargetFormat:        cfg.TargetFormat,
		DepthStencilFormat:  cfg.DepthStencilFormat,
		EnableZRange:        cfg.EnableZRange,
		SRGB:                cfg.SRGB,
		PrecompileSPIRV:     cfg.PrecompileShaders,
		InitialQuadCapacity: cfg.InitialQuadCapacity,
		MaxQuadCapacity:     cfg.MaxQuadCapacity,
	})
	if err != nil {
		return nil, err
	}

	Logger().Info("text renderer created",
		"pageSize", pageSize,
		"maxPages", cfg.MaxPages,
		"subpixel", cfg.Subpixel.String(),
		"zrange", cfg.EnableZRange)

	return &TextRenderer{
		cfg:   cfg,
		gpu:   gpuRenderer,
		mask:  atlas.New(atlas.KindMask, atlasCfg),
		color: atlas.New(atlas.KindColor, atlasCfg),
		quads: make([]Quad, 0, cfg.InitialQuadCapacity),
	}, nil
}

// NewTextRendererFromProvider creates a renderer from a shared device
// provider such as a gogpu context. The provider must expose HalDevice()
// and HalQueue() returning hal.Device and hal.Queue. When the provider
// also reports its surface format and the config leaves TargetFormat
// unset, the surface format is adopted.
func NewTextRendererFromProvider(provider gpucontext.DeviceProvider, cfg RendererConfig) (*TextRenderer, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrInvalidProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrInvalidProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrInvalidProvider)
	}

	if cfg.TargetFormat == gputypes.TextureFormatUndefined {
		if sf, ok := provider.(interface{ SurfaceFormat() gputypes.TextureFormat }); ok {
			cfg.TargetFormat = sf.SurfaceFormat()
		}
	}

	return NewTextRenderer(device, queue, cfg)
}

// Prepare resolves the layout's glyphs against the atlases and appends
// their quads at the given origin and depth. The first Prepare after a
// LoadToGPU (or after construction) starts a new frame: the quad list is
// rebuilt from scratch and the atlases advance their frame counter so
// this frame's glyphs are protected from eviction.
//
// Preparing the same layouts twice in a row yields the same quads; a
// prepare pass never evicts entries that earlier layouts of the same
// pass resolved.
func (r *TextRenderer) Prepare(layout *Layout, x, y float64, depth float32) error {
	if r.released {
		return ErrReleased
	}
	if !r.inFrame {
		r.quads = r.quads[:0]
		r.mask.BeginFrame()
		r.color.BeginFrame()
		r.inFrame = true
	}
	if layout == nil || layout.IsEmpty() {
		return nil
	}
	r.quads = buildQuads(r.quads, layout, x, y, depth, r.cfg.Subpixel,
		r.mask, r.color, r.cfg.Rasterizer)
	return nil
}

// Quads returns the quads built by the current frame's Prepare calls.
// The slice is owned by the renderer and valid until the next frame.
func (r *TextRenderer) Quads() []Quad {
	return r.quads
}

// MaskAtlas exposes the coverage-glyph atlas, mainly for stats.
func (r *TextRenderer) MaskAtlas() *atlas.Atlas { return r.mask }

// ColorAtlas exposes the bitmap-glyph atlas, mainly for stats.
func (r *TextRenderer) ColorAtlas() *atlas.Atlas { return r.color }

// LoadToGPU uploads the prepared quads, the screen parameters and any
// dirty atlas pages, and ends the prepare phase. Must be called before
// Render and outside any open render pass.
func (r *TextRenderer) LoadToGPU(screenWidth, screenHeight uint32) error {
	if r.released {
		return ErrReleased
	}
	r.inFrame = false
	return r.gpu.Load(r.quads, screenWidth, screenHeight, r.mask, r.color)
}

// Render records one instanced draw of every loaded quad into the pass.
// Quads draw in prepare order.
func (r *TextRenderer) Render(pass hal.RenderPassEncoder) error {
	if r.released {
		return ErrReleased
	}
	return r.gpu.Render(pass)
}

// RenderInRange records a draw of only the quads whose depth lies in
// [far, near], both inclusive. Requires EnableZRange; otherwise
// ErrZRangeDisabled is returned. Partitioning a frame into depth slices
// lets text interleave with other content without re-preparing.
func (r *TextRenderer) RenderInRange(pass hal.RenderPassEncoder, near, far float32) error {
	if r.released {
		return ErrReleased
	}
	return r.gpu.RenderRange(pass, near, far)
}

// Release destroys all GPU resources. The renderer is unusable
// afterwards; further calls return ErrReleased. Safe to call twice.
func (r *TextRenderer) Release() {
	if r.released {
		return
	}
	r.gpu.Destroy()
	r.quads = nil
	r.released = true
}

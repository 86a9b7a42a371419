package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gtext/atlas"
)

// Pipeline errors.
var (
	// ErrNilDevice is returned when constructing a renderer without a device.
	ErrNilDevice = errors.New("gtext: device is nil")

	// ErrNilQueue is returned when constructing a renderer without a queue.
	ErrNilQueue = errors.New("gtext: queue is nil")

	// ErrQuadBufferOverflow is returned when a prepare pass produces more
	// quads than the configured maximum.
	ErrQuadBufferOverflow = errors.New("gtext: quad buffer overflow")

	// ErrNotLoaded is returned when drawing before any Load call.
	ErrNotLoaded = errors.New("gtext: no quads loaded")

	// ErrZRangeDisabled is returned by RenderRange when the renderer was
	// built without z-range support.
	ErrZRangeDisabled = errors.New("gtext: z-range rendering not enabled")

	// ErrZRangeSlotsExhausted is returned when more RenderRange calls are
	// issued between Loads than there are uniform slots.
	ErrZRangeSlotsExhausted = errors.New("gtext: z-range slots exhausted")
)

// zRangeSlotCount is the number of RenderRange draws available between
// two Load calls. Slot 0 is reserved for the full range used by Render.
const zRangeSlotCount = 64

// Config controls renderer construction.
type Config struct {
	// TargetFormat is the color format of the render target.
	TargetFormat gputypes.TextureFormat

	// DepthStencilFormat enables the depth/stencil pipeline state when
	// not TextureFormatUndefined. Quads test against the depth buffer
	// with CompareFunctionLess (depth 0 in front, 1 in back) but do not
	// write depth, so blended glyphs never occlude each other.
	DepthStencilFormat gputypes.TextureFormat

	// EnableZRange builds the depth-partitioned shader variant and the
	// per-draw range uniform. Without it RenderRange returns
	// ErrZRangeDisabled.
	EnableZRange bool

	// SRGB converts quad colors from sRGB to linear in the shader.
	SRGB bool

	// PrecompileSPIRV lowers the WGSL to SPIR-V at construction.
	PrecompileSPIRV bool

	// InitialQuadCapacity is the instance count the quad buffer starts
	// with. The buffer doubles as needed and never shrinks.
	InitialQuadCapacity int

	// MaxQuadCapacity bounds the instance count per Load.
	MaxQuadCapacity int
}

// DefaultConfig returns the renderer defaults: BGRA8 target, no depth
// buffer, no z-range support.
func DefaultConfig() Config {
	return Config{
		TargetFormat:        gputypes.TextureFormatBGRA8Unorm,
		DepthStencilFormat:  gputypes.TextureFormatUndefined,
		InitialQuadCapacity: 256,
		MaxQuadCapacity:     16384,
	}
}

func (c *Config) normalize() {
	if c.TargetFormat == gputypes.TextureFormatUndefined {
		c.TargetFormat = gputypes.TextureFormatBGRA8Unorm
	}
	if c.InitialQuadCapacity <= 0 {
		c.InitialQuadCapacity = 256
	}
	if c.MaxQuadCapacity < c.InitialQuadCapacity {
		c.MaxQuadCapacity = 16384
	}
}

// Renderer owns the GPU half of text drawing: the instance buffer, the
// params uniform, both atlas texture arrays and the render pipeline.
// Load mirrors CPU state into those resources; Render and RenderRange
// record draws into a caller-owned render pass.
//
// A Renderer is single-owner. Load must not run while a render pass
// recorded from it is still open.
type Renderer struct {
	device hal.Device
	queue  hal.Queue
	cfg    Config

	shader       hal.ShaderModule
	bindLayout   hal.BindGroupLayout
	zRangeLayout hal.BindGroupLayout
	pipeLayout   hal.PipelineLayout
	pipeline     hal.RenderPipeline
	sampler      hal.Sampler

	maskTexture  *atlasTexture
	colorTexture *atlasTexture

	quadBuf   growBuffer
	quadCount uint32
	loaded    bool

	paramsBuf hal.Buffer

	zRangeBuf        hal.Buffer
	zRangeBindGroups [zRangeSlotCount]hal.BindGroup
	zRangeUsed       int

	bindGroup hal.BindGroup
}

// New creates a renderer for the given device and queue. All pipeline
// state is built eagerly so shader and layout errors surface here.
func New(device hal.Device, queue hal.Queue, cfg Config) (*Renderer, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if queue == nil {
		return nil, ErrNilQueue
	}
	cfg.normalize()

	r := &Renderer{
		device:       device,
		queue:        queue,
		cfg:          cfg,
		maskTexture:  newAtlasTexture(atlas.KindMask),
		colorTexture: newAtlasTexture(atlas.KindColor),
		quadBuf: growBuffer{
			label: "gtext_quads",
			usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
		},
	}

	if err := r.createPipeline(); err != nil {
		r.Destroy()
		return nil, err
	}

	logger().Info("text pipeline created",
		"target", cfg.TargetFormat,
		"depth", cfg.DepthStencilFormat != gputypes.TextureFormatUndefined,
		"zrange", cfg.EnableZRange)
	return r, nil
}

func (r *Renderer) createPipeline() error {
	source := textShaderSource
	label := "gtext_shader"
	if r.cfg.EnableZRange {
		source = textZRangeShaderSource
		label = "gtext_zrange_shader"
	}

	shader, err := compileShaderModule(r.device, label, source, r.cfg.PrecompileSPIRV)
	if err != nil {
		return err
	}
	r.shader = shader

	// Group 0:
	//   Binding 0: params uniform (vertex+fragment)
	//   Binding 1: mask atlas texture array (vertex+fragment; the vertex
	//              stage reads textureDimensions for UV normalization)
	//   Binding 2: color atlas texture array (fragment)
	//   Binding 3: sampler (fragment)
	bindLayout, err := r.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "gtext_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2DArray,
				},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2DArray,
				},
			},
			{
				Binding:    3,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind layout: %w", err)
	}
	r.bindLayout = bindLayout

	layouts := []hal.BindGroupLayout{r.bindLayout}
	if r.cfg.EnableZRange {
		zLayout, err := r.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label: "gtext_zrange_layout",
			Entries: []gputypes.BindGroupLayoutEntry{
				{
					Binding:    0,
					Visibility: gputypes.ShaderStageVertex,
					Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
				},
			},
		})
		if err != nil {
			return fmt.Errorf("create zrange layout: %w", err)
		}
		r.zRangeLayout = zLayout
		layouts = append(layouts, zLayout)
	}

	pipeLayout, err := r.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "gtext_pipe_layout",
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	r.pipeLayout = pipeLayout

	// Nearest filtering: atlas cells are padded by a single pixel, so
	// linear filtering would bleed neighboring glyphs.
	sampler, err := r.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "gtext_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeNearest,
		MinFilter:    gputypes.FilterModeNearest,
		MipmapFilter: gputypes.FilterModeNearest,
	})
	if err != nil {
		return fmt.Errorf("create sampler: %w", err)
	}
	r.sampler = sampler

	paramsBuf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "gtext_params",
		Size:  paramsUniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create params buffer: %w", err)
	}
	r.paramsBuf = paramsBuf

	if r.cfg.EnableZRange {
		zBuf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "gtext_zrange",
			Size:  zRangeSlotCount * zRangeSlotStride,
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("create zrange buffer: %w", err)
		}
		r.zRangeBuf = zBuf
	}

	var depthStencil *hal.DepthStencilState
	if r.cfg.DepthStencilFormat != gputypes.TextureFormatUndefined {
		// Depth writes stay off: glyph quads are alpha blended and would
		// occlude each other's antialiased edges if they wrote depth.
		depthStencil = &hal.DepthStencilState{
			Format:            r.cfg.DepthStencilFormat,
			DepthWriteEnabled: false,
			DepthCompare:      gputypes.CompareFunctionLess,
			StencilFront: hal.StencilFaceState{
				Compare:     gputypes.CompareFunctionAlways,
				FailOp:      hal.StencilOperationKeep,
				DepthFailOp: hal.StencilOperationKeep,
				PassOp:      hal.StencilOperationKeep,
			},
			StencilBack: hal.StencilFaceState{
				Compare:     gputypes.CompareFunctionAlways,
				FailOp:      hal.StencilOperationKeep,
				DepthFailOp: hal.StencilOperationKeep,
				PassOp:      hal.StencilOperationKeep,
			},
			StencilReadMask:  0x00,
			StencilWriteMask: 0x00,
		}
	}

	premulBlend := gputypes.BlendStatePremultiplied()
	pipeline, err := r.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "gtext_pipeline",
		Layout: r.pipeLayout,
		Vertex: hal.VertexState{
			Module:     r.shader,
			EntryPoint: "vs_main",
			Buffers:    quadVertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     r.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    r.cfg.TargetFormat,
					Blend:     &premulBlend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		DepthStencil: depthStencil,
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleStrip,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("create render pipeline: %w", err)
	}
	r.pipeline = pipeline

	return nil
}

// quadVertexLayout describes the per-instance vertex buffer. Quad corners
// are synthesized from the vertex index; all six attributes step per
// instance.
func quadVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: quadStride,
			StepMode:    gputypes.VertexStepModeInstance,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatSint32x2, Offset: 0, ShaderLocation: 0},
				{Format: gputypes.VertexFormatUint32, Offset: 8, ShaderLocation: 1},
				{Format: gputypes.VertexFormatUint32, Offset: 12, ShaderLocation: 2},
				{Format: gputypes.VertexFormatUint32, Offset: 16, ShaderLocation: 3},
				{Format: gputypes.VertexFormatUint32, Offset: 20, ShaderLocation: 4},
				{Format: gputypes.VertexFormatFloat32, Offset: 24, ShaderLocation: 5},
			},
		},
	}
}

// Load mirrors the prepared quads and both atlases into GPU resources.
// It grows the instance buffer as needed, uploads dirty atlas pages,
// recreates the texture arrays when a page count changed, and resets the
// z-range slots for the coming frame.
func (r *Renderer) Load(quads []Quad, screenWidth, screenHeight uint32, maskAtlas, colorAtlas *atlas.Atlas) error {
	if len(quads) > r.cfg.MaxQuadCapacity {
		return fmt.Errorf("%w: %d quads, max %d", ErrQuadBufferOverflow, len(quads), r.cfg.MaxQuadCapacity)
	}

	r.queue.WriteBuffer(r.paramsBuf, 0, encodeParams(screenWidth, screenHeight, r.cfg.SRGB))

	if len(quads) > 0 {
		data := encodeQuads(quads)
		_, err := r.quadBuf.ensure(r.device, uint64(len(data)), uint64(r.cfg.InitialQuadCapacity)*quadStride)
		if err != nil {
			return err
		}
		r.queue.WriteBuffer(r.quadBuf.buf, 0, data)
	}
	r.quadCount = uint32(len(quads))

	maskRecreated, err := r.maskTexture.sync(r.device, r.queue, maskAtlas)
	if err != nil {
		return err
	}
	colorRecreated, err := r.colorTexture.sync(r.device, r.queue, colorAtlas)
	if err != nil {
		return err
	}

	if r.bindGroup == nil || maskRecreated || colorRecreated {
		if err := r.rebuildBindGroup(); err != nil {
			return err
		}
	}

	if r.cfg.EnableZRange {
		// Slot 0 holds the full range so plain Render draws everything.
		r.queue.WriteBuffer(r.zRangeBuf, 0, encodeZRange(1.0, 0.0))
		r.zRangeUsed = 1
	}

	r.loaded = true
	return nil
}

func (r *Renderer) rebuildBindGroup() error {
	if r.bindGroup != nil {
		r.device.DestroyBindGroup(r.bindGroup)
		r.bindGroup = nil
	}

	bg, err := r.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "gtext_bind",
		Layout: r.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: r.paramsBuf.NativeHandle(), Offset: 0, Size: paramsUniformSize,
			}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{
				TextureView: r.maskTexture.view.NativeHandle(),
			}},
			{Binding: 2, Resource: gputypes.TextureViewBinding{
				TextureView: r.colorTexture.view.NativeHandle(),
			}},
			{Binding: 3, Resource: gputypes.SamplerBinding{
				Sampler: r.sampler.NativeHandle(),
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	r.bindGroup = bg
	return nil
}

// zRangeSlotBindGroup returns the bind group for a z-range slot,
// creating it on first use. The backing buffer is fixed-size, so cached
// slot bind groups stay valid for the renderer's lifetime.
func (r *Renderer) zRangeSlotBindGroup(slot int) (hal.BindGroup, error) {
	if bg := r.zRangeBindGroups[slot]; bg != nil {
		return bg, nil
	}
	bg, err := r.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "gtext_zrange_bind",
		Layout: r.zRangeLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: r.zRangeBuf.NativeHandle(),
				Offset: uint64(slot) * zRangeSlotStride,
				Size:   zRangeUniformSize,
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create zrange bind group: %w", err)
	}
	r.zRangeBindGroups[slot] = bg
	return bg, nil
}

// QuadCount reports the number of instances loaded by the last Load.
func (r *Renderer) QuadCount() uint32 {
	return r.quadCount
}

// Render records one instanced draw covering every loaded quad. Quads
// are drawn in prepare order.
func (r *Renderer) Render(pass hal.RenderPassEncoder) error {
	return r.draw(pass, 0)
}

// RenderRange records a draw restricted to quads with depth inside
// [far, near], both inclusive. Each call between two Loads consumes one
// uniform slot.
func (r *Renderer) RenderRange(pass hal.RenderPassEncoder, near, far float32) error {
	if !r.cfg.EnableZRange {
		return ErrZRangeDisabled
	}
	if r.zRangeUsed >= zRangeSlotCount {
		return ErrZRangeSlotsExhausted
	}

	slot := r.zRangeUsed
	r.zRangeUsed++
	r.queue.WriteBuffer(r.zRangeBuf, uint64(slot)*zRangeSlotStride, encodeZRange(near, far))
	return r.draw(pass, slot)
}

func (r *Renderer) draw(pass hal.RenderPassEncoder, zSlot int) error {
	if !r.loaded {
		return ErrNotLoaded
	}
	if r.quadCount == 0 {
		return nil
	}

	pass.SetPipeline(r.pipeline)
	pass.SetBindGroup(0, r.bindGroup, nil)
	if r.cfg.EnableZRange {
		zbg, err := r.zRangeSlotBindGroup(zSlot)
		if err != nil {
			return err
		}
		pass.SetBindGroup(1, zbg, nil)
	}
	pass.SetVertexBuffer(0, r.quadBuf.buf, 0)
	pass.Draw(4, r.quadCount, 0, 0)
	return nil
}

// Destroy releases all GPU resources in reverse creation order. Safe to
// call more than once.
func (r *Renderer) Destroy() {
	if r.device == nil {
		return
	}
	if r.bindGroup != nil {
		r.device.DestroyBindGroup(r.bindGroup)
		r.bindGroup = nil
	}
	for i, bg := range r.zRangeBindGroups {
		if bg != nil {
			r.device.DestroyBindGroup(bg)
			r.zRangeBindGroups[i] = nil
		}
	}
	if r.pipeline != nil {
		r.device.DestroyRenderPipeline(r.pipeline)
		r.pipeline = nil
	}
	if r.zRangeBuf != nil {
		r.device.DestroyBuffer(r.zRangeBuf)
		r.zRangeBuf = nil
	}
	if r.paramsBuf != nil {
		r.device.DestroyBuffer(r.paramsBuf)
		r.paramsBuf = nil
	}
	r.quadBuf.destroy(r.device)
	r.maskTexture.destroy(r.device)
	r.colorTexture.destroy(r.device)
	if r.sampler != nil {
		r.device.DestroySampler(r.sampler)
		r.sampler = nil
	}
	if r.pipeLayout != nil {
		r.device.DestroyPipelineLayout(r.pipeLayout)
		r.pipeLayout = nil
	}
	if r.zRangeLayout != nil {
		r.device.DestroyBindGroupLayout(r.zRangeLayout)
		r.zRangeLayout = nil
	}
	if r.bindLayout != nil {
		r.device.DestroyBindGroupLayout(r.bindLayout)
		r.bindLayout = nil
	}
	if r.shader != nil {
		r.device.DestroyShaderModule(r.shader)
		r.shader = nil
	}
	r.loaded = false
	r.quadCount = 0
}

package gtext

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gtext/atlas"
)

// Configuration errors.
var (
	// ErrInvalidPageSize is returned when an explicit page size is below
	// the atlas minimum.
	ErrInvalidPageSize = errors.New("gtext: page size below minimum")

	// ErrNilRasterizer is returned when constructing a renderer without a
	// glyph rasterizer.
	ErrNilRasterizer = errors.New("gtext: rasterizer is nil")
)

// PageSizeMode selects how the atlas page dimension is chosen.
type PageSizeMode uint8

const (
	// PageSizeDefault uses the conservative default (2048), safe on
	// every backend including downlevel ones.
	PageSizeDefault PageSizeMode = iota

	// PageSizeExplicit uses RendererConfig.ExplicitPageSize.
	PageSizeExplicit

	// PageSizeDeviceMax uses the device's maximum 2D texture dimension,
	// supplied via RendererConfig.DeviceMaxTextureSize.
	PageSizeDeviceMax

	// PageSizeDownlevelMax uses the downlevel WebGPU guaranteed maximum
	// (2048).
	PageSizeDownlevelMax
)

// downlevelMaxTextureSize is the texture dimension every downlevel
// WebGPU adapter guarantees.
const downlevelMaxTextureSize = 2048

// String implements fmt.Stringer.
func (m PageSizeMode) String() string {
	switch m {
	case PageSizeDefault:
		return "default"
	case PageSizeExplicit:
		return "explicit"
	case PageSizeDeviceMax:
		return "device-max"
	case PageSizeDownlevelMax:
		return "downlevel-max"
	default:
		return fmt.Sprintf("PageSizeMode(%d)", uint8(m))
	}
}

// RendererConfig controls TextRenderer construction. The zero value is
// not usable; start from DefaultRendererConfig.
type RendererConfig struct {
	// TargetFormat is the color format of the render target the text is
	// drawn into.
	TargetFormat gputypes.TextureFormat

	// DepthStencilFormat enables the depth test when not
	// TextureFormatUndefined. Quads test with less-than against depth
	// written by other content (depth 0 is the front, 1 the back) but
	// do not write depth themselves, keeping alpha blending correct
	// between overlapping glyphs.
	DepthStencilFormat gputypes.TextureFormat

	// EnableZRange builds the depth-partitioned pipeline so
	// RenderInRange is available.
	EnableZRange bool

	// SRGB converts quad colors from sRGB to linear in the shader.
	SRGB bool

	// PrecompileShaders lowers the WGSL shaders to SPIR-V at
	// construction time so shader errors surface eagerly.
	PrecompileShaders bool

	// Subpixel selects subpixel position quantization. Finer modes
	// place glyphs more accurately at the cost of more atlas entries
	// per glyph.
	Subpixel atlas.SubpixelMode

	// PageSizeMode selects the atlas page dimension strategy.
	PageSizeMode PageSizeMode

	// ExplicitPageSize is the page dimension for PageSizeExplicit.
	ExplicitPageSize int

	// DeviceMaxTextureSize is the device limit consulted by
	// PageSizeDeviceMax. Zero falls back to the downlevel maximum.
	DeviceMaxTextureSize int

	// MaxPages bounds the growth of each atlas.
	MaxPages int

	// InitialQuadCapacity and MaxQuadCapacity bound the GPU instance
	// buffer. The buffer grows geometrically and never shrinks.
	InitialQuadCapacity int
	MaxQuadCapacity     int

	// Rasterizer produces glyph bitmaps on atlas misses.
	Rasterizer Rasterizer
}

// DefaultRendererConfig returns the renderer defaults: BGRA8 target,
// 4-bin subpixel quantization, 2048-pixel pages, no depth
// buffer and no z-range pipeline. A Rasterizer must still be set.
func DefaultRendererConfig() RendererConfig {
	return RendererConfig{
		TargetFormat:        gputypes.TextureFormatBGRA8Unorm,
		DepthStencilFormat:  gputypes.TextureFormatUndefined,
		Subpixel:            atlas.Subpixel4,
		PageSizeMode:        PageSizeDefault,
		MaxPages:            atlas.DefaultMaxPages,
		InitialQuadCapacity: 256,
		MaxQuadCapacity:     16384,
	}
}

// pageSize resolves the configured page dimension.
func (c *RendererConfig) pageSize() (int, error) {
	switch c.PageSizeMode {
	case PageSizeExplicit:
		if c.ExplicitPageSize < atlas.MinPageSize {
			return 0, fmt.Errorf("%w: %d < %d", ErrInvalidPageSize, c.ExplicitPageSize, atlas.MinPageSize)
		}
		return c.ExplicitPageSize, nil
	case PageSizeDeviceMax:
		if c.DeviceMaxTextureSize >= atlas.MinPageSize {
			return c.DeviceMaxTextureSize, nil
		}
		return downlevelMaxTextureSize, nil
	case PageSizeDownlevelMax:
		return downlevelMaxTextureSize, nil
	default:
		return atlas.DefaultPageSize, nil
	}
}

// validate checks construction requirements and fills defaults.
func (c *RendererConfig) validate() error {
	if c.Rasterizer == nil {
		return ErrNilRasterizer
	}
	if _, err := c.pageSize(); err != nil {
		return err
	}
	if c.TargetFormat == gputypes.TextureFormatUndefined {
		c.TargetFormat = gputypes.TextureFormatBGRA8Unorm
	}
	if c.MaxPages <= 0 {
		c.MaxPages = atlas.DefaultMaxPages
	}
	if c.InitialQuadCapacity <= 0 {
		c.InitialQuadCapacity = 256
	}
	if c.MaxQuadCapacity < c.InitialQuadCapacity {
		c.MaxQuadCapacity = 16384
	}
	return nil
}

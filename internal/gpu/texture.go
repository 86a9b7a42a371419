package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gtext/atlas"
)

// atlasTexture mirrors one atlas (mask or color) into a GPU texture
// array whose depth equals the atlas page count. Adding a page forces a
// full recreate and re-upload because a texture array cannot be resized
// in place; within a stable page set only dirty pages are written.
type atlasTexture struct {
	kind   atlas.Kind
	format gputypes.TextureFormat

	texture hal.Texture
	view    hal.TextureView

	// layers is the array depth the texture was created with.
	layers int
	// size is the page dimension the texture was created with.
	size int
}

func newAtlasTexture(kind atlas.Kind) *atlasTexture {
	format := gputypes.TextureFormatR8Unorm
	if kind == atlas.KindColor {
		format = gputypes.TextureFormatRGBA8Unorm
	}
	return &atlasTexture{kind: kind, format: format}
}

// sync brings the texture array up to date with the atlas. Returns
// recreated=true when the texture and view were rebuilt, which
// invalidates any bind group referencing the old view.
func (t *atlasTexture) sync(device hal.Device, queue hal.Queue, a *atlas.Atlas) (recreated bool, err error) {
	pageCount := a.PageCount()
	pageSize := a.PageSize()

	if t.texture == nil || t.layers != pageCount || t.size != pageSize {
		t.destroy(device)
		if err := t.create(device, pageSize, pageCount); err != nil {
			return false, err
		}
		// Fresh array: every layer needs its bitmap, dirty or not.
		for i := 0; i < pageCount; i++ {
			page := a.Page(i)
			t.uploadPage(queue, page, i)
			page.MarkClean()
		}
		return true, nil
	}

	for i := 0; i < pageCount; i++ {
		page := a.Page(i)
		if !page.Dirty() {
			continue
		}
		t.uploadPage(queue, page, i)
		page.MarkClean()
	}
	return false, nil
}

func (t *atlasTexture) create(device hal.Device, pageSize, layers int) error {
	label := fmt.Sprintf("gtext_%s_atlas", t.kind)

	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label: label,
		Size: hal.Extent3D{
			Width:              uint32(pageSize),
			Height:             uint32(pageSize),
			DepthOrArrayLayers: uint32(layers),
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        t.format,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create %s texture: %w", label, err)
	}

	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:           label + "_view",
		Format:          t.format,
		Dimension:       gputypes.TextureViewDimension2DArray,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: uint32(layers),
	})
	if err != nil {
		device.DestroyTexture(tex)
		return fmt.Errorf("create %s view: %w", label, err)
	}

	t.texture = tex
	t.view = view
	t.layers = layers
	t.size = pageSize
	logger().Debug("atlas texture created",
		"kind", t.kind.String(), "size", pageSize, "layers", layers)
	return nil
}

// uploadPage writes one page bitmap into its array layer.
func (t *atlasTexture) uploadPage(queue hal.Queue, page *atlas.Page, layer int) {
	w := uint32(page.Width())
	h := uint32(page.Height())
	bpp := uint32(t.kind.BytesPerPixel())

	queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  t.texture,
			MipLevel: 0,
			Origin:   hal.Origin3D{X: 0, Y: 0, Z: uint32(layer)},
			Aspect:   gputypes.TextureAspectAll,
		},
		page.Pixels(),
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  w * bpp,
			RowsPerImage: h,
		},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
}

func (t *atlasTexture) destroy(device hal.Device) {
	if t.view != nil {
		device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.texture != nil {
		device.DestroyTexture(t.texture)
		t.texture = nil
	}
	t.layers = 0
	t.size = 0
}

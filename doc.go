// Package gtext turns shaped text layouts into GPU draw instances.
//
// # Overview
//
// gtext is the text rendering core of the GoGPU ecosystem: a glyph bitmap
// cache backed by fixed-size texture pages with LRU eviction, sub-pixel
// position quantization for cache reuse, and an instanced renderer with
// optional depth-partitioned draw issuance for correct alpha blending
// against externally rendered content.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/gtext"
//	    "github.com/gogpu/gtext/shape"
//	)
//
//	ctx := shape.NewContext()
//	fontID, _ := ctx.AddFont(fontData)
//
//	cfg := gtext.DefaultRendererConfig()
//	cfg.Rasterizer = shape.NewGlyphRasterizer(ctx)
//	renderer, err := gtext.NewTextRenderer(device, queue, cfg)
//	if err != nil { ... }
//
//	// Each frame: rebuild the quad list from a shaped layout,
//	// mirror state to the GPU, then draw inside a render pass.
//	layout, _ := ctx.ShapeLayout("hello", fontID, 16, gtext.Color{A: 255}, shape.LayoutOptions{})
//	renderer.Prepare(layout, 10, 10, 0.0)
//	if err := renderer.LoadToGPU(800, 600); err != nil { ... }
//	renderer.Render(pass)
//
// # Architecture
//
// The library is organized into:
//   - Public API: TextRenderer, Layout/Line/Run/Glyph, Quad, RendererConfig
//   - atlas: subpixel quantizer, shelf packer, pages, LRU glyph cache
//   - shape: optional layout producer backed by go-text/typesetting,
//     with a default rasterizer for the mask path
//   - internal/gpu: buffers, texture arrays, pipelines, WGSL shaders
//
// # Coordinate System
//
// Uses standard computer graphics coordinates: origin (0,0) at top-left,
// X increases right, Y increases down. Depth runs from 0.0 (front) to
// 1.0 (back).
//
// # Concurrency
//
// A TextRenderer is single-owner: one goroutine drives Prepare, LoadToGPU,
// and Render per frame. There is no internal locking on the frame path.
package gtext

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0-alpha.1"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0

	// VersionPrerelease is the prerelease identifier
	VersionPrerelease = "alpha.1"
)

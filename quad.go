package gtext

import "github.com/gogpu/gtext/internal/gpu"

// Quad is one screen-space glyph instance produced by Prepare. The quad
// list is rebuilt from scratch on every Prepare call; its order is the
// draw order.
type Quad = gpu.Quad

package atlas

// Page is one fixed-size bitmap of an atlas plus its rectangle packer.
// Pages are append-only within an Atlas and never reordered; a page's
// identity is its index.
type Page struct {
	index  int
	width  int
	height int
	kind   Kind

	// pixels holds width*height pixels at the kind's byte stride.
	pixels []byte

	packer *Packer

	// dirty is set whenever pixels change and cleared by the GPU sync
	// layer after upload.
	dirty bool
}

func newPage(index, width, height, padding int, kind Kind) *Page {
	return &Page{
		index:  index,
		width:  width,
		height: height,
		kind:   kind,
		pixels: make([]byte, width*height*kind.BytesPerPixel()),
		packer: NewPacker(width, height, padding),
	}
}

// Index returns the page's position within its atlas.
func (p *Page) Index() int { return p.index }

// Width returns the page width in pixels.
func (p *Page) Width() int { return p.width }

// Height returns the page height in pixels.
func (p *Page) Height() int { return p.height }

// Kind returns the bitmap kind stored on this page.
func (p *Page) Kind() Kind { return p.kind }

// Pixels returns the page's backing pixel buffer. The sync layer reads it
// for texture upload; callers must not mutate it.
func (p *Page) Pixels() []byte { return p.pixels }

// Dirty reports whether the page bitmap changed since the last MarkClean.
func (p *Page) Dirty() bool { return p.dirty }

// MarkClean clears the dirty flag after the page has been uploaded.
func (p *Page) MarkClean() { p.dirty = false }

// Utilization returns the fraction of the page area currently allocated.
func (p *Page) Utilization() float64 { return p.packer.Utilization() }

// copyBitmap writes the bitmap into the page at (x, y) row by row,
// honoring the bitmap's stride, and marks the page dirty.
func (p *Page) copyBitmap(bmp Bitmap, x, y int) {
	bpp := p.kind.BytesPerPixel()
	rowBytes := bmp.Width * bpp
	for row := 0; row < bmp.Height; row++ {
		src := bmp.Data[row*bmp.Stride : row*bmp.Stride+rowBytes]
		dstOff := ((y+row)*p.width + x) * bpp
		copy(p.pixels[dstOff:dstOff+rowBytes], src)
	}
	p.dirty = true
}

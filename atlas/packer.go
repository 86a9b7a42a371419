package atlas

// Packer is a shelf-based rectangle allocator with an explicit free list.
// The page is divided into horizontal shelves of bucketed heights; each
// shelf hands out rectangles left to right with a bump pointer and keeps
// a sorted, coalesced list of reclaimed spans. Keeping the free space as
// plain spans (rather than an opaque cache structure) makes eviction
// bookkeeping auditable: every Free call corresponds to a span that a
// later Allocate can consume.
//
// Packer is not safe for concurrent use; the owning page serializes access.
type Packer struct {
	width   int
	height  int
	padding int

	shelves []*shelf

	// nextY is where the next shelf would begin.
	nextY int

	usedArea int
}

// shelf is one horizontal strip of the page.
type shelf struct {
	y      int
	height int

	// x is the bump pointer: [x, page width) has never been allocated.
	x int

	// free holds reclaimed spans within [0, x), sorted by x and coalesced.
	free []span
}

// span is a contiguous free range within a shelf.
type span struct {
	x     int
	width int
}

// shelfHeightBucket is the granularity of shelf heights. Bucketing lets a
// freed rectangle be reused by any glyph of similar height instead of only
// exact-height matches.
const shelfHeightBucket = 8

// NewPacker creates a packer for a width x height page with the given
// padding between allocations.
func NewPacker(width, height, padding int) *Packer {
	return &Packer{
		width:   width,
		height:  height,
		padding: padding,
	}
}

// Allocate finds space for a w x h rectangle. Returns the position and
// true on success, or false when no shelf can hold the rectangle.
func (p *Packer) Allocate(w, h int) (x, y int, ok bool) {
	if w <= 0 || h <= 0 {
		return 0, 0, false
	}

	aw := w + p.padding
	ah := h + p.padding
	bucket := bucketHeight(ah)
	if aw > p.width || bucket > p.height {
		return 0, 0, false
	}

	// Existing shelves of the matching bucket: reclaimed spans first,
	// then the bump pointer.
	for _, s := range p.shelves {
		if s.height != bucket {
			continue
		}
		if x, ok := s.takeFromFree(aw); ok {
			p.usedArea += aw * ah
			return x, s.y, true
		}
		if s.x+aw <= p.width {
			x := s.x
			s.x += aw
			p.usedArea += aw * ah
			return x, s.y, true
		}
	}

	// Open a new shelf.
	if p.nextY+bucket > p.height {
		return 0, 0, false
	}
	s := &shelf{y: p.nextY, height: bucket, x: aw}
	p.shelves = append(p.shelves, s)
	p.nextY += bucket
	p.usedArea += aw * ah
	return 0, s.y, true
}

// Free returns a previously allocated rectangle to its shelf's free list.
// The rectangle must match an earlier Allocate(w, h) result exactly.
func (p *Packer) Free(x, y, w, h int) {
	aw := w + p.padding
	ah := h + p.padding

	for _, s := range p.shelves {
		if s.y != y {
			continue
		}
		s.insertFree(span{x: x, width: aw})
		// If the freed span reaches the bump pointer, retract it so the
		// space becomes bump-allocatable again.
		if n := len(s.free); n > 0 {
			last := s.free[n-1]
			if last.x+last.width == s.x {
				s.x = last.x
				s.free = s.free[:n-1]
			}
		}
		p.usedArea -= aw * ah
		return
	}
}

// CanFit reports whether a w x h rectangle could currently be allocated,
// without mutating packer state.
func (p *Packer) CanFit(w, h int) bool {
	if w <= 0 || h <= 0 {
		return false
	}
	aw := w + p.padding
	ah := h + p.padding
	bucket := bucketHeight(ah)
	if aw > p.width || bucket > p.height {
		return false
	}
	for _, s := range p.shelves {
		if s.height != bucket {
			continue
		}
		if s.x+aw <= p.width {
			return true
		}
		for _, f := range s.free {
			if f.width >= aw {
				return true
			}
		}
	}
	return p.nextY+bucket <= p.height
}

// Reset discards all allocations.
func (p *Packer) Reset() {
	p.shelves = nil
	p.nextY = 0
	p.usedArea = 0
}

// Utilization returns the fraction of the page area currently allocated,
// in [0, 1].
func (p *Packer) Utilization() float64 {
	total := p.width * p.height
	if total == 0 {
		return 0
	}
	return float64(p.usedArea) / float64(total)
}

// takeFromFree carves aw pixels from the first free span wide enough.
func (s *shelf) takeFromFree(aw int) (int, bool) {
	for i := range s.free {
		f := &s.free[i]
		if f.width < aw {
			continue
		}
		x := f.x
		f.x += aw
		f.width -= aw
		if f.width == 0 {
			s.free = append(s.free[:i], s.free[i+1:]...)
		}
		return x, true
	}
	return 0, false
}

// insertFree adds a span keeping the list sorted by x and coalescing with
// adjacent neighbors.
func (s *shelf) insertFree(f span) {
	i := 0
	for i < len(s.free) && s.free[i].x < f.x {
		i++
	}

	// Merge with the predecessor if contiguous.
	if i > 0 && s.free[i-1].x+s.free[i-1].width == f.x {
		s.free[i-1].width += f.width
		// And with the successor, if the merge closed the gap.
		if i < len(s.free) && s.free[i-1].x+s.free[i-1].width == s.free[i].x {
			s.free[i-1].width += s.free[i].width
			s.free = append(s.free[:i], s.free[i+1:]...)
		}
		return
	}

	// Merge with the successor if contiguous.
	if i < len(s.free) && f.x+f.width == s.free[i].x {
		s.free[i].x = f.x
		s.free[i].width += f.width
		return
	}

	s.free = append(s.free, span{})
	copy(s.free[i+1:], s.free[i:])
	s.free[i] = f
}

// bucketHeight rounds a height up to the shelf bucket granularity.
func bucketHeight(h int) int {
	if h <= 0 {
		return shelfHeightBucket
	}
	return (h + shelfHeightBucket - 1) / shelfHeightBucket * shelfHeightBucket
}

package atlas

// Default configuration values.
const (
	// DefaultPageSize is a conservative page dimension supported by every
	// backend the library targets, including downlevel ones.
	DefaultPageSize = 2048

	// MinPageSize is the smallest allowed page dimension.
	MinPageSize = 256

	// DefaultMaxPages bounds atlas growth.
	DefaultMaxPages = 8

	// DefaultPadding is the pixel gap between packed glyphs, preventing
	// sampling bleed between neighbors.
	DefaultPadding = 1

	// DefaultMaxNegative bounds the confirmed-empty entry count.
	DefaultMaxNegative = 4096
)

// Config holds Atlas construction parameters.
type Config struct {
	// PageSize is the width and height of each page in pixels.
	// Default: 2048.
	PageSize int

	// MaxPages is the maximum number of pages the atlas may grow to.
	// Default: 8.
	MaxPages int

	// Padding is the pixel gap between allocations. Default: 1.
	Padding int

	// CapacityHint sizes the initial cache map. Default: 256.
	CapacityHint int

	// MaxNegative caps the number of confirmed-empty entries kept in
	// the cache. Negative entries occupy no page space, so page eviction
	// never reclaims them; without a cap they accumulate across fonts,
	// sizes and subpixel bins. Default: 4096.
	MaxNegative int
}

// DefaultConfig returns the default atlas configuration.
func DefaultConfig() Config {
	return Config{
		PageSize:     DefaultPageSize,
		MaxPages:     DefaultMaxPages,
		Padding:      DefaultPadding,
		CapacityHint: 256,
		MaxNegative:  DefaultMaxNegative,
	}
}

// normalize clamps invalid values to defaults.
func (c Config) normalize() Config {
	if c.PageSize < MinPageSize {
		c.PageSize = DefaultPageSize
	}
	if c.MaxPages <= 0 {
		c.MaxPages = DefaultMaxPages
	}
	if c.Padding < 0 {
		c.Padding = DefaultPadding
	}
	if c.CapacityHint <= 0 {
		c.CapacityHint = 256
	}
	if c.MaxNegative <= 0 {
		c.MaxNegative = DefaultMaxNegative
	}
	return c
}

// Atlas is the glyph bitmap cache for one bitmap kind: an ordered,
// append-only sequence of pages, an LRU mapping GlyphKey to an optional
// StoredGlyph (negative entries record confirmed-empty glyphs), and a
// monotonic frame counter used to protect this frame's glyphs from
// eviction.
//
// Atlas requires exclusive access; one owner drives it per frame.
type Atlas struct {
	kind Kind
	cfg  Config

	pages []*Page
	lru   *lruCache

	// frame increments once per prepare pass. Entries whose
	// lastUsedFrame equals frame are protected from eviction.
	frame uint64

	// targetPage is the page the last successful allocation landed on.
	// Allocation attempts start here and proceed round-robin; see Resolve.
	targetPage int

	// droppedThisFrame counts resolutions that failed after exhausting
	// all pages. Reset by BeginFrame; only the first drop per frame is
	// logged.
	droppedThisFrame int

	stats Stats
}

// Stats holds cumulative atlas counters.
type Stats struct {
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Insertions uint64
	Dropped    uint64
}

// New creates an Atlas for the given bitmap kind with one initial page.
func New(kind Kind, cfg Config) *Atlas {
	cfg = cfg.normalize()
	a := &Atlas{
		kind: kind,
		cfg:  cfg,
		lru:  newLRUCache(cfg.CapacityHint),
	}
	a.pages = append(a.pages, newPage(0, cfg.PageSize, cfg.PageSize, cfg.Padding, kind))
	return a
}

// Kind returns the bitmap kind this atlas stores.
func (a *Atlas) Kind() Kind { return a.kind }

// PageCount returns the current number of pages.
func (a *Atlas) PageCount() int { return len(a.pages) }

// Page returns the page at index i.
func (a *Atlas) Page(i int) *Page { return a.pages[i] }

// PageSize returns the configured page dimension in pixels.
func (a *Atlas) PageSize() int { return a.cfg.PageSize }

// Frame returns the current frame counter value.
func (a *Atlas) Frame() uint64 { return a.frame }

// Len returns the number of cached entries, including negative ones.
func (a *Atlas) Len() int { return a.lru.len() }

// Stats returns the cumulative counters.
func (a *Atlas) Stats() Stats { return a.stats }

// DroppedThisFrame returns how many glyphs were omitted in the current
// frame because allocation was exhausted.
func (a *Atlas) DroppedThisFrame() int { return a.droppedThisFrame }

// BeginFrame advances the frame counter. Entries touched after this call
// are protected from eviction until the next BeginFrame. Call exactly once
// per prepare pass.
func (a *Atlas) BeginFrame() {
	a.frame++
	a.droppedThisFrame = 0
}

// Lookup checks the cache without rasterizing. On a hit the entry is
// promoted to most-recently-used and frame-stamped. negative is true when
// the key is cached as confirmed-empty. The returned StoredGlyph is a
// copy; cache state is never exposed by reference.
func (a *Atlas) Lookup(key GlyphKey) (glyph StoredGlyph, negative, found bool) {
	entry := a.lru.get(key, a.frame)
	if entry == nil {
		return StoredGlyph{}, false, false
	}
	a.stats.Hits++
	if entry.glyph == nil {
		return StoredGlyph{}, true, true
	}
	return *entry.glyph, false, true
}

// Resolve returns the cached location for key, rasterizing and inserting
// on miss. The ok result is false when the glyph produces no pixels
// (confirmed-empty, cached negatively) or when allocation is exhausted
// (the glyph is omitted this frame and a warning is logged once per
// frame).
//
// The allocation ladder on miss: try the target page (the page of the
// last successful allocation); on packer failure evict that page's
// oldest entries, skipping any entry used in the current frame, until the
// allocation fits or no eligible entry remains; then advance round-robin
// through the remaining pages, repeating; then append a new page while
// under MaxPages. Eviction never reclaims entries from pages other than
// the one being allocated on, and the round-robin order is fixed by
// targetPage, so the outcome is deterministic for a given cache state.
func (a *Atlas) Resolve(key GlyphKey, rasterize RasterizeFunc) (StoredGlyph, bool) {
	if glyph, negative, found := a.Lookup(key); found {
		if negative {
			return StoredGlyph{}, false
		}
		return glyph, true
	}

	a.stats.Misses++
	bmp, ok := rasterize()
	if !ok || bmp.IsEmpty() {
		a.InsertEmpty(key)
		return StoredGlyph{}, false
	}
	return a.Insert(key, bmp)
}

// InsertEmpty records key as a confirmed-empty glyph so later lookups
// skip rasterization. At the MaxNegative cap the oldest negative entry
// from an earlier frame is dropped first.
func (a *Atlas) InsertEmpty(key GlyphKey) {
	if a.lru.negatives >= a.cfg.MaxNegative {
		if a.lru.evictOldest(func(e *lruEntry) bool {
			return e.glyph == nil && e.lastUsedFrame < a.frame
		}) != nil {
			a.stats.Evictions++
		}
	}
	a.lru.insert(key, nil, a.frame)
	a.stats.Insertions++
}

// Insert places a rasterized bitmap into the atlas and caches its
// location under key. Returns ok=false when every page is exhausted; the
// glyph is then omitted from the current frame.
func (a *Atlas) Insert(key GlyphKey, bmp Bitmap) (StoredGlyph, bool) {
	if bmp.Kind != a.kind {
		logger().Warn("bitmap kind does not match atlas",
			"atlas", a.kind.String(), "bitmap", bmp.Kind.String())
		return StoredGlyph{}, false
	}
	if bmp.IsEmpty() {
		a.InsertEmpty(key)
		return StoredGlyph{}, false
	}

	pageIdx, x, y, ok := a.allocate(bmp.Width, bmp.Height)
	if !ok {
		a.droppedThisFrame++
		a.stats.Dropped++
		if a.droppedThisFrame == 1 {
			logger().Warn("glyph dropped, atlas exhausted",
				"kind", a.kind.String(),
				"font", key.FontID,
				"glyph", key.GlyphID,
				"size", key.Size(),
				"pages", len(a.pages),
				"maxPages", a.cfg.MaxPages)
		}
		return StoredGlyph{}, false
	}

	a.pages[pageIdx].copyBitmap(bmp, x, y)

	stored := StoredGlyph{
		Page:   pageIdx,
		X:      x,
		Y:      y,
		Width:  bmp.Width,
		Height: bmp.Height,
		Left:   bmp.Left,
		Top:    bmp.Top,
	}
	a.lru.insert(key, &stored, a.frame)
	a.stats.Insertions++
	return stored, true
}

// allocate runs the evict-then-grow ladder described on Resolve.
func (a *Atlas) allocate(w, h int) (pageIdx, x, y int, ok bool) {
	// Round-robin over existing pages, starting at the page of the last
	// successful allocation. Wrapping keeps earlier pages allocatable:
	// a page full of stale entries is reclaimed by eviction instead of
	// being retired once targetPage moves past it.
	for n := 0; n < len(a.pages); n++ {
		i := (a.targetPage + n) % len(a.pages)
		if x, y, ok := a.allocateOnPage(i, w, h); ok {
			a.targetPage = i
			return i, x, y, true
		}
	}

	if len(a.pages) < a.cfg.MaxPages {
		idx := len(a.pages)
		a.pages = append(a.pages, newPage(idx, a.cfg.PageSize, a.cfg.PageSize, a.cfg.Padding, a.kind))
		logger().Debug("atlas page added",
			"kind", a.kind.String(), "pages", len(a.pages))
		if x, y, ok := a.allocateOnPage(idx, w, h); ok {
			a.targetPage = idx
			return idx, x, y, true
		}
	}

	return 0, 0, 0, false
}

// allocateOnPage tries the page's packer, evicting the page's oldest
// unprotected entries one at a time until the allocation succeeds or no
// eligible entry remains.
func (a *Atlas) allocateOnPage(pageIdx, w, h int) (x, y int, ok bool) {
	page := a.pages[pageIdx]
	for {
		if x, y, ok := page.packer.Allocate(w, h); ok {
			return x, y, true
		}
		evicted := a.lru.evictOldest(func(e *lruEntry) bool {
			return e.glyph != nil &&
				e.glyph.Page == pageIdx &&
				e.lastUsedFrame < a.frame
		})
		if evicted == nil {
			return 0, 0, false
		}
		g := evicted.glyph
		page.packer.Free(g.X, g.Y, g.Width, g.Height)
		a.stats.Evictions++
	}
}

package atlas

// lruEntry is a cache entry in the intrusive recency list.
// glyph == nil marks a negative entry (confirmed-empty glyph).
type lruEntry struct {
	key   GlyphKey
	glyph *StoredGlyph

	prev *lruEntry
	next *lruEntry

	// lastUsedFrame is the frame counter value at the most recent access.
	// Entries stamped with the current frame are protected from eviction.
	lastUsedFrame uint64
}

// lruCache is a single-owner LRU mapping GlyphKey to an optional
// StoredGlyph. The Atlas mutates it exclusively per frame, so there is no
// locking; concurrency discipline is the caller's responsibility.
type lruCache struct {
	entries map[GlyphKey]*lruEntry

	// head is the most recently used entry, tail the least recently used.
	head *lruEntry
	tail *lruEntry

	// negatives counts entries with glyph == nil. They hold no page
	// space, so the Atlas caps them separately; see InsertEmpty.
	negatives int
}

func newLRUCache(capacityHint int) *lruCache {
	return &lruCache{
		entries: make(map[GlyphKey]*lruEntry, capacityHint),
	}
}

// get promotes the entry to most-recently-used, stamps it with frame, and
// returns it. Returns nil if the key is not cached.
func (c *lruCache) get(key GlyphKey, frame uint64) *lruEntry {
	entry, ok := c.entries[key]
	if !ok {
		return nil
	}
	entry.lastUsedFrame = frame
	c.moveToFront(entry)
	return entry
}

// insert adds a new entry as most-recently-used. glyph may be nil for a
// negative entry. An existing entry for the key is replaced.
func (c *lruCache) insert(key GlyphKey, glyph *StoredGlyph, frame uint64) *lruEntry {
	if existing, ok := c.entries[key]; ok {
		if existing.glyph == nil && glyph != nil {
			c.negatives--
		} else if existing.glyph != nil && glyph == nil {
			c.negatives++
		}
		existing.glyph = glyph
		existing.lastUsedFrame = frame
		c.moveToFront(existing)
		return existing
	}

	entry := &lruEntry{
		key:           key,
		glyph:         glyph,
		lastUsedFrame: frame,
	}
	if glyph == nil {
		c.negatives++
	}
	c.entries[key] = entry
	c.addToFront(entry)
	return entry
}

// evictOldest removes and returns the least recently used entry that
// satisfies eligible, scanning from the tail. Returns nil when no entry
// qualifies.
func (c *lruCache) evictOldest(eligible func(*lruEntry) bool) *lruEntry {
	for entry := c.tail; entry != nil; entry = entry.prev {
		if eligible(entry) {
			c.remove(entry)
			return entry
		}
	}
	return nil
}

func (c *lruCache) len() int {
	return len(c.entries)
}

func (c *lruCache) addToFront(entry *lruEntry) {
	entry.prev = nil
	entry.next = c.head

	if c.head != nil {
		c.head.prev = entry
	}
	c.head = entry

	if c.tail == nil {
		c.tail = entry
	}
}

func (c *lruCache) moveToFront(entry *lruEntry) {
	if entry == c.head {
		return
	}
	c.unlink(entry)
	c.addToFront(entry)
}

// remove unlinks the entry and deletes it from the map.
func (c *lruCache) remove(entry *lruEntry) {
	if entry.glyph == nil {
		c.negatives--
	}
	c.unlink(entry)
	delete(c.entries, entry.key)
}

func (c *lruCache) unlink(entry *lruEntry) {
	if entry.prev != nil {
		entry.prev.next = entry.next
	} else {
		c.head = entry.next
	}

	if entry.next != nil {
		entry.next.prev = entry.prev
	} else {
		c.tail = entry.prev
	}

	entry.prev = nil
	entry.next = nil
}

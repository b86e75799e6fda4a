// Package rotator implements the independently rotating screen zones: the
// playback-driven video zones, the RSS panel, the ticker and their layout.
//
// Zones are not safe for concurrent use. Every method and every timer
// callback runs on the screen's event loop.
package rotator

// Cursor is the index state of a rotating zone
type Cursor struct {
	index int
	count int
}

// NewCursor creates a cursor over count items, positioned at 0
func NewCursor(count int) Cursor {
	return Cursor{count: count}
}

// Index returns the current position
func (c *Cursor) Index() int {
	return c.index
}

// Len returns the number of items
func (c *Cursor) Len() int {
	return c.count
}

// Next advances cyclically and reports whether it wrapped back to 0
func (c *Cursor) Next() bool {
	if c.count == 0 {
		return false
	}
	c.index = (c.index + 1) % c.count
	return c.index == 0
}

// Reset repositions the cursor at 0 over count items
func (c *Cursor) Reset(count int) {
	c.count = count
	c.index = 0
}

// Seek moves to index i, or to 0 when i is out of range
func (c *Cursor) Seek(i int) {
	if i < 0 || i >= c.count {
		i = 0
	}
	c.index = i
}

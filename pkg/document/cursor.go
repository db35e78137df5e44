package document

// Position is a saved cursor location: an index path from the document root
// down to a field. Positions stay valid as long as the fields before them
// are not removed.
type Position []int

// Cursor walks a document depth-first. Unlike a walked pointer, the cursor
// is an explicit index path, so any number of cursors can read the same
// document independently.
type Cursor struct {
	doc     *Document
	path    []int
	started bool
	done    bool
}

// NewCursor returns a cursor positioned before the first field.
func (d *Document) NewCursor() *Cursor {
	return &Cursor{doc: d}
}

// field resolves the current path, or nil when it points past a sibling list.
func (c *Cursor) field() *Field {
	if len(c.path) == 0 {
		return nil
	}
	fields := c.doc.Fields
	var f *Field
	for _, i := range c.path {
		if i >= len(fields) {
			return nil
		}
		f = fields[i]
		fields = f.Children
	}
	return f
}

// Current returns the field under the cursor, or nil before the first call
// to Next and after exhaustion.
func (c *Cursor) Current() *Field {
	if !c.started || c.done {
		return nil
	}
	return c.field()
}

// Next advances depth-first and returns the next field, or nil when the
// tree is exhausted.
func (c *Cursor) Next() *Field {
	if c.done {
		return nil
	}
	if !c.started {
		c.started = true
		if len(c.doc.Fields) == 0 {
			c.done = true
			return nil
		}
		c.path = []int{0}
		return c.field()
	}
	if f := c.field(); f != nil && len(f.Children) > 0 {
		c.path = append(c.path, 0)
		return c.field()
	}
	for len(c.path) > 0 {
		c.path[len(c.path)-1]++
		if f := c.field(); f != nil {
			return f
		}
		c.path = c.path[:len(c.path)-1]
	}
	c.done = true
	return nil
}

// Seek advances until a field with the given tag comes under the cursor.
// Returns nil when no such field remains.
func (c *Cursor) Seek(tag string) *Field {
	for f := c.Next(); f != nil; f = c.Next() {
		if f.Tag == tag {
			return f
		}
	}
	return nil
}

// Save captures the current position.
func (c *Cursor) Save() Position {
	p := make(Position, len(c.path))
	copy(p, c.path)
	return p
}

// Restore rewinds the cursor to a previously saved position.
func (c *Cursor) Restore(p Position) {
	c.path = make([]int, len(p))
	copy(c.path, p)
	c.started = len(p) > 0
	c.done = false
}

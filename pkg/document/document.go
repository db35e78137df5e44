// Package document implements the generic hierarchical record exchanged
// with the synchronization engine: an ordered tree of tagged fields, each
// optionally carrying attributes, walked through explicit cursors.
package document

// RecordType distinguishes folder (group) documents from message documents.
type RecordType int

const (
	TypeGroup RecordType = iota
	TypeData
)

// Field is one node of the document tree. Repeated fields with the same tag
// are legal and keep their insertion order.
type Field struct {
	Tag      string
	Value    string
	Attrs    map[string]string
	Children []*Field
}

// Attr returns the named attribute or "".
func (f *Field) Attr(name string) string {
	if f.Attrs == nil {
		return ""
	}
	return f.Attrs[name]
}

// Child returns the first child with the given tag, or nil.
func (f *Field) Child(tag string) *Field {
	for _, c := range f.Children {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

// ChildValue returns the value of the first child with the given tag.
func (f *Field) ChildValue(tag string) string {
	if c := f.Child(tag); c != nil {
		return c.Value
	}
	return ""
}

// AddChild appends a child field and returns it.
func (f *Field) AddChild(tag, value string) *Field {
	c := &Field{Tag: tag, Value: value}
	f.Children = append(f.Children, c)
	return c
}

// Document is one internal record: either a folder (group) or a message.
// ExtID and ExtGroup carry the opaque external keys assigned by the
// identity layer.
type Document struct {
	ExtID    string
	ExtGroup string
	Type     RecordType
	Fields   []*Field
}

// New creates an empty document of the given type.
func New(typ RecordType) *Document {
	return &Document{Type: typ}
}

// Add appends a top-level field and returns it.
func (d *Document) Add(tag, value string) *Field {
	f := &Field{Tag: tag, Value: value}
	d.Fields = append(d.Fields, f)
	return f
}

// AddWith appends a top-level field carrying attributes.
func (d *Document) AddWith(tag, value string, attrs map[string]string) *Field {
	f := &Field{Tag: tag, Value: value, Attrs: attrs}
	d.Fields = append(d.Fields, f)
	return f
}

// First returns the first top-level field with the given tag, or nil.
func (d *Document) First(tag string) *Field {
	for _, f := range d.Fields {
		if f.Tag == tag {
			return f
		}
	}
	return nil
}

// Get returns the value of the first field with the given tag.
func (d *Document) Get(tag string) (string, bool) {
	if f := d.First(tag); f != nil {
		return f.Value, true
	}
	return "", false
}

// Values returns the values of every top-level field with the given tag,
// in insertion order.
func (d *Document) Values(tag string) []string {
	var out []string
	for _, f := range d.Fields {
		if f.Tag == tag {
			out = append(out, f.Value)
		}
	}
	return out
}

// Update replaces the value of the first field with the given tag, adding
// the field if it does not exist yet.
func (d *Document) Update(tag, value string) *Field {
	if f := d.First(tag); f != nil {
		f.Value = value
		return f
	}
	return d.Add(tag, value)
}

// Has reports whether at least one field with the given tag exists.
func (d *Document) Has(tag string) bool {
	return d.First(tag) != nil
}

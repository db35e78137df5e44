package ident

import "sort"

// Index is the in-memory record cache: eagerly populated with every folder,
// lazily filled with messages per folder. Not safe for concurrent use; the
// session serializes all access (one stateful connection per account).
type Index struct {
	folders  map[string]*FolderRecord
	order    []string // folder insertion order
	messages map[string]*MessageRecord
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	idx := &Index{}
	idx.Invalidate()
	return idx
}

// Invalidate drops everything, forcing a full rebuild on next access.
func (x *Index) Invalidate() {
	x.folders = make(map[string]*FolderRecord)
	x.order = nil
	x.messages = make(map[string]*MessageRecord)
}

// PutFolder inserts or replaces a folder record.
func (x *Index) PutFolder(f *FolderRecord) {
	if _, ok := x.folders[f.ID]; !ok {
		x.order = append(x.order, f.ID)
	}
	x.folders[f.ID] = f
}

// PutMessage inserts or replaces a message record.
func (x *Index) PutMessage(m *MessageRecord) {
	x.messages[m.ID] = m
}

// Folder resolves a folder key.
func (x *Index) Folder(id string) (*FolderRecord, bool) {
	f, ok := x.folders[id]
	return f, ok
}

// Message resolves a message key.
func (x *Index) Message(id string) (*MessageRecord, bool) {
	m, ok := x.messages[id]
	return m, ok
}

// Has reports whether any record with the given key exists.
func (x *Index) Has(id string) bool {
	if _, ok := x.folders[id]; ok {
		return true
	}
	_, ok := x.messages[id]
	return ok
}

// RemoveFolder drops a folder record. Child messages are not touched;
// deletion order (messages first) is the caller's contract.
func (x *Index) RemoveFolder(id string) {
	if _, ok := x.folders[id]; !ok {
		return
	}
	delete(x.folders, id)
	for i, o := range x.order {
		if o == id {
			x.order = append(x.order[:i], x.order[i+1:]...)
			break
		}
	}
}

// RemoveMessage drops a message record.
func (x *Index) RemoveMessage(id string) {
	delete(x.messages, id)
}

// Folders returns every folder record in insertion order.
func (x *Index) Folders() []*FolderRecord {
	out := make([]*FolderRecord, 0, len(x.order))
	for _, id := range x.order {
		out = append(out, x.folders[id])
	}
	return out
}

// Children returns the folders whose parent is the given folder key.
func (x *Index) Children(parentID string) []*FolderRecord {
	var out []*FolderRecord
	for _, f := range x.Folders() {
		if f.ParentID == parentID {
			out = append(out, f)
		}
	}
	return out
}

// MessagesIn returns the messages of one folder, ordered by UID.
func (x *Index) MessagesIn(folderID string) []*MessageRecord {
	var out []*MessageRecord
	for _, m := range x.messages {
		if m.FolderID == folderID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out
}

// FolderByAttr returns the first folder carrying the given attribute bits.
func (x *Index) FolderByAttr(a Attr) *FolderRecord {
	for _, id := range x.order {
		if x.folders[id].Attr&a != 0 {
			return x.folders[id]
		}
	}
	return nil
}

// Unloaded returns the folders whose messages have not been fetched yet.
func (x *Index) Unloaded() []*FolderRecord {
	var out []*FolderRecord
	for _, f := range x.Folders() {
		if !f.Loaded {
			out = append(out, f)
		}
	}
	return out
}

package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddGetUpdate(t *testing.T) {
	doc := New(TypeData)
	doc.Add(TagSummary, "hello")
	doc.Add(TagMailTo, "a@example.com")
	doc.Add(TagMailTo, "b@example.com")

	v, ok := doc.Get(TagSummary)
	require.True(t, ok)
	assert.Equal(t, "hello", v)

	assert.Equal(t, []string{"a@example.com", "b@example.com"}, doc.Values(TagMailTo))

	doc.Update(TagSummary, "changed")
	v, _ = doc.Get(TagSummary)
	assert.Equal(t, "changed", v)
	assert.Len(t, doc.Values(TagSummary), 1)

	doc.Update(TagMessageID, "<id@x>")
	assert.True(t, doc.Has(TagMessageID))
}

func TestFieldChildren(t *testing.T) {
	doc := New(TypeData)
	att := doc.Add(TagAttach, "")
	att.AddChild(TagAttachName, "report.pdf")
	att.AddChild(TagAttachSize, "1024")

	assert.Equal(t, "report.pdf", att.ChildValue(TagAttachName))
	assert.Equal(t, "", att.ChildValue(TagAttachRef))
	require.NotNil(t, att.Child(TagAttachSize))
}

func TestCursorDepthFirstOrder(t *testing.T) {
	doc := New(TypeData)
	doc.Add(TagSummary, "s")
	att := doc.Add(TagAttach, "")
	att.AddChild(TagAttachName, "a.txt")
	att.AddChild(TagAttachRef, "ref1")
	doc.Add(TagBody, "b")

	cur := doc.NewCursor()
	var tags []string
	for f := cur.Next(); f != nil; f = cur.Next() {
		tags = append(tags, f.Tag)
	}
	assert.Equal(t, []string{TagSummary, TagAttach, TagAttachName, TagAttachRef, TagBody}, tags)
	assert.Nil(t, cur.Next(), "exhausted cursor stays exhausted")
}

func TestCursorSeekRepeatedFields(t *testing.T) {
	doc := New(TypeData)
	doc.Add(TagMailTo, "a@example.com")
	doc.Add(TagSummary, "s")
	doc.Add(TagMailTo, "b@example.com")

	cur := doc.NewCursor()
	var got []string
	for f := cur.Seek(TagMailTo); f != nil; f = cur.Seek(TagMailTo) {
		got = append(got, f.Value)
	}
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, got)
}

func TestCursorSaveRestore(t *testing.T) {
	doc := New(TypeData)
	doc.Add(TagSummary, "s")
	doc.Add(TagBody, "b1")
	doc.Add(TagBody, "b2")

	cur := doc.NewCursor()
	require.NotNil(t, cur.Seek(TagBody))
	pos := cur.Save()
	assert.Equal(t, "b1", cur.Current().Value)

	require.NotNil(t, cur.Next())
	assert.Equal(t, "b2", cur.Current().Value)

	cur.Restore(pos)
	assert.Equal(t, "b1", cur.Current().Value)
	assert.Equal(t, "b2", cur.Next().Value)
}

func TestIndependentCursors(t *testing.T) {
	doc := New(TypeData)
	doc.Add(TagSummary, "s")
	doc.Add(TagBody, "b")

	a := doc.NewCursor()
	b := doc.NewCursor()
	require.NotNil(t, a.Next())
	require.NotNil(t, a.Next())
	assert.Equal(t, TagSummary, b.Next().Tag, "second cursor unaffected by the first")
}

func TestCursorRestoreZeroRewinds(t *testing.T) {
	doc := New(TypeData)
	doc.Add(TagSummary, "s")

	cur := doc.NewCursor()
	require.NotNil(t, cur.Next())
	require.Nil(t, cur.Next())

	cur.Restore(nil)
	require.NotNil(t, cur.Next(), "rewound cursor walks again")
}

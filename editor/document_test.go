package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocument_InsertAndText(t *testing.T) {
	doc := NewDocument("hello world")
	assert.Equal(t, 11, doc.Len())
	assert.Equal(t, "hello world", doc.Text())

	doc.InsertText(5, ",")
	assert.Equal(t, "hello, world", doc.Text())
}

func TestDocument_InsertImageOccupiesOnePosition(t *testing.T) {
	doc := NewDocument("ab")
	doc.InsertImage(1, "https://example.com/pic.jpg")

	assert.Equal(t, 3, doc.Len())
	assert.Equal(t, "a￼b", doc.Text())
	assert.Equal(t, []string{"https://example.com/pic.jpg"}, doc.Images())

	url, ok := doc.ImageAt(1)
	assert.True(t, ok)
	assert.Equal(t, "https://example.com/pic.jpg", url)

	_, ok = doc.ImageAt(0)
	assert.False(t, ok)
}

func TestDocument_DeleteTextClamps(t *testing.T) {
	doc := NewDocument("abcdef")
	doc.DeleteText(4, 100)
	assert.Equal(t, "abcd", doc.Text())

	doc.DeleteText(-5, 2)
	assert.Equal(t, "cd", doc.Text())
}

func TestDocument_InsertClamps(t *testing.T) {
	doc := NewDocument("ab")
	doc.InsertText(99, "!")
	assert.Equal(t, "ab!", doc.Text())

	doc.InsertText(-3, "?")
	assert.Equal(t, "?ab!", doc.Text())
}

func TestDocument_FindHandlesMultibyteText(t *testing.T) {
	doc := NewDocument("héllo ")
	doc.InsertText(doc.Len(), Placeholder)

	assert.Equal(t, 6, doc.Find(Placeholder))
	assert.Equal(t, -1, doc.Find("missing"))
}

func TestDocument_HTML(t *testing.T) {
	doc := NewDocument("a<b\n")
	doc.InsertImage(doc.Len(), "https://example.com/x.jpg?a=1&b=2")

	assert.Equal(t, `a&lt;b<br><img src="https://example.com/x.jpg?a=1&amp;b=2">`, doc.HTML())
}

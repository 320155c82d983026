package editor

import (
	"html"
	"strings"
)

// objectChar stands in for an embedded image when the document is viewed as
// plain text. Like the editor widget it models, an embed occupies exactly one
// index position.
const objectChar = '￼'

type atom struct {
	r     rune
	embed string // image URL; non-empty means this atom is an embed
}

// Document is the rich-text document model: a flat sequence of positions where
// each position holds either one character or one embedded image.
type Document struct {
	atoms []atom
}

func NewDocument(text string) *Document {
	d := &Document{}
	d.InsertText(0, text)
	return d
}

func (d *Document) Len() int {
	return len(d.atoms)
}

func (d *Document) clamp(index int) int {
	if index < 0 {
		return 0
	}
	if index > len(d.atoms) {
		return len(d.atoms)
	}
	return index
}

func (d *Document) insert(index int, ins []atom) {
	index = d.clamp(index)
	d.atoms = append(d.atoms[:index], append(ins, d.atoms[index:]...)...)
}

func (d *Document) InsertText(index int, text string) {
	if text == "" {
		return
	}
	ins := make([]atom, 0, len(text))
	for _, r := range text {
		ins = append(ins, atom{r: r})
	}
	d.insert(index, ins)
}

// InsertImage places an embedded image reference at index, occupying one
// position.
func (d *Document) InsertImage(index int, url string) {
	d.insert(index, []atom{{embed: url}})
}

// DeleteText removes length positions starting at index. Out-of-range spans
// are truncated rather than rejected.
func (d *Document) DeleteText(index, length int) {
	index = d.clamp(index)
	end := d.clamp(index + length)
	d.atoms = append(d.atoms[:index], d.atoms[end:]...)
}

// Text returns the document as plain text with embeds rendered as the object
// replacement character, so positions line up with document indexes.
func (d *Document) Text() string {
	var b strings.Builder
	for _, a := range d.atoms {
		if a.embed != "" {
			b.WriteRune(objectChar)
		} else {
			b.WriteRune(a.r)
		}
	}
	return b.String()
}

// Find returns the index of the first occurrence of text, or -1.
func (d *Document) Find(text string) int {
	idx := strings.Index(d.Text(), text)
	if idx < 0 {
		return -1
	}
	// strings.Index counts bytes; convert back to a position index.
	return len([]rune(d.Text()[:idx]))
}

// Images returns all embedded image URLs in document order.
func (d *Document) Images() []string {
	var urls []string
	for _, a := range d.atoms {
		if a.embed != "" {
			urls = append(urls, a.embed)
		}
	}
	return urls
}

// ImageAt reports the embed URL at index, if that position is an embed.
func (d *Document) ImageAt(index int) (string, bool) {
	if index < 0 || index >= len(d.atoms) || d.atoms[index].embed == "" {
		return "", false
	}
	return d.atoms[index].embed, true
}

// HTML renders the document for the edit form: escaped text, <img> tags for
// embeds, <br> for newlines.
func (d *Document) HTML() string {
	var b strings.Builder
	for _, a := range d.atoms {
		switch {
		case a.embed != "":
			b.WriteString(`<img src="` + html.EscapeString(a.embed) + `">`)
		case a.r == '\n':
			b.WriteString("<br>")
		default:
			b.WriteString(html.EscapeString(string(a.r)))
		}
	}
	return b.String()
}

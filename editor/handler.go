package editor

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Placeholder is the transient marker inserted at the cursor while an upload
// is in flight. It is always removed before the operation settles.
const Placeholder = "[📷 Uploading image...]"

var (
	ErrNotAnImage = errors.New("please select a valid image file")
	ErrNoPending  = errors.New("no pending image edit")
	ErrDestroyed  = errors.New("image handler has been destroyed")
)

// Uploader is the slice of the backend client the handler needs.
type Uploader interface {
	UploadImage(ctx context.Context, filename string, data []byte) (string, error)
}

// EditRequest is one pending image edit: the selected file plus a preview for
// the edit dialog. It is consumed exactly once (confirm) or discarded (cancel).
type EditRequest struct {
	Filename string
	MIME     string
	Data     []byte
	Preview  string // data URL for the crop dialog
}

// ImageHandler replaces the editor's default insert-image action. It records
// the cursor, funnels the chosen file through the edit pipeline, and splices
// the uploaded result back into the document.
//
// At most one edit request is pending at a time; selecting another file
// replaces the previous pending request.
type ImageHandler struct {
	mu        sync.Mutex
	doc       *Document
	uploads   Uploader
	imageBase string

	pending   *EditRequest
	cursor    int
	hasCursor bool
	destroyed bool
}

// NewImageHandler binds the handler to a document. imageBase is the base URL
// under which uploaded filenames are served.
func NewImageHandler(doc *Document, uploads Uploader, imageBase string) *ImageHandler {
	return &ImageHandler{
		doc:       doc,
		uploads:   uploads,
		imageBase: strings.TrimRight(imageBase, "/"),
	}
}

// HandleImageAction records the selection position the insertion will target,
// standing in for the editor's toolbar image button.
func (h *ImageHandler) HandleImageAction(cursor int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return ErrDestroyed
	}
	h.cursor = cursor
	h.hasCursor = true
	return nil
}

// SelectFile validates the chosen file and stages it as the pending edit
// request, producing a local preview.
func (h *ImageHandler) SelectFile(filename, mime string, data []byte) (*EditRequest, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return nil, ErrDestroyed
	}
	if !strings.HasPrefix(mime, "image/") {
		return nil, ErrNotAnImage
	}

	req := &EditRequest{
		Filename: filename,
		MIME:     mime,
		Data:     data,
		Preview:  "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data),
	}
	h.pending = req
	return req, nil
}

// Pending returns the staged edit request, if any.
func (h *ImageHandler) Pending() *EditRequest {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pending
}

// CancelEdit discards the pending request without any upload or document
// change.
func (h *ImageHandler) CancelEdit() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending = nil
	h.hasCursor = false
}

// ConfirmEdit consumes the pending request: it inserts the placeholder at the
// recorded cursor, uploads the rasterized blob, and on success replaces the
// placeholder with the embedded image followed by a line break. On failure the
// placeholder is removed and the error returned; the document never keeps an
// unresolved placeholder either way.
func (h *ImageHandler) ConfirmEdit(ctx context.Context, blob []byte) (string, error) {
	h.mu.Lock()
	if h.destroyed {
		h.mu.Unlock()
		return "", ErrDestroyed
	}
	if h.pending == nil {
		h.mu.Unlock()
		return "", ErrNoPending
	}
	h.pending = nil

	index := h.doc.Len()
	if h.hasCursor {
		index = h.cursor
	}
	h.hasCursor = false

	placeholderLen := len([]rune(Placeholder))
	h.doc.InsertText(index, Placeholder)
	h.mu.Unlock()

	filename := fmt.Sprintf("content-image-%s.jpg", uuid.New().String())
	served, err := h.uploads.UploadImage(ctx, filename, blob)

	h.mu.Lock()
	defer h.mu.Unlock()

	if err != nil {
		h.removePlaceholder(index, placeholderLen)
		return "", err
	}

	at, found := h.removePlaceholder(index, placeholderLen)
	if !found {
		at = h.doc.Len()
	}
	url := h.imageBase + "/" + served
	h.doc.InsertImage(at, url)
	h.doc.InsertText(at+1, "\n")
	return url, nil
}

// removePlaceholder cleans the placeholder out of the document and reports
// where it actually was, so the result can be spliced in at the same spot even
// if the document shifted while the upload ran. Cleanup problems are logged,
// never propagated.
func (h *ImageHandler) removePlaceholder(index, length int) (int, bool) {
	text := []rune(h.doc.Text())
	if index+length <= len(text) && string(text[index:index+length]) == Placeholder {
		h.doc.DeleteText(index, length)
		return index, true
	}
	// The document shifted under us; fall back to searching.
	if at := h.doc.Find(Placeholder); at >= 0 {
		h.doc.DeleteText(at, length)
		return at, true
	}
	log.Printf("editor: placeholder not found during cleanup")
	return 0, false
}

// Destroy releases the handler. Safe to call multiple times.
func (h *ImageHandler) Destroy() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending = nil
	h.hasCursor = false
	h.destroyed = true
}

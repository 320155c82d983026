package admin

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"portfolio/backend"
	"portfolio/editor"
	"portfolio/imageedit"
)

// Editor session endpoints. The admin editor keeps its document server-side;
// these drive the image-insert interception: select stages a file at the
// recorded cursor, confirm runs the crop pipeline and splices the uploaded
// image into the document.

func (a *AdminModule) openEditor(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	s := a.editors.Open(req.Content)
	c.JSON(http.StatusOK, gin.H{"id": s.ID, "length": s.Doc.Len()})
}

func (a *AdminModule) editorContent(c *gin.Context) {
	s, err := a.editors.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Editor session not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"content": s.Doc.HTML(),
		"text":    s.Doc.Text(),
		"images":  s.Doc.Images(),
	})
}

func (a *AdminModule) editorSelect(c *gin.Context) {
	s, err := a.editors.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Editor session not found"})
		return
	}

	cursor, err := strconv.Atoi(c.PostForm("cursor"))
	if err != nil {
		cursor = s.Doc.Len()
	}
	if err := s.Handler.HandleImageAction(cursor); err != nil {
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image file provided"})
		return
	}
	defer file.Close()

	if header.Size > maxImageSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image size should be less than 5MB."})
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read image"})
		return
	}

	req, err := s.Handler.SelectFile(header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		if errors.Is(err, editor.ErrNotAnImage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Please select a valid image file."})
			return
		}
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"preview": req.Preview})
}

type editorConfirmRequest struct {
	Crop          *imageedit.Crop `json:"crop"`
	DisplayWidth  float64         `json:"display_width"`
	DisplayHeight float64         `json:"display_height"`
	Scale         float64         `json:"scale"`
	Rotate        int             `json:"rotate"`
	PixelRatio    float64         `json:"pixel_ratio"`
}

func (a *AdminModule) editorConfirm(c *gin.Context) {
	s, err := a.editors.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Editor session not found"})
		return
	}

	pending := s.Handler.Pending()
	if pending == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "No pending image edit"})
		return
	}

	var req editorConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	img, err := imageedit.Decode(pending.Data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to process image. Please try again."})
		return
	}

	blob, err := imageedit.Apply(img, imageedit.Request{
		Crop:          req.Crop,
		Fallback:      imageedit.DefaultCrop(),
		DisplayWidth:  req.DisplayWidth,
		DisplayHeight: req.DisplayHeight,
		Scale:         req.Scale,
		Rotate:        req.Rotate,
		PixelRatio:    req.PixelRatio,
	})
	if err != nil {
		// Rasterization failed: the pending request stays staged so the user
		// can adjust the crop and retry, and no upload happens.
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to process image. Please try again."})
		return
	}

	url, err := s.Handler.ConfirmEdit(c.Request.Context(), blob)
	if err != nil {
		status := http.StatusBadGateway
		msg := "Failed to upload image. Please check your connection and try again."
		if errors.Is(err, backend.ErrUnauthorized) {
			status = http.StatusUnauthorized
			msg = "Failed to upload image. Please make sure you are logged in."
		}
		c.JSON(status, gin.H{"error": msg, "content": s.Doc.HTML()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":     url,
		"content": s.Doc.HTML(),
	})
}

func (a *AdminModule) editorCancel(c *gin.Context) {
	s, err := a.editors.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Editor session not found"})
		return
	}
	s.Handler.CancelEdit()
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

func (a *AdminModule) closeEditor(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	a.editors.Close(id)
	c.Status(http.StatusNoContent)
}

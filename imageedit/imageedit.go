// Package imageedit turns a user's crop/scale/rotate selection into an encoded
// JPEG. Crop rectangles arrive in displayed coordinates; the pipeline resolves
// them to source pixels using the displayed/natural size ratio before
// rasterizing.
package imageedit

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"

	"github.com/nfnt/resize"
)

type Unit string

const (
	UnitPixel   Unit = "px"
	UnitPercent Unit = "%"
)

const (
	MinScale = 0.5
	MaxScale = 3.0

	// JPEG quality for the exported image.
	Quality = 90
)

var (
	ErrNoImage  = errors.New("missing image")
	ErrZeroArea = errors.New("crop rectangle has zero area")
)

// Crop is a rectangle over the displayed image, in pixels or percent of the
// displayed size.
type Crop struct {
	Unit   Unit    `json:"unit"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DefaultCrop is the initial selection: a centered region covering 90% of the
// image.
func DefaultCrop() Crop {
	return Crop{Unit: UnitPercent, X: 5, Y: 5, Width: 90, Height: 90}
}

// Request describes one rasterization. Crop is the finalized selection; when
// the user never finalized one, it is nil and Fallback (the last-known
// rectangle) is used instead.
type Request struct {
	Crop          *Crop
	Fallback      Crop
	DisplayWidth  float64 // displayed size when the crop was drawn; 0 means natural size
	DisplayHeight float64
	Scale         float64 // user scale factor, clamped to [MinScale, MaxScale]; 0 means 1
	Rotate        int     // degrees, must be a multiple of 90
	PixelRatio    float64 // device pixel ratio; 0 means 1
}

// Apply crops the source image per the request, applies rotation and scale,
// and encodes the result as JPEG. It never returns an empty payload without an
// error.
func Apply(src image.Image, req Request) ([]byte, error) {
	if src == nil {
		return nil, ErrNoImage
	}

	crop := req.Fallback
	if req.Crop != nil {
		crop = *req.Crop
	}

	bounds := src.Bounds()
	naturalW := float64(bounds.Dx())
	naturalH := float64(bounds.Dy())

	displayW := req.DisplayWidth
	displayH := req.DisplayHeight
	if displayW <= 0 {
		displayW = naturalW
	}
	if displayH <= 0 {
		displayH = naturalH
	}

	x, y, w, h := crop.X, crop.Y, crop.Width, crop.Height
	if crop.Unit == UnitPercent {
		x = x / 100 * displayW
		y = y / 100 * displayH
		w = w / 100 * displayW
		h = h / 100 * displayH
	}

	// Resolve displayed coordinates to source pixels.
	scaleX := naturalW / displayW
	scaleY := naturalH / displayH
	sx := int(math.Round(x * scaleX))
	sy := int(math.Round(y * scaleY))
	sw := int(math.Round(w * scaleX))
	sh := int(math.Round(h * scaleY))

	if sx < 0 {
		sx = 0
	}
	if sy < 0 {
		sy = 0
	}
	if sx+sw > bounds.Dx() {
		sw = bounds.Dx() - sx
	}
	if sy+sh > bounds.Dy() {
		sh = bounds.Dy() - sy
	}
	if sw <= 0 || sh <= 0 {
		return nil, ErrZeroArea
	}

	region := image.NewRGBA(image.Rect(0, 0, sw, sh))
	draw.Draw(region, region.Bounds(), src, bounds.Min.Add(image.Pt(sx, sy)), draw.Src)

	rotated, err := rotateQuarter(region, req.Rotate)
	if err != nil {
		return nil, err
	}

	scale := req.Scale
	if scale == 0 {
		scale = 1
	}
	if scale < MinScale {
		scale = MinScale
	}
	if scale > MaxScale {
		scale = MaxScale
	}
	pixelRatio := req.PixelRatio
	if pixelRatio <= 0 {
		pixelRatio = 1
	}

	outW := uint(math.Round(float64(rotated.Bounds().Dx()) * scale * pixelRatio))
	outH := uint(math.Round(float64(rotated.Bounds().Dy()) * scale * pixelRatio))
	if outW == 0 || outH == 0 {
		return nil, ErrZeroArea
	}

	var out image.Image = rotated
	if int(outW) != rotated.Bounds().Dx() || int(outH) != rotated.Bounds().Dy() {
		out = resize.Resize(outW, outH, rotated, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: Quality}); err != nil {
		return nil, err
	}
	if buf.Len() == 0 {
		return nil, errors.New("encoded image is empty")
	}
	return buf.Bytes(), nil
}

// rotateQuarter rotates clockwise in 90° increments.
func rotateQuarter(src *image.RGBA, degrees int) (*image.RGBA, error) {
	turns := ((degrees % 360) + 360) % 360
	if turns%90 != 0 {
		return nil, fmt.Errorf("rotation must be a multiple of 90, got %d", degrees)
	}
	img := src
	for i := 0; i < turns/90; i++ {
		img = rotate90(img)
	}
	return img, nil
}

func rotate90(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Set(h-1-y, x, src.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

// Decode reads any supported image format (JPEG, PNG, GIF).
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

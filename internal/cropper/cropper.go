// Package cropper produces the final fixed-size capture artifact from a
// frame and a guide position.
package cropper

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/dudu/eyescreen/internal/camera"
)

// ErrBadFrame reports that the frame cannot produce a valid crop. The
// session stays open; the caller may retry on a later frame.
var ErrBadFrame = errors.New("cropper: frame unusable")

// Cropper cuts a fixed square around the guide position and encodes it.
type Cropper struct {
	size    int
	quality int
}

// New creates a Cropper emitting size x size JPEGs at the given quality.
func New(size, quality int) *Cropper {
	return &Cropper{size: size, quality: quality}
}

// Crop extracts the square centered on the guide position, clamped so the
// rectangle stays inside frame bounds (the origin shifts, the crop never
// scales or pads), and returns the encoded JPEG and the source rectangle.
func (c *Cropper) Crop(frame *camera.Frame, center image.Point) ([]byte, image.Rectangle, error) {
	if frame == nil || frame.Width < c.size || frame.Height < c.size {
		return nil, image.Rectangle{}, fmt.Errorf("%w: need at least %dx%d", ErrBadFrame, c.size, c.size)
	}

	rect := c.Bounds(frame.Width, frame.Height, center)

	out := image.NewRGBA(image.Rect(0, 0, c.size, c.size))
	for y := 0; y < c.size; y++ {
		srcOff := (rect.Min.Y+y)*frame.Pixels.Stride + rect.Min.X*4
		dstOff := y * out.Stride
		copy(out.Pix[dstOff:dstOff+c.size*4], frame.Pixels.Pix[srcOff:srcOff+c.size*4])
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: c.quality}); err != nil {
		return nil, image.Rectangle{}, fmt.Errorf("%w: encode: %v", ErrBadFrame, err)
	}

	return buf.Bytes(), rect, nil
}

// Bounds returns the clamped crop rectangle for a frame of the given
// dimensions centered as close to the requested point as bounds allow.
func (c *Cropper) Bounds(frameWidth, frameHeight int, center image.Point) image.Rectangle {
	x := center.X - c.size/2
	y := center.Y - c.size/2

	x = clampInt(x, 0, frameWidth-c.size)
	y = clampInt(y, 0, frameHeight-c.size)

	return image.Rect(x, y, x+c.size, y+c.size)
}

// Size returns the crop side length.
func (c *Cropper) Size() int { return c.size }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

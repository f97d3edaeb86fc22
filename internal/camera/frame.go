package camera

import (
	"image"
	"time"
)

// Frame is an immutable snapshot of the live stream at one point in time.
// It is consumed synchronously within a single tick and never retained.
type Frame struct {
	Pixels    *image.RGBA
	Width     int
	Height    int
	Timestamp time.Time
}

// Center returns the frame's center point in pixel coordinates.
func (f *Frame) Center() image.Point {
	return image.Pt(f.Width/2, f.Height/2)
}

// NewFrame wraps an RGBA buffer as a Frame stamped with the current time.
func NewFrame(pix *image.RGBA) *Frame {
	b := pix.Bounds()
	return &Frame{
		Pixels:    pix,
		Width:     b.Dx(),
		Height:    b.Dy(),
		Timestamp: time.Now(),
	}
}

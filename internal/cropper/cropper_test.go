package cropper

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/dudu/eyescreen/internal/camera"
)

func testFrame(w, h int) *camera.Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}
	return camera.NewFrame(img)
}

func TestBoundsCentered(t *testing.T) {
	c := New(160, 90)
	rect := c.Bounds(640, 480, image.Pt(320, 240))
	want := image.Rect(240, 160, 400, 320)
	if rect != want {
		t.Errorf("Expected %v, got %v", want, rect)
	}
}

func TestBoundsClamping(t *testing.T) {
	c := New(160, 90)

	tests := []struct {
		name   string
		center image.Point
		want   image.Rectangle
	}{
		{"top left corner", image.Pt(0, 0), image.Rect(0, 0, 160, 160)},
		{"bottom right corner", image.Pt(640, 480), image.Rect(480, 320, 640, 480)},
		{"left edge", image.Pt(10, 240), image.Rect(0, 160, 160, 320)},
		{"off frame", image.Pt(-50, 1000), image.Rect(0, 320, 160, 480)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rect := c.Bounds(640, 480, tt.center)
			if rect != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, rect)
			}
			if !rect.In(image.Rect(0, 0, 640, 480)) {
				t.Errorf("Crop rectangle %v leaves the frame", rect)
			}
		})
	}
}

func TestCropProducesDecodableJPEG(t *testing.T) {
	c := New(160, 90)
	frame := testFrame(640, 480)

	data, rect, err := c.Crop(frame, frame.Center())
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	if rect.Dx() != 160 || rect.Dy() != 160 {
		t.Errorf("Expected a 160x160 source rectangle, got %v", rect)
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Emitted bytes are not a JPEG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 160 || b.Dy() != 160 {
		t.Errorf("Expected a 160x160 image, got %v", b)
	}
}

func TestCropRejectsSmallFrames(t *testing.T) {
	c := New(160, 90)

	if _, _, err := c.Crop(testFrame(100, 100), image.Pt(50, 50)); !errors.Is(err, ErrBadFrame) {
		t.Errorf("Expected ErrBadFrame for an undersized frame, got %v", err)
	}
	if _, _, err := c.Crop(nil, image.Pt(0, 0)); !errors.Is(err, ErrBadFrame) {
		t.Errorf("Expected ErrBadFrame for a nil frame, got %v", err)
	}
}

func TestCropExactFit(t *testing.T) {
	c := New(160, 90)
	frame := testFrame(160, 160)

	_, rect, err := c.Crop(frame, image.Pt(80, 80))
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	if rect != image.Rect(0, 0, 160, 160) {
		t.Errorf("Expected the whole frame, got %v", rect)
	}
}

package analyzer

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/dudu/eyescreen/internal/camera"
)

func uniformFrame(w, h int, c color.RGBA) *camera.Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return camera.NewFrame(img)
}

// checkerboardFrame alternates black and white pixels, the sharpest
// possible image for the Laplacian.
func checkerboardFrame(w, h int) *camera.Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(0)
			if (x+y)%2 == 0 {
				v = 255
			}
			img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return camera.NewFrame(img)
}

func TestAnalyzeBrightness(t *testing.T) {
	a := New(DefaultThresholds())

	tests := []struct {
		name       string
		frame      *camera.Frame
		brightness float64
		good       bool
	}{
		{"black frame is underexposed", uniformFrame(32, 32, color.RGBA{0, 0, 0, 255}), 0, false},
		{"white frame is overexposed", uniformFrame(32, 32, color.RGBA{255, 255, 255, 255}), 255, false},
		{"mid gray is well lit", uniformFrame(32, 32, color.RGBA{128, 128, 128, 255}), 128, true},
		{"boundary 80 is excluded", uniformFrame(32, 32, color.RGBA{80, 80, 80, 255}), 80, false},
		{"boundary 180 is excluded", uniformFrame(32, 32, color.RGBA{180, 180, 180, 255}), 180, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scores := a.Analyze(tt.frame)
			if math.Abs(scores.Brightness-tt.brightness) > 0.01 {
				t.Errorf("Expected brightness ~%.0f, got %f", tt.brightness, scores.Brightness)
			}
			if scores.GoodLighting != tt.good {
				t.Errorf("Expected GoodLighting=%v at brightness %f", tt.good, scores.Brightness)
			}
		})
	}
}

func TestAnalyzeSharpness(t *testing.T) {
	a := New(DefaultThresholds())

	flat := a.Analyze(uniformFrame(32, 32, color.RGBA{128, 128, 128, 255}))
	if flat.Sharpness != 0 {
		t.Errorf("Expected zero Laplacian variance for a flat frame, got %f", flat.Sharpness)
	}
	if flat.InFocus {
		t.Error("Expected flat frame to be out of focus")
	}

	sharp := a.Analyze(checkerboardFrame(32, 32))
	if sharp.Sharpness <= flat.Sharpness {
		t.Errorf("Expected checkerboard sharper than flat frame, got %f", sharp.Sharpness)
	}
	if !sharp.InFocus {
		t.Errorf("Expected checkerboard to be in focus, variance %f", sharp.Sharpness)
	}
}

func TestAnalyzeWhiteBalance(t *testing.T) {
	a := New(DefaultThresholds())

	neutral := a.Analyze(uniformFrame(32, 32, color.RGBA{100, 110, 95, 255}))
	if !neutral.WhiteBalanceOK {
		t.Errorf("Expected near-neutral frame to pass, spread %f", neutral.ChannelSpread)
	}
	if math.Abs(neutral.ChannelSpread-15) > 0.01 {
		t.Errorf("Expected spread 15, got %f", neutral.ChannelSpread)
	}

	cast := a.Analyze(uniformFrame(32, 32, color.RGBA{200, 120, 110, 255}))
	if cast.WhiteBalanceOK {
		t.Errorf("Expected strong red cast to fail, spread %f", cast.ChannelSpread)
	}
}

func TestAnalyzeTinyFrame(t *testing.T) {
	a := New(DefaultThresholds())

	// Too small for the Laplacian interior; must not panic.
	scores := a.Analyze(uniformFrame(2, 2, color.RGBA{128, 128, 128, 255}))
	if scores.Sharpness != 0 {
		t.Errorf("Expected zero sharpness for a 2x2 frame, got %f", scores.Sharpness)
	}
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	a := New(DefaultThresholds())
	frame := checkerboardFrame(16, 16)

	first := a.Analyze(frame)
	second := a.Analyze(frame)
	if first != second {
		t.Errorf("Expected identical scores on re-analysis: %+v vs %+v", first, second)
	}
}

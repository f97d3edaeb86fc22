package geometry

import (
	"math"
	"testing"

	"github.com/dudu/eyescreen/internal/detector"
)

// faceLandmarks builds a full mesh profile with both eye rings placed so
// that the outer corners are gap apart and EAR equals ratio exactly: the
// vertical chords measure ratio times the ring width.
func faceLandmarks(gap, ratio float64) *detector.LandmarkSet {
	points := make([]detector.Point, detector.MeshPointCount)
	for i := range points {
		points[i] = detector.Point{X: 0.5, Y: 0.5}
	}

	const eyeWidth = 0.06
	leftOuterX := 0.5 - gap/2
	rightOuterX := 0.5 + gap/2

	setRing(points, detector.LeftEyeRing, leftOuterX, leftOuterX+eyeWidth, ratio*eyeWidth)
	setRing(points, detector.RightEyeRing, rightOuterX-eyeWidth, rightOuterX, ratio*eyeWidth)

	// Eyelid pair landmarks for the reduced-profile fallback.
	points[detector.LeftEyeBottom] = detector.Point{X: leftOuterX + eyeWidth/2, Y: 0.5 + ratio*eyeWidth/2}
	points[detector.RightEyeBottom] = detector.Point{X: rightOuterX - eyeWidth/2, Y: 0.5 + ratio*eyeWidth/2}

	points[detector.LeftIrisCenter] = detector.Point{X: leftOuterX + eyeWidth/2, Y: 0.5}

	return &detector.LandmarkSet{Points: points, Score: 0.9}
}

// setRing writes six contour points p1..p6 with p1/p4 on the horizontal
// axis and two vertical chords of the given height.
func setRing(points []detector.Point, ring [6]int, x1, x4, height float64) {
	const y = 0.5
	xa := x1 + (x4-x1)/3
	xb := x1 + 2*(x4-x1)/3

	points[ring[0]] = detector.Point{X: x1, Y: y}
	points[ring[1]] = detector.Point{X: xa, Y: y - height/2}
	points[ring[2]] = detector.Point{X: xb, Y: y - height/2}
	points[ring[3]] = detector.Point{X: x4, Y: y}
	points[ring[4]] = detector.Point{X: xb, Y: y + height/2}
	points[ring[5]] = detector.Point{X: xa, Y: y + height/2}
}

func TestEvaluateFailsClosedWithoutFace(t *testing.T) {
	e := New(DefaultThresholds())

	for _, lm := range []*detector.LandmarkSet{nil, {Points: nil}} {
		eval := e.Evaluate(lm, 640, 480)
		if eval.FaceFound || eval.ProperDistance || eval.EyelidOpen {
			t.Errorf("Expected all verdicts false without landmarks, got %+v", eval)
		}
	}
}

func TestEAR(t *testing.T) {
	lm := faceLandmarks(0.3, 1.0)

	var ring [6]detector.Point
	for i, idx := range detector.LeftEyeRing {
		p, ok := lm.Point(idx)
		if !ok {
			t.Fatalf("missing ring point %d", idx)
		}
		ring[i] = p
	}

	// Chord height equals ring width, so the ratio is exactly 1.
	if got := EAR(ring); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("Expected EAR 1.0, got %f", got)
	}

	// Degenerate ring collapses to zero instead of dividing by zero.
	var collapsed [6]detector.Point
	if got := EAR(collapsed); got != 0 {
		t.Errorf("Expected EAR 0 for a collapsed ring, got %f", got)
	}
}

func TestEvaluateDistance(t *testing.T) {
	e := New(DefaultThresholds())

	tests := []struct {
		name     string
		gap      float64
		proper   bool
		tooClose bool
	}{
		{"far away", 0.10, false, false},
		{"lower bound excluded", 0.15, false, false},
		{"proper near lower bound", 0.16, true, false},
		{"proper near upper bound", 0.39, true, false},
		{"upper bound excluded", 0.40, false, true},
		{"too close", 0.50, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := e.Evaluate(faceLandmarks(tt.gap, 0.5), 640, 480)
			if !eval.FaceFound {
				t.Fatal("Expected a face")
			}
			if math.Abs(eval.FaceWidth-tt.gap) > 1e-9 {
				t.Errorf("Expected face width %f, got %f", tt.gap, eval.FaceWidth)
			}
			if eval.ProperDistance != tt.proper {
				t.Errorf("Expected ProperDistance=%v at gap %f", tt.proper, tt.gap)
			}
			if eval.TooClose != tt.tooClose {
				t.Errorf("Expected TooClose=%v at gap %f", tt.tooClose, tt.gap)
			}
		})
	}
}

func TestEvaluateEyelidOpenness(t *testing.T) {
	e := New(DefaultThresholds())

	open := e.Evaluate(faceLandmarks(0.3, 0.5), 640, 480)
	if !open.EyelidOpen {
		t.Errorf("Expected open eyes at EAR %f", open.EAR)
	}
	if math.Abs(open.EAR-0.5) > 1e-9 {
		t.Errorf("Expected EAR 0.5, got %f", open.EAR)
	}

	closed := e.Evaluate(faceLandmarks(0.3, 0.1), 640, 480)
	if closed.EyelidOpen {
		t.Errorf("Expected closed eyes at EAR %f", closed.EAR)
	}

	shut := e.Evaluate(faceLandmarks(0.3, 0), 640, 480)
	if shut.EyelidOpen || shut.EAR != 0 {
		t.Errorf("Expected fully shut eyes, got %+v", shut)
	}
}

func TestEvaluateEyelidGapFallback(t *testing.T) {
	e := New(DefaultThresholds())

	// Truncate the profile below the highest ring index so the EAR rings
	// are incomplete and the eyelid-gap pairs take over.
	full := faceLandmarks(0.3, 0.5)
	reduced := &detector.LandmarkSet{Points: full.Points[:detector.RightEyeTop+1], Score: full.Score}

	eval := e.Evaluate(reduced, 640, 480)
	if !eval.FaceFound {
		t.Fatal("Expected a face from the reduced profile")
	}
	if !eval.EyelidOpen {
		t.Error("Expected the gap fallback to report open eyes")
	}
	if eval.EAR != 0 {
		t.Errorf("Expected no EAR from the fallback path, got %f", eval.EAR)
	}

	closed := e.Evaluate(&detector.LandmarkSet{
		Points: faceLandmarks(0.3, 0.05).Points[:detector.RightEyeTop+1],
	}, 640, 480)
	if closed.EyelidOpen {
		t.Error("Expected the gap fallback to report closed eyes")
	}
}

func TestEvaluateEyeCenterPixels(t *testing.T) {
	e := New(DefaultThresholds())

	lm := faceLandmarks(0.3, 0.5)
	lm.Points[detector.LeftIrisCenter] = detector.Point{X: 0.25, Y: 0.5}

	eval := e.Evaluate(lm, 640, 480)
	if eval.EyeCenter.X != 160 || eval.EyeCenter.Y != 240 {
		t.Errorf("Expected eye center (160,240), got %v", eval.EyeCenter)
	}
}

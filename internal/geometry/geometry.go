// Package geometry derives face distance, eye openness and tracking
// coordinates from a landmark set.
package geometry

import (
	"image"
	"math"

	"github.com/dudu/eyescreen/internal/detector"
)

// Evaluation is the geometric half of the quality checklist plus the raw
// measurements behind it. When FaceFound is false the booleans are false
// (fail-closed) and the raw measurements are undefined.
type Evaluation struct {
	FaceFound      bool
	ProperDistance bool
	EyelidOpen     bool

	// TooClose disambiguates a failed distance check for voice feedback.
	// Only meaningful when FaceFound && !ProperDistance.
	TooClose bool

	FaceWidth float64     // normalized outer-corner distance
	EAR       float64     // averaged left/right eye aspect ratio
	EyeCenter image.Point // tracking point in frame pixels
}

// Thresholds bound the geometric verdicts.
type Thresholds struct {
	MinFaceWidth float64
	MaxFaceWidth float64
	MinEAR       float64
	// MinEyelidGap is the vertical-gap fallback used when the landmark
	// profile is too small for the full EAR rings.
	MinEyelidGap float64
}

// DefaultThresholds match the capture tuning: face width 0.15..0.4
// (exclusive), EAR above 0.25, fallback gap above 0.008.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinFaceWidth: 0.15,
		MaxFaceWidth: 0.4,
		MinEAR:       0.25,
		MinEyelidGap: 0.008,
	}
}

// Evaluator computes geometric checks from landmark sets.
type Evaluator struct {
	thresholds Thresholds
}

// New creates an Evaluator.
func New(t Thresholds) *Evaluator {
	return &Evaluator{thresholds: t}
}

// Evaluate derives all geometric measurements for one tick. A nil landmark
// set means no face was detected; every verdict fails closed.
func (e *Evaluator) Evaluate(lm *detector.LandmarkSet, frameWidth, frameHeight int) Evaluation {
	if lm == nil {
		return Evaluation{}
	}

	left, okL := lm.Point(detector.LeftEyeOuter)
	right, okR := lm.Point(detector.RightEyeOuter)
	if !okL || !okR {
		return Evaluation{}
	}

	eval := Evaluation{FaceFound: true}

	// Face distance proxy: normalized horizontal gap between the outer
	// eye corners. Small means far away, large means too close.
	eval.FaceWidth = math.Abs(right.X - left.X)
	eval.ProperDistance = eval.FaceWidth > e.thresholds.MinFaceWidth &&
		eval.FaceWidth < e.thresholds.MaxFaceWidth
	eval.TooClose = eval.FaceWidth >= e.thresholds.MaxFaceWidth

	eval.EAR, eval.EyelidOpen = e.openness(lm)

	if center, ok := lm.EyeCenter(); ok {
		eval.EyeCenter = center.Pixel(frameWidth, frameHeight)
	}

	return eval
}

// openness prefers the six-point EAR; when the landmark profile is too
// small it falls back to the vertical eyelid gap.
func (e *Evaluator) openness(lm *detector.LandmarkSet) (float64, bool) {
	leftRing, okL := ringPoints(lm, detector.LeftEyeRing)
	rightRing, okR := ringPoints(lm, detector.RightEyeRing)
	if okL && okR {
		ear := (EAR(leftRing) + EAR(rightRing)) / 2
		return ear, ear > e.thresholds.MinEAR
	}

	// Reduced profile: compare upper and lower eyelid landmarks per eye.
	lt, ok1 := lm.Point(detector.LeftEyeTop)
	lb, ok2 := lm.Point(detector.LeftEyeBottom)
	rt, ok3 := lm.Point(detector.RightEyeTop)
	rb, ok4 := lm.Point(detector.RightEyeBottom)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return 0, false
	}

	leftGap := math.Abs(lt.Y - lb.Y)
	rightGap := math.Abs(rt.Y - rb.Y)
	open := leftGap > e.thresholds.MinEyelidGap && rightGap > e.thresholds.MinEyelidGap
	return 0, open
}

// EAR computes the eye aspect ratio over six eyelid contour points ordered
// p1..p6: (|p2-p6| + |p3-p5|) / (2*|p1-p4|).
func EAR(p [6]detector.Point) float64 {
	horizontal := dist(p[0], p[3])
	if horizontal == 0 {
		return 0
	}
	return (dist(p[1], p[5]) + dist(p[2], p[4])) / (2 * horizontal)
}

func ringPoints(lm *detector.LandmarkSet, ring [6]int) ([6]detector.Point, bool) {
	var out [6]detector.Point
	for i, idx := range ring {
		p, ok := lm.Point(idx)
		if !ok {
			return out, false
		}
		out[i] = p
	}
	return out, true
}

func dist(a, b detector.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

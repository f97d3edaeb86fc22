package detector

import "image"

// Point is a 2D landmark in normalized coordinates, [0,1] per axis relative
// to the frame that produced it.
type Point struct {
	X, Y float64
}

// Pixel converts the normalized point to pixel coordinates.
func (p Point) Pixel(frameWidth, frameHeight int) image.Point {
	return image.Pt(int(p.X*float64(frameWidth)), int(p.Y*float64(frameHeight)))
}

// Landmark indices into the dense face mesh, MediaPipe layout. The iris
// block (468..477) is only present when the mesh model refines irises.
const (
	LeftEyeOuter   = 33
	LeftEyeInner   = 133
	LeftEyeTop     = 159
	LeftEyeBottom  = 145
	RightEyeOuter  = 263
	RightEyeInner  = 362
	RightEyeTop    = 386
	RightEyeBottom = 374
	LeftIrisCenter = 468

	// MeshPointCount is the full refined-mesh profile.
	MeshPointCount = 478
)

// Eyelid contour rings used for the eye-aspect-ratio, ordered p1..p6 around
// each eye (outer corner, two upper points, inner corner, two lower points).
var (
	LeftEyeRing  = [6]int{33, 160, 158, 133, 153, 144}
	RightEyeRing = [6]int{362, 386, 387, 263, 373, 374}
)

// LandmarkSet is the per-tick output of the landmark oracle for a single
// detected face. It is read-only downstream and discarded after the tick.
type LandmarkSet struct {
	Points []Point
	// Score is the face finder's confidence for the tracked face.
	Score float64
}

// Point returns the landmark at index i, reporting whether it exists in
// this set's profile.
func (s *LandmarkSet) Point(i int) (Point, bool) {
	if s == nil || i < 0 || i >= len(s.Points) {
		return Point{}, false
	}
	return s.Points[i], true
}

// HasIris reports whether the set carries the refined iris block.
func (s *LandmarkSet) HasIris() bool {
	return s != nil && len(s.Points) > LeftIrisCenter
}

// EyeCenter returns the best available tracking point for the left eye:
// the iris center when present, the outer corner otherwise.
func (s *LandmarkSet) EyeCenter() (Point, bool) {
	if s.HasIris() {
		return s.Points[LeftIrisCenter], true
	}
	return s.Point(LeftEyeOuter)
}

// faceBox is a detected face region in pixel coordinates.
type faceBox struct {
	x1, y1, x2, y2 float32
	score          float32
}

func (b faceBox) width() float32  { return b.x2 - b.x1 }
func (b faceBox) height() float32 { return b.y2 - b.y1 }

func (b faceBox) area() float32 {
	return b.width() * b.height()
}

func (b faceBox) center() (float32, float32) {
	return (b.x1 + b.x2) / 2, (b.y1 + b.y2) / 2
}

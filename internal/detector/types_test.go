package detector

import (
	"image"
	"testing"
)

// The EAR rings are ordered p1..p6 with p2/p6 and p3/p5 forming vertical
// eyelid chords. The mesh pairs upper and lower lid points as 160/144,
// 158/153 on the left and 386/374, 387/373 on the right; a ring that mixes
// unpaired points skews the ratio.
func TestEyeRingPairs(t *testing.T) {
	for _, tt := range []struct {
		name   string
		ring   [6]int
		chords [2][2]int
	}{
		{"left", LeftEyeRing, [2][2]int{{160, 144}, {158, 153}}},
		{"right", RightEyeRing, [2][2]int{{386, 374}, {387, 373}}},
	} {
		if got := [2][2]int{{tt.ring[1], tt.ring[5]}, {tt.ring[2], tt.ring[4]}}; got != tt.chords {
			t.Errorf("%s ring chords = %v, want %v", tt.name, got, tt.chords)
		}
	}
	if LeftEyeRing[0] != LeftEyeOuter || LeftEyeRing[3] != LeftEyeInner {
		t.Errorf("left ring corners = %d, %d", LeftEyeRing[0], LeftEyeRing[3])
	}
	if RightEyeRing[0] != RightEyeInner || RightEyeRing[3] != RightEyeOuter {
		t.Errorf("right ring corners = %d, %d", RightEyeRing[0], RightEyeRing[3])
	}
}

func TestLandmarkSetPoint(t *testing.T) {
	s := &LandmarkSet{Points: []Point{{X: 0.1, Y: 0.2}, {X: 0.3, Y: 0.4}}}
	if p, ok := s.Point(1); !ok || p.X != 0.3 {
		t.Errorf("Point(1) = %v, %v", p, ok)
	}
	for _, i := range []int{-1, 2} {
		if _, ok := s.Point(i); ok {
			t.Errorf("Point(%d) reported ok out of range", i)
		}
	}
	var nilSet *LandmarkSet
	if _, ok := nilSet.Point(0); ok {
		t.Error("nil set reported a point")
	}
}

func TestEyeCenterFallback(t *testing.T) {
	full := &LandmarkSet{Points: make([]Point, MeshPointCount)}
	full.Points[LeftIrisCenter] = Point{X: 0.5, Y: 0.5}
	if !full.HasIris() {
		t.Fatal("full mesh should carry the iris block")
	}
	if p, ok := full.EyeCenter(); !ok || p.X != 0.5 {
		t.Errorf("EyeCenter with iris = %v, %v", p, ok)
	}

	reduced := &LandmarkSet{Points: make([]Point, LeftIrisCenter)}
	reduced.Points[LeftEyeOuter] = Point{X: 0.25, Y: 0.75}
	if reduced.HasIris() {
		t.Fatal("reduced mesh should not carry the iris block")
	}
	if p, ok := reduced.EyeCenter(); !ok || p.X != 0.25 {
		t.Errorf("EyeCenter fallback = %v, %v", p, ok)
	}
}

func TestPointPixel(t *testing.T) {
	got := Point{X: 0.5, Y: 0.25}.Pixel(640, 480)
	if want := image.Pt(320, 120); got != want {
		t.Errorf("Pixel = %v, want %v", got, want)
	}
}

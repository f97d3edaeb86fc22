package guide

import (
	"image"
	"testing"
)

func TestTrackerStartsCentered(t *testing.T) {
	tr := NewTracker(640, 480)
	if got := tr.Position(); got != image.Pt(320, 240) {
		t.Errorf("Expected initial position (320,240), got %v", got)
	}
}

func TestTrackerSnapsOnFirstSighting(t *testing.T) {
	tr := NewTracker(640, 480)
	tr.Update(image.Pt(100, 100))
	if got := tr.Position(); got != image.Pt(100, 100) {
		t.Errorf("Expected first sighting to snap, got %v", got)
	}
}

func TestTrackerConvergesWithinAFewTicks(t *testing.T) {
	tr := NewTracker(640, 480)
	tr.Update(image.Pt(100, 100))

	target := image.Pt(200, 140)
	for i := 0; i < 10; i++ {
		tr.Update(target)
	}

	got := tr.Position()
	if dx := got.X - target.X; dx < -2 || dx > 2 {
		t.Errorf("Expected X near %d, got %d", target.X, got.X)
	}
	if dy := got.Y - target.Y; dy < -2 || dy > 2 {
		t.Errorf("Expected Y near %d, got %d", target.Y, got.Y)
	}
}

func TestTrackerHoldsWithoutUpdates(t *testing.T) {
	tr := NewTracker(640, 480)
	tr.Update(image.Pt(100, 100))

	// No Update calls model ticks without a detection; the position must
	// not drift back toward the center.
	if got := tr.Position(); got != image.Pt(100, 100) {
		t.Errorf("Expected held position (100,100), got %v", got)
	}
}

func TestTrackerReset(t *testing.T) {
	tr := NewTracker(640, 480)
	tr.Update(image.Pt(100, 100))
	tr.Reset()

	if got := tr.Position(); got != image.Pt(320, 240) {
		t.Errorf("Expected reset to recenter, got %v", got)
	}

	// After a reset the next sighting snaps again.
	tr.Update(image.Pt(50, 60))
	if got := tr.Position(); got != image.Pt(50, 60) {
		t.Errorf("Expected post-reset snap, got %v", got)
	}
}

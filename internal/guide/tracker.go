// Package guide maintains the on-screen target the capture crop is
// centered on.
package guide

import "image"

// smoothing is the exponential low-pass factor per update. High enough
// that the guide converges onto the eye within a few ticks.
const smoothing = 0.5

// Tracker follows the detected eye, or holds its last position when no
// detection is available. Starts at the frame center.
type Tracker struct {
	pos    image.Point
	center image.Point
	seen   bool
}

// NewTracker creates a tracker centered on the given frame dimensions.
func NewTracker(frameWidth, frameHeight int) *Tracker {
	c := image.Pt(frameWidth/2, frameHeight/2)
	return &Tracker{pos: c, center: c}
}

// Update moves the guide toward the detected eye center. Called only on
// ticks with a landmark set.
func (t *Tracker) Update(eye image.Point) {
	if !t.seen {
		// First sighting snaps directly; smoothing from the frame center
		// would drag the guide across half the frame.
		t.pos = eye
		t.seen = true
		return
	}
	t.pos.X += int(smoothing * float64(eye.X-t.pos.X))
	t.pos.Y += int(smoothing * float64(eye.Y-t.pos.Y))
}

// Position returns the current guide position in frame pixels.
func (t *Tracker) Position() image.Point {
	return t.pos
}

// Reset returns the guide to the frame center, forgetting any tracking.
func (t *Tracker) Reset() {
	t.pos = t.center
	t.seen = false
}

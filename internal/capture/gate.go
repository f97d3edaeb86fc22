package capture

import (
	"fmt"
	"image"
	"math"
	"time"

	"github.com/dudu/eyescreen/internal/geometry"
	"github.com/dudu/eyescreen/internal/speech"
)

// Spoken instructions, one per gate condition. Each plays once per state
// entry, never repeatedly while the state holds.
const (
	msgSearching = "Please position your face in the camera"
	msgMoveIn    = "Move closer to the camera"
	msgMoveOut   = "Move back from the camera"
	msgOpenEyes  = "Please open your eyes wide"
	msgOnGuide   = "Align your eye with the blue guide"
	msgCaptured  = "Eye image captured successfully"
)

// Input is one tick's worth of evidence for the gate.
type Input struct {
	Now   time.Time
	Eval  geometry.Evaluation
	Guide image.Point
}

// Decision is the gate's output for one tick.
type Decision struct {
	State State
	// Capture is set on exactly one tick per session: the countdown
	// elapsed with every gate still passing.
	Capture bool
	// Remaining is the countdown left while aligned, zero otherwise.
	Remaining time.Duration
}

// Gate is the timed confirmation state machine. Only geometric checks
// (distance, eyelid, on-guide) drive it; photometric flags stay advisory.
// Not safe for concurrent use: the session ticks it from a single
// goroutine.
type Gate struct {
	tolerance float64
	countdown time.Duration
	voice     speech.Channel

	state    State
	deadline time.Time
	lastSaid string
	ticked   bool
}

// NewGate creates a gate with the given guide tolerance radius (pixels)
// and confirmation countdown.
func NewGate(tolerance float64, countdown time.Duration, voice speech.Channel) *Gate {
	if voice == nil {
		voice = speech.Nop{}
	}
	return &Gate{
		tolerance: tolerance,
		countdown: countdown,
		voice:     voice,
		state:     StateSearching,
	}
}

// State returns the current gate state.
func (g *Gate) State() State { return g.state }

// Tick advances the state machine with one tick's evidence. After the
// capture decision the gate is terminal until Reopen.
func (g *Gate) Tick(in Input) Decision {
	if g.state == StateCaptured {
		return Decision{State: g.state}
	}

	next, instruction := g.classify(in.Eval, in.Guide)

	if next != StateAlignedPending {
		// Countdown does not survive a dropout.
		g.deadline = time.Time{}
	} else if g.state != StateAlignedPending {
		g.deadline = in.Now.Add(g.countdown)
	} else if !in.Now.Before(g.deadline) {
		// Countdown elapsed with the gates re-verified this very tick.
		g.state = StateCaptured
		g.say(msgCaptured)
		return Decision{State: g.state, Capture: true}
	}

	entered := next != g.state || !g.ticked
	g.state = next
	g.ticked = true

	// Speak on entry, and when the violated bound flips while the state
	// name stays the same (too far -> too close).
	if entered || instruction != g.lastSaid {
		g.say(instruction)
	}

	d := Decision{State: g.state}
	if g.state == StateAlignedPending {
		d.Remaining = g.deadline.Sub(in.Now)
	}
	return d
}

// Reopen returns a captured gate to searching so the session can retry
// after a failed crop. No-op in any other state.
func (g *Gate) Reopen() {
	if g.state == StateCaptured {
		g.state = StateSearching
		g.deadline = time.Time{}
	}
}

// classify orders the checks the way the user should fix them: find the
// face, fix the distance, open the eyes, then land on the guide.
func (g *Gate) classify(eval geometry.Evaluation, guide image.Point) (State, string) {
	if !eval.FaceFound {
		return StateSearching, msgSearching
	}
	if !eval.ProperDistance {
		if eval.TooClose {
			return StateMisalignedDistance, msgMoveOut
		}
		return StateMisalignedDistance, msgMoveIn
	}
	if !eval.EyelidOpen {
		return StateMisalignedEyesClosed, msgOpenEyes
	}
	if pixelDist(eval.EyeCenter, guide) >= g.tolerance {
		return StateMisalignedOffGuide, msgOnGuide
	}
	return StateAlignedPending, g.alignedMessage()
}

func (g *Gate) alignedMessage() string {
	return fmt.Sprintf("Perfect alignment. Capturing in %d seconds", int(g.countdown.Round(time.Second).Seconds()))
}

func (g *Gate) say(text string) {
	g.voice.Say(text)
	g.lastSaid = text
}

func pixelDist(a, b image.Point) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}

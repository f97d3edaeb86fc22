package capture

import (
	"image"
	"time"

	"github.com/dudu/eyescreen/internal/analyzer"
	"github.com/dudu/eyescreen/internal/geometry"
)

// State is the capture gate's position in its confirmation cycle.
type State int

const (
	// StateSearching means no face was found this tick.
	StateSearching State = iota
	// StateMisalignedDistance means the face is too close or too far.
	StateMisalignedDistance
	// StateMisalignedEyesClosed means the eyelids are not open enough.
	StateMisalignedEyesClosed
	// StateMisalignedOffGuide means the eye is outside the guide radius.
	StateMisalignedOffGuide
	// StateAlignedPending means all gates pass and the countdown is running.
	StateAlignedPending
	// StateCaptured is terminal: the image was emitted for this session.
	StateCaptured
)

func (s State) String() string {
	switch s {
	case StateSearching:
		return "searching"
	case StateMisalignedDistance:
		return "misaligned_distance"
	case StateMisalignedEyesClosed:
		return "misaligned_eyes_closed"
	case StateMisalignedOffGuide:
		return "misaligned_off_guide"
	case StateAlignedPending:
		return "aligned_pending"
	case StateCaptured:
		return "captured"
	}
	return "unknown"
}

// Checklist is the full quality scorecard shown to the user. Every field
// is recomputed each tick; geometric fields fail closed on ticks without
// landmarks. The photometric fields are advisory: they inform manual
// judgement and the quality score but do not gate the automatic countdown.
type Checklist struct {
	GoodLighting   bool `json:"goodLighting"`
	InFocus        bool `json:"inFocus"`
	WhiteBalanceOK bool `json:"whiteBalanceOk"`
	ProperDistance bool `json:"properDistance"`
	EyelidOpen     bool `json:"eyelidOpen"`
}

// Score is the manual quality score: passed checks over total checks.
func (c Checklist) Score() float64 {
	passed := 0
	for _, ok := range []bool{c.GoodLighting, c.InFocus, c.WhiteBalanceOK, c.ProperDistance, c.EyelidOpen} {
		if ok {
			passed++
		}
	}
	return float64(passed) / 5
}

func mergeChecklist(p analyzer.Scores, g geometry.Evaluation) Checklist {
	return Checklist{
		GoodLighting:   p.GoodLighting,
		InFocus:        p.InFocus,
		WhiteBalanceOK: p.WhiteBalanceOK,
		ProperDistance: g.ProperDistance,
		EyelidOpen:     g.EyelidOpen,
	}
}

// Provenance records how a capture was triggered.
type Provenance string

const (
	// ProvenanceAuto marks captures triggered by the gate's countdown.
	ProvenanceAuto Provenance = "ai"
	// ProvenanceManual marks captures triggered by an explicit user action.
	ProvenanceManual Provenance = "manual"
)

// CapturedImage is the final artifact handed to the caller. The caller
// owns it from there: upload, storage and navigation are not the capture
// pipeline's business.
type CapturedImage struct {
	SessionID  string
	JPEG       []byte
	Rect       image.Rectangle
	CapturedAt time.Time
	Provenance Provenance
	Quality    Checklist
}

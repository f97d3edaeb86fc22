// Package capture drives the guided-capture cycle: it ticks the analyzers
// over live frames, advances the gate, and emits a single validated crop.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dudu/eyescreen/internal/analyzer"
	"github.com/dudu/eyescreen/internal/camera"
	"github.com/dudu/eyescreen/internal/cropper"
	"github.com/dudu/eyescreen/internal/detector"
	"github.com/dudu/eyescreen/internal/geometry"
	"github.com/dudu/eyescreen/internal/guide"
	"github.com/dudu/eyescreen/internal/logging"
	"github.com/dudu/eyescreen/internal/speech"
)

const msgManualMode = "Automatic detection is not available. You can use manual capture."

// ErrNoFrame reports a manual capture request before any frame arrived.
var ErrNoFrame = errors.New("capture: no frame available yet")

// TickReport is the per-tick snapshot handed to the caller for display.
type TickReport struct {
	Frame     *camera.Frame
	Guide     image.Point
	State     State
	Checklist Checklist
	Remaining time.Duration
	FaceFound bool
	Manual    bool
}

// SessionConfig wires a session together. Source is required; a nil
// Detector puts the session in manual mode from the start.
type SessionConfig struct {
	Source   camera.Source
	Detector detector.Detector
	Voice    speech.Channel
	Metrics  *Metrics

	TickInterval time.Duration
	Countdown    time.Duration
	GuideRadius  float64
	CropSize     int
	JPEGQuality  int
	Photometric  analyzer.Thresholds
	Geometric    geometry.Thresholds

	OnTick    func(TickReport)
	OnCapture func(CapturedImage)
	OnError   func(error)
}

// Session owns one capture cycle: the stream, the tick timer, and the gate
// state, acquired together and released together on every exit path. All
// pipeline state is mutated only inside the tick loop goroutine.
type Session struct {
	id  string
	cfg SessionConfig
	log *logrus.Entry

	photo     *analyzer.Analyzer
	evaluator *geometry.Evaluator
	tracker   *guide.Tracker
	gate      *Gate
	crop      *cropper.Cropper

	manualReq chan struct{}
	cancel    context.CancelFunc
	done      chan struct{}
	stopOnce  sync.Once
	started   bool

	mu        sync.Mutex
	lastFrame *camera.Frame
	lastState State
	lastList  Checklist
	lastGuide image.Point
	err       error
}

// NewSession validates the config and builds the pipeline components.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Source == nil {
		return nil, errors.New("capture: source is required")
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 100 * time.Millisecond
	}
	if cfg.Countdown <= 0 {
		cfg.Countdown = 3 * time.Second
	}
	if cfg.GuideRadius <= 0 {
		cfg.GuideRadius = 30
	}
	if cfg.CropSize <= 0 {
		cfg.CropSize = 160
	}
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = 90
	}
	if cfg.Photometric == (analyzer.Thresholds{}) {
		cfg.Photometric = analyzer.DefaultThresholds()
	}
	if cfg.Geometric == (geometry.Thresholds{}) {
		cfg.Geometric = geometry.DefaultThresholds()
	}
	if cfg.Voice == nil {
		cfg.Voice = speech.Nop{}
	}

	id := uuid.NewString()
	s := &Session{
		id:        id,
		cfg:       cfg,
		log:       logging.WithComponent("capture").WithField("session", id),
		photo:     analyzer.New(cfg.Photometric),
		evaluator: geometry.New(cfg.Geometric),
		tracker:   guide.NewTracker(cfg.Source.Width(), cfg.Source.Height()),
		gate:      NewGate(cfg.GuideRadius, cfg.Countdown, cfg.Voice),
		crop:      cropper.New(cfg.CropSize, cfg.JPEGQuality),
		manualReq: make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	s.lastGuide = s.tracker.Position()
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Manual reports whether the session runs without a landmark oracle.
func (s *Session) Manual() bool { return s.cfg.Detector == nil }

// Start launches the tick loop. Call at most once.
func (s *Session) Start(ctx context.Context) {
	if s.started {
		return
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	go s.run(ctx)
}

// Stop halts the tick timer, releases the camera, and discards any
// in-flight work. Safe to call multiple times; returns once the loop has
// fully exited and resources are released.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
	if s.started {
		<-s.done
	}
}

// Done is closed when the session has exited and released its resources.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err returns the fatal error that ended the session, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// State returns the most recent gate state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastState
}

// Checklist returns the most recent quality checklist.
func (s *Session) Checklist() Checklist {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastList
}

// CaptureNow requests a manual capture of the current frame at the guide
// position. Duplicate requests while one is pending are dropped.
func (s *Session) CaptureNow() {
	select {
	case s.manualReq <- struct{}{}:
	default:
	}
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer func() {
		if err := s.cfg.Source.Close(); err != nil {
			s.log.WithError(err).Warn("closing camera")
		}
	}()

	if s.Manual() {
		s.log.Info("landmark oracle unavailable, manual mode")
		s.cfg.Voice.Say(msgManualMode)
	}

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.manualReq:
			s.manualCapture()
		case <-ticker.C:
			// A tick that outlives the interval makes the ticker skip
			// firings: frames are dropped, never queued.
			if done := s.step(ctx); done {
				return
			}
		}
	}
}

// step processes one tick. It returns true when the session is finished,
// either by a successful automatic capture or a fatal stream error.
func (s *Session) step(ctx context.Context) bool {
	start := time.Now()

	frame, err := s.cfg.Source.Grab()
	if err != nil {
		if errors.Is(err, camera.ErrStreamLost) {
			s.fail(err)
			return true
		}
		// Transient empty frame; skip this tick.
		s.log.WithError(err).Debug("frame grab failed")
		return false
	}

	scores := s.photo.Analyze(frame)

	var lm *detector.LandmarkSet
	if det := s.cfg.Detector; det != nil {
		lm, err = det.Detect(ctx, frame)
		if err != nil {
			// Transient oracle failure counts as "no face" for exactly
			// this tick.
			s.log.WithError(err).Debug("detection failed")
			lm = nil
		}
	}
	if ctx.Err() != nil {
		// Stopped while detecting; the result must not be acted upon.
		return true
	}

	eval := s.evaluator.Evaluate(lm, frame.Width, frame.Height)
	if eval.FaceFound {
		s.tracker.Update(eval.EyeCenter)
	}
	guidePos := s.tracker.Position()
	checklist := mergeChecklist(scores, eval)

	var decision Decision
	if s.Manual() {
		decision = Decision{State: StateSearching}
	} else {
		decision = s.gate.Tick(Input{Now: time.Now(), Eval: eval, Guide: guidePos})
	}

	s.mu.Lock()
	s.lastFrame = frame
	s.lastState = decision.State
	s.lastList = checklist
	s.lastGuide = guidePos
	s.mu.Unlock()

	elapsed := time.Since(start)
	dropped := 0
	if elapsed > s.cfg.TickInterval {
		dropped = int(elapsed / s.cfg.TickInterval)
	}
	s.cfg.Metrics.observeTick(elapsed, dropped)
	s.cfg.Metrics.observeState(decision.State)

	if s.cfg.OnTick != nil {
		s.cfg.OnTick(TickReport{
			Frame:     frame,
			Guide:     guidePos,
			State:     decision.State,
			Checklist: checklist,
			Remaining: decision.Remaining,
			FaceFound: eval.FaceFound,
			Manual:    s.Manual(),
		})
	}

	if decision.Capture {
		return s.emit(frame, guidePos, checklist, ProvenanceAuto)
	}
	return false
}

// emit crops and hands off the artifact. A failed crop reopens the gate
// and keeps the session alive so the user can retry.
func (s *Session) emit(frame *camera.Frame, guidePos image.Point, checklist Checklist, prov Provenance) bool {
	jpegData, rect, err := s.crop.Crop(frame, guidePos)
	if err != nil {
		s.log.WithError(err).Error("crop failed")
		s.gate.Reopen()
		if s.cfg.OnError != nil {
			s.cfg.OnError(fmt.Errorf("capture failed: %w", err))
		}
		return false
	}

	img := CapturedImage{
		SessionID:  s.id,
		JPEG:       jpegData,
		Rect:       rect,
		CapturedAt: time.Now(),
		Provenance: prov,
		Quality:    checklist,
	}

	s.cfg.Metrics.observeCapture(prov)
	s.log.WithFields(logrus.Fields{
		"provenance": prov,
		"bytes":      len(jpegData),
		"rect":       rect.String(),
	}).Info("image captured")

	if s.cfg.OnCapture != nil {
		s.cfg.OnCapture(img)
	}

	// Automatic captures end the cycle; manual mode stays open so the
	// user can take another shot.
	return prov == ProvenanceAuto
}

// manualCapture crops the most recent frame at the guide position.
func (s *Session) manualCapture() {
	s.mu.Lock()
	frame := s.lastFrame
	guidePos := s.lastGuide
	checklist := s.lastList
	s.mu.Unlock()

	if frame == nil {
		if s.cfg.OnError != nil {
			s.cfg.OnError(ErrNoFrame)
		}
		return
	}
	s.emit(frame, guidePos, checklist, ProvenanceManual)
}

func (s *Session) fail(err error) {
	s.log.WithError(err).Error("session failed")
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	if s.cfg.OnError != nil {
		s.cfg.OnError(err)
	}
}

// Package detector is the landmark oracle: it wraps the external face-mesh
// capability and normalizes its per-frame output into a LandmarkSet.
package detector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"github.com/dudu/eyescreen/internal/camera"
	"github.com/dudu/eyescreen/internal/inference"
	"github.com/dudu/eyescreen/internal/logging"
)

// ErrUnavailable reports that the oracle could not be initialized. The
// caller must degrade to manual capture mode.
var ErrUnavailable = errors.New("detector: oracle unavailable")

// Detector produces a LandmarkSet for at most one face per frame, or nil
// when no face is present. Errors are transient: the caller treats a failed
// call as "no face this tick" and carries on.
type Detector interface {
	Detect(ctx context.Context, frame *camera.Frame) (*LandmarkSet, error)
	Close() error
}

// Config holds the oracle's model locations and thresholds.
type Config struct {
	FaceModelPath string
	MeshModelPath string
	LibraryPath   string
	ConfThreshold float32
	NMSThreshold  float32
	LoadTimeout   time.Duration
}

// Oracle is the production Detector: an SCRFD-style face finder feeding a
// dense face-mesh landmark model, both on ONNX Runtime.
type Oracle struct {
	finder *faceFinder
	mesh   *faceMesh
}

// NewOracle loads both models. On any failure everything already opened is
// released before returning.
func NewOracle(cfg Config) (*Oracle, error) {
	if err := inference.Initialize(cfg.LibraryPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	finder, err := newFaceFinder(cfg.FaceModelPath, cfg.ConfThreshold, cfg.NMSThreshold)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	mesh, err := newFaceMesh(cfg.MeshModelPath)
	if err != nil {
		finder.close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &Oracle{finder: finder, mesh: mesh}, nil
}

// Load initializes the oracle with a bounded timeout. On expiry it returns
// ErrUnavailable; the late-finishing load, if any, is discarded.
func Load(cfg Config) (*Oracle, error) {
	timeout := cfg.LoadTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	type result struct {
		oracle *Oracle
		err    error
	}
	done := make(chan result, 1)
	go func() {
		o, err := NewOracle(cfg)
		done <- result{o, err}
	}()

	select {
	case r := <-done:
		return r.oracle, r.err
	case <-time.After(timeout):
		// Release the models if the load eventually finishes.
		go func() {
			if r := <-done; r.oracle != nil {
				r.oracle.Close()
			}
		}()
		return nil, fmt.Errorf("%w: load timed out after %s", ErrUnavailable, timeout)
	}
}

// Detect runs both stages on the frame. Returns (nil, nil) when no face is
// found. Only one call may be in flight at a time; the session enforces
// that by dropping ticks.
func (o *Oracle) Detect(ctx context.Context, frame *camera.Frame) (*LandmarkSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rgba, err := gocv.ImageToMatRGBA(frame.Pixels)
	if err != nil {
		return nil, fmt.Errorf("frame to mat: %w", err)
	}
	defer rgba.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(rgba, &bgr, gocv.ColorRGBAToBGR)

	boxes, err := o.finder.detect(bgr)
	if err != nil {
		return nil, err
	}
	if len(boxes) == 0 {
		return nil, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// nms sorts best-first; track only the most confident face.
	best := boxes[0]
	pixels, err := o.mesh.detect(bgr, best)
	if err != nil {
		return nil, err
	}

	points := make([]Point, len(pixels))
	fw := float64(frame.Width)
	fh := float64(frame.Height)
	for i, p := range pixels {
		points[i] = Point{X: p.X / fw, Y: p.Y / fh}
	}

	logging.WithComponent("detector").WithField("score", best.score).Debug("face tracked")

	return &LandmarkSet{Points: points, Score: float64(best.score)}, nil
}

// Close releases both model sessions and the runtime environment.
func (o *Oracle) Close() error {
	var errs []error
	if o.finder != nil {
		if err := o.finder.close(); err != nil {
			errs = append(errs, err)
		}
	}
	if o.mesh != nil {
		if err := o.mesh.close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := inference.Shutdown(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("oracle cleanup: %v", errs)
	}
	return nil
}

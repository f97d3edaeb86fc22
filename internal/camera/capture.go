// Package camera owns the live video stream and hands out per-tick frames.
package camera

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

var (
	// ErrDeviceUnavailable reports that no camera could be opened, either
	// because the hardware is missing or access was denied.
	ErrDeviceUnavailable = errors.New("camera: device unavailable")
	// ErrStreamLost reports that the stream died mid-session. The session
	// must be restarted; the source is no longer usable.
	ErrStreamLost = errors.New("camera: stream lost")
)

// Source exposes successive frames of a live stream. The capture session is
// the only consumer; implementations need not support concurrent readers.
type Source interface {
	// Grab returns a snapshot of the current frame. It returns
	// ErrStreamLost once the underlying stream is dead.
	Grab() (*Frame, error)
	Width() int
	Height() int
	Close() error
}

// maxReadFailures is how many consecutive failed reads are tolerated before
// the stream is declared lost. A single miss happens during device warmup.
const maxReadFailures = 3

// Capture manages webcam capture through gocv.
type Capture struct {
	mu       sync.Mutex
	webcam   *gocv.VideoCapture
	mat      gocv.Mat
	deviceID int
	width    int
	height   int
	misses   int
}

// Open opens the capture device and negotiates the requested resolution.
// The device may not honor it; the actual dimensions are recorded.
func Open(deviceID, width, height int) (*Capture, error) {
	webcam, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: open camera %d: %v", ErrDeviceUnavailable, deviceID, err)
	}

	webcam.Set(gocv.VideoCaptureFrameWidth, float64(width))
	webcam.Set(gocv.VideoCaptureFrameHeight, float64(height))

	actualWidth := int(webcam.Get(gocv.VideoCaptureFrameWidth))
	actualHeight := int(webcam.Get(gocv.VideoCaptureFrameHeight))
	if actualWidth <= 0 || actualHeight <= 0 {
		webcam.Close()
		return nil, fmt.Errorf("%w: camera %d reported no resolution", ErrDeviceUnavailable, deviceID)
	}

	return &Capture{
		webcam:   webcam,
		mat:      gocv.NewMat(),
		deviceID: deviceID,
		width:    actualWidth,
		height:   actualHeight,
	}, nil
}

// Grab reads the next frame and converts it to an RGBA snapshot.
func (c *Capture) Grab() (*Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.webcam == nil {
		return nil, ErrStreamLost
	}

	if !c.webcam.Read(&c.mat) || c.mat.Empty() {
		c.misses++
		if c.misses >= maxReadFailures {
			return nil, ErrStreamLost
		}
		return nil, fmt.Errorf("camera %d: empty frame", c.deviceID)
	}
	c.misses = 0

	img, err := c.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	return NewFrame(toRGBA(img)), nil
}

// Width returns the negotiated frame width.
func (c *Capture) Width() int { return c.width }

// Height returns the negotiated frame height.
func (c *Capture) Height() int { return c.height }

// Close releases the camera hardware. Safe to call more than once.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.webcam != nil {
		c.mat.Close()
		err := c.webcam.Close()
		c.webcam = nil
		return err
	}
	return nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			rgba.Set(x-b.Min.X, y-b.Min.Y, img.At(x, y))
		}
	}
	return rgba
}

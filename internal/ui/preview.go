// Package ui renders the live preview with the guide overlay.
package ui

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"gocv.io/x/gocv"

	"github.com/dudu/eyescreen/internal/capture"
)

var (
	colorGuide     = color.RGBA{R: 0, G: 255, B: 255, A: 255}
	colorAligned   = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	colorMisplaced = color.RGBA{R: 0, G: 165, B: 255, A: 255}
	colorText      = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Preview manages the live display window.
type Preview struct {
	window     *gocv.Window
	name       string
	radius     int
	mat        gocv.Mat
	lastFrame  time.Time
	frameCount int
	fps        float64
}

// NewPreview opens the display window. radius is the guide circle radius
// in pixels.
func NewPreview(name string, radius int) *Preview {
	window := gocv.NewWindow(name)
	window.ResizeWindow(1280, 720)
	window.MoveWindow(100, 100)
	return &Preview{
		window:    window,
		name:      name,
		radius:    radius,
		mat:       gocv.NewMat(),
		lastFrame: time.Now(),
	}
}

// Show renders one tick report: the frame, the guide circle, the gate
// status line, and the quality checklist.
func (p *Preview) Show(report capture.TickReport) error {
	if report.Frame == nil {
		return nil
	}

	src, err := gocv.ImageToMatRGBA(report.Frame.Pixels)
	if err != nil {
		return fmt.Errorf("converting preview frame: %w", err)
	}
	defer src.Close()
	gocv.CvtColor(src, &p.mat, gocv.ColorRGBAToBGR)

	p.drawGuide(report)
	p.drawStatus(report)
	p.drawFPS()

	p.window.IMShow(p.mat)
	return nil
}

func (p *Preview) drawGuide(report capture.TickReport) {
	c := colorGuide
	switch report.State {
	case capture.StateAlignedPending, capture.StateCaptured:
		c = colorAligned
	case capture.StateMisalignedOffGuide:
		c = colorMisplaced
	}
	gocv.Circle(&p.mat, report.Guide, p.radius, c, 2)
	gocv.Circle(&p.mat, report.Guide, 2, c, -1)
}

func (p *Preview) drawStatus(report capture.TickReport) {
	status := report.State.String()
	if report.State == capture.StateAlignedPending {
		status = fmt.Sprintf("%s %.1fs", status, report.Remaining.Seconds())
	}
	if report.Manual {
		status = "MANUAL " + status
	}
	gocv.PutText(&p.mat, status, image.Pt(10, 60),
		gocv.FontHersheyPlain, 2, colorText, 2)

	checks := []struct {
		label string
		ok    bool
	}{
		{"lighting", report.Checklist.GoodLighting},
		{"focus", report.Checklist.InFocus},
		{"white balance", report.Checklist.WhiteBalanceOK},
		{"distance", report.Checklist.ProperDistance},
		{"eyes open", report.Checklist.EyelidOpen},
	}
	y := 90
	for _, chk := range checks {
		c := colorMisplaced
		mark := "x"
		if chk.ok {
			c = colorAligned
			mark = "o"
		}
		gocv.PutText(&p.mat, fmt.Sprintf("[%s] %s", mark, chk.label),
			image.Pt(10, y), gocv.FontHersheyPlain, 1.5, c, 2)
		y += 25
	}
}

func (p *Preview) drawFPS() {
	p.frameCount++
	now := time.Now()
	if elapsed := now.Sub(p.lastFrame); elapsed >= time.Second {
		p.fps = float64(p.frameCount) / elapsed.Seconds()
		p.frameCount = 0
		p.lastFrame = now
	}
	gocv.PutText(&p.mat, fmt.Sprintf("FPS: %.1f", p.fps), image.Pt(10, 30),
		gocv.FontHersheyPlain, 2, colorAligned, 2)
}

// WaitKey pumps the window event loop, returning the pressed key or -1.
func (p *Preview) WaitKey(delayMs int) int {
	return p.window.WaitKey(delayMs)
}

// Close releases the window and scratch buffers.
func (p *Preview) Close() error {
	if err := p.mat.Close(); err != nil {
		return err
	}
	if p.window != nil {
		return p.window.Close()
	}
	return nil
}

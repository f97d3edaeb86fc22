package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/dudu/eyescreen/internal/analyzer"
	"github.com/dudu/eyescreen/internal/camera"
	"github.com/dudu/eyescreen/internal/capture"
	"github.com/dudu/eyescreen/internal/detector"
	"github.com/dudu/eyescreen/internal/geometry"
	"github.com/dudu/eyescreen/internal/logging"
	"github.com/dudu/eyescreen/internal/screening"
	"github.com/dudu/eyescreen/internal/speech"
	"github.com/dudu/eyescreen/internal/ui"
)

var (
	captureOut     string
	capturePreview bool
	captureScreen  bool
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Run a guided capture session against the webcam",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCapture(cmd.Context())
	},
}

func init() {
	captureCmd.Flags().StringVarP(&captureOut, "out", "o", "capture.jpg", "output path for the captured image")
	captureCmd.Flags().BoolVar(&capturePreview, "preview", false, "show a live preview window")
	captureCmd.Flags().BoolVar(&captureScreen, "screen", false, "run the captured image through the screening flow")
	rootCmd.AddCommand(captureCmd)
}

func runCapture(parent context.Context) error {
	log := logging.WithComponent("cli")
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, err := camera.Open(cfg.Camera.DeviceID, cfg.Camera.Width, cfg.Camera.Height)
	if err != nil {
		return fmt.Errorf("opening camera: %w", err)
	}

	// A failed oracle load degrades to manual mode instead of aborting.
	var det detector.Detector
	oracle, err := detector.Load(detector.Config{
		FaceModelPath: cfg.Detector.FaceModelPath,
		MeshModelPath: cfg.Detector.MeshModelPath,
		LibraryPath:   cfg.Detector.LibraryPath,
		ConfThreshold: float32(cfg.Detector.ConfThreshold),
		NMSThreshold:  float32(cfg.Detector.NMSThreshold),
		LoadTimeout:   time.Duration(cfg.Detector.LoadTimeoutMS) * time.Millisecond,
	})
	if err != nil {
		log.WithError(err).Warn("landmark models unavailable, falling back to manual capture")
	} else {
		det = oracle
		defer oracle.Close()
	}

	var voice speech.Channel = speech.Console{}
	if cfg.Speech.Enabled {
		synth := speech.NewSynthesizer(cfg.Speech.CacheDir, cfg.Speech.Language)
		defer synth.Close()
		voice = synth
	}

	countdown := time.Duration(cfg.Gate.CountdownMS) * time.Millisecond
	reports := make(chan capture.TickReport, 1)
	captured := make(chan capture.CapturedImage, 1)
	bar := newCountdownBar(countdown)

	session, err := capture.NewSession(capture.SessionConfig{
		Source:       source,
		Detector:     det,
		Voice:        voice,
		Metrics:      capture.NewMetrics(prometheus.DefaultRegisterer),
		TickInterval: time.Duration(cfg.Gate.TickIntervalMS) * time.Millisecond,
		Countdown:    countdown,
		GuideRadius:  cfg.Gate.GuideRadiusPX,
		CropSize:     cfg.Gate.CropSize,
		JPEGQuality:  cfg.Gate.JPEGQuality,
		Photometric: analyzer.Thresholds{
			MinBrightness:    cfg.Gate.MinBrightness,
			MaxBrightness:    cfg.Gate.MaxBrightness,
			MinSharpness:     cfg.Gate.MinSharpness,
			MaxChannelSpread: cfg.Gate.MaxChannelSpread,
		},
		Geometric: geometry.Thresholds{
			MinFaceWidth: cfg.Gate.MinFaceWidth,
			MaxFaceWidth: cfg.Gate.MaxFaceWidth,
			MinEAR:       cfg.Gate.MinEAR,
			MinEyelidGap: cfg.Gate.MinEyelidGap,
		},
		OnTick: func(r capture.TickReport) {
			bar.update(r)
			select {
			case reports <- r:
			default:
			}
		},
		OnCapture: func(img capture.CapturedImage) {
			select {
			case captured <- img:
			default:
			}
		},
		OnError: func(err error) {
			log.WithError(err).Error("session error")
		},
	})
	if err != nil {
		source.Close()
		return err
	}

	session.Start(ctx)
	defer session.Stop()

	if session.Manual() {
		fmt.Println("Manual mode: press Enter to capture, Ctrl-C to quit.")
		go watchStdin(ctx, session)
	}

	var preview *ui.Preview
	if capturePreview {
		preview = ui.NewPreview("eyescreen", int(cfg.Gate.GuideRadiusPX))
		defer preview.Close()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-session.Done():
			return session.Err()
		case img := <-captured:
			bar.clear()
			if err := saveCapture(ctx, img); err != nil {
				return err
			}
			if session.Manual() {
				continue
			}
			return nil
		case r := <-reports:
			if preview == nil {
				continue
			}
			if err := preview.Show(r); err != nil {
				log.WithError(err).Warn("preview render failed")
			}
			// ESC closes the session.
			if preview.WaitKey(1) == 27 {
				return nil
			}
		}
	}
}

func saveCapture(ctx context.Context, img capture.CapturedImage) error {
	if err := os.WriteFile(captureOut, img.JPEG, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", captureOut, err)
	}
	fmt.Printf("Captured %s (%s, quality %.0f%%) -> %s\n",
		img.Rect, img.Provenance, img.Quality.Score()*100, captureOut)

	if !captureScreen {
		return nil
	}

	svc, cleanup, err := buildScreeningService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	rec, err := svc.Screen(ctx, screening.Request{
		SessionID:    img.SessionID,
		Provenance:   string(img.Provenance),
		QualityScore: img.Quality.Score(),
		JPEG:         img.JPEG,
	})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// watchStdin turns Enter presses into manual capture requests.
func watchStdin(ctx context.Context, session *capture.Session) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		session.CaptureNow()
	}
}

// countdownBar renders the hold-steady countdown on the terminal.
type countdownBar struct {
	total time.Duration
	bar   *progressbar.ProgressBar
}

func newCountdownBar(total time.Duration) *countdownBar {
	return &countdownBar{total: total}
}

func (b *countdownBar) update(r capture.TickReport) {
	if r.State != capture.StateAlignedPending {
		b.clear()
		return
	}
	if b.bar == nil {
		b.bar = progressbar.NewOptions64(b.total.Milliseconds(),
			progressbar.OptionSetDescription("hold steady"),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionClearOnFinish(),
		)
	}
	b.bar.Set64((b.total - r.Remaining).Milliseconds())
}

func (b *countdownBar) clear() {
	if b.bar != nil {
		b.bar.Clear()
		b.bar = nil
	}
}

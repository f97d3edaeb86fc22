// Package analyzer scores frames along photometric dimensions: exposure,
// focus, and white balance. All functions are pure; the same frame always
// yields the same scorecard.
package analyzer

import (
	"gonum.org/v1/gonum/stat"

	"github.com/dudu/eyescreen/internal/camera"
)

// Scores is the photometric subset of the quality checklist, together with
// the raw measurements behind each verdict.
type Scores struct {
	GoodLighting   bool
	InFocus        bool
	WhiteBalanceOK bool

	Brightness    float64 // mean of per-pixel (R+G+B)/3, 0..255
	Sharpness     float64 // Laplacian variance of the luma image
	ChannelSpread float64 // max pairwise difference of channel means
}

// Thresholds bound the photometric verdicts.
type Thresholds struct {
	MinBrightness    float64
	MaxBrightness    float64
	MinSharpness     float64
	MaxChannelSpread float64
}

// DefaultThresholds match the pallor-assessment tuning: exclude under- and
// over-exposed frames, blurred frames, and frames with a strong color cast.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinBrightness:    80,
		MaxBrightness:    180,
		MinSharpness:     100,
		MaxChannelSpread: 30,
	}
}

// Analyzer computes photometric scores for frames.
type Analyzer struct {
	thresholds Thresholds
}

// New creates an Analyzer with the given thresholds.
func New(t Thresholds) *Analyzer {
	return &Analyzer{thresholds: t}
}

// Analyze computes the full scorecard for one frame. It must stay fast
// enough to complete well inside the tick interval.
func (a *Analyzer) Analyze(frame *camera.Frame) Scores {
	rAvg, gAvg, bAvg := channelMeans(frame)
	brightness := (rAvg + gAvg + bAvg) / 3

	spread := maxPairwiseDiff(rAvg, gAvg, bAvg)
	sharpness := laplacianVariance(frame)

	return Scores{
		GoodLighting:   brightness > a.thresholds.MinBrightness && brightness < a.thresholds.MaxBrightness,
		InFocus:        sharpness > a.thresholds.MinSharpness,
		WhiteBalanceOK: spread < a.thresholds.MaxChannelSpread,
		Brightness:     brightness,
		Sharpness:      sharpness,
		ChannelSpread:  spread,
	}
}

// channelMeans walks the RGBA buffer directly; At() per pixel is far too
// slow for interactive rates.
func channelMeans(frame *camera.Frame) (r, g, b float64) {
	pix := frame.Pixels.Pix
	stride := frame.Pixels.Stride

	var rSum, gSum, bSum float64
	for y := 0; y < frame.Height; y++ {
		row := pix[y*stride : y*stride+frame.Width*4]
		for x := 0; x < frame.Width*4; x += 4 {
			rSum += float64(row[x])
			gSum += float64(row[x+1])
			bSum += float64(row[x+2])
		}
	}

	n := float64(frame.Width * frame.Height)
	if n == 0 {
		return 0, 0, 0
	}
	return rSum / n, gSum / n, bSum / n
}

// laplacianVariance convolves the luma image with the discrete Laplacian
// and returns the variance of the response. Low variance means blur.
func laplacianVariance(frame *camera.Frame) float64 {
	w, h := frame.Width, frame.Height
	if w < 3 || h < 3 {
		return 0
	}

	gray := grayscale(frame)

	// Kernel [[0,-1,0],[-1,4,-1],[0,-1,0]], interior pixels only.
	responses := make([]float64, 0, (w-2)*(h-2))
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			center := gray[y*w+x]
			top := gray[(y-1)*w+x]
			bottom := gray[(y+1)*w+x]
			left := gray[y*w+x-1]
			right := gray[y*w+x+1]

			responses = append(responses, 4*center-top-bottom-left-right)
		}
	}

	if len(responses) == 0 {
		return 0
	}
	return stat.Variance(responses, nil)
}

// grayscale converts to luma with the usual Rec.601 weights.
func grayscale(frame *camera.Frame) []float64 {
	pix := frame.Pixels.Pix
	stride := frame.Pixels.Stride
	w, h := frame.Width, frame.Height

	gray := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := pix[y*stride : y*stride+w*4]
		for x := 0; x < w; x++ {
			r := float64(row[x*4])
			g := float64(row[x*4+1])
			b := float64(row[x*4+2])
			gray[y*w+x] = 0.299*r + 0.587*g + 0.114*b
		}
	}
	return gray
}

func maxPairwiseDiff(r, g, b float64) float64 {
	d := abs(r - g)
	if v := abs(g - b); v > d {
		d = v
	}
	if v := abs(r - b); v > d {
		d = v
	}
	return d
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

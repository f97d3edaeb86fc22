package detector

import (
	"fmt"
	"image"
	"math"

	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"github.com/dudu/eyescreen/internal/inference"
)

// faceFinder locates face regions with an SCRFD-style anchor-based model.
// It is the first stage of the oracle; the mesh model runs on its output.
type faceFinder struct {
	session        *inference.Session
	inputSize      int
	confThreshold  float32
	nmsThreshold   float32
	featureStrides []int
	numAnchors     int
}

func newFaceFinder(modelPath string, confThreshold, nmsThreshold float32) (*faceFinder, error) {
	// One input, six outputs: per-level score and bbox maps.
	inputNames := []string{"input.1"}
	outputNames := []string{
		"score_8", "score_16", "score_32",
		"bbox_8", "bbox_16", "bbox_32",
	}

	session, err := inference.NewSession(modelPath, inputNames, outputNames)
	if err != nil {
		return nil, fmt.Errorf("create face finder session: %w", err)
	}

	return &faceFinder{
		session:        session,
		inputSize:      640,
		confThreshold:  confThreshold,
		nmsThreshold:   nmsThreshold,
		featureStrides: []int{8, 16, 32},
		numAnchors:     2,
	}, nil
}

// detect finds face boxes in a BGR image, best first.
func (f *faceFinder) detect(img gocv.Mat) ([]faceBox, error) {
	origHeight := img.Rows()
	origWidth := img.Cols()

	inputBlob, scale := f.preprocess(img)
	defer inputBlob.Close()

	blobData := inputBlob.ToBytes()
	floatData := bytesToFloat32(blobData)

	inputTensor, err := ort.NewTensor(
		ort.NewShape(1, 3, int64(f.inputSize), int64(f.inputSize)),
		floatData,
	)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputs := make([]ort.Value, 6)
	outputTensors := make([]*ort.Tensor[float32], 6)
	for i := 0; i < 3; i++ {
		fm := f.inputSize / f.featureStrides[i]
		numAnchors := fm * fm * f.numAnchors

		scoreTensor, err := inference.CreateEmptyTensor[float32]([]int64{int64(numAnchors), 1})
		if err != nil {
			return nil, err
		}
		outputs[i] = scoreTensor
		outputTensors[i] = scoreTensor

		bboxTensor, err := inference.CreateEmptyTensor[float32]([]int64{int64(numAnchors), 4})
		if err != nil {
			return nil, err
		}
		outputs[i+3] = bboxTensor
		outputTensors[i+3] = bboxTensor
	}
	defer func() {
		for _, t := range outputTensors {
			if t != nil {
				t.Destroy()
			}
		}
	}()

	if err := f.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("face finder inference: %w", err)
	}

	boxes := f.postprocess(outputTensors, scale, origWidth, origHeight)
	return nms(boxes, f.nmsThreshold), nil
}

// preprocess letterboxes the image into the model input and normalizes to
// (x - 127.5) / 128.
func (f *faceFinder) preprocess(img gocv.Mat) (gocv.Mat, float32) {
	height := img.Rows()
	width := img.Cols()

	longest := width
	if height > width {
		longest = height
	}
	scale := float32(f.inputSize) / float32(longest)

	newWidth := int(float32(width) * scale)
	newHeight := int(float32(height) * scale)

	resized := gocv.NewMat()
	gocv.Resize(img, &resized, image.Pt(newWidth, newHeight), 0, 0, gocv.InterpolationLinear)

	padded := gocv.NewMatWithSize(f.inputSize, f.inputSize, gocv.MatTypeCV8UC3)
	padded.SetTo(gocv.NewScalar(0, 0, 0, 0))

	roi := padded.Region(image.Rect(0, 0, newWidth, newHeight))
	resized.CopyTo(&roi)
	roi.Close()
	resized.Close()

	rgb := gocv.NewMat()
	gocv.CvtColor(padded, &rgb, gocv.ColorBGRToRGB)
	padded.Close()

	blob := gocv.NewMat()
	rgb.ConvertTo(&blob, gocv.MatTypeCV32FC3)
	rgb.Close()

	gocv.AddWeighted(blob, 1.0/128.0, blob, 0, -127.5/128.0, &blob)

	blobNCHW := gocv.BlobFromImage(blob, 1.0, image.Pt(f.inputSize, f.inputSize),
		gocv.NewScalar(0, 0, 0, 0), false, false)
	blob.Close()

	return blobNCHW, scale
}

// postprocess decodes anchor distances into pixel-space boxes.
func (f *faceFinder) postprocess(outputs []*ort.Tensor[float32], scale float32, origWidth, origHeight int) []faceBox {
	var boxes []faceBox

	for level := 0; level < 3; level++ {
		stride := f.featureStrides[level]
		fm := f.inputSize / stride

		scoreData := outputs[level].GetData()
		bboxData := outputs[level+3].GetData()

		anchorIdx := 0
		for y := 0; y < fm; y++ {
			for x := 0; x < fm; x++ {
				for a := 0; a < f.numAnchors; a++ {
					score := sigmoid(scoreData[anchorIdx])
					if score > f.confThreshold {
						cx := (float32(x) + 0.5) * float32(stride)
						cy := (float32(y) + 0.5) * float32(stride)

						bboxIdx := anchorIdx * 4
						x1 := (cx - bboxData[bboxIdx]*float32(stride)) / scale
						y1 := (cy - bboxData[bboxIdx+1]*float32(stride)) / scale
						x2 := (cx + bboxData[bboxIdx+2]*float32(stride)) / scale
						y2 := (cy + bboxData[bboxIdx+3]*float32(stride)) / scale

						boxes = append(boxes, faceBox{
							x1:    clamp(x1, 0, float32(origWidth)),
							y1:    clamp(y1, 0, float32(origHeight)),
							x2:    clamp(x2, 0, float32(origWidth)),
							y2:    clamp(y2, 0, float32(origHeight)),
							score: score,
						})
					}
					anchorIdx++
				}
			}
		}
	}

	return boxes
}

func (f *faceFinder) close() error {
	return f.session.Destroy()
}

func sigmoid(x float32) float32 {
	return 1.0 / (1.0 + float32(math.Exp(float64(-x))))
}

func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func bytesToFloat32(data []byte) []float32 {
	result := make([]float32, len(data)/4)
	for i := range result {
		bits := uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
		result[i] = math.Float32frombits(bits)
	}
	return result
}

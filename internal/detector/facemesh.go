package detector

import (
	"fmt"
	"image"

	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"github.com/dudu/eyescreen/internal/inference"
)

// faceMesh runs the dense landmark model over a detected face region and
// returns MeshPointCount points in source-image pixel coordinates.
type faceMesh struct {
	session   *inference.Session
	inputSize int
	inputMean float32
	inputStd  float32
}

func newFaceMesh(modelPath string) (*faceMesh, error) {
	inputNames := []string{"data"}
	outputNames := []string{"landmarks"}

	session, err := inference.NewSession(modelPath, inputNames, outputNames)
	if err != nil {
		return nil, fmt.Errorf("create face mesh session: %w", err)
	}

	return &faceMesh{
		session:   session,
		inputSize: 192,
		inputMean: 127.5,
		inputStd:  128.0,
	}, nil
}

// detect extracts the mesh for one face box. Points come back in pixel
// coordinates of the source image.
func (m *faceMesh) detect(img gocv.Mat, box faceBox) ([]Point, error) {
	// Crop with 1.5x expansion around the box center so the whole face,
	// eyebrows included, lands inside the model input.
	w := box.width()
	h := box.height()
	centerX, centerY := box.center()
	maxDim := w
	if h > w {
		maxDim = h
	}
	scale := float32(m.inputSize) / (maxDim * 1.5)

	M := m.transformMatrix(centerX, centerY, scale)

	aligned := gocv.NewMat()
	defer aligned.Close()
	gocv.WarpAffine(img, &aligned, M, image.Pt(m.inputSize, m.inputSize))
	M.Close()

	rgb := gocv.NewMat()
	gocv.CvtColor(aligned, &rgb, gocv.ColorBGRToRGB)
	defer rgb.Close()

	floatMat := gocv.NewMat()
	rgb.ConvertTo(&floatMat, gocv.MatTypeCV32FC3)
	defer floatMat.Close()

	gocv.AddWeighted(floatMat, 1.0/float64(m.inputStd), floatMat, 0, -float64(m.inputMean)/float64(m.inputStd), &floatMat)

	blob := gocv.BlobFromImage(floatMat, 1.0, image.Pt(m.inputSize, m.inputSize),
		gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	blobData := blob.ToBytes()
	floatData := bytesToFloat32(blobData)

	inputTensor, err := ort.NewTensor(
		ort.NewShape(1, 3, int64(m.inputSize), int64(m.inputSize)),
		floatData,
	)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputTensor, err := inference.CreateEmptyTensor[float32]([]int64{1, int64(MeshPointCount * 2)})
	if err != nil {
		return nil, fmt.Errorf("create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	if err := m.session.Run([]ort.Value{inputTensor}, []ort.Value{outputTensor}); err != nil {
		return nil, fmt.Errorf("face mesh inference: %w", err)
	}

	return m.postprocess(outputTensor.GetData(), centerX, centerY, scale), nil
}

// transformMatrix builds the affine crop transform (scale + translate).
func (m *faceMesh) transformMatrix(centerX, centerY, scale float32) gocv.Mat {
	M := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)

	M.SetDoubleAt(0, 0, float64(scale))
	M.SetDoubleAt(0, 1, 0)
	M.SetDoubleAt(0, 2, float64(m.inputSize)/2-float64(centerX*scale))
	M.SetDoubleAt(1, 0, 0)
	M.SetDoubleAt(1, 1, float64(scale))
	M.SetDoubleAt(1, 2, float64(m.inputSize)/2-float64(centerY*scale))

	return M
}

// postprocess maps model output from [-1,1] crop space back to source-image
// pixel coordinates.
func (m *faceMesh) postprocess(output []float32, centerX, centerY, scale float32) []Point {
	points := make([]Point, MeshPointCount)
	halfSize := float32(m.inputSize) / 2

	for i := 0; i < MeshPointCount; i++ {
		x := (output[i*2] + 1) * halfSize
		y := (output[i*2+1] + 1) * halfSize

		points[i] = Point{
			X: float64((x-halfSize)/scale + centerX),
			Y: float64((y-halfSize)/scale + centerY),
		}
	}

	return points
}

func (m *faceMesh) close() error {
	return m.session.Destroy()
}

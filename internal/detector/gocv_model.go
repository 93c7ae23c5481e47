package detector

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// GocvModel implements Model with OpenCV's dnn module. It expects a
// YOLO-style output tensor shaped [1, 4+classes, anchors].
type GocvModel struct {
	net    gocv.Net
	width  int
	height int
	mu     sync.Mutex
}

// NewGocvModel loads a network file (ONNX, TFLite, Caffe...) readable by gocv.ReadNet.
func NewGocvModel(modelPath string, width, height int) (*GocvModel, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid model input size %dx%d", width, height)
	}

	net := gocv.ReadNet(modelPath, "")
	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("load model %s: network is empty", modelPath)
	}

	return &GocvModel{net: net, width: width, height: height}, nil
}

// InputSize implements Model.
func (m *GocvModel) InputSize() (int, int) {
	return m.width, m.height
}

// Infer implements Model. OpenCV cannot abort a forward pass, so ctx is only
// checked before the pass starts.
func (m *GocvModel) Infer(ctx context.Context, img image.Image) (RawOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return RawOutput{}, err
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return RawOutput{}, fmt.Errorf("convert frame: %w", err)
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(m.width, m.height), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	m.net.SetInput(blob, "")
	out := m.net.Forward("")
	defer out.Close()

	return decodeTensor(&out)
}

// decodeTensor copies a [1, 4+classes, anchors] tensor into a RawOutput.
func decodeTensor(out *gocv.Mat) (RawOutput, error) {
	dims := out.Size()
	if len(dims) != 3 || dims[1] <= 4 {
		return RawOutput{}, fmt.Errorf("unexpected output shape %v", dims)
	}
	rows, anchors := dims[1], dims[2]

	raw := RawOutput{
		Boxes:  make([][4]float32, anchors),
		Scores: make([][]float32, anchors),
	}
	for i := 0; i < anchors; i++ {
		for k := 0; k < 4; k++ {
			raw.Boxes[i][k] = out.GetFloatAt3(0, k, i)
		}
		scores := make([]float32, rows-4)
		for c := range scores {
			scores[c] = out.GetFloatAt3(0, c+4, i)
		}
		raw.Scores[i] = scores
	}
	return raw, nil
}

// Close releases the network.
func (m *GocvModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.net.Close()
}

package ai

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"wastedetect/internal/models"
	"wastedetect/internal/service/ai/yolo"
)

type opencvBackend struct {
	net       gocv.Net
	inputSize int
	opts      yolo.Options
}

// newOpenCVBackend loads an ONNX export through the OpenCV DNN module and
// pins it to the CPU.
func newOpenCVBackend(modelPath string, inputSize int, opts yolo.Options) (*opencvBackend, error) {
	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, errors.Errorf("failed to load network from %s", modelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return nil, errors.New("failed to set preferable backend or target")
	}

	return &opencvBackend{net: net, inputSize: inputSize, opts: opts}, nil
}

func (b *opencvBackend) Infer(img *image.RGBA) ([]models.RawDetection, error) {
	square, side := yolo.PadSquare(img)

	mat, err := gocv.ImageToMatRGB(square)
	if err != nil {
		return nil, errors.Wrap(err, "failed to convert image to mat")
	}
	defer mat.Close()

	// ImageToMatRGB yields BGR; swapRB feeds the network RGB.
	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(b.inputSize, b.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	b.net.SetInput(blob, "")
	output := b.net.Forward("")
	defer output.Close()

	if output.Empty() {
		return nil, errors.New("network returned an empty output")
	}

	dims := output.Size()
	shape := make([]int64, len(dims))
	for i, d := range dims {
		shape[i] = int64(d)
	}

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read network output")
	}

	frame := yolo.Frame{
		Scale:  float64(side) / float64(b.inputSize),
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}
	return yolo.Decode(data, shape, frame, b.opts)
}

func (b *opencvBackend) Close() error {
	return b.net.Close()
}

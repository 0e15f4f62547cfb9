package ai

import (
	"image"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"wastedetect/internal/models"
	"wastedetect/internal/service/ai/yolo"
)

var (
	ortOnce sync.Once
	ortErr  error
)

func initONNXRuntime(sharedLibraryPath string) error {
	ortOnce.Do(func() {
		if sharedLibraryPath != "" {
			ort.SetSharedLibraryPath(sharedLibraryPath)
		}
		if !ort.IsInitialized() {
			ortErr = ort.InitializeEnvironment()
		}
	})
	return errors.Wrap(ortErr, "failed to initialize ONNX environment")
}

func destroyONNXRuntime() {
	if ort.IsInitialized() {
		_ = ort.DestroyEnvironment()
	}
}

type onnxBackend struct {
	session     *ort.AdvancedSession
	input       *ort.Tensor[float32]
	output      *ort.Tensor[float32]
	outputShape []int64
	inputSize   int
	opts        yolo.Options
}

func newONNXBackend(modelPath string, inputSize int, opts yolo.Options) (*onnxBackend, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to inspect model inputs")
	}
	if len(inputs) != 1 || len(outputs) < 1 {
		return nil, errors.Errorf("expected one input and at least one output, got %d and %d", len(inputs), len(outputs))
	}

	inputShape, size, err := resolveInputShape(inputs[0].Dimensions, inputSize)
	if err != nil {
		return nil, err
	}
	outputShape := []int64(outputs[0].Dimensions)
	for _, d := range outputShape {
		if d <= 0 {
			return nil, errors.Errorf("dynamic output shape %v is not supported, export with a fixed image size", outputShape)
		}
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(inputShape...))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create input tensor")
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(outputShape...))
	if err != nil {
		inputTensor.Destroy()
		return nil, errors.Wrap(err, "failed to create output tensor")
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name},
		[]ort.Value{inputTensor}, []ort.Value{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, errors.Wrap(err, "failed to create ONNX session")
	}

	return &onnxBackend{
		session:     session,
		input:       inputTensor,
		output:      outputTensor,
		outputShape: outputShape,
		inputSize:   size,
		opts:        opts,
	}, nil
}

// resolveInputShape fills dynamic dimensions of an NCHW input with a batch of
// one and the configured square size.
func resolveInputShape(dims ort.Shape, fallbackSize int) ([]int64, int, error) {
	if len(dims) != 4 {
		return nil, 0, errors.Errorf("expected NCHW input, got shape %v", dims)
	}
	shape := []int64{1, 3, dims[2], dims[3]}
	for i := 2; i < 4; i++ {
		if shape[i] <= 0 {
			shape[i] = int64(fallbackSize)
		}
	}
	if dims[1] > 0 && dims[1] != 3 {
		return nil, 0, errors.Errorf("expected 3 input channels, got %d", dims[1])
	}
	if shape[2] != shape[3] {
		return nil, 0, errors.Errorf("expected a square input, got %dx%d", shape[3], shape[2])
	}
	return shape, int(shape[2]), nil
}

func (b *onnxBackend) Infer(img *image.RGBA) ([]models.RawDetection, error) {
	data, frame := yolo.Letterbox(img, b.inputSize)
	copy(b.input.GetData(), data)

	if err := b.session.Run(); err != nil {
		return nil, errors.Wrap(err, "inference failed")
	}

	return yolo.Decode(b.output.GetData(), b.outputShape, frame, b.opts)
}

func (b *onnxBackend) Close() error {
	var firstErr error
	for _, destroy := range []func() error{b.session.Destroy, b.input.Destroy, b.output.Destroy} {
		if err := destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// onnxClassNames reads the "names" entry exported into the model metadata.
func onnxClassNames(modelPath string) (models.ClassNames, error) {
	metadata, err := ort.GetModelMetadata(modelPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read model metadata")
	}
	defer metadata.Destroy()

	value, ok, err := metadata.LookupCustomMetadataMap("names")
	if err != nil {
		return nil, errors.Wrap(err, "failed to look up class names")
	}
	if !ok {
		return nil, errors.New("model metadata has no names entry")
	}
	return models.ParseClassNames([]byte(value))
}

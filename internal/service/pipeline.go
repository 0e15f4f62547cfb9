package service

import (
	"image"

	"wastedetect/internal/dto"
	"wastedetect/internal/logger"
	"wastedetect/internal/models"
	"wastedetect/internal/service/imaging"
)

// Detector is the pretrained model as seen by the pipeline.
type Detector interface {
	Detect(img image.Image) ([]models.RawDetection, error)
	ClassNames() models.ClassNames
}

// Pipeline runs one detection request: decode, detect, map, annotate, encode.
// It holds no per-request state and is safe for concurrent use as long as the
// Detector is.
type Pipeline struct {
	detector  Detector
	annotator *imaging.Annotator
	maxPixels int64
	logger    *logger.Logger
}

// NewPipeline wires the stages together. A nil detector marks the model as
// unavailable for the lifetime of the pipeline. Uploads declaring more than
// maxPixels pixels fail to decode.
func NewPipeline(detector Detector, annotator *imaging.Annotator, maxPixels int64, logger *logger.Logger) *Pipeline {
	return &Pipeline{
		detector:  detector,
		annotator: annotator,
		maxPixels: maxPixels,
		logger:    logger,
	}
}

// ModelLoaded reports whether a detector was available at startup.
func (p *Pipeline) ModelLoaded() bool {
	return p.detector != nil
}

// Detect processes one uploaded image. Errors are *Error values.
func (p *Pipeline) Detect(data []byte) (*dto.DetectResponse, error) {
	if !p.ModelLoaded() {
		return nil, ErrModelUnavailable
	}

	img, format, err := imaging.Decode(data, p.maxPixels)
	if err != nil {
		return nil, newDecodeError(err)
	}
	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	p.logger.Info("Image loaded: %dx%d (%s)", width, height, format)

	raw, err := p.detector.Detect(img)
	if err != nil {
		p.logger.Error("Detection failed: %v", err)
		return nil, newInferenceError(err)
	}

	detections := MapDetections(raw, p.detector.ClassNames())
	for _, d := range detections {
		p.logger.Info("Detection: %s (%.2f%%) at %v", d.ClassName, d.Confidence*100, d.Box)
	}

	annotated := p.annotator.Annotate(img, detections)
	encoded, err := imaging.EncodeDataURI(annotated)
	if err != nil {
		p.logger.Error("Failed to encode annotated image: %v", err)
		return nil, newEncodeError(err)
	}

	summary := models.Summarize(detections)
	p.logger.Info("Summary: %d detection(s), classes %v, highest confidence %.4f",
		summary.TotalDetections, summary.ClassesFound, summary.HighestConfidence)

	return &dto.DetectResponse{
		Success:         true,
		Detections:      detections,
		AnnotatedImage:  encoded,
		Summary:         summary,
		ImageDimensions: dto.ImageDimensions{Width: width, Height: height},
	}, nil
}

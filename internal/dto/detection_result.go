package dto

import "wastedetect/internal/models"

type ImageDimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DetectResponse is the body of a successful POST /detect.
type DetectResponse struct {
	Success         bool               `json:"success"`
	Detections      []models.Detection `json:"detections"`
	AnnotatedImage  string             `json:"annotated_image"`
	Summary         models.Summary     `json:"summary"`
	ImageDimensions ImageDimensions    `json:"image_dimensions"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

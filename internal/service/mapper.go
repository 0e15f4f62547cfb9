package service

import "wastedetect/internal/models"

// MapDetections resolves class ids through names. Every raw detection yields
// exactly one Detection, in the detector's order; nothing is filtered.
func MapDetections(raw []models.RawDetection, names models.ClassNames) []models.Detection {
	detections := make([]models.Detection, 0, len(raw))
	for _, r := range raw {
		detections = append(detections, models.Detection{
			ClassName:  names.Lookup(r.ClassID),
			Confidence: r.Confidence,
			Box:        r.Box,
		})
	}
	return detections
}

package models

// UnknownClass is the label used for class ids missing from the model's table.
const UnknownClass = "Unknown"

// Box is a bounding box (x1, y1, x2, y2) in pixel coordinates of the original image.
type Box [4]float64

func (b Box) X1() float64 { return b[0] }
func (b Box) Y1() float64 { return b[1] }
func (b Box) X2() float64 { return b[2] }
func (b Box) Y2() float64 { return b[3] }

// Width of the box, never negative.
func (b Box) Width() float64 {
	if b[2] < b[0] {
		return 0
	}
	return b[2] - b[0]
}

// Height of the box, never negative.
func (b Box) Height() float64 {
	if b[3] < b[1] {
		return 0
	}
	return b[3] - b[1]
}

// Area of the box.
func (b Box) Area() float64 {
	return b.Width() * b.Height()
}

// RawDetection is a single detector output before class-name resolution.
type RawDetection struct {
	ClassID    int
	Confidence float64
	Box        Box
}

// Detection represents a detected object in an image.
type Detection struct {
	ClassName  string  `json:"class"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// Summary holds statistics derived from a detection list.
type Summary struct {
	TotalDetections   int      `json:"total_detections"`
	ClassesFound      []string `json:"classes_found"`
	HighestConfidence float64  `json:"highest_confidence"`
}

// Summarize derives a Summary. ClassesFound lists distinct class names in
// order of first appearance and is never nil.
func Summarize(detections []Detection) Summary {
	summary := Summary{
		TotalDetections: len(detections),
		ClassesFound:    make([]string, 0),
	}

	seen := make(map[string]struct{}, len(detections))
	for i, d := range detections {
		if _, ok := seen[d.ClassName]; !ok {
			seen[d.ClassName] = struct{}{}
			summary.ClassesFound = append(summary.ClassesFound, d.ClassName)
		}
		if i == 0 || d.Confidence > summary.HighestConfidence {
			summary.HighestConfidence = d.Confidence
		}
	}

	return summary
}

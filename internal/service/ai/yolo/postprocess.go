// Package yolo holds the backend-independent parts of YOLOv8 inference:
// letterboxing, tensor layout and output decoding with non-maximum suppression.
package yolo

import (
	"fmt"
	"math"
	"sort"

	"wastedetect/internal/models"
)

// Options mirror the detector's own defaults (conf 0.25, IoU 0.7, 300 boxes).
type Options struct {
	ConfThreshold float64
	IoUThreshold  float64
	MaxDetections int
}

func DefaultOptions() Options {
	return Options{ConfThreshold: 0.25, IoUThreshold: 0.7, MaxDetections: 300}
}

// Frame describes how network coordinates map back to the original image.
type Frame struct {
	Scale  float64 // original pixels per network pixel
	Width  int     // original image width
	Height int     // original image height
}

// Decode parses a YOLOv8 detection head output of shape [1, 4+nc, n] (or
// [4+nc, n]): per anchor a center-x, center-y, width, height row followed by
// one score row per class. The result is sorted by confidence, descending.
func Decode(output []float32, shape []int64, frame Frame, opts Options) ([]models.RawDetection, error) {
	rows, cols, err := outputLayout(shape)
	if err != nil {
		return nil, err
	}
	if len(output) != rows*cols {
		return nil, fmt.Errorf("output has %d values, shape %v needs %d", len(output), shape, rows*cols)
	}

	numClasses := rows - 4
	var candidates []models.RawDetection

	for i := 0; i < cols; i++ {
		classID, score := 0, float32(0)
		for c := 0; c < numClasses; c++ {
			if s := output[(4+c)*cols+i]; s > score {
				classID, score = c, s
			}
		}
		if float64(score) <= opts.ConfThreshold {
			continue
		}

		cx := float64(output[i])
		cy := float64(output[cols+i])
		w := float64(output[2*cols+i])
		h := float64(output[3*cols+i])

		box := models.Box{
			clip((cx-w/2)*frame.Scale, frame.Width),
			clip((cy-h/2)*frame.Scale, frame.Height),
			clip((cx+w/2)*frame.Scale, frame.Width),
			clip((cy+h/2)*frame.Scale, frame.Height),
		}

		candidates = append(candidates, models.RawDetection{
			ClassID:    classID,
			Confidence: float64(score),
			Box:        box,
		})
	}

	return NMS(candidates, opts.IoUThreshold, opts.MaxDetections), nil
}

func outputLayout(shape []int64) (rows, cols int, err error) {
	switch len(shape) {
	case 3:
		if shape[0] != 1 {
			return 0, 0, fmt.Errorf("unsupported batch size %d", shape[0])
		}
		rows, cols = int(shape[1]), int(shape[2])
	case 2:
		rows, cols = int(shape[0]), int(shape[1])
	default:
		return 0, 0, fmt.Errorf("unsupported output shape %v", shape)
	}
	if rows < 5 || cols < 1 {
		return 0, 0, fmt.Errorf("unsupported output shape %v", shape)
	}
	return rows, cols, nil
}

// NMS keeps the highest-scoring box of every group of same-class boxes that
// overlap by more than iouThreshold. maxDetections <= 0 means no limit.
func NMS(candidates []models.RawDetection, iouThreshold float64, maxDetections int) []models.RawDetection {
	sorted := make([]models.RawDetection, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	kept := make([]models.RawDetection, 0, len(sorted))
	suppressed := make([]bool, len(sorted))

	for i := range sorted {
		if suppressed[i] {
			continue
		}
		kept = append(kept, sorted[i])
		if maxDetections > 0 && len(kept) == maxDetections {
			break
		}
		for j := i + 1; j < len(sorted); j++ {
			if suppressed[j] || sorted[j].ClassID != sorted[i].ClassID {
				continue
			}
			if IoU(sorted[i].Box, sorted[j].Box) > iouThreshold {
				suppressed[j] = true
			}
		}
	}

	return kept
}

// IoU returns the intersection over union of two boxes.
func IoU(a, b models.Box) float64 {
	ix := math.Min(a.X2(), b.X2()) - math.Max(a.X1(), b.X1())
	iy := math.Min(a.Y2(), b.Y2()) - math.Max(a.Y1(), b.Y1())
	if ix <= 0 || iy <= 0 {
		return 0
	}
	inter := ix * iy
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func clip(v float64, limit int) float64 {
	return math.Max(0, math.Min(v, float64(limit)))
}

// Package inference shares loaded model backends between concurrent requests
// and resolves the class table a model reports with.
package inference

import (
	"fmt"
	"image"

	"wastedetect/internal/models"
	"wastedetect/internal/service/imaging"
)

// Backend is one loaded copy of the network. Backends hold mutable session
// buffers and are used by a single request at a time.
type Backend interface {
	Infer(img *image.RGBA) ([]models.RawDetection, error)
	Close() error
}

// Pool lends backends to callers, one per Detect call.
type Pool struct {
	kind string
	free chan Backend
	all  []Backend
}

// NewPool creates an empty pool able to hold size backends of the given kind.
func NewPool(kind string, size int) *Pool {
	return &Pool{
		kind: kind,
		free: make(chan Backend, size),
	}
}

// Add registers a loaded backend. It must be called before the pool is shared
// and at most size times.
func (p *Pool) Add(b Backend) {
	p.all = append(p.all, b)
	p.free <- b
}

// Size returns the number of registered backends.
func (p *Pool) Size() int {
	return len(p.all)
}

// Detect runs inference on img with the next free backend, blocking until one
// is available. The backend goes back to the pool even if it fails or panics.
func (p *Pool) Detect(img image.Image) (detections []models.RawDetection, err error) {
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) {
		rgba = imaging.ToRGB(img)
	}

	b := <-p.free
	defer func() { p.free <- b }()

	defer func() {
		if r := recover(); r != nil {
			detections, err = nil, fmt.Errorf("%s backend panicked: %v", p.kind, r)
		}
	}()

	return b.Infer(rgba)
}

// Close releases every backend and returns the first error. It must not be
// called while requests are in flight.
func (p *Pool) Close() error {
	var firstErr error
	for _, b := range p.all {
		if err := b.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	p.all = nil
	return firstErr
}

package ai

import (
	"image"
	"os"

	"github.com/pkg/errors"

	"wastedetect/internal/config"
	"wastedetect/internal/logger"
	"wastedetect/internal/models"
	"wastedetect/internal/service/ai/inference"
	"wastedetect/internal/service/ai/yolo"
)

// Model is the process-wide detector. It is built once at startup and only
// read afterwards; each Detect call borrows one backend from the pool.
type Model struct {
	pool    *inference.Pool
	names   models.ClassNames
	kind    string
	release func()
}

// Load reads the model configured in cfg and creates cfg.Model.Workers
// backend instances.
func Load(cfg *config.Config, logger *logger.Logger) (*Model, error) {
	if _, err := os.Stat(cfg.Model.Path); err != nil {
		return nil, errors.Wrapf(err, "model file not found: %s", cfg.Model.Path)
	}

	opts := yolo.Options{
		ConfThreshold: cfg.Model.ConfThreshold,
		IoUThreshold:  cfg.Model.IoUThreshold,
		MaxDetections: cfg.Model.MaxDetections,
	}

	m := &Model{
		pool:    inference.NewPool(cfg.Model.Backend, cfg.Model.Workers),
		kind:    cfg.Model.Backend,
		release: func() {},
	}

	var fromModel func() (models.ClassNames, error)
	if cfg.Model.Backend == config.BackendONNXRuntime {
		if err := initONNXRuntime(cfg.Model.SharedLibraryPath); err != nil {
			return nil, err
		}
		m.release = destroyONNXRuntime
		fromModel = func() (models.ClassNames, error) {
			return onnxClassNames(cfg.Model.Path)
		}
	}

	for i := 0; i < cfg.Model.Workers; i++ {
		var (
			b   inference.Backend
			err error
		)
		switch cfg.Model.Backend {
		case config.BackendONNXRuntime:
			b, err = newONNXBackend(cfg.Model.Path, cfg.Model.InputSize, opts)
		default:
			b, err = newOpenCVBackend(cfg.Model.Path, cfg.Model.InputSize, opts)
		}
		if err != nil {
			m.Close()
			return nil, errors.Wrapf(err, "failed to load model instance %d", i)
		}
		m.pool.Add(b)
	}

	m.names = inference.ResolveClassNames(cfg.Model.LabelsPath, fromModel, logger)
	logger.Info("Detection model loaded: %s (%s backend, %d instance(s), %d classes)",
		cfg.Model.Path, m.kind, m.pool.Size(), len(m.names))

	return m, nil
}

// ClassNames returns the model's id→name table.
func (m *Model) ClassNames() models.ClassNames {
	return m.names
}

// Detect runs inference on img. It blocks until a backend is free.
func (m *Model) Detect(img image.Image) ([]models.RawDetection, error) {
	return m.pool.Detect(img)
}

// Close releases every backend. It must not be called while requests are in flight.
func (m *Model) Close() error {
	err := m.pool.Close()
	m.release()
	return err
}

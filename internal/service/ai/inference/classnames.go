package inference

import (
	"io/fs"

	"github.com/pkg/errors"

	"wastedetect/internal/logger"
	"wastedetect/internal/models"
)

// ResolveClassNames prefers the labels file, then the names stored in the
// model itself (fromModel may be nil when the backend cannot read them), and
// finally an empty table.
func ResolveClassNames(labelsPath string, fromModel func() (models.ClassNames, error), logger *logger.Logger) models.ClassNames {
	if labelsPath != "" {
		names, err := models.LoadClassNames(labelsPath)
		if err == nil {
			return names
		}
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warning("Ignoring labels file %s: %v", labelsPath, err)
		}
	}

	if fromModel != nil {
		names, err := fromModel()
		if err == nil {
			return names
		}
		logger.Warning("Model metadata has no usable class names: %v", err)
	}

	logger.Warning("No class names available, every detection will be labelled %q", models.UnknownClass)
	return models.ClassNames{}
}

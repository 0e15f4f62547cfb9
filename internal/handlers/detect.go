package handlers

import (
	"io"
	"net/http"

	"github.com/pkg/errors"

	"wastedetect/internal/config"
	"wastedetect/internal/logger"
	"wastedetect/internal/service"
)

// ImageField is the multipart field carrying the upload.
const ImageField = "image"

// DetectHandler serves POST /detect. The model check comes before the upload
// is read, so a degraded server rejects requests without parsing them.
func DetectHandler(pipeline *service.Pipeline, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			respondError(w, logger, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if !pipeline.ModelLoaded() {
			respondServiceError(w, logger, service.ErrModelUnavailable)
			return
		}

		data, filename, err := readImage(w, r, cfg.Upload.MaxBytes)
		if err != nil {
			respondServiceError(w, logger, err)
			return
		}
		logger.Info("Received file: %s, size: %d bytes", filename, len(data))

		result, err := pipeline.Detect(data)
		if err != nil {
			respondServiceError(w, logger, err)
			return
		}

		respondJSON(w, logger, result, http.StatusOK)
	}
}

// readImage extracts the image field from a multipart upload of at most maxBytes.
func readImage(w http.ResponseWriter, r *http.Request, maxBytes int64) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return nil, "", service.ErrNoImage
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", service.NewValidationError("Image file too large", err)
		}
		return nil, "", service.NewValidationError("Failed to parse form", err)
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(ImageField)
	if err != nil {
		return nil, "", service.ErrNoImage
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", service.NewValidationError("Failed to read file", err)
	}

	return data, header.Filename, nil
}

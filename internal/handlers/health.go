package handlers

import (
	"net/http"

	"wastedetect/internal/dto"
	"wastedetect/internal/logger"
	"wastedetect/internal/service"
)

// HealthHandler serves GET /health. It always answers 200; model_loaded is
// fixed at startup.
func HealthHandler(pipeline *service.Pipeline, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			respondError(w, logger, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		respondJSON(w, logger, dto.HealthResponse{
			Status:      "healthy",
			ModelLoaded: pipeline.ModelLoaded(),
		}, http.StatusOK)
	}
}

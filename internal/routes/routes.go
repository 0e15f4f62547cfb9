package routes

import (
	"net/http"

	"wastedetect/internal/config"
	"wastedetect/internal/handlers"
	"wastedetect/internal/logger"
	"wastedetect/internal/middleware"
	"wastedetect/internal/service"
)

// SetupRoutes registers the detection and health endpoints and wraps the mux
// with request logging and CORS.
func SetupRoutes(pipeline *service.Pipeline, cfg *config.Config, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/detect", handlers.DetectHandler(pipeline, cfg, logger))
	mux.HandleFunc("/health", handlers.HealthHandler(pipeline, logger))

	return middleware.RequestLogger(logger)(middleware.CORS(mux))
}

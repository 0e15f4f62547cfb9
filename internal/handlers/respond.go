package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"wastedetect/internal/dto"
	"wastedetect/internal/logger"
	"wastedetect/internal/service"
)

func respondJSON(w http.ResponseWriter, logger *logger.Logger, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

func respondError(w http.ResponseWriter, logger *logger.Logger, message string, status int) {
	respondJSON(w, logger, dto.ErrorResponse{Error: message}, status)
}

// respondServiceError maps a classified error to its status and message.
// Unclassified errors never leak their text to the client.
func respondServiceError(w http.ResponseWriter, logger *logger.Logger, err error) {
	var e *service.Error
	if !errors.As(err, &e) {
		logger.Error("Unclassified error: %v", err)
		respondError(w, logger, "Internal server error", http.StatusInternalServerError)
		return
	}

	status := e.Kind.StatusCode()
	if status >= http.StatusInternalServerError {
		logger.Error("%s: %v", e.Kind, err)
	} else {
		logger.Warning("%s: %v", e.Kind, err)
	}
	respondError(w, logger, e.Error(), status)
}

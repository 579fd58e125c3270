package api

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/nijaru/yt-recap/errors"
	"github.com/nijaru/yt-recap/models"
	"github.com/nijaru/yt-recap/session"
	"github.com/sirupsen/logrus"
)

// respondJSON writes payload as the whole response body. The completion
// endpoints return the model's object directly, without an envelope.
func respondJSON(w http.ResponseWriter, r *http.Request, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.WithFields(logrus.Fields{
			"error":      err,
			"request_id": session.RequestID(r.Context()),
		}).Error("Failed to encode response")
	}
}

// respondError reports err as {"error": err.Error()} with the given status.
func respondError(w http.ResponseWriter, r *http.Request, logger *logrus.Logger, code int, err error) {
	fields := logrus.Fields{
		"error":      err,
		"kind":       errors.KindOf(err),
		"status":     code,
		"request_id": session.RequestID(r.Context()),
		"path":       r.URL.Path,
		"method":     r.Method,
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) && appErr.Op != "" {
		fields["op"] = appErr.Op
	}
	logger.WithContext(r.Context()).WithFields(fields).Error("Request error")

	respondJSON(w, r, code, models.ErrorResponse{Error: err.Error()})
}

func readJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.InvalidInput("readJSON", err, "Invalid JSON format")
	}
	return nil
}

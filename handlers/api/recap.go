package api

import (
	"context"
	"net/http"

	"github.com/nijaru/yt-recap/models"
	"github.com/nijaru/yt-recap/services/recap"
	"github.com/nijaru/yt-recap/validation"
	"github.com/sirupsen/logrus"
)

type RecapHandler struct {
	service   recap.Service
	validator *validation.Validator
	logger    *logrus.Logger
}

func NewRecapHandler(service recap.Service, validator *validation.Validator, logger *logrus.Logger) *RecapHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RecapHandler{
		service:   service,
		validator: validator,
		logger:    logger,
	}
}

// HandleGenerateTweet handles POST /api/generate-tweet
func (h *RecapHandler) HandleGenerateTweet(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, "RecapHandler.HandleGenerateTweet", h.service.GenerateTweet)
}

// HandleGenerate handles POST /api/generate
func (h *RecapHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, "RecapHandler.HandleGenerate", h.service.Analyze)
}

// handle runs one completion request. Every failure, including a bad body,
// is reported with status 500 and the error text.
func (h *RecapHandler) handle(
	w http.ResponseWriter,
	r *http.Request,
	op string,
	generate func(ctx context.Context, link string) (models.Completion, error),
) {
	if err := h.validator.ValidateRequest(r, validation.RequestValidationOpts{
		MaxContentLength: h.validator.MaxBodyBytes(),
		AllowedMethods:   []string{http.MethodPost},
		RequireJSON:      true,
	}); err != nil {
		respondError(w, r, h.logger, http.StatusInternalServerError, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.validator.MaxBodyBytes())

	var req models.RecapRequest
	if err := readJSON(r, &req); err != nil {
		respondError(w, r, h.logger, http.StatusInternalServerError, err)
		return
	}

	// The link is matched exactly against stored records, so an empty or
	// malformed one is left to the lookup and reported as a video error.
	h.logger.WithContext(r.Context()).WithFields(logrus.Fields{
		"op":   op,
		"link": req.YoutubeLink,
	}).Debug("Processing request")

	result, err := generate(r.Context(), req.YoutubeLink)
	if err != nil {
		respondError(w, r, h.logger, http.StatusInternalServerError, err)
		return
	}

	respondJSON(w, r, http.StatusOK, result)
}

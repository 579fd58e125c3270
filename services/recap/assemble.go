package recap

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/nijaru/yt-recap/errors"
	"github.com/nijaru/yt-recap/models"
	"github.com/sirupsen/logrus"
)

// parseCompletion decodes a model reply as a JSON object. Anything else,
// including an empty reply, yields an empty object.
func parseCompletion(raw string, logger *logrus.Entry) models.Completion {
	const op = "recap.parseCompletion"

	if strings.TrimSpace(raw) == "" {
		return models.Completion{}
	}

	var result models.Completion
	if err := json.Unmarshal([]byte(raw), &result); err != nil || result == nil {
		logger.WithError(errors.MalformedPayload(op, err, "completion is not a JSON object")).
			WithField("payload_size", len(raw)).
			Warn("Discarding completion payload")
		return models.Completion{}
	}

	return result
}

// attachThumbnail sets thumbnailUrl from the first segment. With no segments
// the key is removed, even if the model supplied one.
func (s *service) attachThumbnail(ctx context.Context, result models.Completion, rec *models.VideoRecord, logger *logrus.Entry) {
	first, ok := rec.FirstSegment()
	if !ok {
		delete(result, models.KeyThumbnailURL)
		return
	}
	result[models.KeyThumbnailURL] = s.resolveImage(ctx, first.StorageURL, logger)
}

// attachImages sets images to a map of every segment start to its image.
func (s *service) attachImages(ctx context.Context, result models.Completion, rec *models.VideoRecord, logger *logrus.Entry) {
	images := make(map[string]string, len(rec.Segments))
	for _, seg := range rec.Segments {
		images[models.FormatStart(seg.Start)] = s.resolveImage(ctx, seg.StorageURL, logger)
	}
	result[models.KeyImages] = images
}

func (s *service) resolveImage(ctx context.Context, ref string, logger *logrus.Entry) string {
	link, err := s.images.Resolve(ctx, ref)
	if err != nil {
		logger.WithError(err).WithField("ref", ref).Warn("Image resolution failed, using stored reference")
		return ref
	}
	return link
}

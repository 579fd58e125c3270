package recap

import (
	"context"

	"github.com/nijaru/yt-recap/completion"
	"github.com/nijaru/yt-recap/errors"
	"github.com/nijaru/yt-recap/models"
	"github.com/nijaru/yt-recap/prompt"
	"github.com/nijaru/yt-recap/repository"
	"github.com/nijaru/yt-recap/services/lookup"
	"github.com/nijaru/yt-recap/session"
	"github.com/nijaru/yt-recap/storage"
	"github.com/sirupsen/logrus"
)

type service struct {
	gateway repository.Gateway
	llm     completion.Client
	images  storage.Resolver
	config  Config
	logger  *logrus.Logger
}

// NewService wires the recap service. A nil resolver leaves image
// references unchanged.
func NewService(
	gateway repository.Gateway,
	llm completion.Client,
	images storage.Resolver,
	config Config,
	logger *logrus.Logger,
) Service {
	if images == nil {
		images = storage.Passthrough{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &service{
		gateway: gateway,
		llm:     llm,
		images:  images,
		config:  config,
		logger:  logger,
	}
}

func (s *service) GenerateTweet(ctx context.Context, link string) (models.Completion, error) {
	const op = "RecapService.GenerateTweet"
	logger := s.entry(ctx, op, link)

	rec, err := lookup.Resolve(ctx, s.gateway, link)
	if err != nil {
		logger.WithError(err).Warn("Video lookup failed")
		return nil, err
	}

	raw, err := s.llm.Complete(ctx, completion.Request{
		Model:  s.config.TweetModel,
		System: prompt.TweetSystem,
		Prompt: prompt.Tweet(rec.Transcript),
	})
	if err != nil {
		logger.WithError(err).Error("Completion request failed")
		return nil, errors.Upstream(op, err, "Completion error")
	}

	result := parseCompletion(raw, logger)
	s.attachThumbnail(ctx, result, rec, logger)

	logger.WithField("video_id", rec.ID).Info("Tweet generated")
	return result, nil
}

func (s *service) Analyze(ctx context.Context, link string) (models.Completion, error) {
	const op = "RecapService.Analyze"
	logger := s.entry(ctx, op, link)

	rec, err := lookup.Resolve(ctx, s.gateway, link)
	if err != nil {
		logger.WithError(err).Warn("Video lookup failed")
		return nil, err
	}

	raw, err := s.llm.Complete(ctx, completion.Request{
		Model:  s.config.AnalysisModel,
		System: prompt.AnalysisSystem,
		Prompt: prompt.Analysis(rec.Transcript, rec.Segments),
	})
	if err != nil {
		logger.WithError(err).Error("Completion request failed")
		return nil, errors.Upstream(op, err, "Completion error")
	}

	result := parseCompletion(raw, logger)
	s.attachImages(ctx, result, rec, logger)

	logger.WithFields(logrus.Fields{
		"video_id": rec.ID,
		"segments": len(rec.Segments),
	}).Info("Analysis generated")
	return result, nil
}

func (s *service) entry(ctx context.Context, op, link string) *logrus.Entry {
	fields := logrus.Fields{
		"op":   op,
		"link": link,
	}
	if id := session.RequestID(ctx); id != "" {
		fields["request_id"] = id
	}
	return s.logger.WithContext(ctx).WithFields(fields)
}

package recap

import (
	"context"

	"github.com/nijaru/yt-recap/models"
)

type Service interface {
	// GenerateTweet drafts a post for the video at link. The result carries
	// "thumbnailUrl" when the video has at least one segment.
	GenerateTweet(ctx context.Context, link string) (models.Completion, error)
	// Analyze summarizes the video at link. The result always carries
	// "images", keyed by segment start.
	Analyze(ctx context.Context, link string) (models.Completion, error)
}

type Config struct {
	TweetModel    string
	AnalysisModel string
}

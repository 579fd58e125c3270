package repository

import (
	"context"

	"github.com/nijaru/yt-recap/models"
	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when a single-row lookup matches no rows.
	ErrNotFound = errors.New("no rows returned")
	// ErrAmbiguous is returned when a single-row lookup matches more than one row.
	ErrAmbiguous = errors.New("multiple rows returned")
)

// Gateway reads the stored video data. All methods are read-only.
type Gateway interface {
	FindVideoID(ctx context.Context, link string) (string, error)
	FindTranscript(ctx context.Context, videoID string) (string, error)
	FindSegments(ctx context.Context, videoID string) ([]models.Segment, error)
}

// Closer is implemented by gateways holding a connection that must be
// released on shutdown.
type Closer interface {
	Close() error
}

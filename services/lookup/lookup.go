// Package lookup resolves a video link to its stored transcript and segments.
package lookup

import (
	"context"
	stderrors "errors"
	"sort"

	"github.com/nijaru/yt-recap/errors"
	"github.com/nijaru/yt-recap/models"
	"github.com/nijaru/yt-recap/repository"
)

// Resolve runs the three datastore lookups for link in order: video id,
// transcript, segments. Any failure stops the sequence and is returned as a
// lookup error whose message names the failing step. Segments come back
// sorted by start; an empty segment list is not an error.
func Resolve(ctx context.Context, gw repository.Gateway, link string) (*models.VideoRecord, error) {
	const op = "lookup.Resolve"

	id, err := gw.FindVideoID(ctx, link)
	if err != nil {
		return nil, errors.Lookup(op, err, "Video error")
	}

	transcript, err := gw.FindTranscript(ctx, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) && !hasMessage(err) {
			return nil, errors.Lookup(op, nil, "Transcript error: No transcript found")
		}
		return nil, errors.Lookup(op, err, "Transcript error")
	}

	segments, err := gw.FindSegments(ctx, id)
	if err != nil {
		return nil, errors.Lookup(op, err, "Segments error")
	}
	if segments == nil {
		segments = []models.Segment{}
	}
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Start < segments[j].Start
	})

	return &models.VideoRecord{
		ID:         id,
		Link:       link,
		Transcript: transcript,
		Segments:   segments,
	}, nil
}

// hasMessage reports whether err carries a server-supplied message worth
// showing instead of the generic not-found text.
func hasMessage(err error) bool {
	type messager interface{ ServerMessage() string }
	var m messager
	return stderrors.As(err, &m) && m.ServerMessage() != ""
}

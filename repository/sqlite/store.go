package sqlite

import (
	"context"
	"database/sql"

	"github.com/nijaru/yt-recap/models"
	"github.com/nijaru/yt-recap/repository"
	pkgerrors "github.com/pkg/errors"
)

const (
	videoIDQuery = `
        SELECT id FROM youtube_table
        WHERE youtube_link = ?
        LIMIT 2
    `

	transcriptQuery = `
        SELECT full_text FROM transcripts
        WHERE youtube_id = ?
        LIMIT 2
    `

	segmentsQuery = `
        SELECT start, text, storage_url
        FROM segments
        WHERE youtube_id = ?
        ORDER BY start ASC
    `

	insertVideoQuery = `
        INSERT INTO youtube_table (id, youtube_link) VALUES (?, ?)
        ON CONFLICT(id) DO UPDATE SET youtube_link = excluded.youtube_link
    `

	deleteTranscriptsQuery = `DELETE FROM transcripts WHERE youtube_id = ?`
	insertTranscriptQuery  = `INSERT INTO transcripts (youtube_id, full_text) VALUES (?, ?)`
	deleteSegmentsQuery    = `DELETE FROM segments WHERE youtube_id = ?`
	insertSegmentQuery     = `INSERT INTO segments (youtube_id, start, text, storage_url) VALUES (?, ?, ?, ?)`
)

// Store is a Gateway over a local sqlite database.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open initializes the database at path and returns a Store over it.
func Open(path string) (*Store, error) {
	db, err := InitDB(path)
	if err != nil {
		return nil, err
	}
	return NewStore(db), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) FindVideoID(ctx context.Context, link string) (string, error) {
	id, err := queryOne(ctx, s.db, videoIDQuery, link)
	if err != nil {
		return "", pkgerrors.Wrap(err, "youtube_table")
	}
	return id, nil
}

func (s *Store) FindTranscript(ctx context.Context, videoID string) (string, error) {
	text, err := queryOne(ctx, s.db, transcriptQuery, videoID)
	if err != nil {
		return "", pkgerrors.Wrap(err, "transcripts")
	}
	return text, nil
}

func (s *Store) FindSegments(ctx context.Context, videoID string) ([]models.Segment, error) {
	rows, err := s.db.QueryContext(ctx, segmentsQuery, videoID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "segments")
	}
	defer rows.Close()

	segments := []models.Segment{}
	for rows.Next() {
		var seg models.Segment
		if err := rows.Scan(&seg.Start, &seg.Text, &seg.StorageURL); err != nil {
			return nil, pkgerrors.Wrap(err, "scan segment")
		}
		segments = append(segments, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.Wrap(err, "segments")
	}

	return segments, nil
}

// SaveVideo writes a video with its transcript and segments, replacing any
// transcript and segments already stored for the same id.
func (s *Store) SaveVideo(ctx context.Context, record *models.VideoRecord) error {
	return WithTransaction(ctx, s.db, func(tx Executor) error {
		if _, err := tx.ExecContext(ctx, insertVideoQuery, record.ID, record.Link); err != nil {
			return pkgerrors.Wrap(err, "insert video")
		}
		if _, err := tx.ExecContext(ctx, deleteTranscriptsQuery, record.ID); err != nil {
			return pkgerrors.Wrap(err, "clear transcript")
		}
		if record.Transcript != "" {
			if _, err := tx.ExecContext(ctx, insertTranscriptQuery, record.ID, record.Transcript); err != nil {
				return pkgerrors.Wrap(err, "insert transcript")
			}
		}
		if _, err := tx.ExecContext(ctx, deleteSegmentsQuery, record.ID); err != nil {
			return pkgerrors.Wrap(err, "clear segments")
		}
		for _, seg := range record.Segments {
			if _, err := tx.ExecContext(ctx, insertSegmentQuery, record.ID, seg.Start, seg.Text, seg.StorageURL); err != nil {
				return pkgerrors.Wrap(err, "insert segment")
			}
		}
		return nil
	})
}

func queryOne(ctx context.Context, db Executor, query string, arg string) (string, error) {
	rows, err := db.QueryContext(ctx, query, arg)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var (
		value string
		count int
	)
	for rows.Next() {
		count++
		if count > 1 {
			return "", repository.ErrAmbiguous
		}
		if err := rows.Scan(&value); err != nil {
			return "", err
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if count == 0 {
		return "", repository.ErrNotFound
	}

	return value, nil
}

package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nijaru/yt-recap/models"
	"github.com/nijaru/yt-recap/repository"
	"github.com/pkg/errors"
)

const (
	videoIDQuery = `
        SELECT id::text FROM youtube_table
        WHERE youtube_link = $1
        LIMIT 2
    `

	transcriptQuery = `
        SELECT COALESCE(full_text, '') FROM transcripts
        WHERE youtube_id::text = $1
        LIMIT 2
    `

	segmentsQuery = `
        SELECT "start"::float8, COALESCE(text, ''), COALESCE(storage_url, '')
        FROM segments
        WHERE youtube_id::text = $1
        ORDER BY "start" ASC
    `
)

// querier is the subset of pgxpool.Pool the store uses.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store reads videos, transcripts and segments straight from Postgres.
type Store struct {
	db   querier
	pool *pgxpool.Pool
}

// Open connects a pool to databaseURL and verifies it with a ping.
func Open(ctx context.Context, databaseURL string, maxConns int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse database url")
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "connect to postgres")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}

	return &Store{db: pool, pool: pool}, nil
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) FindVideoID(ctx context.Context, link string) (string, error) {
	id, err := s.queryOne(ctx, videoIDQuery, link)
	if err != nil {
		return "", errors.Wrap(err, "youtube_table")
	}
	return id, nil
}

func (s *Store) FindTranscript(ctx context.Context, videoID string) (string, error) {
	text, err := s.queryOne(ctx, transcriptQuery, videoID)
	if err != nil {
		return "", errors.Wrap(err, "transcripts")
	}
	return text, nil
}

func (s *Store) FindSegments(ctx context.Context, videoID string) ([]models.Segment, error) {
	rows, err := s.db.Query(ctx, segmentsQuery, videoID)
	if err != nil {
		return nil, errors.Wrap(err, "segments")
	}
	defer rows.Close()

	segments := []models.Segment{}
	for rows.Next() {
		var seg models.Segment
		if err := rows.Scan(&seg.Start, &seg.Text, &seg.StorageURL); err != nil {
			return nil, errors.Wrap(err, "scan segment")
		}
		segments = append(segments, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "segments")
	}

	return segments, nil
}

// queryOne runs a query expected to yield exactly one text column in one row.
func (s *Store) queryOne(ctx context.Context, sql string, arg string) (string, error) {
	rows, err := s.db.Query(ctx, sql, arg)
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

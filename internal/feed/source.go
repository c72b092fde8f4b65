package feed

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"bspub/internal/config"
	apperrors "bspub/internal/errors"
	"bspub/internal/measures"
	"bspub/internal/table"
)

// Source reads the records of one collection at a time.
type Source struct {
	kind   string
	files  map[string]string
	sheet  string
	query  string
	paths  *config.Paths
	db     *sql.DB
	logger *slog.Logger
}

// NewSource opens the configured record feed. A SQL feed connects
// immediately so a bad DSN fails before any output is built.
func NewSource(ctx context.Context, cfg config.FeedConfig, paths *config.Paths, logger *slog.Logger) (*Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Source{
		kind:   cfg.Kind,
		files:  cfg.Files,
		sheet:  cfg.Sheet,
		query:  cfg.Query,
		paths:  paths,
		logger: logger.With(slog.String("component", "feed"), slog.String("kind", cfg.Kind)),
	}
	switch cfg.Kind {
	case config.FeedCSV, config.FeedXLSX:
	case config.FeedSQL:
		db, err := OpenSQL(ctx, cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, err
		}
		s.db = db
	default:
		return nil, apperrors.NewInvalidValueError("feed kind", cfg.Kind, []string{config.FeedCSV, config.FeedXLSX, config.FeedSQL})
	}
	return s, nil
}

// NewSQLSource wraps an open database.
func NewSQLSource(db *sql.DB, query string, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		kind:   config.FeedSQL,
		query:  query,
		db:     db,
		logger: logger.With(slog.String("component", "feed"), slog.String("kind", config.FeedSQL)),
	}
}

// Records returns the raw records of a collection.
func (s *Source) Records(ctx context.Context, collection string) (*table.Table, error) {
	start := time.Now()
	var (
		t   *table.Table
		err error
	)
	switch s.kind {
	case config.FeedSQL:
		t, err = QuerySQL(ctx, s.db, s.query, []string{measures.ValueColumn}, collection)
	default:
		file, ok := s.files[collection]
		if !ok {
			return nil, apperrors.NewNotFoundError("feed file for collection " + collection)
		}
		path := file
		if s.paths != nil {
			path = s.paths.InputPath(file)
		}
		if s.kind == config.FeedXLSX {
			t, err = LoadRecordsXLSX(path, s.sheet)
		} else {
			t, err = LoadRecords(path)
		}
	}
	if err != nil {
		return nil, err
	}
	if err := t.Require(measures.ValueColumn); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Loaded records",
		slog.String("collection", collection),
		slog.Int("rows", t.Len()),
		slog.Duration("duration", time.Since(start)))
	return t, nil
}

// Close releases the database connection of a SQL feed.
func (s *Source) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

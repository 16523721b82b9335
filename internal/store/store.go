package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/TruWeaveTrader/statarb/internal/models"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a keyed record does not exist
var ErrNotFound = errors.New("not found")

// PriceSeriesStore is the narrow read/write contract for daily prices
type PriceSeriesStore interface {
	GetRange(ctx context.Context, instrument, start, end string) ([]models.PricePoint, error)
	UpsertPrices(ctx context.Context, points ...models.PricePoint) error
}

// SQLite persists prices, trades, daily metrics and run records
type SQLite struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (or creates) the database at path and migrates it to the latest schema.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string, logger *zap.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	s := &SQLite{
		db:     db,
		logger: logger.With(zap.String("component", "store")),
	}

	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the database
func (s *SQLite) Close() error {
	return s.db.Close()
}

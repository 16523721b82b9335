package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/TruWeaveTrader/statarb/internal/models"
	"github.com/shopspring/decimal"
)

// Run is the record of one simulation run
type Run struct {
	ID             string          `json:"id"`
	Mode           models.Mode     `json:"mode"`
	StartDate      string          `json:"start_date"`
	EndDate        string          `json:"end_date"`
	InitialCapital decimal.Decimal `json:"initial_capital"`
	Config         string          `json:"config"` // YAML snapshot of the run configuration
	Metrics        *models.Metrics `json:"metrics,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// SaveRun inserts a run, or updates its metrics if it already exists
func (s *SQLite) SaveRun(ctx context.Context, r *Run) error {
	metrics := ""
	if r.Metrics != nil {
		b, err := json.Marshal(r.Metrics)
		if err != nil {
			return fmt.Errorf("failed to encode metrics: %w", err)
		}
		metrics = string(b)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, mode, start_date, end_date, initial_capital, config, metrics, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET metrics = excluded.metrics`,
		r.ID, r.Mode, r.StartDate, r.EndDate, r.InitialCapital, r.Config, metrics, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", r.ID, err)
	}
	return nil
}

// GetRun loads a run by id
func (s *SQLite) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, mode, start_date, end_date, initial_capital, config, metrics, created_at
		FROM runs WHERE id = ?`, id)

	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %q: %w", id, ErrNotFound)
	}
	return r, err
}

// LatestRun returns the most recently created run
func (s *SQLite) LatestRun(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, mode, start_date, end_date, initial_capital, config, metrics, created_at
		FROM runs ORDER BY created_at DESC, id DESC LIMIT 1`)

	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no runs recorded: %w", ErrNotFound)
	}
	return r, err
}

// ListRuns returns runs newest first
func (s *SQLite) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mode, start_date, end_date, initial_capital, config, metrics, created_at
		FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		r       Run
		metrics string
	)
	if err := row.Scan(&r.ID, &r.Mode, &r.StartDate, &r.EndDate, &r.InitialCapital, &r.Config, &metrics, &r.CreatedAt); err != nil {
		return nil, err
	}
	if metrics != "" {
		r.Metrics = &models.Metrics{}
		if err := json.Unmarshal([]byte(metrics), r.Metrics); err != nil {
			return nil, fmt.Errorf("failed to decode metrics of run %s: %w", r.ID, err)
		}
	}
	return &r, nil
}

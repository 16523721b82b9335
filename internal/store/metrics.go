package store

import (
	"context"
	"fmt"

	"github.com/TruWeaveTrader/statarb/internal/models"
)

// RecordMetric stores one day of a run's equity curve, replacing any earlier record for that date
func (s *SQLite) RecordMetric(ctx context.Context, runID string, p models.EquityPoint) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metrics (run_id, date, equity, daily_return, drawdown, sharpe_to_date)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, date) DO UPDATE SET
			equity = excluded.equity,
			daily_return = excluded.daily_return,
			drawdown = excluded.drawdown,
			sharpe_to_date = excluded.sharpe_to_date`,
		runID, p.Date, p.Equity, p.Return, p.Drawdown, p.SharpeToDate)
	if err != nil {
		return fmt.Errorf("failed to record metric %s: %w", p.Date, err)
	}
	return nil
}

// ListMetrics returns a run's equity curve in date order
func (s *SQLite) ListMetrics(ctx context.Context, runID string) ([]models.EquityPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, equity, daily_return, drawdown, sharpe_to_date
		FROM metrics WHERE run_id = ? ORDER BY date`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list metrics for %s: %w", runID, err)
	}
	defer rows.Close()

	var out []models.EquityPoint
	for rows.Next() {
		var p models.EquityPoint
		if err := rows.Scan(&p.Date, &p.Equity, &p.Return, &p.Drawdown, &p.SharpeToDate); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

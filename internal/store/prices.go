package store

import (
	"context"
	"fmt"

	"github.com/TruWeaveTrader/statarb/internal/models"
)

// UpsertPrices writes bars keyed by (instrument, date); rewriting a key replaces it
func (s *SQLite) UpsertPrices(ctx context.Context, points ...models.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO prices (instrument, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(instrument, date) DO UPDATE SET
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := models.ParseDate(p.Date); err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, p.Instrument, p.Date, p.Open, p.High, p.Low, p.Close, p.Volume); err != nil {
			return fmt.Errorf("failed to upsert %s %s: %w", p.Instrument, p.Date, err)
		}
	}

	return tx.Commit()
}

// GetRange returns the bars of an instrument between two YYYYMMDD dates, inclusive, in date order
func (s *SQLite) GetRange(ctx context.Context, instrument, start, end string) ([]models.PricePoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT instrument, date, open, high, low, close, volume
		FROM prices
		WHERE instrument = ? AND date >= ? AND date <= ?
		ORDER BY date`, instrument, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", instrument, err)
	}
	defer rows.Close()

	var out []models.PricePoint
	for rows.Next() {
		var p models.PricePoint
		if err := rows.Scan(&p.Instrument, &p.Date, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", instrument, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Instruments lists every instrument with stored prices
func (s *SQLite) Instruments(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT instrument FROM prices ORDER BY instrument`)
	if err != nil {
		return nil, fmt.Errorf("failed to list instruments: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var inst string
		if err := rows.Scan(&inst); err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

package store

import (
	"context"
	"fmt"

	"github.com/TruWeaveTrader/statarb/internal/models"
)

const tradeColumns = `id, run_id, pair_id, action, position_type, open_date, close_date,
	entry_price_a, entry_price_b, exit_price_a, exit_price_b, quantity, volume, pnl,
	commission, slippage, market_impact, timing_cost, total_cost, status, exit_reason`

// AppendTrade inserts a new trade record and returns its assigned id
func (s *SQLite) AppendTrade(ctx context.Context, t *models.Trade) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO trades
		(run_id, pair_id, action, position_type, open_date, close_date,
		 entry_price_a, entry_price_b, exit_price_a, exit_price_b, quantity, volume, pnl,
		 commission, slippage, market_impact, timing_cost, total_cost, status, exit_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.RunID, t.PairID, t.Action, t.PositionType, t.OpenDate, t.CloseDate,
		t.EntryPriceA, t.EntryPriceB, t.ExitPriceA, t.ExitPriceB, t.Quantity, t.Volume, t.PnL,
		t.Commission, t.Slippage, t.MarketImpact, t.TimingCost, t.TotalCost, t.Status, t.ExitReason,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to append trade %s: %w", t.PairID, err)
	}
	return res.LastInsertId()
}

// FinalizeTrade moves the open trade of a pair, matched by its open date, to closed
func (s *SQLite) FinalizeTrade(ctx context.Context, t *models.Trade) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE trades SET
			action = ?, close_date = ?, exit_price_a = ?, exit_price_b = ?, volume = ?, pnl = ?,
			commission = ?, slippage = ?, market_impact = ?, timing_cost = ?, total_cost = ?,
			status = ?, exit_reason = ?
		WHERE run_id = ? AND pair_id = ? AND open_date = ? AND status = ?`,
		t.Action, t.CloseDate, t.ExitPriceA, t.ExitPriceB, t.Volume, t.PnL,
		t.Commission, t.Slippage, t.MarketImpact, t.TimingCost, t.TotalCost,
		models.TradeClosed, t.ExitReason,
		t.RunID, t.PairID, t.OpenDate, models.TradeOpen,
	)
	if err != nil {
		return fmt.Errorf("failed to finalize trade %s: %w", t.PairID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("open trade %s opened %s: %w", t.PairID, t.OpenDate, ErrNotFound)
	}
	return nil
}

// ListTrades returns a run's trades in open order; an empty status returns all
func (s *SQLite) ListTrades(ctx context.Context, runID string, status models.TradeStatus) ([]models.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE run_id = ?`
	args := []interface{}{runID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY open_date, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades for %s: %w", runID, err)
	}
	defer rows.Close()

	var out []models.Trade
	for rows.Next() {
		var t models.Trade
		if err := rows.Scan(
			&t.ID, &t.RunID, &t.PairID, &t.Action, &t.PositionType, &t.OpenDate, &t.CloseDate,
			&t.EntryPriceA, &t.EntryPriceB, &t.ExitPriceA, &t.ExitPriceB, &t.Quantity, &t.Volume, &t.PnL,
			&t.Commission, &t.Slippage, &t.MarketImpact, &t.TimingCost, &t.TotalCost, &t.Status, &t.ExitReason,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

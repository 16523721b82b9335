package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Migration is one forward schema step
type Migration struct {
	Version int
	Name    string
	Up      string
}

// migrations are applied in order, once each, when the store opens
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial",
		Up: `
CREATE TABLE prices (
	instrument TEXT NOT NULL,
	date TEXT NOT NULL,
	open TEXT NOT NULL,
	high TEXT NOT NULL,
	low TEXT NOT NULL,
	close TEXT NOT NULL,
	volume INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (instrument, date)
);

CREATE TABLE trades (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	pair_id TEXT NOT NULL,
	action TEXT NOT NULL,
	position_type TEXT NOT NULL,
	open_date TEXT NOT NULL,
	close_date TEXT NOT NULL DEFAULT '',
	entry_price_a TEXT NOT NULL,
	entry_price_b TEXT NOT NULL,
	exit_price_a TEXT NOT NULL,
	exit_price_b TEXT NOT NULL,
	quantity TEXT NOT NULL,
	volume TEXT NOT NULL,
	pnl TEXT NOT NULL,
	commission TEXT NOT NULL,
	slippage TEXT NOT NULL,
	market_impact TEXT NOT NULL,
	timing_cost TEXT NOT NULL,
	total_cost TEXT NOT NULL,
	status TEXT NOT NULL
);

CREATE INDEX idx_trades_open ON trades(run_id, pair_id, open_date);

CREATE TABLE metrics (
	run_id TEXT NOT NULL,
	date TEXT NOT NULL,
	equity TEXT NOT NULL,
	daily_return REAL NOT NULL,
	drawdown REAL NOT NULL,
	sharpe_to_date REAL NOT NULL,
	PRIMARY KEY (run_id, date)
);
`,
	},
	{
		Version: 2,
		Name:    "backtest runs",
		Up: `
CREATE TABLE runs (
	id TEXT PRIMARY KEY,
	mode TEXT NOT NULL,
	start_date TEXT NOT NULL,
	end_date TEXT NOT NULL,
	initial_capital TEXT NOT NULL,
	config TEXT NOT NULL,
	metrics TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);
`,
	},
	{
		Version: 3,
		Name:    "trade exit reason",
		Up:      `ALTER TABLE trades ADD COLUMN exit_reason TEXT NOT NULL DEFAULT '';`,
	},
}

// migrate brings the schema up to the latest version
func (s *SQLite) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	applied_at DATETIME NOT NULL
)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := s.apply(ctx, m); err != nil {
			return err
		}
		s.logger.Debug("migration applied",
			zap.Int("version", m.Version),
			zap.String("name", m.Name))
	}

	return nil
}

func (s *SQLite) apply(ctx context.Context, m Migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %d: %w", m.Version, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.Up); err != nil {
		return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
		m.Version, m.Name, time.Now().UTC()); err != nil {
		return fmt.Errorf("migration %d: %w", m.Version, err)
	}
	return tx.Commit()
}

// SchemaVersion returns the highest applied migration
func (s *SQLite) SchemaVersion(ctx context.Context) (int, error) {
	var version sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(version.Int64), nil
}

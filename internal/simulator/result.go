package simulator

import (
	"github.com/TruWeaveTrader/statarb/internal/models"
	"github.com/shopspring/decimal"
)

// Result is the outcome of a run, complete or partial
type Result struct {
	RunID   string
	Mode    models.Mode
	Curve   []models.EquityPoint
	Trades  []models.Trade
	Metrics models.Metrics
	Skipped map[string]int
}

// Result summarizes everything simulated so far
func (s *Simulator) Result() *Result {
	trades := s.Trades()
	skipped := make(map[string]int, len(s.skipped))
	for k, v := range s.skipped {
		skipped[k] = v
	}

	return &Result{
		RunID:   s.opts.RunID,
		Mode:    s.opts.Mode,
		Curve:   s.analyzer.Curve(),
		Trades:  trades,
		Metrics: s.analyzer.Finalize(trades),
		Skipped: skipped,
	}
}

// Trades returns copies of every trade in open order
func (s *Simulator) Trades() []models.Trade {
	out := make([]models.Trade, len(s.trades))
	for i, t := range s.trades {
		out[i] = *t
	}
	return out
}

// State is a point-in-time view of the simulator
type State struct {
	RunID        string            `json:"run_id"`
	Date         string            `json:"date"`
	Equity       decimal.Decimal   `json:"equity"`
	Cash         decimal.Decimal   `json:"cash"`
	Positions    []models.Position `json:"positions"`
	TotalTrades  int               `json:"total_trades"`
	ClosedTrades int               `json:"closed_trades"`
	Drawdown     float64           `json:"drawdown"`
	MaxDrawdown  float64           `json:"max_drawdown"`
	SharpeToDate float64           `json:"sharpe_to_date"`
}

// Snapshot returns the current state
func (s *Simulator) Snapshot() State {
	st := State{
		RunID:       s.opts.RunID,
		Date:        s.lastDate,
		Equity:      s.Equity(),
		Cash:        s.cash,
		Positions:   s.ledger.Snapshot(),
		TotalTrades: len(s.trades),
		MaxDrawdown: s.analyzer.MaxDrawdown(),
	}
	for _, t := range s.trades {
		if t.IsClosed() {
			st.ClosedTrades++
		}
	}
	if curve := s.analyzer.Curve(); len(curve) > 0 {
		last := curve[len(curve)-1]
		st.Drawdown = last.Drawdown
		st.SharpeToDate = last.SharpeToDate
	}
	return st
}

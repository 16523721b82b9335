package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the YYYYMMDD layout used for every trading date
const DateLayout = "20060102"

// Action is what a signal asks the simulator to do
type Action string

const (
	Open  Action = "open"
	Close Action = "close"
)

// PositionType is the direction of a pair position
type PositionType string

const (
	LongShort PositionType = "long_short" // Long leg A, short leg B
	ShortLong PositionType = "short_long" // Short leg A, long leg B
)

// TradeStatus represents the lifecycle state of a trade record
type TradeStatus string

const (
	TradeOpen   TradeStatus = "open"
	TradeClosed TradeStatus = "closed"
)

// ExitReason labels why a position was closed
type ExitReason string

const (
	ExitNone          ExitReason = ""
	ExitMeanReversion ExitReason = "mean_reversion"
	ExitStopLoss      ExitReason = "stop_loss"
	ExitMaxHold       ExitReason = "max_hold"
)

// Mode selects how the simulator is driven
type Mode string

const (
	Historical Mode = "historical"
	Live       Mode = "live"
)

// PricePoint is one daily bar for an instrument
type PricePoint struct {
	Instrument string          `json:"instrument"`
	Date       string          `json:"date"`
	Open       decimal.Decimal `json:"open"`
	High       decimal.Decimal `json:"high"`
	Low        decimal.Decimal `json:"low"`
	Close      decimal.Decimal `json:"close"`
	Volume     int64           `json:"volume"`
}

// Pair is an ordered pair of instruments
type Pair struct {
	A string `json:"a" yaml:"a" mapstructure:"a"`
	B string `json:"b" yaml:"b" mapstructure:"b"`
}

// ID returns the pair identity "a_b"
func (p Pair) ID() string {
	return p.A + "_" + p.B
}

func (p Pair) String() string {
	return p.A + "/" + p.B
}

// PairStats holds the ratio statistics of a pair
type PairStats struct {
	PairID       string  `json:"pair_id"`
	Mean         float64 `json:"mean"`
	Std          float64 `json:"std"`
	Observations int     `json:"observations"`
	Clamped      bool    `json:"clamped"` // Std was floored
}

// Signal is produced and consumed within one simulation step
type Signal struct {
	Pair         Pair            `json:"pair"`
	Action       Action          `json:"action"`
	PositionType PositionType    `json:"position_type"`
	ZScore       float64         `json:"z_score"`
	PriceA       decimal.Decimal `json:"price_a"`
	PriceB       decimal.Decimal `json:"price_b"`
	Date         string          `json:"date"`
	Reason       ExitReason      `json:"reason,omitempty"`
}

// PairID returns the id of the signal's pair
func (s *Signal) PairID() string {
	return s.Pair.ID()
}

// Position is an open pair position
type Position struct {
	Pair        Pair            `json:"pair"`
	Type        PositionType    `json:"position_type"`
	EntryPriceA decimal.Decimal `json:"entry_price_a"`
	EntryPriceB decimal.Decimal `json:"entry_price_b"`
	Quantity    decimal.Decimal `json:"quantity"`
	OpenDate    string          `json:"open_date"`
}

// UnrealizedPnL marks the position to the given leg prices
func (p *Position) UnrealizedPnL(priceA, priceB decimal.Decimal) decimal.Decimal {
	return SpreadPnL(p.Type, p.EntryPriceA, p.EntryPriceB, priceA, priceB, p.Quantity)
}

// SpreadPnL is the signed spread change times quantity
func SpreadPnL(pt PositionType, entryA, entryB, exitA, exitB, qty decimal.Decimal) decimal.Decimal {
	entrySpread := entryA.Sub(entryB)
	exitSpread := exitA.Sub(exitB)
	if pt == ShortLong {
		return entrySpread.Sub(exitSpread).Mul(qty)
	}
	return exitSpread.Sub(entrySpread).Mul(qty)
}

// Trade is the record of one pair round trip
type Trade struct {
	ID           int64           `json:"id,omitempty"`
	RunID        string          `json:"run_id"`
	PairID       string          `json:"pair_id"`
	Action       Action          `json:"action"`
	PositionType PositionType    `json:"position_type"`
	OpenDate     string          `json:"open_date"`
	CloseDate    string          `json:"close_date,omitempty"`
	EntryPriceA  decimal.Decimal `json:"entry_price_a"`
	EntryPriceB  decimal.Decimal `json:"entry_price_b"`
	ExitPriceA   decimal.Decimal `json:"exit_price_a"`
	ExitPriceB   decimal.Decimal `json:"exit_price_b"`
	Quantity     decimal.Decimal `json:"quantity"`
	Volume       decimal.Decimal `json:"volume"`
	PnL          decimal.Decimal `json:"pnl"`
	Commission   decimal.Decimal `json:"commission"`
	Slippage     decimal.Decimal `json:"slippage"`
	MarketImpact decimal.Decimal `json:"market_impact"`
	TimingCost   decimal.Decimal `json:"timing_cost"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	Status       TradeStatus     `json:"status"`
	ExitReason   ExitReason      `json:"exit_reason,omitempty"`
}

// NetPnL returns spread pnl minus all commission charged
func (t *Trade) NetPnL() decimal.Decimal {
	return t.PnL.Sub(t.Commission)
}

// IsClosed reports whether the trade finished its round trip
func (t *Trade) IsClosed() bool {
	return t.Status == TradeClosed
}

// EquityPoint is the end-of-day equity record
type EquityPoint struct {
	Date         string          `json:"date"`
	Equity       decimal.Decimal `json:"equity"`
	Return       float64         `json:"return"`
	Drawdown     float64         `json:"drawdown"`
	SharpeToDate float64         `json:"sharpe_to_date"`
}

// Metrics summarises a finished run
type Metrics struct {
	InitialEquity    decimal.Decimal `json:"initial_equity" yaml:"initial_equity"`
	FinalEquity      decimal.Decimal `json:"final_equity" yaml:"final_equity"`
	TotalReturn      float64         `json:"total_return" yaml:"total_return"`
	AnnualizedReturn float64         `json:"annualized_return" yaml:"annualized_return"`
	SharpeRatio      float64         `json:"sharpe_ratio" yaml:"sharpe_ratio"`
	MaxDrawdown      float64         `json:"max_drawdown" yaml:"max_drawdown"`
	WinRate          float64         `json:"win_rate" yaml:"win_rate"`
	ProfitLossRatio  float64         `json:"profit_loss_ratio" yaml:"profit_loss_ratio"`
	TotalTrades      int             `json:"total_trades" yaml:"total_trades"`
	ClosedTrades     int             `json:"closed_trades" yaml:"closed_trades"`
	WinningTrades    int             `json:"winning_trades" yaml:"winning_trades"`
	LosingTrades     int             `json:"losing_trades" yaml:"losing_trades"`
	TradingDays      int             `json:"trading_days" yaml:"trading_days"`
	Warnings         []string        `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// ParseDate parses a YYYYMMDD date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate formats a time as YYYYMMDD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DaysBetween returns the calendar days from one YYYYMMDD date to another
func DaysBetween(from, to string) (int, error) {
	f, err := ParseDate(from)
	if err != nil {
		return 0, err
	}
	t, err := ParseDate(to)
	if err != nil {
		return 0, err
	}
	return int(t.Sub(f).Hours() / 24), nil
}

package performance

import (
	"errors"
	"math"

	"github.com/TruWeaveTrader/statarb/internal/models"
	"github.com/TruWeaveTrader/statarb/internal/stats"
	"github.com/shopspring/decimal"
)

// ErrComplexAnnualizedReturn flags an annualized return taken on a non-positive base
var ErrComplexAnnualizedReturn = errors.New("annualized return undefined for non-positive growth")

// Analyzer accumulates the equity curve one trading day at a time
type Analyzer struct {
	points      []models.EquityPoint
	returns     []float64
	peak        float64
	maxDrawdown float64
}

// NewAnalyzer creates an empty analyzer
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Update appends the end-of-day equity and returns the derived point
func (a *Analyzer) Update(date string, equity decimal.Decimal) models.EquityPoint {
	value := equity.InexactFloat64()

	point := models.EquityPoint{Date: date, Equity: equity}

	if n := len(a.points); n > 0 {
		prev := a.points[n-1].Equity.InexactFloat64()
		if prev != 0 {
			point.Return = value/prev - 1
		}
		a.returns = append(a.returns, point.Return)
	}

	if len(a.points) == 0 || value > a.peak {
		a.peak = value
	}
	point.Drawdown = drawdown(a.peak, value)
	if point.Drawdown > a.maxDrawdown {
		a.maxDrawdown = point.Drawdown
	}

	point.SharpeToDate = stats.AnnualizedSharpe(a.returns)

	a.points = append(a.points, point)
	return point
}

// MaxDrawdown returns the largest drawdown seen so far
func (a *Analyzer) MaxDrawdown() float64 {
	return a.maxDrawdown
}

// Curve returns a copy of the equity curve
func (a *Analyzer) Curve() []models.EquityPoint {
	out := make([]models.EquityPoint, len(a.points))
	copy(out, a.points)
	return out
}

// Len returns the number of recorded days
func (a *Analyzer) Len() int {
	return len(a.points)
}

// Finalize computes run metrics over the analyzer's own curve
func (a *Analyzer) Finalize(trades []models.Trade) models.Metrics {
	return Finalize(a.points, trades)
}

func drawdown(peak, value float64) float64 {
	if peak <= 0 {
		return 0
	}
	return (peak - value) / peak
}

// Finalize derives run metrics from an equity curve and its trades
func Finalize(curve []models.EquityPoint, trades []models.Trade) models.Metrics {
	m := models.Metrics{
		TradingDays: len(curve),
		TotalTrades: len(trades),
	}

	if len(curve) > 0 {
		m.InitialEquity = curve[0].Equity
		m.FinalEquity = curve[len(curve)-1].Equity

		first := m.InitialEquity.InexactFloat64()
		last := m.FinalEquity.InexactFloat64()

		if first > 0 {
			m.TotalReturn = last/first - 1
		}

		growth := 0.0
		if first > 0 {
			growth = last / first
		}
		if growth <= 0 {
			m.Warnings = append(m.Warnings, ErrComplexAnnualizedReturn.Error())
		} else {
			m.AnnualizedReturn = math.Pow(growth, float64(stats.TradingDaysPerYear)/float64(len(curve))) - 1
		}

		returns := make([]float64, 0, len(curve)-1)
		peak := first
		for i, p := range curve {
			v := p.Equity.InexactFloat64()
			if i > 0 {
				prev := curve[i-1].Equity.InexactFloat64()
				r := 0.0
				if prev != 0 {
					r = v/prev - 1
				}
				returns = append(returns, r)
			}
			if v > peak {
				peak = v
			}
			if dd := drawdown(peak, v); dd > m.MaxDrawdown {
				m.MaxDrawdown = dd
			}
		}
		m.SharpeRatio = stats.AnnualizedSharpe(returns)
	}

	winSum, lossSum := decimal.Zero, decimal.Zero
	for _, t := range trades {
		if !t.IsClosed() {
			continue
		}
		m.ClosedTrades++
		switch {
		case t.PnL.IsPositive():
			m.WinningTrades++
			winSum = winSum.Add(t.PnL)
		case t.PnL.IsNegative():
			m.LosingTrades++
			lossSum = lossSum.Add(t.PnL)
		}
	}

	if m.ClosedTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.ClosedTrades)
	}
	if m.LosingTrades > 0 && m.WinningTrades > 0 {
		avgWin := winSum.InexactFloat64() / float64(m.WinningTrades)
		avgLoss := lossSum.InexactFloat64() / float64(m.LosingTrades)
		m.ProfitLossRatio = math.Abs(avgWin / avgLoss)
	}

	return m
}

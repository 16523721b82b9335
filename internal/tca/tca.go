package tca

import (
	"sort"

	"github.com/TruWeaveTrader/statarb/internal/models"
	"github.com/shopspring/decimal"
)

// Report is a transaction cost analysis over a set of trades
type Report struct {
	TotalTrades             int             `json:"total_trades"`
	TotalVolume             decimal.Decimal `json:"total_volume"`
	TotalCommission         decimal.Decimal `json:"total_commission"`
	TotalSlippage           decimal.Decimal `json:"total_slippage"`
	AvgSlippage             decimal.Decimal `json:"avg_slippage"`
	MarketImpact            decimal.Decimal `json:"market_impact"`
	TimingCost              decimal.Decimal `json:"timing_cost"`
	ImplementationShortfall decimal.Decimal `json:"implementation_shortfall"`

	// Percentages; component shares are of the total cost
	AvgCostRatio    float64 `json:"avg_cost_ratio"`
	CommissionPct   float64 `json:"commission_pct"`
	SlippagePct     float64 `json:"slippage_pct"`
	MarketImpactPct float64 `json:"market_impact_pct"`
	TimingCostPct   float64 `json:"timing_cost_pct"`

	Daily []DailyCost `json:"daily"`
}

// DailyCost aggregates the costs of trades executed on one date
type DailyCost struct {
	Date         string          `json:"date"`
	Trades       int             `json:"trades"`
	Volume       decimal.Decimal `json:"volume"`
	Commission   decimal.Decimal `json:"commission"`
	Slippage     decimal.Decimal `json:"slippage"`
	MarketImpact decimal.Decimal `json:"market_impact"`
	TimingCost   decimal.Decimal `json:"timing_cost"`
	Total        decimal.Decimal `json:"total"`
	CostRatio    float64         `json:"cost_ratio"`
}

var hundred = decimal.NewFromInt(100)

// Analyze sums the recorded costs of trades. Costs are taken as stored, never re-estimated.
func Analyze(trades []models.Trade) Report {
	r := Report{TotalTrades: len(trades)}
	if len(trades) == 0 {
		return r
	}

	daily := make(map[string]*DailyCost)
	for _, t := range trades {
		r.TotalVolume = r.TotalVolume.Add(t.Volume)
		r.TotalCommission = r.TotalCommission.Add(t.Commission)
		r.TotalSlippage = r.TotalSlippage.Add(t.Slippage)
		r.MarketImpact = r.MarketImpact.Add(t.MarketImpact)
		r.TimingCost = r.TimingCost.Add(t.TimingCost)
		r.ImplementationShortfall = r.ImplementationShortfall.Add(t.TotalCost)

		date := ExecutionDate(t)
		d, ok := daily[date]
		if !ok {
			d = &DailyCost{Date: date}
			daily[date] = d
		}
		d.Trades++
		d.Volume = d.Volume.Add(t.Volume)
		d.Commission = d.Commission.Add(t.Commission)
		d.Slippage = d.Slippage.Add(t.Slippage)
		d.MarketImpact = d.MarketImpact.Add(t.MarketImpact)
		d.TimingCost = d.TimingCost.Add(t.TimingCost)
		d.Total = d.Total.Add(t.TotalCost)
	}

	r.AvgSlippage = r.TotalSlippage.Div(decimal.NewFromInt(int64(len(trades))))

	if r.TotalVolume.IsPositive() {
		r.AvgCostRatio = percent(r.ImplementationShortfall, r.TotalVolume)
	}
	if total := r.ImplementationShortfall; total.IsPositive() {
		r.CommissionPct = percent(r.TotalCommission, total)
		r.SlippagePct = percent(r.TotalSlippage, total)
		r.MarketImpactPct = percent(r.MarketImpact, total)
		r.TimingCostPct = percent(r.TimingCost, total)
	}

	r.Daily = make([]DailyCost, 0, len(daily))
	for _, d := range daily {
		if d.Volume.IsPositive() {
			d.CostRatio = percent(d.Total, d.Volume)
		}
		r.Daily = append(r.Daily, *d)
	}
	sort.Slice(r.Daily, func(i, j int) bool { return r.Daily[i].Date < r.Daily[j].Date })

	return r
}

// ExecutionDate is the date a trade last executed: its close date once closed
func ExecutionDate(t models.Trade) string {
	if t.IsClosed() && t.CloseDate != "" {
		return t.CloseDate
	}
	return t.OpenDate
}

// Filter keeps trades whose execution date falls in [start, end]. Empty bounds are open.
func Filter(trades []models.Trade, start, end string) []models.Trade {
	out := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		d := ExecutionDate(t)
		if start != "" && d < start {
			continue
		}
		if end != "" && d > end {
			continue
		}
		out = append(out, t)
	}
	return out
}

func percent(part, whole decimal.Decimal) float64 {
	return part.Div(whole).Mul(hundred).InexactFloat64()
}

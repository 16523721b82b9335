package formatters

import (
	"fmt"
	"strings"
	"time"

	"github.com/TruWeaveTrader/statarb/internal/live"
	"github.com/TruWeaveTrader/statarb/internal/models"
	"github.com/TruWeaveTrader/statarb/internal/store"
	"github.com/TruWeaveTrader/statarb/internal/tca"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"
)

// Colors for different values
var (
	ColorGreen  = text.FgGreen
	ColorRed    = text.FgRed
	ColorYellow = text.FgYellow
	ColorBlue   = text.FgCyan
	ColorWhite  = text.FgWhite
	ColorGray   = text.FgHiBlack
)

// FormatPrice formats a price with color based on change
func FormatPrice(price decimal.Decimal, change decimal.Decimal) string {
	priceStr := fmt.Sprintf("$%.2f", price.InexactFloat64())

	if change.IsPositive() {
		return ColorGreen.Sprint(priceStr)
	} else if change.IsNegative() {
		return ColorRed.Sprint(priceStr)
	}
	return priceStr
}

// FormatPercent formats a percentage with color
func FormatPercent(percent decimal.Decimal) string {
	sign := ""
	if percent.IsPositive() {
		sign = "+"
	}

	percentStr := fmt.Sprintf("%s%.2f%%", sign, percent.InexactFloat64())

	if percent.IsPositive() {
		return ColorGreen.Sprint(percentStr)
	} else if percent.IsNegative() {
		return ColorRed.Sprint(percentStr)
	}
	return percentStr
}

// FormatFraction formats a fraction (0.05) as a colored percentage (+5.00%)
func FormatFraction(f float64) string {
	return FormatPercent(decimal.NewFromFloat(f * 100))
}

// FormatDollarAmount formats a dollar amount with appropriate color
func FormatDollarAmount(amount decimal.Decimal) string {
	amountStr := fmt.Sprintf("$%.2f", amount.Abs().InexactFloat64())

	if amount.IsNegative() {
		return ColorRed.Sprint("-" + amountStr)
	}
	return ColorGreen.Sprint(amountStr)
}

// FormatVolume formats large numbers with K/M/B suffixes
func FormatVolume(volume int64) string {
	if volume >= 1_000_000_000 {
		return fmt.Sprintf("%.1fB", float64(volume)/1_000_000_000)
	} else if volume >= 1_000_000 {
		return fmt.Sprintf("%.1fM", float64(volume)/1_000_000)
	} else if volume >= 1_000 {
		return fmt.Sprintf("%.1fK", float64(volume)/1_000)
	}
	return fmt.Sprintf("%d", volume)
}

func money(d decimal.Decimal) string {
	return fmt.Sprintf("$%.2f", d.InexactFloat64())
}

// FormatMetrics creates the run summary table
func FormatMetrics(m models.Metrics) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	t.AppendRow(table.Row{"Initial Equity", money(m.InitialEquity)})
	t.AppendRow(table.Row{"Final Equity", money(m.FinalEquity)})
	t.AppendRow(table.Row{"Total Return", FormatFraction(m.TotalReturn)})
	t.AppendRow(table.Row{"Annualized Return", FormatFraction(m.AnnualizedReturn)})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Sharpe Ratio", fmt.Sprintf("%.2f", m.SharpeRatio)})
	t.AppendRow(table.Row{"Max Drawdown", ColorRed.Sprintf("%.2f%%", m.MaxDrawdown*100)})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Trades", fmt.Sprintf("%d (%d closed)", m.TotalTrades, m.ClosedTrades)})
	t.AppendRow(table.Row{"Win Rate", fmt.Sprintf("%.2f%% (%d/%d)", m.WinRate*100, m.WinningTrades, m.ClosedTrades)})
	t.AppendRow(table.Row{"Profit/Loss Ratio", fmt.Sprintf("%.2f", m.ProfitLossRatio)})
	t.AppendRow(table.Row{"Trading Days", m.TradingDays})

	for _, w := range m.Warnings {
		t.AppendSeparator()
		t.AppendRow(table.Row{ColorYellow.Sprint("Warning"), w})
	}

	return t.Render()
}

// FormatTradesTable creates a table of round trips
func FormatTradesTable(trades []models.Trade) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{
		"Pair", "Type", "Opened", "Closed", "Qty", "Entry A/B", "Exit A/B", "P&L", "Commission", "Net", "Reason"})

	totalNet := decimal.Zero
	for _, tr := range trades {
		exit, closed, net := "", "", ""
		if tr.IsClosed() {
			exit = fmt.Sprintf("%s / %s",
				FormatPrice(tr.ExitPriceA, tr.ExitPriceA.Sub(tr.EntryPriceA)),
				FormatPrice(tr.ExitPriceB, tr.ExitPriceB.Sub(tr.EntryPriceB)))
			closed = tr.CloseDate
			net = FormatDollarAmount(tr.NetPnL())
			totalNet = totalNet.Add(tr.NetPnL())
		}

		t.AppendRow(table.Row{
			tr.PairID,
			tr.PositionType,
			tr.OpenDate,
			closed,
			tr.Quantity.StringFixed(2),
			fmt.Sprintf("%s / %s", money(tr.EntryPriceA), money(tr.EntryPriceB)),
			exit,
			FormatDollarAmount(tr.PnL),
			money(tr.Commission),
			net,
			tr.ExitReason,
		})
	}

	if len(trades) == 0 {
		t.AppendRow(table.Row{"No trades", "", "", "", "", "", "", "", "", "", ""})
	} else {
		t.AppendSeparator()
		t.AppendRow(table.Row{"TOTAL", "", "", "", "", "", "", "", "", FormatDollarAmount(totalNet), ""})
	}

	return t.Render()
}

// FormatPositionsTable creates a table of open positions
func FormatPositionsTable(positions []models.Position) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Pair", "Type", "Qty", "Entry A", "Entry B", "Opened"})

	for _, pos := range positions {
		typeColor := ColorGreen
		if pos.Type == models.ShortLong {
			typeColor = ColorRed
		}
		t.AppendRow(table.Row{
			pos.Pair.String(),
			typeColor.Sprint(pos.Type),
			pos.Quantity.StringFixed(2),
			money(pos.EntryPriceA),
			money(pos.EntryPriceB),
			pos.OpenDate,
		})
	}

	if len(positions) == 0 {
		t.AppendRow(table.Row{"No open positions", "", "", "", "", ""})
	}

	return t.Render()
}

// OpenPositions rebuilds the open positions of a run from its open trades
func OpenPositions(trades []models.Trade) []models.Position {
	var out []models.Position
	for _, tr := range trades {
		if tr.IsClosed() {
			continue
		}
		a, b, _ := strings.Cut(tr.PairID, "_")
		out = append(out, models.Position{
			Pair:        models.Pair{A: a, B: b},
			Type:        tr.PositionType,
			EntryPriceA: tr.EntryPriceA,
			EntryPriceB: tr.EntryPriceB,
			Quantity:    tr.Quantity,
			OpenDate:    tr.OpenDate,
		})
	}
	return out
}

// FormatTCA creates the transaction cost report
func FormatTCA(r tca.Report) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	t.AppendRow(table.Row{"Trades", r.TotalTrades})
	t.AppendRow(table.Row{"Total Volume", FormatVolume(r.TotalVolume.IntPart())})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Commission", money(r.TotalCommission), fmt.Sprintf("%.2f%%", r.CommissionPct)})
	t.AppendRow(table.Row{"Slippage", money(r.TotalSlippage), fmt.Sprintf("%.2f%%", r.SlippagePct)})
	t.AppendRow(table.Row{"Market Impact", money(r.MarketImpact), fmt.Sprintf("%.2f%%", r.MarketImpactPct)})
	t.AppendRow(table.Row{"Timing Cost", FormatDollarAmount(r.TimingCost), fmt.Sprintf("%.2f%%", r.TimingCostPct)})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Avg Slippage", money(r.AvgSlippage)})
	t.AppendRow(table.Row{"Implementation Shortfall", text.Bold.Sprint(money(r.ImplementationShortfall))})
	t.AppendRow(table.Row{"Avg Cost Ratio", fmt.Sprintf("%.4f%%", r.AvgCostRatio)})

	return t.Render()
}

// FormatDailyCosts creates the per-date cost table
func FormatDailyCosts(days []tca.DailyCost) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Date", "Trades", "Volume", "Commission", "Slippage", "Impact", "Timing", "Total", "Cost %"})
	for _, d := range days {
		t.AppendRow(table.Row{
			d.Date,
			d.Trades,
			FormatVolume(d.Volume.IntPart()),
			money(d.Commission),
			money(d.Slippage),
			money(d.MarketImpact),
			money(d.TimingCost),
			money(d.Total),
			fmt.Sprintf("%.4f%%", d.CostRatio),
		})
	}
	if len(days) == 0 {
		t.AppendRow(table.Row{"No trades", "", "", "", "", "", "", "", ""})
	}

	return t.Render()
}

// FormatStatus creates the live runner summary
func FormatStatus(s *live.Status) string {
	if s == nil {
		return "No live status available"
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	state := ColorGreen.Sprint("RUNNING")
	if !s.Running {
		state = ColorGray.Sprint("STOPPED")
	}

	t.AppendRow(table.Row{"Run", s.RunID})
	t.AppendRow(table.Row{"State", state})
	t.AppendRow(table.Row{"PID", s.PID})
	t.AppendRow(table.Row{"Started", s.StartedAt.Format(time.RFC3339)})
	t.AppendRow(table.Row{"Updated", FormatTimestamp(s.UpdatedAt)})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Date", s.Date})
	t.AppendRow(table.Row{"Progress", fmt.Sprintf("%d/%d", s.Step, s.TotalSteps)})
	t.AppendRow(table.Row{"Equity", money(s.Equity)})
	t.AppendRow(table.Row{"Cash", money(s.Cash)})
	t.AppendRow(table.Row{"Open Positions", len(s.Positions)})
	t.AppendRow(table.Row{"Trades", fmt.Sprintf("%d (%d closed)", s.TotalTrades, s.ClosedTrades)})
	t.AppendRow(table.Row{"Drawdown", fmt.Sprintf("%.2f%% (max %.2f%%)", s.Drawdown*100, s.MaxDrawdown*100)})
	t.AppendRow(table.Row{"Sharpe To Date", fmt.Sprintf("%.2f", s.SharpeToDate)})
	if s.Message != "" {
		t.AppendSeparator()
		t.AppendRow(table.Row{"Message", TruncateString(s.Message, 60)})
	}

	return t.Render()
}

// FormatRunsTable lists stored runs
func FormatRunsTable(runs []*store.Run) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Run", "Mode", "Start", "End", "Capital", "Final Equity", "Sharpe", "Created"})

	for _, r := range runs {
		final, sharpe := "", ""
		if r.Metrics != nil {
			final = money(r.Metrics.FinalEquity)
			sharpe = fmt.Sprintf("%.2f", r.Metrics.SharpeRatio)
		}
		t.AppendRow(table.Row{
			r.ID,
			r.Mode,
			r.StartDate,
			r.EndDate,
			money(r.InitialCapital),
			final,
			sharpe,
			r.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	if len(runs) == 0 {
		t.AppendRow(table.Row{"No runs", "", "", "", "", "", "", ""})
	}

	return t.Render()
}

// FormatTimestamp formats a timestamp for display
func FormatTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}

// TruncateString truncates a string to specified length
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

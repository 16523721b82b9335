package formatters

import (
	"testing"

	"github.com/TruWeaveTrader/statarb/internal/live"
	"github.com/TruWeaveTrader/statarb/internal/models"
	"github.com/TruWeaveTrader/statarb/internal/store"
	"github.com/TruWeaveTrader/statarb/internal/tca"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	text.DisableColors()
}

func TestFormatPercentAndAmounts(t *testing.T) {
	assert.Equal(t, "+5.00%", FormatFraction(0.05))
	assert.Equal(t, "-2.50%", FormatPercent(decimal.NewFromFloat(-2.5)))
	assert.Equal(t, "0.00%", FormatPercent(decimal.Zero))
	assert.Equal(t, "-$12.30", FormatDollarAmount(decimal.NewFromFloat(-12.3)))
	assert.Equal(t, "1.5M", FormatVolume(1_500_000))
	assert.Equal(t, "999", FormatVolume(999))
	assert.Equal(t, "abc...", TruncateString("abcdefghij", 6))
}

func closedTrade() models.Trade {
	return models.Trade{
		PairID:       "AAA_BBB",
		PositionType: models.LongShort,
		OpenDate:     "20220106",
		CloseDate:    "20220107",
		EntryPriceA:  decimal.NewFromInt(90),
		EntryPriceB:  decimal.NewFromInt(100),
		ExitPriceA:   decimal.NewFromInt(95),
		ExitPriceB:   decimal.NewFromInt(100),
		Quantity:     decimal.NewFromInt(500),
		PnL:          decimal.NewFromInt(2500),
		Commission:   decimal.NewFromInt(60),
		Status:       models.TradeClosed,
		ExitReason:   models.ExitMeanReversion,
	}
}

func TestFormatTradesTable(t *testing.T) {
	out := FormatTradesTable([]models.Trade{closedTrade()})

	assert.Contains(t, out, "AAA_BBB")
	assert.Contains(t, out, "mean_reversion")
	assert.Contains(t, out, "$2440.00")
	assert.Contains(t, FormatTradesTable(nil), "No trades")
}

func TestOpenPositions(t *testing.T) {
	open := closedTrade()
	open.Status = models.TradeOpen
	open.PairID = "CCC_DDD"

	positions := OpenPositions([]models.Trade{closedTrade(), open})
	require.Len(t, positions, 1)
	assert.Equal(t, models.Pair{A: "CCC", B: "DDD"}, positions[0].Pair)
	assert.True(t, positions[0].Quantity.Equal(decimal.NewFromInt(500)))

	out := FormatPositionsTable(positions)
	assert.Contains(t, out, "CCC/DDD")
	assert.Contains(t, FormatPositionsTable(nil), "No open positions")
}

func TestFormatMetrics(t *testing.T) {
	out := FormatMetrics(models.Metrics{
		InitialEquity: decimal.NewFromInt(1_000_000),
		FinalEquity:   decimal.NewFromInt(1_050_000),
		TotalReturn:   0.05,
		SharpeRatio:   1.234,
		MaxDrawdown:   0.1,
		Warnings:      []string{"annualized return undefined for non-positive growth"},
	})

	assert.Contains(t, out, "$1050000.00")
	assert.Contains(t, out, "+5.00%")
	assert.Contains(t, out, "1.23")
	assert.Contains(t, out, "10.00%")
	assert.Contains(t, out, "non-positive growth")
}

func TestFormatTCAAndStatusAndRuns(t *testing.T) {
	report := tca.Analyze([]models.Trade{{
		OpenDate: "20220103", Volume: decimal.NewFromInt(100_000),
		Commission: decimal.NewFromInt(30), TotalCost: decimal.NewFromInt(30),
	}})
	assert.Contains(t, FormatTCA(report), "100.0K")
	assert.Contains(t, FormatDailyCosts(report.Daily), "20220103")

	assert.Equal(t, "No live status available", FormatStatus(nil))
	status := FormatStatus(&live.Status{RunID: "01HRUN", Running: true, Step: 3, TotalSteps: 90, Message: "replay complete"})
	assert.Contains(t, status, "RUNNING")
	assert.Contains(t, status, "3/90")

	runs := FormatRunsTable([]*store.Run{{ID: "01HRUN", Mode: models.Historical, Metrics: &models.Metrics{SharpeRatio: 2}}})
	assert.Contains(t, runs, "01HRUN")
	assert.Contains(t, runs, "2.00")
	assert.Contains(t, FormatRunsTable(nil), "No runs")
}

package chart

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/TruWeaveTrader/statarb/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCurve() []models.EquityPoint {
	return []models.EquityPoint{
		{Date: "20220103", Equity: decimal.NewFromInt(100000)},
		{Date: "20220104", Equity: decimal.NewFromInt(110000), Return: 0.1},
		{Date: "20220105", Equity: decimal.NewFromInt(99000), Return: -0.1, Drawdown: 0.1},
	}
}

func TestFromCurve(t *testing.T) {
	t.Parallel()

	s := FromCurve(testCurve())
	require.Equal(t, 3, s.Len())
	assert.Equal(t, []string{"20220103", "20220104", "20220105"}, s.Dates)
	assert.Equal(t, []float64{100000, 110000, 99000}, s.Equity)
	assert.Equal(t, []float64{0, 0.1, -0.1}, s.Returns)
	assert.Equal(t, []float64{0, 0, 0.1}, s.Drawdown)
}

func TestCSVSink(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "equity.csv")
	require.NoError(t, NewCSVSink(path).Render(context.Background(), FromCurve(testCurve())))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"date", "equity", "return", "drawdown"}, rows[0])
	assert.Equal(t, []string{"20220105", "99000.00", "-0.10000000", "0.10000000"}, rows[3])
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	var r Recorder
	_, ok := r.Last()
	assert.False(t, ok)

	require.NoError(t, r.Render(context.Background(), FromCurve(testCurve())))
	s, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, 3, s.Len())
}

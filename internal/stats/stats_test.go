package stats

import (
	"errors"
	"fmt"
	"testing"

	"github.com/TruWeaveTrader/statarb/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(inst string, closes map[string]float64, dates ...string) []models.PricePoint {
	out := make([]models.PricePoint, 0, len(dates))
	for _, d := range dates {
		c, ok := closes[d]
		if !ok {
			continue
		}
		out = append(out, models.PricePoint{Instrument: inst, Date: d, Close: decimal.NewFromFloat(c)})
	}
	return out
}

func dates(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("202201%02d", i+1)
	}
	return out
}

func TestAlignIntersectsDates(t *testing.T) {
	t.Parallel()

	a := series("A", map[string]float64{"20220103": 10, "20220104": 11, "20220105": 12}, "20220103", "20220104", "20220105")
	b := series("B", map[string]float64{"20220104": 5, "20220105": 6, "20220106": 7}, "20220104", "20220105", "20220106")

	obs := Align(a, b)
	require.Len(t, obs, 2)
	assert.Equal(t, "20220104", obs[0].Date)
	assert.InDelta(t, 2.2, obs[0].Ratio, 1e-12)
	assert.Equal(t, "20220105", obs[1].Date)
	assert.InDelta(t, 2.0, obs[1].Ratio, 1e-12)
}

func TestAlignSkipsZeroDenominator(t *testing.T) {
	t.Parallel()

	a := series("A", map[string]float64{"20220103": 10}, "20220103")
	b := series("B", map[string]float64{"20220103": 0}, "20220103")

	assert.Empty(t, Align(a, b))
}

func TestComputeInsufficientData(t *testing.T) {
	t.Parallel()

	obs := []Observation{{Date: "20220103", Ratio: 1}, {Date: "20220104", Ratio: 2}}
	_, err := NewCalculator(3, Rolling).Compute("A_B", obs)
	assert.True(t, errors.Is(err, ErrInsufficientData))
}

func TestComputeRollingUsesLastLookback(t *testing.T) {
	t.Parallel()

	obs := []Observation{
		{Date: "20220103", Ratio: 100},
		{Date: "20220104", Ratio: 1},
		{Date: "20220105", Ratio: 2},
		{Date: "20220106", Ratio: 3},
	}

	s, err := NewCalculator(3, Rolling).Compute("A_B", obs)
	require.NoError(t, err)
	assert.Equal(t, "A_B", s.PairID)
	assert.Equal(t, 3, s.Observations)
	assert.InDelta(t, 2.0, s.Mean, 1e-12)
	assert.InDelta(t, 0.816496580927726, s.Std, 1e-12)
	assert.False(t, s.Clamped)
}

func TestComputeFixedUsesAllObservations(t *testing.T) {
	t.Parallel()

	obs := []Observation{{Ratio: 1}, {Ratio: 2}, {Ratio: 3}, {Ratio: 4}}

	s, err := NewCalculator(2, Fixed).Compute("A_B", obs)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Observations)
	assert.InDelta(t, 2.5, s.Mean, 1e-12)
}

func TestComputeClampsDegenerateStd(t *testing.T) {
	t.Parallel()

	d := dates(5)
	closes := map[string]float64{}
	for _, day := range d {
		closes[day] = 10
	}
	obs := Align(series("A", closes, d...), series("B", closes, d...))

	s, err := NewCalculator(5, Rolling).Compute("A_B", obs)
	require.NoError(t, err)
	assert.Equal(t, Epsilon, s.Std)
	assert.True(t, s.Clamped)
	assert.InDelta(t, 1.0, s.Mean, 1e-12)
}

func TestStdNeverBelowEpsilon(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(4, Rolling)
	for step := 0; step < 50; step++ {
		obs := make([]Observation, 6)
		for i := range obs {
			obs[i] = Observation{Ratio: 1 + float64(i*step)*1e-7}
		}
		s, err := calc.Compute("A_B", obs)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, s.Std, Epsilon)
	}
}

func TestZScore(t *testing.T) {
	t.Parallel()

	s := models.PairStats{Mean: 2, Std: 0.5}
	assert.InDelta(t, 2.0, ZScore(3, s), 1e-12)
	assert.InDelta(t, -2.0, ZScore(1, s), 1e-12)

	// A zero std is treated as the floor
	assert.InDelta(t, 1/Epsilon, ZScore(3, models.PairStats{Mean: 2}), 1e-6)
}

func TestAnnualizedSharpe(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, AnnualizedSharpe(nil))
	assert.Equal(t, 0.0, AnnualizedSharpe([]float64{0.01}))
	assert.Equal(t, 0.0, AnnualizedSharpe([]float64{0.01, 0.01, 0.01}))

	returns := []float64{0.01, -0.01, 0.02}
	expected := Mean(returns) / PopulationStdDev(returns) * 15.874507866387544
	assert.InDelta(t, expected, AnnualizedSharpe(returns), 1e-9)
}

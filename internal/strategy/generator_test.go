package strategy

import (
	"errors"
	"testing"

	"github.com/TruWeaveTrader/statarb/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testPair = models.Pair{A: "AAA", B: "BBB"}

// Mean 1 and std 0.5 keep the test ratios exactly representable
var testStats = models.PairStats{PairID: "AAA_BBB", Mean: 1, Std: 0.5, Observations: 60}

func newTestGenerator(policy ExitPolicy) *Generator {
	return NewGenerator(Config{
		EntryThreshold: 1.0,
		ExitThreshold:  0.5,
		StopLoss:       0.1,
		MaxHoldDays:    20,
		Policy:         policy,
	}, zap.NewNop())
}

func price(v float64) *decimal.Decimal {
	d := decimal.NewFromFloat(v)
	return &d
}

func openPosition(pt models.PositionType, openDate string) *models.Position {
	return &models.Position{
		Pair:        testPair,
		Type:        pt,
		EntryPriceA: decimal.NewFromInt(100),
		EntryPriceB: decimal.NewFromInt(100),
		Quantity:    decimal.NewFromInt(10),
		OpenDate:    openDate,
	}
}

func TestEntryRequiresStrictInequality(t *testing.T) {
	t.Parallel()
	g := newTestGenerator(StopLossFirst)

	// ratio 1.5 => z exactly 1.0
	sig, err := g.Generate("20220110", testPair, testStats, price(150), price(100), nil)
	require.NoError(t, err)
	assert.Nil(t, sig)

	// ratio 0.5 => z exactly -1.0
	sig, err = g.Generate("20220110", testPair, testStats, price(50), price(100), nil)
	require.NoError(t, err)
	assert.Nil(t, sig)

	sig, err = g.Generate("20220110", testPair, testStats, price(150.01), price(100), nil)
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, models.Open, sig.Action)
	assert.Equal(t, models.ShortLong, sig.PositionType)
	assert.Greater(t, sig.ZScore, 1.0)

	sig, err = g.Generate("20220110", testPair, testStats, price(49.99), price(100), nil)
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, models.LongShort, sig.PositionType)
	assert.True(t, sig.PriceA.Equal(decimal.NewFromFloat(49.99)))
	assert.Equal(t, "20220110", sig.Date)
}

func TestFlatInsideBandHolds(t *testing.T) {
	t.Parallel()
	g := newTestGenerator(StopLossFirst)

	sig, err := g.Generate("20220110", testPair, testStats, price(120), price(100), nil)
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestMeanReversionExit(t *testing.T) {
	t.Parallel()
	g := newTestGenerator(StopLossFirst)

	// long_short holds while z <= -exit
	pos := openPosition(models.LongShort, "20220103")
	pos.EntryPriceA = decimal.NewFromInt(75)
	sig, err := g.Generate("20220105", testPair, testStats, price(75), price(100), pos)
	require.NoError(t, err)
	assert.Nil(t, sig, "z=-0.5 is not above -exit")

	sig, err = g.Generate("20220105", testPair, testStats, price(100), price(100), pos)
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, models.Close, sig.Action)
	assert.Equal(t, models.LongShort, sig.PositionType)
	assert.Equal(t, models.ExitMeanReversion, sig.Reason)

	// short_long closes once z < exit
	pos = openPosition(models.ShortLong, "20220103")
	pos.EntryPriceA = decimal.NewFromInt(125)
	sig, err = g.Generate("20220105", testPair, testStats, price(125), price(100), pos)
	require.NoError(t, err)
	assert.Nil(t, sig, "z=0.5 is not below exit")

	sig, err = g.Generate("20220105", testPair, testStats, price(110), price(100), pos)
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, models.ExitMeanReversion, sig.Reason)
}

func TestStopLossExit(t *testing.T) {
	t.Parallel()
	g := newTestGenerator(StopLossFirst)

	// long_short: leg A down 15%, leg B flat => combined -0.15
	pos := openPosition(models.LongShort, "20220103")
	sig, err := g.Generate("20220104", testPair, testStats, price(85), price(100), pos)
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, models.ExitStopLoss, sig.Reason)

	// short_long: leg A up 20%, leg B flat => combined -0.2
	pos = openPosition(models.ShortLong, "20220103")
	sig, err = g.Generate("20220104", testPair, testStats, price(120), price(100), pos)
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, models.ExitStopLoss, sig.Reason)
}

func TestForcedTimeExit(t *testing.T) {
	t.Parallel()
	g := newTestGenerator(StopLossFirst)

	// z=-1 keeps a long_short open and flat prices keep the stop away
	pos := openPosition(models.LongShort, "20220103")
	pos.EntryPriceA = decimal.NewFromInt(50)

	sig, err := g.Generate("20220122", testPair, testStats, price(50), price(100), pos)
	require.NoError(t, err)
	assert.Nil(t, sig, "19 days held and no exit rule hit")

	sig, err = g.Generate("20220123", testPair, testStats, price(50), price(100), pos)
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, models.ExitMaxHold, sig.Reason)
}

func TestExitPolicyTieBreak(t *testing.T) {
	t.Parallel()

	// Both stop-loss and forced exit trigger on day 25
	pos := openPosition(models.LongShort, "20220101")
	pa, pb := price(50), price(100)

	sig, err := newTestGenerator(StopLossFirst).Generate("20220126", testPair, testStats, pa, pb, pos)
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, models.ExitStopLoss, sig.Reason)

	sig2, err := newTestGenerator(TimeExitFirst).Generate("20220126", testPair, testStats, pa, pb, pos)
	require.NoError(t, err)
	require.NotNil(t, sig2)
	assert.Equal(t, models.ExitMaxHold, sig2.Reason)

	// Only the label differs
	assert.Equal(t, sig.Action, sig2.Action)
	assert.Equal(t, sig.PositionType, sig2.PositionType)
	assert.True(t, sig.PriceA.Equal(sig2.PriceA))
}

func TestMissingPriceIsDataGap(t *testing.T) {
	t.Parallel()
	g := newTestGenerator(StopLossFirst)

	_, err := g.Generate("20220110", testPair, testStats, nil, price(100), nil)
	assert.True(t, errors.Is(err, models.ErrMissingPrice))

	_, err = g.Generate("20220110", testPair, testStats, price(100), price(0), nil)
	assert.True(t, errors.Is(err, models.ErrMissingPrice))
}

func TestCombinedReturn(t *testing.T) {
	t.Parallel()

	pos := openPosition(models.LongShort, "20220101")
	assert.InDelta(t, 0.1-(-0.1), CombinedReturn(pos, decimal.NewFromInt(110), decimal.NewFromInt(90)), 1e-12)

	pos.Type = models.ShortLong
	assert.InDelta(t, -0.2, CombinedReturn(pos, decimal.NewFromInt(110), decimal.NewFromInt(90)), 1e-12)
}

func TestParseExitPolicy(t *testing.T) {
	t.Parallel()

	p, err := ParseExitPolicy("")
	require.NoError(t, err)
	assert.Equal(t, StopLossFirst, p)

	p, err = ParseExitPolicy("time_exit_first")
	require.NoError(t, err)
	assert.Equal(t, TimeExitFirst, p)

	_, err = ParseExitPolicy("random")
	assert.Error(t, err)
}

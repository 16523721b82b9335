package stats

import (
	"errors"
	"fmt"

	"github.com/TruWeaveTrader/statarb/internal/models"
	"github.com/shopspring/decimal"
)

// Epsilon is the floor applied to the ratio standard deviation
const Epsilon = 1e-4

// ErrInsufficientData means fewer than lookback common observations exist
var ErrInsufficientData = errors.New("insufficient data")

// WindowMode selects which observations feed the statistics
type WindowMode string

const (
	Rolling WindowMode = "rolling" // Last lookback observations up to the current date
	Fixed   WindowMode = "fixed"   // Every loaded observation, computed once per run
)

// Observation is one date on which both legs have a close
type Observation struct {
	Date   string
	CloseA decimal.Decimal
	CloseB decimal.Decimal
	Ratio  float64
}

// Align intersects two date-ordered series on their common dates.
// Dates where leg B closes at zero are dropped since the ratio is undefined.
func Align(a, b []models.PricePoint) []Observation {
	out := make([]Observation, 0, min(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Date < b[j].Date:
			i++
		case a[i].Date > b[j].Date:
			j++
		default:
			if ratio, ok := Ratio(a[i].Close, b[j].Close); ok {
				out = append(out, Observation{
					Date:   a[i].Date,
					CloseA: a[i].Close,
					CloseB: b[j].Close,
					Ratio:  ratio,
				})
			}
			i++
			j++
		}
	}
	return out
}

// Ratio returns close_a / close_b
func Ratio(closeA, closeB decimal.Decimal) (float64, bool) {
	if closeB.IsZero() {
		return 0, false
	}
	return closeA.InexactFloat64() / closeB.InexactFloat64(), true
}

// Calculator computes pair ratio statistics
type Calculator struct {
	Lookback int
	Mode     WindowMode
}

// NewCalculator creates a calculator, defaulting to a rolling window
func NewCalculator(lookback int, mode WindowMode) *Calculator {
	if mode == "" {
		mode = Rolling
	}
	return &Calculator{Lookback: lookback, Mode: mode}
}

// Compute returns the ratio mean and population std of a pair.
// Rolling mode uses the most recent Lookback observations, fixed mode uses all of them.
func (c *Calculator) Compute(pairID string, obs []Observation) (models.PairStats, error) {
	if c.Lookback <= 0 {
		return models.PairStats{}, fmt.Errorf("invalid lookback %d", c.Lookback)
	}
	if len(obs) < c.Lookback {
		return models.PairStats{}, fmt.Errorf("%w: pair %s has %d of %d observations",
			ErrInsufficientData, pairID, len(obs), c.Lookback)
	}

	window := obs
	if c.Mode == Rolling {
		window = obs[len(obs)-c.Lookback:]
	}

	ratios := make([]float64, len(window))
	for i, o := range window {
		ratios[i] = o.Ratio
	}

	result := models.PairStats{
		PairID:       pairID,
		Mean:         Mean(ratios),
		Std:          PopulationStdDev(ratios),
		Observations: len(ratios),
	}
	if result.Std < Epsilon {
		result.Std = Epsilon
		result.Clamped = true
	}
	return result, nil
}

// ZScore standardizes a ratio against the pair statistics
func ZScore(ratio float64, s models.PairStats) float64 {
	std := s.Std
	if std < Epsilon {
		std = Epsilon
	}
	return (ratio - s.Mean) / std
}

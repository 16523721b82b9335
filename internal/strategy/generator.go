package strategy

import (
	"fmt"

	"github.com/TruWeaveTrader/statarb/internal/models"
	"github.com/TruWeaveTrader/statarb/internal/stats"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config holds the z-score thresholds and exit rules
type Config struct {
	EntryThreshold float64    // Open when |z| strictly exceeds this
	ExitThreshold  float64    // Close once z reverts past this
	StopLoss       float64    // Combined leg return floor, as a fraction
	MaxHoldDays    int        // Forced exit after this many calendar days
	Policy         ExitPolicy // Label precedence for same-day exits
}

// Generator turns pair statistics and prices into open/close signals
type Generator struct {
	cfg    Config
	logger *zap.Logger
}

// NewGenerator creates a signal generator
func NewGenerator(cfg Config, logger *zap.Logger) *Generator {
	if cfg.Policy == "" {
		cfg.Policy = StopLossFirst
	}
	return &Generator{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "signal_generator")),
	}
}

// Generate evaluates one pair on one date. A nil signal means hold.
// A nil price for either leg yields models.ErrMissingPrice.
func (g *Generator) Generate(date string, pair models.Pair, st models.PairStats, priceA, priceB *decimal.Decimal, pos *models.Position) (*models.Signal, error) {
	if priceA == nil || priceB == nil || !priceA.IsPositive() || !priceB.IsPositive() {
		return nil, fmt.Errorf("%w: pair %s on %s", models.ErrMissingPrice, pair.ID(), date)
	}

	ratio, _ := stats.Ratio(*priceA, *priceB)
	zScore := stats.ZScore(ratio, st)

	// Check for position exit signals first
	if pos != nil {
		return g.checkExitSignals(date, pair, pos, *priceA, *priceB, zScore)
	}

	return g.checkEntrySignals(date, pair, *priceA, *priceB, zScore), nil
}

// checkEntrySignals opens against the direction of the ratio deviation
func (g *Generator) checkEntrySignals(date string, pair models.Pair, priceA, priceB decimal.Decimal, zScore float64) *models.Signal {
	var positionType models.PositionType
	switch {
	case zScore > g.cfg.EntryThreshold:
		positionType = models.ShortLong
	case zScore < -g.cfg.EntryThreshold:
		positionType = models.LongShort
	default:
		return nil
	}

	g.logger.Debug("entry signal",
		zap.String("pair", pair.ID()),
		zap.String("date", date),
		zap.String("position_type", string(positionType)),
		zap.Float64("z_score", zScore),
	)

	return &models.Signal{
		Pair:         pair,
		Action:       models.Open,
		PositionType: positionType,
		ZScore:       zScore,
		PriceA:       priceA,
		PriceB:       priceB,
		Date:         date,
	}
}

// checkExitSignals walks the exit rules in policy order
func (g *Generator) checkExitSignals(date string, pair models.Pair, pos *models.Position, priceA, priceB decimal.Decimal, zScore float64) (*models.Signal, error) {
	daysHeld, err := models.DaysBetween(pos.OpenDate, date)
	if err != nil {
		return nil, fmt.Errorf("days held for %s: %w", pair.ID(), err)
	}

	for _, rule := range g.cfg.Policy.Order() {
		var hit bool
		switch rule {
		case models.ExitStopLoss:
			hit = g.stopLossHit(pos, priceA, priceB)
		case models.ExitMaxHold:
			hit = daysHeld >= g.cfg.MaxHoldDays
		case models.ExitMeanReversion:
			hit = g.reverted(pos.Type, zScore)
		}
		if !hit {
			continue
		}

		g.logger.Debug("exit signal",
			zap.String("pair", pair.ID()),
			zap.String("date", date),
			zap.String("reason", string(rule)),
			zap.Float64("z_score", zScore),
			zap.Int("days_held", daysHeld),
		)

		return &models.Signal{
			Pair:         pair,
			Action:       models.Close,
			PositionType: pos.Type,
			ZScore:       zScore,
			PriceA:       priceA,
			PriceB:       priceB,
			Date:         date,
			Reason:       rule,
		}, nil
	}

	return nil, nil
}

// reverted reports the mean-reversion exit for a position type
func (g *Generator) reverted(pt models.PositionType, zScore float64) bool {
	if pt == models.LongShort {
		return zScore > -g.cfg.ExitThreshold
	}
	return zScore < g.cfg.ExitThreshold
}

// stopLossHit compares the combined return of both legs with the stop fraction
func (g *Generator) stopLossHit(pos *models.Position, priceA, priceB decimal.Decimal) bool {
	return CombinedReturn(pos, priceA, priceB) < -g.cfg.StopLoss
}

// CombinedReturn is the summed return of both legs since entry
func CombinedReturn(pos *models.Position, priceA, priceB decimal.Decimal) float64 {
	if !pos.EntryPriceA.IsPositive() || !pos.EntryPriceB.IsPositive() {
		return 0
	}
	legA := priceA.InexactFloat64()/pos.EntryPriceA.InexactFloat64() - 1
	legB := priceB.InexactFloat64()/pos.EntryPriceB.InexactFloat64() - 1
	if pos.Type == models.LongShort {
		return legA - legB
	}
	return legB - legA
}

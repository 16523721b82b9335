package risk

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/TruWeaveTrader/statarb/internal/config"
	"github.com/shopspring/decimal"
)

// Config holds sizing and transaction cost parameters
type Config struct {
	PositionSize        float64 // Fraction of equity allocated per pair entry
	CommissionRate      float64
	SlippageRate        float64
	ImpactCoefficient   float64
	ImpactNormalization float64
	TimingNoiseStd      float64
}

// FromAppConfig extracts the risk settings from the application config
func FromAppConfig(cfg *config.Config) Config {
	return Config{
		PositionSize:        cfg.PositionSize,
		CommissionRate:      cfg.CommissionRate,
		SlippageRate:        cfg.SlippageRate,
		ImpactCoefficient:   cfg.ImpactCoefficient,
		ImpactNormalization: cfg.ImpactNormalization,
		TimingNoiseStd:      cfg.TimingNoiseStd,
	}
}

// Manager handles risk checks, position sizing and the cost model
type Manager struct {
	cfg Config
	rng *rand.Rand
}

// NewManager creates a risk manager. rng drives timing-cost noise and should
// be seeded once per run; nil disables the timing component.
func NewManager(cfg Config, rng *rand.Rand) *Manager {
	return &Manager{cfg: cfg, rng: rng}
}

// CheckResult contains the result of a risk check
type CheckResult struct {
	Passed   bool
	Reason   string
	Warnings []string
}

// Costs is the transaction cost breakdown of one execution
type Costs struct {
	Volume       decimal.Decimal
	Commission   decimal.Decimal
	Slippage     decimal.Decimal
	MarketImpact decimal.Decimal
	TimingCost   decimal.Decimal
	Total        decimal.Decimal
}

// Add sums two cost breakdowns
func (c Costs) Add(o Costs) Costs {
	return Costs{
		Volume:       c.Volume.Add(o.Volume),
		Commission:   c.Commission.Add(o.Commission),
		Slippage:     c.Slippage.Add(o.Slippage),
		MarketImpact: c.MarketImpact.Add(o.MarketImpact),
		TimingCost:   c.TimingCost.Add(o.TimingCost),
		Total:        c.Total.Add(o.Total),
	}
}

// ValidateEntry performs pre-trade checks on an entry
func (m *Manager) ValidateEntry(equity, priceA, priceB decimal.Decimal) CheckResult {
	if !priceA.IsPositive() || !priceB.IsPositive() {
		return CheckResult{
			Passed: false,
			Reason: "Invalid prices: both legs must be positive",
		}
	}

	if !equity.IsPositive() {
		return CheckResult{
			Passed: false,
			Reason: fmt.Sprintf("Equity $%.2f leaves nothing to allocate", equity.InexactFloat64()),
		}
	}

	result := CheckResult{Passed: true}

	// Warn when the entry commission eats a visible share of the allocation
	if m.cfg.CommissionRate > 0.001 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Commission rate %.4f%% is unusually high", m.cfg.CommissionRate*100))
	}

	return result
}

// CalculatePositionSize returns the pair quantity for an entry:
// position_size * equity / (price_a + price_b)
func (m *Manager) CalculatePositionSize(equity, priceA, priceB decimal.Decimal) decimal.Decimal {
	legs := priceA.Add(priceB)
	if !legs.IsPositive() {
		return decimal.Zero
	}
	allocation := equity.Mul(decimal.NewFromFloat(m.cfg.PositionSize))
	return allocation.Div(legs)
}

// Commission returns (price_a + price_b) * quantity * commission_rate
func (m *Manager) Commission(quantity, priceA, priceB decimal.Decimal) decimal.Decimal {
	return priceA.Add(priceB).Mul(quantity).Mul(decimal.NewFromFloat(m.cfg.CommissionRate))
}

// EstimateCosts applies the cost model to one execution of both legs
func (m *Manager) EstimateCosts(quantity, priceA, priceB decimal.Decimal) Costs {
	volume := quantity.Mul(priceA.Add(priceB))
	commission := m.Commission(quantity, priceA, priceB)
	slippage := volume.Mul(decimal.NewFromFloat(m.cfg.SlippageRate))

	impact := decimal.Zero
	if m.cfg.ImpactNormalization > 0 && volume.IsPositive() {
		impact = decimal.NewFromFloat(m.cfg.ImpactCoefficient *
			math.Sqrt(volume.InexactFloat64()/m.cfg.ImpactNormalization))
	}

	timing := decimal.Zero
	if m.rng != nil && m.cfg.TimingNoiseStd > 0 {
		timing = decimal.NewFromFloat(m.rng.NormFloat64() * m.cfg.TimingNoiseStd * volume.InexactFloat64())
	}

	return Costs{
		Volume:       volume,
		Commission:   commission,
		Slippage:     slippage,
		MarketImpact: impact,
		TimingCost:   timing,
		Total:        commission.Add(slippage).Add(impact).Add(timing),
	}
}

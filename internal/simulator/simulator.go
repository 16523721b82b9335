package simulator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/TruWeaveTrader/statarb/internal/chart"
	"github.com/TruWeaveTrader/statarb/internal/config"
	"github.com/TruWeaveTrader/statarb/internal/ledger"
	"github.com/TruWeaveTrader/statarb/internal/models"
	"github.com/TruWeaveTrader/statarb/internal/performance"
	"github.com/TruWeaveTrader/statarb/internal/risk"
	"github.com/TruWeaveTrader/statarb/internal/stats"
	"github.com/TruWeaveTrader/statarb/internal/strategy"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PriceReader is the read side of the price store
type PriceReader interface {
	GetRange(ctx context.Context, instrument, start, end string) ([]models.PricePoint, error)
}

// TradeSink receives new trades and the open-to-closed transition
type TradeSink interface {
	AppendTrade(ctx context.Context, t *models.Trade) (int64, error)
	FinalizeTrade(ctx context.Context, t *models.Trade) error
}

// MetricsSink receives one equity point per simulated day
type MetricsSink interface {
	RecordMetric(ctx context.Context, runID string, p models.EquityPoint) error
}

// Sinks are the optional outputs of a run
type Sinks struct {
	Trades  TradeSink
	Metrics MetricsSink
	Chart   chart.Sink
}

// Options configure one simulation run
type Options struct {
	RunID          string
	Mode           models.Mode
	Pairs          []models.Pair
	StartDate      string
	EndDate        string
	InitialCapital decimal.Decimal
	Lookback       int
	WindowMode     stats.WindowMode
	Strategy       strategy.Config
	Risk           risk.Config
	Seed           int64
}

// OptionsFromConfig builds run options from the application config
func OptionsFromConfig(cfg *config.Config, runID string, mode models.Mode) (Options, error) {
	policy, err := strategy.ParseExitPolicy(cfg.ExitPriority)
	if err != nil {
		return Options{}, err
	}

	return Options{
		RunID:          runID,
		Mode:           mode,
		Pairs:          cfg.Pairs,
		StartDate:      cfg.StartDate,
		EndDate:        cfg.EndDate,
		InitialCapital: decimal.NewFromFloat(cfg.InitialCapital),
		Lookback:       cfg.Lookback,
		WindowMode:     stats.WindowMode(cfg.WindowMode),
		Strategy: strategy.Config{
			EntryThreshold: cfg.EntryThreshold,
			ExitThreshold:  cfg.ExitThreshold,
			StopLoss:       cfg.StopLoss,
			MaxHoldDays:    cfg.MaxHoldDays,
			Policy:         policy,
		},
		Risk: risk.FromAppConfig(cfg),
		Seed: cfg.Seed,
	}, nil
}

// Skip reasons counted per run
const (
	SkipInsufficientData = "insufficient_data"
	SkipMissingPrice     = "missing_price"
	SkipRejected         = "rejected"
)

// Simulator executes signals against daily closes and owns the ledger and capital.
// It is driven from a single goroutine.
type Simulator struct {
	opts   Options
	sinks  Sinks
	logger *zap.Logger

	calc     *stats.Calculator
	gen      *strategy.Generator
	risk     *risk.Manager
	ledger   *ledger.Ledger
	analyzer *performance.Analyzer

	// Realized capital: initial capital plus closed pnl minus commissions
	cash       decimal.Decimal
	openTrades map[string]*models.Trade
	trades     []*models.Trade

	// Loaded data
	dates      []string
	closes     map[string]map[string]decimal.Decimal
	lastClose  map[string]decimal.Decimal
	obs        map[string][]stats.Observation
	fixedStats map[string]models.PairStats

	lastDate string
	skipped  map[string]int
}

// New creates a simulator. The random source for timing costs is seeded once here.
func New(opts Options, sinks Sinks, logger *zap.Logger) *Simulator {
	if opts.Mode == "" {
		opts.Mode = models.Historical
	}

	rng := rand.New(rand.NewSource(opts.Seed))

	return &Simulator{
		opts:       opts,
		sinks:      sinks,
		logger:     logger.With(zap.String("component", "simulator"), zap.String("mode", string(opts.Mode))),
		calc:       stats.NewCalculator(opts.Lookback, opts.WindowMode),
		gen:        strategy.NewGenerator(opts.Strategy, logger),
		risk:       risk.NewManager(opts.Risk, rng),
		ledger:     ledger.New(),
		analyzer:   performance.NewAnalyzer(),
		cash:       opts.InitialCapital,
		openTrades: make(map[string]*models.Trade),
		closes:     make(map[string]map[string]decimal.Decimal),
		lastClose:  make(map[string]decimal.Decimal),
		obs:        make(map[string][]stats.Observation),
		fixedStats: make(map[string]models.PairStats),
		skipped:    make(map[string]int),
	}
}

// Load reads every leg's history for the run range and builds the trading calendar
func (s *Simulator) Load(ctx context.Context, prices PriceReader) error {
	series := make(map[string][]models.PricePoint)
	calendar := make(map[string]bool)

	for _, pair := range s.opts.Pairs {
		for _, inst := range []string{pair.A, pair.B} {
			if _, done := series[inst]; done {
				continue
			}
			points, err := prices.GetRange(ctx, inst, s.opts.StartDate, s.opts.EndDate)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", inst, err)
			}
			if len(points) == 0 {
				s.logger.Warn("no price data", zap.String("instrument", inst))
			}
			series[inst] = points

			byDate := make(map[string]decimal.Decimal, len(points))
			for _, p := range points {
				byDate[p.Date] = p.Close
				calendar[p.Date] = true
			}
			s.closes[inst] = byDate
		}
	}

	s.dates = make([]string, 0, len(calendar))
	for d := range calendar {
		s.dates = append(s.dates, d)
	}
	sort.Strings(s.dates)

	for _, pair := range s.opts.Pairs {
		obs := stats.Align(series[pair.A], series[pair.B])
		s.obs[pair.ID()] = obs

		if s.calc.Mode != stats.Fixed {
			continue
		}
		st, err := s.calc.Compute(pair.ID(), obs)
		if err != nil {
			s.logger.Warn("pair statistics unavailable", zap.String("pair", pair.ID()), zap.Error(err))
			continue
		}
		s.fixedStats[pair.ID()] = st
	}

	s.logger.Info("price history loaded",
		zap.Int("pairs", len(s.opts.Pairs)),
		zap.Int("trading_days", len(s.dates)),
		zap.String("start", s.opts.StartDate),
		zap.String("end", s.opts.EndDate),
	)

	return nil
}

// Dates returns the trading calendar
func (s *Simulator) Dates() []string {
	out := make([]string, len(s.dates))
	copy(out, s.dates)
	return out
}

// Run steps through every trading date in order
func (s *Simulator) Run(ctx context.Context) (*Result, error) {
	if len(s.dates) == 0 {
		return nil, fmt.Errorf("no price data between %s and %s", s.opts.StartDate, s.opts.EndDate)
	}

	for _, date := range s.dates {
		if err := ctx.Err(); err != nil {
			return s.Result(), err
		}
		if _, err := s.Step(ctx, date); err != nil {
			return s.Result(), err
		}
	}

	result := s.Result()

	if s.sinks.Chart != nil {
		if err := s.sinks.Chart.Render(ctx, chart.FromCurve(result.Curve)); err != nil {
			s.logger.Error("failed to render chart series", zap.Error(err))
		}
	}

	s.logger.Info("simulation finished",
		zap.String("run_id", s.opts.RunID),
		zap.String("final_equity", result.Metrics.FinalEquity.StringFixed(2)),
		zap.Float64("total_return", result.Metrics.TotalReturn),
		zap.Float64("sharpe", result.Metrics.SharpeRatio),
		zap.Float64("max_drawdown", result.Metrics.MaxDrawdown),
		zap.Int("trades", result.Metrics.TotalTrades),
	)

	return result, nil
}

// StepResult describes one simulated trading day
type StepResult struct {
	Date          string
	Signals       int
	Opened        []models.Trade
	Closed        []models.Trade
	Point         models.EquityPoint
	OpenPositions int
}

// Step simulates a single trading date. Per-pair data problems are skipped and
// logged; only a broken ledger invariant returns an error.
// A started step always runs to completion: cancellation is honoured between dates,
// and sink writes within the step do not observe it.
func (s *Simulator) Step(ctx context.Context, date string) (StepResult, error) {
	if s.lastDate != "" && date <= s.lastDate {
		return StepResult{}, fmt.Errorf("date %s does not follow %s", date, s.lastDate)
	}
	ctx = context.WithoutCancel(ctx)

	for inst, byDate := range s.closes {
		if c, ok := byDate[date]; ok {
			s.lastClose[inst] = c
		}
	}

	signals := s.generateSignals(date)

	result := StepResult{Date: date, Signals: len(signals)}
	for _, sig := range signals {
		trade, err := s.Execute(ctx, sig)
		if err != nil {
			// Execute already counted missing prices
			if !errors.Is(err, models.ErrMissingPrice) {
				s.skipped[SkipRejected]++
			}
			s.logger.Warn("signal not executed",
				zap.String("pair", sig.PairID()),
				zap.String("date", date),
				zap.String("action", string(sig.Action)),
				zap.Error(err))
			continue
		}
		if trade.IsClosed() {
			result.Closed = append(result.Closed, *trade)
		} else {
			result.Opened = append(result.Opened, *trade)
		}
	}

	point := s.analyzer.Update(date, s.Equity())
	result.Point = point
	result.OpenPositions = s.ledger.Len()
	s.lastDate = date

	if s.sinks.Metrics != nil {
		if err := s.sinks.Metrics.RecordMetric(ctx, s.opts.RunID, point); err != nil {
			s.logger.Error("failed to record metric", zap.String("date", date), zap.Error(err))
		}
	}

	if err := s.checkInvariants(); err != nil {
		return result, err
	}

	return result, nil
}

// generateSignals evaluates every pair and orders closes before opens
func (s *Simulator) generateSignals(date string) []*models.Signal {
	var closes, opens []*models.Signal

	for _, pair := range s.opts.Pairs {
		st, err := s.statsFor(pair, date)
		if err != nil {
			if errors.Is(err, stats.ErrInsufficientData) {
				s.skipped[SkipInsufficientData]++
				s.logger.Debug("pair skipped", zap.String("pair", pair.ID()), zap.String("date", date), zap.Error(err))
			} else {
				s.logger.Warn("pair statistics failed", zap.String("pair", pair.ID()), zap.String("date", date), zap.Error(err))
			}
			continue
		}

		sig, err := s.gen.Generate(date, pair, st, s.priceOn(pair.A, date), s.priceOn(pair.B, date), s.ledger.Get(pair.ID()))
		if err != nil {
			if errors.Is(err, models.ErrMissingPrice) {
				s.skipped[SkipMissingPrice]++
				s.logger.Debug("pair skipped", zap.String("pair", pair.ID()), zap.String("date", date), zap.Error(err))
			} else {
				s.logger.Warn("signal generation failed", zap.String("pair", pair.ID()), zap.String("date", date), zap.Error(err))
			}
			continue
		}
		if sig == nil {
			continue
		}

		if sig.Action == models.Close {
			closes = append(closes, sig)
		} else {
			opens = append(opens, sig)
		}
	}

	return append(closes, opens...)
}

// statsFor returns the pair statistics visible on a date
func (s *Simulator) statsFor(pair models.Pair, date string) (models.PairStats, error) {
	if s.calc.Mode == stats.Fixed {
		st, ok := s.fixedStats[pair.ID()]
		if !ok {
			return models.PairStats{}, fmt.Errorf("%w: pair %s", stats.ErrInsufficientData, pair.ID())
		}
		return st, nil
	}

	obs := s.obs[pair.ID()]
	upto := sort.Search(len(obs), func(i int) bool { return obs[i].Date > date })
	return s.calc.Compute(pair.ID(), obs[:upto])
}

func (s *Simulator) priceOn(instrument, date string) *decimal.Decimal {
	c, ok := s.closes[instrument][date]
	if !ok {
		return nil
	}
	return &c
}

// Execute applies a signal to the ledger and capital and returns the affected trade
func (s *Simulator) Execute(ctx context.Context, sig *models.Signal) (*models.Trade, error) {
	if sig == nil {
		return nil, errors.New("nil signal")
	}
	if !sig.PriceA.IsPositive() || !sig.PriceB.IsPositive() {
		s.skipped[SkipMissingPrice]++
		return nil, fmt.Errorf("%w: pair %s on %s", models.ErrMissingPrice, sig.PairID(), sig.Date)
	}

	switch sig.Action {
	case models.Open:
		return s.open(ctx, sig)
	case models.Close:
		return s.close(ctx, sig)
	default:
		return nil, fmt.Errorf("unknown action %q", sig.Action)
	}
}

func (s *Simulator) open(ctx context.Context, sig *models.Signal) (*models.Trade, error) {
	pairID := sig.PairID()
	if s.ledger.Get(pairID) != nil {
		return nil, fmt.Errorf("%w: %s", ledger.ErrPositionExists, pairID)
	}

	check := s.risk.ValidateEntry(s.cash, sig.PriceA, sig.PriceB)
	if !check.Passed {
		return nil, fmt.Errorf("entry rejected: %s", check.Reason)
	}
	for _, w := range check.Warnings {
		s.logger.Warn("entry warning", zap.String("pair", pairID), zap.String("warning", w))
	}

	qty := s.risk.CalculatePositionSize(s.cash, sig.PriceA, sig.PriceB)
	if !qty.IsPositive() {
		return nil, fmt.Errorf("entry rejected: zero quantity for %s", pairID)
	}
	costs := s.risk.EstimateCosts(qty, sig.PriceA, sig.PriceB)

	pos := &models.Position{
		Pair:        sig.Pair,
		Type:        sig.PositionType,
		EntryPriceA: sig.PriceA,
		EntryPriceB: sig.PriceB,
		Quantity:    qty,
		OpenDate:    sig.Date,
	}
	if err := s.ledger.Open(pairID, pos); err != nil {
		return nil, err
	}

	s.cash = s.cash.Sub(costs.Commission)

	trade := &models.Trade{
		RunID:        s.opts.RunID,
		PairID:       pairID,
		Action:       models.Open,
		PositionType: sig.PositionType,
		OpenDate:     sig.Date,
		EntryPriceA:  sig.PriceA,
		EntryPriceB:  sig.PriceB,
		Quantity:     qty,
		Status:       models.TradeOpen,
	}
	applyCosts(trade, costs)

	s.openTrades[pairID] = trade
	s.trades = append(s.trades, trade)

	if s.sinks.Trades != nil {
		id, err := s.sinks.Trades.AppendTrade(ctx, trade)
		if err != nil {
			s.logger.Error("failed to persist trade", zap.String("pair", pairID), zap.Error(err))
		} else {
			trade.ID = id
		}
	}

	s.logger.Info("pair position opened",
		zap.String("pair", pairID),
		zap.String("date", sig.Date),
		zap.String("position_type", string(sig.PositionType)),
		zap.Float64("z_score", sig.ZScore),
		zap.String("quantity", qty.StringFixed(4)),
		zap.String("commission", costs.Commission.StringFixed(2)),
	)

	return trade, nil
}

func (s *Simulator) close(ctx context.Context, sig *models.Signal) (*models.Trade, error) {
	pairID := sig.PairID()
	if s.ledger.Get(pairID) == nil {
		return nil, fmt.Errorf("%w: %s", ledger.ErrNoSuchPosition, pairID)
	}
	trade, ok := s.openTrades[pairID]
	if !ok {
		return nil, fmt.Errorf("no open trade record for %s", pairID)
	}

	pos, err := s.ledger.Close(pairID)
	if err != nil {
		return nil, err
	}
	delete(s.openTrades, pairID)

	costs := s.risk.EstimateCosts(pos.Quantity, sig.PriceA, sig.PriceB)
	pnl := models.SpreadPnL(pos.Type, pos.EntryPriceA, pos.EntryPriceB, sig.PriceA, sig.PriceB, pos.Quantity)

	s.cash = s.cash.Add(pnl).Sub(costs.Commission)

	trade.Action = models.Close
	trade.CloseDate = sig.Date
	trade.ExitPriceA = sig.PriceA
	trade.ExitPriceB = sig.PriceB
	trade.PnL = pnl
	trade.Status = models.TradeClosed
	trade.ExitReason = sig.Reason
	applyCosts(trade, costs)

	if s.sinks.Trades != nil {
		if err := s.sinks.Trades.FinalizeTrade(ctx, trade); err != nil {
			s.logger.Error("failed to finalize trade", zap.String("pair", pairID), zap.Error(err))
		}
	}

	s.logger.Info("pair position closed",
		zap.String("pair", pairID),
		zap.String("date", sig.Date),
		zap.String("reason", string(sig.Reason)),
		zap.String("pnl", pnl.StringFixed(2)),
		zap.String("commission", trade.Commission.StringFixed(2)),
	)

	return trade, nil
}

// applyCosts adds one execution's costs onto a trade record
func applyCosts(t *models.Trade, c risk.Costs) {
	t.Volume = t.Volume.Add(c.Volume)
	t.Commission = t.Commission.Add(c.Commission)
	t.Slippage = t.Slippage.Add(c.Slippage)
	t.MarketImpact = t.MarketImpact.Add(c.MarketImpact)
	t.TimingCost = t.TimingCost.Add(c.TimingCost)
	t.TotalCost = t.TotalCost.Add(c.Total)
}

// Equity is realized capital plus open positions marked at the latest known closes
func (s *Simulator) Equity() decimal.Decimal {
	equity := s.cash
	for _, pos := range s.ledger.Snapshot() {
		pa, okA := s.lastClose[pos.Pair.A]
		pb, okB := s.lastClose[pos.Pair.B]
		if !okA || !okB {
			continue
		}
		equity = equity.Add(pos.UnrealizedPnL(pa, pb))
	}
	return equity
}

// Cash returns realized capital
func (s *Simulator) Cash() decimal.Decimal {
	return s.cash
}

func (s *Simulator) checkInvariants() error {
	if err := s.ledger.Verify(); err != nil {
		return err
	}
	if len(s.openTrades) != s.ledger.Len() {
		return fmt.Errorf("ledger holds %d positions but %d trades are open", s.ledger.Len(), len(s.openTrades))
	}
	return nil
}

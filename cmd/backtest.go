package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TruWeaveTrader/statarb/internal/cache"
	"github.com/TruWeaveTrader/statarb/internal/chart"
	"github.com/TruWeaveTrader/statarb/internal/models"
	"github.com/TruWeaveTrader/statarb/internal/simulator"
	"github.com/TruWeaveTrader/statarb/internal/store"
	"github.com/TruWeaveTrader/statarb/internal/tca"
	"github.com/TruWeaveTrader/statarb/pkg/formatters"
	"github.com/TruWeaveTrader/statarb/pkg/id"
)

func init() {
	backtestCmd.Flags().String("start", "", "Override start date (YYYYMMDD)")
	backtestCmd.Flags().String("end", "", "Override end date (YYYYMMDD)")
	backtestCmd.Flags().String("chart", "", "Write the equity series as CSV to this path")
	backtestCmd.Flags().Bool("trades", false, "Print every round trip")

	rootCmd.AddCommand(backtestCmd)
}

var backtestCmd = &cobra.Command{
	Use:     "backtest",
	Aliases: []string{"bt"},
	Short:   "Run a historical backtest over the configured pairs",
	Long: `Runs the pairs strategy over stored daily closes between the configured
start and end dates. Trades, the daily equity curve and the final metrics
are persisted under a new run id.`,
	RunE: runBacktest,
}

func runBacktest(cmd *cobra.Command, args []string) error {
	if start, _ := cmd.Flags().GetString("start"); start != "" {
		cfg.StartDate = start
	}
	if end, _ := cmd.Flags().GetString("end"); end != "" {
		cfg.EndDate = end
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	runID := id.NewRunID()
	run, err := saveRun(ctx, db, runID, models.Historical)
	if err != nil {
		return err
	}

	opts, err := simulator.OptionsFromConfig(cfg, runID, models.Historical)
	if err != nil {
		return err
	}
	sinks := simulator.Sinks{Trades: db, Metrics: db}
	if path, _ := cmd.Flags().GetString("chart"); path != "" {
		sinks.Chart = chart.NewCSVSink(path)
	}

	if stored, err := db.Instruments(ctx); err == nil {
		have := make(map[string]bool, len(stored))
		for _, inst := range stored {
			have[inst] = true
		}
		for _, inst := range cfg.Instruments() {
			if !have[inst] {
				fmt.Printf("⚠️  No stored prices for %s (use 'statarb import')\n", inst)
			}
		}
	}

	prices := cache.NewPriceCache(db, cfg.CacheTTL)
	sim := simulator.New(opts, sinks, logger)

	fmt.Printf("🚀 Backtest %s | %d pairs | %s → %s\n",
		formatters.ColorBlue.Sprint(runID), len(cfg.Pairs), cfg.StartDate, cfg.EndDate)

	if err := sim.Load(ctx, prices); err != nil {
		return err
	}

	res, err := sim.Run(ctx)
	if err != nil {
		if res == nil || ctx.Err() == nil {
			return err
		}
		fmt.Println("\n📴 Backtest interrupted, reporting partial results")
	}

	metrics := res.Metrics
	run.Metrics = &metrics
	if err := db.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Error("failed to save run metrics", zap.String("run_id", runID), zap.Error(err))
	}

	fmt.Println(formatters.FormatMetrics(res.Metrics))
	if show, _ := cmd.Flags().GetBool("trades"); show {
		fmt.Println(formatters.FormatTradesTable(res.Trades))
	}
	fmt.Println("\n💸 Transaction Costs")
	fmt.Println(formatters.FormatTCA(tca.Analyze(res.Trades)))

	if len(res.Skipped) > 0 {
		fmt.Printf("⏭️  Skipped evaluations: %s\n", formatSkipped(res.Skipped))
	}

	stats := prices.GetStats()
	logger.Debug("price cache", zap.Int("ranges", stats.RangeCount), zap.Int64("hits", stats.Hits), zap.Int64("misses", stats.Misses))

	fmt.Printf("✅ Run saved as %s\n", runID)
	return nil
}

func saveRun(ctx context.Context, db *store.SQLite, runID string, mode models.Mode) (*store.Run, error) {
	snapshot, err := cfg.YAML()
	if err != nil {
		return nil, err
	}
	run := &store.Run{
		ID:             runID,
		Mode:           mode,
		StartDate:      cfg.StartDate,
		EndDate:        cfg.EndDate,
		InitialCapital: decimal.NewFromFloat(cfg.InitialCapital),
		Config:         snapshot,
	}
	if err := db.SaveRun(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

func formatSkipped(skipped map[string]int) string {
	keys := make([]string, 0, len(skipped))
	for k := range skipped {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, skipped[k])
	}
	return strings.Join(parts, " ")
}

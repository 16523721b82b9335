package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TruWeaveTrader/statarb/internal/broadcast"
	"github.com/TruWeaveTrader/statarb/internal/cache"
	"github.com/TruWeaveTrader/statarb/internal/live"
	"github.com/TruWeaveTrader/statarb/internal/models"
	"github.com/TruWeaveTrader/statarb/internal/simulator"
	"github.com/TruWeaveTrader/statarb/pkg/formatters"
	"github.com/TruWeaveTrader/statarb/pkg/id"
)

func init() {
	liveCmd.AddCommand(liveStartCmd)
	liveCmd.AddCommand(liveStatusCmd)
	liveCmd.AddCommand(liveClearCmd)

	liveCmd.PersistentFlags().String("status-file", "", "Status file (default is $HOME/.statarb/live_status.json)")
	liveStartCmd.Flags().Int("replay-days", 0, "Replay only the most recent N trading days (overrides config)")
	liveStartCmd.Flags().Duration("interval", 0, "Time between simulated days (overrides config)")

	rootCmd.AddCommand(liveCmd)
}

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Paced live simulation",
	Long: `Replays recent trading days through the simulator at a fixed pace,
as if each tick were a new trading day. Status snapshots are written to a
status file and optionally broadcast over websocket and NATS.`,
}

var liveStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a live simulation and run until it completes or Ctrl+C",
	RunE:  runLiveStart,
}

var liveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last live simulation status",
	RunE:  runLiveStatus,
}

var liveClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the live status file",
	RunE:  runLiveClear,
}

func statusFile(cmd *cobra.Command) (string, error) {
	if path, _ := cmd.Flags().GetString("status-file"); path != "" {
		return path, nil
	}
	return live.DefaultStatusPath()
}

func runLiveStart(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if n, _ := cmd.Flags().GetInt("replay-days"); n > 0 {
		cfg.Live.ReplayDays = n
	}
	if d, _ := cmd.Flags().GetDuration("interval"); d > 0 {
		cfg.Live.Interval = d
	}

	schedule, err := live.NewSchedule(cfg.Live.Schedule)
	if err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}
	path, err := statusFile(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	runID := id.NewRunID()
	run, err := saveRun(ctx, db, runID, models.Live)
	if err != nil {
		return err
	}

	opts, err := simulator.OptionsFromConfig(cfg, runID, models.Live)
	if err != nil {
		return err
	}
	sim := simulator.New(opts, simulator.Sinks{Trades: db, Metrics: db}, logger)
	if err := sim.Load(ctx, cache.NewPriceCache(db, cfg.CacheTTL)); err != nil {
		return err
	}

	var publishers []live.Publisher
	if cfg.Live.StatusAddr != "" {
		hub := broadcast.NewHub(logger)
		publishers = append(publishers, hub)
		go func() {
			if err := broadcast.Serve(ctx, cfg.Live.StatusAddr, hub, logger); err != nil {
				logger.Error("status server failed", zap.Error(err))
			}
		}()
		fmt.Printf("📡 Status stream on ws://%s/ws\n", cfg.Live.StatusAddr)
	}
	if cfg.Live.NATSURL != "" {
		pub, err := broadcast.NewNATSPublisher(cfg.Live.NATSURL, cfg.Live.NATSSubject)
		if err != nil {
			return err
		}
		defer pub.Close()
		publishers = append(publishers, pub)
		fmt.Printf("📡 Publishing status to NATS subject %s\n", cfg.Live.NATSSubject)
	}

	dates := live.ReplayWindow(sim.Dates(), cfg.Live.ReplayDays)
	runner := live.NewRunner(sim, dates, live.Options{
		RunID:      runID,
		Interval:   cfg.Live.Interval,
		Schedule:   schedule,
		StatusFile: path,
		Publishers: publishers,
	}, logger)

	updates, unsubscribe := runner.Subscribe()
	defer unsubscribe()

	if err := runner.Start(ctx); err != nil {
		return err
	}

	fmt.Printf("🚀 Live simulation %s | %d days every %s\n",
		formatters.ColorBlue.Sprint(runID), len(dates), cfg.Live.Interval)
	fmt.Println("Press Ctrl+C to stop...")

	for running := true; running; {
		select {
		case status := <-updates:
			if status.Date != "" {
				fmt.Printf("[%s] %d/%d equity %s drawdown %.2f%% positions %d\n",
					status.Date, status.Step, status.TotalSteps,
					formatters.FormatDollarAmount(status.Equity), status.Drawdown*100, len(status.Positions))
			}
		case <-runner.Done():
			running = false
		case <-ctx.Done():
			fmt.Println("\n📴 Stopping live simulation...")
			running = false
		}
	}

	if err := runner.Stop(); err != nil {
		return err
	}

	res := sim.Result()
	metrics := res.Metrics
	run.Metrics = &metrics
	if err := db.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Error("failed to save run metrics", zap.String("run_id", runID), zap.Error(err))
	}

	if latest := runner.Latest(); latest != nil {
		fmt.Println(formatters.FormatStatus(latest))
	}
	fmt.Println(formatters.FormatMetrics(res.Metrics))
	return nil
}

func runLiveStatus(cmd *cobra.Command, args []string) error {
	path, err := statusFile(cmd)
	if err != nil {
		return err
	}

	status, err := live.ReadStatus(path)
	if errors.Is(err, os.ErrNotExist) {
		fmt.Println(formatters.FormatStatus(nil))
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Println(formatters.FormatStatus(status))
	return nil
}

func runLiveClear(cmd *cobra.Command, args []string) error {
	path, err := statusFile(cmd)
	if err != nil {
		return err
	}
	if err := live.RemoveStatus(path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	fmt.Println("🧹 Live status cleared")
	return nil
}

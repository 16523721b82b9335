package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TruWeaveTrader/statarb/internal/models"
	"github.com/TruWeaveTrader/statarb/pkg/formatters"
)

func init() {
	tradesCmd.Flags().String("status", "", "Filter by status (open, closed)")
	rootCmd.AddCommand(tradesCmd)
}

var tradesCmd = &cobra.Command{
	Use:   "trades [run-id|latest]",
	Short: "List the trades of a run",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTrades,
}

func runTrades(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	status, _ := cmd.Flags().GetString("status")
	switch models.TradeStatus(status) {
	case "", models.TradeOpen, models.TradeClosed:
	default:
		return fmt.Errorf("invalid status %q: must be open or closed", status)
	}

	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := resolveRun(ctx, db, args)
	if err != nil {
		return err
	}

	trades, err := db.ListTrades(ctx, run.ID, models.TradeStatus(status))
	if err != nil {
		return err
	}

	fmt.Printf("📋 Trades for run %s (%s)\n", formatters.ColorBlue.Sprint(run.ID), run.Mode)
	fmt.Println(formatters.FormatTradesTable(trades))
	return nil
}

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TruWeaveTrader/statarb/internal/models"
	"github.com/TruWeaveTrader/statarb/pkg/formatters"
)

func init() {
	rootCmd.AddCommand(positionsCmd)
	rootCmd.AddCommand(posCmd) // Alias
}

var posCmd = &cobra.Command{
	Use:   "pos [run-id|latest]",
	Short: "Show positions (alias)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPositions,
}

var positionsCmd = &cobra.Command{
	Use:   "positions [run-id|latest]",
	Short: "Display the positions a run left open",
	Long:  `Shows the pair positions still open at the end of a run, rebuilt from its open trades.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPositions,
}

func runPositions(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := resolveRun(ctx, db, args)
	if err != nil {
		return err
	}

	trades, err := db.ListTrades(ctx, run.ID, models.TradeOpen)
	if err != nil {
		return err
	}

	positions := formatters.OpenPositions(trades)
	if len(positions) == 0 {
		fmt.Println("No open positions")
		return nil
	}

	fmt.Println(formatters.FormatPositionsTable(positions))
	return nil
}

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TruWeaveTrader/statarb/internal/store"
	"github.com/TruWeaveTrader/statarb/pkg/formatters"
)

func init() {
	runsCmd.Flags().Int("limit", 20, "Maximum runs to list")
	rootCmd.AddCommand(runsCmd)
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored runs, newest first",
	RunE:  runRuns,
}

func runRuns(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	fmt.Println(formatters.FormatRunsTable(runs))
	return nil
}

// resolveRun loads a run by id, or the most recent run for "latest" or no id
func resolveRun(ctx context.Context, db *store.SQLite, args []string) (*store.Run, error) {
	if len(args) == 0 || args[0] == "latest" {
		run, err := db.LatestRun(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to find latest run: %w", err)
		}
		return run, nil
	}
	run, err := db.GetRun(ctx, args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to find run %s: %w", args[0], err)
	}
	return run, nil
}

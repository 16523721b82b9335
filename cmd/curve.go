package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TruWeaveTrader/statarb/internal/chart"
)

func init() {
	curveCmd.Flags().StringP("out", "o", "", "CSV output path (default <run-id>.csv)")
	rootCmd.AddCommand(curveCmd)
}

var curveCmd = &cobra.Command{
	Use:   "curve [run-id|latest]",
	Short: "Export a run's equity, return and drawdown series as CSV",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCurve,
}

func runCurve(cmd *cobra.Command, args []string) error {
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

	points, err := db.ListMetrics(ctx, run.ID)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		fmt.Println("No equity points recorded")
		return nil
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = run.ID + ".csv"
	}
	if err := chart.NewCSVSink(out).Render(ctx, chart.FromCurve(points)); err != nil {
		return err
	}

	fmt.Printf("✅ Wrote %d days to %s\n", len(points), out)
	return nil
}

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TruWeaveTrader/statarb/internal/models"
	"github.com/TruWeaveTrader/statarb/internal/tca"
	"github.com/TruWeaveTrader/statarb/pkg/formatters"
)

func init() {
	tcaCmd.Flags().String("start", "", "First execution date (YYYYMMDD)")
	tcaCmd.Flags().String("end", "", "Last execution date (YYYYMMDD)")
	tcaCmd.Flags().Bool("daily", false, "Show the per-date breakdown")
	rootCmd.AddCommand(tcaCmd)
}

var tcaCmd = &cobra.Command{
	Use:   "tca [run-id|latest]",
	Short: "Transaction cost analysis of a run",
	Long: `Breaks a run's trading costs into commission, slippage, market impact and
timing cost, with totals relative to traded volume.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTCA,
}

func runTCA(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	start, _ := cmd.Flags().GetString("start")
	end, _ := cmd.Flags().GetString("end")
	for _, d := range []string{start, end} {
		if d == "" {
			continue
		}
		if _, err := models.ParseDate(d); err != nil {
			return err
		}
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

	trades, err := db.ListTrades(ctx, run.ID, "")
	if err != nil {
		return err
	}
	report := tca.Analyze(tca.Filter(trades, start, end))

	fmt.Printf("💸 Transaction costs for run %s\n", formatters.ColorBlue.Sprint(run.ID))
	fmt.Println(formatters.FormatTCA(report))
	if daily, _ := cmd.Flags().GetBool("daily"); daily {
		fmt.Println(formatters.FormatDailyCosts(report.Daily))
	}
	return nil
}

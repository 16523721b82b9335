package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TruWeaveTrader/statarb/internal/store"
	"github.com/TruWeaveTrader/statarb/pkg/formatters"
)

func init() {
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import [instrument] [csv]",
	Short: "Import daily prices for an instrument from CSV",
	Long: `Upserts daily bars into the price store. The CSV needs a header with
at least date and close columns; open, high, low and volume are optional.`,
	Args: cobra.ExactArgs(2),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	instrument := strings.ToUpper(args[0])

	f, err := os.Open(args[1])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[1], err)
	}
	defer f.Close()

	points, err := store.ReadPricesCSV(f, instrument)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", args[1], err)
	}
	if len(points) == 0 {
		fmt.Println("No rows to import")
		return nil
	}

	ctx, cancel := signalContext()
	defer cancel()

	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.UpsertPrices(ctx, points...); err != nil {
		return err
	}

	fmt.Printf("✅ Imported %d bars for %s (%s → %s)\n",
		len(points), formatters.ColorBlue.Sprint(instrument), points[0].Date, points[len(points)-1].Date)
	return nil
}

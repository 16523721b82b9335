package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TruWeaveTrader/statarb/internal/broadcast"
	"github.com/TruWeaveTrader/statarb/internal/live"
	"github.com/TruWeaveTrader/statarb/pkg/formatters"
)

func init() {
	watchCmd.Flags().String("url", "", "Status stream url (default ws://<live.status_addr>/ws)")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow a running live simulation",
	Long:  `Connects to the status stream of a live simulation and prints every snapshot.`,
	RunE:  runWatch,
}

func watchURL(cmd *cobra.Command) (string, error) {
	if url, _ := cmd.Flags().GetString("url"); url != "" {
		return url, nil
	}
	addr := cfg.Live.StatusAddr
	if addr == "" {
		return "", fmt.Errorf("no status stream configured: pass --url or set live.status_addr")
	}
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "ws://" + addr + "/ws", nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	url, err := watchURL(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("📡 Connecting to %s...\n", url)
	fmt.Println("Press Ctrl+C to stop...")

	client := broadcast.NewClient(url, logger)
	defer client.Close()

	err = client.Listen(ctx, func(s live.Status) {
		state := formatters.ColorGreen.Sprint("RUNNING")
		if !s.Running {
			state = formatters.ColorGray.Sprint("STOPPED")
		}
		fmt.Printf("[%s] %s %s %d/%d equity %s drawdown %.2f%% trades %d",
			formatters.FormatTimestamp(s.UpdatedAt),
			state,
			s.Date,
			s.Step, s.TotalSteps,
			formatters.FormatDollarAmount(s.Equity),
			s.Drawdown*100,
			s.TotalTrades)
		if s.Message != "" {
			fmt.Printf(" (%s)", s.Message)
		}
		fmt.Println()
	})
	if err != nil {
		return err
	}

	fmt.Println("\n📴 Stopped watching")
	return nil
}

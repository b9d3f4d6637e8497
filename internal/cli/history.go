package cli

import (
	"github.com/spf13/cobra"

	"github.com/TuanBC/credit-scoring-onchain/internal/app"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history <wallet-address>",
	Short: "Show a wallet's recent score snapshots",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().History(cmd.Context(), app.HistoryOptions{
			Address: args[0],
			Limit:   historyLimit,
		})
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of snapshots to show")
}

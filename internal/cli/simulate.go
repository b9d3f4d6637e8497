package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	simulatePrevious string
	simulateCurrent  string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert <wallet-address>",
	Short: "Send a test score alert to verify channel configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		previous, err := decimal.NewFromString(simulatePrevious)
		if err != nil {
			return fmt.Errorf("invalid --previous value: %w", err)
		}
		current, err := decimal.NewFromString(simulateCurrent)
		if err != nil {
			return fmt.Errorf("invalid --current value: %w", err)
		}
		return getApp().SimulateAlert(cmd.Context(), args[0], previous, current)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulatePrevious, "previous", "600", "Previous score for the simulated alert")
	simulateCmd.Flags().StringVar(&simulateCurrent, "current", "550", "Current score for the simulated alert")
}

package cli

import (
	"github.com/spf13/cobra"

	"github.com/TuanBC/credit-scoring-onchain/internal/app"
)

var (
	scoreFile   string
	scoreAsJSON bool
)

var scoreCmd = &cobra.Command{
	Use:   "score <wallet-address>",
	Short: "Score a single wallet and print the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Score(cmd.Context(), app.ScoreOptions{
			Address:  args[0],
			FilePath: scoreFile,
			AsJSON:   scoreAsJSON,
		})
	},
}

func init() {
	scoreCmd.Flags().StringVar(&scoreFile, "file", "", "Score from a JSON transaction dump instead of Etherscan")
	scoreCmd.Flags().BoolVar(&scoreAsJSON, "json", false, "Print the full evaluation payload as JSON")
}

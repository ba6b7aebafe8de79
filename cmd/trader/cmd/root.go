package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "trader",
	Short: "A session-aware forex trading bot with risk and profit-taking management",
	Long: `Trader is a session-aware forex trading bot.

It provides:
  - Recurring market session windows (Asian, London, New York, overlap)
  - Risk governance: position sizing, daily loss limits, drawdown tracking
  - Time-based partial profit taking with per-session rules
  - Trade and equity journaling to CSV or SQLite`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/EngrGocity/MysessionTradeBot/config"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the profit-taking rules in a config file",
	Long: `Print every profit-taking rule with its interval, threshold,
close fraction, per-interval cap and filters.

Example:
  trader rules --config trader.yaml`,
	RunE: runRules,
}

var rulesConfigPath string

func init() {
	rootCmd.AddCommand(rulesCmd)

	rulesCmd.Flags().StringVarP(&rulesConfigPath, "config", "f", "", "path to config file (defaults to built-in rules)")
}

func runRules(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if rulesConfigPath != "" {
		loaded, err := config.LoadFromFile(rulesConfigPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	fmt.Printf("%-24s %-8s %-10s %-10s %-9s %-5s %s\n",
		"NAME", "ENABLED", "INTERVAL", "MIN PIPS", "FRACTION", "CAP", "FILTERS")
	for _, rc := range cfg.Rules {
		filters := "-"
		switch {
		case rc.Session != "" && rc.Symbol != "":
			filters = fmt.Sprintf("session=%s symbol=%s", rc.Session, rc.Symbol)
		case rc.Session != "":
			filters = "session=" + rc.Session
		case rc.Symbol != "":
			filters = "symbol=" + rc.Symbol
		}

		fmt.Printf("%-24s %-8t %-10s %-10.1f %-9.2f %-5d %s\n",
			rc.Name, rc.Enabled, fmt.Sprintf("%dm", rc.IntervalMinutes),
			rc.MinProfitPips, rc.Fraction, rc.MaxPerInterval, filters)
	}
	return nil
}

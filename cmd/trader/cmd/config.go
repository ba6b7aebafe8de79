package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/EngrGocity/MysessionTradeBot/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage configuration files for the trading bot.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  trader config init --output trader.yaml
  trader config validate --file trader.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Long: `Create a new configuration file with default settings: the three
major sessions plus the London/New York overlap, stock risk limits and
the stock profit-taking rules.

Example:
  trader config init --output trader.yaml`,
	RunE: runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check if a configuration file is valid and can be loaded.

Example:
  trader config validate --file trader.yaml`,
	RunE: runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "trader.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("Created default configuration: %s\n", configInitOutput)
	fmt.Println("\nEdit the file and run with:")
	fmt.Printf("  trader run --config %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Printf("Configuration valid: %s\n", configValidatePath)
	fmt.Printf("  Account: %s ($%.2f %s)\n", cfg.Account.ID, cfg.Account.Balance, cfg.Account.Currency)
	fmt.Printf("  Sessions: %d, Rules: %d, Symbols: %d\n", len(cfg.Sessions), len(cfg.Rules), len(cfg.Symbols))
	fmt.Printf("  Journal: %s\n", cfg.Journal.Type)
	return nil
}

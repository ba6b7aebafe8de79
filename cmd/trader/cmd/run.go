package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/EngrGocity/MysessionTradeBot/bot"
	"github.com/EngrGocity/MysessionTradeBot/broker/sim"
	"github.com/EngrGocity/MysessionTradeBot/config"
	"github.com/EngrGocity/MysessionTradeBot/journal"
	"github.com/EngrGocity/MysessionTradeBot/market"
	"github.com/EngrGocity/MysessionTradeBot/strategy"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bot against the simulated broker",
	Long: `Run the trading bot using settings from a configuration file.

The bot trades against the in-memory simulated broker: the session clock,
risk governor and profit-taking rules all run exactly as they would
against a live broker.

Example:
  trader run --config trader.yaml`,
	RunE: runRun,
}

var (
	runConfigPath   string
	runStrategyName string
)

// Demo seed prices for the simulated broker.
var seedQuotes = map[string][2]float64{
	"EURUSD": {1.0849, 1.0851},
	"GBPUSD": {1.2649, 1.2652},
	"USDJPY": {149.48, 149.52},
	"AUDUSD": {0.6549, 0.6551},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.Flags().StringVarP(&runStrategyName, "strategy", "s", "breakout", "strategy to trade (breakout, noop)")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := newLogger(cfg.Log)

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer j.Close()

	engine := sim.NewEngine(cfg.Account.Balance, log)
	now := time.Now()
	for _, symbol := range cfg.Symbols {
		seed, ok := seedQuotes[symbol]
		if !ok {
			return fmt.Errorf("no seed price for symbol: %s", symbol)
		}
		engine.SetQuote(market.Quote{Symbol: symbol, Bid: seed[0], Ask: seed[1], Time: now})
	}

	b, err := bot.New(cfg, engine, j, log)
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}

	strategy.Register(strategy.NewBreakout(20, cfg.Risk.StopLossPips, cfg.Risk.TakeProfitPips))
	strat, err := strategy.ByName(runStrategyName)
	if err != nil {
		return err
	}
	b.AddStrategy(strat)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info().
		Str("account", cfg.Account.ID).
		Float64("balance", cfg.Account.Balance).
		Str("strategy", strat.Name()).
		Msg("Starting bot")

	return b.Run(ctx)
}

func openJournal(jc config.JournalConfig) (journal.Journal, error) {
	switch jc.Type {
	case "csv":
		return journal.NewCSV(jc.TradesFile, jc.EquityFile)
	case "sqlite":
		return journal.NewSQLite(jc.DBPath)
	default:
		return journal.Nop{}, nil
	}
}

func newLogger(lc config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil || lc.Level == "" {
		level = zerolog.InfoLevel
	}

	var log zerolog.Logger
	if lc.Pretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Logger()
}

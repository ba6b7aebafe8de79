// Package config loads and validates the bot configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/EngrGocity/MysessionTradeBot/market"
	"github.com/EngrGocity/MysessionTradeBot/profit"
	"github.com/EngrGocity/MysessionTradeBot/risk"
	"github.com/EngrGocity/MysessionTradeBot/session"
)

// Config is the complete bot configuration.
type Config struct {
	Account  AccountConfig    `json:"account" yaml:"account"`
	Sessions []session.Config `json:"sessions" yaml:"sessions"`
	Risk     risk.Limits      `json:"risk" yaml:"risk"`
	Rules    []RuleConfig     `json:"profit_rules" yaml:"profit_rules"`
	Symbols  []string         `json:"symbols" yaml:"symbols"`
	Journal  JournalConfig    `json:"journal" yaml:"journal"`
	Log      LogConfig        `json:"log" yaml:"log"`
}

// AccountConfig contains account initialization parameters.
type AccountConfig struct {
	ID       string  `json:"id" yaml:"id"`
	Currency string  `json:"currency" yaml:"currency"`
	Balance  float64 `json:"balance" yaml:"balance"`
}

// RuleConfig is the file representation of one profit-taking rule.
// Intervals are whole minutes.
type RuleConfig struct {
	Name            string  `json:"name" yaml:"name"`
	Enabled         bool    `json:"enabled" yaml:"enabled"`
	IntervalMinutes int     `json:"interval_minutes" yaml:"interval_minutes"`
	MinProfitPips   float64 `json:"min_profit_pips" yaml:"min_profit_pips"`
	Fraction        float64 `json:"fraction" yaml:"fraction"`
	MaxPerInterval  int     `json:"max_per_interval" yaml:"max_per_interval"`
	Session         string  `json:"session,omitempty" yaml:"session,omitempty"`
	Symbol          string  `json:"symbol,omitempty" yaml:"symbol,omitempty"`
}

// ToRule converts the file form into an engine rule.
func (rc RuleConfig) ToRule() profit.Rule {
	r := profit.Rule{
		Name:           rc.Name,
		Enabled:        rc.Enabled,
		Interval:       time.Duration(rc.IntervalMinutes) * time.Minute,
		MinProfitPips:  rc.MinProfitPips,
		Fraction:       rc.Fraction,
		MaxPerInterval: rc.MaxPerInterval,
	}
	if rc.Session != "" {
		k := session.Kind(rc.Session)
		r.SessionFilter = &k
	}
	if rc.Symbol != "" {
		sym := rc.Symbol
		r.SymbolFilter = &sym
	}
	return r
}

// JournalConfig contains journaling parameters.
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LogConfig controls the zerolog output.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Pretty bool   `json:"pretty" yaml:"pretty"`
}

// LoadFromFile loads configuration from a file. YAML is tried first,
// then JSON, so either format works regardless of extension.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration, choosing the format by extension.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks the whole configuration eagerly so a bad file fails
// at startup rather than mid-session.
func (c *Config) Validate() error {
	if c.Account.Currency == "" {
		return fmt.Errorf("account.currency is required")
	}
	if c.Account.Balance <= 0 {
		return fmt.Errorf("account.balance must be positive")
	}

	if len(c.Sessions) == 0 {
		return fmt.Errorf("at least one session is required")
	}
	seen := map[session.Kind]bool{}
	for _, sc := range c.Sessions {
		if seen[sc.Kind] {
			return fmt.Errorf("duplicate session: %s", sc.Kind)
		}
		seen[sc.Kind] = true
		if err := sc.Validate(); err != nil {
			return err
		}
	}

	if err := c.Risk.Validate(); err != nil {
		return fmt.Errorf("risk: %w", err)
	}

	names := map[string]bool{}
	for _, rc := range c.Rules {
		if names[rc.Name] {
			return fmt.Errorf("duplicate profit rule: %s", rc.Name)
		}
		names[rc.Name] = true
		if err := rc.ToRule().Validate(); err != nil {
			return err
		}
	}

	if len(c.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	for _, sym := range c.Symbols {
		if _, err := market.Lookup(sym); err != nil {
			return fmt.Errorf("unknown symbol: %s", sym)
		}
	}

	switch c.Journal.Type {
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "none":
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}
	return nil
}

// Default returns a configuration with sensible defaults: the three
// major sessions plus the London/New York overlap, stock risk limits
// and the stock profit-taking rules.
func Default() *Config {
	rules := make([]RuleConfig, 0, 5)
	for _, r := range profit.DefaultRules() {
		rc := RuleConfig{
			Name:            r.Name,
			Enabled:         r.Enabled,
			IntervalMinutes: int(r.Interval / time.Minute),
			MinProfitPips:   r.MinProfitPips,
			Fraction:        r.Fraction,
			MaxPerInterval:  r.MaxPerInterval,
		}
		if r.SessionFilter != nil {
			rc.Session = string(*r.SessionFilter)
		}
		if r.SymbolFilter != nil {
			rc.Symbol = *r.SymbolFilter
		}
		rules = append(rules, rc)
	}

	return &Config{
		Account: AccountConfig{
			ID:       "SIM-001",
			Currency: "USD",
			Balance:  10000,
		},
		Sessions: []session.Config{
			{Kind: session.Asian, Start: "00:00", End: "08:00", Timezone: "UTC", Enabled: true},
			{Kind: session.London, Start: "08:00", End: "16:00", Timezone: "UTC", Enabled: true},
			{Kind: session.NewYork, Start: "13:00", End: "21:00", Timezone: "UTC", Enabled: true},
			{Kind: session.Overlap, Start: "13:00", End: "16:00", Timezone: "UTC", Enabled: true},
		},
		Risk:    risk.DefaultLimits(),
		Rules:   rules,
		Symbols: []string{"EURUSD", "GBPUSD", "USDJPY", "AUDUSD"},
		Journal: JournalConfig{
			Type:       "csv",
			TradesFile: "./trades.csv",
			EquityFile: "./equity.csv",
		},
		Log: LogConfig{Level: "info"},
	}
}

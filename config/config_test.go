package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EngrGocity/MysessionTradeBot/session"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)
	assert.Equal(t, "USD", cfg.Account.Currency)
	assert.Equal(t, 10000.0, cfg.Account.Balance)
	assert.Len(t, cfg.Sessions, 4)
	assert.Len(t, cfg.Rules, 5)
	assert.Equal(t, []string{"EURUSD", "GBPUSD", "USDJPY", "AUDUSD"}, cfg.Symbols)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	valid := func() *Config { return Default() }

	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:   "missing currency",
			mutate: func(c *Config) { c.Account.Currency = "" },
			errMsg: "account.currency is required",
		},
		{
			name:   "negative balance",
			mutate: func(c *Config) { c.Account.Balance = -1000 },
			errMsg: "account.balance must be positive",
		},
		{
			name:   "no sessions",
			mutate: func(c *Config) { c.Sessions = nil },
			errMsg: "at least one session is required",
		},
		{
			name:   "duplicate session",
			mutate: func(c *Config) { c.Sessions = append(c.Sessions, c.Sessions[0]) },
			errMsg: "duplicate session",
		},
		{
			name:   "bad session window",
			mutate: func(c *Config) { c.Sessions[0].Start = "25:00" },
			errMsg: "must be in HH:MM format",
		},
		{
			name:   "bad session timezone",
			mutate: func(c *Config) { c.Sessions[0].Timezone = "Mars/Olympus" },
			errMsg: "unknown timezone",
		},
		{
			name:   "bad risk limits",
			mutate: func(c *Config) { c.Risk.MaxDailyLossFraction = 1.5 },
			errMsg: "risk:",
		},
		{
			name:   "duplicate rule",
			mutate: func(c *Config) { c.Rules = append(c.Rules, c.Rules[0]) },
			errMsg: "duplicate profit rule",
		},
		{
			name:   "bad rule fraction",
			mutate: func(c *Config) { c.Rules[0].Fraction = 0 },
			errMsg: "fraction must be in (0,1]",
		},
		{
			name:   "no symbols",
			mutate: func(c *Config) { c.Symbols = nil },
			errMsg: "at least one symbol is required",
		},
		{
			name:   "unknown symbol",
			mutate: func(c *Config) { c.Symbols = []string{"XXXYYY"} },
			errMsg: "unknown symbol",
		},
		{
			name:   "csv journal without files",
			mutate: func(c *Config) { c.Journal = JournalConfig{Type: "csv"} },
			errMsg: "trades_file and equity_file required",
		},
		{
			name:   "sqlite journal without path",
			mutate: func(c *Config) { c.Journal = JournalConfig{Type: "sqlite"} },
			errMsg: "db_path required",
		},
		{
			name:   "unknown journal type",
			mutate: func(c *Config) { c.Journal.Type = "parquet" },
			errMsg: "journal.type must be",
		},
		{
			name:   "disabled journal",
			mutate: func(c *Config) { c.Journal = JournalConfig{Type: "none"} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRuleConfigToRule(t *testing.T) {
	rc := RuleConfig{
		Name:            "Asian Session Profit",
		Enabled:         true,
		IntervalMinutes: 120,
		MinProfitPips:   15,
		Fraction:        0.6,
		MaxPerInterval:  3,
		Session:         "asian",
		Symbol:          "USDJPY",
	}

	r := rc.ToRule()
	assert.Equal(t, rc.Name, r.Name)
	assert.Equal(t, 120*time.Minute, r.Interval)
	require.NotNil(t, r.SessionFilter)
	assert.Equal(t, session.Asian, *r.SessionFilter)
	require.NotNil(t, r.SymbolFilter)
	assert.Equal(t, "USDJPY", *r.SymbolFilter)
	assert.NoError(t, r.Validate())

	bare := RuleConfig{Name: "global", Enabled: true, IntervalMinutes: 15, MinProfitPips: 10, Fraction: 0.5, MaxPerInterval: 3}
	r = bare.ToRule()
	assert.Nil(t, r.SessionFilter)
	assert.Nil(t, r.SymbolFilter)
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		ext  string
	}{
		{"json format", ".json"},
		{"yaml format", ".yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			path := filepath.Join(tmpDir, "test"+tt.ext)

			require.NoError(t, cfg.SaveToFile(path))

			_, err := os.Stat(path)
			require.NoError(t, err)

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)

			assert.Equal(t, cfg.Account, loaded.Account)
			assert.Equal(t, cfg.Sessions, loaded.Sessions)
			assert.Equal(t, cfg.Risk, loaded.Risk)
			assert.Equal(t, cfg.Rules, loaded.Rules)
			assert.Equal(t, cfg.Symbols, loaded.Symbols)
		})
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path.yaml")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("account:\n  currency: USD\n  balance: -5\n"), 0644))
	_, err = LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

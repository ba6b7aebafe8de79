package cmd

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/EngrGocity/MysessionTradeBot/config"
	"github.com/EngrGocity/MysessionTradeBot/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Show configured session windows and current state",
	Long: `Print every configured session window, whether it is active
right now, and the next upcoming transition.

Example:
  trader sessions --config trader.yaml`,
	RunE: runSessions,
}

var sessionsConfigPath string

func init() {
	rootCmd.AddCommand(sessionsCmd)

	sessionsCmd.Flags().StringVarP(&sessionsConfigPath, "config", "f", "", "path to config file (defaults to built-in sessions)")
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if sessionsConfigPath != "" {
		loaded, err := config.LoadFromFile(sessionsConfigPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	clock := session.NewClock(zerolog.Nop())
	for _, sc := range cfg.Sessions {
		if err := clock.AddSession(sc); err != nil {
			return err
		}
	}

	now := time.Now()
	fmt.Printf("%-10s %-7s %-7s %-20s %-8s %s\n", "SESSION", "START", "END", "TIMEZONE", "ENABLED", "ACTIVE")
	for _, sc := range cfg.Sessions {
		tz := sc.Timezone
		if tz == "" {
			tz = "UTC"
		}
		fmt.Printf("%-10s %-7s %-7s %-20s %-8t %t\n",
			sc.Kind, sc.Start, sc.End, tz, sc.Enabled, clock.IsActive(sc.Kind, now))
	}

	if current, ok := clock.CurrentSession(now); ok {
		fmt.Printf("\nCurrent session: %s\n", current)
	} else {
		fmt.Println("\nNo session active")
	}
	if overlap := clock.Overlapping(now); len(overlap) > 1 {
		fmt.Printf("Overlapping: %v\n", overlap)
	}
	if ev, ok := clock.NextTransition(); ok {
		fmt.Printf("Next transition: %s %s at %s\n", ev.Kind, ev.Edge, ev.Time.Format(time.RFC3339))
	}
	return nil
}

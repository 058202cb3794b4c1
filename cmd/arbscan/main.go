package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	appName = "arbscan"
	version = "v1.0.0"
)

var (
	flagConfig   string
	flagLogLevel string
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Cross-venue crypto arbitrage scanner",
		Version: version,
		Long: `arbscan watches spot, futures, perp and DEX venues for the same asset,
measures executable spreads against live order books and alerts on
opportunities that survive the safety checks.

Run 'arbscan scan' for the long-running scanner. The other commands are
one-shot operational tools over the same components.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(flagLogLevel)
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Path to yaml config file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (trace|debug|info|warn|error)")

	rootCmd.AddCommand(
		newScanCmd(),
		newDiscoveryCmd(),
		newPricesCmd(),
		newAlertsCmd(),
		newSettingsCmd(),
		newBotCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setupLogging picks console output on a terminal and JSON everywhere else,
// so piped output stays machine-readable.
func setupLogging(level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log.Logger = log.Output(os.Stderr)
	}

	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if level == "" {
		return
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		log.Warn().Str("level", level).Msg("unknown log level, keeping default")
		return
	}
	zerolog.SetGlobalLevel(lvl)
}

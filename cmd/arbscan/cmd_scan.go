package main

import (
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/scanner"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/telemetry"
)

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run the scanner until interrupted",
		Long: `Runs the full pipeline: discovery, price collection, spread scanning,
safety validation and alert dispatch, plus the telemetry HTTP server.
Stops cleanly on SIGINT/SIGTERM.`,
		RunE: runScan,
	}
}

func runScan(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}

	metrics := telemetry.NewMetrics()
	server := telemetry.NewServer(a.cfg.HTTP.ListenAddr, a.kv, metrics)
	orch := scanner.NewOrchestrator(a.kv, a.reg, a.coll, a.scan, metrics)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Run(ctx); err != nil {
			serverErr <- err
		}
	}()

	log.Info().Str("version", version).Msg("scanner starting")
	runErr := make(chan error, 1)
	go func() { runErr <- orch.Run(ctx) }()

	select {
	case err := <-serverErr:
		stop()
		<-runErr
		return err
	case err := <-runErr:
		return err
	}
}

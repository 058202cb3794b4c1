package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/config"
)

func newDiscoveryCmd() *cobra.Command {
	var show bool
	cmd := &cobra.Command{
		Use:   "discovery",
		Short: "Rebuild the ticker inventory once",
		Long:  "Queries every enabled venue for its listings, merges them by base asset and persists the result.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}

			settings := config.LoadSettings(ctx, a.kv)
			started := time.Now()
			if err := a.reg.Discover(ctx, settings); err != nil {
				return err
			}

			symbols, err := a.reg.Symbols(ctx)
			if err != nil {
				return err
			}
			log.Info().Int("symbols", len(symbols)).
				Dur("took", time.Since(started)).Msg("discovery complete")

			if show {
				sort.Strings(symbols)
				for _, sym := range symbols {
					t, ok, err := a.reg.Ticker(ctx, sym)
					if err != nil || !ok {
						continue
					}
					venueIDs := t.VenueIDs()
					sort.Strings(venueIDs)
					fmt.Printf("%-12s %s\n", sym, strings.Join(venueIDs, ", "))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&show, "show", false, "Print every symbol with its venues")
	return cmd
}

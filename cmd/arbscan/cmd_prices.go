package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/config"
)

func newPricesCmd() *cobra.Command {
	var symbol string
	cmd := &cobra.Command{
		Use:   "prices",
		Short: "Collect one price tick and print it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}

			settings := config.LoadSettings(ctx, a.kv)
			if err := a.coll.Collect(ctx, settings); err != nil {
				return err
			}
			records, err := a.coll.Latest(ctx)
			if err != nil {
				return err
			}

			keys := make([]string, 0, len(records))
			for k := range records {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SYMBOL\tVENUE\tBID\tASK\tLAST")
			for _, k := range keys {
				r := records[k]
				if symbol != "" && r.Symbol != symbol {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					r.Symbol, r.VenueID, r.Bid, r.Ask, r.Last)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "Only print this symbol")
	return cmd
}

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/store"
)

func newAlertsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Inspect recent signals and manage the blacklist",
	}
	cmd.AddCommand(newAlertsListCmd(), newAlertsBlacklistCmd())
	return cmd
}

func newAlertsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the recent signal history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			sigs, err := a.scan.RecentSignals(ctx)
			if err != nil {
				return err
			}
			if len(sigs) == 0 {
				fmt.Println("no signals recorded")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSYMBOL\tROUTE\tNET%\tSTATUS")
			for _, s := range sigs {
				fmt.Fprintf(w, "%s\t%s\t%s -> %s\t%s\t%s\n",
					s.StrategyID, s.Pair.Symbol,
					s.Pair.Low.ID, s.Pair.High.ID,
					s.NetSpreadPct.StringFixed(2), s.Status)
			}
			return w.Flush()
		},
	}
}

func newAlertsBlacklistCmd() *cobra.Command {
	var pair bool
	cmd := &cobra.Command{
		Use:   "blacklist [add|remove|show] [symbol-or-pair]",
		Short: "Manage the alert blacklist",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}

			switch args[0] {
			case "show":
				syms, err := a.kv.SMembers(ctx, store.BlacklistSymbolsKey())
				if err != nil {
					return err
				}
				pairs, err := a.kv.SMembers(ctx, store.BlacklistPairsKey())
				if err != nil {
					return err
				}
				for _, s := range syms {
					fmt.Println("symbol:", s)
				}
				for _, p := range pairs {
					fmt.Println("pair:  ", p)
				}
				return nil
			case "add":
				if len(args) < 2 {
					return fmt.Errorf("add needs a symbol or pair id")
				}
				if pair {
					return a.gate.BlacklistPair(ctx, args[1])
				}
				return a.gate.Blacklist(ctx, args[1])
			case "remove":
				if len(args) < 2 {
					return fmt.Errorf("remove needs a symbol")
				}
				if pair {
					return a.kv.SRem(ctx, store.BlacklistPairsKey(), args[1])
				}
				return a.gate.Unblacklist(ctx, args[1])
			default:
				return fmt.Errorf("unknown action %q", args[0])
			}
		},
	}
	cmd.Flags().BoolVar(&pair, "pair", false, "Operate on pair ids instead of symbols")
	return cmd
}

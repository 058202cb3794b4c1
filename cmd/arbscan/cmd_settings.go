package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/config"
	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/store"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or override runtime settings",
		Long: `Runtime settings live in the KV store under config:* keys and are
re-read by the running scanner every tick, so overrides apply without a
restart.`,
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings (defaults plus overrides)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			s := config.LoadSettings(ctx, a.kv)
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		},
	}

	set := &cobra.Command{
		Use:   "set <name> <value>",
		Short: "Override one setting in the KV store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			if err := a.kv.Set(ctx, store.SettingKey(args[0]), []byte(args[1]), 0); err != nil {
				return err
			}
			fmt.Printf("%s = %s\n", args[0], args[1])
			return nil
		},
	}

	unset := &cobra.Command{
		Use:   "unset <name>",
		Short: "Remove an override, reverting to the default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			return a.kv.Del(ctx, store.SettingKey(args[0]))
		},
	}

	cmd.AddCommand(show, set, unset)
	return cmd
}

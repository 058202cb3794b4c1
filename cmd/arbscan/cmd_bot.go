package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newBotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot-test",
		Short: "Send a test message through the configured dispatcher",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			msg := fmt.Sprintf("arbscan %s test message (%s)",
				version, time.Now().UTC().Format(time.RFC3339))
			if err := a.tx.Send(ctx, msg); err != nil {
				return err
			}
			fmt.Println("delivered")
			return nil
		},
	}
}

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"factionwatch/internal/report"
)

func reportCmd() *cobra.Command {
	var guild, faction string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the directive lists for a guild's faction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(guild) == "" {
				return fmt.Errorf("--guild is required")
			}
			if strings.TrimSpace(faction) == "" {
				return fmt.Errorf("--faction is required")
			}

			ctx := context.Background()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close(ctx)

			r, err := report.NewBuilder(e.db, e.defaultGoal(), e.logger).Build(ctx, guild, faction)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), report.Format(r))
			return nil
		},
	}
	cmd.Flags().StringVar(&guild, "guild", "", "Guild identifier")
	cmd.Flags().StringVar(&faction, "faction", "", "Faction name")
	return cmd
}

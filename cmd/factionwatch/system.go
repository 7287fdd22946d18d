package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"factionwatch/internal/store"
)

func systemCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "system <name>",
		Short: "Show the stored factions of a star system",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close(ctx)

			var region *store.Region
			var presences []store.Presence
			err = e.db.WithTx(ctx, store.TxOptions{ReadOnly: true}, func(tx store.Tx) error {
				found, err := tx.FindRegion(ctx, args[0])
				if err != nil || found == nil {
					return err
				}
				region = found
				presences, err = tx.ListPresences(ctx, found.Name)
				return err
			})
			if err != nil {
				return err
			}
			if region == nil {
				return fmt.Errorf("system %s: %w", args[0], store.ErrNotFound)
			}

			printSystem(cmd.OutOrStdout(), region, presences)
			return nil
		},
	}
}

func printSystem(out io.Writer, region *store.Region, presences []store.Presence) {
	fmt.Fprintf(out, "%s (updated %s)\n", region.Name, region.UpdatedAt.UTC().Format("2006-01-02 15:04:05"))
	if len(presences) == 0 {
		fmt.Fprintln(out, "  no factions")
		return
	}
	for _, p := range presences {
		line := fmt.Sprintf("  %-40s %6.2f%%", p.Faction, p.Influence*100)
		if len(p.States) > 0 {
			line += "  " + strings.Join(p.States, ", ")
		}
		fmt.Fprintln(out, line)
	}
}

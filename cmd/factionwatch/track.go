package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"factionwatch/internal/store"
)

func trackCmd() *cobra.Command {
	var guild string
	cmd := &cobra.Command{
		Use:   "track <faction>",
		Short: "Track a faction for a guild",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(guild) == "" {
				return fmt.Errorf("--guild is required")
			}
			faction := strings.TrimSpace(args[0])
			if faction == "" {
				return fmt.Errorf("faction name is required")
			}

			ctx := context.Background()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close(ctx)

			err = e.db.WithTx(ctx, store.TxOptions{}, func(tx store.Tx) error {
				id, err := tx.EnsureFaction(ctx, faction)
				if err != nil {
					return err
				}
				return tx.TrackFaction(ctx, guild, id)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Guild %s now tracks %s. Restart the listener to pick it up.\n", guild, faction)
			return nil
		},
	}
	cmd.Flags().StringVar(&guild, "guild", "", "Guild identifier")
	return cmd
}

func untrackCmd() *cobra.Command {
	var guild string
	cmd := &cobra.Command{
		Use:   "untrack <faction>",
		Short: "Stop tracking a faction and drop the guild's overrides for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(guild) == "" {
				return fmt.Errorf("--guild is required")
			}

			ctx := context.Background()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close(ctx)

			var removed bool
			err = e.db.WithTx(ctx, store.TxOptions{}, func(tx store.Tx) error {
				f, err := tx.FindFaction(ctx, args[0])
				if err != nil {
					return err
				}
				if f == nil {
					return fmt.Errorf("faction %s: %w", args[0], store.ErrNotFound)
				}
				removed, err = tx.UntrackFaction(ctx, guild, f.ID)
				return err
			})
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintf(cmd.OutOrStdout(), "Guild %s was not tracking %s.\n", guild, args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Guild %s no longer tracks %s.\n", guild, args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&guild, "guild", "", "Guild identifier")
	return cmd
}

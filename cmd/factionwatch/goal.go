package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"factionwatch/internal/goal"
	"factionwatch/internal/store"
)

type goalTarget struct {
	guild   string
	system  string
	faction string
}

func (t goalTarget) check() error {
	if strings.TrimSpace(t.guild) == "" {
		return fmt.Errorf("--guild is required")
	}
	if strings.TrimSpace(t.system) == "" {
		return fmt.Errorf("--system is required")
	}
	if strings.TrimSpace(t.faction) == "" {
		return fmt.Errorf("--faction is required")
	}
	return nil
}

func (t *goalTarget) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&t.guild, "guild", "", "Guild identifier")
	cmd.Flags().StringVar(&t.system, "system", "", "Star system name")
	cmd.Flags().StringVar(&t.faction, "faction", "", "Faction name")
}

func goalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goal",
		Short: "Manage per-system goal overrides",
	}
	cmd.AddCommand(goalSetCmd())
	cmd.AddCommand(goalClearCmd())
	return cmd
}

func goalSetCmd() *cobra.Command {
	var target goalTarget
	var name string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Override the goal for a faction in one system",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := target.check(); err != nil {
				return err
			}
			g, err := goal.Lookup(name)
			if err != nil {
				return err
			}

			ctx := context.Background()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close(ctx)

			err = e.db.WithTx(ctx, store.TxOptions{}, func(tx store.Tx) error {
				p, err := findPresence(ctx, tx, target)
				if err != nil {
					return err
				}
				return tx.SetGoal(ctx, target.guild, p.ID, g.String())
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Goal for %s in %s set to %s.\n", target.faction, target.system, g)
			return nil
		},
	}
	target.bind(cmd)
	cmd.Flags().StringVar(&name, "goal", "", "Goal name ("+strings.Join(goal.Names(), ", ")+")")
	return cmd
}

func goalClearCmd() *cobra.Command {
	var target goalTarget
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove a goal override so the default goal applies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := target.check(); err != nil {
				return err
			}

			ctx := context.Background()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close(ctx)

			var cleared bool
			err = e.db.WithTx(ctx, store.TxOptions{}, func(tx store.Tx) error {
				p, err := findPresence(ctx, tx, target)
				if err != nil {
					return err
				}
				cleared, err = tx.ClearGoal(ctx, target.guild, p.ID)
				return err
			})
			if err != nil {
				return err
			}
			if !cleared {
				fmt.Fprintf(cmd.OutOrStdout(), "No override for %s in %s.\n", target.faction, target.system)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Override for %s in %s cleared.\n", target.faction, target.system)
			return nil
		},
	}
	target.bind(cmd)
	return cmd
}

func findPresence(ctx context.Context, tx store.Tx, target goalTarget) (*store.Presence, error) {
	p, err := tx.FindPresence(ctx, target.system, target.faction)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%s in %s: %w", target.faction, target.system, store.ErrNotFound)
	}
	return p, nil
}

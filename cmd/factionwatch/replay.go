package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"factionwatch/internal/feed"
)

func replayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <file>",
		Short: "Feed newline-delimited events from a file through the reconcilers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close(context.Background())

			source, err := feed.OpenReplayFile(args[0])
			if err != nil {
				return err
			}
			defer source.Close()

			return runFeed(ctx, e, source, feed.Identity)
		},
	}
}

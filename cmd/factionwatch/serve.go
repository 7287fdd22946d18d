package main

import (
	"context"

	"github.com/spf13/cobra"

	"factionwatch/internal/mcp"
	"factionwatch/internal/report"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		RunE:  runServe,
	}
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close(ctx)

	builder := report.NewBuilder(e.db, e.defaultGoal(), e.logger)
	server := mcp.NewServer(builder, e.db, e.defaultGoal(), version)
	return server.Run(ctx, &sdk.StdioTransport{})
}

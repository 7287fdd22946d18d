package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:          "factionwatch",
		Short:        "Faction influence tracker fed by the live game-state feed",
		SilenceUsage: true,
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().StringVar(&configPath, "config", "factionwatch.yaml", "Path to the project config")
	root.AddCommand(initCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(listenCmd())
	root.AddCommand(replayCmd())
	root.AddCommand(reportCmd())
	root.AddCommand(goalCmd())
	root.AddCommand(trackCmd())
	root.AddCommand(untrackCmd())
	root.AddCommand(systemCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(versionCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	var projectName string
	var dsn string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a new factionwatch project config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(projectName) == "" {
				return fmt.Errorf("--name is required")
			}
			return runInit(configPath, projectName, dsn)
		},
	}
	cmd.Flags().StringVar(&projectName, "name", "", "Project name")
	cmd.Flags().StringVar(&dsn, "dsn", "sqlite://factionwatch.db", "Database DSN")
	return cmd
}

const configTemplate = `project: %s
version: 1

database:
  dsn: %s

feed:
  # websocket relay carrying zlib-compressed feed frames
  url: ""
  receive_timeout: 5s
  reconnect_interval: 10s
  workers: 4

factions: []

goals:
  default: control
  stale_after: 72h

log:
  level: info
  format: json

metrics:
  listen: ""
`

func runInit(path, projectName, dsn string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	contents := fmt.Sprintf(configTemplate, projectName, dsn)
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

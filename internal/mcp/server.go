package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"factionwatch/internal/goal"
	"factionwatch/internal/report"
	"factionwatch/internal/store"
)

type ReportBuilder interface {
	Build(ctx context.Context, guildID, faction string) (*report.Report, error)
}

type Server struct {
	reports     ReportBuilder
	db          store.Store
	defaultGoal goal.Goal
	mcp         *sdk.Server
}

func NewServer(reports ReportBuilder, db store.Store, defaultGoal goal.Goal, version string) *Server {
	s := &Server{
		reports:     reports,
		db:          db,
		defaultGoal: defaultGoal,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "factionwatch",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}

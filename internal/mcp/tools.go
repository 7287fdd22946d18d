package mcp

import (
	"context"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"factionwatch/internal/goal"
	"factionwatch/internal/report"
	"factionwatch/internal/store"
)

type FactionReportInput struct {
	Guild   string `json:"guild" jsonschema:"guild identifier"`
	Faction string `json:"faction" jsonschema:"faction name"`
}

type SystemStatusInput struct {
	System string `json:"system" jsonschema:"star system name"`
}

type ListGoalsInput struct{}

type DirectiveOutput struct {
	Region    string  `json:"region"`
	Faction   string  `json:"faction"`
	Goal      string  `json:"goal"`
	Influence float64 `json:"influence"`
}

type ConflictOutput struct {
	Region          string `json:"region"`
	Opponent        string `json:"opponent"`
	Type            string `json:"type"`
	State           string `json:"state"`
	WonDays         int    `json:"won_days"`
	OpponentWonDays int    `json:"opponent_won_days"`
}

type FactionReportOutput struct {
	Faction   string            `json:"faction"`
	Pro       []DirectiveOutput `json:"pro"`
	Anti      []DirectiveOutput `json:"anti"`
	Wars      []ConflictOutput  `json:"wars"`
	Elections []ConflictOutput  `json:"elections"`
	Text      string            `json:"text"`
}

type PresenceOutput struct {
	Faction   string   `json:"faction"`
	Influence float64  `json:"influence"`
	States    []string `json:"states"`
}

type SystemStatusOutput struct {
	System    string           `json:"system"`
	UpdatedAt string           `json:"updated_at"`
	Security  string           `json:"security,omitempty"`
	Presences []PresenceOutput `json:"presences"`
}

type ListGoalsOutput struct {
	Goals   []string `json:"goals"`
	Default string   `json:"default"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "faction_report",
		Description: "Build the pro and anti directive lists for a guild's faction",
	}, s.handleFactionReport)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "system_status",
		Description: "Show the stored faction presences of a star system",
	}, s.handleSystemStatus)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_goals",
		Description: "List the goal names a presence can be assigned",
	}, s.handleListGoals)
}

func (s *Server) handleFactionReport(ctx context.Context, req *sdk.CallToolRequest, input FactionReportInput) (*sdk.CallToolResult, FactionReportOutput, error) {
	if input.Guild == "" {
		return nil, FactionReportOutput{}, fmt.Errorf("guild is required")
	}
	if input.Faction == "" {
		return nil, FactionReportOutput{}, fmt.Errorf("faction is required")
	}
	r, err := s.reports.Build(ctx, input.Guild, input.Faction)
	if err != nil {
		return nil, FactionReportOutput{}, err
	}
	return nil, factionReportOutput(r), nil
}

func (s *Server) handleSystemStatus(ctx context.Context, req *sdk.CallToolRequest, input SystemStatusInput) (*sdk.CallToolResult, SystemStatusOutput, error) {
	if input.System == "" {
		return nil, SystemStatusOutput{}, fmt.Errorf("system is required")
	}

	var region *store.Region
	var presences []store.Presence
	err := s.db.WithTx(ctx, store.TxOptions{ReadOnly: true}, func(tx store.Tx) error {
		var err error
		if region, err = tx.FindRegion(ctx, input.System); err != nil || region == nil {
			return err
		}
		presences, err = tx.ListPresences(ctx, region.Name)
		return err
	})
	if err != nil {
		return nil, SystemStatusOutput{}, err
	}
	if region == nil {
		return nil, SystemStatusOutput{}, fmt.Errorf("system not found")
	}

	out := SystemStatusOutput{
		System:    region.Name,
		UpdatedAt: region.UpdatedAt.Format(time.RFC3339),
		Presences: make([]PresenceOutput, 0, len(presences)),
	}
	for _, p := range presences {
		if out.Security == "" {
			out.Security = p.Security
		}
		out.Presences = append(out.Presences, PresenceOutput{
			Faction:   p.Faction,
			Influence: p.Influence,
			States:    append([]string{}, p.States...),
		})
	}
	return nil, out, nil
}

func (s *Server) handleListGoals(ctx context.Context, req *sdk.CallToolRequest, input ListGoalsInput) (*sdk.CallToolResult, ListGoalsOutput, error) {
	return nil, ListGoalsOutput{Goals: goal.Names(), Default: s.defaultGoal.String()}, nil
}

func factionReportOutput(r *report.Report) FactionReportOutput {
	out := FactionReportOutput{
		Faction:   r.Faction,
		Pro:       directiveOutputs(r.Pro),
		Anti:      directiveOutputs(r.Anti),
		Wars:      conflictOutputs(r.Wars),
		Elections: conflictOutputs(r.Elections),
		Text:      report.Format(r),
	}
	return out
}

func directiveOutputs(directives []goal.Directive) []DirectiveOutput {
	out := make([]DirectiveOutput, 0, len(directives))
	for _, d := range directives {
		out = append(out, DirectiveOutput{
			Region:    d.Region,
			Faction:   d.Faction,
			Goal:      d.Goal.String(),
			Influence: d.Influence,
		})
	}
	return out
}

func conflictOutputs(lines []report.ConflictLine) []ConflictOutput {
	out := make([]ConflictOutput, 0, len(lines))
	for _, l := range lines {
		out = append(out, ConflictOutput{
			Region:          l.Region,
			Opponent:        l.Opponent,
			Type:            l.WarType,
			State:           l.State,
			WonDays:         l.WonDays,
			OpponentWonDays: l.OpponentWonDays,
		})
	}
	return out
}

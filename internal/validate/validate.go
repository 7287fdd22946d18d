package validate

import (
	"context"
	"fmt"
	"time"

	"factionwatch/internal/goal"
	"factionwatch/internal/store"
)

type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warning"
)

const (
	codeUnknownGoal   = "unknown_goal"
	codeStaleRegion   = "stale_region"
	codeUnseenFaction = "unseen_faction"
)

type Issue struct {
	Severity Severity
	Code     string
	Message  string
	Guild    string
	Faction  string
	Region   string
}

type Report struct {
	Issues []Issue
}

func (r *Report) HasErrors() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

type Options struct {
	// Factions are the configured factions of interest.
	Factions []string
	// StaleAfter is how old a tracked region's last update may be.
	StaleAfter time.Duration
	Now        time.Time
}

// Run checks stored guild data for problems the listener cannot detect on
// its own.
func Run(ctx context.Context, s store.Store, opts Options) (*Report, error) {
	if s == nil {
		return nil, fmt.Errorf("store is required")
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	issues := make([]Issue, 0)
	err := s.WithTx(ctx, store.TxOptions{ReadOnly: true}, func(tx store.Tx) error {
		overrides, err := tx.ListGoalOverrides(ctx)
		if err != nil {
			return fmt.Errorf("list goal overrides: %w", err)
		}
		issues = append(issues, validateGoals(overrides)...)

		if opts.StaleAfter > 0 {
			stale, err := tx.ListStaleRegions(ctx, now.Add(-opts.StaleAfter))
			if err != nil {
				return fmt.Errorf("list stale regions: %w", err)
			}
			for _, region := range stale {
				issues = append(issues, Issue{
					Severity: SeverityWarn,
					Code:     codeStaleRegion,
					Message:  fmt.Sprintf("no update since %s", region.UpdatedAt.Format(time.RFC3339)),
					Guild:    region.GuildID,
					Faction:  region.Faction,
					Region:   region.Region,
				})
			}
		}

		for _, name := range opts.Factions {
			faction, err := tx.FindFaction(ctx, name)
			if err != nil {
				return fmt.Errorf("find faction %s: %w", name, err)
			}
			if faction == nil {
				issues = append(issues, Issue{
					Severity: SeverityWarn,
					Code:     codeUnseenFaction,
					Message:  "configured faction has not appeared in the feed",
					Faction:  name,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Report{Issues: issues}, nil
}

func validateGoals(overrides []store.GoalOverride) []Issue {
	var issues []Issue
	for _, o := range overrides {
		if _, err := goal.Lookup(o.Goal); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Code:     codeUnknownGoal,
				Message:  fmt.Sprintf("unknown goal: %s", o.Goal),
				Guild:    o.GuildID,
				Faction:  o.Faction,
				Region:   o.Region,
			})
		}
	}
	return issues
}

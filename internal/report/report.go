package report

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"factionwatch/internal/conflict"
	"factionwatch/internal/goal"
	"factionwatch/internal/store"
)

// ConflictLine is one conflict seen from the reported faction's side.
type ConflictLine struct {
	Region          string
	Opponent        string
	WarType         string
	State           string
	WonDays         int
	OpponentWonDays int
}

type Report struct {
	Guild     string
	Faction   string
	Pro       []goal.Directive
	Anti      []goal.Directive
	Wars      []ConflictLine
	Elections []ConflictLine
}

// Builder turns a guild's stored goals for a faction into directive lists.
type Builder struct {
	store       store.Store
	defaultGoal goal.Goal
	logger      *zap.Logger
}

func NewBuilder(s store.Store, defaultGoal goal.Goal, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{store: s, defaultGoal: defaultGoal, logger: logger.Named("report")}
}

// Build reads everything in one read-only transaction. Directives keep the
// order in which assignments were loaded. Assignments naming an unknown goal
// are logged and skipped.
func (b *Builder) Build(ctx context.Context, guildID, faction string) (*Report, error) {
	r := &Report{
		Guild:     guildID,
		Faction:   faction,
		Pro:       []goal.Directive{},
		Anti:      []goal.Directive{},
		Wars:      []ConflictLine{},
		Elections: []ConflictLine{},
	}

	var assignments []store.Assignment
	var conflicts []store.Conflict
	err := b.store.WithTx(ctx, store.TxOptions{ReadOnly: true}, func(tx store.Tx) error {
		var err error
		if assignments, err = tx.ListAssignments(ctx, guildID, faction); err != nil {
			return err
		}
		conflicts, err = tx.ListConflicts(ctx, faction)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("building report for %s: %w", faction, err)
	}

	for _, a := range assignments {
		g, err := goal.Resolve(a.Goal, b.defaultGoal)
		if err != nil {
			b.logger.Warn("skipping assignment",
				zap.String("guild", guildID),
				zap.String("region", a.Presence.Region),
				zap.String("faction", a.Presence.Faction),
				zap.Error(err),
			)
			continue
		}

		for _, d := range goal.Evaluate(g, toGoalPresence(a.Presence)) {
			switch d.Kind {
			case goal.Pro:
				r.Pro = append(r.Pro, d)
			case goal.Anti:
				r.Anti = append(r.Anti, d)
			}
		}
	}

	for _, c := range conflicts {
		oriented, ok := c.Oriented(faction)
		if !ok {
			continue
		}
		line := ConflictLine{
			Region:          oriented.Region,
			Opponent:        oriented.FactionB,
			WarType:         oriented.WarType,
			State:           conflict.Resolve(oriented.Status, oriented.WonDaysA, oriented.WonDaysB),
			WonDays:         oriented.WonDaysA,
			OpponentWonDays: oriented.WonDaysB,
		}
		switch {
		case conflict.IsWar(line.WarType):
			r.Wars = append(r.Wars, line)
		case conflict.IsElection(line.WarType):
			r.Elections = append(r.Elections, line)
		}
	}

	return r, nil
}

func toGoalPresence(p store.Presence) goal.Presence {
	return goal.Presence{
		Region:    p.Region,
		Faction:   p.Faction,
		Influence: p.Influence,
		States:    p.States,
	}
}

// Format renders the report as plain text. Empty sections print "- none".
func Format(r *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Directives for %s\n", r.Faction)

	writeDirectives(&b, "Pro", r.Pro)
	writeDirectives(&b, "Anti", r.Anti)
	writeConflicts(&b, "Wars", r.Wars)
	writeConflicts(&b, "Elections", r.Elections)

	return b.String()
}

func writeDirectives(b *strings.Builder, title string, directives []goal.Directive) {
	fmt.Fprintf(b, "%s:\n", title)
	if len(directives) == 0 {
		b.WriteString("- none\n")
		return
	}
	for _, d := range directives {
		fmt.Fprintf(b, "- %s (%.1f%%)\n", d.Region, d.Influence*100)
	}
}

func writeConflicts(b *strings.Builder, title string, lines []ConflictLine) {
	fmt.Fprintf(b, "%s:\n", title)
	if len(lines) == 0 {
		b.WriteString("- none\n")
		return
	}
	for _, l := range lines {
		fmt.Fprintf(b, "- %s vs %s: %s (%d-%d)\n", l.Region, l.Opponent, l.State, l.WonDays, l.OpponentWonDays)
	}
}

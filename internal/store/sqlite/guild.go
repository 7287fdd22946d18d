package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"factionwatch/internal/store"
)

func (t *tx) TrackFaction(ctx context.Context, guildID string, factionID int64) error {
	_, err := t.tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO tracked_factions (guild_id, faction_id) VALUES (?, ?)",
		guildID, factionID,
	)
	if err != nil {
		return fmt.Errorf("tracking faction: %w", err)
	}
	return nil
}

// UntrackFaction also drops the guild's goal overrides for the faction's
// presences.
func (t *tx) UntrackFaction(ctx context.Context, guildID string, factionID int64) (bool, error) {
	_, err := t.tx.ExecContext(ctx, `
	DELETE FROM goal_overrides
	WHERE guild_id = ?
	  AND presence_id IN (SELECT id FROM presences WHERE faction_id = ?)`,
		guildID, factionID,
	)
	if err != nil {
		return false, fmt.Errorf("clearing goal overrides: %w", err)
	}

	result, err := t.tx.ExecContext(ctx,
		"DELETE FROM tracked_factions WHERE guild_id = ? AND faction_id = ?",
		guildID, factionID,
	)
	if err != nil {
		return false, fmt.Errorf("untracking faction: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("counting untracked factions: %w", err)
	}
	return n > 0, nil
}

func (t *tx) SetGoal(ctx context.Context, guildID string, presenceID int64, goal string) error {
	_, err := t.tx.ExecContext(ctx, `
	INSERT INTO goal_overrides (guild_id, presence_id, goal)
	VALUES (?, ?, ?)
	ON CONFLICT (guild_id, presence_id) DO UPDATE SET goal = excluded.goal`,
		guildID, presenceID, goal,
	)
	if err != nil {
		return fmt.Errorf("setting goal: %w", err)
	}
	return nil
}

func (t *tx) ClearGoal(ctx context.Context, guildID string, presenceID int64) (bool, error) {
	result, err := t.tx.ExecContext(ctx,
		"DELETE FROM goal_overrides WHERE guild_id = ? AND presence_id = ?",
		guildID, presenceID,
	)
	if err != nil {
		return false, fmt.Errorf("clearing goal: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("counting cleared goals: %w", err)
	}
	return n > 0, nil
}

func (t *tx) ListAssignments(ctx context.Context, guildID, factionName string) ([]store.Assignment, error) {
	query := `
	SELECT p.id, r.name, f.name, p.influence, p.security, r.updated_at, g.goal
	FROM tracked_factions tf
	JOIN factions f ON f.id = tf.faction_id
	JOIN presences p ON p.faction_id = f.id
	JOIN regions r ON r.id = p.region_id
	LEFT JOIN goal_overrides g ON g.presence_id = p.id AND g.guild_id = tf.guild_id
	WHERE tf.guild_id = ? AND f.name_normalized = ?
	ORDER BY r.name
	`

	rows, err := t.tx.QueryContext(ctx, query, guildID, normalize(factionName))
	if err != nil {
		return nil, fmt.Errorf("listing assignments: %w", err)
	}

	assignments := []store.Assignment{}
	for rows.Next() {
		var a store.Assignment
		var updatedAt string
		var goal sql.NullString
		err := rows.Scan(
			&a.Presence.ID,
			&a.Presence.Region,
			&a.Presence.Faction,
			&a.Presence.Influence,
			&a.Presence.Security,
			&updatedAt,
			&goal,
		)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning assignment: %w", err)
		}
		if a.Presence.UpdatedAt, err = parseTime(updatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		if goal.Valid {
			a.Goal = &goal.String
		}
		a.GuildID = guildID
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating assignments: %w", err)
	}
	rows.Close()

	presences := make([]store.Presence, len(assignments))
	for i, a := range assignments {
		presences[i] = a.Presence
	}
	if err := t.loadStates(ctx, presences); err != nil {
		return nil, err
	}
	for i := range assignments {
		assignments[i].Presence.States = presences[i].States
		if assignments[i].Presence.States == nil {
			assignments[i].Presence.States = []string{}
		}
	}
	return assignments, nil
}

func (t *tx) ListTrackedFactions(ctx context.Context) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx, `
	SELECT DISTINCT f.name
	FROM tracked_factions tf
	JOIN factions f ON f.id = tf.faction_id
	ORDER BY f.name`)
	if err != nil {
		return nil, fmt.Errorf("listing tracked factions: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning tracked faction: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (t *tx) ListGoalOverrides(ctx context.Context) ([]store.GoalOverride, error) {
	rows, err := t.tx.QueryContext(ctx, `
	SELECT g.guild_id, r.name, f.name, g.goal
	FROM goal_overrides g
	JOIN presences p ON p.id = g.presence_id
	JOIN regions r ON r.id = p.region_id
	JOIN factions f ON f.id = p.faction_id
	ORDER BY g.guild_id, f.name, r.name`)
	if err != nil {
		return nil, fmt.Errorf("listing goal overrides: %w", err)
	}
	defer rows.Close()

	var overrides []store.GoalOverride
	for rows.Next() {
		var o store.GoalOverride
		if err := rows.Scan(&o.GuildID, &o.Region, &o.Faction, &o.Goal); err != nil {
			return nil, fmt.Errorf("scanning goal override: %w", err)
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

func (t *tx) ListStaleRegions(ctx context.Context, before time.Time) ([]store.StaleRegion, error) {
	rows, err := t.tx.QueryContext(ctx, `
	SELECT tf.guild_id, f.name, r.name, r.updated_at
	FROM tracked_factions tf
	JOIN factions f ON f.id = tf.faction_id
	JOIN presences p ON p.faction_id = f.id
	JOIN regions r ON r.id = p.region_id
	WHERE r.updated_at < ?
	ORDER BY tf.guild_id, f.name, r.name`,
		formatTime(before),
	)
	if err != nil {
		return nil, fmt.Errorf("listing stale regions: %w", err)
	}
	defer rows.Close()

	var stale []store.StaleRegion
	for rows.Next() {
		var s store.StaleRegion
		var updatedAt string
		if err := rows.Scan(&s.GuildID, &s.Faction, &s.Region, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning stale region: %w", err)
		}
		if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		stale = append(stale, s)
	}
	return stale, rows.Err()
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"factionwatch/internal/store"
)

func (t *tx) TrackFaction(ctx context.Context, guildID string, factionID int64) error {
	_, err := t.tx.Exec(ctx, `
INSERT INTO tracked_factions (guild_id, faction_id) VALUES ($1, $2)
ON CONFLICT DO NOTHING
`, guildID, factionID)
	if err != nil {
		return fmt.Errorf("tracking faction: %w", err)
	}
	return nil
}

// UntrackFaction also drops the guild's goal overrides for the faction's
// presences.
func (t *tx) UntrackFaction(ctx context.Context, guildID string, factionID int64) (bool, error) {
	_, err := t.tx.Exec(ctx, `
DELETE FROM goal_overrides
WHERE guild_id = $1
  AND presence_id IN (SELECT id FROM presences WHERE faction_id = $2)
`, guildID, factionID)
	if err != nil {
		return false, fmt.Errorf("clearing goal overrides: %w", err)
	}

	tag, err := t.tx.Exec(ctx,
		"DELETE FROM tracked_factions WHERE guild_id = $1 AND faction_id = $2",
		guildID, factionID,
	)
	if err != nil {
		return false, fmt.Errorf("untracking faction: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (t *tx) SetGoal(ctx context.Context, guildID string, presenceID int64, goal string) error {
	_, err := t.tx.Exec(ctx, `
INSERT INTO goal_overrides (guild_id, presence_id, goal)
VALUES ($1, $2, $3)
ON CONFLICT (guild_id, presence_id) DO UPDATE SET goal = EXCLUDED.goal
`, guildID, presenceID, goal)
	if err != nil {
		return fmt.Errorf("setting goal: %w", err)
	}
	return nil
}

func (t *tx) ClearGoal(ctx context.Context, guildID string, presenceID int64) (bool, error) {
	tag, err := t.tx.Exec(ctx,
		"DELETE FROM goal_overrides WHERE guild_id = $1 AND presence_id = $2",
		guildID, presenceID,
	)
	if err != nil {
		return false, fmt.Errorf("clearing goal: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (t *tx) ListAssignments(ctx context.Context, guildID, factionName string) ([]store.Assignment, error) {
	query := `
SELECT p.id, r.name, f.name, p.influence, p.security, r.updated_at,
       COALESCE(array_agg(s.name ORDER BY s.name) FILTER (WHERE s.name IS NOT NULL), '{}'),
       g.goal
FROM tracked_factions tf
JOIN factions f ON f.id = tf.faction_id
JOIN presences p ON p.faction_id = f.id
JOIN regions r ON r.id = p.region_id
LEFT JOIN goal_overrides g ON g.presence_id = p.id AND g.guild_id = tf.guild_id
LEFT JOIN presence_states ps ON ps.presence_id = p.id
LEFT JOIN states s ON s.id = ps.state_id
WHERE tf.guild_id = $1 AND f.name_normalized = $2
GROUP BY p.id, r.name, f.name, p.influence, p.security, r.updated_at, g.goal
ORDER BY r.name
`

	rows, err := t.tx.Query(ctx, query, guildID, normalize(factionName))
	if err != nil {
		return nil, fmt.Errorf("listing assignments: %w", err)
	}
	defer rows.Close()

	assignments := []store.Assignment{}
	for rows.Next() {
		a := store.Assignment{GuildID: guildID}
		err := rows.Scan(
			&a.Presence.ID,
			&a.Presence.Region,
			&a.Presence.Faction,
			&a.Presence.Influence,
			&a.Presence.Security,
			&a.Presence.UpdatedAt,
			&a.Presence.States,
			&a.Goal,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning assignment: %w", err)
		}
		a.Presence.UpdatedAt = a.Presence.UpdatedAt.UTC()
		if a.Presence.States == nil {
			a.Presence.States = []string{}
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assignments: %w", err)
	}
	return assignments, nil
}

func (t *tx) ListTrackedFactions(ctx context.Context) ([]string, error) {
	rows, err := t.tx.Query(ctx, `
SELECT DISTINCT f.name
FROM tracked_factions tf
JOIN factions f ON f.id = tf.faction_id
ORDER BY f.name
`)
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
	rows, err := t.tx.Query(ctx, `
SELECT g.guild_id, r.name, f.name, g.goal
FROM goal_overrides g
JOIN presences p ON p.id = g.presence_id
JOIN regions r ON r.id = p.region_id
JOIN factions f ON f.id = p.faction_id
ORDER BY g.guild_id, f.name, r.name
`)
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
	rows, err := t.tx.Query(ctx, `
SELECT tf.guild_id, f.name, r.name, r.updated_at
FROM tracked_factions tf
JOIN factions f ON f.id = tf.faction_id
JOIN presences p ON p.faction_id = f.id
JOIN regions r ON r.id = p.region_id
WHERE r.updated_at < $1
ORDER BY tf.guild_id, f.name, r.name
`, before.UTC())
	if err != nil {
		return nil, fmt.Errorf("listing stale regions: %w", err)
	}
	defer rows.Close()

	var stale []store.StaleRegion
	for rows.Next() {
		var s store.StaleRegion
		if err := rows.Scan(&s.GuildID, &s.Faction, &s.Region, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning stale region: %w", err)
		}
		s.UpdatedAt = s.UpdatedAt.UTC()
		stale = append(stale, s)
	}
	return stale, rows.Err()
}

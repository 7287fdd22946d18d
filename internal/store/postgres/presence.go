package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"factionwatch/internal/store"
)

func (t *tx) UpsertPresence(ctx context.Context, regionID, factionID int64, influence float64, security string) (int64, error) {
	query := `
INSERT INTO presences (region_id, faction_id, influence, security)
VALUES ($1, $2, $3, $4)
ON CONFLICT (region_id, faction_id) DO UPDATE SET
    influence = EXCLUDED.influence,
    security = EXCLUDED.security
RETURNING id
`

	var id int64
	if err := t.tx.QueryRow(ctx, query, regionID, factionID, influence, security).Scan(&id); err != nil {
		return 0, fmt.Errorf("upserting presence: %w", err)
	}
	return id, nil
}

func (t *tx) ReplacePresenceStates(ctx context.Context, presenceID int64, stateIDs []int64) error {
	if _, err := t.tx.Exec(ctx, "DELETE FROM presence_states WHERE presence_id = $1", presenceID); err != nil {
		return fmt.Errorf("clearing presence states: %w", err)
	}
	if len(stateIDs) == 0 {
		return nil
	}

	query := `
INSERT INTO presence_states (presence_id, state_id)
SELECT $1, unnest($2::bigint[])
ON CONFLICT DO NOTHING
`
	if _, err := t.tx.Exec(ctx, query, presenceID, stateIDs); err != nil {
		return fmt.Errorf("adding presence states: %w", err)
	}
	return nil
}

func (t *tx) PrunePresences(ctx context.Context, regionID int64, keepFactionIDs []int64) (int64, error) {
	query := `
DELETE FROM presences
WHERE region_id = $1
  AND NOT (faction_id = ANY($2))
`

	tag, err := t.tx.Exec(ctx, query, regionID, keep(keepFactionIDs))
	if err != nil {
		return 0, fmt.Errorf("pruning presences: %w", err)
	}
	return tag.RowsAffected(), nil
}

const presenceColumns = `
SELECT p.id, r.name, f.name, p.influence, p.security, r.updated_at,
       COALESCE(array_agg(s.name ORDER BY s.name) FILTER (WHERE s.name IS NOT NULL), '{}')
FROM presences p
JOIN regions r ON r.id = p.region_id
JOIN factions f ON f.id = p.faction_id
LEFT JOIN presence_states ps ON ps.presence_id = p.id
LEFT JOIN states s ON s.id = ps.state_id
`

const presenceGroup = `
GROUP BY p.id, r.name, f.name, p.influence, p.security, r.updated_at
`

func (t *tx) FindPresence(ctx context.Context, regionName, factionName string) (*store.Presence, error) {
	rows, err := t.tx.Query(ctx,
		presenceColumns+"WHERE r.name_normalized = $1 AND f.name_normalized = $2"+presenceGroup,
		normalize(regionName), normalize(factionName),
	)
	if err != nil {
		return nil, fmt.Errorf("finding presence: %w", err)
	}
	presences, err := scanPresences(rows)
	if err != nil {
		return nil, err
	}
	if len(presences) == 0 {
		return nil, nil
	}
	return &presences[0], nil
}

func (t *tx) ListPresences(ctx context.Context, regionName string) ([]store.Presence, error) {
	rows, err := t.tx.Query(ctx,
		presenceColumns+"WHERE r.name_normalized = $1"+presenceGroup+"ORDER BY p.influence DESC, f.name",
		normalize(regionName),
	)
	if err != nil {
		return nil, fmt.Errorf("listing presences: %w", err)
	}
	return scanPresences(rows)
}

func scanPresences(rows pgx.Rows) ([]store.Presence, error) {
	defer rows.Close()

	presences := []store.Presence{}
	for rows.Next() {
		var p store.Presence
		if err := rows.Scan(&p.ID, &p.Region, &p.Faction, &p.Influence, &p.Security, &p.UpdatedAt, &p.States); err != nil {
			return nil, fmt.Errorf("scanning presence: %w", err)
		}
		p.UpdatedAt = p.UpdatedAt.UTC()
		if p.States == nil {
			p.States = []string{}
		}
		presences = append(presences, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating presences: %w", err)
	}
	return presences, nil
}

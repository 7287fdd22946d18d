package postgres

import (
	"context"
	"fmt"

	"factionwatch/internal/store"
)

func (t *tx) UpsertConflict(ctx context.Context, c store.ConflictInput) (int64, error) {
	query := `
INSERT INTO conflicts (region_id, faction_a_id, faction_b_id, won_days_a, won_days_b, status, war_type, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (region_id, faction_a_id, faction_b_id) DO UPDATE SET
    won_days_a = EXCLUDED.won_days_a,
    won_days_b = EXCLUDED.won_days_b,
    status = EXCLUDED.status,
    war_type = EXCLUDED.war_type,
    updated_at = EXCLUDED.updated_at
RETURNING id
`

	var id int64
	err := t.tx.QueryRow(ctx, query,
		c.RegionID,
		c.FactionAID,
		c.FactionBID,
		c.WonDaysA,
		c.WonDaysB,
		c.Status,
		c.WarType,
		c.UpdatedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting conflict: %w", err)
	}
	return id, nil
}

func (t *tx) PruneConflicts(ctx context.Context, regionID int64, keepConflictIDs []int64) (int64, error) {
	query := `
DELETE FROM conflicts
WHERE region_id = $1
  AND NOT (id = ANY($2))
`

	tag, err := t.tx.Exec(ctx, query, regionID, keep(keepConflictIDs))
	if err != nil {
		return 0, fmt.Errorf("pruning conflicts: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (t *tx) ListConflicts(ctx context.Context, factionName string) ([]store.Conflict, error) {
	query := `
SELECT r.name, fa.name, fb.name, c.won_days_a, c.won_days_b, c.status, c.war_type, c.updated_at
FROM conflicts c
JOIN regions r ON r.id = c.region_id
JOIN factions fa ON fa.id = c.faction_a_id
JOIN factions fb ON fb.id = c.faction_b_id
WHERE fa.name_normalized = $1 OR fb.name_normalized = $1
ORDER BY r.name, fa.name, fb.name
`

	rows, err := t.tx.Query(ctx, query, normalize(factionName))
	if err != nil {
		return nil, fmt.Errorf("listing conflicts: %w", err)
	}
	defer rows.Close()

	conflicts := []store.Conflict{}
	for rows.Next() {
		var c store.Conflict
		err := rows.Scan(&c.Region, &c.FactionA, &c.FactionB, &c.WonDaysA, &c.WonDaysB, &c.Status, &c.WarType, &c.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning conflict: %w", err)
		}
		c.UpdatedAt = c.UpdatedAt.UTC()
		conflicts = append(conflicts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conflicts: %w", err)
	}
	return conflicts, nil
}

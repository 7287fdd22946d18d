package sqlite

import (
	"context"
	"fmt"

	"factionwatch/internal/store"
)

func (t *tx) UpsertConflict(ctx context.Context, c store.ConflictInput) (int64, error) {
	query := `
	INSERT INTO conflicts (region_id, faction_a_id, faction_b_id, won_days_a, won_days_b, status, war_type, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (region_id, faction_a_id, faction_b_id) DO UPDATE SET
		won_days_a = excluded.won_days_a,
		won_days_b = excluded.won_days_b,
		status = excluded.status,
		war_type = excluded.war_type,
		updated_at = excluded.updated_at
	RETURNING id
	`

	var id int64
	err := t.tx.QueryRowContext(ctx, query,
		c.RegionID,
		c.FactionAID,
		c.FactionBID,
		c.WonDaysA,
		c.WonDaysB,
		c.Status,
		c.WarType,
		formatTime(c.UpdatedAt),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting conflict: %w", err)
	}
	return id, nil
}

func (t *tx) PruneConflicts(ctx context.Context, regionID int64, keepConflictIDs []int64) (int64, error) {
	query := "DELETE FROM conflicts WHERE region_id = ?"
	args := []any{regionID}
	if len(keepConflictIDs) > 0 {
		clause, ids := inClause(keepConflictIDs)
		query += " AND id NOT IN " + clause
		args = append(args, ids...)
	}

	result, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("pruning conflicts: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned conflicts: %w", err)
	}
	return removed, nil
}

func (t *tx) ListConflicts(ctx context.Context, factionName string) ([]store.Conflict, error) {
	query := `
	SELECT r.name, fa.name, fb.name, c.won_days_a, c.won_days_b, c.status, c.war_type, c.updated_at
	FROM conflicts c
	JOIN regions r ON r.id = c.region_id
	JOIN factions fa ON fa.id = c.faction_a_id
	JOIN factions fb ON fb.id = c.faction_b_id
	WHERE fa.name_normalized = ? OR fb.name_normalized = ?
	ORDER BY r.name, fa.name, fb.name
	`

	name := normalize(factionName)
	rows, err := t.tx.QueryContext(ctx, query, name, name)
	if err != nil {
		return nil, fmt.Errorf("listing conflicts: %w", err)
	}
	defer rows.Close()

	conflicts := []store.Conflict{}
	for rows.Next() {
		var c store.Conflict
		var updatedAt string
		err := rows.Scan(&c.Region, &c.FactionA, &c.FactionB, &c.WonDaysA, &c.WonDaysB, &c.Status, &c.WarType, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning conflict: %w", err)
		}
		if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		conflicts = append(conflicts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conflicts: %w", err)
	}
	return conflicts, nil
}

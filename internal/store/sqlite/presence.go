package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"factionwatch/internal/store"
)

func (t *tx) UpsertPresence(ctx context.Context, regionID, factionID int64, influence float64, security string) (int64, error) {
	query := `
	INSERT INTO presences (region_id, faction_id, influence, security)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (region_id, faction_id) DO UPDATE SET
		influence = excluded.influence,
		security = excluded.security
	RETURNING id
	`

	var id int64
	if err := t.tx.QueryRowContext(ctx, query, regionID, factionID, influence, security).Scan(&id); err != nil {
		return 0, fmt.Errorf("upserting presence: %w", err)
	}
	return id, nil
}

func (t *tx) ReplacePresenceStates(ctx context.Context, presenceID int64, stateIDs []int64) error {
	if _, err := t.tx.ExecContext(ctx, "DELETE FROM presence_states WHERE presence_id = ?", presenceID); err != nil {
		return fmt.Errorf("clearing presence states: %w", err)
	}
	for _, stateID := range stateIDs {
		_, err := t.tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO presence_states (presence_id, state_id) VALUES (?, ?)",
			presenceID, stateID,
		)
		if err != nil {
			return fmt.Errorf("adding presence state: %w", err)
		}
	}
	return nil
}

func (t *tx) PrunePresences(ctx context.Context, regionID int64, keepFactionIDs []int64) (int64, error) {
	query := "DELETE FROM presences WHERE region_id = ?"
	args := []any{regionID}
	if len(keepFactionIDs) > 0 {
		clause, ids := inClause(keepFactionIDs)
		query += " AND faction_id NOT IN " + clause
		args = append(args, ids...)
	}

	result, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("pruning presences: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned presences: %w", err)
	}
	return removed, nil
}

const presenceColumns = `
	SELECT p.id, r.name, f.name, p.influence, p.security, r.updated_at
	FROM presences p
	JOIN regions r ON r.id = p.region_id
	JOIN factions f ON f.id = p.faction_id
`

func (t *tx) FindPresence(ctx context.Context, regionName, factionName string) (*store.Presence, error) {
	rows, err := t.tx.QueryContext(ctx,
		presenceColumns+"WHERE r.name_normalized = ? AND f.name_normalized = ?",
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
	if err := t.loadStates(ctx, presences); err != nil {
		return nil, err
	}
	return &presences[0], nil
}

func (t *tx) ListPresences(ctx context.Context, regionName string) ([]store.Presence, error) {
	rows, err := t.tx.QueryContext(ctx,
		presenceColumns+"WHERE r.name_normalized = ? ORDER BY p.influence DESC, f.name",
		normalize(regionName),
	)
	if err != nil {
		return nil, fmt.Errorf("listing presences: %w", err)
	}
	presences, err := scanPresences(rows)
	if err != nil {
		return nil, err
	}
	if err := t.loadStates(ctx, presences); err != nil {
		return nil, err
	}
	return presences, nil
}

func scanPresences(rows *sql.Rows) ([]store.Presence, error) {
	defer rows.Close()

	presences := []store.Presence{}
	for rows.Next() {
		var p store.Presence
		var updatedAt string
		if err := rows.Scan(&p.ID, &p.Region, &p.Faction, &p.Influence, &p.Security, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning presence: %w", err)
		}
		ts, err := parseTime(updatedAt)
		if err != nil {
			return nil, err
		}
		p.UpdatedAt = ts
		p.States = []string{}
		presences = append(presences, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating presences: %w", err)
	}
	return presences, nil
}

// loadStates fills States for each presence. The presence rows must already
// be closed: the client holds a single connection.
func (t *tx) loadStates(ctx context.Context, presences []store.Presence) error {
	if len(presences) == 0 {
		return nil
	}

	index := make(map[int64]int, len(presences))
	ids := make([]int64, 0, len(presences))
	for i, p := range presences {
		index[p.ID] = i
		ids = append(ids, p.ID)
	}

	clause, args := inClause(ids)
	rows, err := t.tx.QueryContext(ctx, `
	SELECT ps.presence_id, s.name
	FROM presence_states ps
	JOIN states s ON s.id = ps.state_id
	WHERE ps.presence_id IN `+clause+`
	ORDER BY s.name`, args...)
	if err != nil {
		return fmt.Errorf("loading presence states: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var presenceID int64
		var name string
		if err := rows.Scan(&presenceID, &name); err != nil {
			return fmt.Errorf("scanning presence state: %w", err)
		}
		i := index[presenceID]
		presences[i].States = append(presences[i].States, name)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating presence states: %w", err)
	}
	return nil
}

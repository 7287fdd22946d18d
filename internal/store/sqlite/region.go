package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"factionwatch/internal/store"
)

func (t *tx) UpsertRegion(ctx context.Context, name string, updatedAt time.Time) (int64, error) {
	query := `
	INSERT INTO regions (name, name_normalized, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT (name_normalized) DO UPDATE SET
		name = excluded.name,
		updated_at = excluded.updated_at
	RETURNING id
	`

	var id int64
	err := t.tx.QueryRowContext(ctx, query, name, normalize(name), formatTime(updatedAt)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting region %q: %w", name, err)
	}
	return id, nil
}

func (t *tx) EnsureFaction(ctx context.Context, name string) (int64, error) {
	query := `
	INSERT INTO factions (name, name_normalized)
	VALUES (?, ?)
	ON CONFLICT (name_normalized) DO UPDATE SET name = factions.name
	RETURNING id
	`

	var id int64
	if err := t.tx.QueryRowContext(ctx, query, name, normalize(name)).Scan(&id); err != nil {
		return 0, fmt.Errorf("ensuring faction %q: %w", name, err)
	}
	return id, nil
}

func (t *tx) EnsureState(ctx context.Context, name string) (int64, error) {
	query := `
	INSERT INTO states (name) VALUES (?)
	ON CONFLICT (name) DO UPDATE SET name = states.name
	RETURNING id
	`

	var id int64
	if err := t.tx.QueryRowContext(ctx, query, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("ensuring state %q: %w", name, err)
	}
	return id, nil
}

func (t *tx) FindRegion(ctx context.Context, name string) (*store.Region, error) {
	var region store.Region
	var updatedAt string
	err := t.tx.QueryRowContext(ctx,
		"SELECT id, name, updated_at FROM regions WHERE name_normalized = ?",
		normalize(name),
	).Scan(&region.ID, &region.Name, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding region %q: %w", name, err)
	}
	if region.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &region, nil
}

func (t *tx) FindFaction(ctx context.Context, name string) (*store.Faction, error) {
	var faction store.Faction
	err := t.tx.QueryRowContext(ctx,
		"SELECT id, name FROM factions WHERE name_normalized = ?",
		normalize(name),
	).Scan(&faction.ID, &faction.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding faction %q: %w", name, err)
	}
	return &faction, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// inClause returns "(?, ?, ...)" and the matching arguments.
func inClause(ids []int64) (string, []any) {
	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	return "(" + strings.Join(marks, ", ") + ")", args
}

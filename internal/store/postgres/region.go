package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"factionwatch/internal/store"
)

// UpsertRegion takes the row lock on the region, so concurrent
// reconciliations of one region run one after another.
func (t *tx) UpsertRegion(ctx context.Context, name string, updatedAt time.Time) (int64, error) {
	query := `
INSERT INTO regions (name, name_normalized, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (name_normalized) DO UPDATE SET
    name = EXCLUDED.name,
    updated_at = EXCLUDED.updated_at
RETURNING id
`

	var id int64
	if err := t.tx.QueryRow(ctx, query, name, normalize(name), updatedAt.UTC()).Scan(&id); err != nil {
		return 0, fmt.Errorf("upserting region %q: %w", name, err)
	}
	return id, nil
}

// EnsureFaction and EnsureState leave existing rows unlocked. Only a row this
// transaction inserts is held until commit, and callers insert in name order.
func (t *tx) EnsureFaction(ctx context.Context, name string) (int64, error) {
	id, err := t.ensure(ctx,
		"INSERT INTO factions (name, name_normalized) VALUES ($1, $2) ON CONFLICT (name_normalized) DO NOTHING RETURNING id",
		"SELECT id FROM factions WHERE name_normalized = $1",
		[]any{name, normalize(name)}, normalize(name),
	)
	if err != nil {
		return 0, fmt.Errorf("ensuring faction %q: %w", name, err)
	}
	return id, nil
}

func (t *tx) EnsureState(ctx context.Context, name string) (int64, error) {
	id, err := t.ensure(ctx,
		"INSERT INTO states (name) VALUES ($1) ON CONFLICT (name) DO NOTHING RETURNING id",
		"SELECT id FROM states WHERE name = $1",
		[]any{name}, name,
	)
	if err != nil {
		return 0, fmt.Errorf("ensuring state %q: %w", name, err)
	}
	return id, nil
}

// ensure inserts a lookup row or, when it already exists, reads its id in a
// separate statement so a row committed after the insert's snapshot is seen.
func (t *tx) ensure(ctx context.Context, insert, lookup string, args []any, key string) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, insert, args...).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	if err := t.tx.QueryRow(ctx, lookup, key).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (t *tx) FindRegion(ctx context.Context, name string) (*store.Region, error) {
	var region store.Region
	err := t.tx.QueryRow(ctx,
		"SELECT id, name, updated_at FROM regions WHERE name_normalized = $1",
		normalize(name),
	).Scan(&region.ID, &region.Name, &region.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding region %q: %w", name, err)
	}
	region.UpdatedAt = region.UpdatedAt.UTC()
	return &region, nil
}

func (t *tx) FindFaction(ctx context.Context, name string) (*store.Faction, error) {
	var faction store.Faction
	err := t.tx.QueryRow(ctx,
		"SELECT id, name FROM factions WHERE name_normalized = $1",
		normalize(name),
	).Scan(&faction.ID, &faction.Name)
	if errors.Is(err, pgx.ErrNoRows) {
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

// keep returns ids as a non-nil slice so it binds as an empty array.
func keep(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}

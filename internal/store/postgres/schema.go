package postgres

import (
	"context"
	"fmt"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	// Executed as one multi-statement call, which PostgreSQL runs inside an
	// implicit transaction.
	ddl := `
CREATE TABLE IF NOT EXISTS regions (
    id              BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    name            TEXT NOT NULL,
    name_normalized TEXT NOT NULL,
    updated_at      TIMESTAMPTZ NOT NULL,
    CONSTRAINT uq_region_name UNIQUE (name_normalized)
);

CREATE TABLE IF NOT EXISTS factions (
    id              BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    name            TEXT NOT NULL,
    name_normalized TEXT NOT NULL,
    CONSTRAINT uq_faction_name UNIQUE (name_normalized)
);

CREATE TABLE IF NOT EXISTS states (
    id   BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    name TEXT NOT NULL,
    CONSTRAINT uq_state_name UNIQUE (name)
);

CREATE TABLE IF NOT EXISTS presences (
    id         BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    region_id  BIGINT NOT NULL REFERENCES regions(id) ON DELETE CASCADE,
    faction_id BIGINT NOT NULL REFERENCES factions(id) ON DELETE CASCADE,
    influence  DOUBLE PRECISION NOT NULL DEFAULT 0,
    security   TEXT NOT NULL DEFAULT '',
    CONSTRAINT uq_presence UNIQUE (region_id, faction_id)
);

CREATE TABLE IF NOT EXISTS presence_states (
    presence_id BIGINT NOT NULL REFERENCES presences(id) ON DELETE CASCADE,
    state_id    BIGINT NOT NULL REFERENCES states(id) ON DELETE CASCADE,
    PRIMARY KEY (presence_id, state_id)
);

CREATE TABLE IF NOT EXISTS conflicts (
    id           BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    region_id    BIGINT NOT NULL REFERENCES regions(id) ON DELETE CASCADE,
    faction_a_id BIGINT NOT NULL REFERENCES factions(id) ON DELETE CASCADE,
    faction_b_id BIGINT NOT NULL REFERENCES factions(id) ON DELETE CASCADE,
    won_days_a   INTEGER NOT NULL DEFAULT 0,
    won_days_b   INTEGER NOT NULL DEFAULT 0,
    status       TEXT NOT NULL DEFAULT '',
    war_type     TEXT NOT NULL DEFAULT '',
    updated_at   TIMESTAMPTZ NOT NULL,
    CONSTRAINT uq_conflict UNIQUE (region_id, faction_a_id, faction_b_id)
);

CREATE TABLE IF NOT EXISTS tracked_factions (
    guild_id   TEXT NOT NULL,
    faction_id BIGINT NOT NULL REFERENCES factions(id) ON DELETE CASCADE,
    PRIMARY KEY (guild_id, faction_id)
);

CREATE TABLE IF NOT EXISTS goal_overrides (
    guild_id    TEXT NOT NULL,
    presence_id BIGINT NOT NULL REFERENCES presences(id) ON DELETE CASCADE,
    goal        TEXT NOT NULL,
    PRIMARY KEY (guild_id, presence_id)
);

CREATE INDEX IF NOT EXISTS idx_presences_region ON presences (region_id);
CREATE INDEX IF NOT EXISTS idx_presences_faction ON presences (faction_id);
CREATE INDEX IF NOT EXISTS idx_presence_states_state ON presence_states (state_id);
CREATE INDEX IF NOT EXISTS idx_conflicts_region ON conflicts (region_id);
CREATE INDEX IF NOT EXISTS idx_conflicts_faction_a ON conflicts (faction_a_id);
CREATE INDEX IF NOT EXISTS idx_conflicts_faction_b ON conflicts (faction_b_id);
CREATE INDEX IF NOT EXISTS idx_goal_overrides_presence ON goal_overrides (presence_id);
CREATE INDEX IF NOT EXISTS idx_regions_updated ON regions (updated_at);
`
	if _, err := c.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}

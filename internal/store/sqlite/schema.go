package sqlite

import (
	"context"
	"fmt"
	"strings"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS regions (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		name            TEXT NOT NULL,
		name_normalized TEXT NOT NULL,
		updated_at      TEXT NOT NULL,
		CONSTRAINT uq_region_name UNIQUE (name_normalized)
	);

	CREATE TABLE IF NOT EXISTS factions (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		name            TEXT NOT NULL,
		name_normalized TEXT NOT NULL,
		CONSTRAINT uq_faction_name UNIQUE (name_normalized)
	);

	CREATE TABLE IF NOT EXISTS states (
		id   INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		CONSTRAINT uq_state_name UNIQUE (name)
	);

	CREATE TABLE IF NOT EXISTS presences (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		region_id  INTEGER NOT NULL REFERENCES regions(id) ON DELETE CASCADE,
		faction_id INTEGER NOT NULL REFERENCES factions(id) ON DELETE CASCADE,
		influence  REAL NOT NULL DEFAULT 0,
		security   TEXT NOT NULL DEFAULT '',
		CONSTRAINT uq_presence UNIQUE (region_id, faction_id)
	);

	CREATE TABLE IF NOT EXISTS presence_states (
		presence_id INTEGER NOT NULL REFERENCES presences(id) ON DELETE CASCADE,
		state_id    INTEGER NOT NULL REFERENCES states(id) ON DELETE CASCADE,
		PRIMARY KEY (presence_id, state_id)
	);

	CREATE TABLE IF NOT EXISTS conflicts (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		region_id    INTEGER NOT NULL REFERENCES regions(id) ON DELETE CASCADE,
		faction_a_id INTEGER NOT NULL REFERENCES factions(id) ON DELETE CASCADE,
		faction_b_id INTEGER NOT NULL REFERENCES factions(id) ON DELETE CASCADE,
		won_days_a   INTEGER NOT NULL DEFAULT 0,
		won_days_b   INTEGER NOT NULL DEFAULT 0,
		status       TEXT NOT NULL DEFAULT '',
		war_type     TEXT NOT NULL DEFAULT '',
		updated_at   TEXT NOT NULL,
		CONSTRAINT uq_conflict UNIQUE (region_id, faction_a_id, faction_b_id)
	);

	CREATE TABLE IF NOT EXISTS tracked_factions (
		guild_id   TEXT NOT NULL,
		faction_id INTEGER NOT NULL REFERENCES factions(id) ON DELETE CASCADE,
		PRIMARY KEY (guild_id, faction_id)
	);

	CREATE TABLE IF NOT EXISTS goal_overrides (
		guild_id    TEXT NOT NULL,
		presence_id INTEGER NOT NULL REFERENCES presences(id) ON DELETE CASCADE,
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
	`

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(ddl) {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing DDL: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema transaction: %w", err)
	}

	return nil
}

func splitStatements(ddl string) []string {
	var statements []string
	var current strings.Builder

	for _, line := range strings.Split(ddl, "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")

		if strings.HasSuffix(stripped, ";") {
			statements = append(statements, current.String())
			current.Reset()
		}
	}

	if current.Len() > 0 {
		statements = append(statements, current.String())
	}

	return statements
}

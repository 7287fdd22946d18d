package ingest

import (
	"context"
	"sort"
	"strings"

	"factionwatch/internal/store"
)

// Every reconciler creates lookup rows in the same order: factions by
// normalized name, then states by name. Two transactions inserting the same
// new names therefore wait on each other in one direction only.

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ensureFactions returns faction ids keyed by nameKey.
func ensureFactions(ctx context.Context, tx store.Tx, names []string) (map[string]int64, error) {
	spelling := make(map[string]string, len(names))
	for _, name := range names {
		key := nameKey(name)
		if _, ok := spelling[key]; !ok {
			spelling[key] = name
		}
	}

	ids := make(map[string]int64, len(spelling))
	for _, key := range sortedKeys(spelling) {
		id, err := tx.EnsureFaction(ctx, spelling[key])
		if err != nil {
			return nil, err
		}
		ids[key] = id
	}
	return ids, nil
}

// ensureStates returns state ids keyed by state name.
func ensureStates(ctx context.Context, tx store.Tx, names []string) (map[string]int64, error) {
	unique := make(map[string]string, len(names))
	for _, name := range names {
		unique[name] = name
	}

	ids := make(map[string]int64, len(unique))
	for _, name := range sortedKeys(unique) {
		id, err := tx.EnsureState(ctx, name)
		if err != nil {
			return nil, err
		}
		ids[name] = id
	}
	return ids, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrStoreFailure wraps every error raised while a unit of work runs or
	// commits. Nothing written inside the failed unit of work is visible.
	ErrStoreFailure = errors.New("store failure")
	ErrNotFound     = errors.New("not found")
)

// Failure classifies err as a store failure. Errors that already carry a
// store classification are returned unchanged.
func Failure(err error) error {
	if err == nil || errors.Is(err, ErrStoreFailure) || errors.Is(err, ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreFailure, err)
}

type TxOptions struct {
	ReadOnly bool
}

type Store interface {
	Close(ctx context.Context) error
	EnsureSchema(ctx context.Context) error

	// WithTx runs fn inside one transaction. The transaction commits when fn
	// returns nil and rolls back otherwise, including on panic.
	WithTx(ctx context.Context, opts TxOptions, fn func(tx Tx) error) error
}

type Tx interface {
	Writer
	Reader
}

type Writer interface {
	UpsertRegion(ctx context.Context, name string, updatedAt time.Time) (int64, error)
	EnsureFaction(ctx context.Context, name string) (int64, error)
	EnsureState(ctx context.Context, name string) (int64, error)
	UpsertPresence(ctx context.Context, regionID, factionID int64, influence float64, security string) (int64, error)
	ReplacePresenceStates(ctx context.Context, presenceID int64, stateIDs []int64) error
	PrunePresences(ctx context.Context, regionID int64, keepFactionIDs []int64) (int64, error)

	UpsertConflict(ctx context.Context, c ConflictInput) (int64, error)
	PruneConflicts(ctx context.Context, regionID int64, keepConflictIDs []int64) (int64, error)

	TrackFaction(ctx context.Context, guildID string, factionID int64) error
	UntrackFaction(ctx context.Context, guildID string, factionID int64) (bool, error)
	SetGoal(ctx context.Context, guildID string, presenceID int64, goal string) error
	ClearGoal(ctx context.Context, guildID string, presenceID int64) (bool, error)
}

type Reader interface {
	FindRegion(ctx context.Context, name string) (*Region, error)
	FindFaction(ctx context.Context, name string) (*Faction, error)
	FindPresence(ctx context.Context, regionName, factionName string) (*Presence, error)
	ListPresences(ctx context.Context, regionName string) ([]Presence, error)
	ListAssignments(ctx context.Context, guildID, factionName string) ([]Assignment, error)
	ListConflicts(ctx context.Context, factionName string) ([]Conflict, error)
	ListTrackedFactions(ctx context.Context) ([]string, error)
	ListGoalOverrides(ctx context.Context) ([]GoalOverride, error)
	ListStaleRegions(ctx context.Context, before time.Time) ([]StaleRegion, error)
}

//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factionwatch/internal/ingest"
	"factionwatch/internal/parser"
	"factionwatch/internal/store"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	dsn := os.Getenv("FACTIONWATCH_TEST_DSN")
	if dsn == "" {
		t.Skip("FACTIONWATCH_TEST_DSN not set")
	}

	ctx := context.Background()
	client, err := New(ctx, dsn)
	require.NoError(t, err, "connecting to test postgres")
	require.NoError(t, client.EnsureSchema(ctx))

	truncate := func() {
		_, err := client.pool.Exec(ctx, `
TRUNCATE goal_overrides, tracked_factions, conflicts, presence_states, presences, states, factions, regions
RESTART IDENTITY CASCADE`)
		require.NoError(t, err)
	}
	truncate()
	t.Cleanup(func() {
		truncate()
		_ = client.Close(ctx)
	})
	return client
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	client := testClient(t)
	require.NoError(t, client.EnsureSchema(context.Background()))
}

func TestReconcileRoundTrip(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	now := time.Date(3310, 5, 1, 12, 0, 0, 0, time.UTC)

	err := client.WithTx(ctx, store.TxOptions{}, func(tx store.Tx) error {
		regionID, err := tx.UpsertRegion(ctx, "Sol", now)
		if err != nil {
			return err
		}
		var keepers []int64
		for _, name := range []string{"A", "B"} {
			factionID, err := tx.EnsureFaction(ctx, name)
			if err != nil {
				return err
			}
			presenceID, err := tx.UpsertPresence(ctx, regionID, factionID, 0.5, "$SYSTEM_SECURITY_high;")
			if err != nil {
				return err
			}
			stateID, err := tx.EnsureState(ctx, "Boom")
			if err != nil {
				return err
			}
			if err := tx.ReplacePresenceStates(ctx, presenceID, []int64{stateID}); err != nil {
				return err
			}
			if name == "A" {
				keepers = append(keepers, factionID)
			}
		}
		removed, err := tx.PrunePresences(ctx, regionID, keepers)
		assert.Equal(t, int64(1), removed)
		return err
	})
	require.NoError(t, err)

	err = client.WithTx(ctx, store.TxOptions{ReadOnly: true}, func(tx store.Tx) error {
		presences, err := tx.ListPresences(ctx, "sol")
		require.NoError(t, err)
		require.Len(t, presences, 1)
		assert.Equal(t, "A", presences[0].Faction)
		assert.Equal(t, []string{"Boom"}, presences[0].States)
		assert.True(t, presences[0].UpdatedAt.Equal(now))
		return nil
	})
	require.NoError(t, err)
}

func TestWithTx_RollsBack(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := client.WithTx(ctx, store.TxOptions{}, func(tx store.Tx) error {
		if _, err := tx.UpsertRegion(ctx, "Sol", time.Now()); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, store.ErrStoreFailure)
	assert.ErrorIs(t, err, boom)

	err = client.WithTx(ctx, store.TxOptions{ReadOnly: true}, func(tx store.Tx) error {
		region, err := tx.FindRegion(ctx, "Sol")
		require.NoError(t, err)
		assert.Nil(t, region)
		return nil
	})
	require.NoError(t, err)
}

func TestAssignments(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()

	err := client.WithTx(ctx, store.TxOptions{}, func(tx store.Tx) error {
		regionID, err := tx.UpsertRegion(ctx, "Lave", time.Now())
		if err != nil {
			return err
		}
		factionID, err := tx.EnsureFaction(ctx, "Alpha")
		if err != nil {
			return err
		}
		presenceID, err := tx.UpsertPresence(ctx, regionID, factionID, 0.3, "")
		if err != nil {
			return err
		}
		if err := tx.TrackFaction(ctx, "guild-1", factionID); err != nil {
			return err
		}
		return tx.SetGoal(ctx, "guild-1", presenceID, "retreat")
	})
	require.NoError(t, err)

	err = client.WithTx(ctx, store.TxOptions{ReadOnly: true}, func(tx store.Tx) error {
		assignments, err := tx.ListAssignments(ctx, "guild-1", "ALPHA")
		require.NoError(t, err)
		require.Len(t, assignments, 1)
		require.NotNil(t, assignments[0].Goal)
		assert.Equal(t, "retreat", *assignments[0].Goal)
		assert.Equal(t, []string{}, assignments[0].Presence.States)
		return nil
	})
	require.NoError(t, err)
}

func TestReconcile_OverlappingRegionsWithReversedFactionOrder(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	now := time.Date(3310, 5, 1, 12, 0, 0, 0, time.UTC)
	presences := ingest.NewReconciler(client, ingest.Options{})
	conflicts := ingest.NewConflictReconciler(client, ingest.Options{})

	const rounds = 25
	var wg sync.WaitGroup
	errs := make(chan error, 4*rounds)
	for i := 0; i < rounds; i++ {
		// Fresh names each round so both transactions insert the same new rows.
		first := fmt.Sprintf("Faction %02d A", i)
		second := fmt.Sprintf("Faction %02d B", i)
		state := fmt.Sprintf("State %02d", i)

		for _, tc := range []struct {
			region string
			order  []string
		}{
			{region: "Alpha", order: []string{first, second}},
			{region: "Beta", order: []string{second, first}},
		} {
			facts := &parser.FactSet{Timestamp: now, Region: tc.region}
			for _, name := range tc.order {
				facts.Factions = append(facts.Factions, parser.FactionFact{Name: name, Influence: 0.5, States: []string{state}})
			}
			facts.Conflicts = []parser.ConflictFact{{
				WarType: "war",
				A:       parser.ConflictSide{Name: tc.order[0]},
				B:       parser.ConflictSide{Name: tc.order[1]},
			}}

			wg.Add(2)
			go func() {
				defer wg.Done()
				errs <- presences.Process(ctx, facts)
			}()
			go func() {
				defer wg.Done()
				errs <- conflicts.Process(ctx, facts)
			}()
		}
		wg.Wait()
	}
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	err := client.WithTx(ctx, store.TxOptions{ReadOnly: true}, func(tx store.Tx) error {
		for _, region := range []string{"Alpha", "Beta"} {
			list, err := tx.ListPresences(ctx, region)
			if err != nil {
				return err
			}
			assert.Len(t, list, 2, region)
		}
		return nil
	})
	require.NoError(t, err)
}

package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"factionwatch/internal/parser"
	"factionwatch/internal/store"
)

// ConflictReconciler replaces the conflicts stored for a region with the
// ones listed by the event.
type ConflictReconciler struct {
	store    store.Store
	breaker  *Breaker
	logger   *zap.Logger
	observer Observer
}

func NewConflictReconciler(s store.Store, opts Options) *ConflictReconciler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictReconciler{
		store:    s,
		breaker:  opts.Breaker,
		logger:   logger.Named("conflicts"),
		observer: opts.Observer,
	}
}

func (r *ConflictReconciler) Name() string {
	return "conflicts"
}

func (r *ConflictReconciler) Process(ctx context.Context, facts *parser.FactSet) error {
	if !facts.Relevant() {
		return nil
	}
	_, err := r.Reconcile(ctx, facts)
	return err
}

func (r *ConflictReconciler) Reconcile(ctx context.Context, facts *parser.FactSet) (*Result, error) {
	if !facts.Relevant() {
		return &Result{}, nil
	}

	start := time.Now()
	var result *Result
	err := r.breaker.Execute(func() error {
		result = &Result{Region: facts.Region}
		return r.store.WithTx(ctx, store.TxOptions{}, func(tx store.Tx) error {
			return reconcileConflicts(ctx, tx, facts, result)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("reconciling conflicts in %s: %w", facts.Region, store.Failure(err))
	}

	elapsed := time.Since(start)
	if r.observer != nil {
		r.observer.Reconciled(r.Name(), elapsed, result.Removed)
	}
	r.logger.Debug("reconciled conflicts",
		zap.String("region", result.Region),
		zap.Int("upserted", result.Upserted),
		zap.Int64("removed", result.Removed),
	)
	return result, nil
}

func reconcileConflicts(ctx context.Context, tx store.Tx, facts *parser.FactSet, result *Result) error {
	regionID, err := tx.UpsertRegion(ctx, facts.Region, facts.Timestamp)
	if err != nil {
		return err
	}

	names := make([]string, 0, 2*len(facts.Conflicts))
	for _, fact := range facts.Conflicts {
		names = append(names, fact.A.Name, fact.B.Name)
	}
	factionIDs, err := ensureFactions(ctx, tx, names)
	if err != nil {
		return err
	}

	keep := make([]int64, 0, len(facts.Conflicts))
	for _, fact := range facts.Conflicts {
		a, b := orderSides(fact.A, fact.B)
		aID := factionIDs[nameKey(a.Name)]
		bID := factionIDs[nameKey(b.Name)]

		conflictID, err := tx.UpsertConflict(ctx, store.ConflictInput{
			RegionID:   regionID,
			FactionAID: aID,
			FactionBID: bID,
			WonDaysA:   a.WonDays,
			WonDaysB:   b.WonDays,
			Status:     fact.Status,
			WarType:    fact.WarType,
			UpdatedAt:  facts.Timestamp,
		})
		if err != nil {
			return err
		}
		keep = append(keep, conflictID)
		result.Upserted++
	}

	removed, err := tx.PruneConflicts(ctx, regionID, keep)
	if err != nil {
		return err
	}
	result.Removed = removed
	return nil
}

// orderSides puts the sides in name order so a pair maps to one row whichever
// way round the event lists it.
func orderSides(a, b parser.ConflictSide) (parser.ConflictSide, parser.ConflictSide) {
	if nameKey(b.Name) < nameKey(a.Name) {
		return b, a
	}
	return a, b
}

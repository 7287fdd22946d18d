package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"factionwatch/internal/parser"
	"factionwatch/internal/store"
)

// Observer receives the outcome of every committed reconciliation.
type Observer interface {
	Reconciled(processor string, elapsed time.Duration, pruned int64)
}

type Options struct {
	Breaker  *Breaker
	Logger   *zap.Logger
	Observer Observer
}

type Result struct {
	Region   string
	Upserted int
	Removed  int64
}

// Reconciler applies influence fact sets to the store. Each call runs in its
// own transaction.
type Reconciler struct {
	store    store.Store
	breaker  *Breaker
	logger   *zap.Logger
	observer Observer
}

func NewReconciler(s store.Store, opts Options) *Reconciler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		store:    s,
		breaker:  opts.Breaker,
		logger:   logger.Named("reconciler"),
		observer: opts.Observer,
	}
}

func (r *Reconciler) Name() string {
	return "presences"
}

// Process reconciles relevant fact sets and ignores the rest.
func (r *Reconciler) Process(ctx context.Context, facts *parser.FactSet) error {
	if !facts.Relevant() {
		return nil
	}
	_, err := r.Reconcile(ctx, facts)
	return err
}

// Reconcile makes the store reflect facts for one region: the region's
// timestamp, one presence per listed faction with its state set replaced,
// and no presence for factions the event no longer lists.
func (r *Reconciler) Reconcile(ctx context.Context, facts *parser.FactSet) (*Result, error) {
	if !facts.Relevant() {
		return &Result{}, nil
	}

	start := time.Now()
	var result *Result
	err := r.breaker.Execute(func() error {
		result = &Result{Region: facts.Region}
		return r.store.WithTx(ctx, store.TxOptions{}, func(tx store.Tx) error {
			return reconcilePresences(ctx, tx, facts, result)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("reconciling %s: %w", facts.Region, store.Failure(err))
	}

	elapsed := time.Since(start)
	if r.observer != nil {
		r.observer.Reconciled(r.Name(), elapsed, result.Removed)
	}
	r.logger.Debug("reconciled region",
		zap.String("region", result.Region),
		zap.Int("upserted", result.Upserted),
		zap.Int64("removed", result.Removed),
		zap.Duration("elapsed", elapsed),
	)
	return result, nil
}

func reconcilePresences(ctx context.Context, tx store.Tx, facts *parser.FactSet, result *Result) error {
	regionID, err := tx.UpsertRegion(ctx, facts.Region, facts.Timestamp)
	if err != nil {
		return err
	}

	factionNames := make([]string, 0, len(facts.Factions))
	var stateNames []string
	for _, fact := range facts.Factions {
		factionNames = append(factionNames, fact.Name)
		stateNames = append(stateNames, fact.States...)
	}
	factionIDs, err := ensureFactions(ctx, tx, factionNames)
	if err != nil {
		return err
	}
	stateIDsByName, err := ensureStates(ctx, tx, stateNames)
	if err != nil {
		return err
	}

	keep := make([]int64, 0, len(facts.Factions))
	for _, fact := range facts.Factions {
		factionID := factionIDs[nameKey(fact.Name)]
		presenceID, err := tx.UpsertPresence(ctx, regionID, factionID, fact.Influence, facts.Security)
		if err != nil {
			return err
		}

		stateIDs := make([]int64, 0, len(fact.States))
		for _, state := range fact.States {
			stateIDs = append(stateIDs, stateIDsByName[state])
		}
		if err := tx.ReplacePresenceStates(ctx, presenceID, stateIDs); err != nil {
			return err
		}

		keep = append(keep, factionID)
		result.Upserted++
	}

	removed, err := tx.PrunePresences(ctx, regionID, keep)
	if err != nil {
		return err
	}
	result.Removed = removed
	return nil
}

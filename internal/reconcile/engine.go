// Package reconcile folds each run's fresh observations into the
// persisted snapshot, deciding which records are new, which were seen
// again, and which have disappeared.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/0xDTC/0xGodaddy/internal/metrics"
	"github.com/0xDTC/0xGodaddy/internal/record"
	"github.com/0xDTC/0xGodaddy/internal/store"
)

type Engine interface {
	Reconcile(ctx context.Context, fresh []record.Record, availability map[record.Source]bool) (Results, error)
}

type engine struct {
	store   store.Store
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewEngine(store store.Store, metrics *metrics.Metrics) *engine {
	return &engine{
		store:   store,
		metrics: metrics,
		now:     time.Now,
	}
}

// Reconcile merges this run's fresh records with the prior snapshot and
// persists the result.
//
// A record observed this run is active, keeping its first-seen date from
// the prior snapshot when one exists. A prior record not re-observed is
// marked removed only when its provider was fully queried this run; an
// unavailable provider's records are carried forward unchanged, since
// absence of observation there proves nothing.
func (e *engine) Reconcile(ctx context.Context, fresh []record.Record, availability map[record.Source]bool) (Results, error) {
	prior, err := e.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrCorrupt) {
			return Results{}, fmt.Errorf("load snapshot: %w", err)
		}
		slog.Warn("Snapshot unreadable, starting fresh history", "error", err)
		prior = nil
	}

	priorBySig := make(map[string]record.Record, len(prior))
	for _, rec := range prior {
		priorBySig[rec.Signature()] = rec
	}

	today := e.now().Format(record.DateFormat)
	results := Results{}
	seen := make(map[string]bool, len(fresh))

	for _, rec := range fresh {
		sig := rec.Signature()
		if seen[sig] {
			continue
		}
		seen[sig] = true

		rec.Status = record.StatusActive
		prev, existed := priorBySig[sig]
		if existed && prev.DiscoveryDate != "" {
			rec.DiscoveryDate = prev.DiscoveryDate
		} else {
			rec.DiscoveryDate = today
		}
		if !existed {
			results.Added = append(results.Added, rec)
		}
		results.Records = append(results.Records, rec)
	}

	for _, rec := range prior {
		sig := rec.Signature()
		if seen[sig] {
			continue
		}
		seen[sig] = true

		if availability[rec.Source] && rec.Status != record.StatusRemoved {
			rec.Status = record.StatusRemoved
			results.Removed = append(results.Removed, rec)
		}
		results.Records = append(results.Records, rec)
	}

	record.Sort(results.Records)

	if err := e.store.Save(ctx, results.Records); err != nil {
		return results, fmt.Errorf("save snapshot: %w", err)
	}

	active, removed := results.Counts()
	e.metrics.SetRecordsCurrent(string(record.StatusActive), active)
	e.metrics.SetRecordsCurrent(string(record.StatusRemoved), removed)
	slog.Info("Reconciled inventory",
		"fresh", len(fresh),
		"prior", len(prior),
		"added", len(results.Added),
		"disappeared", len(results.Removed),
		"active", active,
		"removed", removed,
	)
	return results, nil
}

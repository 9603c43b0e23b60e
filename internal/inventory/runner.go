// Package inventory drives one full collection pass: probe each provider,
// enumerate its domains and records, then hand everything to the
// reconciliation engine.
package inventory

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/0xDTC/0xGodaddy/internal/metrics"
	"github.com/0xDTC/0xGodaddy/internal/provider"
	"github.com/0xDTC/0xGodaddy/internal/reconcile"
	"github.com/0xDTC/0xGodaddy/internal/record"
)

type Runner struct {
	providers []provider.Provider
	engine    reconcile.Engine
	metrics   *metrics.Metrics

	// Verbose promotes per-domain fetch logging to info level.
	Verbose bool
}

func New(providers []provider.Provider, engine reconcile.Engine, metrics *metrics.Metrics) *Runner {
	return &Runner{
		providers: providers,
		engine:    engine,
		metrics:   metrics,
	}
}

// Outcome bundles what one run produced for the presentation layer.
type Outcome struct {
	RunID        string
	Results      reconcile.Results
	Availability map[record.Source]bool
	Interrupted  bool
}

// Run performs one inventory pass. Providers are processed sequentially;
// an unreachable or abandoned provider only loses its own branch. The
// engine always runs, even after cancellation, so whatever was gathered
// is reconciled and persisted.
func (r *Runner) Run(ctx context.Context) (Outcome, error) {
	runID := uuid.NewString()
	log := slog.With("run", runID)
	log.Info("Starting inventory run", "providers", len(r.providers))
	start := time.Now()
	defer func() {
		r.metrics.SetRunDuration(time.Since(start))
	}()

	availability := make(map[record.Source]bool, len(r.providers))
	var fresh []record.Record

	for _, p := range r.providers {
		name := p.Name()
		availability[name] = false

		if ctx.Err() != nil {
			log.Warn("Skipping provider, run cancelled", "provider", name)
			continue
		}
		if err := p.Check(ctx); err != nil {
			log.Error("Provider unreachable, skipping", "provider", name, "error", err)
			continue
		}

		collected, complete := r.collect(ctx, log, p)
		availability[name] = complete
		fresh = append(fresh, collected...)
		r.metrics.SetRecordsCollected(string(name), len(collected))
	}

	results, err := r.engine.Reconcile(ctx, fresh, availability)
	outcome := Outcome{
		RunID:        runID,
		Results:      results,
		Availability: availability,
		Interrupted:  ctx.Err() != nil,
	}
	if err != nil {
		r.metrics.IncRun(false)
		return outcome, err
	}
	r.metrics.IncRun(true)
	log.Info("Inventory run complete",
		"records", len(results.Records),
		"added", len(results.Added),
		"disappeared", len(results.Removed),
		"interrupted", outcome.Interrupted,
		"elapsed", time.Since(start),
	)
	return outcome, nil
}

// collect enumerates one provider fully. complete is false when the
// enumeration was abandoned mid-way (quota exhaustion or cancellation);
// such a provider's absence of observations proves nothing, so it must
// not feed removal inference.
func (r *Runner) collect(ctx context.Context, log *slog.Logger, p provider.Provider) (records []record.Record, complete bool) {
	start := time.Now()
	name := p.Name()

	domains, err := p.ListDomains(ctx)
	if err != nil {
		log.Error("Domain enumeration abandoned", "provider", name, "error", err)
		return nil, false
	}

	domainLevel := slog.LevelDebug
	if r.Verbose {
		domainLevel = slog.LevelInfo
	}

	for _, domain := range domains {
		recs, err := p.ListRecords(ctx, domain)
		records = append(records, recs...)
		if err != nil {
			log.Error("Record enumeration abandoned",
				"provider", name,
				"domain", domain.Name,
				"collected", len(records),
				"error", err,
			)
			return records, false
		}
		log.Log(ctx, domainLevel, "Fetched domain records",
			"provider", name,
			"domain", domain.Name,
			"records", len(recs),
		)
	}

	log.Info("Provider enumeration complete",
		"provider", name,
		"domains", len(domains),
		"records", len(records),
		"duration", time.Since(start),
	)
	return records, true
}

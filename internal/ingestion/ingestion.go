package ingestion

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/tickerplot/nsepulse/internal/domain/models"
	"github.com/tickerplot/nsepulse/internal/fetch"
	"github.com/tickerplot/nsepulse/internal/ledger"
	"github.com/tickerplot/nsepulse/internal/logger"
	"github.com/tickerplot/nsepulse/internal/merge"
	"github.com/tickerplot/nsepulse/internal/rename"
	"github.com/tickerplot/nsepulse/internal/storage"
)

// Summary is the per-run outcome: what the date loop did and what the rename
// pass applied afterwards.
type Summary struct {
	Ingested     int // dates fetched, merged and stored
	Skipped      int // dates the ledger already closed
	NotFound     int // dates classified NOT_FOUND this run
	Failed       int // dates classified TRANSIENT this run
	Records      int // daily records written
	Inconsistent int // delivery rows without a price row
	ParseErrors  int // rows dropped while parsing either artifact
	RenameHops   int // symbol rewrites applied by the rename pass
}

// Orchestrator drives the per-date pipeline: ledger gate → pace → fetch →
// merge → replace day → ledger record, strictly sequentially, then one rename
// propagation for the whole run.
//
// Dates are never retried within a run; a failed date simply stays open in
// the ledger for the next invocation. The only fatal mid-run conditions are
// context cancellation and storage failures (a half-applied day must never
// be committed around).
type Orchestrator struct {
	fetcher fetch.Fetcher
	ledger  ledger.Ledger
	store   storage.HistoryRepository
	renames fetch.RenameSource

	// pace sleeps a randomized politeness delay before each network attempt;
	// injectable for tests.
	pace func(ctx context.Context) error
}

// NewOrchestrator wires the pipeline. paceMin/paceMax bound the randomized
// inter-date delay; paceMax <= 0 disables pacing.
func NewOrchestrator(f fetch.Fetcher, l ledger.Ledger, s storage.HistoryRepository, r fetch.RenameSource, paceMin, paceMax time.Duration) *Orchestrator {
	return &Orchestrator{
		fetcher: f,
		ledger:  l,
		store:   s,
		renames: r,
		pace:    newPacer(paceMin, paceMax),
	}
}

func newPacer(min, max time.Duration) func(ctx context.Context) error {
	if max <= 0 || max < min {
		return func(context.Context) error { return nil }
	}
	return func(ctx context.Context) error {
		d := min
		if span := max - min; span > 0 {
			d += time.Duration(rand.Int63n(int64(span)))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
			return nil
		}
	}
}

// Run ingests every date in [from, to] and then propagates renames once.
//
// The returned Summary is valid even when err is non-nil: completed dates
// are durably committed, and the run can be stopped and resumed between
// dates at no data-loss cost.
func (o *Orchestrator) Run(ctx context.Context, from, to time.Time) (Summary, error) {
	var sum Summary

	dates, err := DateRange(from, to)
	if err != nil {
		return sum, err
	}

	logger.L().Info().
		Str("from", dates[0].Format(DateLayout)).
		Str("to", dates[len(dates)-1].Format(DateLayout)).
		Int("days", len(dates)).
		Msg("ingestion start")

	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if err := o.ingestDate(ctx, date, &sum); err != nil {
			return sum, err
		}
	}

	logger.L().Info().
		Int("ingested", sum.Ingested).
		Int("skipped", sum.Skipped).
		Int("not_found", sum.NotFound).
		Int("failed", sum.Failed).
		Int("records", sum.Records).
		Msg("date range done")

	if err := o.propagateRenames(ctx, &sum); err != nil {
		return sum, err
	}
	return sum, nil
}

// ingestDate runs the per-date state machine. Fetch failures are recorded
// and isolated; only storage and context errors bubble up.
func (o *Orchestrator) ingestDate(ctx context.Context, date time.Time, sum *Summary) error {
	day := date.Format(DateLayout)

	complete, err := o.ledger.IsComplete(date)
	if err != nil {
		return fmt.Errorf("ledger check %s: %w", day, err)
	}
	if complete {
		sum.Skipped++
		logger.L().Debug().Str("date", day).Msg("already complete, skipping")
		return nil
	}

	if err := o.pace(ctx); err != nil {
		return err
	}

	data, err := o.fetcher.Fetch(ctx, date)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var fe *fetch.FetchError
		if !errors.As(err, &fe) {
			// Unclassified fetch failures count as transient.
			fe = &fetch.FetchError{Kind: models.ErrorTransient, Err: err}
		}
		if recErr := o.ledger.Record(date, fe.BhavOK, fe.DelivOK, fe.Kind); recErr != nil {
			return fmt.Errorf("ledger record %s: %w", day, recErr)
		}
		if fe.Kind == models.ErrorNotFound {
			sum.NotFound++
			logger.L().Info().Str("date", day).Msg("no data published (likely non-trading day)")
		} else {
			sum.Failed++
			logger.L().Error().Str("date", day).Err(err).Msg("fetch failed")
		}
		return nil
	}

	records, report := merge.Merge(date, data.PriceRows, data.DelivRows)
	sum.Inconsistent += report.Inconsistent
	sum.ParseErrors += data.Stats.BhavParseErrors + data.Stats.DelivParseErrors

	if err := o.store.ReplaceDay(date, records); err != nil {
		// Partial commits are forbidden; a storage failure ends the run.
		return fmt.Errorf("replace day %s: %w", day, err)
	}
	if err := o.ledger.Record(date, true, true, models.ErrorNone); err != nil {
		return fmt.Errorf("ledger record %s: %w", day, err)
	}

	sum.Ingested++
	sum.Records += report.Records
	logger.L().Info().
		Str("date", day).
		Int("records", report.Records).
		Int("with_delivery", report.Matched).
		Int("inconsistent", report.Inconsistent).
		Msg("date ingested")
	return nil
}

func (o *Orchestrator) propagateRenames(ctx context.Context, sum *Summary) error {
	events, err := o.renames.RenameEvents(ctx)
	if err != nil {
		return fmt.Errorf("fetch rename events: %w", err)
	}

	hops, err := rename.NewPropagator(o.store).Apply(events)
	sum.RenameHops = hops
	if errors.Is(err, rename.ErrNoEvents) {
		logger.L().Info().Msg("no rename events to propagate")
		return err
	}
	if err != nil {
		return err
	}
	logger.L().Info().Int("hops", hops).Msg("rename propagation done")
	return nil
}

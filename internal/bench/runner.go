// Package bench drives the timed store/verify/load loop against a resolved
// run handle, coordinating the phases of the whole group through the
// communicator's collective operations.
package bench

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/perfworks/evbench/internal/comm"
	"github.com/perfworks/evbench/internal/config"
	"github.com/perfworks/evbench/internal/product"
	"github.com/perfworks/evbench/internal/store"
	"github.com/perfworks/evbench/pkg/logging"
)

// Runner executes the benchmark on one rank.
type Runner struct {
	cfg  *config.Config
	comm comm.Communicator
	ds   store.DataStore
	log  *slog.Logger
	rng  *rand.Rand
	rep  *Reporter
}

// New assembles a runner. rng is the rank-seeded generator driving the
// randomized inter-operation wait.
func New(cfg *config.Config, c comm.Communicator, ds store.DataStore, log *slog.Logger, rng *rand.Rand) *Runner {
	return &Runner{
		cfg:  cfg,
		comm: c,
		ds:   ds,
		log:  log,
		rng:  rng,
		rep:  NewReporter(log, cfg.DisableStats),
	}
}

// Run performs the full benchmark: resolve the shared run, store every
// synthetic product, verify them back, report. Collective barriers separate
// the phases, so a configuration with zero products still participates in
// every barrier and completes cleanly.
func (r *Runner) Run(ctx context.Context) error {
	products := product.Generate(r.cfg.ProductSizes)

	run, err := r.resolveRun(ctx)
	if err != nil {
		return err
	}
	subRun, err := run.CreateSubRun(ctx, uint64(r.comm.Rank()))
	if err != nil {
		return r.fatal(ctx, fmt.Errorf("create sub-run %d: %w", r.comm.Rank(), err))
	}

	// The coordinator times the whole benchmarked region, from just after
	// resource resolution to just after the final barrier.
	var start time.Time
	if r.comm.Rank() == 0 {
		start = r.comm.WallClock()
	}

	if err := r.comm.Barrier(ctx); err != nil {
		return err
	}

	storeTimings, err := r.storePhase(ctx, subRun, products)
	if err != nil {
		return err
	}

	// No rank reads before every rank has finished writing.
	if err := r.comm.Barrier(ctx); err != nil {
		return err
	}

	loadTimings, err := r.loadPhase(ctx, subRun, products)
	if err != nil {
		return err
	}

	// The coordinator must not shut the store down while others still read.
	if err := r.comm.Barrier(ctx); err != nil {
		return err
	}

	r.rep.Summary("storage", Summarize(storeTimings.raw))
	r.rep.Summary("serialization", Summarize(storeTimings.codec))
	r.rep.Summary("loading", Summarize(loadTimings.raw))
	r.rep.Summary("deserialization", Summarize(loadTimings.codec))

	if r.comm.Rank() == 0 {
		r.rep.Completion(r.comm.WallClock().Sub(start))
		if err := r.ds.Shutdown(ctx); err != nil {
			r.log.Warn("store shutdown failed", "error", err)
		}
	}
	return nil
}

// resolveRun establishes the shared dataset/run exactly once, on rank 0, and
// distributes its descriptor. The broadcast itself is the synchronization
// point: the descriptor is fully populated before rank 0 enters it, and a
// rank-0 failure aborts the group so no rank blocks in the broadcast forever.
func (r *Runner) resolveRun(ctx context.Context) (store.Run, error) {
	var desc store.RunDescriptor
	if r.comm.Rank() == 0 {
		r.log.Log(ctx, logging.LevelTrace, "Creating dataset", "dataset", r.cfg.DataSet)
		ds, err := r.ds.CreateDataSet(ctx, r.cfg.DataSet)
		if err != nil {
			return nil, r.fatal(ctx, fmt.Errorf("create dataset %q: %w", r.cfg.DataSet, err))
		}
		created, err := ds.CreateRun(ctx, 0)
		if err != nil {
			return nil, r.fatal(ctx, fmt.Errorf("create run: %w", err))
		}
		desc, err = created.Descriptor()
		if err != nil {
			return nil, r.fatal(ctx, fmt.Errorf("encode run descriptor: %w", err))
		}
	}

	if err := r.comm.Broadcast(ctx, desc[:], 0); err != nil {
		return nil, err
	}

	// Every rank, the coordinator included, resolves its handle from the
	// descriptor; the contract is symmetric.
	run, err := r.ds.RunFromDescriptor(ctx, desc)
	if err != nil {
		return nil, r.fatal(ctx, fmt.Errorf("resolve run from descriptor: %w", err))
	}
	return run, nil
}

type phaseTimings struct {
	raw   []time.Duration
	codec []time.Duration
}

func (r *Runner) storePhase(ctx context.Context, subRun store.SubRun, products []product.Product) (phaseTimings, error) {
	var t phaseTimings
	for evn, p := range products {
		event, err := subRun.CreateEvent(ctx, uint64(evn))
		if err != nil {
			return t, r.fatal(ctx, fmt.Errorf("create event %d: %w", evn, err))
		}
		var stats store.StoreStats
		if err := event.Store(ctx, r.cfg.Label, p.Data, &stats); err != nil {
			return t, r.fatal(ctx, fmt.Errorf("store event %d: %w", evn, err))
		}
		r.rep.StoreOp(len(p.Data), stats)
		t.raw = append(t.raw, stats.RawStorage)
		t.codec = append(t.codec, stats.Serialization)
		if err := r.wait(ctx); err != nil {
			return t, err
		}
	}
	return t, nil
}

func (r *Runner) loadPhase(ctx context.Context, subRun store.SubRun, products []product.Product) (phaseTimings, error) {
	var t phaseTimings
	for evn, p := range products {
		event, err := subRun.Event(ctx, uint64(evn))
		if err != nil {
			return t, r.fatal(ctx, fmt.Errorf("open event %d: %w", evn, err))
		}
		var stats store.LoadStats
		data, err := event.Load(ctx, r.cfg.Label, &stats)
		if err != nil {
			return t, r.fatal(ctx, fmt.Errorf("load event %d: %w", evn, err))
		}
		// A mismatch is a data-integrity violation, not a benchmark
		// failure; keep measuring the remaining records.
		if !bytes.Equal(data, p.Data) {
			r.rep.Mismatch(uint64(evn))
		}
		r.rep.LoadOp(len(p.Data), stats)
		t.raw = append(t.raw, stats.RawLoading)
		t.codec = append(t.codec, stats.Deserialization)
		if err := r.wait(ctx); err != nil {
			return t, err
		}
	}
	return t, nil
}

// wait sleeps for a uniform draw from the configured wait range between
// consecutive operations. A zero range returns immediately.
func (r *Runner) wait(ctx context.Context) error {
	if r.cfg.WaitMax <= 0 {
		return nil
	}
	secs := r.cfg.WaitMin + r.rng.Float64()*(r.cfg.WaitMax-r.cfg.WaitMin)
	select {
	case <-time.After(time.Duration(secs * float64(time.Second))):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fatal logs the error and escalates to a group abort: a rank that fails
// here would otherwise leave the rest of the group blocked at the next
// collective operation.
func (r *Runner) fatal(ctx context.Context, err error) error {
	r.log.Log(ctx, logging.LevelCritical, err.Error())
	r.comm.Abort(err.Error())
	return err
}

package bench

import (
	"log/slog"
	"time"

	"github.com/perfworks/evbench/internal/store"
)

// Reporter emits the per-operation and aggregate timing lines. When detailed
// statistics are disabled it stays silent except for integrity errors and
// the final completion message.
type Reporter struct {
	log          *slog.Logger
	disableStats bool
}

// NewReporter binds a reporter to the process logger.
func NewReporter(log *slog.Logger, disableStats bool) *Reporter {
	return &Reporter{log: log, disableStats: disableStats}
}

// StoreOp reports the timings of one store call.
func (p *Reporter) StoreOp(size int, stats store.StoreStats) {
	if p.disableStats {
		return
	}
	p.log.Info("store",
		"size", size,
		"storage", stats.RawStorage,
		"serialization", stats.Serialization,
	)
}

// LoadOp reports the timings of one load call.
func (p *Reporter) LoadOp(size int, stats store.LoadStats) {
	if p.disableStats {
		return
	}
	p.log.Info("load",
		"size", size,
		"loading", stats.RawLoading,
		"deserialization", stats.Deserialization,
	)
}

// Mismatch reports a data-integrity violation. Always emitted; this is an
// error, not a statistic.
func (p *Reporter) Mismatch(event uint64) {
	p.log.Error("loaded product does not match stored product", "event", event)
}

// Summary reports the aggregate of one timing category over the run.
func (p *Reporter) Summary(category string, s TimingSummary) {
	if p.disableStats || s.IsZero() {
		return
	}
	p.log.Info("summary",
		"category", category,
		"samples", s.SampleCount,
		"min", s.Min,
		"mean", s.Mean,
		"median", s.Median,
		"max", s.Max,
		"p95", s.P95,
		"p99", s.P99,
		"stddev", s.Stddev,
	)
}

// Completion reports the coordinator's total elapsed time for the
// benchmarked region. Emitted even when statistics are disabled.
func (p *Reporter) Completion(elapsed time.Duration) {
	p.log.Info("benchmark complete", "elapsed", elapsed)
}

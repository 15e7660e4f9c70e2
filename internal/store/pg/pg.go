// Package pg is the PostgreSQL event store backend. Products live in a
// single table keyed by (dataset, run, sub-run, event, label) with bytea
// payloads; datasets are registered in a side table so descriptors resolve
// by ID.
package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/perfworks/evbench/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS evbench_datasets (
	name TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS evbench_runs (
	dataset    TEXT   NOT NULL REFERENCES evbench_datasets(name),
	run_number BIGINT NOT NULL,
	run_id     UUID   NOT NULL,
	PRIMARY KEY (dataset, run_number)
);
CREATE TABLE IF NOT EXISTS evbench_events (
	dataset    TEXT   NOT NULL,
	run_number BIGINT NOT NULL,
	subrun     BIGINT NOT NULL,
	event      BIGINT NOT NULL,
	PRIMARY KEY (dataset, run_number, subrun, event)
);
CREATE TABLE IF NOT EXISTS evbench_products (
	dataset    TEXT   NOT NULL,
	run_number BIGINT NOT NULL,
	subrun     BIGINT NOT NULL,
	event      BIGINT NOT NULL,
	label      TEXT   NOT NULL,
	payload    BYTEA  NOT NULL,
	PRIMARY KEY (dataset, run_number, subrun, event, label)
);`

// Store is a connected PostgreSQL-backed event store.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pool against the configured database and ensures the
// benchmark schema exists. threads caps the pool size when non-zero.
func Connect(ctx context.Context, cfg store.ConnectionConfig, threads uint) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	if threads > 0 {
		poolCfg.MaxConns = int32(threads)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) CreateDataSet(ctx context.Context, name string) (store.DataSet, error) {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO evbench_datasets (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
	if err != nil {
		return nil, fmt.Errorf("create dataset %q: %w", name, err)
	}
	return &dataSet{store: s, name: name}, nil
}

func (s *Store) RunFromDescriptor(ctx context.Context, desc store.RunDescriptor) (store.Run, error) {
	info, err := store.DecodeDescriptor(desc)
	if err != nil {
		return nil, err
	}
	if info.Backend != store.BackendPostgres {
		return nil, fmt.Errorf("descriptor is not from a postgres store (backend %d)", info.Backend)
	}
	var id uuid.UUID
	err = s.pool.QueryRow(ctx,
		`SELECT run_id FROM evbench_runs WHERE dataset = $1 AND run_number = $2`,
		info.DataSet, int64(info.Number)).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("resolve run %d of dataset %q: %w", info.Number, info.DataSet, err)
	}
	if id != info.RunID {
		return nil, fmt.Errorf("descriptor run ID mismatch for run %d of dataset %q", info.Number, info.DataSet)
	}
	return &run{store: s, dataset: info.DataSet, number: info.Number, id: id}, nil
}

func (s *Store) Shutdown(context.Context) error {
	// The service outlives the benchmark; shutting it down is dropping our
	// connection pool.
	s.pool.Close()
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

type dataSet struct {
	store *Store
	name  string
}

func (d *dataSet) Name() string { return d.name }

func (d *dataSet) CreateRun(ctx context.Context, number uint64) (store.Run, error) {
	id := uuid.New()
	_, err := d.store.pool.Exec(ctx,
		`INSERT INTO evbench_runs (dataset, run_number, run_id) VALUES ($1, $2, $3)
		 ON CONFLICT (dataset, run_number) DO NOTHING`,
		d.name, int64(number), id)
	if err != nil {
		return nil, fmt.Errorf("create run %d: %w", number, err)
	}
	// Another process may have won the insert; read back the canonical ID.
	err = d.store.pool.QueryRow(ctx,
		`SELECT run_id FROM evbench_runs WHERE dataset = $1 AND run_number = $2`,
		d.name, int64(number)).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("read back run %d: %w", number, err)
	}
	return &run{store: d.store, dataset: d.name, number: number, id: id}, nil
}

type run struct {
	store   *Store
	dataset string
	number  uint64
	id      uuid.UUID
}

func (r *run) Number() uint64 { return r.number }

func (r *run) Descriptor() (store.RunDescriptor, error) {
	return store.RunInfo{
		Backend: store.BackendPostgres,
		RunID:   r.id,
		Number:  r.number,
		DataSet: r.dataset,
	}.Encode()
}

func (r *run) CreateSubRun(_ context.Context, number uint64) (store.SubRun, error) {
	return &subRun{run: r, number: number}, nil
}

type subRun struct {
	run    *run
	number uint64
}

func (sr *subRun) Number() uint64 { return sr.number }

func (sr *subRun) CreateEvent(ctx context.Context, number uint64) (store.Event, error) {
	_, err := sr.run.store.pool.Exec(ctx,
		`INSERT INTO evbench_events (dataset, run_number, subrun, event) VALUES ($1, $2, $3, $4)
		 ON CONFLICT DO NOTHING`,
		sr.run.dataset, int64(sr.run.number), int64(sr.number), int64(number))
	if err != nil {
		return nil, fmt.Errorf("create event %d: %w", number, err)
	}
	return &event{subRun: sr, number: number}, nil
}

func (sr *subRun) Event(ctx context.Context, number uint64) (store.Event, error) {
	var one int
	err := sr.run.store.pool.QueryRow(ctx,
		`SELECT 1 FROM evbench_events
		 WHERE dataset = $1 AND run_number = $2 AND subrun = $3 AND event = $4`,
		sr.run.dataset, int64(sr.run.number), int64(sr.number), int64(number)).Scan(&one)
	if err != nil {
		return nil, fmt.Errorf("open event %d: %w", number, err)
	}
	return &event{subRun: sr, number: number}, nil
}

type event struct {
	subRun *subRun
	number uint64
}

func (e *event) Number() uint64 { return e.number }

func (e *event) Store(ctx context.Context, label string, data []byte, stats *store.StoreStats) error {
	serStart := time.Now()
	buf := make([]byte, len(data))
	copy(buf, data)
	serElapsed := time.Since(serStart)

	sr := e.subRun
	rawStart := time.Now()
	_, err := sr.run.store.pool.Exec(ctx,
		`INSERT INTO evbench_products (dataset, run_number, subrun, event, label, payload)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (dataset, run_number, subrun, event, label) DO UPDATE SET payload = EXCLUDED.payload`,
		sr.run.dataset, int64(sr.run.number), int64(sr.number), int64(e.number), label, buf)
	if err != nil {
		return fmt.Errorf("store product %q on event %d: %w", label, e.number, err)
	}
	if stats != nil {
		stats.Serialization = serElapsed
		stats.RawStorage = time.Since(rawStart)
	}
	return nil
}

func (e *event) Load(ctx context.Context, label string, stats *store.LoadStats) ([]byte, error) {
	sr := e.subRun
	rawStart := time.Now()
	var payload []byte
	err := sr.run.store.pool.QueryRow(ctx,
		`SELECT payload FROM evbench_products
		 WHERE dataset = $1 AND run_number = $2 AND subrun = $3 AND event = $4 AND label = $5`,
		sr.run.dataset, int64(sr.run.number), int64(sr.number), int64(e.number), label).Scan(&payload)
	rawElapsed := time.Since(rawStart)
	if err != nil {
		return nil, fmt.Errorf("%w: label %q on event %d: %v", store.ErrProductNotFound, label, e.number, err)
	}

	deserStart := time.Now()
	out := make([]byte, len(payload))
	copy(out, payload)

	if stats != nil {
		stats.RawLoading = rawElapsed
		stats.Deserialization = time.Since(deserStart)
	}
	return out, nil
}

// Package es is the Elasticsearch event store backend. Each dataset maps to
// one index; each stored product is one document whose ID encodes the
// (run, sub-run, event, label) coordinates.
package es

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/refresh"
	"github.com/google/uuid"

	"github.com/perfworks/evbench/internal/store"
)

// Store is a connected Elasticsearch-backed event store.
type Store struct {
	client *elasticsearch.TypedClient
}

type productDoc struct {
	Run     uint64 `json:"run"`
	SubRun  uint64 `json:"subrun"`
	Event   uint64 `json:"event"`
	Label   string `json:"label"`
	Payload []byte `json:"payload"` // base64 via encoding/json
}

type runDoc struct {
	Run   uint64 `json:"run"`
	RunID string `json:"run_id"`
}

// Connect builds a typed client against the configured addresses. The
// threads hint is accepted for interface parity; Elasticsearch manages its
// own write pools.
func Connect(_ context.Context, cfg store.ConnectionConfig, _ uint) (*Store, error) {
	esCfg := elasticsearch.Config{Addresses: cfg.Endpoints()}
	if cfg.Username != "" && cfg.Password != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}
	client, err := elasticsearch.NewTypedClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &Store{client: client}, nil
}

func indexName(dataset string) string { return "evbench-" + dataset }

func (s *Store) ensureIndex(ctx context.Context, name string) error {
	exists, err := s.client.Indices.Exists(name).Do(ctx)
	if err != nil {
		return fmt.Errorf("check index %q: %w", name, err)
	}
	if exists {
		return nil
	}
	mappings := types.TypeMapping{
		Properties: map[string]types.Property{
			"run":     types.NewLongNumberProperty(),
			"subrun":  types.NewLongNumberProperty(),
			"event":   types.NewLongNumberProperty(),
			"label":   types.NewKeywordProperty(),
			"payload": types.NewBinaryProperty(),
			"run_id":  types.NewKeywordProperty(),
		},
	}
	res, err := s.client.Indices.Create(name).Mappings(&mappings).Do(ctx)
	if err != nil {
		return fmt.Errorf("create index %q: %w", name, err)
	}
	if !res.Acknowledged {
		return fmt.Errorf("index %q creation not acknowledged", name)
	}
	return nil
}

func (s *Store) CreateDataSet(ctx context.Context, name string) (store.DataSet, error) {
	if err := s.ensureIndex(ctx, indexName(name)); err != nil {
		return nil, err
	}
	return &dataSet{store: s, name: name}, nil
}

func (s *Store) RunFromDescriptor(ctx context.Context, desc store.RunDescriptor) (store.Run, error) {
	info, err := store.DecodeDescriptor(desc)
	if err != nil {
		return nil, err
	}
	if info.Backend != store.BackendElasticsearch {
		return nil, fmt.Errorf("descriptor is not from an elasticsearch store (backend %d)", info.Backend)
	}
	res, err := s.client.Get(indexName(info.DataSet), runDocID(info.Number)).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve run %d of dataset %q: %w", info.Number, info.DataSet, err)
	}
	if !res.Found {
		return nil, fmt.Errorf("run %d not found in dataset %q", info.Number, info.DataSet)
	}
	var rd runDoc
	if err := json.Unmarshal(res.Source_, &rd); err != nil {
		return nil, fmt.Errorf("decode run document: %w", err)
	}
	if rd.RunID != info.RunID.String() {
		return nil, fmt.Errorf("descriptor run ID mismatch for run %d of dataset %q", info.Number, info.DataSet)
	}
	return &run{store: s, dataset: info.DataSet, number: info.Number, id: info.RunID}, nil
}

func (s *Store) Shutdown(context.Context) error { return nil }
func (s *Store) Close() error                   { return nil }

type dataSet struct {
	store *Store
	name  string
}

func (d *dataSet) Name() string { return d.name }

func runDocID(number uint64) string { return fmt.Sprintf("run-%d", number) }

func productDocID(run, subRun, event uint64, label string) string {
	return fmt.Sprintf("r%d-s%d-e%d-%s", run, subRun, event, label)
}

func (d *dataSet) CreateRun(ctx context.Context, number uint64) (store.Run, error) {
	id := uuid.New()
	doc := runDoc{Run: number, RunID: id.String()}
	_, err := d.store.client.Index(indexName(d.name)).
		Id(runDocID(number)).
		Document(doc).
		Refresh(refresh.True).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("create run %d: %w", number, err)
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
		Backend: store.BackendElasticsearch,
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

func (sr *subRun) CreateEvent(_ context.Context, number uint64) (store.Event, error) {
	// Events materialize with their first stored product.
	return &event{subRun: sr, number: number}, nil
}

func (sr *subRun) Event(_ context.Context, number uint64) (store.Event, error) {
	return &event{subRun: sr, number: number}, nil
}

type event struct {
	subRun *subRun
	number uint64
}

func (e *event) Number() uint64 { return e.number }

func (e *event) Store(ctx context.Context, label string, data []byte, stats *store.StoreStats) error {
	sr := e.subRun
	serStart := time.Now()
	doc := productDoc{
		Run:     sr.run.number,
		SubRun:  sr.number,
		Event:   e.number,
		Label:   label,
		Payload: data,
	}
	serElapsed := time.Since(serStart)

	rawStart := time.Now()
	_, err := sr.run.store.client.Index(indexName(sr.run.dataset)).
		Id(productDocID(sr.run.number, sr.number, e.number, label)).
		Document(doc).
		Refresh(refresh.True).
		Do(ctx)
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
	res, err := sr.run.store.client.Get(
		indexName(sr.run.dataset),
		productDocID(sr.run.number, sr.number, e.number, label),
	).Do(ctx)
	rawElapsed := time.Since(rawStart)
	if err != nil {
		return nil, fmt.Errorf("load product %q on event %d: %w", label, e.number, err)
	}
	if !res.Found {
		return nil, fmt.Errorf("%w: label %q on event %d", store.ErrProductNotFound, label, e.number)
	}

	deserStart := time.Now()
	var doc productDoc
	if err := json.Unmarshal(res.Source_, &doc); err != nil {
		return nil, fmt.Errorf("decode product document: %w", err)
	}
	if stats != nil {
		stats.RawLoading = rawElapsed
		stats.Deserialization = time.Since(deserStart)
	}
	return doc.Payload, nil
}

// Package memory is the in-process event store backend. It backs the
// "memory" protocol for single-host runs and every unit test of the
// benchmark pipeline.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/perfworks/evbench/internal/store"
)

type productKey struct {
	run    uint64
	subRun uint64
	event  uint64
	label  string
}

// Store keeps every dataset of the process in one mutex-guarded map. A single
// Store may be shared by all ranks of an in-process group.
type Store struct {
	mu       sync.RWMutex
	datasets map[string]*dataset
}

type dataset struct {
	name     string
	runs     map[uint64]uuid.UUID // run number -> run ID
	products map[productKey][]byte
	events   map[[3]uint64]struct{} // (run, subrun, event)
}

// New returns an empty store.
func New() *Store {
	return &Store{datasets: make(map[string]*dataset)}
}

func (s *Store) CreateDataSet(_ context.Context, name string) (store.DataSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ds, ok := s.datasets[name]
	if !ok {
		ds = &dataset{
			name:     name,
			runs:     make(map[uint64]uuid.UUID),
			products: make(map[productKey][]byte),
			events:   make(map[[3]uint64]struct{}),
		}
		s.datasets[name] = ds
	}
	return &dataSetHandle{store: s, ds: ds}, nil
}

func (s *Store) RunFromDescriptor(_ context.Context, desc store.RunDescriptor) (store.Run, error) {
	info, err := store.DecodeDescriptor(desc)
	if err != nil {
		return nil, err
	}
	if info.Backend != store.BackendMemory {
		return nil, fmt.Errorf("descriptor is not from a memory store (backend %d)", info.Backend)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds, ok := s.datasets[info.DataSet]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrDataSetNotFound, info.DataSet)
	}
	id, ok := ds.runs[info.Number]
	if !ok || id != info.RunID {
		return nil, fmt.Errorf("run %d not found in dataset %s", info.Number, info.DataSet)
	}
	return &runHandle{store: s, ds: ds, number: info.Number, id: id}, nil
}

// Shutdown is a no-op: the in-process store lives and dies with the process.
func (s *Store) Shutdown(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

type dataSetHandle struct {
	store *Store
	ds    *dataset
}

func (h *dataSetHandle) Name() string { return h.ds.name }

func (h *dataSetHandle) CreateRun(_ context.Context, number uint64) (store.Run, error) {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	id, ok := h.ds.runs[number]
	if !ok {
		id = uuid.New()
		h.ds.runs[number] = id
	}
	return &runHandle{store: h.store, ds: h.ds, number: number, id: id}, nil
}

type runHandle struct {
	store  *Store
	ds     *dataset
	number uint64
	id     uuid.UUID
}

func (r *runHandle) Number() uint64 { return r.number }

func (r *runHandle) Descriptor() (store.RunDescriptor, error) {
	return store.RunInfo{
		Backend: store.BackendMemory,
		RunID:   r.id,
		Number:  r.number,
		DataSet: r.ds.name,
	}.Encode()
}

func (r *runHandle) CreateSubRun(_ context.Context, number uint64) (store.SubRun, error) {
	return &subRunHandle{run: r, number: number}, nil
}

type subRunHandle struct {
	run    *runHandle
	number uint64
}

func (sr *subRunHandle) Number() uint64 { return sr.number }

func (sr *subRunHandle) CreateEvent(_ context.Context, number uint64) (store.Event, error) {
	s := sr.run.store
	s.mu.Lock()
	defer s.mu.Unlock()
	sr.run.ds.events[[3]uint64{sr.run.number, sr.number, number}] = struct{}{}
	return &eventHandle{subRun: sr, number: number}, nil
}

func (sr *subRunHandle) Event(_ context.Context, number uint64) (store.Event, error) {
	s := sr.run.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := sr.run.ds.events[[3]uint64{sr.run.number, sr.number, number}]; !ok {
		return nil, fmt.Errorf("event %d not found in sub-run %d", number, sr.number)
	}
	return &eventHandle{subRun: sr, number: number}, nil
}

type eventHandle struct {
	subRun *subRunHandle
	number uint64
}

func (e *eventHandle) Number() uint64 { return e.number }

func (e *eventHandle) key(label string) productKey {
	return productKey{
		run:    e.subRun.run.number,
		subRun: e.subRun.number,
		event:  e.number,
		label:  label,
	}
}

func (e *eventHandle) Store(_ context.Context, label string, data []byte, stats *store.StoreStats) error {
	serStart := time.Now()
	buf := make([]byte, len(data))
	copy(buf, data)
	serElapsed := time.Since(serStart)

	s := e.subRun.run.store
	rawStart := time.Now()
	s.mu.Lock()
	e.subRun.run.ds.products[e.key(label)] = buf
	s.mu.Unlock()

	if stats != nil {
		stats.Serialization = serElapsed
		stats.RawStorage = time.Since(rawStart)
	}
	return nil
}

func (e *eventHandle) Load(_ context.Context, label string, stats *store.LoadStats) ([]byte, error) {
	s := e.subRun.run.store
	rawStart := time.Now()
	s.mu.RLock()
	buf, ok := e.subRun.run.ds.products[e.key(label)]
	s.mu.RUnlock()
	rawElapsed := time.Since(rawStart)
	if !ok {
		return nil, fmt.Errorf("%w: label %q on event %d", store.ErrProductNotFound, label, e.number)
	}

	deserStart := time.Now()
	out := make([]byte, len(buf))
	copy(out, buf)

	if stats != nil {
		stats.RawLoading = rawElapsed
		stats.Deserialization = time.Since(deserStart)
	}
	return out, nil
}

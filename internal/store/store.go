// Package store defines the client API of the remote event store: a
// hierarchical namespace of datasets, runs, sub-runs and events, with timed
// store/load of labelled byte products. Backends live in the sub-packages.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrProductNotFound is returned by Event.Load when no product was
	// stored under the requested label.
	ErrProductNotFound = errors.New("product not found")

	// ErrDataSetNotFound is returned when a descriptor refers to a dataset
	// the backend cannot resolve.
	ErrDataSetNotFound = errors.New("dataset not found")
)

// StoreStats carries the per-call timings of one store operation, as
// observed by the backend. Reused across calls, never shared.
type StoreStats struct {
	RawStorage    time.Duration
	Serialization time.Duration
}

// LoadStats carries the per-call timings of one load operation.
type LoadStats struct {
	RawLoading      time.Duration
	Deserialization time.Duration
}

// DataStore is a connected client of the event store service.
type DataStore interface {
	// CreateDataSet creates (or opens, when it already exists) the named
	// dataset.
	CreateDataSet(ctx context.Context, name string) (DataSet, error)

	// RunFromDescriptor resolves a local run handle from a descriptor
	// produced by Run.Descriptor, possibly on another process.
	RunFromDescriptor(ctx context.Context, desc RunDescriptor) (Run, error)

	// Shutdown asks the remote service to stop. Called by the coordinator
	// only, after the whole group is done.
	Shutdown(ctx context.Context) error

	// Close releases the local connection.
	Close() error
}

// DataSet is a handle on one dataset.
type DataSet interface {
	Name() string
	CreateRun(ctx context.Context, number uint64) (Run, error)
}

// Run is a handle on one run of a dataset.
type Run interface {
	Number() uint64
	Descriptor() (RunDescriptor, error)
	CreateSubRun(ctx context.Context, number uint64) (SubRun, error)
}

// SubRun is a handle on one sub-run. Sub-runs are keyed by process rank, so
// ranks never write to the same sub-run.
type SubRun interface {
	Number() uint64
	CreateEvent(ctx context.Context, number uint64) (Event, error)
	// Event opens an existing event by number.
	Event(ctx context.Context, number uint64) (Event, error)
}

// Event is a handle on one event of a sub-run.
type Event interface {
	Number() uint64
	// Store writes data under label and, when stats is non-nil, fills it
	// with the per-call timings.
	Store(ctx context.Context, label string, data []byte, stats *StoreStats) error
	// Load reads the product stored under label into a fresh buffer.
	Load(ctx context.Context, label string, stats *LoadStats) ([]byte, error)
}

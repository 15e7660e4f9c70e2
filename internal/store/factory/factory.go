// Package factory connects a DataStore backend selected by protocol name.
package factory

import (
	"context"
	"fmt"

	"github.com/perfworks/evbench/internal/store"
	"github.com/perfworks/evbench/internal/store/es"
	"github.com/perfworks/evbench/internal/store/memory"
	"github.com/perfworks/evbench/internal/store/pg"
)

// Options selects and parameterizes a backend.
type Options struct {
	Protocol       string
	ConnectionFile string
	Threads        uint
}

// Connect loads the connection descriptor file and dials the backend named
// by the protocol.
func Connect(ctx context.Context, opts Options) (store.DataStore, error) {
	cfg, err := store.LoadConnectionFile(opts.ConnectionFile)
	if err != nil {
		return nil, err
	}

	switch opts.Protocol {
	case "postgres":
		return pg.Connect(ctx, *cfg, opts.Threads)
	case "elasticsearch":
		return es.Connect(ctx, *cfg, opts.Threads)
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported protocol %q", opts.Protocol)
	}
}

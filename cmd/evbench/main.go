// Package main provides the evbench CLI, the distributed micro-benchmark
// driver for a remote event store. The same binary runs on every rank of a
// parallel job; a coordd daemon provides the collective operations when the
// group spans processes.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/perfworks/evbench/internal/bench"
	"github.com/perfworks/evbench/internal/comm"
	"github.com/perfworks/evbench/internal/config"
	"github.com/perfworks/evbench/internal/product"
	"github.com/perfworks/evbench/internal/store/factory"
	"github.com/perfworks/evbench/pkg/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type cliFlags struct {
	raw config.Raw

	coordinator string
	group       string
	ranks       int
	rank        int
}

func newRootCmd() *cobra.Command {
	var cf cliFlags

	cmd := &cobra.Command{
		Use:   "evbench",
		Short: "Micro-benchmark driver for a remote event store",
		Long: `evbench stores synthetic products of configurable sizes in a remote
event store, reads them back, verifies round-trip fidelity and reports
per-operation timing statistics. Run one instance per rank of the job.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cf)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&cf.raw.Protocol, "protocol", "p", "",
		"Transport protocol / backend (postgres, elasticsearch, memory)")
	flags.StringVarP(&cf.raw.ConnectionFile, "connection", "c", "",
		"YAML connection file for the event store")
	flags.StringVarP(&cf.raw.DataSet, "dataset", "d", "",
		"DataSet under which to store the data")
	flags.StringVarP(&cf.raw.Label, "label", "l", "",
		"Label to use when storing products")
	flags.StringVarP(&cf.raw.ProductSizes, "product-sizes", "s", "",
		"Comma-separated product sizes (e.g. 45,67,123)")
	flags.StringVarP(&cf.raw.EngineConfig, "margo-config", "m", "",
		"Engine configuration file")
	flags.StringVarP(&cf.raw.LogLevel, "verbose", "v", "info",
		"Logging level ("+strings.Join(logging.LevelNames, ", ")+")")
	flags.UintVarP(&cf.raw.Threads, "threads", "t", 0,
		"Number of engine worker threads (0 = service default)")
	flags.StringVarP(&cf.raw.WaitRange, "wait-range", "r", "0,0",
		"Waiting time interval in seconds (e.g. 1.34,3.56)")
	flags.BoolVar(&cf.raw.DisableStats, "disable-stats", false,
		"Suppress per-record statistics")
	flags.StringVar(&cf.coordinator, "coordinator", "",
		"Base URL of the coordd daemon (empty = standalone single-process group)")
	flags.StringVar(&cf.group, "group", "",
		"Coordination group name (default: derived from dataset)")
	flags.IntVar(&cf.ranks, "ranks", 1, "Number of processes in the group")
	flags.IntVar(&cf.rank, "rank", 0, "This process's rank in the group")

	for _, f := range []string{"protocol", "connection", "dataset", "label", "product-sizes"} {
		cobra.CheckErr(cmd.MarkFlagRequired(f))
	}

	return cmd
}

func run(ctx context.Context, cf cliFlags) error {
	rank, size := cf.rank, cf.ranks
	if cf.coordinator == "" {
		rank, size = 0, 1
	}
	if rank < 0 || size < 1 || rank >= size {
		fmt.Fprintf(os.Stderr, "invalid group geometry: rank %d of %d\n", rank, size)
		os.Exit(1)
	}

	level, levelErr := logging.ParseLevel(cf.raw.LogLevel)
	if levelErr != nil {
		level = slog.LevelInfo
	}
	log := logging.New(os.Stderr, level, rank, size)

	// The coordination substrate comes up before validation so that a rank
	// failing a local check can abort the whole group instead of leaving
	// the others blocked in a collective.
	var c comm.Communicator
	if cf.coordinator == "" {
		c = comm.NewLocalGroup(1).Comm(0)
	} else {
		group := cf.group
		if group == "" {
			group = cf.raw.DataSet
		}
		var err error
		c, err = comm.Dial(ctx, cf.coordinator, group, rank, size)
		if err != nil {
			log.Log(ctx, logging.LevelCritical, "Could not reach coordination daemon", "error", err)
			os.Exit(1)
		}
	}

	if levelErr != nil {
		fatal(ctx, log, c, levelErr)
	}
	cfg, err := config.Load(cf.raw)
	if err != nil {
		fatal(ctx, log, c, err)
	}

	log.Log(ctx, logging.LevelTrace, "connection file", "path", cfg.ConnectionFile)
	log.Log(ctx, logging.LevelTrace, "input dataset", "name", cfg.DataSet)
	log.Log(ctx, logging.LevelTrace, "product label", "label", cfg.Label)
	log.Log(ctx, logging.LevelTrace, "num threads", "count", cfg.Threads)
	log.Log(ctx, logging.LevelTrace, "wait range", "min", cfg.WaitMin, "max", cfg.WaitMax)

	if err := c.Barrier(ctx); err != nil {
		log.Log(ctx, logging.LevelCritical, "group failed before benchmark", "error", err)
		os.Exit(1)
	}

	log.Log(ctx, logging.LevelTrace, "Initializing RNG", "seed", rank)
	rng := product.NewRand(rank)

	log.Log(ctx, logging.LevelTrace, "Connecting to event store", "protocol", cfg.Protocol)
	ds, err := factory.Connect(ctx, factory.Options{
		Protocol:       cfg.Protocol,
		ConnectionFile: cfg.ConnectionFile,
		Threads:        cfg.Threads,
	})
	if err != nil {
		log.Log(ctx, logging.LevelCritical, "Could not connect to event store", "error", err)
		c.Abort(err.Error())
		os.Exit(1)
	}
	defer ds.Close()

	runner := bench.New(cfg, c, ds, log, rng)
	if err := runner.Run(ctx); err != nil {
		os.Exit(1)
	}
	return nil
}

// fatal handles a configuration error: the diagnostic is emitted once, by
// the coordinator, but every failing rank aborts the whole group.
func fatal(ctx context.Context, log *slog.Logger, c comm.Communicator, err error) {
	if c.Rank() == 0 {
		log.Log(ctx, logging.LevelCritical, err.Error())
	}
	c.Abort(err.Error())
	os.Exit(1)
}

// Package main provides coordd, the rendezvous daemon that gives a group of
// evbench processes their collective operations: join, barrier, broadcast
// and abort.
package main

import (
	"log/slog"
	"os"

	"github.com/perfworks/evbench/internal/coord"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := coord.LoadServerConfig()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	log.Info("starting coordination daemon", "port", cfg.Port)
	srv := coord.NewServer(cfg, log)
	if err := srv.Start(); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}

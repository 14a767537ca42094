package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/nikvdp/lb/internal/config"
	"github.com/nikvdp/lb/internal/errs"
	"github.com/nikvdp/lb/internal/jsonl"
	"github.com/nikvdp/lb/internal/lockfile"
	"github.com/nikvdp/lb/internal/remote"
	"github.com/nikvdp/lb/internal/store"
	"github.com/nikvdp/lb/internal/syncengine"
	"github.com/nikvdp/lb/internal/worker"
)

func isWorkerAlive(pidPath string) bool {
	return lockfile.IsHeld(pidPath)
}

func touchWorker(pidPath string) {
	_ = lockfile.Touch(pidPath)
}

// runWorkerEntry is the body of `lb --worker`: it never goes through
// rootCmd, so it builds its own store/config/client from scratch.
func runWorkerEntry() {
	ctx := context.Background()
	cfg, err := config.Resolve(nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lb worker: %v\n", err)
		os.Exit(1)
	}
	if cfg.LocalOnly || cfg.APIKey == "" {
		os.Exit(0)
	}

	s, err := store.Open(ctx, config.StateDir(cfg.RepoRoot)+"/cache.db")
	if err != nil {
		fmt.Fprintf(os.Stderr, "lb worker: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = s.Close() }()

	sched := jsonl.NewScheduler(cfg.RepoRoot, cfg.RepoRoot+"/.lb/sync.log")
	s.SetNotifier(sched)

	c := remote.NewLinearClient(cfg.APIKey)
	eng := syncengine.New(s, c, cfg)

	logFile, err := os.OpenFile(cfg.RepoRoot+"/.lb/sync.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	var logger *slog.Logger
	if err == nil {
		logger = slog.New(slog.NewTextHandler(logFile, nil))
		defer func() { _ = logFile.Close() }()
	} else {
		logger = slog.Default()
	}

	w := worker.New(s, c, cfg.RepoRoot+"/.lb/sync.pid", config.StateDir(cfg.RepoRoot)+"/config.jsonc", cfg.TeamKey, sched, eng, logger)
	if err := w.Run(ctx); err != nil {
		if errs.Is(err, lockfile.ErrHeld) {
			// Another worker already owns this repo; a harmless race
			// between the signalling side's liveness check and a
			// concurrently spawned worker.
			os.Exit(0)
		}
		logger.Error("worker exited with error", "error", err)
		os.Exit(1)
	}
}

// runExportWorkerEntry is the body of `lb --export-worker`: a single
// export pass, then exit.
func runExportWorkerEntry() {
	ctx := context.Background()
	cfg, err := config.Resolve(nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lb export-worker: %v\n", err)
		os.Exit(1)
	}

	s, err := store.Open(ctx, config.StateDir(cfg.RepoRoot)+"/cache.db")
	if err != nil {
		fmt.Fprintf(os.Stderr, "lb export-worker: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = s.Close() }()

	if err := jsonl.Run(ctx, s, jsonl.DefaultPath(cfg.RepoRoot)); err != nil {
		fmt.Fprintf(os.Stderr, "lb export-worker: %v\n", err)
		os.Exit(1)
	}
}

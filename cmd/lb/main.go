// Command lb is the CLI entry point: a cobra command tree over the
// local cache, the outbox/worker sync protocol, and the Remote client.
// Every command here talks to the local store directly, in the same
// process; there is no daemon-RPC dispatch layer.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nikvdp/lb/internal/config"
	"github.com/nikvdp/lb/internal/jsonl"
	"github.com/nikvdp/lb/internal/launcher"
	"github.com/nikvdp/lb/internal/remote"
	"github.com/nikvdp/lb/internal/store"
	"github.com/nikvdp/lb/internal/syncengine"
)

var (
	jsonOutput bool

	cfg    *config.Config
	st     *store.Store
	client remote.Client
	eng    *syncengine.Engine
	sched  *jsonl.Scheduler
)

// app bundles the per-command bootstrap state so handlers don't reach
// for package globals directly.
type app struct {
	cfg    *config.Config
	st     *store.Store
	client remote.Client
	eng    *syncengine.Engine
	sched  *jsonl.Scheduler
}

func currentApp() *app {
	return &app{cfg: cfg, st: st, client: client, eng: eng, sched: sched}
}

func (a *app) pidPath() string  { return a.cfg.RepoRoot + "/.lb/sync.pid" }
func (a *app) logPath() string  { return a.cfg.RepoRoot + "/.lb/sync.log" }
func (a *app) jsonlPath() string { return jsonl.DefaultPath(a.cfg.RepoRoot) }

// signalWorker touches the PID file (idempotent liveness nudge) and
// spawns a worker if none is currently alive.
func (a *app) signalWorker() {
	if a.cfg.LocalOnly {
		return
	}
	path := a.pidPath()
	if err := os.MkdirAll(a.cfg.RepoRoot+"/.lb", 0o755); err != nil {
		return
	}
	if held := isWorkerAlive(path); held {
		touchWorker(path)
		return
	}
	_ = launcher.SpawnWorker(a.cfg.RepoRoot, a.logPath())
}

var rootCmd = &cobra.Command{
	Use:   "lb",
	Short: "lb - offline-first issue tracker backed by a remote tracker",
	Long:  "lb mirrors a remote issue tracker into a local cache, queues writes for background sync, and supports dependency-aware queries while offline.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		name := cmd.Name()
		if name == "init" || name == "help" || name == "completion" {
			return nil
		}
		return bootstrap(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if st != nil {
			_ = st.Close()
		}
	},
}

func bootstrap(cmd *cobra.Command) error {
	resolved, err := config.Resolve(cmd.Flags())
	if err != nil {
		return fmt.Errorf("resolving configuration: %w", err)
	}
	cfg = resolved

	dbPath := config.StateDir(cfg.RepoRoot) + "/cache.db"
	if _, statErr := os.Stat(config.StateDir(cfg.RepoRoot)); os.IsNotExist(statErr) {
		return fmt.Errorf("no lb repo found at %s; run `lb init` first", cfg.RepoRoot)
	}

	s, err := store.Open(context.Background(), dbPath)
	if err != nil {
		return err
	}
	st = s

	sched = jsonl.NewScheduler(cfg.RepoRoot, cfg.RepoRoot+"/.lb/sync.log")
	st.SetNotifier(sched)

	if !cfg.LocalOnly && cfg.APIKey != "" {
		client = remote.NewLinearClient(cfg.APIKey)
		eng = syncengine.New(st, client, cfg)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "emit JSON instead of human-readable output")
	rootCmd.PersistentFlags().String("team", "", "override the configured team key")

	rootCmd.AddGroup(
		&cobra.Group{ID: "setup", Title: "Setup:"},
		&cobra.Group{ID: "issues", Title: "Working with issues:"},
		&cobra.Group{ID: "views", Title: "Views:"},
		&cobra.Group{ID: "deps", Title: "Dependencies:"},
		&cobra.Group{ID: "sync", Title: "Sync & data:"},
	)
}

func main() {
	// The worker and export-worker re-entry points bypass the normal
	// command surface entirely: they must never
	// be reachable through a documented subcommand, and must never
	// themselves request another export or spawn another worker.
	for _, a := range os.Args[1:] {
		switch a {
		case launcher.WorkerFlag:
			runWorkerEntry()
			return
		case launcher.ExportWorkerFlag:
			runExportWorkerEntry()
			return
		}
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

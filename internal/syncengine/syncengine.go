// Package syncengine implements freshness/pull/push orchestration:
// ensure-fresh, smart-sync's incremental/full paginated modes, repo
// scoping, and push-before-pull outbox draining. The inline push-then-pull
// shape, reporting a success/failed pair, carries over a sync orchestration
// idiom originally built around git-commit-based sync, adapted here to a
// Remote-API-based one.
package syncengine

import (
	"context"
	"fmt"
	"time"

	"github.com/nikvdp/lb/internal/config"
	"github.com/nikvdp/lb/internal/remote"
	"github.com/nikvdp/lb/internal/store"
	"github.com/nikvdp/lb/internal/types"
	"github.com/nikvdp/lb/internal/worker"
)

const fullSyncMaxAge = 24 * time.Hour

// PushResult reports the outcome of draining the outbox inline.
type PushResult struct {
	Success int
	Failed  int
}

// Engine ties together the store, Remote client, and resolved config to
// perform freshness checks, pushes, and pulls.
type Engine struct {
	st     *store.Store
	client remote.Client
	cfg    *config.Config

	teamID string
}

func New(st *store.Store, client remote.Client, cfg *config.Config) *Engine {
	return &Engine{st: st, client: client, cfg: cfg}
}

// EnsureFresh performs a sync only if the cache is stale or force is set.
// In local-only mode it is always a no-op.
func (e *Engine) EnsureFresh(ctx context.Context, force bool) error {
	if e.cfg.LocalOnly {
		return nil
	}
	lastSync, err := e.st.LastSync(ctx)
	if err != nil {
		return err
	}
	if !force && !lastSync.IsZero() && time.Since(lastSync) < time.Duration(e.cfg.CacheTTLSeconds)*time.Second {
		return nil
	}
	_, err = e.SmartSync(ctx, false)
	return err
}

// SmartSync pushes the outbox, then pulls either incrementally or via a
// full paginated refresh.5. deferFull, when true, skips a
// full sync even if one is due (the caller believes a background worker
// already owns one) while still performing the incremental pull so
// foreground output is fresh.
func (e *Engine) SmartSync(ctx context.Context, deferFull bool) (PushResult, error) {
	if e.cfg.LocalOnly {
		return PushResult{}, nil
	}

	push, err := e.PushOutbox(ctx)
	if err != nil {
		return push, err
	}

	needsFull, err := e.needsFullSync(ctx)
	if err != nil {
		return push, err
	}

	if needsFull && !deferFull {
		if err := e.fullPull(ctx); err != nil {
			return push, err
		}
		if err := e.st.MarkLastSync(ctx, time.Now().UTC(), true); err != nil {
			return push, err
		}
		return push, nil
	}

	if err := e.incrementalPull(ctx); err != nil {
		return push, err
	}
	if err := e.st.MarkLastSync(ctx, time.Now().UTC(), false); err != nil {
		return push, err
	}
	return push, nil
}

// PushOutbox drains the outbox inline via the same executor the
// background worker uses, reporting how many items succeeded or failed.
func (e *Engine) PushOutbox(ctx context.Context) (PushResult, error) {
	w := worker.New(e.st, e.client, "", "", e.cfg.TeamKey, nil, nil, nil)
	items, err := e.st.PeekOutbox(ctx)
	if err != nil {
		return PushResult{}, err
	}
	var result PushResult
	for _, item := range items {
		if err := w.ExecuteOne(ctx, item); err != nil {
			_ = e.st.FailOutbox(ctx, item.ID, err)
			result.Failed++
			continue
		}
		_ = e.st.AckOutbox(ctx, item.ID)
		result.Success++
	}
	return result, nil
}

func (e *Engine) needsFullSync(ctx context.Context) (bool, error) {
	lastFull, err := e.st.LastFullSync(ctx)
	if err != nil {
		return false, err
	}
	if lastFull.IsZero() || time.Since(lastFull) > fullSyncMaxAge {
		return true, nil
	}
	runCount, err := e.st.SyncRunCount(ctx)
	if err != nil {
		return false, err
	}
	return runCount%3 == 0, nil
}

func (e *Engine) ensureTeam(ctx context.Context) error {
	if e.teamID != "" || e.cfg.TeamKey == "" {
		return nil
	}
	team, err := e.client.ResolveTeam(ctx, e.cfg.TeamKey)
	if err != nil {
		return err
	}
	e.teamID = team.ID
	return nil
}

// projectGroupLabel is the Remote's stand-in for a genuine project entity:
// a grouped label ("project" > repo name), since remote.Client has no
// project-creation capability of its own (GetOrCreateLabelGroup is the
// closest primitive it exposes).
const projectGroupLabel = "project"

func (e *Engine) fetchOptions(since *time.Time) (remote.FetchOptions, error) {
	opts := remote.FetchOptions{Since: since, PageSize: 100}
	switch e.cfg.RepoScope {
	case config.ScopeLabel:
		label, err := e.client.GetOrCreateLabel(context.Background(), e.teamID, repoLabel(e.cfg.RepoName))
		if err != nil {
			return opts, err
		}
		opts.RepoLabelID = label.ID
	case config.ScopeProject:
		project, err := e.client.GetOrCreateLabelGroup(context.Background(), e.teamID, projectGroupLabel, e.cfg.RepoName)
		if err != nil {
			return opts, err
		}
		opts.RepoProjectID = project.ID
	case config.ScopeBoth:
		label, err := e.client.GetOrCreateLabel(context.Background(), e.teamID, repoLabel(e.cfg.RepoName))
		if err != nil {
			return opts, err
		}
		opts.RepoLabelID = label.ID
		project, err := e.client.GetOrCreateLabelGroup(context.Background(), e.teamID, projectGroupLabel, e.cfg.RepoName)
		if err != nil {
			return opts, err
		}
		opts.RepoProjectID = project.ID
	}
	return opts, nil
}

func repoLabel(repoName string) string {
	return fmt.Sprintf("repo:%s", repoName)
}

// incrementalPull fetches only issues updated since the last sync.
func (e *Engine) incrementalPull(ctx context.Context) error {
	if err := e.ensureTeam(ctx); err != nil {
		return err
	}
	lastSync, err := e.st.LastSync(ctx)
	if err != nil {
		return err
	}
	if lastSync.IsZero() {
		return e.fullPull(ctx)
	}
	opts, err := e.fetchOptions(&lastSync)
	if err != nil {
		return err
	}
	return e.pullPages(ctx, opts, false)
}

// fullPull fetches every repo-scoped issue, page by page, clearing the
// issues table first (preserving non-parent-child dependency rows).
func (e *Engine) fullPull(ctx context.Context) error {
	if err := e.ensureTeam(ctx); err != nil {
		return err
	}
	opts, err := e.fetchOptions(nil)
	if err != nil {
		return err
	}
	if _, err := e.st.ClearIssues(ctx); err != nil {
		return err
	}
	return e.pullPages(ctx, opts, true)
}

func (e *Engine) pullPages(ctx context.Context, opts remote.FetchOptions, full bool) error {
	cursor := ""
	for {
		opts.Cursor = cursor
		remoteIssues, next, err := e.client.FetchIssues(ctx, opts)
		if err != nil {
			return err
		}
		if len(remoteIssues) > 0 {
			batch := make([]*types.Issue, 0, len(remoteIssues))
			parents := make(map[string]string, len(remoteIssues))
			for i := range remoteIssues {
				ri := &remoteIssues[i]
				issue := worker.IssueFromRemote(ri)
				batch = append(batch, issue)
				if ri.ParentID != "" {
					parents[ri.ID] = ri.ParentID
				}
			}
			if err := e.st.UpsertIssues(ctx, batch); err != nil {
				return err
			}
			// Parent-child hydration: other relation
			// types are not bulk-fetched here.
			for child, parent := range parents {
				_ = e.st.UpsertDep(ctx, &types.Dependency{IssueID: child, DependsOnID: parent, Type: types.DepParentChild})
			}
		}
		if next == "" {
			break
		}
		cursor = next
	}
	return nil
}

// Pull satisfies worker.Puller: a post-drain incremental pull triggered
// by the worker after it finishes draining the outbox.
func (e *Engine) Pull(ctx context.Context) error {
	return e.incrementalPull(ctx)
}

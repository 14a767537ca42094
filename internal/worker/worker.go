// Package worker implements the background drain loop: a
// single-worker-per-repo process that executes queued outbox operations
// against the Remote, propagates parent-status changes, and triggers a
// post-drain pull and export. The event-loop shape (acquire lock, tick,
// drain, release) carries over a daemon event-loop idiom, reworked around
// PID-probe election (internal/lockfile) and a push/pull outbox instead
// of flock-based daemon locking and git-commit/JSONL sync. A
// github.com/fsnotify/fsnotify watch on the repo's config file lets a
// `team_key` edit take effect without restarting a long-lived worker.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/nikvdp/lb/internal/config"
	"github.com/nikvdp/lb/internal/errs"
	"github.com/nikvdp/lb/internal/lockfile"
	"github.com/nikvdp/lb/internal/remote"
	"github.com/nikvdp/lb/internal/store"
	"github.com/nikvdp/lb/internal/types"
)

const (
	pollInterval    = 500 * time.Millisecond
	idleTimeout     = 5 * time.Second
	failureBackoff  = 1 * time.Second
	relationWorkers = 10
)

// ExportRequester requests a debounced JSONL export (internal/jsonl),
// decoupling this package from that one's scheduling details.
type ExportRequester interface {
	RequestExport()
}

// Puller performs the paginated pull side of a sync (internal/syncengine),
// invoked once per drain pass that did real work.
type Puller interface {
	Pull(ctx context.Context) error
}

// Worker owns the outbox drain loop for one repo.
type Worker struct {
	st         *store.Store
	client     remote.Client
	pidPath    string
	configPath string
	log        *slog.Logger
	exporter   ExportRequester
	puller     Puller

	teamKey string
	teamID  string
}

// New builds a Worker. teamKey, if set, pins team resolution to that key
// (internal/syncengine's foreground path resolves the same way); with no
// key, ensureTeam falls back to the workspace's first team, which is only
// correct for single-team workspaces. teamID resolution happens lazily on
// first use and is cached for the process lifetime. configPath, if
// non-empty, is watched for changes so a `team_key` edit takes effect
// without restarting the worker; an empty configPath disables the watch.
func New(st *store.Store, client remote.Client, pidPath, configPath, teamKey string, exporter ExportRequester, puller Puller, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	return &Worker{st: st, client: client, pidPath: pidPath, configPath: configPath, teamKey: teamKey, log: log, exporter: exporter, puller: puller}
}

// watchConfig watches the directory holding configPath (not the file
// itself, so an editor's write-tmp-then-rename replacement is seen as
// well as `auth`/`migrate`'s in-place rewrite) and clears the
// cached team id whenever it changes, forcing ensureTeam to re-resolve
// on the worker's next outbox item. Failures to start the watch are
// logged and otherwise ignored; live config reload is a convenience,
// not a correctness requirement.
func (w *Worker) watchConfig(ctx context.Context) {
	if w.configPath == "" {
		return
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.Warn("starting config watcher failed", "error", err)
		return
	}
	dir := filepath.Dir(w.configPath)
	if err := watcher.Add(dir); err != nil {
		w.log.Warn("watching config directory failed", "dir", dir, "error", err)
		_ = watcher.Close()
		return
	}

	go func() {
		defer func() { _ = watcher.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(w.configPath) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					w.log.Info("config changed, will re-resolve team on next use", "path", event.Name)
					w.reloadTeamKey()
					w.teamID = ""
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				w.log.Warn("config watcher error", "error", err)
			}
		}
	}()
}

// reloadTeamKey re-reads team_key out of configPath so a live edit takes
// effect without a worker restart. Best-effort: a read/parse failure
// leaves the previously resolved teamKey in place.
func (w *Worker) reloadTeamKey() {
	raw, err := os.ReadFile(w.configPath)
	if err != nil {
		w.log.Warn("re-reading config for team_key failed", "error", err)
		return
	}
	var parsed struct {
		TeamKey string `json:"team_key"`
	}
	if err := json.Unmarshal(config.StripJSONComments(raw), &parsed); err != nil {
		w.log.Warn("parsing config for team_key failed", "error", err)
		return
	}
	w.teamKey = parsed.TeamKey
}

// Run acquires the PID file and drains the outbox until idle. It returns
// nil on a clean idle exit, and lockfile.ErrHeld if another worker
// already owns the repo.
func (w *Worker) Run(ctx context.Context) error {
	lock, err := lockfile.Acquire(w.pidPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			w.log.Warn("releasing worker lock", "error", err)
		}
	}()

	w.log.Info("worker started", "pid_file", w.pidPath)
	w.watchConfig(ctx)

	var lastMtime time.Time
	idleSince := time.Time{}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		items, err := w.st.PeekOutbox(ctx)
		if err != nil {
			return err
		}

		if len(items) == 0 {
			mtime, err := lockfile.ModTime(w.pidPath)
			if err == nil && mtime.After(lastMtime) {
				lastMtime = mtime
				idleSince = time.Time{}
			}
			if idleSince.IsZero() {
				idleSince = time.Now()
			}
			if time.Since(idleSince) >= idleTimeout {
				w.log.Info("worker idle timeout reached, exiting")
				return nil
			}
			time.Sleep(pollInterval)
			continue
		}
		idleSince = time.Time{}

		didWork := false
		for _, item := range items {
			if err := w.ExecuteOne(ctx, item); err != nil {
				if errors.Is(err, errs.ErrTransient) {
					if failErr := w.st.FailOutbox(ctx, item.ID, err); failErr != nil {
						w.log.Error("recording outbox failure", "id", item.ID, "error", failErr)
					}
					w.log.Warn("transient failure executing outbox item", "id", item.ID, "op", item.Operation, "error", err)
					time.Sleep(failureBackoff)
					continue
				}
				// Non-transient (e.g. ErrAuth, ErrValidation): still
				// recorded for retry-count bookkeeping; there is no
				// poison-message policy beyond observability.
				if failErr := w.st.FailOutbox(ctx, item.ID, err); failErr != nil {
					w.log.Error("recording outbox failure", "id", item.ID, "error", failErr)
				}
				w.log.Error("failed executing outbox item", "id", item.ID, "op", item.Operation, "error", err)
				continue
			}
			if err := w.st.AckOutbox(ctx, item.ID); err != nil {
				w.log.Error("acking outbox item", "id", item.ID, "error", err)
			}
			didWork = true
		}

		if didWork {
			if w.puller != nil {
				if err := w.puller.Pull(ctx); err != nil {
					w.log.Warn("post-drain pull failed", "error", err)
				}
			}
			if w.exporter != nil {
				w.exporter.RequestExport()
			}
		}
	}
}

// ExecuteOne performs the Remote call(s) for a single outbox item,
// without touching its retry bookkeeping. Shared between the drain loop
// and the sync engine's inline push-before-pull.
func (w *Worker) ExecuteOne(ctx context.Context, item *types.OutboxItem) error {
	if err := w.ensureTeam(ctx); err != nil {
		return err
	}

	switch item.Operation {
	case types.OpCreate:
		return w.executeCreate(ctx, item)
	case types.OpUpdate:
		return w.executeUpdate(ctx, item)
	case types.OpClose:
		return w.executeClose(ctx, item)
	case types.OpDelete:
		return w.executeDelete(ctx, item)
	case types.OpCreateRelation:
		return w.executeCreateRelation(ctx, item)
	case types.OpDeleteRelation:
		return w.executeDeleteRelation(ctx, item)
	default:
		return errs.Wrapf(errs.ErrValidation, "unknown outbox operation %q", item.Operation)
	}
}

func (w *Worker) ensureTeam(ctx context.Context) error {
	if w.teamID != "" {
		return nil
	}
	if w.teamKey != "" {
		team, err := w.client.ResolveTeam(ctx, w.teamKey)
		if err != nil {
			return err
		}
		w.teamID = team.ID
		return nil
	}
	teams, err := w.client.ListTeams(ctx)
	if err != nil {
		return err
	}
	if len(teams) > 0 {
		w.teamID = teams[0].ID
	}
	return nil
}

func (w *Worker) executeCreate(ctx context.Context, item *types.OutboxItem) error {
	var payload types.CreatePayload
	if err := json.Unmarshal(item.Payload, &payload); err != nil {
		return errs.Wrap("decoding create payload", err)
	}

	in := remote.CreateInput{
		TeamID:      w.teamID,
		Title:       payload.Title,
		Description: payload.Description,
		Priority:    remote.PriorityToRemote(payload.Priority),
	}
	if payload.Assignee != "" {
		in.AssigneeEmail = payload.Assignee
	}
	if payload.ParentLocalID != "" {
		if parentIssue, err := w.st.GetIssue(ctx, payload.ParentLocalID); err == nil {
			in.ParentID = parentIssue.ID
		}
	}

	created, err := w.client.CreateIssue(ctx, in)
	if err != nil {
		return err
	}

	issue := IssueFromRemote(created)
	if err := w.st.UpsertIssue(ctx, issue); err != nil {
		return err
	}

	if payload.LocalID != "" && payload.LocalID != issue.ID {
		if err := w.reconcilePlaceholder(ctx, payload.LocalID, issue.ID); err != nil {
			w.log.Warn("placeholder reconciliation failed", "placeholder", payload.LocalID, "error", err)
		}
	}

	// Best-effort: any deferred relations persisted alongside the create.
	for _, rel := range payload.DeferredRelations {
		other, err := w.st.GetIssue(ctx, rel.OtherLocalID)
		if err != nil {
			w.log.Warn("deferred relation target not found", "id", rel.OtherLocalID)
			continue
		}
		from, to := issue.ID, other.ID
		if rel.Inverse {
			from, to = to, from
		}
		if err := w.client.CreateRelation(ctx, from, to, rel.Type); err != nil {
			w.log.Warn("deferred relation creation failed", "error", err)
			continue
		}
		_ = w.st.UpsertDep(ctx, &types.Dependency{IssueID: from, DependsOnID: to, Type: rel.Type})
	}

	return nil
}

// reconcilePlaceholder retargets every dependency edge written against an
// optimistic placeholder id (the pending-/LOCAL- row created at enqueue
// time, cmd/lb/create.go's runCreateQueued) onto the issue's real id, then
// removes the placeholder row. Without this, the placeholder lingers as a
// phantom issue and its edges keep pointing at an id nothing resolves to.
func (w *Worker) reconcilePlaceholder(ctx context.Context, placeholderID, realID string) error {
	out, err := w.st.ListDepsOut(ctx, placeholderID)
	if err != nil {
		return err
	}
	for _, d := range out {
		if err := w.st.UpsertDep(ctx, &types.Dependency{IssueID: realID, DependsOnID: d.DependsOnID, Type: d.Type}); err != nil {
			w.log.Warn("rewriting outgoing placeholder edge failed", "error", err)
		}
	}

	in, err := w.st.ListDepsIn(ctx, placeholderID)
	if err != nil {
		return err
	}
	for _, d := range in {
		if err := w.st.UpsertDep(ctx, &types.Dependency{IssueID: d.IssueID, DependsOnID: realID, Type: d.Type}); err != nil {
			w.log.Warn("rewriting incoming placeholder edge failed", "error", err)
		}
	}

	// DeleteIssue also prunes any remaining dependency rows still keyed on
	// the placeholder id (the originals we just re-keyed above).
	return w.st.DeleteIssue(ctx, placeholderID)
}

func (w *Worker) executeUpdate(ctx context.Context, item *types.OutboxItem) error {
	var payload types.UpdatePayload
	if err := json.Unmarshal(item.Payload, &payload); err != nil {
		return errs.Wrap("decoding update payload", err)
	}
	issue, err := w.st.GetIssue(ctx, payload.IssueID)
	if err != nil {
		return err
	}

	in := remote.UpdateInput{Title: payload.Title, Description: payload.Description, Unassign: payload.Unassign}
	if payload.Priority != nil {
		p := remote.PriorityToRemote(*payload.Priority)
		in.Priority = &p
	}
	if payload.Assignee != nil {
		in.AssigneeEmail = payload.Assignee
	}
	if payload.Status != nil {
		stateID, err := w.client.ResolveWorkflowState(ctx, w.teamID, *payload.Status)
		if err != nil {
			return err
		}
		in.StateID = &stateID
	}

	updated, err := w.client.UpdateIssue(ctx, issue.ID, in)
	if err != nil {
		return err
	}
	newIssue := IssueFromRemote(updated)
	if err := w.st.UpsertIssue(ctx, newIssue); err != nil {
		return err
	}

	if payload.Status != nil && *payload.Status == types.StatusInProgress {
		if err := w.propagateParentInProgress(ctx, newIssue); err != nil {
			w.log.Warn("parent-status propagation failed", "error", err)
		}
	}
	return nil
}

func (w *Worker) executeClose(ctx context.Context, item *types.OutboxItem) error {
	var payload types.ClosePayload
	if err := json.Unmarshal(item.Payload, &payload); err != nil {
		return errs.Wrap("decoding close payload", err)
	}
	issue, err := w.st.GetIssue(ctx, payload.IssueID)
	if err != nil {
		return err
	}
	stateID, err := w.client.ResolveWorkflowState(ctx, w.teamID, types.StatusClosed)
	if err != nil {
		return err
	}
	updated, err := w.client.UpdateIssue(ctx, issue.ID, remote.UpdateInput{StateID: &stateID})
	if err != nil {
		return err
	}
	newIssue := IssueFromRemote(updated)
	if err := w.st.UpsertIssue(ctx, newIssue); err != nil {
		return err
	}
	if err := w.propagateParentOnClose(ctx, newIssue); err != nil {
		w.log.Warn("parent-status propagation failed", "error", err)
	}
	return nil
}

func (w *Worker) executeDelete(ctx context.Context, item *types.OutboxItem) error {
	var payload types.ClosePayload // reuses {IssueID} shape
	if err := json.Unmarshal(item.Payload, &payload); err != nil {
		return errs.Wrap("decoding delete payload", err)
	}
	return w.client.DeleteIssue(ctx, payload.IssueID)
}

func (w *Worker) executeCreateRelation(ctx context.Context, item *types.OutboxItem) error {
	var payload types.RelationPayload
	if err := json.Unmarshal(item.Payload, &payload); err != nil {
		return errs.Wrap("decoding relation payload", err)
	}
	return w.client.CreateRelation(ctx, payload.IssueID, payload.DependsOnID, payload.Type)
}

func (w *Worker) executeDeleteRelation(ctx context.Context, item *types.OutboxItem) error {
	var payload types.RelationPayload
	if err := json.Unmarshal(item.Payload, &payload); err != nil {
		return errs.Wrap("decoding relation payload", err)
	}
	if err := w.client.DeleteRelation(ctx, payload.IssueID, payload.DependsOnID, payload.Type); err != nil {
		return err
	}
	return w.st.DeleteDep(ctx, payload.IssueID, payload.DependsOnID)
}

// propagateParentInProgress moves an open parent to in-progress when a
// child transitions into in-progress.
func (w *Worker) propagateParentInProgress(ctx context.Context, child *types.Issue) error {
	parentID, err := w.st.Parent(ctx, child.ID)
	if err != nil || parentID == "" {
		return err
	}
	parent, err := w.st.GetIssue(ctx, parentID)
	if err != nil {
		return err
	}
	if parent.Status != types.StatusOpen {
		return nil
	}
	stateID, err := w.client.ResolveWorkflowState(ctx, w.teamID, types.StatusInProgress)
	if err != nil {
		return err
	}
	updated, err := w.client.UpdateIssue(ctx, parent.ID, remote.UpdateInput{StateID: &stateID})
	if err != nil {
		return err
	}
	return w.st.UpsertIssue(ctx, IssueFromRemote(updated))
}

// propagateParentOnClose reopens the parent iff no other child remains
// in_progress.
func (w *Worker) propagateParentOnClose(ctx context.Context, child *types.Issue) error {
	parentID, err := w.st.Parent(ctx, child.ID)
	if err != nil || parentID == "" {
		return err
	}
	parent, err := w.st.GetIssue(ctx, parentID)
	if err != nil {
		return err
	}
	if parent.Status != types.StatusInProgress {
		return nil
	}
	siblings, err := w.st.Children(ctx, parent.ID)
	if err != nil {
		return err
	}
	for _, sibID := range siblings {
		if sibID == child.ID {
			continue
		}
		sib, err := w.st.GetIssue(ctx, sibID)
		if err != nil {
			continue
		}
		if sib.Status == types.StatusInProgress {
			return nil
		}
	}
	stateID, err := w.client.ResolveWorkflowState(ctx, w.teamID, types.StatusOpen)
	if err != nil {
		return err
	}
	updated, err := w.client.UpdateIssue(ctx, parent.ID, remote.UpdateInput{StateID: &stateID})
	if err != nil {
		return err
	}
	return w.st.UpsertIssue(ctx, IssueFromRemote(updated))
}

// HydrateRelations fetches outgoing/incoming relations for each of the
// given issue IDs with bounded parallelism (relationWorkers concurrent
// Remote requests at a time). Used by the sync engine's on-demand
// `show --sync` hydration path and not by the drain loop itself.
func HydrateRelations(ctx context.Context, client remote.Client, st *store.Store, issueIDs []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(relationWorkers)

	for _, id := range issueIDs {
		id := id
		g.Go(func() error {
			out, in, err := client.FetchRelations(ctx, id)
			if err != nil {
				return nil // best-effort; individual failures don't abort the batch
			}
			for _, rel := range append(out, in...) {
				if err := st.UpsertDep(ctx, &types.Dependency{IssueID: rel.FromID, DependsOnID: rel.ToID, Type: rel.Type}); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// IssueFromRemote maps a Remote issue to the local cache shape; exported
// so the foreground --sync write paths can reuse the same translation
// the worker uses.
func IssueFromRemote(ri *remote.Issue) *types.Issue {
	status := remote.StateTypeToStatus(ri.StateType)
	issue := &types.Issue{
		ID:         ri.ID,
		Identifier: ri.Identifier,
		Title:      ri.Title,
		Description: ri.Description,
		Status:     status,
		Priority:   remote.PriorityToLocal(ri.Priority),
		Assignee:   ri.AssigneeEmail,
		CreatedAt:  ri.CreatedAt,
		UpdatedAt:  ri.UpdatedAt,
	}
	if status == types.StatusClosed {
		issue.ClosedAt = closedAtOrNow(ri)
	}
	return issue
}

// closedAtOrNow picks the Remote's own completion timestamp when present,
// falling back to the issue's updated-at so a closed issue always
// satisfies Issue.Validate's closed_at requirement.
func closedAtOrNow(ri *remote.Issue) *time.Time {
	if ri.CompletedAt != nil {
		return ri.CompletedAt
	}
	t := ri.UpdatedAt
	return &t
}

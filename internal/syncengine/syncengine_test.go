package syncengine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nikvdp/lb/internal/config"
	"github.com/nikvdp/lb/internal/remote"
	"github.com/nikvdp/lb/internal/store"
	"github.com/nikvdp/lb/internal/types"
)

// fakeClient wires up only the remote.Client methods the sync engine
// actually calls; everything else is unused by this package.
type fakeClient struct {
	team        *remote.Team
	pages       [][]remote.Issue
	createErr   error
	fetchCalls  int
	lastOptions []remote.FetchOptions
}

func (f *fakeClient) IdentifyUser(ctx context.Context) (*remote.User, error) { return nil, nil }
func (f *fakeClient) ListTeams(ctx context.Context) ([]remote.Team, error)  { return nil, nil }
func (f *fakeClient) ResolveTeam(ctx context.Context, key string) (*remote.Team, error) {
	return f.team, nil
}
func (f *fakeClient) GetOrCreateLabel(ctx context.Context, teamID, name string) (*remote.RemoteLabel, error) {
	return &remote.RemoteLabel{ID: "label-" + name}, nil
}
func (f *fakeClient) GetOrCreateLabelGroup(ctx context.Context, teamID, groupName, childName string) (*remote.RemoteLabel, error) {
	return &remote.RemoteLabel{ID: "project-" + groupName + "-" + childName}, nil
}
func (f *fakeClient) ResolveWorkflowState(ctx context.Context, teamID string, status types.Status) (string, error) {
	return "", nil
}
func (f *fakeClient) CreateIssue(ctx context.Context, in remote.CreateInput) (*remote.Issue, error) {
	return nil, f.createErr
}
func (f *fakeClient) UpdateIssue(ctx context.Context, id string, in remote.UpdateInput) (*remote.Issue, error) {
	return nil, nil
}
func (f *fakeClient) DeleteIssue(ctx context.Context, id string) error         { return nil }
func (f *fakeClient) SetParent(ctx context.Context, id, parentID string) error { return nil }
func (f *fakeClient) CreateRelation(ctx context.Context, fromID, toID string, t types.DepType) error {
	return nil
}
func (f *fakeClient) DeleteRelation(ctx context.Context, fromID, toID string, t types.DepType) error {
	return nil
}
func (f *fakeClient) CreateComment(ctx context.Context, issueID, body string) error { return nil }
func (f *fakeClient) FetchIssues(ctx context.Context, opts remote.FetchOptions) ([]remote.Issue, string, error) {
	f.lastOptions = append(f.lastOptions, opts)
	idx := f.fetchCalls
	f.fetchCalls++
	if idx >= len(f.pages) {
		return nil, "", nil
	}
	next := ""
	if idx+1 < len(f.pages) {
		next = "cursor-" + string(rune('a'+idx+1))
	}
	return f.pages[idx], next, nil
}
func (f *fakeClient) FetchRelations(ctx context.Context, issueID string) ([]remote.Relation, []remote.Relation, error) {
	return nil, nil, nil
}
func (f *fakeClient) FetchIssueWithRelations(ctx context.Context, issueID string) (*remote.Issue, []remote.Relation, []remote.Relation, error) {
	return nil, nil, nil, nil
}

func newTestEngine(t *testing.T, client remote.Client, cfg *config.Config) (*Engine, *store.Store) {
	t.Helper()
	st, err := store.Open(context.Background(), t.TempDir()+"/cache.db")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if cfg == nil {
		cfg = &config.Config{CacheTTLSeconds: 60}
	}
	return New(st, client, cfg), st
}

func TestEnsureFreshNoOpInLocalOnlyMode(t *testing.T) {
	client := &fakeClient{}
	eng, _ := newTestEngine(t, client, &config.Config{LocalOnly: true})
	if err := eng.EnsureFresh(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if client.fetchCalls != 0 {
		t.Fatalf("expected no remote calls in local-only mode, got %d", client.fetchCalls)
	}
}

func TestEnsureFreshSkipsWhenCacheIsFresh(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{team: &remote.Team{ID: "team-1"}}
	eng, st := newTestEngine(t, client, &config.Config{CacheTTLSeconds: 3600})
	if err := st.MarkLastSync(ctx, time.Now().UTC(), true); err != nil {
		t.Fatal(err)
	}
	if err := eng.EnsureFresh(ctx, false); err != nil {
		t.Fatal(err)
	}
	if client.fetchCalls != 0 {
		t.Fatalf("expected the fresh cache to skip a sync, got %d fetch calls", client.fetchCalls)
	}
}

func TestEnsureFreshForcesSyncEvenWhenFresh(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{team: &remote.Team{ID: "team-1"}, pages: [][]remote.Issue{{}}}
	eng, st := newTestEngine(t, client, &config.Config{CacheTTLSeconds: 3600})
	if err := st.MarkLastSync(ctx, time.Now().UTC(), true); err != nil {
		t.Fatal(err)
	}
	if err := eng.EnsureFresh(ctx, true); err != nil {
		t.Fatal(err)
	}
	if client.fetchCalls == 0 {
		t.Fatal("expected force=true to trigger a sync regardless of freshness")
	}
}

func TestPushOutboxReportsSuccessAndFailure(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{createErr: errors.New("boom")}
	eng, st := newTestEngine(t, client, nil)

	good := types.CreatePayload{LocalID: "local-1", Title: "ok"}
	goodData, err := json.Marshal(good)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.Enqueue(ctx, types.OpCreate, goodData); err != nil {
		t.Fatal(err)
	}

	result, err := eng.PushOutbox(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if result.Failed != 1 || result.Success != 0 {
		t.Fatalf("expected the create to fail against the stub client, got %+v", result)
	}

	size, err := st.OutboxSize(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if size != 1 {
		t.Fatalf("expected the failed item to remain queued for retry, got outbox size %d", size)
	}
}

func TestFullPullClearsIssuesAndHydratesParentChild(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	client := &fakeClient{
		team: &remote.Team{ID: "team-1"},
		pages: [][]remote.Issue{
			{
				{ID: "parent-r", Identifier: "eng-1", Title: "parent", StateType: "unstarted", CreatedAt: now, UpdatedAt: now},
				{ID: "child-r", Identifier: "eng-2", Title: "child", StateType: "unstarted", ParentID: "parent-r", CreatedAt: now, UpdatedAt: now},
			},
		},
	}
	eng, st := newTestEngine(t, client, &config.Config{CacheTTLSeconds: 60})

	if err := eng.fullPull(ctx); err != nil {
		t.Fatal(err)
	}

	issues, err := st.ListIssues(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues after the full pull, got %d", len(issues))
	}

	parentID, err := st.Parent(ctx, "child-r")
	if err != nil {
		t.Fatal(err)
	}
	if parentID != "parent-r" {
		t.Fatalf("expected parent-child edge to be hydrated from ParentID, got %q", parentID)
	}
}

func TestIncrementalPullFallsBackToFullWhenNeverSynced(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{team: &remote.Team{ID: "team-1"}, pages: [][]remote.Issue{{}}}
	eng, _ := newTestEngine(t, client, &config.Config{CacheTTLSeconds: 60})

	if err := eng.incrementalPull(ctx); err != nil {
		t.Fatal(err)
	}
	if client.fetchCalls != 1 {
		t.Fatalf("expected the never-synced case to fall through to a full pull, got %d fetch calls", client.fetchCalls)
	}
}

func TestFetchOptionsScopeProjectSetsProjectID(t *testing.T) {
	client := &fakeClient{team: &remote.Team{ID: "team-1"}}
	eng, _ := newTestEngine(t, client, &config.Config{RepoScope: config.ScopeProject, RepoName: "lb"})
	eng.teamID = "team-1"

	opts, err := eng.fetchOptions(nil)
	if err != nil {
		t.Fatal(err)
	}
	if opts.RepoProjectID == "" {
		t.Fatal("expected repo_scope=project to resolve and set RepoProjectID")
	}
	if opts.RepoLabelID != "" {
		t.Fatalf("expected project scope to not also set a flat repo label, got %q", opts.RepoLabelID)
	}
}

func TestFetchOptionsScopeBothSetsLabelAndProjectID(t *testing.T) {
	client := &fakeClient{team: &remote.Team{ID: "team-1"}}
	eng, _ := newTestEngine(t, client, &config.Config{RepoScope: config.ScopeBoth, RepoName: "lb"})
	eng.teamID = "team-1"

	opts, err := eng.fetchOptions(nil)
	if err != nil {
		t.Fatal(err)
	}
	if opts.RepoLabelID == "" {
		t.Fatal("expected repo_scope=both to set the flat repo label")
	}
	if opts.RepoProjectID == "" {
		t.Fatal("expected repo_scope=both to also set the project id")
	}
}

func TestNeedsFullSyncWhenStale(t *testing.T) {
	ctx := context.Background()
	eng, st := newTestEngine(t, &fakeClient{}, nil)

	needs, err := eng.needsFullSync(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !needs {
		t.Fatal("expected a never-synced store to need a full sync")
	}

	if err := st.MarkLastSync(ctx, time.Now().UTC(), true); err != nil {
		t.Fatal(err)
	}
	needs, err = eng.needsFullSync(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if needs {
		t.Fatal("expected a just-fully-synced store to not need another full sync immediately")
	}
}

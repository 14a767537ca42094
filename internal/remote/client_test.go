package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nikvdp/lb/internal/errs"
	"github.com/nikvdp/lb/internal/types"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *LinearClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewLinearClient("test-key").WithEndpoint(srv.URL)
}

func jsonHandler(t *testing.T, data interface{}) http.HandlerFunc {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatal(err)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "test-key" {
			t.Errorf("expected the api key to be sent as the auth header, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":` + string(raw) + `}`))
	}
}

func TestIdentifyUserDecodesViewer(t *testing.T) {
	client := newTestClient(t, jsonHandler(t, map[string]interface{}{
		"viewer": map[string]string{"id": "u1", "email": "me@example.com", "name": "Me"},
	}))
	user, err := client.IdentifyUser(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if user.Email != "me@example.com" {
		t.Fatalf("expected viewer email to round-trip, got %q", user.Email)
	}
}

func TestResolveTeamFindsMatchingKey(t *testing.T) {
	client := newTestClient(t, jsonHandler(t, map[string]interface{}{
		"teams": map[string]interface{}{
			"nodes": []map[string]string{
				{"id": "t1", "key": "ENG", "name": "Engineering"},
				{"id": "t2", "key": "OPS", "name": "Operations"},
			},
		},
	}))
	team, err := client.ResolveTeam(context.Background(), "OPS")
	if err != nil {
		t.Fatal(err)
	}
	if team.ID != "t2" {
		t.Fatalf("expected to resolve team t2, got %+v", team)
	}
}

func TestResolveTeamNotFoundIsErrNotFound(t *testing.T) {
	client := newTestClient(t, jsonHandler(t, map[string]interface{}{
		"teams": map[string]interface{}{"nodes": []map[string]string{}},
	}))
	_, err := client.ResolveTeam(context.Background(), "MISSING")
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDoReturnsErrAuthOnUnauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{}`))
	})
	_, err := client.IdentifyUser(context.Background())
	if !errors.Is(err, errs.ErrAuth) {
		t.Fatalf("expected ErrAuth on a 401, got %v", err)
	}
}

func TestDoSurfacesGraphQLErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"errors":[{"message":"team not found"}]}`))
	})
	_, err := client.ListTeams(context.Background())
	if err == nil {
		t.Fatal("expected a GraphQL-level error to surface")
	}
}

func TestResolveWorkflowStatePicksMatchingStateType(t *testing.T) {
	client := newTestClient(t, jsonHandler(t, map[string]interface{}{
		"team": map[string]interface{}{
			"states": map[string]interface{}{
				"nodes": []map[string]string{
					{"id": "s1", "type": "unstarted"},
					{"id": "s2", "type": "started"},
				},
			},
		},
	}))
	id, err := client.ResolveWorkflowState(context.Background(), "team-1", types.StatusInProgress)
	if err != nil {
		t.Fatal(err)
	}
	if id != "s2" {
		t.Fatalf("expected the started state's id, got %q", id)
	}
}

func TestFetchIssuesReturnsNextCursorOnlyWhenMore(t *testing.T) {
	client := newTestClient(t, jsonHandler(t, map[string]interface{}{
		"issues": map[string]interface{}{
			"nodes": []map[string]interface{}{
				{"id": "r1", "identifier": "eng-1", "title": "t"},
			},
			"pageInfo": map[string]interface{}{"hasNextPage": true, "endCursor": "abc"},
		},
	}))
	issues, next, err := client.FetchIssues(context.Background(), FetchOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(issues) != 1 || next != "abc" {
		t.Fatalf("expected 1 issue and cursor abc, got %d issues, cursor %q", len(issues), next)
	}
}

func TestCreateRelationTranslatesUniqueViolation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`relation already exists`))
	})
	err := client.CreateRelation(context.Background(), "a", "b", types.DepBlocks)
	if !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected ErrConflict for a duplicate relation, got %v", err)
	}
}

func TestRelationTypeStringRoundTrip(t *testing.T) {
	if got := relationTypeString(types.DepBlocks); got != "blocks" {
		t.Errorf("expected blocks, got %q", got)
	}
	if got := relationTypeFromString("blocks"); got != types.DepBlocks {
		t.Errorf("expected DepBlocks, got %v", got)
	}
	if got := relationTypeString(types.DepDiscoveredFrom); got != "duplicate" {
		t.Errorf("expected duplicate, got %q", got)
	}
	if got := relationTypeFromString("unknown"); got != types.DepRelated {
		t.Errorf("expected the default to collapse to related, got %v", got)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(errors.New("label already exists")) {
		t.Error("expected a message containing 'already exists' to be detected")
	}
	if isUniqueViolation(errors.New("network timeout")) {
		t.Error("expected an unrelated error to not be flagged as a unique violation")
	}
	if isUniqueViolation(nil) {
		t.Error("expected a nil error to not be flagged")
	}
}

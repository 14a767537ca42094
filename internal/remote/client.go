package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/nikvdp/lb/internal/errs"
	"github.com/nikvdp/lb/internal/types"
)

const defaultEndpoint = "https://api.linear.app/graphql"

// LinearClient is the concrete Client implementation talking to Linear's
// GraphQL API over net/http. Its wire format is intentionally treated as
// an implementation detail;
// only the capability surface in remote.Client is load-bearing for the
// rest of this repo.
type LinearClient struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
}

// NewLinearClient builds a client authenticated with apiKey.
func NewLinearClient(apiKey string) *LinearClient {
	return &LinearClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		endpoint:   defaultEndpoint,
		apiKey:     apiKey,
	}
}

// WithEndpoint overrides the GraphQL endpoint, used by tests and
// self-hosted Remote instances.
func (c *LinearClient) WithEndpoint(endpoint string) *LinearClient {
	c2 := *c
	c2.endpoint = endpoint
	return &c2
}

type gqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type gqlError struct {
	Message string `json:"message"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors,omitempty"`
}

// do executes a single GraphQL request with exponential-backoff retry on
// transient network failure, distinguishing it from a fatal auth error.
func (c *LinearClient) do(ctx context.Context, query string, vars map[string]interface{}, out interface{}) error {
	body, err := json.Marshal(gqlRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)

	var resp gqlResponse
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", c.apiKey)

		httpResp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", errs.ErrTransient, err)
		}
		defer func() { _ = httpResp.Body.Close() }()

		raw, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return fmt.Errorf("%w: reading response: %v", errs.ErrTransient, err)
		}

		if httpResp.StatusCode == http.StatusUnauthorized || httpResp.StatusCode == http.StatusForbidden {
			return backoff.Permanent(fmt.Errorf("%w: %s", errs.ErrAuth, httpResp.Status))
		}
		if httpResp.StatusCode >= 500 {
			return fmt.Errorf("%w: remote returned %s", errs.ErrTransient, httpResp.Status)
		}
		if httpResp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("remote rejected request: %s: %s", httpResp.Status, string(raw)))
		}

		if err := json.Unmarshal(raw, &resp); err != nil {
			return backoff.Permanent(fmt.Errorf("decoding response: %w", err))
		}
		if len(resp.Errors) > 0 {
			return backoff.Permanent(fmt.Errorf("remote error: %s", resp.Errors[0].Message))
		}
		return nil
	}

	if err := backoff.Retry(op, policy); err != nil {
		return err
	}
	if out != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			return fmt.Errorf("decoding data: %w", err)
		}
	}
	return nil
}

func (c *LinearClient) IdentifyUser(ctx context.Context) (*User, error) {
	var data struct {
		Viewer User `json:"viewer"`
	}
	if err := c.do(ctx, `query { viewer { id email name } }`, nil, &data); err != nil {
		return nil, err
	}
	return &data.Viewer, nil
}

func (c *LinearClient) ListTeams(ctx context.Context) ([]Team, error) {
	var data struct {
		Teams struct {
			Nodes []Team `json:"nodes"`
		} `json:"teams"`
	}
	if err := c.do(ctx, `query { teams { nodes { id key name } } }`, nil, &data); err != nil {
		return nil, err
	}
	return data.Teams.Nodes, nil
}

func (c *LinearClient) ResolveTeam(ctx context.Context, key string) (*Team, error) {
	teams, err := c.ListTeams(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range teams {
		if t.Key == key {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("team %q: %w", key, errs.ErrNotFound)
}

func (c *LinearClient) GetOrCreateLabel(ctx context.Context, teamID, name string) (*RemoteLabel, error) {
	var data struct {
		IssueLabelCreate struct {
			IssueLabel RemoteLabel `json:"issueLabel"`
		} `json:"issueLabelCreate"`
	}
	err := c.do(ctx, `mutation($teamId: String!, $name: String!) {
		issueLabelCreate(input: { teamId: $teamId, name: $name }) { issueLabel { id name } }
	}`, map[string]interface{}{"teamId": teamID, "name": name}, &data)
	if err != nil {
		return nil, err
	}
	return &data.IssueLabelCreate.IssueLabel, nil
}

func (c *LinearClient) GetOrCreateLabelGroup(ctx context.Context, teamID, groupName, childName string) (*RemoteLabel, error) {
	group, err := c.GetOrCreateLabel(ctx, teamID, groupName)
	if err != nil {
		return nil, err
	}
	var data struct {
		IssueLabelCreate struct {
			IssueLabel RemoteLabel `json:"issueLabel"`
		} `json:"issueLabelCreate"`
	}
	err = c.do(ctx, `mutation($teamId: String!, $name: String!, $parentId: String!) {
		issueLabelCreate(input: { teamId: $teamId, name: $name, parentId: $parentId }) { issueLabel { id name } }
	}`, map[string]interface{}{"teamId": teamID, "name": childName, "parentId": group.ID}, &data)
	if err != nil {
		return nil, err
	}
	return &data.IssueLabelCreate.IssueLabel, nil
}

// ResolveWorkflowState picks some state of the status's workflow-state
// type for teamID.
func (c *LinearClient) ResolveWorkflowState(ctx context.Context, teamID string, status types.Status) (string, error) {
	stateType := StatusToStateType(status)
	var data struct {
		Team struct {
			States struct {
				Nodes []struct {
					ID   string `json:"id"`
					Type string `json:"type"`
				} `json:"nodes"`
			} `json:"states"`
		} `json:"team"`
	}
	err := c.do(ctx, `query($teamId: String!) {
		team(id: $teamId) { states { nodes { id type } } }
	}`, map[string]interface{}{"teamId": teamID}, &data)
	if err != nil {
		return "", err
	}
	for _, st := range data.Team.States.Nodes {
		if st.Type == stateType {
			return st.ID, nil
		}
	}
	return "", fmt.Errorf("no workflow state of type %q on team %s: %w", stateType, teamID, errs.ErrNotFound)
}

func (c *LinearClient) CreateIssue(ctx context.Context, in CreateInput) (*Issue, error) {
	var data struct {
		IssueCreate struct {
			Issue Issue `json:"issue"`
		} `json:"issueCreate"`
	}
	vars := map[string]interface{}{
		"teamId":      in.TeamID,
		"title":       in.Title,
		"description": in.Description,
		"priority":    in.Priority,
		"labelIds":    in.LabelIDs,
	}
	if in.ParentID != "" {
		vars["parentId"] = in.ParentID
	}
	err := c.do(ctx, `mutation($teamId: String!, $title: String!, $description: String, $priority: Int, $labelIds: [String!], $parentId: String) {
		issueCreate(input: { teamId: $teamId, title: $title, description: $description, priority: $priority, labelIds: $labelIds, parentId: $parentId }) {
			issue { id identifier title description priority stateId parentId createdAt updatedAt completedAt }
		}
	}`, vars, &data)
	if err != nil {
		return nil, err
	}
	return &data.IssueCreate.Issue, nil
}

func (c *LinearClient) UpdateIssue(ctx context.Context, id string, in UpdateInput) (*Issue, error) {
	vars := map[string]interface{}{"id": id}
	if in.Title != nil {
		vars["title"] = *in.Title
	}
	if in.Description != nil {
		vars["description"] = *in.Description
	}
	if in.StateID != nil {
		vars["stateId"] = *in.StateID
	}
	if in.Priority != nil {
		vars["priority"] = *in.Priority
	}
	if in.Unassign {
		vars["assigneeId"] = nil
	} else if in.AssigneeEmail != nil {
		vars["assigneeEmail"] = *in.AssigneeEmail
	}
	if in.ParentID != nil {
		vars["parentId"] = *in.ParentID
	}

	var data struct {
		IssueUpdate struct {
			Issue Issue `json:"issue"`
		} `json:"issueUpdate"`
	}
	err := c.do(ctx, `mutation($id: String!, $title: String, $description: String, $stateId: String, $priority: Int, $parentId: String) {
		issueUpdate(id: $id, input: { title: $title, description: $description, stateId: $stateId, priority: $priority, parentId: $parentId }) {
			issue { id identifier title description priority stateId parentId createdAt updatedAt completedAt }
		}
	}`, vars, &data)
	if err != nil {
		return nil, err
	}
	return &data.IssueUpdate.Issue, nil
}

func (c *LinearClient) DeleteIssue(ctx context.Context, id string) error {
	return c.do(ctx, `mutation($id: String!) { issueDelete(id: $id) { success } }`,
		map[string]interface{}{"id": id}, nil)
}

func (c *LinearClient) SetParent(ctx context.Context, id, parentID string) error {
	_, err := c.UpdateIssue(ctx, id, UpdateInput{ParentID: &parentID})
	return err
}

func (c *LinearClient) CreateRelation(ctx context.Context, fromID, toID string, t types.DepType) error {
	relType := relationTypeString(t)
	err := c.do(ctx, `mutation($issueId: String!, $relatedIssueId: String!, $type: String!) {
		issueRelationCreate(input: { issueId: $issueId, relatedIssueId: $relatedIssueId, type: $type }) { success }
	}`, map[string]interface{}{"issueId": fromID, "relatedIssueId": toID, "type": relType}, nil)
	if err != nil && isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", errs.ErrConflict, err)
	}
	return err
}

func (c *LinearClient) DeleteRelation(ctx context.Context, fromID, toID string, t types.DepType) error {
	return c.do(ctx, `mutation($issueId: String!, $relatedIssueId: String!) {
		issueRelationDelete(issueId: $issueId, relatedIssueId: $relatedIssueId) { success }
	}`, map[string]interface{}{"issueId": fromID, "relatedIssueId": toID}, nil)
}

func (c *LinearClient) CreateComment(ctx context.Context, issueID, body string) error {
	return c.do(ctx, `mutation($issueId: String!, $body: String!) {
		commentCreate(input: { issueId: $issueId, body: $body }) { success }
	}`, map[string]interface{}{"issueId": issueID, "body": body}, nil)
}

func (c *LinearClient) FetchIssues(ctx context.Context, opts FetchOptions) ([]Issue, string, error) {
	filter := map[string]interface{}{}
	if opts.RepoLabelID != "" {
		filter["labels"] = map[string]interface{}{"id": map[string]interface{}{"eq": opts.RepoLabelID}}
	}
	if opts.RepoProjectID != "" {
		filter["project"] = map[string]interface{}{"id": map[string]interface{}{"eq": opts.RepoProjectID}}
	}
	if opts.Since != nil {
		filter["updatedAt"] = map[string]interface{}{"gt": opts.Since.UTC().Format(time.RFC3339)}
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	var data struct {
		Issues struct {
			Nodes    []Issue `json:"nodes"`
			PageInfo struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
		} `json:"issues"`
	}
	vars := map[string]interface{}{"filter": filter, "first": pageSize}
	if opts.Cursor != "" {
		vars["after"] = opts.Cursor
	}
	err := c.do(ctx, `query($filter: IssueFilter, $first: Int, $after: String) {
		issues(filter: $filter, first: $first, after: $after) {
			nodes { id identifier title description priority stateId parentId createdAt updatedAt completedAt }
			pageInfo { hasNextPage endCursor }
		}
	}`, vars, &data)
	if err != nil {
		return nil, "", err
	}
	next := ""
	if data.Issues.PageInfo.HasNextPage {
		next = data.Issues.PageInfo.EndCursor
	}
	return data.Issues.Nodes, next, nil
}

// FetchRelations fetches outgoing and incoming relations for one issue.
// It is only ever called on demand, never in bulk, and callers treat
// per-issue failures as best-effort.
func (c *LinearClient) FetchRelations(ctx context.Context, issueID string) ([]Relation, []Relation, error) {
	var data struct {
		Issue struct {
			Relations struct {
				Nodes []struct {
					RelatedIssueID string `json:"relatedIssueId"`
					Type           string `json:"type"`
				} `json:"nodes"`
			} `json:"relations"`
			InverseRelations struct {
				Nodes []struct {
					IssueID string `json:"issueId"`
					Type    string `json:"type"`
				} `json:"nodes"`
			} `json:"inverseRelations"`
		} `json:"issue"`
	}
	err := c.do(ctx, `query($id: String!) {
		issue(id: $id) {
			relations { nodes { relatedIssueId type } }
			inverseRelations { nodes { issueId type } }
		}
	}`, map[string]interface{}{"id": issueID}, &data)
	if err != nil {
		return nil, nil, err
	}
	var out, in []Relation
	for _, n := range data.Issue.Relations.Nodes {
		out = append(out, Relation{FromID: issueID, ToID: n.RelatedIssueID, Type: relationTypeFromString(n.Type)})
	}
	for _, n := range data.Issue.InverseRelations.Nodes {
		in = append(in, Relation{FromID: n.IssueID, ToID: issueID, Type: relationTypeFromString(n.Type)})
	}
	return out, in, nil
}

func (c *LinearClient) FetchIssueWithRelations(ctx context.Context, issueID string) (*Issue, []Relation, []Relation, error) {
	issues, _, err := c.FetchIssues(ctx, FetchOptions{PageSize: 1})
	if err != nil {
		return nil, nil, nil, err
	}
	var found *Issue
	for i := range issues {
		if issues[i].ID == issueID || issues[i].Identifier == issueID {
			found = &issues[i]
			break
		}
	}
	if found == nil {
		return nil, nil, nil, fmt.Errorf("issue %s: %w", issueID, errs.ErrNotFound)
	}
	out, in, err := c.FetchRelations(ctx, issueID)
	if err != nil {
		// Best-effort: relation fetch failures don't fail the whole call.
		return found, nil, nil, nil
	}
	return found, out, in, nil
}

func relationTypeString(t types.DepType) string {
	switch t {
	case types.DepBlocks:
		return "blocks"
	case types.DepRelated:
		return "related"
	case types.DepDiscoveredFrom:
		return "duplicate" // closest Remote-native concept; informational only
	default:
		return "related"
	}
}

func relationTypeFromString(s string) types.DepType {
	switch s {
	case "blocks":
		return types.DepBlocks
	case "duplicate":
		return types.DepDiscoveredFrom
	default:
		return types.DepRelated
	}
}

func isUniqueViolation(err error) bool {
	return err != nil && bytes.Contains([]byte(err.Error()), []byte("already exists"))
}

var _ Client = (*LinearClient)(nil)

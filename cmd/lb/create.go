package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nikvdp/lb/internal/errs"
	"github.com/nikvdp/lb/internal/idgen"
	"github.com/nikvdp/lb/internal/output"
	"github.com/nikvdp/lb/internal/remote"
	"github.com/nikvdp/lb/internal/types"
	"github.com/nikvdp/lb/internal/worker"
)

var (
	createDescription string
	createType        string
	createPriority    int
	createParent      string
	createAssign      string
	createUnassign    bool
	createSync        bool
	createDeps        depFlags
)

var createCmd = &cobra.Command{
	Use:     "create <title>",
	Short:   "Create a new issue",
	GroupID: "issues",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		title := args[0]

		specs, err := createDeps.parse()
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}

		issue := &types.Issue{
			Title:       title,
			Description: createDescription,
			Status:      types.StatusOpen,
			Priority:    createPriority,
			IssueType:   types.IssueType(createType),
		}
		if err := issue.Validate(); err != nil {
			FatalErrorRespectJSON("%v", err)
		}

		assignee := createAssign
		if assignee == "me" {
			assignee = viewerEmail()
		}
		if !createUnassign {
			issue.Assignee = assignee
		}

		var parent *types.Issue
		if createParent != "" {
			p, err := st.GetIssue(ctx, createParent)
			if err != nil {
				FatalErrorRespectJSON("looking up parent %s: %v", createParent, err)
			}
			parent = p
		}

		if createSync {
			runCreateSync(ctx, issue, parent, specs)
			return
		}
		runCreateQueued(ctx, issue, parent, specs)
	},
}

func runCreateSync(ctx context.Context, issue *types.Issue, parent *types.Issue, specs []depSpec) {
	if client == nil {
		FatalErrorRespectJSON("remote sync requires a configured credential")
	}
	if err := ensureTeamFor(ctx); err != nil {
		FatalErrorRespectJSON("resolving team: %v", err)
	}

	in := remote.CreateInput{
		TeamID:      resolvedTeamID,
		Title:       issue.Title,
		Description: issue.Description,
		Priority:    remote.PriorityToRemote(issue.Priority),
	}
	if issue.Assignee != "" {
		in.AssigneeEmail = issue.Assignee
	}
	if parent != nil {
		in.ParentID = parent.ID
	}

	created, err := client.CreateIssue(ctx, in)
	if err != nil {
		FatalErrorRespectJSON("creating issue: %v", err)
	}
	cached := worker.IssueFromRemote(created)
	if err := st.UpsertIssue(ctx, cached); err != nil {
		FatalErrorRespectJSON("caching created issue: %v", err)
	}
	if parent != nil {
		_ = st.UpsertDep(ctx, &types.Dependency{IssueID: cached.ID, DependsOnID: parent.ID, Type: types.DepParentChild})
	}
	for _, spec := range specs {
		other, err := st.GetIssue(ctx, spec.otherID)
		if err != nil {
			fmt.Printf("warning: dependency target %s not found, skipping\n", spec.otherID)
			continue
		}
		from, to := cached.ID, other.ID
		if spec.fromOther {
			from, to = to, from
		}
		if err := client.CreateRelation(ctx, from, to, spec.depType); err != nil && !errs.Is(err, errs.ErrConflict) {
			fmt.Printf("warning: creating relation failed: %v\n", err)
			continue
		}
		_ = st.UpsertDep(ctx, &types.Dependency{IssueID: from, DependsOnID: to, Type: spec.depType})
	}

	printIssue(cached)
}

func runCreateQueued(ctx context.Context, issue *types.Issue, parent *types.Issue, specs []depSpec) {
	now := time.Now().UTC()
	issue.CreatedAt = now
	issue.UpdatedAt = now

	var placeholder string
	if cfg.LocalOnly || client == nil {
		n, err := st.NextLocalID(ctx)
		if err != nil {
			FatalErrorRespectJSON("allocating local id: %v", err)
		}
		placeholder = idgen.Local(n)
	} else {
		placeholder = idgen.Pending(uuid.NewString()[:8])
	}
	issue.ID = placeholder
	issue.Identifier = placeholder

	if err := st.UpsertIssue(ctx, issue); err != nil {
		FatalErrorRespectJSON("caching issue: %v", err)
	}

	payload := types.CreatePayload{
		LocalID:     placeholder,
		Title:       issue.Title,
		Description: issue.Description,
		Priority:    issue.Priority,
		IssueType:   issue.IssueType,
		Assignee:    issue.Assignee,
	}
	if parent != nil {
		payload.ParentLocalID = parent.Identifier
		_ = st.UpsertDep(ctx, &types.Dependency{IssueID: issue.ID, DependsOnID: parent.ID, Type: types.DepParentChild})
	}
	for _, spec := range specs {
		other, err := st.GetIssue(ctx, spec.otherID)
		if err != nil {
			fmt.Printf("warning: dependency target %s not found, skipping\n", spec.otherID)
			continue
		}
		from, to := issue.ID, other.ID
		if spec.fromOther {
			from, to = to, from
		}
		_ = st.UpsertDep(ctx, &types.Dependency{IssueID: from, DependsOnID: to, Type: spec.depType})
		payload.DeferredRelations = append(payload.DeferredRelations, types.DeferredRelation{
			OtherLocalID: other.Identifier, Type: spec.depType, Inverse: spec.fromOther,
		})
	}

	if !cfg.LocalOnly && client != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			FatalErrorRespectJSON("encoding outbox payload: %v", err)
		}
		if _, err := st.Enqueue(ctx, types.OpCreate, data); err != nil {
			FatalErrorRespectJSON("enqueueing create: %v", err)
		}
		currentApp().signalWorker()
	}

	printIssue(issue)
}

func printIssue(issue *types.Issue) {
	if jsonOutput {
		outputJSON(issue)
		return
	}
	fmt.Println(output.IssueLine(issue))
}

func init() {
	createCmd.Flags().StringVarP(&createDescription, "description", "d", "", "issue description")
	createCmd.Flags().StringVarP(&createType, "type", "t", "", "issue type")
	createCmd.Flags().IntVarP(&createPriority, "priority", "p", 2, "priority (0-4)")
	createCmd.Flags().StringVar(&createParent, "parent", "", "parent issue id")
	createCmd.Flags().StringVar(&createAssign, "assign", "", "assignee email, or \"me\"")
	createCmd.Flags().BoolVar(&createUnassign, "unassign", false, "leave the issue unassigned")
	createCmd.Flags().BoolVar(&createSync, "sync", false, "create the issue on the remote tracker inline")
	createCmd.Flags().StringArrayVar(&createDeps.blocks, "blocks", nil, "this issue blocks <ID> (repeatable)")
	createCmd.Flags().StringArrayVar(&createDeps.blockedBy, "blocked-by", nil, "this issue is blocked by <ID> (repeatable)")
	createCmd.Flags().StringArrayVar(&createDeps.related, "related", nil, "this issue is related to <ID> (repeatable)")
	createCmd.Flags().StringArrayVar(&createDeps.discoveredFrom, "discovered-from", nil, "this issue was discovered from <ID> (repeatable)")
	createCmd.Flags().StringVar(&createDeps.legacy, "deps", "", "comma-separated type:ID dependency list")
	rootCmd.AddCommand(createCmd)
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nikvdp/lb/internal/errs"
	"github.com/nikvdp/lb/internal/remote"
	"github.com/nikvdp/lb/internal/types"
	"github.com/nikvdp/lb/internal/worker"
)

var (
	updateTitle       string
	updateDescription string
	updateStatus      string
	updatePriority    int
	updateAssign      string
	updateUnassign    bool
	updateParent      string
	updateSync        bool
	updateDeps        depFlags
)

var updateCmd = &cobra.Command{
	Use:     "update <id>",
	Short:   "Update an existing issue",
	GroupID: "issues",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		id := args[0]

		specs, err := updateDeps.parse()
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}

		issue, err := st.GetIssue(ctx, id)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}

		var status *types.Status
		if updateStatus != "" {
			s := types.Status(updateStatus)
			if !s.Valid() {
				FatalErrorRespectJSON("%v: unknown status %q", errs.ErrValidation, updateStatus)
			}
			status = &s
		}
		if cmd.Flags().Changed("priority") {
			if updatePriority < types.PriorityMin || updatePriority > types.PriorityMax {
				FatalErrorRespectJSON("%v: priority must be between %d and %d", errs.ErrValidation, types.PriorityMin, types.PriorityMax)
			}
		}

		var parent *types.Issue
		if updateParent != "" {
			p, err := st.GetIssue(ctx, updateParent)
			if err != nil {
				FatalErrorRespectJSON("looking up parent %s: %v", updateParent, err)
			}
			parent = p
		}

		if updateSync {
			runUpdateSync(ctx, issue, status, parent, specs)
			return
		}
		runUpdateQueued(ctx, issue, status, parent, specs)
	},
}

func applyUpdateFields(issue *types.Issue, status *types.Status) {
	if updateCmd.Flags().Changed("title") {
		issue.Title = updateTitle
	}
	if updateCmd.Flags().Changed("description") {
		issue.Description = updateDescription
	}
	if status != nil {
		issue.Status = *status
		if *status == types.StatusClosed {
			now := time.Now().UTC()
			issue.ClosedAt = &now
		} else {
			issue.ClosedAt = nil
		}
	}
	if updateCmd.Flags().Changed("priority") {
		issue.Priority = updatePriority
	}
	if updateUnassign {
		issue.Assignee = ""
	} else if updateAssign != "" {
		assignee := updateAssign
		if assignee == "me" {
			assignee = viewerEmail()
		}
		issue.Assignee = assignee
	}
	issue.UpdatedAt = time.Now().UTC()
}

func runUpdateSync(ctx context.Context, issue *types.Issue, status *types.Status, parent *types.Issue, specs []depSpec) {
	if client == nil {
		FatalErrorRespectJSON("remote sync requires a configured credential")
	}
	if err := ensureTeamFor(ctx); err != nil {
		FatalErrorRespectJSON("resolving team: %v", err)
	}

	in := remote.UpdateInput{Unassign: updateUnassign}
	if updateCmd.Flags().Changed("title") {
		in.Title = &updateTitle
	}
	if updateCmd.Flags().Changed("description") {
		in.Description = &updateDescription
	}
	if updateCmd.Flags().Changed("priority") {
		p := remote.PriorityToRemote(updatePriority)
		in.Priority = &p
	}
	if !updateUnassign && updateAssign != "" {
		assignee := updateAssign
		if assignee == "me" {
			assignee = viewerEmail()
		}
		in.AssigneeEmail = &assignee
	}
	if status != nil {
		stateID, err := client.ResolveWorkflowState(ctx, resolvedTeamID, *status)
		if err != nil {
			FatalErrorRespectJSON("resolving workflow state: %v", err)
		}
		in.StateID = &stateID
	}
	if parent != nil {
		in.ParentID = &parent.ID
	}

	updated, err := client.UpdateIssue(ctx, issue.ID, in)
	if err != nil {
		FatalErrorRespectJSON("updating issue: %v", err)
	}
	cached := worker.IssueFromRemote(updated)
	if err := st.UpsertIssue(ctx, cached); err != nil {
		FatalErrorRespectJSON("caching updated issue: %v", err)
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

func runUpdateQueued(ctx context.Context, issue *types.Issue, status *types.Status, parent *types.Issue, specs []depSpec) {
	applyUpdateFields(issue, status)
	if err := issue.Validate(); err != nil {
		FatalErrorRespectJSON("%v", err)
	}
	if err := st.UpsertIssue(ctx, issue); err != nil {
		FatalErrorRespectJSON("caching issue: %v", err)
	}

	payload := types.UpdatePayload{IssueID: issue.ID, Unassign: updateUnassign}
	if updateCmd.Flags().Changed("title") {
		payload.Title = &updateTitle
	}
	if updateCmd.Flags().Changed("description") {
		payload.Description = &updateDescription
	}
	if updateCmd.Flags().Changed("priority") {
		payload.Priority = &updatePriority
	}
	if status != nil {
		payload.Status = status
	}
	if !updateUnassign && updateAssign != "" {
		assignee := issue.Assignee
		payload.Assignee = &assignee
	}
	if parent != nil {
		payload.ParentID = &parent.ID
		_ = st.UpsertDep(ctx, &types.Dependency{IssueID: issue.ID, DependsOnID: parent.ID, Type: types.DepParentChild})
	}

	if !cfg.LocalOnly && client != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			FatalErrorRespectJSON("encoding outbox payload: %v", err)
		}
		if _, err := st.Enqueue(ctx, types.OpUpdate, data); err != nil {
			FatalErrorRespectJSON("enqueueing update: %v", err)
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
			relPayload, _ := json.Marshal(types.RelationPayload{IssueID: from, DependsOnID: to, Type: spec.depType})
			if _, err := st.Enqueue(ctx, types.OpCreateRelation, relPayload); err != nil {
				FatalErrorRespectJSON("enqueueing relation: %v", err)
			}
		}
		currentApp().signalWorker()
	}

	printIssue(issue)
}

func init() {
	updateCmd.Flags().StringVar(&updateTitle, "title", "", "new title")
	updateCmd.Flags().StringVarP(&updateDescription, "description", "d", "", "new description")
	updateCmd.Flags().StringVarP(&updateStatus, "status", "s", "", "new status (open, in_progress, closed)")
	updateCmd.Flags().IntVarP(&updatePriority, "priority", "p", 0, "new priority (0-4)")
	updateCmd.Flags().StringVar(&updateAssign, "assign", "", "assignee email, or \"me\"")
	updateCmd.Flags().BoolVar(&updateUnassign, "unassign", false, "clear the assignee")
	updateCmd.Flags().StringVar(&updateParent, "parent", "", "new parent issue id")
	updateCmd.Flags().BoolVar(&updateSync, "sync", false, "apply the update to the remote tracker inline")
	updateCmd.Flags().StringArrayVar(&updateDeps.blocks, "blocks", nil, "this issue blocks <ID> (repeatable)")
	updateCmd.Flags().StringArrayVar(&updateDeps.blockedBy, "blocked-by", nil, "this issue is blocked by <ID> (repeatable)")
	updateCmd.Flags().StringArrayVar(&updateDeps.related, "related", nil, "this issue is related to <ID> (repeatable)")
	rootCmd.AddCommand(updateCmd)
}

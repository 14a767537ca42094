package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nikvdp/lb/internal/remote"
	"github.com/nikvdp/lb/internal/types"
	"github.com/nikvdp/lb/internal/worker"
)

var (
	closeReason string
	closeSync   bool
)

var closeCmd = &cobra.Command{
	Use:     "close <id>",
	Short:   "Close an issue",
	GroupID: "issues",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		id := args[0]

		issue, err := st.GetIssue(ctx, id)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}

		if closeSync {
			if client == nil {
				FatalErrorRespectJSON("remote sync requires a configured credential")
			}
			if err := ensureTeamFor(ctx); err != nil {
				FatalErrorRespectJSON("resolving team: %v", err)
			}
			stateID, err := client.ResolveWorkflowState(ctx, resolvedTeamID, types.StatusClosed)
			if err != nil {
				FatalErrorRespectJSON("resolving workflow state: %v", err)
			}
			updated, err := client.UpdateIssue(ctx, issue.ID, remote.UpdateInput{StateID: &stateID})
			if err != nil {
				FatalErrorRespectJSON("closing issue: %v", err)
			}
			cached := worker.IssueFromRemote(updated)
			if err := st.UpsertIssue(ctx, cached); err != nil {
				FatalErrorRespectJSON("caching closed issue: %v", err)
			}
			printIssue(cached)
			return
		}

		now := time.Now().UTC()
		issue.Status = types.StatusClosed
		issue.ClosedAt = &now
		issue.UpdatedAt = now
		if err := st.UpsertIssue(ctx, issue); err != nil {
			FatalErrorRespectJSON("caching closed issue: %v", err)
		}

		if !cfg.LocalOnly && client != nil {
			payload, _ := json.Marshal(types.ClosePayload{IssueID: issue.ID, Reason: closeReason})
			if _, err := st.Enqueue(ctx, types.OpClose, payload); err != nil {
				FatalErrorRespectJSON("enqueueing close: %v", err)
			}
			currentApp().signalWorker()
		}

		if jsonOutput {
			outputJSON(issue)
			return
		}
		fmt.Printf("Closed %s\n", issue.Identifier)
	},
}

func init() {
	closeCmd.Flags().StringVarP(&closeReason, "reason", "r", "", "reason for closing")
	closeCmd.Flags().BoolVar(&closeSync, "sync", false, "close the issue on the remote tracker inline")
	rootCmd.AddCommand(closeCmd)
}

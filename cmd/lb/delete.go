package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nikvdp/lb/internal/types"
)

var (
	deleteForce bool
	deleteSync  bool
)

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Short:   "Delete an issue",
	GroupID: "issues",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		id := args[0]

		issue, err := st.GetIssue(ctx, id)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}

		if !deleteForce && !jsonOutput {
			fmt.Printf("Delete %s %q? [y/N] ", issue.Identifier, issue.Title)
			reader := bufio.NewReader(os.Stdin)
			answer, _ := reader.ReadString('\n')
			if strings.ToLower(strings.TrimSpace(answer)) != "y" {
				fmt.Println("Aborted.")
				return
			}
		}

		if deleteSync {
			if client == nil {
				FatalErrorRespectJSON("remote sync requires a configured credential")
			}
			if err := client.DeleteIssue(ctx, issue.ID); err != nil {
				FatalErrorRespectJSON("deleting issue: %v", err)
			}
		}

		// Optimistic cache delete precedes the outbox enqueue.
		if err := st.DeleteIssue(ctx, issue.ID); err != nil {
			FatalErrorRespectJSON("removing from cache: %v", err)
		}

		if !deleteSync && !cfg.LocalOnly && client != nil {
			payload, _ := json.Marshal(types.ClosePayload{IssueID: issue.ID})
			if _, err := st.Enqueue(ctx, types.OpDelete, payload); err != nil {
				FatalErrorRespectJSON("enqueueing delete: %v", err)
			}
			currentApp().signalWorker()
		}

		if jsonOutput {
			outputJSON(map[string]string{"deleted": issue.Identifier})
			return
		}
		fmt.Printf("Deleted %s\n", issue.Identifier)
	},
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "skip the confirmation prompt")
	deleteCmd.Flags().BoolVar(&deleteSync, "sync", false, "delete on the remote tracker inline")
	rootCmd.AddCommand(deleteCmd)
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nikvdp/lb/internal/deps"
	"github.com/nikvdp/lb/internal/output"
	"github.com/nikvdp/lb/internal/types"
)

// viewFlags is the flag set shared by list/ready/blocked.
type viewFlags struct {
	status   string
	priority int
	issueType string
	showAll  bool
	sync     bool
}

func registerViewFlags(cmd *cobra.Command, f *viewFlags) {
	cmd.Flags().StringVarP(&f.status, "status", "s", "", "filter by status (open, in_progress, closed)")
	cmd.Flags().IntVarP(&f.priority, "priority", "p", -1, "filter by priority (0-4)")
	cmd.Flags().StringVarP(&f.issueType, "type", "t", "", "filter by issue type")
	cmd.Flags().BoolVar(&f.showAll, "all", false, "include issues assigned to others")
	cmd.Flags().BoolVar(&f.sync, "sync", false, "sync with the remote tracker before listing")
}

func (f *viewFlags) matches(i *types.Issue) bool {
	if f.status != "" && string(i.Status) != f.status {
		return false
	}
	if f.priority >= 0 && i.Priority != f.priority {
		return false
	}
	if f.issueType != "" && string(i.IssueType) != f.issueType {
		return false
	}
	return true
}

func maybeSync(ctx context.Context, force bool) {
	a := currentApp()
	if a.eng == nil {
		return
	}
	if force {
		if _, err := a.eng.SmartSync(ctx, true); err != nil {
			fmt.Fprintf(os.Stderr, "lb: sync failed, showing cached data: %v\n", err)
		}
		return
	}
	if err := a.eng.EnsureFresh(ctx, false); err != nil {
		fmt.Fprintf(os.Stderr, "lb: sync failed, showing cached data: %v\n", err)
	}
}

var listFlags viewFlags

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List cached issues",
	GroupID: "views",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		maybeSync(ctx, listFlags.sync)

		issues, err := st.ListIssues(ctx)
		if err != nil {
			FatalErrorRespectJSON("listing issues: %v", err)
		}
		var out []*types.Issue
		for _, i := range issues {
			if listFlags.matches(i) {
				out = append(out, i)
			}
		}
		if jsonOutput {
			outputJSON(out)
			return
		}
		output.List(os.Stdout, out)
	},
}

var readyFlags viewFlags

var readyCmd = &cobra.Command{
	Use:     "ready",
	Short:   "List open issues that are not blocked",
	GroupID: "views",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		maybeSync(ctx, readyFlags.sync)

		out, err := deps.Ready(ctx, st, deps.ReadyFilter{ShowAll: readyFlags.showAll, ViewerEmail: viewerEmail()})
		if err != nil {
			FatalErrorRespectJSON("computing ready set: %v", err)
		}
		var filtered []*types.Issue
		for _, i := range out {
			if readyFlags.matches(i) {
				filtered = append(filtered, i)
			}
		}
		if jsonOutput {
			outputJSON(filtered)
			return
		}
		output.List(os.Stdout, filtered)
	},
}

var blockedFlags viewFlags

var blockedCmd = &cobra.Command{
	Use:     "blocked",
	Short:   "List issues that are blocked",
	GroupID: "views",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		maybeSync(ctx, blockedFlags.sync)

		out, err := deps.Blocked(ctx, st, deps.ReadyFilter{ShowAll: blockedFlags.showAll, ViewerEmail: viewerEmail()})
		if err != nil {
			FatalErrorRespectJSON("computing blocked set: %v", err)
		}
		var filtered []deps.BlockedIssue
		for _, b := range out {
			if blockedFlags.matches(b.Issue) {
				filtered = append(filtered, b)
			}
		}
		if jsonOutput {
			outputJSON(filtered)
			return
		}
		output.BlockedList(os.Stdout, filtered)
	},
}

func viewerEmail() string {
	if client == nil {
		return ""
	}
	user, err := client.IdentifyUser(context.Background())
	if err != nil {
		return ""
	}
	return user.Email
}

func init() {
	registerViewFlags(listCmd, &listFlags)
	registerViewFlags(readyCmd, &readyFlags)
	registerViewFlags(blockedCmd, &blockedFlags)
	rootCmd.AddCommand(listCmd, readyCmd, blockedCmd)
}

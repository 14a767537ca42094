package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nikvdp/lb/internal/deps"
	"github.com/nikvdp/lb/internal/errs"
	"github.com/nikvdp/lb/internal/output"
	"github.com/nikvdp/lb/internal/types"
)

var depCmd = &cobra.Command{
	Use:     "dep",
	Short:   "Manage dependency edges",
	GroupID: "deps",
}

var (
	depAddBlocks    string
	depAddBlockedBy string
	depAddRelated   string
)

var depAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Add a dependency edge from <id>",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		id := args[0]

		set := 0
		for _, v := range []string{depAddBlocks, depAddBlockedBy, depAddRelated} {
			if v != "" {
				set++
			}
		}
		if set != 1 {
			FatalErrorRespectJSON("%v: exactly one of --blocks, --blocked-by, --related is required", errs.ErrValidation)
		}

		issue, err := st.GetIssue(ctx, id)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}

		var from, to string
		var depType types.DepType
		switch {
		case depAddBlocks != "":
			other, err := st.GetIssue(ctx, depAddBlocks)
			if err != nil {
				FatalErrorRespectJSON("%v", err)
			}
			from, to, depType = issue.ID, other.ID, types.DepBlocks
		case depAddBlockedBy != "":
			other, err := st.GetIssue(ctx, depAddBlockedBy)
			if err != nil {
				FatalErrorRespectJSON("%v", err)
			}
			from, to, depType = other.ID, issue.ID, types.DepBlocks
		case depAddRelated != "":
			other, err := st.GetIssue(ctx, depAddRelated)
			if err != nil {
				FatalErrorRespectJSON("%v", err)
			}
			from, to, depType = issue.ID, other.ID, types.DepRelated
		}

		if err := st.UpsertDep(ctx, &types.Dependency{IssueID: from, DependsOnID: to, Type: depType}); err != nil {
			FatalErrorRespectJSON("adding dependency: %v", err)
		}
		if !cfg.LocalOnly && client != nil {
			relPayload, _ := json.Marshal(types.RelationPayload{IssueID: from, DependsOnID: to, Type: depType})
			if _, err := st.Enqueue(ctx, types.OpCreateRelation, relPayload); err != nil {
				FatalErrorRespectJSON("enqueueing relation: %v", err)
			}
			currentApp().signalWorker()
		}

		if jsonOutput {
			outputJSON(map[string]string{"issue_id": from, "depends_on_id": to, "type": string(depType)})
			return
		}
		fmt.Printf("Added %s edge: %s -> %s\n", depType, from, to)
	},
}

var depRemoveCmd = &cobra.Command{
	Use:   "remove <A> <B>",
	Short: "Remove the dependency edge between two issues",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := st.GetIssue(ctx, args[0])
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		b, err := st.GetIssue(ctx, args[1])
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		edges := edgesBetween(ctx, a.ID, b.ID)

		if err := st.DeleteDep(ctx, a.ID, b.ID); err != nil {
			FatalErrorRespectJSON("removing dependency: %v", err)
		}
		if !cfg.LocalOnly && client != nil {
			for _, e := range edges {
				relPayload, _ := json.Marshal(types.RelationPayload{IssueID: e.IssueID, DependsOnID: e.DependsOnID, Type: e.Type})
				if _, err := st.Enqueue(ctx, types.OpDeleteRelation, relPayload); err != nil {
					FatalErrorRespectJSON("enqueueing relation removal: %v", err)
				}
			}
			if len(edges) > 0 {
				currentApp().signalWorker()
			}
		}
		if jsonOutput {
			outputJSON(map[string]string{"removed": fmt.Sprintf("%s <-> %s", a.Identifier, b.Identifier)})
			return
		}
		fmt.Printf("Removed edge between %s and %s\n", a.Identifier, b.Identifier)
	},
}

var depTreeCmd = &cobra.Command{
	Use:   "tree <id>",
	Short: "Print the dependency tree rooted at <id>",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		issue, err := st.GetIssue(ctx, args[0])
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		nodes, err := deps.Tree(ctx, st, issue.ID)
		if err != nil {
			FatalErrorRespectJSON("walking tree: %v", err)
		}
		if jsonOutput {
			outputJSON(nodes)
			return
		}
		output.Tree(os.Stdout, nodes)
	},
}

// edgesBetween returns every dependency edge between a and b, in
// whichever orientation it was written, so `dep remove` can tell the
// Remote exactly which relation(s) to delete.
func edgesBetween(ctx context.Context, a, b string) []*types.Dependency {
	var out []*types.Dependency
	outEdges, err := st.ListDepsOut(ctx, a)
	if err == nil {
		for _, e := range outEdges {
			if e.DependsOnID == b {
				out = append(out, e)
			}
		}
	}
	inEdges, err := st.ListDepsOut(ctx, b)
	if err == nil {
		for _, e := range inEdges {
			if e.DependsOnID == a {
				out = append(out, e)
			}
		}
	}
	return out
}

func init() {
	depAddCmd.Flags().StringVar(&depAddBlocks, "blocks", "", "this issue blocks <ID>")
	depAddCmd.Flags().StringVar(&depAddBlockedBy, "blocked-by", "", "this issue is blocked by <ID>")
	depAddCmd.Flags().StringVar(&depAddRelated, "related", "", "this issue is related to <ID>")
	depCmd.AddCommand(depAddCmd, depRemoveCmd, depTreeCmd)
	rootCmd.AddCommand(depCmd)
}

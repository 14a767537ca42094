package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/nikvdp/lb/internal/output"
	"github.com/nikvdp/lb/internal/worker"
)

var showSync bool

var showCmd = &cobra.Command{
	Use:     "show <id>",
	Short:   "Show a single issue's full detail",
	GroupID: "views",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		id := args[0]

		if showSync && client != nil {
			issue, err := st.GetIssue(ctx, id)
			if err == nil {
				if err := worker.HydrateRelations(ctx, client, st, []string{issue.ID}); err != nil {
					FatalErrorRespectJSON("hydrating relations: %v", err)
				}
			}
		}

		issue, err := st.GetIssue(ctx, id)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		depsOut, err := st.ListDepsOut(ctx, issue.ID)
		if err != nil {
			FatalErrorRespectJSON("listing dependencies: %v", err)
		}
		depsIn, err := st.ListDepsIn(ctx, issue.ID)
		if err != nil {
			FatalErrorRespectJSON("listing dependents: %v", err)
		}

		if jsonOutput {
			outputJSON(map[string]interface{}{"issue": issue, "depends_on": depsOut, "required_by": depsIn})
			return
		}
		output.Detail(os.Stdout, issue, depsOut, depsIn)
	},
}

func init() {
	showCmd.Flags().BoolVar(&showSync, "sync", false, "hydrate relations from the remote tracker before showing")
	rootCmd.AddCommand(showCmd)
}

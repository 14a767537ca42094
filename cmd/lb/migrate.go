package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nikvdp/lb/internal/config"
)

var (
	migrateDryRun      bool
	migrateRemoveLabel bool
)

var migrateCmd = &cobra.Command{
	Use:     "migrate",
	Short:   "One-shot maintenance operations on the cached repo scheme",
	GroupID: "sync",
}

var migrateRemoveTypeLabelsCmd = &cobra.Command{
	Use:   "remove-type-labels",
	Short: "Clear the cached issue_type field on every issue",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		issues, err := st.ListIssues(ctx)
		if err != nil {
			FatalErrorRespectJSON("listing issues: %v", err)
		}

		var touched int
		for _, issue := range issues {
			if issue.IssueType == "" {
				continue
			}
			touched++
			if migrateDryRun {
				continue
			}
			issue.IssueType = ""
			if err := st.UpsertIssue(ctx, issue); err != nil {
				FatalErrorRespectJSON("clearing issue_type on %s: %v", issue.Identifier, err)
			}
		}

		if migrateRemoveLabel && !migrateDryRun {
			fmt.Println("note: the remote client has no label-deletion capability; remove the type labels from the tracker's team settings by hand")
		}

		if jsonOutput {
			outputJSON(map[string]interface{}{"dry_run": migrateDryRun, "issues_touched": touched})
			return
		}
		verb := "Cleared"
		if migrateDryRun {
			verb = "Would clear"
		}
		fmt.Printf("%s issue_type on %d issue(s)\n", verb, touched)
	},
}

var migrateToProjectCmd = &cobra.Command{
	Use:   "to-project",
	Short: "Switch repo scoping from a label to a project",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if cfg.RepoScope == config.ScopeProject {
			fmt.Println("repo is already scoped by project")
			return
		}

		if migrateDryRun {
			if jsonOutput {
				outputJSON(map[string]interface{}{"dry_run": true, "from": string(cfg.RepoScope), "to": string(config.ScopeProject)})
				return
			}
			fmt.Printf("Would switch repo_scope from %s to %s\n", cfg.RepoScope, config.ScopeProject)
			return
		}

		configPath := config.StateDir(cfg.RepoRoot) + "/config.jsonc"
		if err := setRepoConfigField(configPath, "repo_scope", string(config.ScopeProject)); err != nil {
			FatalErrorRespectJSON("writing repo_scope: %v", err)
		}
		cfg.RepoScope = config.ScopeProject

		if migrateRemoveLabel {
			fmt.Println("note: the remote client has no label-deletion capability; remove the old scoping label from the tracker by hand")
		}

		if jsonOutput {
			outputJSON(map[string]string{"repo_scope": string(cfg.RepoScope)})
			return
		}
		fmt.Println("Switched repo scoping to project. Run `lb sync --full` to re-pull under the new scope.")
	},
}

func init() {
	migrateCmd.PersistentFlags().BoolVar(&migrateDryRun, "dry-run", false, "report what would change without mutating anything")
	migrateCmd.PersistentFlags().BoolVar(&migrateRemoveLabel, "remove-label", false, "also flag the now-unused label for manual removal")
	migrateCmd.AddCommand(migrateRemoveTypeLabelsCmd, migrateToProjectCmd)
	rootCmd.AddCommand(migrateCmd)
}

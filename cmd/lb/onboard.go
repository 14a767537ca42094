package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

const agentsContent = `## Issue Tracking with lb

**IMPORTANT**: This project tracks issues with **lb**, an offline-first CLI
backed by the remote tracker. Do not duplicate that state in markdown TODOs.

### Why lb?

- Offline-first: every read comes from a local cache; writes queue for
  background sync when the remote tracker is reachable
- Dependency-aware: blocks/related/parent-child/discovered-from edges,
  with ready-work and blocked-work queries built on the dependency graph
- Git-friendly: a debounced JSONL snapshot at .lb/issues.jsonl diffs cleanly
- Agent-optimized: every command accepts --json for scripted consumption

### Quick Start

` + "```bash" + `
lb ready --json
` + "```" + `

**Create new issues:**
` + "```bash" + `
lb create "Issue title" -t bug -p 1 --json
lb create "Issue title" -p 2 --discovered-from <id> --json
` + "```" + `

**Claim and update:**
` + "```bash" + `
lb update <id> -s in_progress --json
lb update <id> -p 0 --json
` + "```" + `

**Complete work:**
` + "```bash" + `
lb close <id> -r "done" --json
` + "```" + `

### Issue Types

- ` + "`bug`" + ` - something broken
- ` + "`feature`" + ` - new functionality
- ` + "`task`" + ` - work item (tests, docs, refactoring)
- ` + "`epic`" + ` - large feature with subtasks
- ` + "`chore`" + ` - maintenance

### Priorities

- ` + "`0`" + ` - critical
- ` + "`1`" + ` - high
- ` + "`2`" + ` - medium (default)
- ` + "`3`" + ` - low
- ` + "`4`" + ` - backlog

### Workflow for AI Agents

1. Check ready work: ` + "`lb ready`" + `
2. Claim a task: ` + "`lb update <id> -s in_progress`" + `
3. Work on it
4. Discovered new work? Link it: ` + "`lb create \"...\" --discovered-from <id>`" + `
5. Finish: ` + "`lb close <id> -r \"...\"`" + `
6. Commit ` + "`.lb/issues.jsonl`" + ` alongside the code change so issue state
   stays in sync with the commit that caused it

### Sync model

lb queues writes locally and drains them to the remote tracker through a
background worker; ` + "`lb sync`" + ` pushes queued writes and pulls the
latest state right away. No manual export/import step is required for day-to-day use;
` + "`lb export`" + `/` + "`lb import`" + ` exist for moving a snapshot between repos.

### Important rules

- Use lb for all task tracking in this repo
- Always pass --json from scripts or agents
- Link discovered work with --discovered-from
- Check ` + "`lb ready`" + ` before asking what to work on next
`

func renderOnboardInstructions(w io.Writer) error {
	bold := lipgloss.NewStyle().Bold(true)
	accent := lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	good := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	writef := func(format string, args ...interface{}) error {
		_, err := fmt.Fprintf(w, format, args...)
		return err
	}

	if err := writef("\n%s\n\n", bold.Render("lb onboarding instructions for AI agents")); err != nil {
		return err
	}
	if err := writef("%s\n\n", "Add the section below to AGENTS.md (create it if absent), integrating it naturally into any existing structure:"); err != nil {
		return err
	}
	if err := writef("%s\n", accent.Render("--- BEGIN AGENTS.MD CONTENT ---")); err != nil {
		return err
	}
	if err := writef("%s\n", agentsContent); err != nil {
		return err
	}
	if err := writef("%s\n\n", accent.Render("--- END AGENTS.MD CONTENT ---")); err != nil {
		return err
	}
	if err := writef("%s\n", good.Render("When done, tell your assistant: \"lb onboarding complete\"")); err != nil {
		return err
	}
	return nil
}

var onboardOutput string

var onboardCmd = &cobra.Command{
	Use:     "onboard",
	Short:   "Print AGENTS.md instructions for adopting lb in this repo",
	GroupID: "setup",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		if onboardOutput != "" {
			f, err := os.Create(onboardOutput) // #nosec G304 -- path is an explicit CLI flag
			if err != nil {
				FatalErrorRespectJSON("creating %s: %v", onboardOutput, err)
			}
			defer func() { _ = f.Close() }()
			w = f
		}
		if err := renderOnboardInstructions(w); err != nil {
			FatalErrorRespectJSON("rendering onboarding instructions: %v", err)
		}
	},
}

func init() {
	onboardCmd.Flags().StringVarP(&onboardOutput, "output", "o", "", "write instructions to this file instead of stdout")
	rootCmd.AddCommand(onboardCmd)
}

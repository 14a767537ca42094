// Package output renders issues for the CLI's human and JSON surfaces,
// built on github.com/charmbracelet/lipgloss for color and
// github.com/dustin/go-humanize for relative timestamps. The display
// surface here is intentionally small: no pager, no watch mode, no
// compaction — just compact lines, lists, trees, and a detail view.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/nikvdp/lb/internal/deps"
	"github.com/nikvdp/lb/internal/types"
)

var (
	styleOpen       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleInProgress = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	styleClosed     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleReady      = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	styleCycle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// JSON writes v as indented JSON to w.
func JSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func statusSymbol(s types.Status) string {
	switch s {
	case types.StatusOpen:
		return styleOpen.Render("○")
	case types.StatusInProgress:
		return styleInProgress.Render("◐")
	case types.StatusClosed:
		return styleClosed.Render("●")
	default:
		return "?"
	}
}

// IssueLine renders one issue as a compact single line.
func IssueLine(issue *types.Issue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-12s P%d  %s", statusSymbol(issue.Status), issue.Identifier, issue.Priority, issue.Title)
	if issue.Assignee != "" {
		fmt.Fprintf(&b, "  (%s)", issue.Assignee)
	}
	fmt.Fprintf(&b, "  %s", humanize.Time(issue.UpdatedAt))
	return b.String()
}

// List renders a slice of issues, one line each.
func List(w io.Writer, issues []*types.Issue) {
	for _, issue := range issues {
		fmt.Fprintln(w, IssueLine(issue))
	}
}

// BlockedList renders blocked issues along with their direct blockers.
func BlockedList(w io.Writer, blocked []deps.BlockedIssue) {
	for _, b := range blocked {
		fmt.Fprintln(w, IssueLine(b.Issue))
		for _, blocker := range b.BlockedBy {
			fmt.Fprintf(w, "    blocked by %s %q\n", blocker.Identifier, blocker.Title)
		}
	}
}

// Tree renders a dependency tree produced by deps.Tree.
func Tree(w io.Writer, nodes []deps.TreeNode) {
	for _, n := range nodes {
		indent := strings.Repeat("  ", n.Depth)
		marker := ""
		if n.Cycle {
			marker = " " + styleCycle.Render("[CYCLE]")
		} else if n.Ready {
			marker = " " + styleReady.Render("[READY]")
		}
		fmt.Fprintf(w, "%s%s %s%s\n", indent, n.Issue.Identifier, n.Issue.Title, marker)
	}
}

// Detail renders a single issue's full fields for `show`.
func Detail(w io.Writer, issue *types.Issue, depsOut, depsIn []*types.Dependency) {
	fmt.Fprintf(w, "%s %s\n", statusSymbol(issue.Status), issue.Identifier)
	fmt.Fprintf(w, "Title:    %s\n", issue.Title)
	fmt.Fprintf(w, "Status:   %s\n", issue.Status)
	fmt.Fprintf(w, "Priority: P%d\n", issue.Priority)
	if issue.IssueType != "" {
		fmt.Fprintf(w, "Type:     %s\n", issue.IssueType)
	}
	if issue.Assignee != "" {
		fmt.Fprintf(w, "Assignee: %s\n", issue.Assignee)
	}
	if issue.Description != "" {
		fmt.Fprintf(w, "\n%s\n", issue.Description)
	}
	if len(depsOut) > 0 {
		fmt.Fprintf(w, "\nDepends on:\n")
		for _, d := range depsOut {
			fmt.Fprintf(w, "  %s %s\n", d.Type, d.DependsOnID)
		}
	}
	if len(depsIn) > 0 {
		fmt.Fprintf(w, "\nRequired by:\n")
		for _, d := range depsIn {
			fmt.Fprintf(w, "  %s %s\n", d.Type, d.IssueID)
		}
	}
}

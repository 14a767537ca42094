package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/nikvdp/lb/internal/deps"
	"github.com/nikvdp/lb/internal/types"
)

func TestIssueLineIncludesCoreFields(t *testing.T) {
	issue := &types.Issue{
		Identifier: "eng-1", Title: "Fix the thing", Status: types.StatusOpen,
		Priority: 1, UpdatedAt: time.Now(),
	}
	line := IssueLine(issue)
	if !strings.Contains(line, "eng-1") || !strings.Contains(line, "Fix the thing") || !strings.Contains(line, "P1") {
		t.Fatalf("expected identifier/title/priority in line, got %q", line)
	}
}

func TestIssueLineOmitsAssigneeWhenEmpty(t *testing.T) {
	issue := &types.Issue{Identifier: "eng-1", Title: "t", Status: types.StatusOpen, Priority: 1, UpdatedAt: time.Now()}
	if strings.Contains(IssueLine(issue), "()") {
		t.Fatal("expected no empty assignee parens when unassigned")
	}
}

func TestIssueLineIncludesAssigneeWhenSet(t *testing.T) {
	issue := &types.Issue{
		Identifier: "eng-1", Title: "t", Status: types.StatusOpen, Priority: 1,
		Assignee: "me@example.com", UpdatedAt: time.Now(),
	}
	if !strings.Contains(IssueLine(issue), "me@example.com") {
		t.Fatal("expected assignee email to appear in the rendered line")
	}
}

func TestListRendersOneLinePerIssue(t *testing.T) {
	var buf bytes.Buffer
	issues := []*types.Issue{
		{Identifier: "eng-1", Title: "a", Status: types.StatusOpen, Priority: 1, UpdatedAt: time.Now()},
		{Identifier: "eng-2", Title: "b", Status: types.StatusClosed, Priority: 2, UpdatedAt: time.Now()},
	}
	List(&buf, issues)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
}

func TestTreeIndentsByDepthAndMarksReady(t *testing.T) {
	var buf bytes.Buffer
	nodes := []deps.TreeNode{
		{Issue: &types.Issue{Identifier: "root", Title: "root"}, Depth: 0, Ready: false},
		{Issue: &types.Issue{Identifier: "leaf", Title: "leaf"}, Depth: 1, Ready: true},
	}
	Tree(&buf, nodes)
	out := buf.String()
	if !strings.Contains(out, "  leaf") {
		t.Fatalf("expected the child node to be indented, got %q", out)
	}
	if !strings.Contains(out, "READY") {
		t.Fatalf("expected the ready marker to appear, got %q", out)
	}
}

func TestTreeMarksCycle(t *testing.T) {
	var buf bytes.Buffer
	Tree(&buf, []deps.TreeNode{{Issue: &types.Issue{Identifier: "a", Title: "a"}, Cycle: true}})
	if !strings.Contains(buf.String(), "CYCLE") {
		t.Fatal("expected the cycle marker to appear")
	}
}

func TestDetailOmitsEmptySections(t *testing.T) {
	var buf bytes.Buffer
	issue := &types.Issue{Identifier: "eng-1", Title: "t", Status: types.StatusOpen, Priority: 1}
	Detail(&buf, issue, nil, nil)
	out := buf.String()
	if strings.Contains(out, "Depends on:") || strings.Contains(out, "Required by:") {
		t.Fatalf("expected no dependency sections when there are none, got %q", out)
	}
}

func TestDetailListsDependencies(t *testing.T) {
	var buf bytes.Buffer
	issue := &types.Issue{Identifier: "eng-1", Title: "t", Status: types.StatusOpen, Priority: 1}
	depsOut := []*types.Dependency{{IssueID: "eng-1", DependsOnID: "eng-2", Type: types.DepBlocks}}
	Detail(&buf, issue, depsOut, nil)
	if !strings.Contains(buf.String(), "eng-2") {
		t.Fatal("expected outgoing dependency target to appear in output")
	}
}

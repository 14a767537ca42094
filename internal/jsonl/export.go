// Package jsonl implements the canonical-snapshot exporter: a debounced,
// single-in-flight scheduler that spawns a detached export child writing
// <repo>/.lb/issues.jsonl atomically, plus the reader used by `import` to
// parse a JSONL source file back into issues.
package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/nikvdp/lb/internal/launcher"
	"github.com/nikvdp/lb/internal/store"
	"github.com/nikvdp/lb/internal/types"
)

const (
	debounceInterval   = 750 * time.Millisecond
	reservationWindow  = 2 * time.Second
)

// Line is the on-disk shape of one exported issue: keys
// are snake_case, optional fields omitted rather than null.
type Line struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Status       string         `json:"status"`
	Priority     int            `json:"priority"`
	CreatedAt    string         `json:"created_at"`
	UpdatedAt    string         `json:"updated_at"`
	Description  string         `json:"description,omitempty"`
	IssueType    string         `json:"issue_type,omitempty"`
	ClosedAt     string         `json:"closed_at,omitempty"`
	Dependencies []DepLine      `json:"dependencies,omitempty"`
}

// DepLine is one dependency entry nested under a Line.
type DepLine struct {
	IssueID     string `json:"issue_id"`
	DependsOnID string `json:"depends_on_id"`
	Type        string `json:"type"`
	CreatedAt   string `json:"created_at,omitempty"`
	CreatedBy   string `json:"created_by,omitempty"`
}

// Scheduler debounces export requests and spawns a detached export
// child to perform the actual write.9.
type Scheduler struct {
	repoRoot string
	logPath  string

	mu        sync.Mutex
	timer     *time.Timer
	lastSpawn time.Time
}

// NewScheduler builds a Scheduler; logPath is the worker/export log file
// (<repo>/.lb/sync.log, shared with the background worker).
func NewScheduler(repoRoot, logPath string) *Scheduler {
	return &Scheduler{repoRoot: repoRoot, logPath: logPath}
}

// RequestExport debounces with a 750ms timer; on fire it spawns an
// export child unless one is believed to be in flight within the last
// 2s reservation window. Overlapping exports are tolerated.
func (s *Scheduler) RequestExport() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(debounceInterval, s.fire)
}

func (s *Scheduler) fire() {
	s.mu.Lock()
	if time.Since(s.lastSpawn) < reservationWindow {
		s.mu.Unlock()
		return
	}
	s.lastSpawn = time.Now()
	s.mu.Unlock()

	if err := launcher.SpawnExportWorker(s.repoRoot, s.logPath); err != nil {
		// Export failures are logged, not surfaced.
		fmt.Fprintf(os.Stderr, "lb: failed to spawn export worker: %v\n", err)
	}
}

// Run executes a single export pass against st, writing path atomically.
// This is what the detached `--export-worker` re-entry point calls.
func Run(ctx context.Context, st *store.Store, path string) error {
	issues, err := st.ListIssues(ctx)
	if err != nil {
		return fmt.Errorf("jsonl: listing issues: %w", err)
	}
	sort.Slice(issues, func(i, j int) bool { return issues[i].Identifier < issues[j].Identifier })

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	for _, issue := range issues {
		deps, err := st.ListDepsOut(ctx, issue.ID)
		if err != nil {
			return fmt.Errorf("jsonl: listing deps for %s: %w", issue.Identifier, err)
		}
		line := toLine(issue, deps)
		data, err := json.Marshal(line)
		if err != nil {
			return fmt.Errorf("jsonl: marshalling %s: %w", issue.Identifier, err)
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	return atomicWrite(path, buf.Bytes())
}

func toLine(issue *types.Issue, deps []*types.Dependency) Line {
	line := Line{
		ID:        issue.Identifier,
		Title:     issue.Title,
		Status:    string(issue.Status),
		Priority:  issue.Priority,
		CreatedAt: issue.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: issue.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if issue.Description != "" {
		line.Description = issue.Description
	}
	if issue.IssueType != "" {
		line.IssueType = string(issue.IssueType)
	}
	if issue.ClosedAt != nil {
		line.ClosedAt = issue.ClosedAt.UTC().Format(time.RFC3339)
	}
	for _, dep := range deps {
		line.Dependencies = append(line.Dependencies, DepLine{
			IssueID:     dep.IssueID,
			DependsOnID: dep.DependsOnID,
			Type:        string(dep.Type),
			CreatedAt:   dep.CreatedAt.UTC().Format(time.RFC3339),
			CreatedBy:   dep.CreatedBy,
		})
	}
	return line
}

// atomicWrite writes data to a .tmp sibling of path, then renames it
// into place, so concurrent readers never observe a partial file.
func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("jsonl: writing temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("jsonl: renaming into place: %w", err)
	}
	return nil
}

// DefaultPath returns <repo>/.lb/issues.jsonl.
func DefaultPath(repoRoot string) string {
	return filepath.Join(repoRoot, ".lb", "issues.jsonl")
}

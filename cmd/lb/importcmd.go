package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/nikvdp/lb/internal/idgen"
	"github.com/nikvdp/lb/internal/jsonl"
	"github.com/nikvdp/lb/internal/types"
)

var (
	importSource        string
	importDryRun        bool
	importIncludeClosed bool
	importSince         string
	importForce         bool
)

var importCmd = &cobra.Command{
	Use:     "import",
	Short:   "Import issues from a JSONL snapshot",
	GroupID: "sync",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if importSource == "" {
			FatalErrorRespectJSON("--source is required")
		}

		lines, err := jsonl.ReadLines(importSource)
		if err != nil {
			FatalErrorRespectJSON("reading %s: %v", importSource, err)
		}

		var sinceTime time.Time
		if importSince != "" {
			w := when.New(nil)
			w.Add(common.All...)
			w.Add(en.All...)
			result, err := w.Parse(importSince, time.Now())
			if err != nil || result == nil {
				FatalErrorRespectJSON("could not parse --since %q", importSince)
			}
			sinceTime = result.Time
		}

		existing, err := readImportMap(importMapPath())
		if err != nil {
			FatalErrorRespectJSON("reading import map: %v", err)
		}

		var toImport []jsonl.Line
		var skippedClosed, skippedOld, skippedDup int
		for _, line := range lines {
			if !importIncludeClosed && line.Status == string(types.StatusClosed) {
				skippedClosed++
				continue
			}
			if !sinceTime.IsZero() {
				if updated, err := time.Parse(time.RFC3339, line.UpdatedAt); err == nil && updated.Before(sinceTime) {
					skippedOld++
					continue
				}
			}
			if _, ok := existing[line.ID]; ok && !importForce {
				skippedDup++
				continue
			}
			toImport = append(toImport, line)
		}

		if importDryRun {
			if jsonOutput {
				outputJSON(map[string]int{
					"would_import":   len(toImport),
					"skipped_closed": skippedClosed,
					"skipped_old":    skippedOld,
					"skipped_dup":    skippedDup,
				})
				return
			}
			fmt.Printf("Would import %d issue(s) (%d closed skipped, %d before --since, %d already imported)\n",
				len(toImport), skippedClosed, skippedOld, skippedDup)
			return
		}

		idMap := make(map[string]string, len(toImport))
		var mapEntries []ImportMapEntry
		now := time.Now().UTC()
		queuedRemote := false

		for _, line := range toImport {
			issue, queued, err := issueFromLine(ctx, line)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: skipping %s: %v\n", line.ID, err)
				continue
			}
			idMap[line.ID] = issue.ID
			mapEntries = append(mapEntries, ImportMapEntry{SourceID: line.ID, IssueID: issue.ID, ImportedAt: now})
			queuedRemote = queuedRemote || queued
		}

		depsCreated := 0
		for _, line := range toImport {
			newFrom, ok := idMap[line.ID]
			if !ok {
				continue
			}
			for _, dep := range line.Dependencies {
				newTo, ok := idMap[dep.DependsOnID]
				if !ok {
					// The other end wasn't imported this run — already
					// present from an earlier import, filtered out, or
					// missing from the source file. Skip rather than
					// fail the whole import.
					continue
				}
				depType := types.DepType(dep.Type)
				if !depType.Valid() {
					continue
				}
				if err := st.UpsertDep(ctx, &types.Dependency{IssueID: newFrom, DependsOnID: newTo, Type: depType}); err != nil {
					continue
				}
				depsCreated++
			}
		}

		if err := appendImportMap(importMapPath(), mapEntries); err != nil {
			FatalErrorRespectJSON("writing import map: %v", err)
		}

		if queuedRemote {
			currentApp().signalWorker()
		}

		if jsonOutput {
			outputJSON(map[string]int{
				"imported":       len(mapEntries),
				"dependencies":   depsCreated,
				"skipped_closed": skippedClosed,
				"skipped_old":    skippedOld,
				"skipped_dup":    skippedDup,
			})
			return
		}
		fmt.Printf("Imported %d issue(s), %d dependency edge(s)\n", len(mapEntries), depsCreated)
	},
}

// issueFromLine creates one imported issue in the local cache, queuing a
// Remote create unless running local-only, mirroring `create`'s queued
// write path. It returns whether a Remote create was queued, so the
// caller can decide whether to wake the worker.
func issueFromLine(ctx context.Context, line jsonl.Line) (*types.Issue, bool, error) {
	issue := &types.Issue{
		Title:       line.Title,
		Description: line.Description,
		Status:      types.Status(line.Status),
		Priority:    line.Priority,
		IssueType:   types.IssueType(line.IssueType),
	}
	if issue.Status == "" {
		issue.Status = types.StatusOpen
	}
	if created, err := time.Parse(time.RFC3339, line.CreatedAt); err == nil {
		issue.CreatedAt = created
	} else {
		issue.CreatedAt = time.Now().UTC()
	}
	if updated, err := time.Parse(time.RFC3339, line.UpdatedAt); err == nil {
		issue.UpdatedAt = updated
	} else {
		issue.UpdatedAt = issue.CreatedAt
	}
	if line.ClosedAt != "" {
		if closed, err := time.Parse(time.RFC3339, line.ClosedAt); err == nil {
			issue.ClosedAt = &closed
		}
	}
	if err := issue.Validate(); err != nil {
		return nil, false, err
	}

	var placeholder string
	if cfg.LocalOnly || client == nil {
		n, err := st.NextLocalID(ctx)
		if err != nil {
			return nil, false, err
		}
		placeholder = idgen.Local(n)
	} else {
		placeholder = idgen.Pending(uuid.NewString()[:8])
	}
	issue.ID = placeholder
	issue.Identifier = placeholder

	if err := st.UpsertIssue(ctx, issue); err != nil {
		return nil, false, err
	}

	if cfg.LocalOnly || client == nil {
		return issue, false, nil
	}

	payload := types.CreatePayload{
		LocalID:     placeholder,
		Title:       issue.Title,
		Description: issue.Description,
		Priority:    issue.Priority,
		IssueType:   issue.IssueType,
		Assignee:    issue.Assignee,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, false, err
	}
	if _, err := st.Enqueue(ctx, types.OpCreate, data); err != nil {
		return nil, false, err
	}
	return issue, true, nil
}

func init() {
	importCmd.Flags().StringVar(&importSource, "source", "", "path to the JSONL snapshot to import")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "report what would be imported without mutating anything")
	importCmd.Flags().BoolVar(&importIncludeClosed, "include-closed", false, "also import closed issues")
	importCmd.Flags().StringVar(&importSince, "since", "", "only import issues updated since this date (natural language accepted)")
	importCmd.Flags().BoolVar(&importForce, "force", false, "re-import issues already present in the import map")
	rootCmd.AddCommand(importCmd)
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nikvdp/lb/internal/jsonl"
)

var exportFormat string

var exportCmd = &cobra.Command{
	Use:     "export [output]",
	Short:   "Write a JSONL snapshot of the local cache",
	GroupID: "sync",
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		path := jsonl.DefaultPath(cfg.RepoRoot)
		if len(args) == 1 {
			path = args[0]
		}

		switch exportFormat {
		case "", "lb":
			if err := jsonl.Run(ctx, st, path); err != nil {
				FatalErrorRespectJSON("exporting: %v", err)
			}
		case "beads":
			if err := runBeadsExport(ctx, path); err != nil {
				FatalErrorRespectJSON("exporting: %v", err)
			}
		default:
			FatalErrorRespectJSON("unknown --format %q (want \"lb\" or \"beads\")", exportFormat)
		}

		if jsonOutput {
			outputJSON(map[string]string{"path": path, "format": exportFormat})
			return
		}
		fmt.Printf("Exported to %s\n", path)
	},
}

// legacyLine is an alternate, flatter export shape: no nested dependency
// objects, edges are a separate line stream keyed by "edge" instead.
// Kept distinct from jsonl.Line so a consumer pinned to this shape isn't
// broken by fields the canonical exporter adds later.
type legacyLine struct {
	Kind        string `json:"kind"` // "issue" or "edge"
	ID          string `json:"id,omitempty"`
	Title       string `json:"title,omitempty"`
	Status      string `json:"status,omitempty"`
	Priority    int    `json:"priority,omitempty"`
	Description string `json:"description,omitempty"`
	IssueType   string `json:"issue_type,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
	ClosedAt    string `json:"closed_at,omitempty"`

	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
	Type string `json:"type,omitempty"`
}

// runBeadsExport reads back the canonical snapshot and re-serializes it
// in the flatter issue/edge line shape, for consumers written against
// the older export format.
func runBeadsExport(ctx context.Context, path string) error {
	canonicalPath := jsonl.DefaultPath(cfg.RepoRoot)
	if err := jsonl.Run(ctx, st, canonicalPath); err != nil {
		return err
	}
	lines, err := jsonl.ReadLines(canonicalPath)
	if err != nil {
		return err
	}

	var out []legacyLine
	for _, line := range lines {
		out = append(out, legacyLine{
			Kind:        "issue",
			ID:          line.ID,
			Title:       line.Title,
			Status:      line.Status,
			Priority:    line.Priority,
			Description: line.Description,
			IssueType:   line.IssueType,
			CreatedAt:   line.CreatedAt,
			UpdatedAt:   line.UpdatedAt,
			ClosedAt:    line.ClosedAt,
		})
		for _, dep := range line.Dependencies {
			out = append(out, legacyLine{
				Kind: "edge",
				From: dep.IssueID,
				To:   dep.DependsOnID,
				Type: dep.Type,
			})
		}
	}

	return writeLegacyLines(path, out)
}

func writeLegacyLines(path string, lines []legacyLine) error {
	var buf []byte
	for _, l := range lines {
		data, err := json.Marshal(l)
		if err != nil {
			return err
		}
		buf = append(buf, data...)
		buf = append(buf, '\n')
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", tmp, path, err)
	}
	return nil
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "lb", "export format: lb or beads")
	rootCmd.AddCommand(exportCmd)
}

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteLegacyLinesWritesOneJSONObjectPerLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	lines := []legacyLine{
		{Kind: "issue", ID: "eng-1", Title: "first"},
		{Kind: "edge", From: "eng-1", To: "eng-2", Type: "blocks"},
	}
	if err := writeLegacyLines(path, lines); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := strings.TrimRight(string(data), "\n")
	rows := strings.Split(text, "\n")
	if len(rows) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(rows), text)
	}
	if !strings.Contains(rows[0], `"kind":"issue"`) {
		t.Fatalf("expected first row to be an issue, got %q", rows[0])
	}
	if !strings.Contains(rows[1], `"kind":"edge"`) {
		t.Fatalf("expected second row to be an edge, got %q", rows[1])
	}
}

func TestWriteLegacyLinesAtomicRename(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	if err := writeLegacyLines(path, []legacyLine{{Kind: "issue", ID: "eng-1"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected the .tmp file to be renamed away, stat err=%v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected the final file to exist: %v", err)
	}
}

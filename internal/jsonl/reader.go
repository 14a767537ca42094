package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// ReadLines reads a JSONL file of Line records: a bufio.Scanner with an
// enlarged buffer so large descriptions don't truncate a line. Used by
// `import` to parse a previously exported snapshot.
func ReadLines(path string) ([]Line, error) {
	file, err := os.Open(path) // #nosec G304 -- path is an explicit CLI argument
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	var out []Line
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		text := scanner.Text()
		if text == "" {
			continue
		}
		var line Line
		if err := json.Unmarshal([]byte(text), &line); err != nil {
			return nil, fmt.Errorf("parsing line %d of %s: %w", lineNum, path, err)
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return out, nil
}

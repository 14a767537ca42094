package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nikvdp/lb/internal/config"
)

// parseJSONCInto decodes a .jsonc document (comments stripped) into v.
func parseJSONCInto(data []byte, v interface{}) error {
	return json.Unmarshal(config.StripJSONComments(data), v)
}

// writeJSONC writes v as indented JSON (losing any hand-written comments
// in the previous version of the file — acceptable for the handful of
// fields `auth` and `migrate` touch programmatically).
func writeJSONC(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return os.WriteFile(path, data, 0o644)
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
)

// FatalErrorRespectJSON writes a single user-facing error line and exits
// 1, switching to a JSON error object when --json is set.
func FatalErrorRespectJSON(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if jsonOutput {
		data, _ := json.MarshalIndent(map[string]string{"error": msg}, "", "  ")
		fmt.Println(string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}

// outputJSON marshals v as indented JSON to stdout.
func outputJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		FatalErrorRespectJSON("encoding output: %v", err)
	}
	fmt.Println(string(data))
}

// Package idgen formats and recognises the two public identifier shapes:
// <TEAM>-<N> for Remote-backed issues, and LOCAL-<n> for local-only mode.
package idgen

import (
	"fmt"
	"regexp"
	"strings"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*-\d+$`)

// Format builds a public identifier from a team key and sequence number.
func Format(teamKey string, n int) string {
	return fmt.Sprintf("%s-%d", strings.ToUpper(teamKey), n)
}

// Local builds a LOCAL-<n> identifier for local-only mode.
func Local(n int) string {
	return fmt.Sprintf("LOCAL-%d", n)
}

// Valid reports whether s looks like a public identifier of either shape.
func Valid(s string) bool {
	return identifierPattern.MatchString(s)
}

// IsLocal reports whether s is a LOCAL-<n> identifier.
func IsLocal(s string) bool {
	return strings.HasPrefix(s, "LOCAL-")
}

// IsPending reports whether s is a not-yet-confirmed-create placeholder.
// Placeholders are "pending-<suffix>" rather than a
// bare "pending" because the store's identifier column is UNIQUE and
// more than one create can be outstanding at once; "pending" alone would
// collide on the second concurrent create.
func IsPending(s string) bool {
	return s == "pending" || strings.HasPrefix(s, "pending-")
}

// Pending builds a unique not-yet-confirmed-create placeholder identifier.
func Pending(suffix string) string {
	return "pending-" + suffix
}

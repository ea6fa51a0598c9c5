package domain

import "strings"

// CanonicalKey normalizes a raw handle into the key used for every equality
// check and storage lookup: runs of whitespace collapse to a single space,
// leading/trailing whitespace is trimmed, and the result is lowercased.
//
// Two raw strings that canonicalize equal are the same handle. An empty or
// whitespace-only input yields "", which every consumer rejects.
func CanonicalKey(raw string) string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(strings.Join(fields, " "))
}

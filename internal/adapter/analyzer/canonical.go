// Package analyzer normalizes entity names so that independent extraction
// passes converge on one record per real-world entity.
package analyzer

import "strings"

// CanonicalKey folds case and collapses whitespace. Entities are
// deduplicated by (investigation, CanonicalKey(name)).
func CanonicalKey(name string) string {
	return strings.ToLower(DisplayName(name))
}

// DisplayName trims and collapses internal whitespace while preserving the
// original casing for presentation.
func DisplayName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

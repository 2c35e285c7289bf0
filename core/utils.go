package core

import "strings"

// CleanString strips surrounding whitespace from s; pass true to also
// lowercase the result. User-supplied identifiers go through here before
// validation and lookups.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

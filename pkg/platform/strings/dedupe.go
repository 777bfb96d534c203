// Package strings provides string slice helpers for request normalisation.
package strings

import (
	"strings"
)

// DedupeAndTrimLower trims and lowercases each element, then drops empty
// strings and duplicates. First occurrence order is preserved.
//
//	DedupeAndTrimLower([]string{"  Heart ", "kidney", "HEART", ""})
//	// []string{"heart", "kidney"}
func DedupeAndTrimLower(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		normalized := strings.ToLower(strings.TrimSpace(v))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		result = append(result, normalized)
	}
	return result
}

// Package strings provides string slice helpers.
package strings

// Dedupe returns values with exact duplicates removed, keeping first-seen
// order. Values are compared byte for byte, so " bio" and "bio" both survive.
//
//	Dedupe([]string{"biology", "math", "biology", " math"})
//	// []string{"biology", "math", " math"}
func Dedupe(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}

package validators

import "strings"

func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 && len(trimmed) > maxLen {
		return trimmed[:maxLen]
	}
	return trimmed
}

// SanitizeList splits a comma separated value, dropping blanks and
// duplicates while keeping first-seen order.
func SanitizeList(input string, maxLen int) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, part := range strings.Split(input, ",") {
		value := SanitizeString(part, maxLen)
		if value == "" {
			continue
		}
		key := strings.ToLower(value)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, value)
	}
	return out
}

package data

import "strings"

// ParseStyle splits declarative attribute syntax ("key: value; key2: value2")
// into its pairs. Keys and values are trimmed; a value may itself contain ':'
// since only the first one separates the key. Segments without a key are
// returned separately.
func ParseStyle(raw string) (pairs map[string]string, bare []string) {
	pairs = make(map[string]string)
	for _, segment := range strings.Split(raw, ";") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		key, value, found := strings.Cut(segment, ":")
		if !found {
			bare = append(bare, segment)
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			bare = append(bare, segment)
			continue
		}
		pairs[key] = strings.TrimSpace(value)
	}
	return pairs, bare
}

// FormatStyle renders pairs in the given key order; keys missing from pairs
// are skipped.
func FormatStyle(pairs map[string]string, order []string) string {
	parts := make([]string, 0, len(order))
	for _, key := range order {
		if v, ok := pairs[key]; ok {
			parts = append(parts, key+": "+v)
		}
	}
	return strings.Join(parts, "; ")
}

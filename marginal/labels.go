package marginal

import (
	"fmt"
	"sort"
)

func rowLabel(prefix string, i int) string {
	return fmt.Sprintf("%s[%d]", prefix, i+1)
}

// distinctSorted returns the distinct keys in ascending order, matching the
// row order the grouped transforms emit.
func distinctSorted(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func varLabel(names []string, i, col int) string {
	if i < len(names) && names[i] != "" {
		return names[i]
	}
	return fmt.Sprintf("x%d", col+1)
}

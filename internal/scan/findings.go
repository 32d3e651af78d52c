package scan

import "sort"

// Findings is one tool's parsed report.
type Findings struct {
	Violations int
	Warnings   int
	Levels     LevelCounts
	// ErrorIDs are the distinct rule or audit IDs of the violations, sorted.
	ErrorIDs []string
	// Unclassified lists "id: description" for violations with no level.
	Unclassified []string
}

func distinct(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

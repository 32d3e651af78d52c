package scan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type axeResults struct {
	URL        string         `json:"url"`
	Violations []axeViolation `json:"violations"`
}

type axeViolation struct {
	ID          string   `json:"id"`
	Impact      string   `json:"impact"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// ParseAxe reads axe-core results, either a single results object or the
// array the axe CLI prints for its --stdout option. Violations of serious or
// critical impact count as violations; moderate and minor ones as warnings.
func ParseAxe(raw []byte) (Findings, error) {
	raw = bytes.TrimSpace(raw)
	var runs []axeResults
	switch {
	case len(raw) == 0:
		return Findings{}, fmt.Errorf("axe: empty report")
	case raw[0] == '[':
		if err := json.Unmarshal(raw, &runs); err != nil {
			return Findings{}, fmt.Errorf("axe: decode report: %w", err)
		}
	default:
		var one axeResults
		if err := json.Unmarshal(raw, &one); err != nil {
			return Findings{}, fmt.Errorf("axe: decode report: %w", err)
		}
		runs = []axeResults{one}
	}

	var confirmed []axeViolation
	var f Findings
	for _, run := range runs {
		for _, v := range run.Violations {
			switch strings.ToLower(v.Impact) {
			case "serious", "critical":
				confirmed = append(confirmed, v)
			case "moderate", "minor":
				f.Warnings++
			}
		}
	}

	f.Violations = len(confirmed)
	f.Levels = BucketByLevel(confirmed, func(v axeViolation) string { return strings.Join(v.Tags, " ") })
	ids := make([]string, 0, len(confirmed))
	for _, v := range confirmed {
		ids = append(ids, v.ID)
		if LevelOf(strings.Join(v.Tags, " ")) == LevelUnclassified {
			f.Unclassified = append(f.Unclassified, v.ID+": "+v.Description)
		}
	}
	f.ErrorIDs = distinct(ids)
	return f, nil
}

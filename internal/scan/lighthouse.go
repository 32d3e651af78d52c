package scan

import (
	"encoding/json"
	"fmt"
	"sort"
)

type lighthouseReport struct {
	Audits map[string]lighthouseAudit `json:"audits"`
}

type lighthouseAudit struct {
	ID               string   `json:"id"`
	Score            *float64 `json:"score"`
	ScoreDisplayMode string   `json:"scoreDisplayMode"`
	Description      string   `json:"description"`
}

// ParseLighthouse reads a Lighthouse JSON report. Audits scoring 0 that are
// not informative are violations, bucketed by their description; informative
// audits are warnings.
func ParseLighthouse(raw []byte) (Findings, error) {
	var rep lighthouseReport
	if err := json.Unmarshal(raw, &rep); err != nil {
		return Findings{}, fmt.Errorf("lighthouse: decode report: %w", err)
	}
	if rep.Audits == nil {
		return Findings{}, fmt.Errorf("lighthouse: report has no audits")
	}

	keys := make([]string, 0, len(rep.Audits))
	for k := range rep.Audits {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var failed []lighthouseAudit
	var f Findings
	for _, k := range keys {
		a := rep.Audits[k]
		if a.ID == "" {
			a.ID = k
		}
		if a.ScoreDisplayMode == "informative" {
			f.Warnings++
			continue
		}
		if a.Score != nil && *a.Score == 0 {
			failed = append(failed, a)
		}
	}

	f.Violations = len(failed)
	f.Levels = BucketByLevel(failed, func(a lighthouseAudit) string { return a.Description })
	ids := make([]string, 0, len(failed))
	for _, a := range failed {
		ids = append(ids, a.ID)
		if LevelOf(a.Description) == LevelUnclassified {
			f.Unclassified = append(f.Unclassified, a.ID+": "+a.Description)
		}
	}
	f.ErrorIDs = distinct(ids)
	return f, nil
}

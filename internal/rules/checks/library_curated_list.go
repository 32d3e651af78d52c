package checks

import (
	"fmt"
	"strings"

	"a11yminer/internal/data"
	"a11yminer/internal/rules"
)

type LibraryCuratedListRule struct{}

func (r *LibraryCuratedListRule) ID() string {
	return "library-curated-list"
}

func (r *LibraryCuratedListRule) Kind() rules.Kind {
	return rules.KindLibrary
}

func (r *LibraryCuratedListRule) Priority() int {
	return 30
}

func (r *LibraryCuratedListRule) Description() string {
	return "Repository is a curated or \"awesome\" list."
}

func (r *LibraryCuratedListRule) Evaluate(d *data.Descriptor) (bool, string) {
	if d == nil {
		return false, ""
	}
	if name := strings.ToLower(d.Name); name == "awesome" || strings.HasPrefix(name, "awesome-") {
		return true, "awesome-list name"
	}
	if term, ok := findTerm(nameAndMetadata(d.Name, d.MetadataText()), curatedListTerms); ok {
		return true, fmt.Sprintf("curated list %q", term)
	}
	return false, ""
}

func init() {
	rules.Register(&LibraryCuratedListRule{})
}

package checks

import (
	"fmt"

	"a11yminer/internal/data"
	"a11yminer/internal/rules"
)

// LibraryDocsTutorialRule looks at name, description and topics only. README
// bodies of real applications mention tutorials too often to be a signal.
type LibraryDocsTutorialRule struct{}

func (r *LibraryDocsTutorialRule) ID() string {
	return "library-docs-tutorial"
}

func (r *LibraryDocsTutorialRule) Kind() rules.Kind {
	return rules.KindLibrary
}

func (r *LibraryDocsTutorialRule) Priority() int {
	return 40
}

func (r *LibraryDocsTutorialRule) Description() string {
	return "Repository is documentation, a tutorial, course or example collection."
}

func (r *LibraryDocsTutorialRule) Evaluate(d *data.Descriptor) (bool, string) {
	if d == nil {
		return false, ""
	}
	if term, ok := findTerm(nameAndMetadata(d.Name, d.MetadataText()), docsTutorialTerms); ok {
		return true, fmt.Sprintf("docs/tutorial %q", term)
	}
	return false, ""
}

func init() {
	rules.Register(&LibraryDocsTutorialRule{})
}

package checks

import (
	"fmt"

	"a11yminer/internal/data"
	"a11yminer/internal/rules"
)

type LibraryStrongKeywordRule struct{}

func (r *LibraryStrongKeywordRule) ID() string {
	return "library-strong-keyword"
}

func (r *LibraryStrongKeywordRule) Kind() rules.Kind {
	return rules.KindLibrary
}

func (r *LibraryStrongKeywordRule) Priority() int {
	return 20
}

func (r *LibraryStrongKeywordRule) Description() string {
	return "Text contains a strong library keyword (library, framework, sdk, npm install, ...) and no application keyword."
}

func (r *LibraryStrongKeywordRule) Evaluate(d *data.Descriptor) (bool, string) {
	text := d.Text()
	kw, ok := findTerm(text, strongLibraryKeywords)
	if !ok {
		return false, ""
	}
	if _, app := findTerm(text, appKeywords); app {
		return false, ""
	}
	return true, fmt.Sprintf("keyword %q", kw)
}

func init() {
	rules.Register(&LibraryStrongKeywordRule{})
}

package checks

import (
	"fmt"
	"strings"

	"a11yminer/internal/data"
	"a11yminer/internal/rules"
)

type LibraryNamePatternRule struct{}

func (r *LibraryNamePatternRule) ID() string {
	return "library-name-pattern"
}

func (r *LibraryNamePatternRule) Kind() rules.Kind {
	return rules.KindLibrary
}

func (r *LibraryNamePatternRule) Priority() int {
	return 10
}

func (r *LibraryNamePatternRule) Description() string {
	return "Repository name uses a prefix or suffix typical of packages and tooling (react-*, *-ui, *-kit, *-utils)."
}

func (r *LibraryNamePatternRule) Evaluate(d *data.Descriptor) (bool, string) {
	if d == nil {
		return false, ""
	}
	name := strings.ToLower(d.Name)
	for _, p := range libraryNamePrefixes {
		if strings.HasPrefix(name, p) && len(name) > len(p) {
			return true, fmt.Sprintf("name prefix %q", p)
		}
	}
	for _, s := range libraryNameSuffixes {
		if strings.HasSuffix(name, s) && len(name) > len(s) {
			return true, fmt.Sprintf("name suffix %q", s)
		}
	}
	return false, ""
}

func init() {
	rules.Register(&LibraryNamePatternRule{})
}

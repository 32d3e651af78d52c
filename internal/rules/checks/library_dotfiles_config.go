package checks

import (
	"fmt"
	"strings"

	"a11yminer/internal/data"
	"a11yminer/internal/rules"
)

type LibraryDotfilesConfigRule struct{}

func (r *LibraryDotfilesConfigRule) ID() string {
	return "library-dotfiles-config"
}

func (r *LibraryDotfilesConfigRule) Kind() rules.Kind {
	return rules.KindLibrary
}

func (r *LibraryDotfilesConfigRule) Priority() int {
	return 50
}

func (r *LibraryDotfilesConfigRule) Description() string {
	return "Repository holds dotfiles or personal configuration."
}

func (r *LibraryDotfilesConfigRule) Evaluate(d *data.Descriptor) (bool, string) {
	if d == nil {
		return false, ""
	}
	switch name := strings.ToLower(d.Name); name {
	case "dotfiles", ".dotfiles", "config", "configs", ".github", "nvim", ".vim", "vimrc":
		return true, fmt.Sprintf("config repository name %q", name)
	}
	if term, ok := findTerm(nameAndMetadata(d.Name, d.MetadataText()), dotfilesTerms); ok {
		return true, fmt.Sprintf("dotfiles %q", term)
	}
	return false, ""
}

func init() {
	rules.Register(&LibraryDotfilesConfigRule{})
}

package engine

import (
	"fmt"
	"path"
	"strings"

	"a11yminer/internal/config"
	"a11yminer/internal/data"
)

// Filter reports whether a search result passes the targeting options. The
// reason names the failed check and is empty when the repository passes.
func Filter(repo *data.Descriptor, m config.Mining) (bool, string) {
	if repo == nil {
		panic("engine.Filter: repo must not be nil")
	}

	if m.MinStars > 0 && repo.Stars < m.MinStars {
		return false, fmt.Sprintf("stars %d < %d", repo.Stars, m.MinStars)
	}

	// Languages
	if len(m.Languages) > 0 && !matchesAnyLanguage(m.Languages, repo.Language) {
		lang := repo.Language
		if lang == "" {
			lang = "none"
		}
		return false, "language " + lang
	}

	// Include/exclude patterns (name matching)
	fullName := repo.FullName()

	// If Include is set, must match at least one
	if len(m.Include) > 0 && !matchesAnyPattern(m.Include, fullName, repo.Name) {
		return false, "not included"
	}

	// If Exclude is set, must not match any
	if len(m.Exclude) > 0 && matchesAnyPattern(m.Exclude, fullName, repo.Name) {
		return false, "excluded"
	}

	return true, ""
}

func matchesAnyLanguage(languages []string, lang string) bool {
	for _, l := range languages {
		if strings.EqualFold(strings.TrimSpace(l), lang) {
			return true
		}
	}
	return false
}

func matchesAnyPattern(patterns []string, fullName, repoName string) bool {
	for _, p := range patterns {
		if matchPattern(p, fullName, repoName) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, fullName, repoName string) bool {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if pattern == "" {
		return false
	}
	// A pattern with an owner component (contains '/') matches the full name;
	// otherwise only the repository name, so "*-docs" works across owners.
	if strings.Contains(pattern, "/") {
		matched, _ := path.Match(pattern, strings.ToLower(fullName))
		return matched
	}
	matched, _ := path.Match(pattern, strings.ToLower(repoName))
	return matched
}

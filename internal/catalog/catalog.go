// Package catalog defines the closed set of accessibility-testing tools the
// miner looks for, and the static signals used to detect each one.
package catalog

import (
	"fmt"
	"strings"
)

// Tool is one entry of the catalog. Values are the CSV column names.
type Tool string

const (
	AXE             Tool = "AXE"
	Pa11y           Tool = "Pa11y"
	WAVE            Tool = "WAVE"
	AChecker        Tool = "AChecker"
	Lighthouse      Tool = "Lighthouse"
	Asqatasun       Tool = "Asqatasun"
	HTMLCodeSniffer Tool = "HTML_CodeSniffer"
)

// All returns the catalog in CSV column order.
func All() []Tool {
	return []Tool{AXE, Pa11y, WAVE, AChecker, Lighthouse, Asqatasun, HTMLCodeSniffer}
}

// Parse resolves a tool name case-insensitively.
func Parse(name string) (Tool, error) {
	n := strings.TrimSpace(name)
	for _, t := range All() {
		if strings.EqualFold(string(t), n) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tool %q (known: %s)", name, strings.Join(Names(), ", "))
}

// Names returns the catalog names in order.
func Names() []string {
	all := All()
	out := make([]string, 0, len(all))
	for _, t := range all {
		out = append(out, string(t))
	}
	return out
}

// Keywords maps each tool to the case-insensitive strings that signal its use
// in manifests, workflows and repository metadata.
var Keywords = map[Tool][]string{
	AXE:             {"axe-core", "react-axe", "@axe-core/", "cypress-axe", "jest-axe", "axe-playwright", "axe-selenium-python", "vue-axe"},
	Pa11y:           {"pa11y", "pa11y-ci"},
	WAVE:            {"wave-cli", "wave-accessibility", "webaim-wave", "wave.webaim.org"},
	AChecker:        {"achecker", "accessibility-checker", "ibma/equal-access"},
	Lighthouse:      {"lighthouse", "lighthouse-ci", "lhci", "lighthouse-ci-action"},
	Asqatasun:       {"asqatasun"},
	HTMLCodeSniffer: {"html_codesniffer", "htmlcs", "squizlabs/html_codesniffer"},
}

// ConfigFiles lists root-level filename fragments that only exist when a tool
// is configured. A root entry matches when its lower-cased name equals or
// contains the fragment.
var ConfigFiles = map[Tool][]string{
	AXE:             {".axerc", "axe.config", ".axe.json"},
	Pa11y:           {".pa11yci", "pa11y.json", "pa11y.config"},
	AChecker:        {".achecker.yml", ".achecker.yaml", "aceconfig"},
	Lighthouse:      {"lighthouserc", ".lighthouserc", "budget.json"},
	Asqatasun:       {"asqatasun"},
	HTMLCodeSniffer: {"htmlcs.config"},
}

// Manifests is the fixed list of per-language dependency manifests scanned for
// keywords. Entries containing glob characters are resolved against the root
// directory listing.
var Manifests = []string{
	"package.json",
	"composer.json",
	"requirements.txt",
	"requirements-dev.txt",
	"Pipfile",
	"pyproject.toml",
	"Gemfile",
	"pom.xml",
	"build.gradle",
	"build.gradle.kts",
	"go.mod",
	"Cargo.toml",
	"*.csproj",
	"packages.config",
	"*.gemspec",
}

// WorkflowsDir is the conventional CI workflow directory.
const WorkflowsDir = ".github/workflows"

// Inference is a low-confidence rule: when Phrase appears in repository
// metadata or README text, Tools are assumed likely in use.
type Inference struct {
	Phrase string
	Tools  []Tool
}

// Inferences is kept apart from Keywords so the two signal tiers stay
// independently testable.
var Inferences = []Inference{
	{Phrase: "accessibility audit", Tools: []Tool{Lighthouse, AXE}},
	{Phrase: "a11y audit", Tools: []Tool{Lighthouse, AXE}},
	{Phrase: "accessibility testing", Tools: []Tool{AXE, Pa11y}},
	{Phrase: "automated accessibility", Tools: []Tool{AXE, Pa11y}},
	{Phrase: "wcag compliance", Tools: []Tool{AXE, Pa11y, WAVE}},
	{Phrase: "wcag 2.1", Tools: []Tool{AXE}},
	{Phrase: "section 508", Tools: []Tool{AChecker, HTMLCodeSniffer}},
	{Phrase: "lighthouse score", Tools: []Tool{Lighthouse}},
}

// MatchKeywords returns the tools whose keywords appear in text. text is
// lower-cased here; callers may pass raw content.
func MatchKeywords(text string) []Tool {
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)
	var out []Tool
	for _, t := range All() {
		for _, kw := range Keywords[t] {
			if strings.Contains(lower, strings.ToLower(kw)) {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// MatchConfigFile returns the tools whose config filename fragments match name.
func MatchConfigFile(name string) []Tool {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return nil
	}
	var out []Tool
	for _, t := range All() {
		for _, frag := range ConfigFiles[t] {
			if lower == frag || strings.Contains(lower, frag) {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// MatchInferences returns the tools implied by inference phrases in text,
// along with the phrases that fired.
func MatchInferences(text string) ([]Tool, []string) {
	if text == "" {
		return nil, nil
	}
	lower := strings.ToLower(text)
	seen := make(map[Tool]bool)
	var phrases []string
	for _, inf := range Inferences {
		if !strings.Contains(lower, inf.Phrase) {
			continue
		}
		phrases = append(phrases, inf.Phrase)
		for _, t := range inf.Tools {
			seen[t] = true
		}
	}
	var out []Tool
	for _, t := range All() {
		if seen[t] {
			out = append(out, t)
		}
	}
	return out, phrases
}

// EmptySet returns a membership map with every tool false.
func EmptySet() map[Tool]bool {
	m := make(map[Tool]bool, len(All()))
	for _, t := range All() {
		m[t] = false
	}
	return m
}

package data

import (
	"fmt"
	"strings"
	"time"
)

// Descriptor is the repository metadata the classifier and detector work on.
// It is built once per crawl iteration from a search node; the README is the
// only field filled in later, through WithReadme, which returns a copy.
type Descriptor struct {
	Owner       string
	Name        string
	Stars       int
	PushedAt    time.Time
	Language    string
	Topics      []string
	Homepage    string
	Description string

	// Readme is plain text (markdown already stripped). ReadmeLoaded
	// distinguishes "not fetched yet" from "fetched and absent".
	Readme       string
	ReadmeLoaded bool
}

// FullName returns owner/name.
func (d *Descriptor) FullName() string {
	if d == nil {
		return ""
	}
	return d.Owner + "/" + d.Name
}

// WithReadme returns a copy of d carrying the README text.
func (d Descriptor) WithReadme(text string) *Descriptor {
	d.Readme = text
	d.ReadmeLoaded = true
	d.Topics = append([]string(nil), d.Topics...)
	return &d
}

// Text returns name, description, topics, homepage and README lower-cased and
// joined by spaces. Classifier keyword rules match against this.
func (d *Descriptor) Text() string {
	if d == nil {
		return ""
	}
	parts := []string{d.Name, d.Description, strings.Join(d.Topics, " "), d.Homepage}
	if d.Readme != "" {
		parts = append(parts, d.Readme)
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// MetadataText is Text without the README.
func (d *Descriptor) MetadataText() string {
	if d == nil {
		return ""
	}
	return strings.ToLower(strings.Join([]string{d.Description, strings.Join(d.Topics, " "), d.Homepage}, " "))
}

// HasHomepage reports whether a non-empty homepage URL is declared.
func (d *Descriptor) HasHomepage() bool {
	return d != nil && strings.TrimSpace(d.Homepage) != ""
}

// SplitFullName splits "owner/name".
func SplitFullName(full string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(full), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("invalid repository identifier %q; expected owner/name", full)
	}
	return owner, name, nil
}

// Package detect finds which accessibility tools a repository uses, from its
// root files, dependency manifests, CI workflows and metadata.
package detect

import (
	"context"
	"fmt"
	"path"
	"strings"

	"a11yminer/internal/catalog"
	"a11yminer/internal/data"
	"a11yminer/internal/fetcher"
	"a11yminer/internal/logger"
)

// Source is the subset of the fetcher the detector reads through. Missing
// paths must come back as found=false or an empty listing, not as errors.
type Source interface {
	GetFile(ctx context.Context, owner, repo, path string) (string, bool, error)
	ListDir(ctx context.Context, owner, repo, path string) ([]fetcher.Entry, error)
}

const DefaultMaxWorkflows = 10

type Options struct {
	// MaxWorkflows bounds how many workflow files are read per repository.
	MaxWorkflows int
	// SkipInferences disables the phrase-based inference tier.
	SkipInferences bool
}

// Detection keeps direct evidence (a keyword or config file seen) apart from
// inferred tools (an accessibility phrase implying likely tools).
type Detection struct {
	Direct   map[catalog.Tool]bool
	Inferred map[catalog.Tool]bool
	// Sources lists where each tool was found, e.g. "manifest:package.json"
	// or "inference:accessibility audit".
	Sources map[catalog.Tool][]string
}

func newDetection() Detection {
	return Detection{
		Direct:   catalog.EmptySet(),
		Inferred: catalog.EmptySet(),
		Sources:  make(map[catalog.Tool][]string),
	}
}

func (d *Detection) markDirect(tools []catalog.Tool, source string) {
	for _, t := range tools {
		d.Direct[t] = true
		d.Sources[t] = append(d.Sources[t], source)
	}
}

func (d *Detection) markInferred(tools []catalog.Tool, source string) {
	for _, t := range tools {
		d.Inferred[t] = true
		d.Sources[t] = append(d.Sources[t], source)
	}
}

// Tools returns the merged map over every catalog tool.
func (d Detection) Tools() map[catalog.Tool]bool {
	out := catalog.EmptySet()
	for t := range out {
		out[t] = d.Direct[t] || d.Inferred[t]
	}
	return out
}

// Found returns the detected tools in catalog order.
func (d Detection) Found() []catalog.Tool {
	var out []catalog.Tool
	for _, t := range catalog.All() {
		if d.Direct[t] || d.Inferred[t] {
			out = append(out, t)
		}
	}
	return out
}

func (d Detection) Any() bool {
	return len(d.Found()) > 0
}

type Detector struct {
	src  Source
	opts Options
	log  *logger.Logger
}

func New(src Source, opts Options) *Detector {
	if opts.MaxWorkflows <= 0 {
		opts.MaxWorkflows = DefaultMaxWorkflows
	}
	return &Detector{src: src, opts: opts, log: logger.Named("detect")}
}

// Detect inspects one repository. Only fetcher errors are returned; absent
// files contribute nothing.
func (d *Detector) Detect(ctx context.Context, desc *data.Descriptor) (Detection, error) {
	if desc == nil {
		return Detection{}, fmt.Errorf("detect: nil descriptor")
	}
	owner, repo := desc.Owner, desc.Name
	det := newDetection()

	root, err := d.src.ListDir(ctx, owner, repo, "")
	if err != nil {
		return Detection{}, fmt.Errorf("detect %s: root listing: %w", desc.FullName(), err)
	}

	for _, e := range root {
		if e.Type == "dir" {
			continue
		}
		det.markDirect(catalog.MatchConfigFile(e.Name), "config:"+e.Name)
	}

	for _, p := range manifestPaths(root) {
		text, found, err := d.src.GetFile(ctx, owner, repo, p)
		if err != nil {
			return Detection{}, fmt.Errorf("detect %s: %w", desc.FullName(), err)
		}
		if found {
			det.markDirect(catalog.MatchKeywords(text), "manifest:"+p)
		}
	}

	if hasDir(root, ".github") {
		if err := d.scanWorkflows(ctx, owner, repo, &det); err != nil {
			return Detection{}, fmt.Errorf("detect %s: %w", desc.FullName(), err)
		}
	}

	det.markDirect(catalog.MatchKeywords(desc.MetadataText()), "metadata")

	if !d.opts.SkipInferences {
		tools, phrases := catalog.MatchInferences(desc.MetadataText() + " " + strings.ToLower(desc.Readme))
		if len(tools) > 0 {
			det.markInferred(tools, "inference:"+strings.Join(phrases, ","))
		}
	}

	d.log.Debug().
		Str("repo", desc.FullName()).
		Strs("tools", toolNames(det.Found())).
		Msg("detection finished")
	return det, nil
}

func (d *Detector) scanWorkflows(ctx context.Context, owner, repo string, det *Detection) error {
	entries, err := d.src.ListDir(ctx, owner, repo, catalog.WorkflowsDir)
	if err != nil {
		return err
	}
	read := 0
	for _, e := range entries {
		if e.Type == "dir" || !isWorkflowFile(e.Name) {
			continue
		}
		if read >= d.opts.MaxWorkflows {
			break
		}
		read++
		p := e.Path
		if p == "" {
			p = path.Join(catalog.WorkflowsDir, e.Name)
		}
		text, found, err := d.src.GetFile(ctx, owner, repo, p)
		if err != nil {
			return err
		}
		if found {
			det.markDirect(catalog.MatchKeywords(text), "workflow:"+p)
		}
	}
	return nil
}

// manifestPaths resolves the manifest list against the root listing: exact
// names match case-insensitively, wildcard names with path.Match.
func manifestPaths(root []fetcher.Entry) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range catalog.Manifests {
		pattern := strings.ToLower(m)
		for _, e := range root {
			if e.Type == "dir" {
				continue
			}
			name := strings.ToLower(e.Name)
			ok := name == pattern
			if !ok && strings.ContainsAny(pattern, "*?[") {
				ok, _ = path.Match(pattern, name)
			}
			if !ok {
				continue
			}
			p := e.Path
			if p == "" {
				p = e.Name
			}
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

func hasDir(entries []fetcher.Entry, name string) bool {
	for _, e := range entries {
		if e.Type == "dir" && strings.EqualFold(e.Name, name) {
			return true
		}
	}
	return false
}

func isWorkflowFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".yml") || strings.HasSuffix(lower, ".yaml")
}

func toolNames(ts []catalog.Tool) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = string(t)
	}
	return out
}

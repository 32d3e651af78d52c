package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"a11yminer/internal/catalog"
)

const (
	ModeTools   = "tools"
	ModeNoTools = "no-tools"
)

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields, keep these in
	// sync:
	// - CLI flags in internal/cli/mine.go and internal/cli/scan.go
	// - TOML keys in internal/config/file.go
	Mining  Mining
	Quota   Quota
	Output  Output
	Scan    Scan
	Runtime Runtime
}

type Mining struct {
	// Mode selects what the crawl keeps (see --mode).
	// Allowed values: tools (repos using a catalog tool), no-tools (repos using none).
	Mode string

	// Queries are GitHub repository search queries run in order (see --query).
	// Empty means the defaults for Mode.
	Queries []string

	// Sort is appended to each query as "sort:<value>" unless the query already
	// carries a sort qualifier (see --sort). Empty disables it.
	Sort string

	// PageSize is the number of search results per page, 1..100 (see --page-size).
	PageSize int

	// MaxPages caps pages fetched per query (see --max-pages).
	MaxPages int

	// BatchSize is the number of accepted records buffered before a flush (see --batch-size).
	BatchSize int

	// MaxRepos stops the crawl after this many repositories were analyzed (see --max-repos).
	// 0 means unlimited.
	MaxRepos int

	// Include keeps only repositories whose name matches one of these Go path.Match
	// patterns (see --include). Patterns containing '/' match OWNER/REPO.
	Include []string

	// Exclude drops repositories whose name matches one of these patterns (see --exclude).
	Exclude []string

	// Languages keeps only repositories whose primary language is listed (see --language).
	// Matching is case-insensitive; empty means any.
	Languages []string

	// MinStars drops repositories with fewer stars (see --min-stars).
	MinStars int

	// DisableRules lists classifier rule IDs to skip (see --disable-rule).
	DisableRules []string

	// NoInferences turns off the phrase-based inference tier of the detector
	// (see --no-inferences).
	NoInferences bool

	// MaxWorkflows bounds how many CI workflow files are read per repository
	// (see --max-workflows).
	MaxWorkflows int
}

type Quota struct {
	// SearchFloor is the remaining-quota floor below which a search call rotates
	// credentials (see --search-floor).
	SearchFloor int

	// ContentFloor is the same floor for content calls (see --content-floor).
	ContentFloor int

	// MaxAttempts bounds rate-limited retries of one API call (see --max-attempts).
	MaxAttempts int

	// SafetyMargin is added to the reported reset time before retrying an
	// exhausted pool (see --safety-margin).
	SafetyMargin time.Duration

	// Throttle is the minimum delay between API calls (see --throttle). 0 disables it.
	Throttle time.Duration

	// ErrorBackoff is the pause after a page-level or rate-limit error (see --error-backoff).
	ErrorBackoff time.Duration

	// MaxPageRetries bounds retries of one search page before moving to the
	// next query (see --max-page-retries).
	MaxPageRetries int
}

type Output struct {
	// CSV is the results file (see --csv). Empty means the default for the mode.
	CSV string

	// Processed is the processed-set file (see --processed). Empty means the
	// default for the mode.
	Processed string

	// Emit writes an additional structured event stream to stdout (see --emit).
	// Allowed values: json, ndjson.
	Emit []string

	// Events appends NDJSON events to this file (see --events).
	Events string

	// NoConsole suppresses the human-facing console sink (see --no-console).
	NoConsole bool
}

type Scan struct {
	// URL is the page to audit (see --url). Empty means detect a local server.
	URL string

	// RepoDir is a checked-out repository used to find the local server port
	// from .env and package.json (see --repo-dir).
	RepoDir string

	// Repository labels result rows (see --repository). Defaults to the base
	// name of RepoDir, or the URL host.
	Repository string

	// Tools are the catalog tools to run (see --tools).
	Tools []string

	// Results is the results CSV (see --results).
	Results string

	// Concurrency bounds how many tools run at once (see --concurrency).
	Concurrency int

	// Timeout bounds one tool run (see --tool-timeout).
	Timeout time.Duration

	// ProbeTimeout bounds the reachability probe and port checks (see --probe-timeout).
	ProbeTimeout time.Duration

	// AxeCommand and LighthouseCommand are the executables invoked
	// (see --axe-cmd, --lighthouse-cmd).
	AxeCommand        string
	LighthouseCommand string

	// Ports are probed, in order, when no URL or repo port is known (see --port).
	Ports []int
}

type Runtime struct {
	// MaxRun bounds the whole crawl (see --max-run). 0 means unlimited.
	MaxRun time.Duration

	// ProgressEvery logs a progress summary every N analyzed repositories
	// (see --progress-every).
	ProgressEvery int

	// Verbose enables HTTP request logging and skip lines on the console.
	Verbose bool

	// LogLevel and LogFormat configure the structured logger
	// (see --log-level, --log-format).
	LogLevel  string
	LogFormat string
}

func New() *Config {
	return &Config{
		Mining: Mining{
			Mode:         ModeTools,
			Sort:         "stars-desc",
			PageSize:     100,
			MaxPages:     10,
			BatchSize:    10,
			MaxWorkflows: 10,
		},
		Quota: Quota{
			SearchFloor:    100,
			ContentFloor:   10,
			MaxAttempts:    5,
			SafetyMargin:   5 * time.Second,
			Throttle:       200 * time.Millisecond,
			ErrorBackoff:   10 * time.Second,
			MaxPageRetries: 3,
		},
		Scan: Scan{
			Tools:             []string{string(catalog.AXE), string(catalog.Lighthouse)},
			Results:           "accessibility_results.csv",
			Concurrency:       1,
			Timeout:           5 * time.Minute,
			ProbeTimeout:      10 * time.Second,
			AxeCommand:        "axe",
			LighthouseCommand: "lighthouse",
			Ports:             []int{3000, 5000, 8080},
		},
		Runtime: Runtime{
			MaxRun:        5*time.Hour + 50*time.Minute,
			ProgressEvery: 25,
			LogLevel:      "info",
			LogFormat:     "console",
		},
	}
}

// DefaultQueries returns the built-in search queries for a mode.
func DefaultQueries(mode string) []string {
	if mode == ModeNoTools {
		return []string{"stars:>1000", "stars:500..1000"}
	}
	return []string{
		"topic:accessibility stars:>10",
		"topic:a11y stars:>10",
		"axe-core in:readme stars:>10",
		"pa11y in:readme stars:>10",
		"lighthouse-ci in:readme stars:>10",
		"topic:web-app stars:>50",
		"topic:webapp stars:>50",
	}
}

// SearchQueries returns Queries (or the mode defaults) with the sort
// qualifier applied.
func (c *Config) SearchQueries() []string {
	qs := c.Mining.Queries
	if len(qs) == 0 {
		qs = DefaultQueries(c.Mining.Mode)
	}
	out := make([]string, 0, len(qs))
	for _, q := range qs {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		if c.Mining.Sort != "" && !strings.Contains(q, "sort:") {
			q += " sort:" + c.Mining.Sort
		}
		out = append(out, q)
	}
	return out
}

// Validate normalizes list and enum inputs and fills mode-dependent defaults.
func (c *Config) Validate() error {
	c.Mining.Include = splitCommaList(c.Mining.Include)
	c.Mining.Exclude = splitCommaList(c.Mining.Exclude)
	c.Mining.Languages = splitCommaList(c.Mining.Languages)
	c.Mining.DisableRules = splitCommaList(c.Mining.DisableRules)
	c.Scan.Tools = splitCommaList(c.Scan.Tools)

	// Mining validation
	c.Mining.Mode = normalizeEnumValue(c.Mining.Mode)
	if c.Mining.Mode == "" {
		c.Mining.Mode = ModeTools
	}
	if c.Mining.Mode != ModeTools && c.Mining.Mode != ModeNoTools {
		return fmt.Errorf("unsupported --mode: %s (must be one of: tools, no-tools)", c.Mining.Mode)
	}
	c.Mining.Sort = strings.TrimSpace(c.Mining.Sort)
	if c.Mining.PageSize < 1 || c.Mining.PageSize > 100 {
		return errors.New("--page-size must be between 1 and 100")
	}
	if c.Mining.MaxPages < 1 {
		return errors.New("--max-pages must be >= 1")
	}
	if c.Mining.BatchSize < 1 {
		return errors.New("--batch-size must be >= 1")
	}
	if c.Mining.MaxRepos < 0 {
		return errors.New("--max-repos must be >= 0")
	}
	if c.Mining.MinStars < 0 {
		return errors.New("--min-stars must be >= 0")
	}
	if c.Mining.MaxWorkflows < 1 {
		return errors.New("--max-workflows must be >= 1")
	}

	// Quota validation
	if c.Quota.SearchFloor < 0 || c.Quota.ContentFloor < 0 {
		return errors.New("quota floors must be >= 0")
	}
	if c.Quota.MaxAttempts < 1 {
		return errors.New("--max-attempts must be >= 1")
	}
	if c.Quota.SafetyMargin < 0 || c.Quota.Throttle < 0 || c.Quota.ErrorBackoff < 0 {
		return errors.New("durations must be >= 0")
	}
	if c.Quota.MaxPageRetries < 0 {
		return errors.New("--max-page-retries must be >= 0")
	}

	// Output validation
	if strings.TrimSpace(c.Output.CSV) == "" {
		c.Output.CSV = defaultCSV(c.Mining.Mode)
	}
	if strings.TrimSpace(c.Output.Processed) == "" {
		c.Output.Processed = defaultProcessed(c.Mining.Mode)
	}
	for i, emit := range c.Output.Emit {
		v := normalizeEnumValue(emit)
		if v != "json" && v != "ndjson" {
			return fmt.Errorf("unsupported --emit value: %s (must be one of: json, ndjson)", emit)
		}
		c.Output.Emit[i] = v
	}

	// Runtime validation
	if c.Runtime.MaxRun < 0 {
		return errors.New("--max-run must be >= 0")
	}
	if c.Runtime.ProgressEvery < 0 {
		return errors.New("--progress-every must be >= 0")
	}
	c.Runtime.LogFormat = normalizeEnumValue(c.Runtime.LogFormat)
	if c.Runtime.LogFormat != "" && c.Runtime.LogFormat != "console" && c.Runtime.LogFormat != "json" {
		return fmt.Errorf("unsupported --log-format: %s (must be one of: console, json)", c.Runtime.LogFormat)
	}

	return nil
}

// ValidateScan checks the options of the scan command.
func (c *Config) ValidateScan() error {
	c.Scan.Tools = splitCommaList(c.Scan.Tools)
	if len(c.Scan.Tools) == 0 {
		return errors.New("--tools must name at least one tool")
	}
	for i, name := range c.Scan.Tools {
		t, err := catalog.Parse(name)
		if err != nil {
			return fmt.Errorf("invalid --tools value: %w", err)
		}
		c.Scan.Tools[i] = string(t)
	}
	if c.Scan.URL == "" && c.Scan.RepoDir == "" && len(c.Scan.Ports) == 0 {
		return errors.New("one of --url, --repo-dir or --port is required")
	}
	if c.Scan.Concurrency < 1 {
		return errors.New("--concurrency must be >= 1")
	}
	if c.Scan.Timeout <= 0 || c.Scan.ProbeTimeout <= 0 {
		return errors.New("scan timeouts must be > 0")
	}
	for _, p := range c.Scan.Ports {
		if p < 1 || p > 65535 {
			return fmt.Errorf("invalid --port value: %d", p)
		}
	}
	if strings.TrimSpace(c.Scan.Results) == "" {
		return errors.New("--results must not be empty")
	}
	return nil
}

func defaultCSV(mode string) string {
	if mode == ModeNoTools {
		return "repositories_without_tools.csv"
	}
	return "repositories_with_tools.csv"
}

func defaultProcessed(mode string) string {
	if mode == ModeNoTools {
		return "processed_repos_no_tool.json"
	}
	return "processed_repos.json"
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}

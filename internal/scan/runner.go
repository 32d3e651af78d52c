package scan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"a11yminer/internal/catalog"
	"a11yminer/internal/config"
	"a11yminer/internal/logger"
	"a11yminer/internal/output"
)

const (
	// WCAGCriteria is the number of WCAG 2.1 A/AA success criteria considered.
	WCAGCriteria = 50
	// Automatable is the share of criteria automated tools can check:
	// round(50 * 0.44).
	Automatable = 22
)

type Status string

const (
	StatusOK      Status = "OK"
	StatusFail    Status = "FAIL"
	StatusSkipped Status = "SKIPPED"
)

// Result is one row of the results file.
type Result struct {
	Repository  string
	Tool        catalog.Tool
	Status      Status
	Findings    Findings
	CER         float64
	SuccessRate float64
	Err         error
}

// ResultsHeader is the fixed column layout of the results CSV.
var ResultsHeader = []string{
	"Repository", "Tool", "Status", "ViolationsTotal", "WarningsTotal",
	"ViolationsA", "ViolationsAA", "ViolationsAAA", "ViolationsUnclassified",
	"CER", "AccessibilitySuccessRate",
}

// Row renders r for the results CSV. Rows that did not run leave every
// metric empty.
func (r Result) Row() []string {
	row := []string{r.Repository, string(r.Tool), string(r.Status)}
	if r.Status != StatusOK {
		return append(row, "", "", "", "", "", "", "", "")
	}
	f := r.Findings
	return append(row,
		strconv.Itoa(f.Violations),
		strconv.Itoa(f.Warnings),
		strconv.Itoa(f.Levels.A),
		strconv.Itoa(f.Levels.AA),
		strconv.Itoa(f.Levels.AAA),
		strconv.Itoa(f.Levels.Unclassified),
		strconv.FormatFloat(r.CER, 'f', 2, 64),
		strconv.FormatFloat(r.SuccessRate, 'f', 2, 64),
	)
}

// WriteResults appends results to the CSV at path.
func WriteResults(path string, results []Result) error {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, r.Row())
	}
	return output.AppendCSV(path, "scan-results", ResultsHeader, rows)
}

// Scanner audits one URL.
type Scanner interface {
	Scan(ctx context.Context, target string) (Findings, error)
}

// CommandRunner runs an external program and returns its standard output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecCommand runs name with exec.CommandContext. Standard error is folded
// into the returned error.
func ExecCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 500 {
			msg = msg[len(msg)-500:]
		}
		if msg != "" {
			return stdout.Bytes(), fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return stdout.Bytes(), fmt.Errorf("%s: %w", name, err)
	}
	return stdout.Bytes(), nil
}

// AxeScanner runs the axe CLI and parses its JSON output.
type AxeScanner struct {
	Command string
	Run     CommandRunner
}

func (s *AxeScanner) Scan(ctx context.Context, target string) (Findings, error) {
	out, err := s.Run(ctx, s.Command, target, "--stdout")
	if err != nil {
		return Findings{}, err
	}
	return ParseAxe(out)
}

// LighthouseScanner runs the Lighthouse CLI restricted to the accessibility
// category.
type LighthouseScanner struct {
	Command string
	Run     CommandRunner
}

func (s *LighthouseScanner) Scan(ctx context.Context, target string) (Findings, error) {
	out, err := s.Run(ctx, s.Command, target,
		"--quiet",
		"--only-categories=accessibility",
		"--output=json",
		"--output-path=stdout",
		"--chrome-flags=--headless --no-sandbox",
	)
	if err != nil {
		return Findings{}, err
	}
	return ParseLighthouse(out)
}

// Runner runs auditors against a target with bounded concurrency. Tools
// without a scanner are reported as SKIPPED.
type Runner struct {
	Scanners    map[catalog.Tool]Scanner
	Concurrency int
	Timeout     time.Duration

	log *logger.Logger
}

// NewRunner wires the axe and Lighthouse CLIs named in cfg.
func NewRunner(cfg config.Scan, run CommandRunner) *Runner {
	if run == nil {
		run = ExecCommand
	}
	return &Runner{
		Scanners: map[catalog.Tool]Scanner{
			catalog.AXE:        &AxeScanner{Command: cfg.AxeCommand, Run: run},
			catalog.Lighthouse: &LighthouseScanner{Command: cfg.LighthouseCommand, Run: run},
		},
		Concurrency: cfg.Concurrency,
		Timeout:     cfg.Timeout,
		log:         logger.Named("scan"),
	}
}

// Run audits target with every tool. An empty target marks every row FAIL.
func (r *Runner) Run(ctx context.Context, repository, target string, tools []catalog.Tool) []Result {
	results := make([]Result, len(tools))
	if target == "" {
		for i, t := range tools {
			results[i] = Result{Repository: repository, Tool: t, Status: StatusFail, Err: ErrNoServer}
		}
		return results
	}

	var g errgroup.Group
	if r.Concurrency > 0 {
		g.SetLimit(r.Concurrency)
	}
	for i, t := range tools {
		s, ok := r.Scanners[t]
		if !ok {
			results[i] = Result{Repository: repository, Tool: t, Status: StatusSkipped}
			continue
		}
		g.Go(func() error {
			results[i] = r.runOne(ctx, repository, target, t, s)
			return nil
		})
	}
	_ = g.Wait()

	ComputeMetrics(results)
	return results
}

func (r *Runner) runOne(ctx context.Context, repository, target string, t catalog.Tool, s Scanner) Result {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	log := r.log.With().Str("tool", string(t)).Str("url", target).Logger()
	log.Info().Msg("scanner started")
	start := time.Now()

	f, err := s.Scan(ctx, target)
	if err != nil {
		log.Error().Err(err).Msg("scanner failed")
		return Result{Repository: repository, Tool: t, Status: StatusFail, Err: err}
	}
	for _, u := range f.Unclassified {
		log.Debug().Str("violation", u).Msg("unclassified violation")
	}
	log.Info().
		Int("violations", f.Violations).
		Int("warnings", f.Warnings).
		Dur("took", time.Since(start)).
		Msg("scanner finished")
	return Result{Repository: repository, Tool: t, Status: StatusOK, Findings: f}
}

// ComputeMetrics fills CER and SuccessRate of the OK rows. CER is the
// share of all distinct error IDs (across tools) that a tool reported; it is
// 0 when no tool reported any.
func ComputeMetrics(results []Result) {
	union := make(map[string]bool)
	for _, r := range results {
		if r.Status != StatusOK {
			continue
		}
		for _, id := range r.Findings.ErrorIDs {
			union[id] = true
		}
	}
	for i := range results {
		r := &results[i]
		if r.Status != StatusOK {
			continue
		}
		if len(union) > 0 {
			r.CER = round2(float64(len(r.Findings.ErrorIDs)) / float64(len(union)))
		}
		r.SuccessRate = round2(float64(Automatable-r.Findings.Violations) / Automatable)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// TargetProber is satisfied by *Prober.
type TargetProber interface {
	Probe(ctx context.Context, url string) (ProbeResult, error)
}

// Execute resolves the target, probes it, runs the tools and appends the
// rows to cfg.Results.
func (r *Runner) Execute(ctx context.Context, cfg config.Scan, p TargetProber, dial DialFunc) ([]Result, error) {
	tools := make([]catalog.Tool, 0, len(cfg.Tools))
	for _, name := range cfg.Tools {
		t, err := catalog.Parse(name)
		if err != nil {
			return nil, err
		}
		tools = append(tools, t)
	}

	target, source, err := ResolveTarget(ctx, TargetOptions{
		URL:     cfg.URL,
		RepoDir: cfg.RepoDir,
		Ports:   cfg.Ports,
		Timeout: cfg.ProbeTimeout,
		Dial:    dial,
	})
	if err != nil && !errors.Is(err, ErrNoServer) {
		return nil, err
	}
	repository := RepositoryLabel(cfg, target)

	if target == "" {
		r.log.Warn().Str("repository", repository).Msg("no server detected, marking every tool FAIL")
	} else {
		r.log.Info().Str("repository", repository).Str("url", target).Str("source", source).Msg("target resolved")
		if p != nil {
			pctx, cancel := context.WithTimeout(ctx, cfg.ProbeTimeout)
			res, perr := p.Probe(pctx, target)
			cancel()
			switch {
			case perr != nil:
				r.log.Warn().Err(perr).Str("url", target).Msg("target unreachable")
			case !res.OK():
				r.log.Warn().Int("status", res.Status).Str("url", target).Msg("target answered with an error status")
			default:
				r.log.Info().Int("status", res.Status).Str("title", res.Title).Msg("target reachable")
			}
		}
	}

	results := r.Run(ctx, repository, target, tools)
	if err := WriteResults(cfg.Results, results); err != nil {
		return results, fmt.Errorf("write results: %w", err)
	}
	return results, nil
}

// RepositoryLabel names the result rows: cfg.Repository, else the base name
// of cfg.RepoDir, else the target host.
func RepositoryLabel(cfg config.Scan, target string) string {
	if cfg.Repository != "" {
		return cfg.Repository
	}
	if cfg.RepoDir != "" {
		if abs, err := filepath.Abs(cfg.RepoDir); err == nil {
			return filepath.Base(abs)
		}
		return filepath.Base(cfg.RepoDir)
	}
	if u, err := url.Parse(target); err == nil && u.Host != "" {
		return u.Host
	}
	return "unknown"
}

package scan

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"a11yminer/internal/catalog"
	"a11yminer/internal/config"
)

type fakeScanner struct {
	findings Findings
	err      error
	calls    atomic.Int32
}

func (s *fakeScanner) Scan(ctx context.Context, target string) (Findings, error) {
	s.calls.Add(1)
	return s.findings, s.err
}

func newTestRunner(scanners map[catalog.Tool]Scanner) *Runner {
	cfg := config.New().Scan
	r := NewRunner(cfg, nil)
	r.Scanners = scanners
	return r
}

func TestRunner_MetricsAcrossTools(t *testing.T) {
	axe := &fakeScanner{findings: Findings{Violations: 3, ErrorIDs: []string{"color-contrast", "image-alt", "label"}}}
	lh := &fakeScanner{findings: Findings{Violations: 2, ErrorIDs: []string{"color-contrast", "html-has-lang"}}}
	r := newTestRunner(map[catalog.Tool]Scanner{catalog.AXE: axe, catalog.Lighthouse: lh})

	results := r.Run(context.Background(), "acme/storefront", "http://localhost:3000",
		[]catalog.Tool{catalog.AXE, catalog.Lighthouse, catalog.AChecker})
	require.Len(t, results, 3)

	assert.Equal(t, StatusOK, results[0].Status)
	assert.Equal(t, 0.75, results[0].CER) // 3 of 4 distinct IDs
	assert.Equal(t, 0.86, results[0].SuccessRate)
	assert.Equal(t, 0.5, results[1].CER)
	assert.Equal(t, 0.91, results[1].SuccessRate)
	assert.Equal(t, StatusSkipped, results[2].Status)
	assert.Equal(t, "acme/storefront", results[2].Repository)
}

func TestRunner_NoServerMarksEveryToolFail(t *testing.T) {
	axe := &fakeScanner{}
	r := newTestRunner(map[catalog.Tool]Scanner{catalog.AXE: axe})

	results := r.Run(context.Background(), "acme/app", "", []catalog.Tool{catalog.AXE, catalog.Lighthouse})
	for _, res := range results {
		assert.Equal(t, StatusFail, res.Status)
		assert.ErrorIs(t, res.Err, ErrNoServer)
		assert.Equal(t, []string{"acme/app", string(res.Tool), "FAIL", "", "", "", "", "", "", "", ""}, res.Row())
	}
	assert.Zero(t, axe.calls.Load())
}

func TestRunner_ToolFailureIsIsolated(t *testing.T) {
	axe := &fakeScanner{err: errors.New("axe: exit status 1")}
	lh := &fakeScanner{findings: Findings{Violations: 1, ErrorIDs: []string{"html-has-lang"}}}
	r := newTestRunner(map[catalog.Tool]Scanner{catalog.AXE: axe, catalog.Lighthouse: lh})

	results := r.Run(context.Background(), "acme/app", "http://localhost:3000", []catalog.Tool{catalog.AXE, catalog.Lighthouse})
	assert.Equal(t, StatusFail, results[0].Status)
	assert.Equal(t, StatusOK, results[1].Status)
	assert.Equal(t, 1.0, results[1].CER)
}

func TestRunner_NoErrorsGivesZeroCER(t *testing.T) {
	axe := &fakeScanner{}
	r := newTestRunner(map[catalog.Tool]Scanner{catalog.AXE: axe})

	results := r.Run(context.Background(), "acme/app", "http://localhost:3000", []catalog.Tool{catalog.AXE})
	assert.Equal(t, 0.0, results[0].CER)
	assert.Equal(t, 1.0, results[0].SuccessRate)
	assert.Equal(t, "0.00", results[0].Row()[9])
	assert.Equal(t, "1.00", results[0].Row()[10])
}

func TestAxeScanner_InvokesCommand(t *testing.T) {
	var gotName string
	var gotArgs []string
	s := &AxeScanner{Command: "axe", Run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		return []byte(axeReport), nil
	}}

	f, err := s.Scan(context.Background(), "http://localhost:3000")
	require.NoError(t, err)
	assert.Equal(t, "axe", gotName)
	assert.Equal(t, []string{"http://localhost:3000", "--stdout"}, gotArgs)
	assert.Equal(t, 3, f.Violations)
}

func TestLighthouseScanner_InvokesCommand(t *testing.T) {
	var gotArgs []string
	s := &LighthouseScanner{Command: "lighthouse", Run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = args
		return []byte(lighthouseFixture), nil
	}}

	f, err := s.Scan(context.Background(), "http://localhost:3000")
	require.NoError(t, err)
	assert.Contains(t, gotArgs, "--only-categories=accessibility")
	assert.Contains(t, gotArgs, "--output=json")
	assert.Equal(t, 2, f.Violations)
}

func TestExecute_WritesResults(t *testing.T) {
	dir := t.TempDir()
	cfg := config.New().Scan
	cfg.URL = "http://localhost:3000"
	cfg.Repository = "acme/storefront"
	cfg.Results = filepath.Join(dir, "results.csv")
	cfg.ProbeTimeout = time.Second

	run := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if name == "axe" {
			return []byte(axeReport), nil
		}
		return []byte(lighthouseFixture), nil
	}
	r := NewRunner(cfg, run)

	results, err := r.Execute(context.Background(), cfg, nil, refuseAll)
	require.NoError(t, err)
	require.Len(t, results, 2)

	f, err := os.Open(cfg.Results)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ResultsHeader, rows[0])
	assert.Equal(t, []string{"acme/storefront", "AXE", "OK", "3", "2", "1", "1", "0", "1", "0.75", "0.86"}, rows[1])
	assert.Equal(t, "Lighthouse", rows[2][1])
}

func TestExecute_NoServerWritesFailRows(t *testing.T) {
	dir := t.TempDir()
	cfg := config.New().Scan
	cfg.RepoDir = filepath.Join(dir, "my-app")
	require.NoError(t, os.Mkdir(cfg.RepoDir, 0o755))
	cfg.Results = filepath.Join(dir, "results.csv")

	r := NewRunner(cfg, func(ctx context.Context, name string, args ...string) ([]byte, error) {
		t.Fatalf("no command should run")
		return nil, nil
	})

	results, err := r.Execute(context.Background(), cfg, nil, refuseAll)
	require.NoError(t, err)
	for _, res := range results {
		assert.Equal(t, StatusFail, res.Status)
		assert.Equal(t, "my-app", res.Repository)
	}
}

func TestRepositoryLabel(t *testing.T) {
	cfg := config.New().Scan
	assert.Equal(t, "localhost:3000", RepositoryLabel(cfg, "http://localhost:3000"))
	assert.Equal(t, "unknown", RepositoryLabel(cfg, ""))
	cfg.RepoDir = "/src/shop"
	assert.Equal(t, "shop", RepositoryLabel(cfg, ""))
	cfg.Repository = "acme/shop"
	assert.Equal(t, "acme/shop", RepositoryLabel(cfg, ""))
}

package github

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"
)

type AuthTokenSource string

const (
	AuthTokenSourceNumbered AuthTokenSource = "env:TOKEN_<n>"
	AuthTokenSourceEnv      AuthTokenSource = "env:GITHUB_TOKEN"
	AuthTokenSourceGitHubCL AuthTokenSource = "gh"
)

// ErrNoTokens is returned when no credential source yields a token.
var ErrNoTokens = errors.New("no GitHub tokens configured (set TOKEN_1, TOKEN_2, ... or GITHUB_TOKEN, or run 'gh auth login')")

// ResolveTokens resolves the ordered credential pool.
//
// Precedence:
//  1. TOKEN_<n> env vars, ordered by n (gaps allowed, duplicates dropped)
//  2. GITHUB_TOKEN env var
//  3. GitHub CLI: `gh auth token -h github.com`
//
// It never prints a token. An empty result is reported as ErrNoTokens.
func ResolveTokens(ctx context.Context) ([]string, AuthTokenSource, error) {
	if toks := numberedEnvTokens(os.Environ()); len(toks) > 0 {
		return toks, AuthTokenSourceNumbered, nil
	}

	if env := strings.TrimSpace(os.Getenv("GITHUB_TOKEN")); env != "" {
		return []string{env}, AuthTokenSourceEnv, nil
	}

	tok, ok, err := tokenFromGitHubCLI(ctx)
	if err != nil {
		return nil, "", err
	}
	if ok {
		return []string{tok}, AuthTokenSourceGitHubCL, nil
	}
	return nil, "", ErrNoTokens
}

func numberedEnvTokens(environ []string) []string {
	type numbered struct {
		n   int
		tok string
	}
	var found []numbered
	for _, entry := range environ {
		key, val, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasPrefix(key, "TOKEN_") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(key, "TOKEN_"))
		if err != nil || n < 1 {
			continue
		}
		val = strings.TrimSpace(val)
		if val == "" {
			continue
		}
		found = append(found, numbered{n: n, tok: val})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })

	seen := make(map[string]struct{}, len(found))
	out := make([]string, 0, len(found))
	for _, f := range found {
		if _, dup := seen[f.tok]; dup {
			continue
		}
		seen[f.tok] = struct{}{}
		out = append(out, f.tok)
	}
	return out
}

func tokenFromGitHubCLI(ctx context.Context) (token string, ok bool, err error) {
	_, lookErr := exec.LookPath("gh")
	if lookErr != nil {
		return "", false, nil
	}

	// Keep this bounded so a broken gh config or credential helper
	// doesn't hang the run.
	cmdCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		cmdCtx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	cmd := exec.CommandContext(cmdCtx, "gh", "auth", "token", "-h", "github.com")
	env := os.Environ()
	filteredEnv := env[:0]
	for _, entry := range env {
		if strings.HasPrefix(entry, "GH_PAGER=") {
			continue
		}
		filteredEnv = append(filteredEnv, entry)
	}
	cmd.Env = append(filteredEnv, "GH_PAGER=cat")
	out, runErr := cmd.CombinedOutput()
	if runErr != nil {
		if cmdCtx.Err() != nil {
			return "", false, cmdCtx.Err()
		}
		// gh present but not logged in: treat as "no token" without
		// surfacing its output.
		return "", false, nil
	}

	tok := strings.TrimSpace(string(out))
	if tok == "" {
		return "", false, nil
	}
	if strings.ContainsAny(tok, " \t\n\r") {
		return "", false, errors.New("invalid token returned by gh: contains whitespace")
	}

	return tok, true, nil
}

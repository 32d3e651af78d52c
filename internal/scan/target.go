package scan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"
)

// ErrNoServer means no URL was given and no local server could be found.
var ErrNoServer = errors.New("no local server detected")

// DialFunc opens a TCP connection; net.Dialer.DialContext satisfies it.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

type TargetOptions struct {
	URL     string
	RepoDir string
	Ports   []int
	Timeout time.Duration
	Dial    DialFunc
}

// ResolveTarget returns the URL to audit and where it came from: the given
// URL, the first listening port of opts.Ports, or a port declared in the
// repository's .env or package.json start script.
func ResolveTarget(ctx context.Context, opts TargetOptions) (string, string, error) {
	if opts.URL != "" {
		return opts.URL, "url", nil
	}

	dial := opts.Dial
	if dial == nil {
		d := &net.Dialer{Timeout: opts.Timeout}
		dial = d.DialContext
	}
	for _, p := range opts.Ports {
		if listening(ctx, dial, p, opts.Timeout) {
			return localURL(p), "port:" + strconv.Itoa(p), nil
		}
	}

	if opts.RepoDir != "" {
		if p, err := PortFromEnv(opts.RepoDir); err != nil {
			return "", "", err
		} else if p > 0 {
			return localURL(p), ".env", nil
		}
		if p, err := PortFromPackageJSON(opts.RepoDir); err != nil {
			return "", "", err
		} else if p > 0 {
			return localURL(p), "package.json", nil
		}
	}
	return "", "", ErrNoServer
}

func listening(ctx context.Context, dial DialFunc, port int, timeout time.Duration) bool {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	conn, err := dial(ctx, "tcp", net.JoinHostPort("localhost", strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func localURL(port int) string {
	return fmt.Sprintf("http://localhost:%d", port)
}

var (
	envPortRe       = regexp.MustCompile(`(?im)^\s*(?:export\s+)?PORT\s*=\s*["']?(\d+)`)
	scriptEnvPortRe = regexp.MustCompile(`(?i)\bPORT=(\d+)`)
	scriptPortRe    = regexp.MustCompile(`(?i)--port[\s=]+(\d+)`)
)

// PortFromEnv reads PORT=N from dir/.env. A missing file yields 0.
func PortFromEnv(dir string) (int, error) {
	b, err := os.ReadFile(filepath.Join(dir, ".env"))
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return firstPort(string(b), envPortRe), nil
}

// PortFromPackageJSON reads PORT=N or --port N from the start script of
// dir/package.json. A missing file or script yields 0.
func PortFromPackageJSON(dir string) (int, error) {
	b, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var pkg struct {
		Scripts map[string]string `json:"scripts"`
	}
	if err := json.Unmarshal(b, &pkg); err != nil {
		return 0, fmt.Errorf("parse %s: %w", filepath.Join(dir, "package.json"), err)
	}
	start := pkg.Scripts["start"]
	if p := firstPort(start, scriptEnvPortRe); p > 0 {
		return p, nil
	}
	return firstPort(start, scriptPortRe), nil
}

func firstPort(s string, re *regexp.Regexp) int {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	p, err := strconv.Atoi(m[1])
	if err != nil || p < 1 || p > 65535 {
		return 0
	}
	return p
}

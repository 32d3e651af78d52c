package scan

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func serverPort(t *testing.T, srv *httptest.Server) int {
	t.Helper()
	_, p, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(p)
	require.NoError(t, err)
	return port
}

func refuseAll(ctx context.Context, network, addr string) (net.Conn, error) {
	return nil, errors.New("connection refused")
}

func TestResolveTarget_ExplicitURL(t *testing.T) {
	url, source, err := ResolveTarget(context.Background(), TargetOptions{URL: "https://example.org", Ports: []int{3000}})
	require.NoError(t, err)
	assert.Equal(t, "https://example.org", url)
	assert.Equal(t, "url", source)
}

func TestResolveTarget_ListeningPort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()
	port := serverPort(t, srv)

	var dialed []string
	dial := func(ctx context.Context, network, addr string) (net.Conn, error) {
		dialed = append(dialed, addr)
		_, p, _ := net.SplitHostPort(addr)
		if p != strconv.Itoa(port) {
			return nil, errors.New("connection refused")
		}
		var d net.Dialer
		return d.DialContext(ctx, network, srv.Listener.Addr().String())
	}

	url, source, err := ResolveTarget(context.Background(), TargetOptions{
		Ports:   []int{1, port},
		Timeout: time.Second,
		Dial:    dial,
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:"+strconv.Itoa(port), url)
	assert.Equal(t, "port:"+strconv.Itoa(port), source)
	assert.Len(t, dialed, 2)
}

func TestResolveTarget_EnvThenPackageJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{"scripts": {"start": "vite --port 5173"}}`)

	url, source, err := ResolveTarget(context.Background(), TargetOptions{RepoDir: dir, Ports: []int{3000}, Dial: refuseAll})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5173", url)
	assert.Equal(t, "package.json", source)

	writeFile(t, dir, ".env", "NODE_ENV=development\nPORT = 4000\n")
	url, source, err = ResolveTarget(context.Background(), TargetOptions{RepoDir: dir, Dial: refuseAll})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4000", url)
	assert.Equal(t, ".env", source)
}

func TestResolveTarget_NoServer(t *testing.T) {
	_, _, err := ResolveTarget(context.Background(), TargetOptions{RepoDir: t.TempDir(), Ports: []int{3000, 5000}, Dial: refuseAll})
	assert.ErrorIs(t, err, ErrNoServer)
}

func TestPortFromEnv(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want int
	}{
		{"plain", "PORT=3000\n", 3000},
		{"other port variable first", "DB_PORT=5432\nPORT=3000\n", 3000},
		{"export and quotes", "export PORT=\"8080\"\n", 8080},
		{"only other port variables", "DB_PORT=5432\nREDIS_PORT=6379\n", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, ".env", tt.env)
			got, err := PortFromEnv(dir)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPortFromPackageJSON(t *testing.T) {
	tests := []struct {
		name string
		pkg  string
		want int
	}{
		{"env prefix", `{"scripts": {"start": "PORT=3001 react-scripts start"}}`, 3001},
		{"port flag", `{"scripts": {"start": "next start --port 8081"}}`, 8081},
		{"no port", `{"scripts": {"start": "node server.js"}}`, 0},
		{"no start", `{"scripts": {"build": "tsc"}}`, 0},
		{"out of range", `{"scripts": {"start": "PORT=70000 node ."}}`, 0},
		{"other port variable", `{"scripts": {"start": "DB_PORT=5432 node . --port 8082"}}`, 8082},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "package.json", tt.pkg)
			got, err := PortFromPackageJSON(dir)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPortFromPackageJSON_Invalid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{`)
	_, err := PortFromPackageJSON(dir)
	assert.Error(t, err)

	got, err := PortFromPackageJSON(t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, got)
}

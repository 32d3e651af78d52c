package github

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewClient_NilContextReturnsError(t *testing.T) {
	var nilCtx context.Context
	_, err := NewClient(nilCtx, "")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "ctx is nil") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewClients_PreservesOrderAndAuth(t *testing.T) {
	ctx := context.Background()

	var gotAuth []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = append(gotAuth, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte("{}"))
	}))
	t.Cleanup(server.Close)

	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	clients, err := NewClients(ctx, []string{"tok-a", "tok-b"}, WithVerbose(true, &log))
	if err != nil {
		t.Fatalf("NewClients failed: %v", err)
	}
	if len(clients) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(clients))
	}

	base, _ := url.Parse(server.URL + "/")
	for _, c := range clients {
		c.Client.BaseURL = base
		req, err := c.Client.NewRequest("GET", "/rate_limit", nil)
		if err != nil {
			t.Fatalf("NewRequest: %v", err)
		}
		if _, err := c.Client.Do(ctx, req, nil); err != nil {
			t.Fatalf("Do: %v", err)
		}
	}

	if len(gotAuth) != 2 || !strings.Contains(gotAuth[0], "tok-a") || !strings.Contains(gotAuth[1], "tok-b") {
		t.Fatalf("unexpected Authorization headers: %v", gotAuth)
	}
	if !strings.Contains(buf.String(), "github api request") {
		t.Fatalf("expected verbose log, got %q", buf.String())
	}
}

func TestQuotaFromHeader(t *testing.T) {
	now := unixTime(1700000000)

	h := http.Header{}
	h.Set("X-RateLimit-Remaining", "42")
	h.Set("X-RateLimit-Reset", "1700000100")
	q := QuotaFromHeader(h, now)
	if q.Remaining != 42 || q.Reset.Unix() != 1700000100 {
		t.Fatalf("unexpected quota %+v", q)
	}

	h = http.Header{}
	h.Set("Retry-After", "60")
	q = QuotaFromHeader(h, now)
	if q.Remaining != -1 || q.Reset.Unix() != 1700000060 {
		t.Fatalf("unexpected quota %+v", q)
	}

	q = QuotaFromHeader(http.Header{"X-Ratelimit-Remaining": {"nope"}}, now)
	if q.Remaining != -1 || !q.Reset.IsZero() {
		t.Fatalf("invalid headers should be ignored, got %+v", q)
	}
}

func TestIsRateLimitStatus(t *testing.T) {
	mk := func(code int, kv ...string) *http.Response {
		r := &http.Response{StatusCode: code, Header: http.Header{}}
		for i := 0; i+1 < len(kv); i += 2 {
			r.Header.Set(kv[i], kv[i+1])
		}
		return r
	}
	tests := []struct {
		name string
		resp *http.Response
		want bool
	}{
		{"nil", nil, false},
		{"ok", mk(200), false},
		{"429", mk(429), true},
		{"403 exhausted", mk(403, "X-RateLimit-Remaining", "0"), true},
		{"403 secondary", mk(403, "Retry-After", "30"), true},
		{"403 permission", mk(403, "X-RateLimit-Remaining", "4000"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRateLimitStatus(tt.resp); got != tt.want {
				t.Fatalf("want %v, got %v", tt.want, got)
			}
		})
	}
}

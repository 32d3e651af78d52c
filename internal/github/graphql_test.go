package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func unixTime(unix int64) time.Time { return time.Unix(unix, 0) }

func newGraphQLTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	c, err := NewClient(context.Background(), "tok")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	base, _ := url.Parse(server.URL + "/")
	c.Client.BaseURL = base
	return c
}

func TestGraphqlEndpoint(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"https://api.github.com/", "https://api.github.com/graphql"},
		{"https://ghe.example.com/api/v3/", "https://ghe.example.com/api/graphql"},
	}
	for _, tt := range tests {
		u, _ := url.Parse(tt.base)
		got, err := graphqlEndpoint(u)
		if err != nil {
			t.Fatalf("graphqlEndpoint(%q): %v", tt.base, err)
		}
		if got.String() != tt.want {
			t.Fatalf("graphqlEndpoint(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
	if _, err := graphqlEndpoint(nil); err == nil {
		t.Fatalf("expected error for nil base")
	}
}

func TestDoGraphQL(t *testing.T) {
	type payload struct {
		Viewer struct {
			Login string `json:"login"`
		} `json:"viewer"`
	}

	t.Run("decodes data", func(t *testing.T) {
		c := newGraphQLTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/graphql" || r.Method != http.MethodPost {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			body, _ := io.ReadAll(r.Body)
			if !strings.Contains(string(body), `"first":5`) {
				t.Errorf("variables not sent: %s", body)
			}
			w.Header().Set("X-RateLimit-Remaining", "4999")
			fmt.Fprint(w, `{"data":{"viewer":{"login":"octocat"}}}`)
		})

		out, resp, err := DoGraphQL[payload](context.Background(), c, GraphQLRequest{
			Query:     "query { viewer { login } }",
			Variables: map[string]any{"first": 5},
		})
		if err != nil {
			t.Fatalf("DoGraphQL: %v", err)
		}
		if out.Data.Viewer.Login != "octocat" {
			t.Fatalf("unexpected data %+v", out.Data)
		}
		if resp == nil || resp.Header.Get("X-RateLimit-Remaining") != "4999" {
			t.Fatalf("expected response headers to be returned")
		}
	})

	t.Run("non-2xx is HTTPError", func(t *testing.T) {
		c := newGraphQLTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.WriteHeader(http.StatusForbidden)
		})
		_, resp, err := DoGraphQL[payload](context.Background(), c, GraphQLRequest{Query: "q"})
		var herr *HTTPError
		if !errors.As(err, &herr) || herr.StatusCode != http.StatusForbidden {
			t.Fatalf("expected HTTPError 403, got %v", err)
		}
		if !IsRateLimitStatus(resp) {
			t.Fatalf("expected rate-limit status")
		}
	})

	t.Run("rate limited payload", func(t *testing.T) {
		c := newGraphQLTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"errors":[{"type":"RATE_LIMITED","message":"API rate limit exceeded"}]}`)
		})
		_, _, err := DoGraphQL[payload](context.Background(), c, GraphQLRequest{Query: "q"})
		var gerr *GraphQLErrors
		if !errors.As(err, &gerr) {
			t.Fatalf("expected GraphQLErrors, got %v", err)
		}
		if !gerr.RateLimited() {
			t.Fatalf("expected RateLimited() to be true")
		}
		if !strings.Contains(err.Error(), "rate limit exceeded") {
			t.Fatalf("unexpected message %q", err.Error())
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		c := newGraphQLTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `<html>not json</html>`)
		})
		_, _, err := DoGraphQL[payload](context.Background(), c, GraphQLRequest{Query: "q"})
		if err == nil || !strings.Contains(err.Error(), "decode response") {
			t.Fatalf("expected decode error, got %v", err)
		}
	})
}

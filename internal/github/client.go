package github

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"a11yminer/internal/logger"

	"github.com/google/go-github/v81/github"
	"golang.org/x/oauth2"
)

// Client pairs a go-github REST client with the http.Client it was built on,
// so GraphQL calls share auth and logging.
type Client struct {
	Client *github.Client
	HTTP   *http.Client
}

type options struct {
	verbose bool
	log     *logger.Logger
	base    http.RoundTripper
}

type Option func(*options)

// WithVerbose logs one debug line per request and response.
func WithVerbose(enabled bool, log *logger.Logger) Option {
	return func(o *options) {
		o.verbose = enabled
		o.log = log
	}
}

// WithTransport overrides the base transport (tests).
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.base = rt
	}
}

// loggingRoundTripper emits one line per request and response (including
// latency) when verbose logging is enabled.
type loggingRoundTripper struct {
	base http.RoundTripper
	log  *logger.Logger
}

func (t *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	t.log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Msg("github api request")
	resp, err := t.base.RoundTrip(req)
	dur := time.Since(start).Truncate(time.Millisecond)
	if err != nil {
		t.log.Debug().Err(err).Dur("elapsed", dur).Msg("github api error")
	} else {
		t.log.Debug().
			Int("status", resp.StatusCode).
			Str("remaining", resp.Header.Get("X-RateLimit-Remaining")).
			Dur("elapsed", dur).
			Msg("github api response")
	}
	return resp, err
}

func NewClient(ctx context.Context, token string, opts ...Option) (*Client, error) {
	if ctx == nil {
		return nil, fmt.Errorf("github client: ctx is nil")
	}

	o := &options{}
	for _, apply := range opts {
		if apply != nil {
			apply(o)
		}
	}
	if o.verbose && o.log == nil {
		o.log = logger.Named("github")
	}

	transport := http.DefaultTransport
	if o.base != nil {
		transport = o.base
	}
	if o.verbose {
		transport = &loggingRoundTripper{base: transport, log: o.log}
	}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		transport = &oauth2.Transport{Source: ts, Base: transport}
	}
	tc := &http.Client{Transport: transport, Timeout: 60 * time.Second}

	return &Client{
		Client: github.NewClient(tc),
		HTTP:   tc,
	}, nil
}

// NewClients builds one client per token, preserving order.
func NewClients(ctx context.Context, tokens []string, opts ...Option) ([]*Client, error) {
	out := make([]*Client, 0, len(tokens))
	for i, tok := range tokens {
		c, err := NewClient(ctx, tok, opts...)
		if err != nil {
			return nil, fmt.Errorf("client for credential %d: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

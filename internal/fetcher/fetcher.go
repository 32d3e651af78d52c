package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"a11yminer/internal/data"
	gh "a11yminer/internal/github"
	"a11yminer/internal/logger"

	"github.com/google/go-github/v81/github"
	"golang.org/x/time/rate"
)

const (
	DefaultSearchFloor  = 100
	DefaultContentFloor = 10
	DefaultMaxAttempts  = 5
	DefaultSafetyMargin = 5 * time.Second
	DefaultThrottle     = 200 * time.Millisecond
)

// Options tunes quota handling. Negative floors and SafetyMargin take the
// defaults above, zero is honored. MaxAttempts <= 0 and Throttle == 0 take
// the defaults; a negative Throttle disables the politeness limiter.
type Options struct {
	SearchFloor  int
	ContentFloor int
	MaxAttempts  int
	SafetyMargin time.Duration
	Throttle     time.Duration
	CacheLimit   int
}

func (o Options) withDefaults() Options {
	if o.SearchFloor < 0 {
		o.SearchFloor = DefaultSearchFloor
	}
	if o.ContentFloor < 0 {
		o.ContentFloor = DefaultContentFloor
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.SafetyMargin < 0 {
		o.SafetyMargin = DefaultSafetyMargin
	}
	if o.Throttle == 0 {
		o.Throttle = DefaultThrottle
	}
	return o
}

// Entry is one item of a directory listing.
type Entry struct {
	Name string
	Path string
	Type string // "file" or "dir"
}

// SearchPage is one page of repository search results.
type SearchPage struct {
	Total       int
	Repos       []*data.Descriptor
	HasNextPage bool
	EndCursor   string
}

// Fetcher performs every GitHub call of a run. It rotates credentials ahead of
// quota exhaustion and retries rate-limited calls in a bounded loop.
//
// Now and Sleep are exported for tests.
type Fetcher struct {
	clients []*gh.Client
	pool    *CredentialPool
	limiter *rate.Limiter
	cache   *Cache
	opts    Options
	log     *logger.Logger

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

func New(clients []*gh.Client, opts Options) (*Fetcher, error) {
	if len(clients) == 0 {
		return nil, fmt.Errorf("fetcher: no credentials")
	}
	for i, c := range clients {
		if c == nil || c.Client == nil {
			return nil, fmt.Errorf("fetcher: nil client for credential %d", i)
		}
	}
	pool, err := NewCredentialPool(len(clients))
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.Throttle > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.Throttle), 1)
	}

	f := &Fetcher{
		clients: clients,
		pool:    pool,
		limiter: limiter,
		cache:   NewCache(opts.CacheLimit),
		opts:    opts,
		log:     logger.Named("fetcher"),
		Now:     time.Now,
		Sleep:   SleepContext,
	}
	pool.now = func() time.Time { return f.Now() }
	return f, nil
}

func (f *Fetcher) Pool() *CredentialPool {
	return f.pool
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// call is one API request made with a specific credential. It returns the raw
// response (if any) so quota headers can be recorded.
type call func(ctx context.Context, c *gh.Client) (*http.Response, error)

func (f *Fetcher) do(ctx context.Context, op string, floor int, fn call) error {
	var lastReset time.Time
	for attempt := 1; attempt <= f.opts.MaxAttempts; attempt++ {
		idx, err := f.pool.Select(floor)
		if errors.Is(err, ErrPoolExhausted) {
			until := f.pool.EarliestReset().Add(f.opts.SafetyMargin)
			wait := until.Sub(f.Now())
			f.log.Warn().
				Str("op", op).
				Int("credential", idx).
				Time("reset", until).
				Dur("wait", wait).
				Msg("all credentials exhausted, sleeping until reset")
			if err := f.Sleep(ctx, wait); err != nil {
				return err
			}
			f.pool.Forget(idx)
		}

		if err := f.limiter.Wait(ctx); err != nil {
			return err
		}

		resp, callErr := fn(ctx, f.clients[idx])
		if resp != nil {
			q := gh.QuotaFromHeader(resp.Header, f.Now())
			f.pool.Record(idx, q.Remaining, q.Reset)
		}

		limited, reset := rateLimited(resp, callErr, f.Now())
		if !limited {
			return callErr
		}
		f.pool.MarkExhausted(idx, reset)
		lastReset = reset
		f.log.Warn().
			Str("op", op).
			Int("credential", idx).
			Int("attempt", attempt).
			Time("reset", reset).
			Msg("rate limited, rotating credential")
	}

	if lastReset.IsZero() {
		lastReset = f.pool.EarliestReset()
	}
	return &RateLimitError{ResetAt: lastReset, Attempts: f.opts.MaxAttempts}
}

// rateLimited recognizes every shape a quota refusal takes: go-github's typed
// errors, a 403/429 with quota headers, or a GraphQL RATE_LIMITED entry.
func rateLimited(resp *http.Response, err error, now time.Time) (bool, time.Time) {
	var rle *github.RateLimitError
	if errors.As(err, &rle) {
		return true, rle.Rate.Reset.Time
	}
	var abuse *github.AbuseRateLimitError
	if errors.As(err, &abuse) {
		if d := abuse.GetRetryAfter(); d > 0 {
			return true, now.Add(d)
		}
		return true, time.Time{}
	}
	var gqlErr *gh.GraphQLErrors
	if errors.As(err, &gqlErr) && gqlErr.RateLimited() {
		var reset time.Time
		if resp != nil {
			reset = gh.QuotaFromHeader(resp.Header, now).Reset
		}
		return true, reset
	}
	if err != nil && gh.IsRateLimitStatus(resp) {
		return true, gh.QuotaFromHeader(resp.Header, now).Reset
	}
	return false, time.Time{}
}

func rawResponse(resp *github.Response) *http.Response {
	if resp == nil {
		return nil
	}
	return resp.Response
}

// notFound maps a go-github 404 to gh.ErrNotFound.
func notFound(resp *github.Response, err error) error {
	if err != nil && resp != nil && resp.StatusCode == http.StatusNotFound {
		return gh.ErrNotFound
	}
	return err
}

const searchQuery = `query($query: String!, $first: Int!, $after: String) {
  search(query: $query, type: REPOSITORY, first: $first, after: $after) {
    repositoryCount
    pageInfo { hasNextPage endCursor }
    nodes {
      ... on Repository {
        nameWithOwner
        stargazerCount
        pushedAt
        homepageUrl
        description
        primaryLanguage { name }
        repositoryTopics(first: 20) { nodes { topic { name } } }
      }
    }
  }
}`

type searchData struct {
	Search struct {
		RepositoryCount int `json:"repositoryCount"`
		PageInfo        struct {
			HasNextPage bool   `json:"hasNextPage"`
			EndCursor   string `json:"endCursor"`
		} `json:"pageInfo"`
		Nodes []searchNode `json:"nodes"`
	} `json:"search"`
}

type searchNode struct {
	NameWithOwner   string     `json:"nameWithOwner"`
	StargazerCount  int        `json:"stargazerCount"`
	PushedAt        *time.Time `json:"pushedAt"`
	HomepageURL     string     `json:"homepageUrl"`
	Description     string     `json:"description"`
	PrimaryLanguage *struct {
		Name string `json:"name"`
	} `json:"primaryLanguage"`
	RepositoryTopics struct {
		Nodes []struct {
			Topic struct {
				Name string `json:"name"`
			} `json:"topic"`
		} `json:"nodes"`
	} `json:"repositoryTopics"`
}

func (n searchNode) descriptor() (*data.Descriptor, error) {
	owner, name, err := data.SplitFullName(n.NameWithOwner)
	if err != nil {
		return nil, err
	}
	d := &data.Descriptor{
		Owner:       owner,
		Name:        name,
		Stars:       n.StargazerCount,
		Homepage:    strings.TrimSpace(n.HomepageURL),
		Description: n.Description,
	}
	if n.PushedAt != nil {
		d.PushedAt = *n.PushedAt
	}
	if n.PrimaryLanguage != nil {
		d.Language = n.PrimaryLanguage.Name
	}
	for _, t := range n.RepositoryTopics.Nodes {
		if t.Topic.Name != "" {
			d.Topics = append(d.Topics, t.Topic.Name)
		}
	}
	return d, nil
}

// Search runs one page of a GraphQL repository search. Nodes that are not
// repositories come back empty and are dropped.
func (f *Fetcher) Search(ctx context.Context, query, cursor string, first int) (SearchPage, error) {
	vars := map[string]any{"query": query, "first": first}
	if cursor != "" {
		vars["after"] = cursor
	}
	req := gh.GraphQLRequest{Query: searchQuery, Variables: vars}

	var out gh.GraphQLResponse[searchData]
	err := f.do(ctx, "search", f.opts.SearchFloor, func(ctx context.Context, c *gh.Client) (*http.Response, error) {
		res, resp, err := gh.DoGraphQL[searchData](ctx, c, req)
		out = res
		return resp, err
	})
	if err != nil {
		return SearchPage{}, fmt.Errorf("search %q: %w", query, err)
	}

	s := out.Data.Search
	page := SearchPage{
		Total:       s.RepositoryCount,
		HasNextPage: s.PageInfo.HasNextPage,
		EndCursor:   s.PageInfo.EndCursor,
	}
	for _, n := range s.Nodes {
		if n.NameWithOwner == "" {
			continue
		}
		d, err := n.descriptor()
		if err != nil {
			f.log.Debug().Err(err).Str("node", n.NameWithOwner).Msg("skipping malformed search node")
			continue
		}
		page.Repos = append(page.Repos, d)
	}
	return page, nil
}

// GetFile returns the decoded text of a file. A missing path, a directory, or
// content the API will not inline are reported as found=false.
func (f *Fetcher) GetFile(ctx context.Context, owner, repo, path string) (string, bool, error) {
	var file *github.RepositoryContent
	err := f.do(ctx, "get_file", f.opts.ContentFloor, func(ctx context.Context, c *gh.Client) (*http.Response, error) {
		fc, _, resp, err := c.Client.Repositories.GetContents(ctx, owner, repo, path, nil)
		file = fc
		return rawResponse(resp), notFound(resp, err)
	})
	if gh.IsNotFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s/%s:%s: %w", owner, repo, path, err)
	}
	if file == nil {
		return "", false, nil
	}
	text, err := file.GetContent()
	if err != nil {
		f.log.Debug().Err(err).Str("repo", owner+"/"+repo).Str("path", path).Msg("file content not decodable")
		return "", false, nil
	}
	return text, true, nil
}

// ListDir returns the entries of a directory; a missing directory is empty.
// Listings are cached for the run.
func (f *Fetcher) ListDir(ctx context.Context, owner, repo, path string) ([]Entry, error) {
	key := owner + "/" + repo + ":" + path
	if v, ok := f.cache.Get(key); ok {
		return v.([]Entry), nil
	}

	var dir []*github.RepositoryContent
	err := f.do(ctx, "list_dir", f.opts.ContentFloor, func(ctx context.Context, c *gh.Client) (*http.Response, error) {
		_, dc, resp, err := c.Client.Repositories.GetContents(ctx, owner, repo, path, nil)
		dir = dc
		return rawResponse(resp), notFound(resp, err)
	})
	if gh.IsNotFound(err) {
		f.cache.Set(key, []Entry(nil))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s/%s:%s: %w", owner, repo, path, err)
	}

	entries := make([]Entry, 0, len(dir))
	for _, c := range dir {
		if c == nil {
			continue
		}
		entries = append(entries, Entry{Name: c.GetName(), Path: c.GetPath(), Type: c.GetType()})
	}
	f.cache.Set(key, entries)
	return entries, nil
}

// GetReadme returns the raw README text, or found=false when there is none.
func (f *Fetcher) GetReadme(ctx context.Context, owner, repo string) (string, bool, error) {
	var file *github.RepositoryContent
	err := f.do(ctx, "get_readme", f.opts.ContentFloor, func(ctx context.Context, c *gh.Client) (*http.Response, error) {
		fc, resp, err := c.Client.Repositories.GetReadme(ctx, owner, repo, nil)
		file = fc
		return rawResponse(resp), notFound(resp, err)
	})
	if gh.IsNotFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("readme %s/%s: %w", owner, repo, err)
	}
	if file == nil {
		return "", false, nil
	}
	text, err := file.GetContent()
	if err != nil {
		return "", false, nil
	}
	return text, true, nil
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"a11yminer/internal/config"
	"a11yminer/internal/data"
	"a11yminer/internal/detect"
	"a11yminer/internal/fetcher"
	"a11yminer/internal/logger"
	"a11yminer/internal/output"
	"a11yminer/internal/readme"
	"a11yminer/internal/rules"
)

type Searcher interface {
	Search(ctx context.Context, query, cursor string, first int) (fetcher.SearchPage, error)
}

type ReadmeSource interface {
	GetReadme(ctx context.Context, owner, repo string) (string, bool, error)
}

type Detector interface {
	Detect(ctx context.Context, desc *data.Descriptor) (detect.Detection, error)
}

type RecordSink interface {
	Append(records []output.Record) error
}

type ProcessedStore interface {
	Load() (map[string]bool, error)
	Persist(set map[string]bool) error
}

// Deps are the collaborators of a crawl. Events may be nil.
type Deps struct {
	Search    Searcher
	Readme    ReadmeSource
	Detector  Detector
	Rules     *rules.Set
	Sink      RecordSink
	Processed ProcessedStore
	Events    *output.Manager
}

type Stats struct {
	Analyzed int
	Saved    int
	Skipped  int
	Errored  int
}

// State is everything the crawl loop mutates.
type State struct {
	Queries    []string
	QueryIndex int
	Cursor     string
	Page       int
	Processed  map[string]bool
	Batch      []output.Record
	Stats      Stats

	// dirty is set when Processed changed since the last persist.
	dirty bool
}

// Crawler walks search results query by query and page by page, classifies
// each new repository, runs the detector, and appends accepted repositories
// to the sink in batches.
//
// Sleep is exported for tests.
type Crawler struct {
	cfg   *config.Config
	deps  Deps
	state State
	log   *logger.Logger

	Sleep func(ctx context.Context, d time.Duration) error
}

func New(cfg *config.Config, deps Deps) (*Crawler, error) {
	if cfg == nil {
		return nil, errors.New("engine: nil config")
	}
	if deps.Search == nil || deps.Readme == nil || deps.Detector == nil || deps.Sink == nil || deps.Processed == nil {
		return nil, errors.New("engine: missing dependency")
	}
	if deps.Rules == nil {
		deps.Rules = rules.NewSet(rules.List("")...)
	}
	return &Crawler{
		cfg:   cfg,
		deps:  deps,
		log:   logger.Named("engine"),
		Sleep: fetcher.SleepContext,
	}, nil
}

// State returns a snapshot of the crawl position, counters, processed set and
// pending batch. The processed set and batch are cloned.
func (c *Crawler) State() State {
	s := c.state
	s.Queries = slices.Clone(c.state.Queries)
	s.Processed = maps.Clone(c.state.Processed)
	s.Batch = slices.Clone(c.state.Batch)
	return s
}

// Run crawls every query. The processed set and any buffered records are
// saved before returning, also when ctx is cancelled or Runtime.MaxRun
// elapses. Reaching MaxRun is not an error.
func (c *Crawler) Run(ctx context.Context) (Stats, error) {
	processed, err := c.deps.Processed.Load()
	if err != nil {
		return Stats{}, fmt.Errorf("load processed set: %w", err)
	}
	c.state = State{Queries: c.cfg.SearchQueries(), Processed: processed}

	c.log.Info().
		Int("queries", len(c.state.Queries)).
		Int("processed", len(processed)).
		Str("mode", c.cfg.Mining.Mode).
		Msg("crawl started")
	c.emit(output.Event{Type: output.EventRunStarted})

	runCtx := ctx
	if c.cfg.Runtime.MaxRun > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.cfg.Runtime.MaxRun)
		defer cancel()
	}

	runErr := c.crawl(runCtx)
	if runErr != nil && ctx.Err() == nil && runCtx.Err() != nil {
		c.log.Warn().Dur("max_run", c.cfg.Runtime.MaxRun).Msg("run time limit reached, stopping")
		runErr = nil
	}

	finErr := c.finish()
	return c.state.Stats, errors.Join(runErr, finErr)
}

func (c *Crawler) crawl(ctx context.Context) error {
	for c.state.QueryIndex = 0; c.state.QueryIndex < len(c.state.Queries); c.state.QueryIndex++ {
		q := c.state.Queries[c.state.QueryIndex]
		c.log.Info().Str("query", q).Int("index", c.state.QueryIndex).Msg("query started")

		if err := c.crawlQuery(ctx, q); err != nil {
			return err
		}
		if err := c.checkpoint(); err != nil {
			return err
		}
		if c.limitReached() {
			c.log.Info().Int("max_repos", c.cfg.Mining.MaxRepos).Msg("repository limit reached")
			return nil
		}
	}
	return nil
}

func (c *Crawler) crawlQuery(ctx context.Context, query string) error {
	c.state.Cursor = ""
	c.state.Page = 0
	retries := 0

	for c.state.Page < c.cfg.Mining.MaxPages {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := c.deps.Search.Search(ctx, query, c.state.Cursor, c.cfg.Mining.PageSize)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			retries++
			if retries > c.cfg.Quota.MaxPageRetries {
				c.log.Error().Err(err).Str("query", query).Int("page", c.state.Page+1).
					Msg("search page failed, moving to next query")
				return nil
			}
			c.log.Warn().Err(err).Str("query", query).Int("page", c.state.Page+1).
				Int("retry", retries).Dur("backoff", c.cfg.Quota.ErrorBackoff).
				Msg("search page failed, backing off")
			if err := c.Sleep(ctx, c.cfg.Quota.ErrorBackoff); err != nil {
				return err
			}
			continue
		}
		retries = 0
		c.state.Page++

		c.log.Debug().Str("query", query).Int("page", c.state.Page).
			Int("results", len(page.Repos)).Int("total", page.Total).Msg("page fetched")

		for _, repo := range page.Repos {
			if c.limitReached() {
				return nil
			}
			if err := c.evaluate(ctx, query, repo); err != nil {
				return err
			}
		}

		if !page.HasNextPage || page.EndCursor == "" {
			return nil
		}
		c.state.Cursor = page.EndCursor
	}
	return nil
}

func (c *Crawler) limitReached() bool {
	return c.cfg.Mining.MaxRepos > 0 && c.state.Stats.Analyzed >= c.cfg.Mining.MaxRepos
}

// outcome is the result of analyzing one repository.
type outcome struct {
	accepted bool
	rule     string
	reason   string
	tools    []string
	record   output.Record
}

// evaluate handles one search node. Only context and sink errors are
// returned; per-repository failures are counted and logged.
func (c *Crawler) evaluate(ctx context.Context, query string, repo *data.Descriptor) error {
	name := repo.FullName()
	log := c.log.With().Str("repo", name).Logger()

	if c.state.Processed[name] {
		c.state.Stats.Skipped++
		log.Debug().Str("reason", "already processed").Msg("skip")
		c.emit(output.Event{Type: output.EventRepoSkipped, Repo: name, Query: query, Reason: "already processed"})
		return nil
	}
	if ok, reason := Filter(repo, c.cfg.Mining); !ok {
		c.state.Stats.Skipped++
		log.Debug().Str("reason", reason).Msg("skip")
		c.emit(output.Event{Type: output.EventRepoSkipped, Repo: name, Query: query, Reason: reason})
		return nil
	}

	var (
		res outcome
		err error
	)
	for attempt := 0; ; attempt++ {
		res, err = c.analyze(ctx, repo)
		if err == nil || !fetcher.IsRateLimited(err) || attempt >= c.cfg.Quota.MaxPageRetries {
			break
		}
		log.Warn().Err(err).Dur("backoff", c.cfg.Quota.ErrorBackoff).Msg("rate limited, retrying repository")
		if serr := c.Sleep(ctx, c.cfg.Quota.ErrorBackoff); serr != nil {
			return serr
		}
	}

	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	c.state.Stats.Analyzed++
	defer c.progress()

	if err != nil {
		c.state.Stats.Errored++
		log.Error().Err(err).Msg("repository failed")
		c.emit(output.Event{Type: output.EventRepoErrored, Repo: name, Query: query, Error: err.Error()})
		// A rate-limited repository is left unmarked so a later run retries it.
		if !fetcher.IsRateLimited(err) {
			c.markProcessed(name)
		}
		return nil
	}

	c.markProcessed(name)

	if !res.accepted {
		log.Debug().Str("rule", res.rule).Str("reason", res.reason).Msg("rejected")
		c.emit(output.Event{Type: output.EventRepoRejected, Repo: name, Query: query, Rule: res.rule, Reason: res.reason})
		return nil
	}

	c.state.Stats.Saved++
	c.state.Batch = append(c.state.Batch, res.record)
	log.Info().Str("rule", res.rule).Strs("tools", res.tools).Msg("accepted")
	c.emit(output.Event{Type: output.EventRepoAccepted, Repo: name, Query: query, Rule: res.rule, Reason: res.reason, Tools: res.tools})

	if len(c.state.Batch) >= c.cfg.Mining.BatchSize {
		return c.flush()
	}
	return nil
}

// analyze runs the classifier gate and the detector. The README is fetched
// only when the metadata alone does not mark the repository as a library.
func (c *Crawler) analyze(ctx context.Context, repo *data.Descriptor) (outcome, error) {
	if v := c.deps.Rules.IsLibrary(repo); v.Matched {
		return outcome{rule: v.RuleID, reason: string(rules.ClassLibrary) + ": " + v.Reason}, nil
	}

	text, found, err := c.deps.Readme.GetReadme(ctx, repo.Owner, repo.Name)
	if err != nil {
		return outcome{}, fmt.Errorf("readme: %w", err)
	}
	if found {
		text = readme.PlainText(text)
	}
	full := repo.WithReadme(text)

	dec := c.deps.Rules.Classify(full)
	if !dec.Accepted() {
		reason := string(dec.Class)
		if dec.Reason != "" {
			reason += ": " + dec.Reason
		}
		return outcome{rule: dec.RuleID, reason: reason}, nil
	}

	det, err := c.deps.Detector.Detect(ctx, full)
	if err != nil {
		return outcome{}, err
	}

	var tools []string
	for _, t := range det.Found() {
		tools = append(tools, string(t))
	}

	res := outcome{
		rule:   dec.RuleID,
		reason: dec.Reason,
		tools:  tools,
		record: output.Record{
			Repo:     full.FullName(),
			Stars:    full.Stars,
			PushedAt: full.PushedAt,
			Language: full.Language,
			Tools:    det.Tools(),
		},
	}
	if c.cfg.Mining.Mode == config.ModeNoTools {
		res.accepted = !det.Any()
		if !res.accepted {
			res.reason = "uses accessibility tools"
		}
		return res, nil
	}
	res.accepted = det.Any()
	if !res.accepted {
		res.reason = "no accessibility tool detected"
	}
	return res, nil
}

func (c *Crawler) markProcessed(name string) {
	c.state.Processed[name] = true
	c.state.dirty = true
}

// flush writes the batch and then persists the processed set, so a crash in
// between can only duplicate rows, never lose them. An empty batch touches
// nothing.
func (c *Crawler) flush() error {
	n := len(c.state.Batch)
	if n == 0 {
		return nil
	}
	if err := c.deps.Sink.Append(c.state.Batch); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	c.state.Batch = nil
	c.log.Info().Int("records", n).Msg("batch flushed")
	c.emit(output.Event{Type: output.EventBatchFlushed, Records: n})
	return c.persist()
}

func (c *Crawler) persist() error {
	if !c.state.dirty {
		return nil
	}
	if err := c.deps.Processed.Persist(c.state.Processed); err != nil {
		return fmt.Errorf("persist processed set: %w", err)
	}
	c.state.dirty = false
	return nil
}

func (c *Crawler) checkpoint() error {
	if err := c.flush(); err != nil {
		return err
	}
	return c.persist()
}

func (c *Crawler) finish() error {
	err := c.checkpoint()
	s := c.state.Stats
	c.log.Info().
		Int("analyzed", s.Analyzed).
		Int("saved", s.Saved).
		Int("skipped", s.Skipped).
		Int("errored", s.Errored).
		Msg("crawl finished")
	c.emit(output.Event{
		Type:     output.EventRunFinished,
		Analyzed: s.Analyzed,
		Saved:    s.Saved,
		Skipped:  s.Skipped,
		Errored:  s.Errored,
	})
	return err
}

func (c *Crawler) progress() {
	every := c.cfg.Runtime.ProgressEvery
	if every <= 0 || c.state.Stats.Analyzed%every != 0 {
		return
	}
	s := c.state.Stats
	c.log.Info().
		Int("analyzed", s.Analyzed).
		Int("saved", s.Saved).
		Int("skipped", s.Skipped).
		Int("errored", s.Errored).
		Int("query", c.state.QueryIndex).
		Int("page", c.state.Page).
		Msg("progress")
}

func (c *Crawler) emit(ev output.Event) {
	if c.deps.Events == nil {
		return
	}
	if err := c.deps.Events.Emit(ev); err != nil {
		c.log.Warn().Err(err).Str("event", ev.Type).Msg("event sink failed")
	}
}

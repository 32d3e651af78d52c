package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"a11yminer/internal/config"
	"a11yminer/internal/detect"
	"a11yminer/internal/engine"
	"a11yminer/internal/fetcher"
	"a11yminer/internal/flags"
	gh "a11yminer/internal/github"
	"a11yminer/internal/logger"
	"a11yminer/internal/output"
	"a11yminer/internal/rules"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const mineHelpTemplate = `{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}

{{end}}Usage:
  {{.UseLine}}

{{if .HasAvailableLocalFlags}}Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableInheritedFlags}}Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}Environment:
	a11yminer authenticates to GitHub with one or more access tokens and rotates
	between them as their rate-limit quota runs low.

	Sources (in order):
	1) TOKEN_1, TOKEN_2, ... environment variables (ordered by number)
	2) GITHUB_TOKEN environment variable
	3) GitHub CLI (gh) authentication via gh auth token (if gh is installed and logged in)

	Public repository access is enough; a classic PAT without scopes works.

  Examples:
    # macOS/Linux, two tokens
    export TOKEN_1="<token>" TOKEN_2="<token>"
    a11yminer mine

    # GitHub CLI auth
    gh auth login
    a11yminer mine --max-repos 50
`

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Crawl GitHub search results and record repositories by tool usage",
	Long: `Crawl GitHub repository search results and record web applications by the
accessibility testing tools they use.

For every search result not seen before, a11yminer:
	1. skips libraries, frameworks, curated lists, tutorials and dotfiles,
	   first from metadata and then from the README,
	2. keeps repositories that look like web applications,
	3. looks for tool evidence in root config files, dependency manifests,
	   CI workflows and metadata,
	4. appends the repository to the CSV according to --mode.

Modes:
	tools     keep web applications where at least one tool was detected
	          (default CSV: repositories_with_tools.csv)
	no-tools  keep popular web applications where no tool was detected
	          (default CSV: repositories_without_tools.csv)

Progress is saved in batches: the CSV first, then the processed set
(--processed), so an interrupted run resumes without re-evaluating
repositories. Every evaluated repository is recorded there, including
rejected and errored ones, with two exceptions that a later run evaluates
again: repositories skipped by --include/--exclude/--language/--min-stars,
and repositories still rate limited after --max-page-retries attempts.
A run stops by itself after --max-run.

Output:
	Console lines report saved repositories and batch flushes (skips too with
	--verbose). Structured events can be written via:
	- --emit: write an additional structured stream to stdout (json or ndjson)
	- --events: append NDJSON events to a file
	- --no-console: suppress the console sink

	Event types: run.started, repo.skipped, repo.accepted, repo.rejected,
	repo.errored, batch.flushed, run.finished.

Exit codes:
	0 = clean run
	2 = partial failure (some repositories errored, or the run was interrupted)
	3 = fatal error (crawl did not run or could not write results)

Examples:
  # Default accessibility queries, first 200 repositories
  a11yminer mine --max-repos 200

  # Popular web applications without any tool
  a11yminer mine --mode no-tools

  # Custom query, TypeScript only, machine-readable events
  a11yminer mine --query "topic:dashboard stars:>100" --language typescript --no-console --emit ndjson
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return fatal(err)
		}

		runID := uuid.NewString()
		initLogger(cmd, runID)

		ctx := logger.WithRun(cmd.Context(), runID)
		stats, err := runMine(ctx, cfg, runID)
		if err != nil {
			var ee *exitError
			if errors.As(err, &ee) {
				return err
			}
			if errors.Is(err, context.Canceled) {
				return exitWith(2, err)
			}
			return fatal(err)
		}
		return exitWith(engine.ExitCode(stats, false), nil)
	},
}

// runMine wires the fetcher, detector, classifier and sinks for one crawl.
func runMine(ctx context.Context, cfg *config.Config, runID string) (engine.Stats, error) {
	log := logger.Named("cli")

	ruleSet, err := rules.Resolve(strings.Join(cfg.Mining.DisableRules, ","))
	if err != nil {
		return engine.Stats{}, fatal(err)
	}

	tokens, source, err := gh.ResolveTokens(ctx)
	if err != nil {
		return engine.Stats{}, fatal(fmt.Errorf("failed to resolve GitHub credentials: %w (set TOKEN_1..TOKEN_N or GITHUB_TOKEN, or run 'gh auth login')", err))
	}
	log.Info().Int("credentials", len(tokens)).Str("source", string(source)).Msg("credentials resolved")

	clients, err := gh.NewClients(ctx, tokens, gh.WithVerbose(cfg.Runtime.Verbose, logger.Named("http")))
	if err != nil {
		return engine.Stats{}, fatal(fmt.Errorf("failed to create GitHub clients: %w", err))
	}

	throttle := cfg.Quota.Throttle
	if throttle == 0 {
		throttle = -1
	}
	f, err := fetcher.New(clients, fetcher.Options{
		SearchFloor:  cfg.Quota.SearchFloor,
		ContentFloor: cfg.Quota.ContentFloor,
		MaxAttempts:  cfg.Quota.MaxAttempts,
		SafetyMargin: cfg.Quota.SafetyMargin,
		Throttle:     throttle,
	})
	if err != nil {
		return engine.Stats{}, fatal(err)
	}

	sink, err := output.NewCSVSink(cfg.Output.CSV, engine.RecordSchema(cfg.Mining.Mode))
	if err != nil {
		return engine.Stats{}, fatal(err)
	}
	store, err := output.NewProcessedStore(cfg.Output.Processed)
	if err != nil {
		return engine.Stats{}, fatal(err)
	}

	outMgr, err := engine.SetupOutputManager(cfg, runID)
	if err != nil {
		return engine.Stats{}, fatal(fmt.Errorf("failed to create output sinks: %w", err))
	}
	defer outMgr.Close()

	crawler, err := engine.New(cfg, engine.Deps{
		Search: f,
		Readme: f,
		Detector: detect.New(f, detect.Options{
			MaxWorkflows:   cfg.Mining.MaxWorkflows,
			SkipInferences: cfg.Mining.NoInferences,
		}),
		Rules:     ruleSet,
		Sink:      sink,
		Processed: store,
		Events:    outMgr,
	})
	if err != nil {
		return engine.Stats{}, fatal(err)
	}

	log.Info().
		Str("csv", sink.Path()).
		Str("processed", store.Path()).
		Int("rules", len(ruleSet.Rules())).
		Msg("starting crawl")
	return crawler.Run(ctx)
}

func init() {
	rootCmd.AddCommand(mineCmd)
	mineCmd.SetHelpTemplate(mineHelpTemplate)

	// MAINTAINER NOTE: keep these in sync with the TOML keys in
	// internal/config/file.go.

	// Mining
	mineCmd.Flags().StringVar(&cfg.Mining.Mode, flags.FlagMode, cfg.Mining.Mode, "What to record: tools|no-tools")
	mineCmd.Flags().StringArrayVar(&cfg.Mining.Queries, flags.FlagQuery, nil, "GitHub repository search query (repeatable; default: built-in queries for --mode)")
	mineCmd.Flags().StringVar(&cfg.Mining.Sort, flags.FlagSort, cfg.Mining.Sort, "Sort qualifier appended to queries without one (empty disables)")
	mineCmd.Flags().IntVar(&cfg.Mining.PageSize, flags.FlagPageSize, cfg.Mining.PageSize, "Search results per page (1-100)")
	mineCmd.Flags().IntVar(&cfg.Mining.MaxPages, flags.FlagMaxPages, cfg.Mining.MaxPages, "Maximum pages per query")
	mineCmd.Flags().IntVar(&cfg.Mining.BatchSize, flags.FlagBatchSize, cfg.Mining.BatchSize, "Accepted repositories buffered before writing")
	mineCmd.Flags().IntVar(&cfg.Mining.MaxRepos, flags.FlagMaxRepos, 0, "Stop after analyzing this many repositories (0 = unlimited)")
	mineCmd.Flags().StringSliceVar(&cfg.Mining.Include, flags.FlagInclude, nil, "Include pattern(s) (repeatable; comma-separated accepted). Go path.Match style; if pattern contains '/', matches OWNER/REPO, else matches repo name")
	mineCmd.Flags().StringSliceVar(&cfg.Mining.Exclude, flags.FlagExclude, nil, "Exclude pattern(s) (repeatable; comma-separated accepted). Same matching rules as --include")
	mineCmd.Flags().StringSliceVar(&cfg.Mining.Languages, flags.FlagLanguage, nil, "Keep only these primary languages (repeatable; comma-separated accepted; case-insensitive)")
	mineCmd.Flags().IntVar(&cfg.Mining.MinStars, flags.FlagMinStars, 0, "Skip repositories with fewer stars")
	mineCmd.Flags().StringSliceVar(&cfg.Mining.DisableRules, flags.FlagDisableRule, nil, "Classifier rule IDs to disable (see 'a11yminer rules list')")
	mineCmd.Flags().BoolVar(&cfg.Mining.NoInferences, flags.FlagNoInferences, false, "Only record tools with direct evidence (no phrase-based inference)")
	mineCmd.Flags().IntVar(&cfg.Mining.MaxWorkflows, flags.FlagMaxWorkflows, cfg.Mining.MaxWorkflows, "Maximum CI workflow files read per repository")

	// Quota
	mineCmd.Flags().IntVar(&cfg.Quota.SearchFloor, flags.FlagSearchFloor, cfg.Quota.SearchFloor, "Rotate credentials when search quota falls below this (0 = only when exhausted)")
	mineCmd.Flags().IntVar(&cfg.Quota.ContentFloor, flags.FlagContentFloor, cfg.Quota.ContentFloor, "Rotate credentials when content quota falls below this (0 = only when exhausted)")
	mineCmd.Flags().IntVar(&cfg.Quota.MaxAttempts, flags.FlagMaxAttempts, cfg.Quota.MaxAttempts, "Rate-limited attempts per API call before giving up")
	mineCmd.Flags().DurationVar(&cfg.Quota.SafetyMargin, flags.FlagSafetyMargin, cfg.Quota.SafetyMargin, "Extra wait after a quota reset time")
	mineCmd.Flags().DurationVar(&cfg.Quota.Throttle, flags.FlagThrottle, cfg.Quota.Throttle, "Minimum delay between API calls (0 disables)")
	mineCmd.Flags().DurationVar(&cfg.Quota.ErrorBackoff, flags.FlagErrorBackoff, cfg.Quota.ErrorBackoff, "Pause after a failed search page or rate-limited repository")
	mineCmd.Flags().IntVar(&cfg.Quota.MaxPageRetries, flags.FlagMaxPageRetries, cfg.Quota.MaxPageRetries, "Retries of a failed search page before moving to the next query")

	// Output
	mineCmd.Flags().StringVar(&cfg.Output.CSV, flags.FlagCSV, "", "Results CSV (default depends on --mode)")
	mineCmd.Flags().StringVar(&cfg.Output.Processed, flags.FlagProcessed, "", "Processed-set JSON file (default depends on --mode)")
	mineCmd.Flags().StringSliceVar(&cfg.Output.Emit, flags.FlagEmit, nil, "Emit additional structured stream to stdout: json|ndjson (repeatable; comma-separated accepted)")
	mineCmd.Flags().StringVar(&cfg.Output.Events, flags.FlagEvents, "", "Append NDJSON events to this file")
	mineCmd.Flags().BoolVar(&cfg.Output.NoConsole, flags.FlagNoConsole, false, "Suppress console output (use with --emit/--events)")

	// Runtime
	mineCmd.Flags().DurationVar(&cfg.Runtime.MaxRun, flags.FlagMaxRun, cfg.Runtime.MaxRun, "Stop the crawl gracefully after this long (0 = unlimited)")
	mineCmd.Flags().IntVar(&cfg.Runtime.ProgressEvery, flags.FlagProgressEvery, cfg.Runtime.ProgressEvery, "Log a progress summary every N analyzed repositories (0 disables)")
}

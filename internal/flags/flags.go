// Package flags defines canonical CLI flag names shared by the CLI and the
// config file overlay, which must skip keys whose flag was set explicitly.
//
// IMPORTANT: These are flag *names* without leading dashes.
package flags

const (
	// Global
	FlagConfig    = "config"
	FlagVerbose   = "verbose"
	FlagLogLevel  = "log-level"
	FlagLogFormat = "log-format"

	// Mining
	FlagMode         = "mode"
	FlagQuery        = "query"
	FlagSort         = "sort"
	FlagPageSize     = "page-size"
	FlagMaxPages     = "max-pages"
	FlagBatchSize    = "batch-size"
	FlagMaxRepos     = "max-repos"
	FlagInclude      = "include"
	FlagExclude      = "exclude"
	FlagLanguage     = "language"
	FlagMinStars     = "min-stars"
	FlagDisableRule  = "disable-rule"
	FlagNoInferences = "no-inferences"
	FlagMaxWorkflows = "max-workflows"

	// Quota
	FlagSearchFloor    = "search-floor"
	FlagContentFloor   = "content-floor"
	FlagMaxAttempts    = "max-attempts"
	FlagSafetyMargin   = "safety-margin"
	FlagThrottle       = "throttle"
	FlagErrorBackoff   = "error-backoff"
	FlagMaxPageRetries = "max-page-retries"

	// Output
	FlagCSV       = "csv"
	FlagProcessed = "processed"
	FlagEmit      = "emit"
	FlagEvents    = "events"
	FlagNoConsole = "no-console"

	// Runtime
	FlagMaxRun        = "max-run"
	FlagProgressEvery = "progress-every"

	// Scan
	FlagURL               = "url"
	FlagRepoDir           = "repo-dir"
	FlagRepository        = "repository"
	FlagTools             = "tools"
	FlagResults           = "results"
	FlagConcurrency       = "concurrency"
	FlagToolTimeout       = "tool-timeout"
	FlagProbeTimeout      = "probe-timeout"
	FlagAxeCommand        = "axe-cmd"
	FlagLighthouseCommand = "lighthouse-cmd"
	FlagPort              = "port"
)

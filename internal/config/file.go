package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"a11yminer/internal/flags"

	"github.com/pelletier/go-toml/v2"
)

// fileConfig mirrors Config for TOML decoding. Pointer and nil-slice fields
// tell "absent" apart from zero values; durations are strings like "10s".
type fileConfig struct {
	Mining struct {
		Mode         *string  `toml:"mode"`
		Queries      []string `toml:"queries"`
		Sort         *string  `toml:"sort"`
		PageSize     *int     `toml:"page_size"`
		MaxPages     *int     `toml:"max_pages"`
		BatchSize    *int     `toml:"batch_size"`
		MaxRepos     *int     `toml:"max_repos"`
		Include      []string `toml:"include"`
		Exclude      []string `toml:"exclude"`
		Languages    []string `toml:"languages"`
		MinStars     *int     `toml:"min_stars"`
		DisableRules []string `toml:"disable_rules"`
		NoInferences *bool    `toml:"no_inferences"`
		MaxWorkflows *int     `toml:"max_workflows"`
	} `toml:"mining"`

	Quota struct {
		SearchFloor    *int    `toml:"search_floor"`
		ContentFloor   *int    `toml:"content_floor"`
		MaxAttempts    *int    `toml:"max_attempts"`
		SafetyMargin   *string `toml:"safety_margin"`
		Throttle       *string `toml:"throttle"`
		ErrorBackoff   *string `toml:"error_backoff"`
		MaxPageRetries *int    `toml:"max_page_retries"`
	} `toml:"quota"`

	Output struct {
		CSV       *string  `toml:"csv"`
		Processed *string  `toml:"processed"`
		Emit      []string `toml:"emit"`
		Events    *string  `toml:"events"`
		NoConsole *bool    `toml:"no_console"`
	} `toml:"output"`

	Scan struct {
		URL               *string  `toml:"url"`
		RepoDir           *string  `toml:"repo_dir"`
		Repository        *string  `toml:"repository"`
		Tools             []string `toml:"tools"`
		Results           *string  `toml:"results"`
		Concurrency       *int     `toml:"concurrency"`
		Timeout           *string  `toml:"tool_timeout"`
		ProbeTimeout      *string  `toml:"probe_timeout"`
		AxeCommand        *string  `toml:"axe_cmd"`
		LighthouseCommand *string  `toml:"lighthouse_cmd"`
		Ports             []int    `toml:"ports"`
	} `toml:"scan"`

	Runtime struct {
		MaxRun        *string `toml:"max_run"`
		ProgressEvery *int    `toml:"progress_every"`
		Verbose       *bool   `toml:"verbose"`
		LogLevel      *string `toml:"log_level"`
		LogFormat     *string `toml:"log_format"`
	} `toml:"runtime"`
}

// LoadFile overlays the TOML file at path onto c. Keys whose flag was set
// on the command line (changed reports true) are left alone, so flags win.
// Unknown keys are an error.
func LoadFile(path string, c *Config, changed func(flag string) bool) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var fc fileConfig
	dec := toml.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if changed == nil {
		changed = func(string) bool { return false }
	}
	if err := fc.apply(c, changed); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

func setValue[T any](changed func(string) bool, flag string, src *T, dst *T) {
	if src != nil && !changed(flag) {
		*dst = *src
	}
}

func setList[T any](changed func(string) bool, flag string, src []T, dst *[]T) {
	if src != nil && !changed(flag) {
		*dst = append([]T(nil), src...)
	}
}

func setDuration(changed func(string) bool, flag string, src *string, dst *time.Duration) error {
	if src == nil || changed(flag) {
		return nil
	}
	d, err := time.ParseDuration(*src)
	if err != nil {
		return fmt.Errorf("%s: %w", flag, err)
	}
	*dst = d
	return nil
}

func (fc *fileConfig) apply(c *Config, changed func(string) bool) error {
	m := fc.Mining
	setValue(changed, flags.FlagMode, m.Mode, &c.Mining.Mode)
	setList(changed, flags.FlagQuery, m.Queries, &c.Mining.Queries)
	setValue(changed, flags.FlagSort, m.Sort, &c.Mining.Sort)
	setValue(changed, flags.FlagPageSize, m.PageSize, &c.Mining.PageSize)
	setValue(changed, flags.FlagMaxPages, m.MaxPages, &c.Mining.MaxPages)
	setValue(changed, flags.FlagBatchSize, m.BatchSize, &c.Mining.BatchSize)
	setValue(changed, flags.FlagMaxRepos, m.MaxRepos, &c.Mining.MaxRepos)
	setList(changed, flags.FlagInclude, m.Include, &c.Mining.Include)
	setList(changed, flags.FlagExclude, m.Exclude, &c.Mining.Exclude)
	setList(changed, flags.FlagLanguage, m.Languages, &c.Mining.Languages)
	setValue(changed, flags.FlagMinStars, m.MinStars, &c.Mining.MinStars)
	setList(changed, flags.FlagDisableRule, m.DisableRules, &c.Mining.DisableRules)
	setValue(changed, flags.FlagNoInferences, m.NoInferences, &c.Mining.NoInferences)
	setValue(changed, flags.FlagMaxWorkflows, m.MaxWorkflows, &c.Mining.MaxWorkflows)

	q := fc.Quota
	setValue(changed, flags.FlagSearchFloor, q.SearchFloor, &c.Quota.SearchFloor)
	setValue(changed, flags.FlagContentFloor, q.ContentFloor, &c.Quota.ContentFloor)
	setValue(changed, flags.FlagMaxAttempts, q.MaxAttempts, &c.Quota.MaxAttempts)
	setValue(changed, flags.FlagMaxPageRetries, q.MaxPageRetries, &c.Quota.MaxPageRetries)

	o := fc.Output
	setValue(changed, flags.FlagCSV, o.CSV, &c.Output.CSV)
	setValue(changed, flags.FlagProcessed, o.Processed, &c.Output.Processed)
	setList(changed, flags.FlagEmit, o.Emit, &c.Output.Emit)
	setValue(changed, flags.FlagEvents, o.Events, &c.Output.Events)
	setValue(changed, flags.FlagNoConsole, o.NoConsole, &c.Output.NoConsole)

	s := fc.Scan
	setValue(changed, flags.FlagURL, s.URL, &c.Scan.URL)
	setValue(changed, flags.FlagRepoDir, s.RepoDir, &c.Scan.RepoDir)
	setValue(changed, flags.FlagRepository, s.Repository, &c.Scan.Repository)
	setList(changed, flags.FlagTools, s.Tools, &c.Scan.Tools)
	setValue(changed, flags.FlagResults, s.Results, &c.Scan.Results)
	setValue(changed, flags.FlagConcurrency, s.Concurrency, &c.Scan.Concurrency)
	setValue(changed, flags.FlagAxeCommand, s.AxeCommand, &c.Scan.AxeCommand)
	setValue(changed, flags.FlagLighthouseCommand, s.LighthouseCommand, &c.Scan.LighthouseCommand)
	setList(changed, flags.FlagPort, s.Ports, &c.Scan.Ports)

	r := fc.Runtime
	setValue(changed, flags.FlagProgressEvery, r.ProgressEvery, &c.Runtime.ProgressEvery)
	setValue(changed, flags.FlagVerbose, r.Verbose, &c.Runtime.Verbose)
	setValue(changed, flags.FlagLogLevel, r.LogLevel, &c.Runtime.LogLevel)
	setValue(changed, flags.FlagLogFormat, r.LogFormat, &c.Runtime.LogFormat)

	durations := []struct {
		flag string
		src  *string
		dst  *time.Duration
	}{
		{flags.FlagSafetyMargin, q.SafetyMargin, &c.Quota.SafetyMargin},
		{flags.FlagThrottle, q.Throttle, &c.Quota.Throttle},
		{flags.FlagErrorBackoff, q.ErrorBackoff, &c.Quota.ErrorBackoff},
		{flags.FlagToolTimeout, s.Timeout, &c.Scan.Timeout},
		{flags.FlagProbeTimeout, s.ProbeTimeout, &c.Scan.ProbeTimeout},
		{flags.FlagMaxRun, r.MaxRun, &c.Runtime.MaxRun},
	}
	for _, d := range durations {
		if err := setDuration(changed, d.flag, d.src, d.dst); err != nil {
			return err
		}
	}
	return nil
}

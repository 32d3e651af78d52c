package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"a11yminer/internal/config"
	"a11yminer/internal/flags"
	"a11yminer/internal/logger"

	"github.com/spf13/cobra"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var (
	cfg        = config.New()
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "a11yminer",
	Short: "Mine GitHub for web applications that use accessibility testing tools",
	Long: `a11yminer crawls GitHub repository search results, keeps the repositories
that look like web applications, and records which automated accessibility
testing tools (axe, Pa11y, Lighthouse, ...) they use.

It also runs accessibility auditors against a live page (see "a11yminer scan").

Examples:
	# Show available commands and global flags
	a11yminer --help

	# Crawl with the default accessibility queries
	a11yminer mine

	# Audit a local server with axe and Lighthouse
	a11yminer scan --url http://localhost:3000 --repository acme/shop

	# List the tool catalog and classifier rules
	a11yminer tools list
	a11yminer rules list

	# Print build info
	a11yminer version

Configuration:
	Flags win over values from --config (TOML), which win over built-in defaults.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return prepare(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, flags.FlagConfig, "", "Read settings from this TOML file (flags take precedence)")
	rootCmd.PersistentFlags().BoolVar(&cfg.Runtime.Verbose, flags.FlagVerbose, false, "Enable verbose logging (prints every GitHub API call and skipped repositories)")
	rootCmd.PersistentFlags().StringVar(&cfg.Runtime.LogLevel, flags.FlagLogLevel, cfg.Runtime.LogLevel, "Log level: trace|debug|info|warn|error")
	rootCmd.PersistentFlags().StringVar(&cfg.Runtime.LogFormat, flags.FlagLogFormat, cfg.Runtime.LogFormat, "Log format: console|json")
}

// prepare applies the config file and initializes logging. Config errors are
// fatal.
func prepare(cmd *cobra.Command) error {
	if configFile != "" {
		if err := config.LoadFile(configFile, cfg, cmd.Flags().Changed); err != nil {
			return fatal(err)
		}
	}
	initLogger(cmd, "")
	return nil
}

// initLogger configures the root logger from cfg. --verbose raises the level
// to debug unless --log-level was given.
func initLogger(cmd *cobra.Command, runID string) {
	level := cfg.Runtime.LogLevel
	if cfg.Runtime.Verbose && !cmd.Flags().Changed(flags.FlagLogLevel) {
		level = "debug"
	}
	opts := logger.Options{Level: level, Format: cfg.Runtime.LogFormat}
	if runID != "" {
		opts.StaticFields = map[string]string{"run_id": runID}
	}
	logger.Init(opts)
}

// exitError carries a process exit code. A nil err exits silently.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit code %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// fatal marks err as a fatal error: the command did not run.
func fatal(err error) error {
	return &exitError{code: 3, err: err}
}

func exitWith(code int, err error) error {
	if code == 0 && err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// exitCode prints err to stderr and returns the process exit code.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", ee.err)
		}
		return ee.code
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

// Execute runs the root command. SIGINT and SIGTERM cancel the run context;
// the crawl still saves its progress before exiting.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

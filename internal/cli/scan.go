package cli

import (
	"io"

	"a11yminer/internal/flags"
	"a11yminer/internal/scan"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run accessibility auditors against a page and record the results",
	Long: `Run accessibility auditors against a live page and append one row per tool
to the results CSV.

Supported tools run as external programs:
	AXE         the axe CLI (--axe-cmd), reading its JSON from stdout
	Lighthouse  the Lighthouse CLI (--lighthouse-cmd), accessibility category only
Other catalog tools are recorded as SKIPPED.

Target:
	--url wins. Without it, the ports given by --port are checked for a
	listening server, then PORT= in <repo-dir>/.env, then PORT=N or --port N in
	the start script of <repo-dir>/package.json. When nothing is found every
	tool row is recorded as FAIL.

Metrics per tool:
	ViolationsTotal   serious/critical axe violations, or failed Lighthouse audits
	WarningsTotal     moderate/minor axe violations, or informative Lighthouse audits
	ViolationsA/AA/AAA/Unclassified  violations bucketed by WCAG level
	CER               share of all distinct error IDs (across tools) found by this tool
	AccessibilitySuccessRate  (22 - violations) / 22, where 22 of 50 WCAG criteria
	                  are considered automatable

Exit codes:
	0 = every tool ran
	2 = at least one tool failed or no server was found
	3 = fatal error (invalid flags, results file not writable)

Examples:
  a11yminer scan --url http://localhost:3000 --repository acme/shop
  a11yminer scan --repo-dir ./target-repo --tools AXE,Lighthouse,Pa11y
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateScan(); err != nil {
			return fatal(err)
		}

		runner := scan.NewRunner(cfg.Scan, nil)
		prober := scan.NewProber(cfg.Scan.ProbeTimeout)
		results, err := runner.Execute(cmd.Context(), cfg.Scan, prober, nil)
		if err != nil {
			return fatal(err)
		}

		failed := printScanSummary(cmd.OutOrStdout(), results)
		if failed > 0 {
			return exitWith(2, nil)
		}
		return nil
	},
}

// printScanSummary writes one line per tool and returns the number of FAIL
// rows.
func printScanSummary(w io.Writer, results []scan.Result) int {
	ok := color.New(color.FgGreen)
	bad := color.New(color.FgRed)
	dim := color.New(color.Faint)

	failed := 0
	for _, r := range results {
		switch r.Status {
		case scan.StatusOK:
			ok.Fprintf(w, "[OK]      %s %s violations=%d warnings=%d A=%d AA=%d AAA=%d unclassified=%d CER=%.2f success=%.2f\n",
				r.Repository, r.Tool, r.Findings.Violations, r.Findings.Warnings,
				r.Findings.Levels.A, r.Findings.Levels.AA, r.Findings.Levels.AAA, r.Findings.Levels.Unclassified,
				r.CER, r.SuccessRate)
		case scan.StatusSkipped:
			dim.Fprintf(w, "[SKIPPED] %s %s (not supported)\n", r.Repository, r.Tool)
		default:
			failed++
			msg := "failed"
			if r.Err != nil {
				msg = r.Err.Error()
			}
			bad.Fprintf(w, "[FAIL]    %s %s: %s\n", r.Repository, r.Tool, msg)
		}
	}
	return failed
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&cfg.Scan.URL, flags.FlagURL, "", "Page to audit (default: detect a local server)")
	scanCmd.Flags().StringVar(&cfg.Scan.RepoDir, flags.FlagRepoDir, "", "Checked-out repository used to find the server port (.env, package.json)")
	scanCmd.Flags().StringVar(&cfg.Scan.Repository, flags.FlagRepository, "", "Repository label for result rows (default: --repo-dir base name or URL host)")
	scanCmd.Flags().StringSliceVar(&cfg.Scan.Tools, flags.FlagTools, cfg.Scan.Tools, "Tools to run (repeatable; comma-separated accepted; see 'a11yminer tools list')")
	scanCmd.Flags().StringVar(&cfg.Scan.Results, flags.FlagResults, cfg.Scan.Results, "Results CSV (appended to)")
	scanCmd.Flags().IntVar(&cfg.Scan.Concurrency, flags.FlagConcurrency, cfg.Scan.Concurrency, "Tools run at the same time")
	scanCmd.Flags().DurationVar(&cfg.Scan.Timeout, flags.FlagToolTimeout, cfg.Scan.Timeout, "Timeout for one tool run")
	scanCmd.Flags().DurationVar(&cfg.Scan.ProbeTimeout, flags.FlagProbeTimeout, cfg.Scan.ProbeTimeout, "Timeout for port checks and the reachability probe")
	scanCmd.Flags().StringVar(&cfg.Scan.AxeCommand, flags.FlagAxeCommand, cfg.Scan.AxeCommand, "axe CLI executable")
	scanCmd.Flags().StringVar(&cfg.Scan.LighthouseCommand, flags.FlagLighthouseCommand, cfg.Scan.LighthouseCommand, "Lighthouse CLI executable")
	scanCmd.Flags().IntSliceVar(&cfg.Scan.Ports, flags.FlagPort, cfg.Scan.Ports, "Local ports checked for a running server, in order (repeatable)")
}

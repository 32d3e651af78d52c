package cli

import (
	"fmt"
	"io"

	"a11yminer/internal/rules"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var rulesListQuiet bool
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List classifier rules",
	Long: `Inspect the classifier rules.

The classifier decides whether a repository is a web application. Library
rules run first; any match excludes the repository. Web-application rules
then run in priority order and the first match accepts it. Rules can be
turned off with "a11yminer mine --disable-rule <id>".

Examples:
  # List all available rules
  a11yminer rules list
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available rules",
	Long: `List all rules currently registered in this build, in evaluation order.

Examples:
  a11yminer rules list
  a11yminer rules list --quiet

Output:
  A vertical list of rules:
    ----------------------------------------
    RULE: {ID}
    ----------------------------------------
    Kind: {library|webapp}  Priority: {N}
    {DESCRIPTION}
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, r := range rules.NewSet(rules.List("")...).Rules() {
			if rulesListQuiet {
				fmt.Fprintln(cmd.OutOrStdout(), r.ID())
			} else {
				printRule(cmd.OutOrStdout(), r)
			}
		}
		return nil
	},
}

var rulesShowCmd = &cobra.Command{
	Use:   "show [rule-id]",
	Short: "Show details of a specific rule",
	Long: `Show details of a specific rule by its ID.

Examples:
  a11yminer rules show webapp-homepage
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, r := range rules.List("") {
			if r.ID() == args[0] {
				printRule(cmd.OutOrStdout(), r)
				return nil
			}
		}
		return fmt.Errorf("rule not found: %s", args[0])
	},
}

func printRule(w io.Writer, r rules.Rule) {
	bold := color.New(color.Bold)
	fmt.Fprintln(w, "----------------------------------------")
	bold.Fprintf(w, "RULE: %s\n", r.ID())
	fmt.Fprintln(w, "----------------------------------------")
	fmt.Fprintf(w, "Kind: %s  Priority: %d\n", r.Kind(), r.Priority())
	fmt.Fprintln(w, r.Description())
	fmt.Fprintln(w)
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd)
	rulesListCmd.Flags().BoolVarP(&rulesListQuiet, "quiet", "q", false, "Only print rule IDs")
	rulesCmd.AddCommand(rulesShowCmd)
}

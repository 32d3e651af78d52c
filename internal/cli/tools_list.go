package cli

import (
	"fmt"
	"io"
	"strings"

	"a11yminer/internal/catalog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the accessibility tool catalog",
	Long: `Inspect the catalog of accessibility testing tools the detector looks for.

Examples:
  a11yminer tools list
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog tools and their detection keywords",
	Long: `List every catalog tool in CSV column order with the keywords matched in
manifests, workflows and metadata, and the config filenames matched at the
repository root.

Examples:
  a11yminer tools list
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		printTools(cmd.OutOrStdout())
		return nil
	},
}

func printTools(w io.Writer) {
	bold := color.New(color.Bold)
	for _, t := range catalog.All() {
		bold.Fprintf(w, "%s\n", t)
		fmt.Fprintf(w, "  keywords: %s\n", strings.Join(catalog.Keywords[t], ", "))
		if files := catalog.ConfigFiles[t]; len(files) > 0 {
			fmt.Fprintf(w, "  config:   %s\n", strings.Join(files, ", "))
		}
	}

	fmt.Fprintln(w)
	bold.Fprintln(w, "Inferred (low confidence)")
	for _, inf := range catalog.Inferences {
		names := make([]string, 0, len(inf.Tools))
		for _, t := range inf.Tools {
			names = append(names, string(t))
		}
		fmt.Fprintf(w, "  %q => %s\n", inf.Phrase, strings.Join(names, ", "))
	}
}

func init() {
	rootCmd.AddCommand(toolsCmd)
	toolsCmd.AddCommand(toolsListCmd)
}

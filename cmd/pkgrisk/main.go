// Command pkgrisk discovers, fetches, and scores open-source packages
// across the npm, PyPI, and Homebrew ecosystems, either one at a time
// or continuously via the monitor subcommand.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pkgrisk/analyzer/cmd/pkgrisk/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pkgrisk",
		Short: "Continuous open-source package risk analysis",
		Long: `pkgrisk discovers packages across npm, PyPI, and Homebrew, enriches
them with GitHub repository facts, CVE history, supply-chain signals, and
an optional local LLM's qualitative review, then scores them into a
composite risk grade.

Commands:
  list            List packages discovered in an ecosystem
  fetch           Fetch raw registry metadata for one package
  analyze         Run the full pipeline against one package
  analyze-batch   Run the full pipeline across an ecosystem
  monitor         Run the continuous analysis daemon`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewListCommand())
	rootCmd.AddCommand(commands.NewFetchCommand())
	rootCmd.AddCommand(commands.NewAnalyzeCommand())
	rootCmd.AddCommand(commands.NewAnalyzeBatchCommand())
	rootCmd.AddCommand(commands.NewMonitorCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

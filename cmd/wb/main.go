package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/wikibase/cmd/wb/commands"
	"github.com/teranos/wikibase/logger"
)

var rootCmd = &cobra.Command{
	Use:   "wb",
	Short: "wb - Wikibase client tooling",
	Long: `wb - command-line companion to the wikibase client library.

Available commands:
  search  - Search entities by label or alias
  get     - Fetch one entity and show its statements
  sparql  - Run a SPARQL query against the configured endpoint
  resolve - Resolve which entity a set of core-id values describes
  version - Show version information

Examples:
  wb search "EGFR"                 # Find entities labelled EGFR
  wb get Q42                       # Show Q42's statements
  wb sparql 'SELECT ?item WHERE { ?item wdt:P31 wd:Q7187 . } LIMIT 5'
  wb resolve --statement P352=P00533 --statement P351=1956`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Initialize(false); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("json", false, "Emit raw JSON instead of tables")

	rootCmd.AddCommand(commands.SearchCmd)
	rootCmd.AddCommand(commands.GetCmd)
	rootCmd.AddCommand(commands.SparqlCmd)
	rootCmd.AddCommand(commands.ResolveCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// SparqlCmd represents the sparql command
var SparqlCmd = &cobra.Command{
	Use:   "sparql <query|->",
	Short: "Run a SPARQL query against the configured endpoint",
	Long: `Run a SPARQL query. The standard Wikibase prefix block is prepended
unless the query declares its own prefixes. Pass "-" to read the query
from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := args[0]
		if query == "-" {
			raw, err := io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}
			query = string(raw)
		}

		c, err := newClient()
		if err != nil {
			return err
		}

		rows, err := c.SPARQL(cmd.Context(), query)
		if err != nil {
			return err
		}

		if jsonFlag(cmd) {
			out, err := json.MarshalIndent(rows, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}

		if len(rows) == 0 {
			pterm.Info.Println("No results")
			return nil
		}

		vars := make([]string, 0, len(rows[0]))
		for v := range rows[0] {
			vars = append(vars, v)
		}
		sort.Strings(vars)

		table := pterm.TableData{vars}
		for _, row := range rows {
			cells := make([]string, len(vars))
			for i, v := range vars {
				cells[i] = row[v].LocalID()
			}
			table = append(table, cells)
		}
		return pterm.DefaultTable.WithHasHeader().WithData(table).Render()
	},
}

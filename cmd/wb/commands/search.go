package commands

import (
	"encoding/json"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// SearchCmd represents the search command
var SearchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Search entities by label or alias",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		language, _ := cmd.Flags().GetString("language")
		limit, _ := cmd.Flags().GetInt("limit")

		c, err := newClient()
		if err != nil {
			return err
		}

		results, err := c.SearchEntities(cmd.Context(), args[0], language, limit)
		if err != nil {
			return err
		}

		if jsonFlag(cmd) {
			out, err := json.MarshalIndent(results, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}

		if len(results) == 0 {
			pterm.Info.Println("No matches")
			return nil
		}
		rows := pterm.TableData{{"ID", "Label", "Description"}}
		for _, r := range results {
			rows = append(rows, []string{r.ID, r.Label, r.Description})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	},
}

func init() {
	SearchCmd.Flags().String("language", "en", "Search language")
	SearchCmd.Flags().Int("limit", 10, "Maximum number of results")
}

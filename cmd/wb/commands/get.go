package commands

import (
	"encoding/json"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/wikibase/statement"
)

// GetCmd represents the get command
var GetCmd = &cobra.Command{
	Use:   "get <entity-id>",
	Short: "Fetch one entity and show its statements",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		raw, err := c.GetEntity(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if jsonFlag(cmd) {
			out, err := json.MarshalIndent(raw, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}

		entity, err := statement.ParseEntity(raw)
		if err != nil {
			return err
		}

		pterm.DefaultSection.Printf("%s — %s", entity.ID, entity.Labels["en"])
		if d := entity.Descriptions["en"]; d != "" {
			pterm.Info.Println(d)
		}

		rows := pterm.TableData{{"Property", "Value", "Rank", "Refs"}}
		for _, st := range entity.Statements() {
			value := "(" + string(st.Mainsnak.Type) + ")"
			if v := st.Value(); v != nil {
				value = v.String()
			}
			rows = append(rows, []string{
				st.PropertyID(),
				value,
				string(st.Rank),
				fmt.Sprintf("%d", len(st.References)),
			})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	},
}

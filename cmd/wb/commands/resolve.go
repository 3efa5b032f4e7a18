package commands

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/wikibase/errors"
	"github.com/teranos/wikibase/resolve"
	"github.com/teranos/wikibase/statement"
)

var itemIDRe = regexp.MustCompile(`^Q[0-9]+$`)

// ResolveCmd represents the resolve command
var ResolveCmd = &cobra.Command{
	Use:   "resolve --statement <pid>=<value> [--statement ...]",
	Short: "Resolve which entity a set of core-id values describes",
	Long: `Resolve the entity a set of (property, value) pairs describes,
treating the given properties as core ids. Values of the form Q123 are
matched as items, everything else as literals.

Prints the matched entity id, "new" when nothing matches, or the
conflicting candidate sets when a human has to decide.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		specs, _ := cmd.Flags().GetStringArray("statement")
		if len(specs) == 0 {
			return errors.New("at least one --statement pid=value is required")
		}

		coreProps := map[string]bool{}
		statements := make([]*statement.Statement, 0, len(specs))
		for _, spec := range specs {
			pid, value, ok := strings.Cut(spec, "=")
			if !ok {
				return errors.Newf("malformed statement %q, want pid=value", spec)
			}
			st, err := buildStatement(pid, value)
			if err != nil {
				return err
			}
			statements = append(statements, st)
			coreProps[pid] = true
		}

		c, err := newClient()
		if err != nil {
			return err
		}
		r := &resolve.Resolver{Client: c, CoreProps: coreProps}
		qid, err := r.Resolve(cmd.Context(), statements)

		var mi *errors.ManualInterventionError
		switch {
		case errors.As(err, &mi):
			if jsonFlag(cmd) {
				out, jerr := json.MarshalIndent(mi.Candidates, "", "  ")
				if jerr != nil {
					return jerr
				}
				fmt.Println(string(out))
				return nil
			}
			pterm.Warning.Println("Conflicting candidates, manual intervention required:")
			for pid, qids := range mi.Candidates {
				pterm.Printf("  %s -> %s\n", pid, strings.Join(qids, ", "))
			}
			return nil
		case err != nil:
			return err
		}

		if qid == "" {
			qid = "new"
		}
		fmt.Println(qid)
		return nil
	},
}

func buildStatement(pid, value string) (*statement.Statement, error) {
	var (
		v   statement.Value
		err error
	)
	if itemIDRe.MatchString(value) {
		v, err = statement.NewItem(value)
	} else {
		v, err = statement.NewString(value)
	}
	if err != nil {
		return nil, err
	}
	return statement.New(pid, v)
}

func init() {
	ResolveCmd.Flags().StringArray("statement", nil, "Core-id statement as pid=value (repeatable)")
}

package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/wikibase/client"
	"github.com/teranos/wikibase/config"
)

// newClient builds a transport from the process configuration.
func newClient() (*client.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return client.New(cfg)
}

func jsonFlag(cmd *cobra.Command) bool {
	v, _ := cmd.Root().PersistentFlags().GetBool("json")
	return v
}

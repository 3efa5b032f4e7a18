package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/teranos/wikibase/internal/version"
)

// SetDefaults configures default values for all configuration options.
// The defaults target the public Wikidata deployment; point the endpoint
// block elsewhere for a private Wikibase.
func SetDefaults(v *viper.Viper) {
	// Backoff defaults
	v.SetDefault("backoff.max_tries", 0)   // unbounded
	v.SetDefault("backoff.max_value", 3600) // one hour cap per sleep

	// Transport defaults
	v.SetDefault("transport.user_agent", version.DefaultUserAgent())
	v.SetDefault("transport.maxlag", 5)
	v.SetDefault("transport.retry_after", 60)
	v.SetDefault("transport.token_renew_period", 1800)
	v.SetDefault("transport.writes_per_minute", 0)

	// Endpoint defaults (Wikidata)
	v.SetDefault("endpoints.mediawiki_api_url", "https://www.wikidata.org/w/api.php")
	v.SetDefault("endpoints.mediawiki_index_url", "https://www.wikidata.org/w/index.php")
	v.SetDefault("endpoints.sparql_endpoint_url", "https://query.wikidata.org/sparql")
	v.SetDefault("endpoints.wikibase_url", "https://www.wikidata.org")
	v.SetDefault("endpoints.concept_base_uri", "http://www.wikidata.org/entity/")

	// Constraint ids (Wikidata); alternate wikibases override these so
	// core-id discovery can self-describe
	v.SetDefault("constraints.property_constraint_pid", "P2302")
	v.SetDefault("constraints.distinct_values_constraint_qid", "Q21502410")
	v.SetDefault("constraints.coordinate_globe_qid", "Q2")
	v.SetDefault("constraints.calendar_model_qid", "Q1985727")
}

// bindEnv sets up WB_-prefixed environment variable overrides, e.g.
// WB_ENDPOINTS_MEDIAWIKI_API_URL.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("WB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

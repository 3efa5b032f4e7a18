// Package config holds the process-wide configuration for the wikibase
// library. Every value here can also be overridden per-engine through the
// engine's functional options; this package only supplies the defaults and
// the file/env plumbing.
package config

// Config represents the core library configuration
type Config struct {
	Backoff     BackoffConfig    `mapstructure:"backoff"`
	Transport   TransportConfig  `mapstructure:"transport"`
	Endpoints   EndpointConfig   `mapstructure:"endpoints"`
	Constraints ConstraintConfig `mapstructure:"constraints"`
}

// BackoffConfig bounds the transport's retry loop
type BackoffConfig struct {
	MaxTries int `mapstructure:"max_tries"` // retry attempts; 0 = unbounded
	MaxValue int `mapstructure:"max_value"` // cap on a single sleep, seconds
}

// TransportConfig configures the HTTP/SPARQL transport
type TransportConfig struct {
	UserAgent        string `mapstructure:"user_agent"`         // per Wikimedia User-Agent policy
	Maxlag           int    `mapstructure:"maxlag"`             // maxlag parameter on every API call
	RetryAfter       int    `mapstructure:"retry_after"`        // default sleep and request timeout, seconds
	TokenRenewPeriod int    `mapstructure:"token_renew_period"` // edit token refresh interval, seconds
	WritesPerMinute  int    `mapstructure:"writes_per_minute"`  // rate limit on write calls; 0 = unlimited
}

// EndpointConfig binds the library to one Wikibase deployment
type EndpointConfig struct {
	MediawikiAPIURL   string `mapstructure:"mediawiki_api_url"`
	MediawikiIndexURL string `mapstructure:"mediawiki_index_url"`
	SPARQLEndpointURL string `mapstructure:"sparql_endpoint_url"`
	WikibaseURL       string `mapstructure:"wikibase_url"`
	ConceptBaseURI    string `mapstructure:"concept_base_uri"`
}

// ConstraintConfig lets alternate wikibases self-describe the ids the
// library otherwise hardcodes for Wikidata
type ConstraintConfig struct {
	PropertyConstraintPID      string `mapstructure:"property_constraint_pid"`
	DistinctValuesConstraintQID string `mapstructure:"distinct_values_constraint_qid"`
	CoordinateGlobeQID         string `mapstructure:"coordinate_globe_qid"`
	CalendarModelQID           string `mapstructure:"calendar_model_qid"`
}

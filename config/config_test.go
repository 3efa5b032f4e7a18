package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := LoadWithViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Backoff.MaxTries)
	assert.Equal(t, 3600, cfg.Backoff.MaxValue)
	assert.Equal(t, 5, cfg.Transport.Maxlag)
	assert.Equal(t, 60, cfg.Transport.RetryAfter)
	assert.Equal(t, 1800, cfg.Transport.TokenRenewPeriod)
	assert.Equal(t, "https://www.wikidata.org/w/api.php", cfg.Endpoints.MediawikiAPIURL)
	assert.Equal(t, "https://query.wikidata.org/sparql", cfg.Endpoints.SPARQLEndpointURL)
	assert.Equal(t, "P2302", cfg.Constraints.PropertyConstraintPID)
	assert.Equal(t, "Q21502410", cfg.Constraints.DistinctValuesConstraintQID)
	assert.Contains(t, cfg.Transport.UserAgent, "wikibase-go")
}

func TestOverride(t *testing.T) {
	v := viper.New()
	v.Set("endpoints.mediawiki_api_url", "https://wiki.example.org/w/api.php")
	v.Set("backoff.max_tries", 7)

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	assert.Equal(t, "https://wiki.example.org/w/api.php", cfg.Endpoints.MediawikiAPIURL)
	assert.Equal(t, 7, cfg.Backoff.MaxTries)
	// untouched keys keep defaults
	assert.Equal(t, 3600, cfg.Backoff.MaxValue)
}

func TestEnvOverride(t *testing.T) {
	Reset()
	t.Setenv("WB_TRANSPORT_MAXLAG", "9")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Transport.Maxlag)

	Reset()
}

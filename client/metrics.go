package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transport metrics on the default registerer. Exposition is the
// embedder's concern; the library only counts.
var (
	apiCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wikibase_api_calls_total",
		Help: "MediaWiki action API calls, by action.",
	}, []string{"action"})

	apiRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wikibase_api_retries_total",
		Help: "Transport retries, by transient condition.",
	}, []string{"reason"})

	sparqlQueries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wikibase_sparql_queries_total",
		Help: "SPARQL queries issued.",
	})
)

package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/wikibase/errors"
)

func sparqlResponse(bindings ...map[string]any) map[string]any {
	rows := make([]any, len(bindings))
	for i, b := range bindings {
		rows[i] = b
	}
	return map[string]any{
		"head":    map[string]any{"vars": []any{"item"}},
		"results": map[string]any{"bindings": rows},
	}
}

func TestSPARQLPrependsPrefixes(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		gotQuery = string(body)
		writeJSON(w, sparqlResponse())
	}))
	defer srv.Close()

	c := testClient(t, srv)
	_, err := c.SPARQL(context.Background(), "SELECT ?item WHERE { ?item wdt:P31 wd:Q5 }")
	require.NoError(t, err)
	assert.Contains(t, gotQuery, "PREFIX+wdt")

	// caller-supplied prefixes are left alone
	_, err = c.SPARQL(context.Background(), "PREFIX ex: <http://example.org/>\nSELECT ?item WHERE { ?item ex:p ?v }")
	require.NoError(t, err)
	assert.NotContains(t, gotQuery, "PREFIX+wdt")
}

func TestSPARQLBindings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, sparqlResponse(
			map[string]any{
				"item": map[string]any{"type": "uri", "value": "http://www.wikidata.org/entity/Q42"},
				"name": map[string]any{"type": "literal", "value": "Douglas Adams", "xml:lang": "en"},
			},
		))
	}))
	defer srv.Close()

	c := testClient(t, srv)
	rows, err := c.SPARQL(context.Background(), "SELECT * WHERE { ?s ?p ?o }")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "Q42", rows[0]["item"].LocalID())
	assert.Equal(t, "Douglas Adams", rows[0]["name"].Value)
	assert.Equal(t, "en", rows[0]["name"].Lang)
}

func TestSPARQLRetriesTransient(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, sparqlResponse())
	}))
	defer srv.Close()

	c := testClient(t, srv)
	_, err := c.SPARQL(context.Background(), "SELECT * WHERE { ?s ?p ?o }")
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestSPARQLBadQueryIsTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("MalformedQueryException"))
	}))
	defer srv.Close()

	c := testClient(t, srv)
	_, err := c.SPARQL(context.Background(), "SELECT nonsense")

	var te *errors.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusBadRequest, te.StatusCode)
}

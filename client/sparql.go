package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/teranos/wikibase/errors"
)

// DefaultPrefixes is the canonical Wikibase prefix block, prepended to
// every query that does not declare its own prefixes.
const DefaultPrefixes = `PREFIX wd: <http://www.wikidata.org/entity/>
PREFIX wdt: <http://www.wikidata.org/prop/direct/>
PREFIX p: <http://www.wikidata.org/prop/>
PREFIX ps: <http://www.wikidata.org/prop/statement/>
PREFIX psv: <http://www.wikidata.org/prop/statement/value/>
PREFIX pq: <http://www.wikidata.org/prop/qualifier/>
PREFIX pqv: <http://www.wikidata.org/prop/qualifier/value/>
PREFIX pr: <http://www.wikidata.org/prop/reference/>
PREFIX wikibase: <http://wikiba.se/ontology#>
PREFIX skos: <http://www.w3.org/2004/02/skos/core#>
PREFIX prov: <http://www.w3.org/ns/prov#>
PREFIX schema: <http://schema.org/>
`

// SPARQLCell is one cell in a SPARQL result binding.
type SPARQLCell struct {
	Type     string `json:"type"` // "uri", "literal", "bnode"
	Value    string `json:"value"`
	Lang     string `json:"xml:lang,omitempty"`
	Datatype string `json:"datatype,omitempty"`
}

// Binding maps variable name to cell for one result row.
type Binding map[string]SPARQLCell

// SPARQL runs a query against the endpoint and returns the raw binding
// list. The canonical prefix block is prepended unless the query already
// declares prefixes. Transient failures retry with the same policy as the
// action API.
func (c *Client) SPARQL(ctx context.Context, query string) ([]Binding, error) {
	if !strings.Contains(strings.ToUpper(query), "PREFIX ") {
		query = DefaultPrefixes + query
	}
	sparqlQueries.Inc()

	form := url.Values{}
	form.Set("query", query)
	form.Set("format", "json")

	attempt := 0
	for {
		attempt++

		rows, retryable, err := c.sparqlOnce(ctx, form)
		if err == nil {
			return rows, nil
		}
		if !retryable {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, errors.Wrap(errors.ErrCancelled, ctx.Err().Error())
		}
		if retryErr := c.backoff(ctx, attempt, c.retryAfter, "sparql", err); retryErr != nil {
			return nil, retryErr
		}
	}
}

func (c *Client) sparqlOnce(ctx context.Context, form url.Values) (rows []Binding, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sparqlURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, false, errors.Wrap(err, "building SPARQL request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/sparql-results+json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, errors.Newf("HTTP %d from SPARQL endpoint", resp.StatusCode)
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, false, &errors.TransportError{
			StatusCode: resp.StatusCode,
			Attempts:   1,
			Err:        errors.Newf("SPARQL endpoint rejected query: %s", strings.TrimSpace(string(body))),
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}

	var doc struct {
		Results struct {
			Bindings []Binding `json:"bindings"`
		} `json:"results"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		if len(strings.TrimSpace(string(raw))) == 0 {
			return nil, true, errors.New("blank SPARQL response body")
		}
		return nil, false, &errors.TransportError{Attempts: 1, Err: errors.Wrap(err, "decoding SPARQL response")}
	}
	return doc.Results.Bindings, false, nil
}

// LocalID strips the concept base URI off a cell, turning
// "http://www.wikidata.org/entity/Q42" into "Q42". Literals pass through
// unchanged.
func (cell SPARQLCell) LocalID() string {
	if cell.Type != "uri" {
		return cell.Value
	}
	if i := strings.LastIndex(cell.Value, "/"); i >= 0 {
		return cell.Value[i+1:]
	}
	return cell.Value
}

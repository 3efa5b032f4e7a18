package fastrun

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/wikibase/client"
	"github.com/teranos/wikibase/config"
	"github.com/teranos/wikibase/statement"
)

const entityBase = "http://www.wikidata.org/entity/"

type row = map[string]map[string]string

func uriCell(suffix string) map[string]string {
	return map[string]string{"type": "uri", "value": entityBase + suffix}
}

func litCell(v string) map[string]string {
	return map[string]string{"type": "literal", "value": v}
}

func langCell(v, lang string) map[string]string {
	return map[string]string{"type": "literal", "value": v, "xml:lang": lang}
}

func dataRow(qid, uid, value string) row {
	return row{
		"item": uriCell(qid),
		"sid":  uriCell("statement/" + uid),
		"v":    litCell(value),
	}
}

// fakeStore serves datatype, property-data, and language queries from
// static row sets.
type fakeStore struct {
	datatype string
	data     []row
	langRows []row
	queries  []string
}

func (f *fakeStore) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		q := r.Form.Get("query")
		f.queries = append(f.queries, q)

		var rows []row
		switch {
		case strings.Contains(q, "wikibase:propertyType"):
			rows = []row{{"dt": {"type": "uri", "value": "http://wikiba.se/ontology#" + f.datatype}}}
		case strings.Contains(q, "rdfs:label") || strings.Contains(q, "schema:description") || strings.Contains(q, "skos:altLabel"):
			rows = f.langRows
		default:
			rows = f.data
		}
		w.Header().Set("Content-Type", "application/sparql-results+json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": map[string]any{"bindings": rows},
		})
	}
}

func storeContainer(t *testing.T, store *fakeStore, useRefs bool) *Container {
	t.Helper()
	ResetRegistry()
	srv := httptest.NewServer(store.handler(t))
	t.Cleanup(srv.Close)

	v := viper.New()
	v.Set("endpoints.mediawiki_api_url", srv.URL+"/w/api.php")
	v.Set("endpoints.sparql_endpoint_url", srv.URL+"/sparql")
	cfg, err := config.LoadWithViper(v)
	require.NoError(t, err)
	c, err := client.New(cfg, client.WithBackoff(2, 10*time.Millisecond))
	require.NoError(t, err)

	key := Key{BaseFilter: "?item wdt:P31 wd:Q7187 .", Endpoint: c.SPARQLURL(), UseRefs: useRefs}
	return For(key, c)
}

func extStmt(t *testing.T, pid, value string) *statement.Statement {
	t.Helper()
	v, err := statement.NewExternalID(value)
	require.NoError(t, err)
	s, err := statement.New(pid, v)
	require.NoError(t, err)
	return s
}

func TestRegistrySharesContainers(t *testing.T) {
	ResetRegistry()
	key := Key{BaseFilter: "?item wdt:P31 wd:Q7187 .", Endpoint: "https://example.org/sparql"}
	a := For(key, nil)
	b := For(key, nil)
	assert.Same(t, a, b)

	other := For(Key{BaseFilter: key.BaseFilter, Endpoint: key.Endpoint, UseRefs: true}, nil)
	assert.NotSame(t, a, other)
}

func TestWriteRequiredNoChange(t *testing.T) {
	store := &fakeStore{datatype: "ExternalId", data: []row{
		dataRow("Q14911732", "Q14911732-AAAA", "P00533"),
	}}
	c := storeContainer(t, store, false)

	needed, err := c.WriteRequired(context.Background(),
		[]*statement.Statement{extStmt(t, "P352", "P00533")}, nil, "Q14911732", false)
	require.NoError(t, err)
	assert.False(t, needed)
}

func TestWriteRequiredValueDiffers(t *testing.T) {
	store := &fakeStore{datatype: "ExternalId", data: []row{
		dataRow("Q14911732", "Q14911732-AAAA", "P00533"),
	}}
	c := storeContainer(t, store, false)

	needed, err := c.WriteRequired(context.Background(),
		[]*statement.Statement{extStmt(t, "P352", "P99999")}, nil, "Q14911732", false)
	require.NoError(t, err)
	assert.True(t, needed)
}

func TestWriteRequiredLocatesEntity(t *testing.T) {
	store := &fakeStore{datatype: "ExternalId", data: []row{
		dataRow("Q1", "Q1-A", "P00533"),
		dataRow("Q2", "Q2-A", "OTHER"),
	}}
	c := storeContainer(t, store, false)

	needed, err := c.WriteRequired(context.Background(),
		[]*statement.Statement{extStmt(t, "P352", "P00533")}, nil, "", false)
	require.NoError(t, err)
	assert.False(t, needed, "single rev-lookup survivor resolves the entity")

	// Two entities carrying the same value is ambiguous.
	store.data = append(store.data, dataRow("Q3", "Q3-A", "AMBIG"), dataRow("Q4", "Q4-A", "AMBIG"))
	c2 := storeContainer(t, store, false)
	needed, err = c2.WriteRequired(context.Background(),
		[]*statement.Statement{extStmt(t, "P352", "AMBIG")}, nil, "", false)
	require.NoError(t, err)
	assert.True(t, needed)
}

func TestWriteRequiredAppendSemantics(t *testing.T) {
	store := &fakeStore{datatype: "ExternalId", data: []row{
		dataRow("Q1", "Q1-A", "VAL1"),
		dataRow("Q1", "Q1-B", "VAL2"),
	}}
	c := storeContainer(t, store, false)
	appendProps := map[string]bool{"P352": true}

	// Desired value already present: extra cached statements don't matter.
	needed, err := c.WriteRequired(context.Background(),
		[]*statement.Statement{extStmt(t, "P352", "VAL1")}, appendProps, "Q1", false)
	require.NoError(t, err)
	assert.False(t, needed)

	needed, err = c.WriteRequired(context.Background(),
		[]*statement.Statement{extStmt(t, "P352", "VAL3")}, appendProps, "Q1", false)
	require.NoError(t, err)
	assert.True(t, needed)
}

func TestWriteRequiredReplaceLeftover(t *testing.T) {
	store := &fakeStore{datatype: "ExternalId", data: []row{
		dataRow("Q1", "Q1-A", "VAL1"),
		dataRow("Q1", "Q1-B", "VAL2"),
	}}
	c := storeContainer(t, store, false)

	// Matching VAL1 but displacing VAL2 still needs a write.
	needed, err := c.WriteRequired(context.Background(),
		[]*statement.Statement{extStmt(t, "P352", "VAL1")}, nil, "Q1", false)
	require.NoError(t, err)
	assert.True(t, needed)
}

func TestWriteRequiredDeletionMarker(t *testing.T) {
	store := &fakeStore{datatype: "ExternalId", data: []row{
		dataRow("Q1", "Q1-A", "VAL1"),
	}}
	c := storeContainer(t, store, false)

	sentinel, err := statement.Delete("P352")
	require.NoError(t, err)

	needed, err := c.WriteRequired(context.Background(),
		[]*statement.Statement{sentinel}, nil, "Q1", false)
	require.NoError(t, err)
	assert.True(t, needed, "cached data on the property means the deletion does work")

	needed, err = c.WriteRequired(context.Background(),
		[]*statement.Statement{sentinel}, nil, "Q999", false)
	require.NoError(t, err)
	assert.False(t, needed, "nothing to delete")
}

func TestWriteRequiredQualifierMismatch(t *testing.T) {
	withQual := dataRow("Q1", "Q1-A", "VAL1")
	withQual["qProp"] = map[string]string{"type": "uri", "value": "http://www.wikidata.org/prop/qualifier/P2241"}
	withQual["qVal"] = uriCell("Q21045")
	store := &fakeStore{datatype: "ExternalId", data: []row{withQual}}
	c := storeContainer(t, store, false)

	// Desired statement without the qualifier does not match.
	needed, err := c.WriteRequired(context.Background(),
		[]*statement.Statement{extStmt(t, "P352", "VAL1")}, nil, "Q1", false)
	require.NoError(t, err)
	assert.True(t, needed)

	// With the same qualifier it does.
	item, err := statement.NewItem("Q21045")
	require.NoError(t, err)
	q, err := statement.NewSnak("P2241", item)
	require.NoError(t, err)
	needed, err = c.WriteRequired(context.Background(),
		[]*statement.Statement{extStmt(t, "P352", "VAL1").WithQualifiers(q)}, nil, "Q1", false)
	require.NoError(t, err)
	assert.False(t, needed)
}

func TestWriteRequiredCaseInsensitiveLookup(t *testing.T) {
	store := &fakeStore{datatype: "ExternalId", data: []row{
		dataRow("Q1", "Q1-A", "AbCdE"),
	}}
	c := storeContainer(t, store, false)

	// The folded index finds the entity, the strict value comparison then
	// reports the difference.
	needed, err := c.WriteRequired(context.Background(),
		[]*statement.Statement{extStmt(t, "P352", "abcde")}, nil, "", true)
	require.NoError(t, err)
	assert.True(t, needed)
}

func TestLoaderSkipsValueNodePredicates(t *testing.T) {
	store := &fakeStore{datatype: "ExternalId", data: []row{
		dataRow("Q1", "Q1-A", "VAL1"),
	}}
	c := storeContainer(t, store, true)

	_, err := c.WriteRequired(context.Background(),
		[]*statement.Statement{extStmt(t, "P352", "VAL1")}, nil, "Q1", false)
	require.NoError(t, err)

	var dataQuery string
	for _, q := range store.queries {
		if strings.Contains(q, "ps:P352") {
			dataQuery = q
		}
	}
	require.NotEmpty(t, dataQuery)
	// pq:/pr: predicates only; the pqv:/prv: value-node forms would
	// double-count every qualifier and reference snak.
	assert.Contains(t, dataQuery, `CONTAINS(STR(?qProp), "/prop/qualifier/") && !CONTAINS(STR(?qProp), "/value")`)
	assert.Contains(t, dataQuery, `CONTAINS(STR(?rProp), "/prop/reference/") && !CONTAINS(STR(?rProp), "/value")`)
}

func TestWriteRequiredCaseFoldIsPerCall(t *testing.T) {
	store := &fakeStore{datatype: "ExternalId", data: []row{
		dataRow("Q1", "Q1-A", "ABC"),
		dataRow("Q2", "Q2-A", "abc"),
	}}
	c := storeContainer(t, store, false)
	desired := []*statement.Statement{extStmt(t, "P352", "abc")}

	// Folded lookup sees both entities; ambiguity forces a write.
	needed, err := c.WriteRequired(context.Background(), desired, nil, "", true)
	require.NoError(t, err)
	assert.True(t, needed)

	// A case-sensitive caller sharing the container still gets the exact
	// index: Q2 is the sole match and nothing changes.
	needed, err = c.WriteRequired(context.Background(), desired, nil, "", false)
	require.NoError(t, err)
	assert.False(t, needed)
}

func TestLanguageDataChanged(t *testing.T) {
	store := &fakeStore{datatype: "ExternalId", langRows: []row{
		{"item": uriCell("Q1"), "s": langCell("EGFR  gene", "en")},
	}}
	c := storeContainer(t, store, false)

	changed, err := c.LanguageDataChanged(context.Background(), "Q1", []string{"egfr gene"}, "en", KindLabel)
	require.NoError(t, err)
	assert.False(t, changed, "case and whitespace folds are ignored")

	changed, err = c.LanguageDataChanged(context.Background(), "Q1", []string{"something else"}, "en", KindLabel)
	require.NoError(t, err)
	assert.True(t, changed)

	_, err = c.LanguageDataChanged(context.Background(), "Q1", nil, "en", "bogus")
	assert.Error(t, err)
}

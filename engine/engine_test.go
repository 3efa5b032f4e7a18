package engine

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
	"github.com/teranos/wikibase/errors"
	"github.com/teranos/wikibase/fastrun"
	"github.com/teranos/wikibase/resolve"
	"github.com/teranos/wikibase/statement"
)

const entityBase = "http://www.wikidata.org/entity/"

// entityFixture is Q42 with one UniProt id (P352) and one instance-of
// (P31) claim in wire shape.
func entityFixture() map[string]any {
	extClaim := func(pid, value string) map[string]any {
		return map[string]any{
			"id":   "Q42$" + pid,
			"type": "statement",
			"rank": "normal",
			"mainsnak": map[string]any{
				"snaktype": "value",
				"property": pid,
				"datatype": "external-id",
				"datavalue": map[string]any{
					"type":  "string",
					"value": value,
				},
			},
		}
	}
	return map[string]any{
		"id":        "Q42",
		"type":      "item",
		"pageid":    float64(138),
		"lastrevid": float64(1000),
		"labels": map[string]any{
			"en": map[string]any{"language": "en", "value": "EGFR"},
		},
		"descriptions": map[string]any{},
		"aliases":      map[string]any{},
		"sitelinks":    map[string]any{},
		"claims": map[string]any{
			"P352": []any{extClaim("P352", "P00533")},
		},
	}
}

// fakeWikibase serves the token, entity, edit, and SPARQL surfaces the
// engine exercises.
type fakeWikibase struct {
	entity     map[string]any
	candidates []string // resolver hits for the P352 candidate query
	edits      int
	apiCalls   []string
}

func (f *fakeWikibase) serve(t *testing.T) *client.Client {
	t.Helper()
	resolve.ResetCorePropsCache()
	fastrun.ResetRegistry()

	mux := http.NewServeMux()
	mux.HandleFunc("/sparql", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		q := r.Form.Get("query")
		var rows []map[string]map[string]string
		switch {
		case strings.Contains(q, "p:P2302"):
			rows = []map[string]map[string]string{
				{"prop": {"type": "uri", "value": entityBase + "P352"}},
			}
		case strings.Contains(q, "wikibase:propertyType"):
			rows = []map[string]map[string]string{
				{"dt": {"type": "uri", "value": "http://wikiba.se/ontology#ExternalId"}},
			}
		case strings.Contains(q, "?sid"):
			rows = []map[string]map[string]string{{
				"item": {"type": "uri", "value": entityBase + "Q42"},
				"sid":  {"type": "uri", "value": entityBase + "statement/Q42-AAAA"},
				"v":    {"type": "literal", "value": "P00533"},
			}}
		case strings.Contains(q, "ps:P352"):
			for _, qid := range f.candidates {
				rows = append(rows, map[string]map[string]string{
					"item": {"type": "uri", "value": entityBase + qid},
				})
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": map[string]any{"bindings": rows},
		})
	})
	mux.HandleFunc("/w/api.php", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		action := r.Form.Get("action")
		f.apiCalls = append(f.apiCalls, action)
		var doc map[string]any
		switch action {
		case "query":
			doc = map[string]any{"query": map[string]any{
				"tokens": map[string]any{"csrftoken": "tok+\\"},
			}}
		case "wbgetentities":
			doc = map[string]any{"entities": map[string]any{
				"Q42": f.entity,
			}}
		case "wbeditentity":
			f.edits++
			updated := entityFixture()
			updated["lastrevid"] = float64(1001)
			doc = map[string]any{"success": 1, "entity": updated}
		default:
			t.Fatalf("unexpected action %q", action)
		}
		_ = json.NewEncoder(w).Encode(doc)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	v := viper.New()
	v.Set("endpoints.mediawiki_api_url", srv.URL+"/w/api.php")
	v.Set("endpoints.sparql_endpoint_url", srv.URL+"/sparql")
	cfg, err := config.LoadWithViper(v)
	require.NoError(t, err)
	c, err := client.New(cfg, client.WithBackoff(2, 10*time.Millisecond))
	require.NoError(t, err)
	return c
}

func ext(t *testing.T, pid, value string) *statement.Statement {
	t.Helper()
	v, err := statement.NewExternalID(value)
	require.NoError(t, err)
	s, err := statement.New(pid, v)
	require.NoError(t, err)
	return s
}

func TestEngineBindExplicitID(t *testing.T) {
	f := &fakeWikibase{entity: entityFixture()}
	c := f.serve(t)

	e, err := New(context.Background(), WithClient(c),
		WithEntityID("Q42"),
		WithData(ext(t, "P352", "P00533")))
	require.NoError(t, err)

	assert.Equal(t, "Q42", e.EntityID())
	assert.Equal(t, "EGFR", e.Label("en"))
	assert.Equal(t, []string{"P352"}, e.PropertyList())
	require.Len(t, e.Plan(), 1)
	assert.False(t, e.Plan()[0].Remove, "identical data plans no removal")
}

func TestEngineResolvesEntity(t *testing.T) {
	f := &fakeWikibase{entity: entityFixture(), candidates: []string{"Q42"}}
	c := f.serve(t)

	e, err := New(context.Background(), WithClient(c),
		WithData(ext(t, "P352", "P00533")))
	require.NoError(t, err)
	assert.Equal(t, "Q42", e.EntityID())
}

func TestEngineResolveCreatesNew(t *testing.T) {
	f := &fakeWikibase{entity: entityFixture()}
	c := f.serve(t)

	e, err := New(context.Background(), WithClient(c),
		WithData(ext(t, "P352", "NEWID")))
	require.NoError(t, err)
	assert.Empty(t, e.EntityID())
	require.Len(t, e.Plan(), 1)
}

func TestEngineIntegrityFailure(t *testing.T) {
	f := &fakeWikibase{entity: entityFixture(), candidates: []string{"Q42"}}
	c := f.serve(t)

	// The resolver finds Q42 but the loaded entity disagrees on the value.
	entity := entityFixture()
	claims := entity["claims"].(map[string]any)
	claims["P352"].([]any)[0].(map[string]any)["mainsnak"].(map[string]any)["datavalue"].(map[string]any)["value"] = "OTHER"
	f.entity = entity

	_, err := New(context.Background(), WithClient(c),
		WithData(ext(t, "P352", "P00533")))
	var ie *errors.CorePropIntegrityError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "Q42", ie.EntityID)
}

func TestEngineNewConflictsWithExisting(t *testing.T) {
	f := &fakeWikibase{entity: entityFixture(), candidates: []string{"Q42"}}
	c := f.serve(t)

	_, err := New(context.Background(), WithClient(c),
		WithNew(),
		WithData(ext(t, "P352", "P00533")))
	var mi *errors.ManualInterventionError
	require.True(t, errors.As(err, &mi))
}

func TestEngineRequiresIDOrData(t *testing.T) {
	f := &fakeWikibase{entity: entityFixture()}
	c := f.serve(t)

	_, err := New(context.Background(), WithClient(c))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrIDMissing))
}

func TestEngineClonesCallerStatements(t *testing.T) {
	f := &fakeWikibase{entity: entityFixture()}
	c := f.serve(t)

	caller := ext(t, "P351", "1956")
	e, err := New(context.Background(), WithClient(c),
		WithEntityID("Q42"),
		WithData(caller))
	require.NoError(t, err)

	for _, s := range e.Plan() {
		assert.NotSame(t, caller, s, "the plan must not alias caller memory")
	}

	_, err = e.Write(context.Background(), WriteOptions{})
	require.NoError(t, err)
	assert.Empty(t, caller.ID)
	assert.False(t, caller.Retain)
}

func TestEngineNewRequiresData(t *testing.T) {
	f := &fakeWikibase{entity: entityFixture()}
	c := f.serve(t)

	_, err := New(context.Background(), WithClient(c), WithNew())
	assert.Error(t, err)
}

func TestEngineCustomModeRequiresHandler(t *testing.T) {
	f := &fakeWikibase{entity: entityFixture()}
	c := f.serve(t)

	_, err := New(context.Background(), WithClient(c),
		WithEntityID("Q42"),
		WithData(ext(t, "P352", "P00533")),
		WithRefMode(statement.RefModeCustom))
	assert.Error(t, err)
}

func TestEngineSearchOnly(t *testing.T) {
	f := &fakeWikibase{entity: entityFixture(), candidates: []string{"Q42"}}
	c := f.serve(t)

	e, err := New(context.Background(), WithClient(c),
		WithSearchOnly(),
		WithData(ext(t, "P352", "P00533")))
	require.NoError(t, err)
	assert.Equal(t, "Q42", e.EntityID())
	assert.Nil(t, e.Plan())

	_, err = e.Write(context.Background(), WriteOptions{})
	assert.Error(t, err)
}

func TestEngineWrite(t *testing.T) {
	f := &fakeWikibase{entity: entityFixture()}
	c := f.serve(t)

	e, err := New(context.Background(), WithClient(c),
		WithEntityID("Q42"),
		WithData(ext(t, "P352", "P00533"), ext(t, "P351", "1956")))
	require.NoError(t, err)

	id, err := e.Write(context.Background(), WriteOptions{Summary: "update ids"})
	require.NoError(t, err)
	assert.Equal(t, "Q42", id)
	assert.Equal(t, 1, f.edits)
	assert.Equal(t, int64(1001), e.LastRevID())
}

func TestEngineFastRunSkipsCleanWrite(t *testing.T) {
	f := &fakeWikibase{entity: entityFixture()}
	c := f.serve(t)

	e, err := New(context.Background(), WithClient(c),
		WithFastRun("?item wdt:P31 wd:Q7187 .", false, false),
		WithEntityID("Q42"),
		WithData(ext(t, "P352", "P00533")))
	require.NoError(t, err)

	assert.False(t, e.WriteRequired())
	id, err := e.Write(context.Background(), WriteOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Q42", id)
	assert.Zero(t, f.edits, "clean fast-run engines never touch the API")
	assert.NotContains(t, f.apiCalls, "wbgetentities", "the entity is never loaded")
}

func TestEngineFastRunFallsThroughOnChange(t *testing.T) {
	f := &fakeWikibase{entity: entityFixture()}
	c := f.serve(t)

	e, err := New(context.Background(), WithClient(c),
		WithFastRun("?item wdt:P31 wd:Q7187 .", false, false),
		WithEntityID("Q42"),
		WithData(ext(t, "P352", "CHANGED")))
	require.NoError(t, err)

	assert.True(t, e.WriteRequired())
	assert.Contains(t, f.apiCalls, "wbgetentities", "a dirty fast-run engine loads the entity")
}

func TestEngineSetTermsMarkDirty(t *testing.T) {
	f := &fakeWikibase{entity: entityFixture()}
	c := f.serve(t)

	e, err := New(context.Background(), WithClient(c), WithEntityID("Q42"))
	require.NoError(t, err)

	require.NoError(t, e.SetLabel(context.Background(), "de", "EGFR"))
	require.NoError(t, e.SetDescription(context.Background(), "en", "a gene"))
	require.NoError(t, e.SetAliases(context.Background(), "en", []string{"ERBB1"}, true))
	e.SetSitelink("enwiki", "Epidermal growth factor receptor")

	assert.True(t, e.WriteRequired())
	assert.Equal(t, "EGFR", e.Label("de"))
	assert.Equal(t, "a gene", e.Description("en"))
	assert.Equal(t, []string{"ERBB1"}, e.Aliases("en"))
	sl, ok := e.Sitelink("enwiki")
	require.True(t, ok)
	assert.Equal(t, "Epidermal growth factor receptor", sl.Title)
}

// Package fastrun caches the backing store's statement data per property
// so a batch job over many entities can answer "does this entity need a
// write?" from paged SPARQL instead of one entity fetch each. The decision
// is conservative: true means something differs, false means the write is
// safe to skip.
package fastrun

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/teranos/wikibase/client"
	"github.com/teranos/wikibase/errors"
	"github.com/teranos/wikibase/logger"
	"github.com/teranos/wikibase/statement"
)

// PageSize is the LIMIT on each property-load SPARQL page.
const PageSize = 10000

// Querier is the transport slice the container needs; *client.Client
// satisfies it.
type Querier interface {
	SPARQL(ctx context.Context, query string) ([]client.Binding, error)
	SPARQLURL() string
}

// Key identifies one shared container. Engines with the same key MUST end
// up on the same container.
type Key struct {
	// BaseFilter is a SPARQL graph pattern over ?item restricting the
	// entity population, e.g. "?item wdt:P31 wd:Q7187 .".
	BaseFilter string
	Endpoint   string
	UseRefs    bool
}

// snakPair is a qualifier or reference snak reduced to comparable form.
type snakPair struct {
	PID string
	Val string
}

// record is one cached statement.
type record struct {
	Value      string
	Unit       string
	Qualifiers map[snakPair]bool
	Refs       map[string]map[snakPair]bool // ref hash -> snak pairs
}

// Container holds the cached tables for one key. All table access is
// serialised on the container mutex.
type Container struct {
	key    Key
	client Querier

	mu          sync.Mutex
	loadedProps map[string]bool
	propData    map[string]map[string]map[string]*record // qid -> pid -> uid
	revLookup   map[string]map[string]bool               // value -> qids
	revFolded   map[string]map[string]bool               // lowercased mirror
	propDT      map[string]string                        // pid -> datatype
	loadedLangs map[string]map[string]map[string]map[string]bool // lang -> kind -> qid -> strings
}

var (
	registryMu sync.Mutex
	registry   = map[Key]*Container{}
)

// For returns the process-wide container for a key, creating it on first
// use. Case-insensitive lookups are a per-call choice on WriteRequired, so
// engines with different fold settings still share one cache.
func For(key Key, q Querier) *Container {
	registryMu.Lock()
	defer registryMu.Unlock()
	if c, ok := registry[key]; ok {
		return c
	}
	c := &Container{
		key:         key,
		client:      q,
		loadedProps: map[string]bool{},
		propData:    map[string]map[string]map[string]*record{},
		revLookup:   map[string]map[string]bool{},
		revFolded:   map[string]map[string]bool{},
		propDT:      map[string]string{},
		loadedLangs: map[string]map[string]map[string]map[string]bool{},
	}
	registry[key] = c
	return c
}

// ResetRegistry drops all containers. Test hook.
func ResetRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = map[Key]*Container{}
}

// ontology fragment -> datatype identifier.
var ontologyDatatypes = map[string]string{
	"WikibaseItem":     statement.DatatypeItem,
	"WikibaseProperty": statement.DatatypeProperty,
	"WikibaseLexeme":   statement.DatatypeLexeme,
	"String":           statement.DatatypeString,
	"ExternalId":       statement.DatatypeExternalID,
	"Url":              statement.DatatypeURL,
	"Monolingualtext":  statement.DatatypeMonolingualText,
	"Time":             statement.DatatypeTime,
	"Quantity":         statement.DatatypeQuantity,
	"GlobeCoordinate":  statement.DatatypeGlobeCoordinate,
	"CommonsMedia":     statement.DatatypeCommonsMedia,
	"GeoShape":         statement.DatatypeGeoShape,
	"TabularData":      statement.DatatypeTabularData,
	"Math":             statement.DatatypeMath,
	"MusicalNotation":  statement.DatatypeMusicalNotation,
}

// ensureProperty loads the datatype and all statement data for a property
// under the base filter. Caller holds the mutex.
func (c *Container) ensureProperty(ctx context.Context, pid string) error {
	if c.loadedProps[pid] {
		return nil
	}

	if err := c.loadDatatype(ctx, pid); err != nil {
		return err
	}
	if err := c.loadPropertyData(ctx, pid); err != nil {
		return err
	}
	c.loadedProps[pid] = true
	return nil
}

func (c *Container) loadDatatype(ctx context.Context, pid string) error {
	if _, ok := c.propDT[pid]; ok {
		return nil
	}
	rows, err := c.client.SPARQL(ctx, "SELECT ?dt WHERE { wd:"+pid+" wikibase:propertyType ?dt . }")
	if err != nil {
		return errors.Wrapf(err, "loading datatype of %s", pid)
	}
	if len(rows) == 0 {
		return errors.Newf("property %s has no datatype in the store", pid)
	}
	uri := rows[0]["dt"].Value
	frag := uri
	if i := strings.LastIndex(uri, "#"); i >= 0 {
		frag = uri[i+1:]
	}
	dt, ok := ontologyDatatypes[frag]
	if !ok {
		return errors.Newf("property %s has unsupported datatype %s", pid, uri)
	}
	c.propDT[pid] = dt
	return nil
}

func (c *Container) loadPropertyData(ctx context.Context, pid string) error {
	quantity := c.propDT[pid] == statement.DatatypeQuantity

	var b strings.Builder
	b.WriteString("SELECT ?item ?sid ?v ?qProp ?qVal")
	if quantity {
		b.WriteString(" ?unit")
	}
	if c.key.UseRefs {
		b.WriteString(" ?ref ?rProp ?rVal")
	}
	b.WriteString(" WHERE {\n")
	b.WriteString(c.key.BaseFilter)
	b.WriteString("\n  ?item p:" + pid + " ?sid .\n")
	b.WriteString("  ?sid ps:" + pid + " ?v .\n")
	if quantity {
		b.WriteString("  OPTIONAL { ?sid psv:" + pid + " ?vn . ?vn wikibase:quantityUnit ?unit . }\n")
	}
	// The simple-value predicates live directly under /prop/qualifier/ and
	// /prop/reference/; the value-node forms (pqv:, prv:) add a /value/
	// segment and would double-count each qualifier.
	b.WriteString(`  OPTIONAL { ?sid ?qProp ?qVal . FILTER(CONTAINS(STR(?qProp), "/prop/qualifier/") && !CONTAINS(STR(?qProp), "/value")) }` + "\n")
	if c.key.UseRefs {
		b.WriteString("  OPTIONAL { ?sid prov:wasDerivedFrom ?ref . ?ref ?rProp ?rVal .\n")
		b.WriteString(`    FILTER(CONTAINS(STR(?rProp), "/prop/reference/") && !CONTAINS(STR(?rProp), "/value")) }` + "\n")
	}
	b.WriteString("}")
	base := b.String()

	pages := 0
	for offset := 0; ; offset += PageSize {
		rows, err := c.client.SPARQL(ctx, pageSuffix(base, offset))
		if err != nil {
			return errors.Wrapf(err, "loading fast-run data for %s", pid)
		}
		pages++
		for _, row := range rows {
			c.foldRow(pid, row)
		}
		if len(rows) < PageSize {
			break
		}
	}
	logger.Logger.Debugw("fast-run property loaded",
		logger.FieldPropertyID, pid,
		logger.FieldEndpoint, c.key.Endpoint,
		logger.FieldCount, pages,
	)
	return nil
}

func (c *Container) foldRow(pid string, row client.Binding) {
	qid := row["item"].LocalID()
	uid := row["sid"].LocalID()
	if qid == "" || uid == "" {
		return
	}

	props := c.propData[qid]
	if props == nil {
		props = map[string]map[string]*record{}
		c.propData[qid] = props
	}
	stmts := props[pid]
	if stmts == nil {
		stmts = map[string]*record{}
		props[pid] = stmts
	}
	rec := stmts[uid]
	if rec == nil {
		val := normalizeCell(row["v"])
		rec = &record{
			Value:      val,
			Unit:       "1",
			Qualifiers: map[snakPair]bool{},
			Refs:       map[string]map[snakPair]bool{},
		}
		stmts[uid] = rec
		c.index(val, qid)
	}

	if unit, ok := row["unit"]; ok && unit.Value != "" {
		rec.Unit = unit.LocalID()
	}
	if qProp, ok := row["qProp"]; ok && qProp.Value != "" {
		rec.Qualifiers[snakPair{
			PID: lastSegment(qProp.Value),
			Val: normalizeCell(row["qVal"]),
		}] = true
	}
	if ref, ok := row["ref"]; ok && ref.Value != "" {
		hash := ref.LocalID()
		pairs := rec.Refs[hash]
		if pairs == nil {
			pairs = map[snakPair]bool{}
			rec.Refs[hash] = pairs
		}
		if rProp, ok := row["rProp"]; ok && rProp.Value != "" {
			pairs[snakPair{
				PID: lastSegment(rProp.Value),
				Val: normalizeCell(row["rVal"]),
			}] = true
		}
	}
}

func (c *Container) index(val, qid string) {
	if val == "" {
		return
	}
	if c.revLookup[val] == nil {
		c.revLookup[val] = map[string]bool{}
	}
	c.revLookup[val][qid] = true

	folded := strings.ToLower(val)
	if c.revFolded[folded] == nil {
		c.revFolded[folded] = map[string]bool{}
	}
	c.revFolded[folded][qid] = true
}

func (c *Container) candidatesFor(val string, caseInsensitive bool) map[string]bool {
	if caseInsensitive {
		return c.revFolded[strings.ToLower(val)]
	}
	return c.revLookup[val]
}

// normalizeCell reduces a SPARQL result cell to the comparable string form
// the desired-side normalisation produces: entity URIs to local ids, dates
// to their sign-prefixed form, language-tagged literals to text@lang.
func normalizeCell(cell client.SPARQLCell) string {
	switch {
	case cell.Type == "uri":
		if strings.Contains(cell.Value, "/entity/") {
			return cell.LocalID()
		}
		return cell.Value
	case cell.Lang != "":
		return cell.Value + "@" + cell.Lang
	case strings.HasSuffix(cell.Datatype, "#dateTime"):
		return statement.RepairTimeSign(cell.Value)
	case strings.HasSuffix(cell.Datatype, "#decimal"):
		return signNormalize(cell.Value)
	default:
		return cell.Value
	}
}

func signNormalize(s string) string {
	if s != "" && !strings.HasPrefix(s, "+") && !strings.HasPrefix(s, "-") {
		return "+" + s
	}
	return s
}

func pageSuffix(query string, offset int) string {
	return query + " LIMIT " + strconv.Itoa(PageSize) + " OFFSET " + strconv.Itoa(offset)
}

func lastSegment(uri string) string {
	if i := strings.LastIndex(uri, "/"); i >= 0 {
		return uri[i+1:]
	}
	return uri
}


package fastrun

import (
	"context"

	"github.com/teranos/wikibase/client"
	"github.com/teranos/wikibase/errors"
)

// Kinds of language-bound entity data the cache tracks.
const (
	KindLabel       = "label"
	KindDescription = "description"
	KindAlias       = "alias"
)

var kindPredicates = map[string]string{
	KindLabel:       "rdfs:label",
	KindDescription: "schema:description",
	KindAlias:       "skos:altLabel",
}

const rdfsPrefix = "PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>\n"

// LanguageDataChanged reports whether any of the supplied strings is
// missing from the entity's cached terms of the given kind and language.
// Comparison is case- and whitespace-insensitive. Missing data means a
// write is needed.
func (c *Container) LanguageDataChanged(ctx context.Context, qid string, values []string, lang, kind string) (bool, error) {
	if _, ok := kindPredicates[kind]; !ok {
		return true, errors.Newf("unknown language data kind %q", kind)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLanguage(ctx, lang, kind); err != nil {
		return true, err
	}

	have := c.loadedLangs[lang][kind][qid]
	for _, v := range values {
		if !have[normalizeTerm(v)] {
			return true, nil
		}
	}
	return false, nil
}

// ensureLanguage pages in all terms of one kind and language under the
// base filter. Caller holds the mutex.
func (c *Container) ensureLanguage(ctx context.Context, lang, kind string) error {
	byKind := c.loadedLangs[lang]
	if byKind == nil {
		byKind = map[string]map[string]map[string]bool{}
		c.loadedLangs[lang] = byKind
	}
	if byKind[kind] != nil {
		return nil
	}

	// rdfs is not in the transport's default prefix block, so the full
	// header travels with the query.
	base := rdfsPrefix + client.DefaultPrefixes +
		"SELECT ?item ?s WHERE {\n" + c.key.BaseFilter + "\n" +
		"  ?item " + kindPredicates[kind] + " ?s .\n" +
		"  FILTER(LANG(?s) = \"" + lang + "\")\n}"

	table := map[string]map[string]bool{}
	for offset := 0; ; offset += PageSize {
		rows, err := c.client.SPARQL(ctx, pageSuffix(base, offset))
		if err != nil {
			return errors.Wrapf(err, "loading %s terms for %s", kind, lang)
		}
		for _, row := range rows {
			qid := row["item"].LocalID()
			if qid == "" {
				continue
			}
			if table[qid] == nil {
				table[qid] = map[string]bool{}
			}
			table[qid][normalizeTerm(row["s"].Value)] = true
		}
		if len(rows) < PageSize {
			break
		}
	}
	byKind[kind] = table
	return nil
}

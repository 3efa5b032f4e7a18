// Package resolve answers "which entity does this data describe?" for a
// proposed statement list, using the backing store's distinct-values
// constraints to identify core-id properties, and guards resolved matches
// with a core-property integrity check.
package resolve

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/teranos/wikibase/client"
	"github.com/teranos/wikibase/errors"
	"github.com/teranos/wikibase/logger"
	"github.com/teranos/wikibase/statement"
)

// Wikidata ids for mapping-relation-type filtering. Alternate wikibases
// override these on the Resolver.
const (
	DefaultMappingRelationPID = "P4390"
	DefaultExactMatchQID      = "Q39893449"
)

// Querier is the slice of the transport the resolver needs. *client.Client
// satisfies it.
type Querier interface {
	SPARQL(ctx context.Context, query string) ([]client.Binding, error)
	SPARQLURL() string
}

var (
	corePropsMu    sync.Mutex
	corePropsCache = map[string]map[string]bool{}
)

// CoreProps discovers the core-id property set: every property carrying a
// distinct-values constraint. The result is cached per SPARQL endpoint for
// the life of the process.
func CoreProps(ctx context.Context, q Querier, constraintPID, distinctValuesQID string) (map[string]bool, error) {
	key := q.SPARQLURL()

	corePropsMu.Lock()
	defer corePropsMu.Unlock()
	if cached, ok := corePropsCache[key]; ok {
		return cached, nil
	}

	query := fmt.Sprintf(
		"SELECT DISTINCT ?prop WHERE { ?prop p:%s ?st . ?st ps:%s wd:%s . }",
		constraintPID, constraintPID, distinctValuesQID)
	rows, err := q.SPARQL(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "discovering core-id properties")
	}

	props := make(map[string]bool, len(rows))
	for _, row := range rows {
		id := row["prop"].LocalID()
		if statement.ValidatePropertyID(id) == nil {
			props[id] = true
		}
	}
	logger.Logger.Debugw("core-id properties discovered",
		logger.FieldEndpoint, key,
		logger.FieldCount, len(props),
	)
	corePropsCache[key] = props
	return props, nil
}

// ResetCorePropsCache clears the per-endpoint discovery cache. Test hook.
func ResetCorePropsCache() {
	corePropsMu.Lock()
	defer corePropsMu.Unlock()
	corePropsCache = map[string]map[string]bool{}
}

// Resolver finds the existing entity a statement list describes, if any.
type Resolver struct {
	Client    Querier
	CoreProps map[string]bool

	// MappingRelationPID and ExactMatchQID configure the qualifier filter;
	// zero values take the Wikidata defaults.
	MappingRelationPID string
	ExactMatchQID      string
}

func (r *Resolver) mappingRelationPID() string {
	if r.MappingRelationPID != "" {
		return r.MappingRelationPID
	}
	return DefaultMappingRelationPID
}

func (r *Resolver) exactMatchQID() string {
	if r.ExactMatchQID != "" {
		return r.ExactMatchQID
	}
	return DefaultExactMatchQID
}

// Resolve returns the single entity id the statements' core-id values point
// at, or "" when no existing entity matches and a new one should be
// created. Conflicting candidates, within one property or across
// properties, surface as a ManualInterventionError.
func (r *Resolver) Resolve(ctx context.Context, statements []*statement.Statement) (string, error) {
	perProp := map[string][]string{}
	union := map[string]bool{}

	for _, s := range statements {
		pid := s.PropertyID()
		if !r.CoreProps[pid] {
			continue
		}
		if s.Value() == nil {
			continue
		}
		if r.skipByMappingRelation(s) {
			continue
		}

		candidates, err := r.candidates(ctx, pid, s.Value())
		if err != nil {
			return "", err
		}
		if len(candidates) == 0 {
			continue
		}
		if len(candidates) > 1 {
			return "", &errors.ManualInterventionError{
				Candidates: map[string][]string{pid: candidates},
			}
		}
		perProp[pid] = append(perProp[pid], candidates...)
		for _, qid := range candidates {
			union[qid] = true
		}
	}

	switch len(union) {
	case 0:
		return "", nil
	case 1:
		for qid := range union {
			return qid, nil
		}
	}
	return "", &errors.ManualInterventionError{Candidates: perProp}
}

// skipByMappingRelation drops statements whose mapping-relation-type
// qualifier declares a non-exact match; those values identify related
// entities, not this one.
func (r *Resolver) skipByMappingRelation(s *statement.Statement) bool {
	for _, q := range s.Qualifiers {
		if q.PropertyID != r.mappingRelationPID() || q.Value == nil {
			continue
		}
		if q.Value.String() != r.exactMatchQID() {
			return true
		}
	}
	return false
}

func (r *Resolver) candidates(ctx context.Context, pid string, v statement.Value) ([]string, error) {
	term, ok := sparqlTerm(v)
	if !ok {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT ?item ?mrt WHERE {
  ?item p:%s ?st .
  ?st ps:%s %s .
  OPTIONAL { ?st pq:%s ?mrt . }
}`, pid, pid, term, r.mappingRelationPID())

	rows, err := r.Client.SPARQL(ctx, query)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving candidates for %s", pid)
	}

	seen := map[string]bool{}
	var out []string
	for _, row := range rows {
		if mrt, ok := row["mrt"]; ok && mrt.Value != "" && mrt.LocalID() != r.exactMatchQID() {
			continue
		}
		qid := row["item"].LocalID()
		if !seen[qid] {
			seen[qid] = true
			out = append(out, qid)
		}
	}
	sort.Strings(out)
	return out, nil
}

// sparqlTerm renders a statement value as a SPARQL object term. Only value
// kinds that make sense as core ids are supported.
func sparqlTerm(v statement.Value) (string, bool) {
	switch val := v.(type) {
	case *statement.ItemValue:
		return "wd:" + val.ID(), true
	case *statement.ExternalIDValue:
		return quoteLiteral(val.String()), true
	case *statement.StringValue:
		return quoteLiteral(val.String()), true
	case *statement.URLValue:
		return "<" + val.String() + ">", true
	default:
		return "", false
	}
}

func quoteLiteral(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

package fastrun

import (
	"context"
	"strings"

	"github.com/teranos/wikibase/logger"
	"github.com/teranos/wikibase/statement"
)

// desiredView is a desired statement reduced to the cache's comparable
// form. ok=false marks value kinds the cache cannot compare; those force a
// write.
type desiredView struct {
	pid       string
	value     string
	unit      string
	quals     map[snakPair]bool
	refs      []map[snakPair]bool
	remove    bool
	deleteAll bool
	ok        bool
}

func viewOf(s *statement.Statement) desiredView {
	v := desiredView{pid: s.PropertyID(), remove: s.Remove, ok: true}
	if s.IsDeleteSentinel() {
		v.deleteAll = true
		return v
	}

	val, unit, ok := normalizeValue(s.Value())
	if !ok {
		v.ok = false
		return v
	}
	v.value, v.unit = val, unit

	v.quals = map[snakPair]bool{}
	for _, q := range s.Qualifiers {
		qv, _, ok := normalizeValue(q.Value)
		if !ok {
			v.ok = false
			return v
		}
		v.quals[snakPair{PID: q.PropertyID, Val: qv}] = true
	}
	for _, ref := range s.References {
		pairs := map[snakPair]bool{}
		for _, sn := range ref.Snaks {
			rv, _, ok := normalizeValue(sn.Value)
			if !ok {
				v.ok = false
				return v
			}
			pairs[snakPair{PID: sn.PropertyID, Val: rv}] = true
		}
		v.refs = append(v.refs, pairs)
	}
	return v
}

// normalizeValue renders a statement value in the same form normalizeCell
// produces for the matching SPARQL cell. Coordinate values (WKT literals
// on the wire) and novalue/somevalue snaks are not comparable.
func normalizeValue(v statement.Value) (val, unit string, ok bool) {
	switch t := v.(type) {
	case nil:
		return "", "", false
	case *statement.TimeValue:
		return statement.RepairTimeSign(t.Time), "", true
	case *statement.QuantityValue:
		u := t.Unit
		if u != "1" {
			u = lastSegment(u)
		}
		return t.Amount, u, true
	case *statement.GlobeCoordinateValue:
		return "", "", false
	default:
		return v.String(), "", true
	}
}

// WriteRequired reports whether writing the desired statements against the
// store would change anything. qid may be empty, in which case the target
// entity is located through the value index; ambiguity counts as "write
// required". caseInsensitive widens the locate step to the folded index.
func (c *Container) WriteRequired(ctx context.Context, desired []*statement.Statement, appendProps map[string]bool, qid string, caseInsensitive bool) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	views := make([]desiredView, 0, len(desired))
	for _, s := range desired {
		v := viewOf(s)
		if !v.ok {
			return true, nil
		}
		views = append(views, v)
		if err := c.ensureProperty(ctx, v.pid); err != nil {
			return true, err
		}
	}

	if qid == "" {
		qid = c.locate(views, caseInsensitive)
		if qid == "" {
			return true, nil
		}
	}

	entity := c.propData[qid]

	// Whole-property deletions: any cached statement on the property means
	// the write has something to delete.
	for _, v := range views {
		if v.deleteAll && len(entity[v.pid]) > 0 {
			return true, nil
		}
	}

	// Append properties: every desired value must already be present.
	for _, v := range views {
		if v.deleteAll || v.remove || !appendProps[v.pid] {
			continue
		}
		if c.findMatch(entity[v.pid], v, nil) == "" {
			return true, nil
		}
	}

	// Replace properties: desired and cached statements must pair off
	// exactly.
	consumed := map[string]bool{}
	replaceProps := map[string]bool{}
	for _, v := range views {
		if v.deleteAll || appendProps[v.pid] {
			continue
		}
		if v.remove {
			// A targeted removal needs a write only if the victim exists.
			if c.findMatch(entity[v.pid], v, consumed) != "" {
				return true, nil
			}
			continue
		}
		replaceProps[v.pid] = true
		uid := c.findMatch(entity[v.pid], v, consumed)
		if uid == "" {
			return true, nil
		}
		consumed[uid] = true
	}

	// Cached statements the desired set would displace.
	for pid := range replaceProps {
		for uid := range entity[pid] {
			if !consumed[uid] {
				return true, nil
			}
		}
	}

	logger.Logger.Debugw("fast-run: write skipped",
		logger.FieldEntityID, qid,
		logger.FieldCount, len(views),
	)
	return false, nil
}

// locate intersects candidate entity sets across all desired values.
// Exactly one survivor identifies the entity.
func (c *Container) locate(views []desiredView, caseInsensitive bool) string {
	var survivors map[string]bool
	for _, v := range views {
		if v.deleteAll || v.remove {
			continue
		}
		candidates := c.candidatesFor(v.value, caseInsensitive)
		if survivors == nil {
			survivors = map[string]bool{}
			for qid := range candidates {
				survivors[qid] = true
			}
			continue
		}
		for qid := range survivors {
			if !candidates[qid] {
				delete(survivors, qid)
			}
		}
	}
	if len(survivors) != 1 {
		return ""
	}
	for qid := range survivors {
		return qid
	}
	return ""
}

// findMatch returns the uid of an unconsumed cached statement equal to the
// view, or "".
func (c *Container) findMatch(stmts map[string]*record, v desiredView, consumed map[string]bool) string {
	for uid, rec := range stmts {
		if consumed != nil && consumed[uid] {
			continue
		}
		if rec.Value != v.value {
			continue
		}
		if v.unit != "" && rec.Unit != v.unit {
			continue
		}
		if !pairSetEqual(rec.Qualifiers, v.quals) {
			continue
		}
		if c.key.UseRefs && !refsEqual(rec.Refs, v.refs) {
			continue
		}
		return uid
	}
	return ""
}

func pairSetEqual(a, b map[snakPair]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for p := range a {
		if !b[p] {
			return false
		}
	}
	return true
}

// refsEqual matches cached reference groups against desired ones as a
// multiset of snak-pair sets.
func refsEqual(cached map[string]map[snakPair]bool, desired []map[snakPair]bool) bool {
	if len(cached) != len(desired) {
		return false
	}
	used := map[string]bool{}
	for _, want := range desired {
		found := ""
		for hash, have := range cached {
			if used[hash] {
				continue
			}
			if pairSetEqual(have, want) {
				found = hash
				break
			}
		}
		if found == "" {
			return false
		}
		used[found] = true
	}
	return true
}

// normalizeTerm is the case/whitespace fold used for language data.
func normalizeTerm(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

package statement

import (
	"sort"

	"github.com/teranos/wikibase/errors"
)

// Sitelink is one per-site link on an item.
type Sitelink struct {
	Site   string
	Title  string
	Badges []string
}

// Entity is the mutable document the engine owns: labels, descriptions,
// aliases, claims, sitelinks, and the opaque server metadata that rides
// along.
type Entity struct {
	ID   string // empty until the first successful write creates the entity
	Type string // "item", "property", "lexeme"

	Labels       map[string]string   // language -> single string
	Descriptions map[string]string   // language -> single string
	Aliases      map[string][]string // language -> list of strings
	Sitelinks    map[string]Sitelink // site -> link

	// Claims maps property id to its ordered statement run. claimOrder
	// remembers first-seen property order so emitted JSON is stable.
	Claims     map[string][]*Statement
	claimOrder []string

	PageID    int64
	LastRevID int64
	Modified  string
	Namespace int64
	Title     string
}

// NewEntity returns an empty item document.
func NewEntity() *Entity {
	return &Entity{
		Type:         "item",
		Labels:       map[string]string{},
		Descriptions: map[string]string{},
		Aliases:      map[string][]string{},
		Sitelinks:    map[string]Sitelink{},
		Claims:       map[string][]*Statement{},
	}
}

// ParseEntity consumes the entity JSON the server returns from
// wbgetentities / wbeditentity.
func ParseEntity(raw map[string]any) (*Entity, error) {
	e := NewEntity()
	e.ID = asString(raw["id"])
	if t := asString(raw["type"]); t != "" {
		e.Type = t
	}
	e.PageID = asInt64(raw["pageid"])
	e.LastRevID = asInt64(raw["lastrevid"])
	e.Modified = asString(raw["modified"])
	e.Namespace = asInt64(raw["ns"])
	e.Title = asString(raw["title"])

	if labels, ok := raw["labels"].(map[string]any); ok {
		for lang, v := range labels {
			if lv, ok := v.(map[string]any); ok {
				e.Labels[lang] = asString(lv["value"])
			}
		}
	}
	if descs, ok := raw["descriptions"].(map[string]any); ok {
		for lang, v := range descs {
			if lv, ok := v.(map[string]any); ok {
				e.Descriptions[lang] = asString(lv["value"])
			}
		}
	}
	if aliases, ok := raw["aliases"].(map[string]any); ok {
		for lang, v := range aliases {
			list, ok := v.([]any)
			if !ok {
				continue
			}
			for _, a := range list {
				if av, ok := a.(map[string]any); ok {
					e.Aliases[lang] = append(e.Aliases[lang], asString(av["value"]))
				}
			}
		}
	}
	if sitelinks, ok := raw["sitelinks"].(map[string]any); ok {
		for site, v := range sitelinks {
			sv, ok := v.(map[string]any)
			if !ok {
				continue
			}
			e.Sitelinks[site] = Sitelink{
				Site:   asString(sv["site"]),
				Title:  asString(sv["title"]),
				Badges: asStringSlice(sv["badges"]),
			}
		}
	}

	if claims, ok := raw["claims"].(map[string]any); ok {
		// Wire claim maps carry no order; sort properties for stability.
		pids := make([]string, 0, len(claims))
		for pid := range claims {
			pids = append(pids, pid)
		}
		sort.Strings(pids)
		for _, pid := range pids {
			list, ok := claims[pid].([]any)
			if !ok {
				return nil, errors.Newf("malformed claim list on %s", pid)
			}
			for _, rawClaim := range list {
				m, ok := rawClaim.(map[string]any)
				if !ok {
					return nil, errors.Newf("malformed claim on %s", pid)
				}
				st, err := Parse(m)
				if err != nil {
					return nil, errors.Wrapf(err, "parsing claim on %s", pid)
				}
				e.addClaim(pid, st)
			}
		}
	}

	return e, nil
}

func (e *Entity) addClaim(pid string, st *Statement) {
	if _, seen := e.Claims[pid]; !seen {
		e.claimOrder = append(e.claimOrder, pid)
	}
	e.Claims[pid] = append(e.Claims[pid], st)
}

// Statements flattens the claim map into one list in property order. The
// diff engine operates on this flat view.
func (e *Entity) Statements() []*Statement {
	var out []*Statement
	for _, pid := range e.claimOrder {
		out = append(out, e.Claims[pid]...)
	}
	return out
}

// SetStatements regenerates the claim map from the flat list, preserving
// the list's order within each property.
func (e *Entity) SetStatements(list []*Statement) {
	e.Claims = map[string][]*Statement{}
	e.claimOrder = nil
	for _, st := range list {
		e.addClaim(st.PropertyID(), st)
	}
}

// JSON emits the document in wbeditentity wire shape.
func (e *Entity) JSON() map[string]any {
	labels := map[string]any{}
	for lang, v := range e.Labels {
		labels[lang] = map[string]any{"language": lang, "value": v}
	}
	descs := map[string]any{}
	for lang, v := range e.Descriptions {
		descs[lang] = map[string]any{"language": lang, "value": v}
	}
	aliases := map[string]any{}
	for lang, list := range e.Aliases {
		entries := make([]any, len(list))
		for i, a := range list {
			entries[i] = map[string]any{"language": lang, "value": a}
		}
		aliases[lang] = entries
	}
	sitelinks := map[string]any{}
	for site, sl := range e.Sitelinks {
		badges := make([]any, len(sl.Badges))
		for i, b := range sl.Badges {
			badges[i] = b
		}
		sitelinks[site] = map[string]any{"site": sl.Site, "title": sl.Title, "badges": badges}
	}
	claims := map[string]any{}
	for _, pid := range e.claimOrder {
		list := make([]any, len(e.Claims[pid]))
		for i, st := range e.Claims[pid] {
			list[i] = st.JSON()
		}
		claims[pid] = list
	}

	m := map[string]any{
		"type":         e.Type,
		"labels":       labels,
		"descriptions": descs,
		"aliases":      aliases,
		"claims":       claims,
		"sitelinks":    sitelinks,
	}
	if e.ID != "" {
		m["id"] = e.ID
	}
	return m
}

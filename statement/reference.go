package statement

import (
	"github.com/teranos/wikibase/errors"
)

// Reference is one reference group: an ordered bag of snaks asserting
// provenance. A statement may carry many groups.
type Reference struct {
	Hash  string // server-issued, opaque
	Snaks []*Snak

	// Overwrite is the legacy per-group flag: a new reference carrying it
	// forces strict-overwrite semantics for the whole statement. In-memory
	// only, never on the wire.
	Overwrite bool
}

// NewReference builds a reference group from snaks, preserving order.
func NewReference(snaks ...*Snak) *Reference {
	return &Reference{Snaks: snaks}
}

// SnaksFor returns every snak in the group for one property, in order. A
// group may legitimately hold several snaks for the same property.
func (r *Reference) SnaksFor(pid string) []*Snak {
	var out []*Snak
	for _, s := range r.Snaks {
		if s.PropertyID == pid {
			out = append(out, s)
		}
	}
	return out
}

// Equal compares two groups as multisets of snaks. Hashes and order do not
// participate.
func (r *Reference) Equal(o *Reference) bool {
	if r == nil || o == nil {
		return r == o
	}
	return snakMultisetEqual(r.Snaks, o.Snaks)
}

// Clone copies the group; snaks are cloned shallowly (values are immutable).
func (r *Reference) Clone() *Reference {
	c := &Reference{Hash: r.Hash, Snaks: make([]*Snak, len(r.Snaks))}
	for i, s := range r.Snaks {
		c.Snaks[i] = s.Clone()
	}
	return c
}

// snakMultisetEqual compares two snak lists ignoring order, consuming each
// match at most once.
func snakMultisetEqual(a, b []*Snak) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
outer:
	for _, sa := range a {
		for i, sb := range b {
			if !used[i] && sa.Equal(sb) {
				used[i] = true
				continue outer
			}
		}
		return false
	}
	return true
}

// ParseReference consumes one reference group in wire shape:
// {snaks: {pid: [snak, ...]}, snaks-order: [pid, ...], hash?}.
//
// Order comes from snaks-order. Every snak in a same-property list is
// consumed, in its wire order; dropping all but the first was a real data
// loss bug for multi-snak groups.
func ParseReference(raw map[string]any) (*Reference, error) {
	ref := &Reference{Hash: asString(raw["hash"])}

	snaksByProp, _ := raw["snaks"].(map[string]any)
	order := asStringSlice(raw["snaks-order"])
	if order == nil {
		for pid := range snaksByProp {
			order = append(order, pid)
		}
	}

	for _, pid := range order {
		list, ok := snaksByProp[pid].([]any)
		if !ok {
			return nil, errors.Newf("reference snaks-order names %s but snaks has no such list", pid)
		}
		for _, rawSnak := range list {
			m, ok := rawSnak.(map[string]any)
			if !ok {
				return nil, errors.Newf("malformed reference snak on %s", pid)
			}
			snak, err := ParseSnak(m)
			if err != nil {
				return nil, errors.Wrap(err, "parsing reference snak")
			}
			ref.Snaks = append(ref.Snaks, snak)
		}
	}
	return ref, nil
}

// JSON emits the group in wire shape, rebuilding snaks-order from the first
// occurrence of each property.
func (r *Reference) JSON() map[string]any {
	snaks := map[string]any{}
	var order []string
	for _, s := range r.Snaks {
		list, seen := snaks[s.PropertyID].([]any)
		if !seen {
			order = append(order, s.PropertyID)
		}
		snaks[s.PropertyID] = append(list, s.JSON())
	}

	m := map[string]any{
		"snaks":       snaks,
		"snaks-order": order,
	}
	if r.Hash != "" {
		m["hash"] = r.Hash
	}
	return m
}

func asStringSlice(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

package statement

import (
	"github.com/teranos/wikibase/errors"
)

// Rank is the statement-level preference marker.
type Rank string

const (
	RankPreferred  Rank = "preferred"
	RankNormal     Rank = "normal"
	RankDeprecated Rank = "deprecated"
)

// RefMode selects which existing reference groups survive a write. The
// zero value inherits the engine-wide mode.
type RefMode int

const (
	RefModeInherit    RefMode = iota // use the engine-wide mode
	RefModeKeep                      // result = old refs
	RefModeKeepAppend                // result = old refs ++ new refs
	RefModeOverwrite                 // result = new refs
	RefModeKeepGood                  // keep good old refs, new sources override matching stated-in
	RefModeCustom                    // caller-supplied handler mutates the matched pair
)

func (m RefMode) String() string {
	switch m {
	case RefModeKeep:
		return "strict-keep"
	case RefModeKeepAppend:
		return "strict-keep-append"
	case RefModeOverwrite:
		return "strict-overwrite"
	case RefModeKeepGood:
		return "keep-good"
	case RefModeCustom:
		return "custom"
	default:
		return "inherit"
	}
}

// Statement is a typed property-value assertion with rank, qualifiers,
// references and the control flags the diff engine reads and writes.
type Statement struct {
	Mainsnak   *Snak
	Rank       Rank
	Qualifiers []*Snak // ordered; order of first property occurrence yields qualifiers-order
	References []*Reference
	ID         string // server-issued, opaque; empty on new statements

	// Control flags. These live in memory only and never reach the wire
	// except Remove, which turns into the claim's remove marker.
	Remove  bool    // delete this statement once matched to an existing one
	Retain  bool    // matched-and-kept; shields it from the replace sweep
	RefMode RefMode // per-statement override of the engine-wide reference mode

	// SkipQualifierEquality makes Equal ignore qualifiers. When a desired
	// statement sets it, the matched existing statement's qualifier set is
	// overwritten rather than diffed.
	SkipQualifierEquality bool
}

// New builds a value statement.
func New(pid string, v Value) (*Statement, error) {
	snak, err := NewSnak(pid, v)
	if err != nil {
		return nil, err
	}
	return &Statement{Mainsnak: snak, Rank: RankNormal}, nil
}

// NewNoValue builds a "known absent" statement.
func NewNoValue(pid, datatype string) (*Statement, error) {
	snak, err := NewNoValueSnak(pid, datatype)
	if err != nil {
		return nil, err
	}
	return &Statement{Mainsnak: snak, Rank: RankNormal}, nil
}

// NewSomeValue builds a "present but unknown" statement.
func NewSomeValue(pid, datatype string) (*Statement, error) {
	snak, err := NewSomeValueSnak(pid, datatype)
	if err != nil {
		return nil, err
	}
	return &Statement{Mainsnak: snak, Rank: RankNormal}, nil
}

// Delete produces the sentinel callers hand the diff engine to request
// whole-property deletion: a value snak with no value.
func Delete(pid string) (*Statement, error) {
	if err := ValidatePropertyID(pid); err != nil {
		return nil, err
	}
	return &Statement{
		Mainsnak: &Snak{PropertyID: pid, Type: SnakValue},
		Rank:     RankNormal,
	}, nil
}

// IsDeleteSentinel reports whether this statement is a whole-property
// deletion marker.
func (s *Statement) IsDeleteSentinel() bool {
	return s.Mainsnak != nil && s.Mainsnak.Type == SnakValue && s.Mainsnak.Value == nil
}

// PropertyID names the main snak's property.
func (s *Statement) PropertyID() string {
	if s.Mainsnak == nil {
		return ""
	}
	return s.Mainsnak.PropertyID
}

// Value returns the main snak's value, nil for novalue/somevalue snaks and
// deletion sentinels.
func (s *Statement) Value() Value {
	if s.Mainsnak == nil {
		return nil
	}
	return s.Mainsnak.Value
}

// WithQualifiers appends qualifier snaks and returns s for chaining.
func (s *Statement) WithQualifiers(quals ...*Snak) *Statement {
	s.Qualifiers = append(s.Qualifiers, quals...)
	return s
}

// WithReferences appends reference groups and returns s for chaining.
func (s *Statement) WithReferences(refs ...*Reference) *Statement {
	s.References = append(s.References, refs...)
	return s
}

// WithRank sets the rank and returns s for chaining.
func (s *Statement) WithRank(r Rank) *Statement {
	s.Rank = r
	return s
}

// QualifierFor returns the first qualifier snak on the given property, or
// nil.
func (s *Statement) QualifierFor(pid string) *Snak {
	for _, q := range s.Qualifiers {
		if q.PropertyID == pid {
			return q
		}
	}
	return nil
}

// Equal implements statement equality: same property, same main-snak value,
// and equal qualifier multisets unless either side opts out via
// SkipQualifierEquality. Rank, references and ids do not participate.
func (s *Statement) Equal(o *Statement) bool {
	if s == nil || o == nil {
		return s == o
	}
	if !s.Mainsnak.Equal(o.Mainsnak) {
		return false
	}
	if s.SkipQualifierEquality || o.SkipQualifierEquality {
		return true
	}
	return snakMultisetEqual(s.Qualifiers, o.Qualifiers)
}

// EqualWithRefs is Equal plus reference comparison: the two statements'
// reference groups must match as multisets. The fast-run precheck uses this
// when configured to include references.
func (s *Statement) EqualWithRefs(o *Statement) bool {
	if !s.Equal(o) {
		return false
	}
	if len(s.References) != len(o.References) {
		return false
	}
	used := make([]bool, len(o.References))
outer:
	for _, ra := range s.References {
		for i, rb := range o.References {
			if !used[i] && ra.Equal(rb) {
				used[i] = true
				continue outer
			}
		}
		return false
	}
	return true
}

// Clone deep-copies the statement including qualifiers and references.
// Control flags are copied too.
func (s *Statement) Clone() *Statement {
	c := *s
	if s.Mainsnak != nil {
		c.Mainsnak = s.Mainsnak.Clone()
	}
	c.Qualifiers = make([]*Snak, len(s.Qualifiers))
	for i, q := range s.Qualifiers {
		c.Qualifiers[i] = q.Clone()
	}
	c.References = make([]*Reference, len(s.References))
	for i, r := range s.References {
		c.References[i] = r.Clone()
	}
	return &c
}

// Parse consumes one claim in wire shape: {mainsnak, type, rank, id,
// qualifiers, qualifiers-order, references}.
func Parse(raw map[string]any) (*Statement, error) {
	mainsnakRaw, ok := raw["mainsnak"].(map[string]any)
	if !ok {
		return nil, errors.New("claim has no mainsnak")
	}
	mainsnak, err := ParseSnak(mainsnakRaw)
	if err != nil {
		return nil, errors.Wrap(err, "parsing mainsnak")
	}

	st := &Statement{
		Mainsnak: mainsnak,
		ID:       asString(raw["id"]),
		Rank:     Rank(asString(raw["rank"])),
	}
	if st.Rank == "" {
		st.Rank = RankNormal
	}

	if qualsByProp, ok := raw["qualifiers"].(map[string]any); ok {
		order := asStringSlice(raw["qualifiers-order"])
		if order == nil {
			for pid := range qualsByProp {
				order = append(order, pid)
			}
		}
		for _, pid := range order {
			list, ok := qualsByProp[pid].([]any)
			if !ok {
				return nil, errors.Newf("qualifiers-order names %s but qualifiers has no such list", pid)
			}
			for _, rawSnak := range list {
				m, ok := rawSnak.(map[string]any)
				if !ok {
					return nil, errors.Newf("malformed qualifier snak on %s", pid)
				}
				snak, err := ParseSnak(m)
				if err != nil {
					return nil, errors.Wrap(err, "parsing qualifier")
				}
				st.Qualifiers = append(st.Qualifiers, snak)
			}
		}
	}

	if refs, ok := raw["references"].([]any); ok {
		for _, rawRef := range refs {
			m, ok := rawRef.(map[string]any)
			if !ok {
				return nil, errors.New("malformed reference group")
			}
			ref, err := ParseReference(m)
			if err != nil {
				return nil, err
			}
			st.References = append(st.References, ref)
		}
	}

	return st, nil
}

// JSON emits the claim in wire shape. A Remove-flagged statement with a
// server id collapses to the {id, remove} marker wbeditentity expects.
func (s *Statement) JSON() map[string]any {
	if s.Remove && s.ID != "" {
		return map[string]any{
			"id":     s.ID,
			"remove": "",
		}
	}

	m := map[string]any{
		"mainsnak": s.Mainsnak.JSON(),
		"type":     "statement",
		"rank":     string(s.Rank),
	}
	if s.ID != "" {
		m["id"] = s.ID
	}

	if len(s.Qualifiers) > 0 {
		quals := map[string]any{}
		var order []string
		for _, q := range s.Qualifiers {
			list, seen := quals[q.PropertyID].([]any)
			if !seen {
				order = append(order, q.PropertyID)
			}
			quals[q.PropertyID] = append(list, q.JSON())
		}
		m["qualifiers"] = quals
		m["qualifiers-order"] = order
	}

	if len(s.References) > 0 {
		refs := make([]any, len(s.References))
		for i, r := range s.References {
			refs[i] = r.JSON()
		}
		m["references"] = refs
	}

	return m
}

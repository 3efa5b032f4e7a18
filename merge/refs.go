// Package merge turns (current statements, desired statements) into the
// statement list to write: the reference-handling state machine and the
// statement diff that drives idempotent, minimal edits.
package merge

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/teranos/wikibase/errors"
	"github.com/teranos/wikibase/statement"
)

// Well-known Wikidata property ids the default reference policy is built
// on. Alternate wikibases supply their own policy blocks instead.
const (
	PropStatedIn  = "P248"
	PropRetrieved = "P813"
	PropTitle     = "P1476"
	PropPubMedID  = "P698"
)

// DefaultSourceIDProperties are external-id properties accepted as the
// source-id leg of the canonical (stated in, title, retrieved) triple.
var DefaultSourceIDProperties = map[string]bool{
	"P351": true, // Entrez Gene ID
	"P352": true, // UniProt protein ID
	"P683": true, // ChEBI ID
	"P686": true, // Gene Ontology ID
	"P638": true, // PDB structure ID
	"P698": true, // PubMed ID
	"P1566": true, // GeoNames ID
}

// RefHandler is the custom reference mode: it mutates the matched pair in
// place and owns the outcome entirely.
type RefHandler func(old, new *statement.Statement)

// GoodRefBlock is one constraint set: property id to required value, ""
// meaning any value for that property.
type GoodRefBlock map[string]string

// Matches reports whether a reference group satisfies every constraint in
// the block.
func (b GoodRefBlock) Matches(ref *statement.Reference) bool {
	for pid, want := range b {
		snaks := ref.SnaksFor(pid)
		if len(snaks) == 0 {
			return false
		}
		if want == "" {
			continue
		}
		found := false
		for _, s := range snaks {
			if s.Value != nil && s.Value.String() == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// GoodRefPolicy decides which existing reference groups are trustworthy
// enough to protect data under keep-good semantics.
type GoodRefPolicy struct {
	// Blocks, when non-empty, replace the default rule: a ref is good iff
	// it matches any block.
	Blocks []GoodRefBlock

	// SourceIDProps is the per-database property set for the default
	// rule's triple check. Nil means DefaultSourceIDProperties.
	SourceIDProps map[string]bool
}

// IsGood applies the policy to one reference group. Without explicit
// blocks the default rule holds: the group carries a stated-in or a PubMed
// id, or the canonical (stated in, title, retrieved) triple together with
// a known source id.
func (p *GoodRefPolicy) IsGood(ref *statement.Reference) bool {
	if p != nil && len(p.Blocks) > 0 {
		for _, b := range p.Blocks {
			if b.Matches(ref) {
				return true
			}
		}
		return false
	}

	if len(ref.SnaksFor(PropStatedIn)) > 0 || len(ref.SnaksFor(PropPubMedID)) > 0 {
		return true
	}

	sourceProps := DefaultSourceIDProperties
	if p != nil && p.SourceIDProps != nil {
		sourceProps = p.SourceIDProps
	}
	hasTriple := len(ref.SnaksFor(PropStatedIn)) > 0 &&
		len(ref.SnaksFor(PropTitle)) > 0 &&
		len(ref.SnaksFor(PropRetrieved)) > 0
	if !hasTriple {
		return false
	}
	for _, s := range ref.Snaks {
		if sourceProps[s.PropertyID] {
			return true
		}
	}
	return false
}

// LoadGoodRefs reads policy blocks from YAML: a list of maps from property
// id to value, null/empty meaning wildcard.
func LoadGoodRefs(r io.Reader) ([]GoodRefBlock, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading good-refs document")
	}
	var blocks []map[string]*string
	if err := yaml.Unmarshal(raw, &blocks); err != nil {
		return nil, errors.Wrap(err, "parsing good-refs document")
	}

	out := make([]GoodRefBlock, 0, len(blocks))
	for _, b := range blocks {
		block := GoodRefBlock{}
		for pid, v := range b {
			if err := statement.ValidatePropertyID(pid); err != nil {
				return nil, err
			}
			if v == nil {
				block[pid] = ""
			} else {
				block[pid] = *v
			}
		}
		out = append(out, block)
	}
	return out, nil
}

// MergeReferences resolves which reference groups survive on a matched
// statement. The custom mode is handled a level up (it operates on whole
// statements); passing it here is a programming error.
func MergeReferences(old, new []*statement.Reference, mode statement.RefMode, policy *GoodRefPolicy) []*statement.Reference {
	// Legacy escape hatches into strict-overwrite.
	if len(old) == 0 || anyOverwriteFlag(new) {
		mode = statement.RefModeOverwrite
	}

	switch mode {
	case statement.RefModeKeep:
		return old
	case statement.RefModeKeepAppend:
		return append(old, new...)
	case statement.RefModeOverwrite:
		return new
	case statement.RefModeKeepGood:
		newSources := statedInValues(new)
		var kept []*statement.Reference
		for _, ref := range old {
			if !policy.IsGood(ref) {
				continue
			}
			// A new ref for the same source overrides the old group.
			if overlaps(statedInValues([]*statement.Reference{ref}), newSources) {
				continue
			}
			kept = append(kept, ref)
		}
		return append(kept, new...)
	default:
		return old
	}
}

func anyOverwriteFlag(refs []*statement.Reference) bool {
	for _, r := range refs {
		if r.Overwrite {
			return true
		}
	}
	return false
}

func statedInValues(refs []*statement.Reference) map[string]bool {
	out := map[string]bool{}
	for _, ref := range refs {
		for _, s := range ref.SnaksFor(PropStatedIn) {
			if s.Value != nil {
				out[s.Value.String()] = true
			}
		}
	}
	return out
}

func overlaps(a, b map[string]bool) bool {
	for k := range a {
		if b[k] {
			return true
		}
	}
	return false
}

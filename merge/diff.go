package merge

import (
	"sort"

	"github.com/teranos/wikibase/statement"
)

// Options configure one diff pass.
type Options struct {
	// AppendProps lists properties whose desired statements append to the
	// existing run instead of replacing it.
	AppendProps map[string]bool

	// GlobalRefMode applies to every matched pair that does not carry a
	// per-statement override. Zero value falls back to keep-good.
	GlobalRefMode statement.RefMode

	// RefHandler is required when any effective mode is custom.
	RefHandler RefHandler

	// GoodRefs drives keep-good decisions and the
	// KeepGoodRefStatements exemption.
	GoodRefs *GoodRefPolicy

	// KeepGoodRefStatements shields existing statements that already carry
	// a good reference from the replace sweep.
	KeepGoodRefStatements bool
}

func (o Options) effectiveMode(s *statement.Statement) statement.RefMode {
	if s.RefMode != statement.RefModeInherit {
		return s.RefMode
	}
	if o.GlobalRefMode != statement.RefModeInherit {
		return o.GlobalRefMode
	}
	return statement.RefModeKeepGood
}

// Plan computes the statement list to write. Existing statements come out
// retained as-is, retained with refs/qualifiers updated, flagged for
// removal, or joined by fresh insertions; the engine regenerates the claims
// JSON from the result. Plan mutates the current statements' control flags
// and contents; callers own the clone boundary.
func Plan(current, desired []*statement.Statement, opts Options) []*statement.Statement {
	result := append([]*statement.Statement{}, current...)

	// Incoming statements in property-sorted order keeps per-property
	// processing contiguous and deterministic.
	sorted := append([]*statement.Statement{}, desired...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PropertyID() < sorted[j].PropertyID()
	})

	deletionProps := map[string]bool{}
	sweptProps := map[string]bool{}

	for _, s := range sorted {
		// Whole-property deletion sentinel.
		if s.IsDeleteSentinel() {
			deletionProps[s.PropertyID()] = true
			continue
		}

		pid := s.PropertyID()
		if opts.AppendProps[pid] {
			result = appendStatement(result, s, opts)
			continue
		}

		// Replace mode: sweep once per property, then match.
		if !sweptProps[pid] {
			sweptProps[pid] = true
			for _, e := range result {
				if e.PropertyID() != pid {
					continue
				}
				if e.Retain {
					continue
				}
				if opts.KeepGoodRefStatements && hasGoodRef(e, opts.GoodRefs) {
					e.Retain = true
					continue
				}
				e.Remove = true
			}
		}

		matched := false
		for _, e := range result {
			if e.PropertyID() != pid {
				continue
			}
			if s.Remove {
				if e.Equal(s) {
					e.Remove = true
					matched = true
					break
				}
				continue
			}
			if e.Equal(s) {
				e.Retain = true
				e.Remove = false
				mergeStatementRefs(e, s, opts)
				if s.SkipQualifierEquality {
					e.Qualifiers = cloneSnaks(s.Qualifiers)
				}
				e.Rank = s.Rank
				matched = true
				break
			}
		}

		if !matched && !s.Remove {
			result = insertAfterPropertyRun(result, s)
		}
	}

	// Deletion sweep: id-bearing statements become remove markers; id-less
	// candidates vanish outright.
	if len(deletionProps) > 0 {
		filtered := result[:0]
		for _, e := range result {
			if deletionProps[e.PropertyID()] {
				if e.ID == "" {
					continue
				}
				e.Remove = true
			}
			filtered = append(filtered, e)
		}
		result = filtered
	}

	return result
}

// appendStatement implements append-prop handling: equal statement found
// means rank + reference update; otherwise insert at the property run's
// tail.
func appendStatement(result []*statement.Statement, s *statement.Statement, opts Options) []*statement.Statement {
	for _, e := range result {
		if e.PropertyID() != s.PropertyID() {
			continue
		}
		if e.Equal(s) {
			e.Rank = s.Rank
			e.Retain = true
			mergeStatementRefs(e, s, opts)
			return result
		}
	}
	return insertAfterPropertyRun(result, s)
}

// insertAfterPropertyRun places s directly after the last statement on the
// same property, or at the very end when the property is new.
func insertAfterPropertyRun(result []*statement.Statement, s *statement.Statement) []*statement.Statement {
	last := -1
	for i, e := range result {
		if e.PropertyID() == s.PropertyID() {
			last = i
		}
	}
	if last < 0 {
		return append(result, s)
	}
	out := make([]*statement.Statement, 0, len(result)+1)
	out = append(out, result[:last+1]...)
	out = append(out, s)
	out = append(out, result[last+1:]...)
	return out
}

func mergeStatementRefs(e, s *statement.Statement, opts Options) {
	mode := opts.effectiveMode(s)
	if mode == statement.RefModeCustom {
		if opts.RefHandler != nil {
			opts.RefHandler(e, s)
		}
		return
	}
	e.References = MergeReferences(e.References, s.References, mode, opts.GoodRefs)
}

func hasGoodRef(s *statement.Statement, policy *GoodRefPolicy) bool {
	for _, ref := range s.References {
		if policy.IsGood(ref) {
			return true
		}
	}
	return false
}

func cloneSnaks(snaks []*statement.Snak) []*statement.Snak {
	out := make([]*statement.Snak, len(snaks))
	for i, s := range snaks {
		out[i] = s.Clone()
	}
	return out
}

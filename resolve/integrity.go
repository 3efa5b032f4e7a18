package resolve

import (
	"github.com/teranos/wikibase/errors"
	"github.com/teranos/wikibase/statement"
)

// DefaultCorePropMatchThreshold is the fraction of core-id statements that
// must agree with the loaded entity for a resolved match to stand.
const DefaultCorePropMatchThreshold = 0.66

// CheckIntegrity verifies that a resolved entity really is the one the
// incoming data describes. Each incoming core-id statement whose property
// appears on the entity counts toward the ratio; finding an entity via one
// identifier that disagrees on several others fails the check.
func CheckIntegrity(entity *statement.Entity, statements []*statement.Statement, coreProps map[string]bool, threshold float64) error {
	if threshold <= 0 {
		threshold = DefaultCorePropMatchThreshold
	}

	matched := map[string][]string{}
	unmatched := map[string][]string{}
	total := 0

	for _, s := range statements {
		pid := s.PropertyID()
		if !coreProps[pid] || s.Value() == nil {
			continue
		}
		existing := entity.Claims[pid]
		if len(existing) == 0 {
			// Property absent from the entity: no evidence either way.
			continue
		}
		total++

		found := false
		for _, e := range existing {
			if e.Value() != nil && e.Value().Equal(s.Value()) {
				found = true
				break
			}
		}
		if found {
			matched[pid] = append(matched[pid], s.Value().String())
		} else {
			unmatched[pid] = append(unmatched[pid], s.Value().String())
		}
	}

	if total == 0 {
		return nil
	}

	matchCount := 0
	for _, vals := range matched {
		matchCount += len(vals)
	}
	ratio := float64(matchCount) / float64(total)
	if ratio < threshold {
		return &errors.CorePropIntegrityError{
			EntityID:  entity.ID,
			Matched:   matched,
			Unmatched: unmatched,
			Ratio:     ratio,
			Threshold: threshold,
		}
	}
	return nil
}

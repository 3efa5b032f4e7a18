package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/wikibase/errors"
	"github.com/teranos/wikibase/statement"
)

func entityWith(t *testing.T, claims map[string][]string) *statement.Entity {
	t.Helper()
	e := statement.NewEntity()
	e.ID = "Q42"
	for pid, values := range claims {
		for _, v := range values {
			e.Claims[pid] = append(e.Claims[pid], coreStmt(t, pid, v))
		}
	}
	return e
}

var testCoreProps = map[string]bool{"P351": true, "P352": true, "P683": true}

func TestIntegrityAllMatch(t *testing.T) {
	e := entityWith(t, map[string][]string{
		"P352": {"P00533"},
		"P351": {"1956"},
	})
	incoming := []*statement.Statement{
		coreStmt(t, "P352", "P00533"),
		coreStmt(t, "P351", "1956"),
	}
	assert.NoError(t, CheckIntegrity(e, incoming, testCoreProps, 0))
}

func TestIntegrityBelowThreshold(t *testing.T) {
	// One of three shared core properties agrees: 0.33 < 0.66.
	e := entityWith(t, map[string][]string{
		"P352": {"P00533"},
		"P351": {"9999"},
		"P683": {"CHEBI:1"},
	})
	incoming := []*statement.Statement{
		coreStmt(t, "P352", "P00533"),
		coreStmt(t, "P351", "1956"),
		coreStmt(t, "P683", "CHEBI:2"),
	}

	err := CheckIntegrity(e, incoming, testCoreProps, 0)
	var ie *errors.CorePropIntegrityError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "Q42", ie.EntityID)
	assert.Equal(t, map[string][]string{"P352": {"P00533"}}, ie.Matched)
	assert.Len(t, ie.Unmatched, 2)
	assert.InDelta(t, 1.0/3.0, ie.Ratio, 1e-9)
	assert.Equal(t, DefaultCorePropMatchThreshold, ie.Threshold)
}

func TestIntegrityBoundary(t *testing.T) {
	// 2 of 3 = 0.667 clears the default 0.66 threshold.
	e := entityWith(t, map[string][]string{
		"P352": {"P00533"},
		"P351": {"1956"},
		"P683": {"CHEBI:1"},
	})
	incoming := []*statement.Statement{
		coreStmt(t, "P352", "P00533"),
		coreStmt(t, "P351", "1956"),
		coreStmt(t, "P683", "CHEBI:2"),
	}
	assert.NoError(t, CheckIntegrity(e, incoming, testCoreProps, 0))

	// A stricter caller threshold flips the outcome.
	err := CheckIntegrity(e, incoming, testCoreProps, 0.9)
	var ie *errors.CorePropIntegrityError
	require.True(t, errors.As(err, &ie))
}

func TestIntegrityAbsentPropertiesDontCount(t *testing.T) {
	// The entity carries none of the incoming core properties: nothing to
	// disagree with, the check passes.
	e := entityWith(t, map[string][]string{"P31": {"Q5"}})
	incoming := []*statement.Statement{
		coreStmt(t, "P352", "P00533"),
	}
	assert.NoError(t, CheckIntegrity(e, incoming, testCoreProps, 0))
}

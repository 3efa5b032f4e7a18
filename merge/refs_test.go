package merge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/wikibase/statement"
)

func snak(t *testing.T, pid string, v statement.Value) *statement.Snak {
	t.Helper()
	s, err := statement.NewSnak(pid, v)
	require.NoError(t, err)
	return s
}

func item(t *testing.T, id string) statement.Value {
	t.Helper()
	v, err := statement.NewItem(id)
	require.NoError(t, err)
	return v
}

func str(t *testing.T, s string) statement.Value {
	t.Helper()
	v, err := statement.NewString(s)
	require.NoError(t, err)
	return v
}

func extID(t *testing.T, s string) statement.Value {
	t.Helper()
	v, err := statement.NewExternalID(s)
	require.NoError(t, err)
	return v
}

// statedInRef builds a reference group anchored on a stated-in item.
func statedInRef(t *testing.T, sourceQID string, extra ...*statement.Snak) *statement.Reference {
	t.Helper()
	snaks := append([]*statement.Snak{snak(t, PropStatedIn, item(t, sourceQID))}, extra...)
	return statement.NewReference(snaks...)
}

func TestGoodRefDefaultPolicy(t *testing.T) {
	var policy *GoodRefPolicy

	assert.True(t, policy.IsGood(statedInRef(t, "Q1234")), "stated in alone is good")
	assert.True(t, policy.IsGood(statement.NewReference(
		snak(t, PropPubMedID, extID(t, "12345")),
	)), "pubmed id alone is good")

	assert.False(t, policy.IsGood(statement.NewReference(
		snak(t, "P854", str(t, "https://example.org")),
	)), "bare reference url is not good")

	// Triple without a source id fails, with one passes.
	triple := []*statement.Snak{
		snak(t, PropTitle, str(t, "Some title")),
		snak(t, PropRetrieved, str(t, "+2020-01-01T00:00:00Z")),
	}
	assert.True(t, policy.IsGood(statedInRef(t, "Q5", triple...)),
		"stated-in leg already satisfies the standalone rule")
	withSource := append(triple, snak(t, "P351", extID(t, "1017")))
	assert.True(t, policy.IsGood(statedInRef(t, "Q5", withSource...)))
}

func TestGoodRefExplicitBlocks(t *testing.T) {
	policy := &GoodRefPolicy{Blocks: []GoodRefBlock{
		{"P248": "Q905695", "P813": ""},
	}}

	matching := statement.NewReference(
		snak(t, PropStatedIn, item(t, "Q905695")),
		snak(t, PropRetrieved, str(t, "+2020-01-01T00:00:00Z")),
	)
	assert.True(t, policy.IsGood(matching))

	wrongSource := statement.NewReference(
		snak(t, PropStatedIn, item(t, "Q1")),
		snak(t, PropRetrieved, str(t, "+2020-01-01T00:00:00Z")),
	)
	assert.False(t, policy.IsGood(wrongSource))

	missingRetrieved := statedInRef(t, "Q905695")
	assert.False(t, policy.IsGood(missingRetrieved),
		"blocks replace the default rule entirely")
}

func TestLoadGoodRefs(t *testing.T) {
	doc := `
- P248: Q905695
  P813:
- P698:
`
	blocks, err := LoadGoodRefs(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, GoodRefBlock{"P248": "Q905695", "P813": ""}, blocks[0])
	assert.Equal(t, GoodRefBlock{"P698": ""}, blocks[1])

	_, err = LoadGoodRefs(strings.NewReader("- not-a-pid: x\n"))
	assert.Error(t, err)
}

func TestMergeReferencesModes(t *testing.T) {
	old := []*statement.Reference{statedInRef(t, "Q100")}
	new := []*statement.Reference{statedInRef(t, "Q200")}

	assert.Equal(t, old, MergeReferences(old, new, statement.RefModeKeep, nil))

	appended := MergeReferences(old, new, statement.RefModeKeepAppend, nil)
	require.Len(t, appended, 2)
	assert.Same(t, old[0], appended[0])
	assert.Same(t, new[0], appended[1])

	assert.Equal(t, new, MergeReferences(old, new, statement.RefModeOverwrite, nil))
}

func TestMergeReferencesEmptyOldForcesOverwrite(t *testing.T) {
	new := []*statement.Reference{statedInRef(t, "Q200")}
	got := MergeReferences(nil, new, statement.RefModeKeep, nil)
	assert.Equal(t, new, got, "empty existing refs always take the incoming set")
}

func TestMergeReferencesLegacyOverwriteFlag(t *testing.T) {
	old := []*statement.Reference{statedInRef(t, "Q100")}
	flagged := statedInRef(t, "Q200")
	flagged.Overwrite = true
	got := MergeReferences(old, []*statement.Reference{flagged}, statement.RefModeKeep, nil)
	require.Len(t, got, 1)
	assert.Same(t, flagged, got[0])
}

func TestMergeReferencesKeepGood(t *testing.T) {
	good := statedInRef(t, "Q100")
	bad := statement.NewReference(snak(t, "P854", str(t, "https://example.org")))
	sameSource := statedInRef(t, "Q200") // will be superseded by new Q200 group

	incoming := statedInRef(t, "Q200", snak(t, PropRetrieved, str(t, "+2024-06-01T00:00:00Z")))

	got := MergeReferences(
		[]*statement.Reference{good, bad, sameSource},
		[]*statement.Reference{incoming},
		statement.RefModeKeepGood, nil,
	)
	require.Len(t, got, 2)
	assert.Same(t, good, got[0], "good ref from an untouched source survives")
	assert.Same(t, incoming, got[1], "incoming group replaces the stale same-source group")
}

// Package statement holds the typed statement model shared by every other
// component: the ~20 datavalue variants, snaks, qualifiers, reference
// groups, statements with rank and control flags, and the entity document.
// It round-trips the Wikibase wire JSON: parsing dispatches on the datatype
// tag, emitting is variant-specific.
package statement

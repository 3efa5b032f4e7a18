package statement

import (
	"fmt"
	"regexp"

	"github.com/teranos/wikibase/errors"
)

// Wikibase datatype tags. The parser selects the value variant by matching
// this tag; each variant emits it back on the wire.
const (
	DatatypeItem            = "wikibase-item"
	DatatypeProperty        = "wikibase-property"
	DatatypeLexeme          = "wikibase-lexeme"
	DatatypeForm            = "wikibase-form"
	DatatypeSense           = "wikibase-sense"
	DatatypeString          = "string"
	DatatypeExternalID      = "external-id"
	DatatypeMonolingualText = "monolingualtext"
	DatatypeURL             = "url"
	DatatypeCommonsMedia    = "commonsMedia"
	DatatypeLocalMedia      = "localMedia"
	DatatypeGeoShape        = "geo-shape"
	DatatypeTabularData     = "tabular-data"
	DatatypeTime            = "time"
	DatatypeQuantity        = "quantity"
	DatatypeGlobeCoordinate = "globe-coordinate"
	DatatypeMath            = "math"
	DatatypeMusicalNotation = "musical-notation"
	DatatypeEDTF            = "edtf"
)

// datavalue "type" tags
const (
	valueTypeEntityID        = "wikibase-entityid"
	valueTypeString          = "string"
	valueTypeMonolingualText = "monolingualtext"
	valueTypeTime            = "time"
	valueTypeQuantity        = "quantity"
	valueTypeGlobeCoordinate = "globecoordinate"
)

// Value is the typed datavalue inside a snak. Implementations are the
// concrete variants (ItemValue, TimeValue, QuantityValue, ...).
type Value interface {
	// Datatype returns the Wikibase datatype tag for this variant.
	Datatype() string

	// ValueType returns the datavalue "type" tag on the wire.
	ValueType() string

	// WireValue returns the datavalue "value" cell in wire shape.
	WireValue() any

	// Equal reports variant-specific value equality.
	Equal(other Value) bool

	fmt.Stringer
}

var (
	itemRe     = regexp.MustCompile(`^Q[0-9]+$`)
	propertyRe = regexp.MustCompile(`^P[0-9]+$`)
	lexemeRe   = regexp.MustCompile(`^L[0-9]+$`)
	formRe     = regexp.MustCompile(`^L[0-9]+-F[0-9]+$`)
	senseRe    = regexp.MustCompile(`^L[0-9]+-S[0-9]+$`)
)

// ValidatePropertyID checks the P-prefixed property id format used
// everywhere a snak names its property.
func ValidatePropertyID(pid string) error {
	if !propertyRe.MatchString(pid) {
		return errors.Newf("invalid property id %q (want P<digits>)", pid)
	}
	return nil
}

// ParseValue builds the typed variant for a snak's datavalue. The datatype
// tag picks the variant; the raw value cell is validated the same way the
// constructors validate caller input.
func ParseValue(datatype string, valueType string, raw any) (Value, error) {
	switch datatype {
	case DatatypeItem:
		return parseEntityIDValue(raw, "item")
	case DatatypeProperty:
		return parseEntityIDValue(raw, "property")
	case DatatypeLexeme:
		return parseEntityIDValue(raw, "lexeme")
	case DatatypeForm:
		return parseSubLexemeValue(raw, "form")
	case DatatypeSense:
		return parseSubLexemeValue(raw, "sense")
	case DatatypeString:
		return parseStringValue(raw, func(s string) (Value, error) { return NewString(s) })
	case DatatypeExternalID:
		return parseStringValue(raw, func(s string) (Value, error) { return NewExternalID(s) })
	case DatatypeURL:
		return parseStringValue(raw, func(s string) (Value, error) { return NewURL(s) })
	case DatatypeCommonsMedia:
		return parseStringValue(raw, func(s string) (Value, error) { return NewCommonsMedia(s) })
	case DatatypeLocalMedia:
		return parseStringValue(raw, func(s string) (Value, error) { return NewLocalMedia(s) })
	case DatatypeGeoShape:
		return parseStringValue(raw, func(s string) (Value, error) { return NewGeoShape(s) })
	case DatatypeTabularData:
		return parseStringValue(raw, func(s string) (Value, error) { return NewTabularData(s) })
	case DatatypeMath:
		return parseStringValue(raw, func(s string) (Value, error) { return NewMath(s) })
	case DatatypeMusicalNotation:
		return parseStringValue(raw, func(s string) (Value, error) { return NewMusicalNotation(s) })
	case DatatypeEDTF:
		return parseStringValue(raw, func(s string) (Value, error) { return NewEDTF(s) })
	case DatatypeMonolingualText:
		return parseMonolingualTextValue(raw)
	case DatatypeTime:
		return parseTimeValue(raw)
	case DatatypeQuantity:
		return parseQuantityValue(raw)
	case DatatypeGlobeCoordinate:
		return parseGlobeCoordinateValue(raw)
	case "":
		// Older dumps omit the datatype on qualifier snaks; fall back on
		// the datavalue type tag.
		return parseByValueType(valueType, raw)
	default:
		return nil, errors.Newf("unknown datatype %q", datatype)
	}
}

func parseByValueType(valueType string, raw any) (Value, error) {
	switch valueType {
	case valueTypeEntityID:
		return parseEntityIDValue(raw, "")
	case valueTypeString:
		return parseStringValue(raw, func(s string) (Value, error) { return NewString(s) })
	case valueTypeMonolingualText:
		return parseMonolingualTextValue(raw)
	case valueTypeTime:
		return parseTimeValue(raw)
	case valueTypeQuantity:
		return parseQuantityValue(raw)
	case valueTypeGlobeCoordinate:
		return parseGlobeCoordinateValue(raw)
	default:
		return nil, errors.Newf("unknown datavalue type %q", valueType)
	}
}

func parseStringValue(raw any, make func(string) (Value, error)) (Value, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, errors.Newf("expected string datavalue, got %T", raw)
	}
	return make(s)
}

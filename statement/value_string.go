package statement

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/teranos/wikibase/errors"
)

var allowedURLSchemes = map[string]bool{
	"http":   true,
	"https":  true,
	"ftp":    true,
	"irc":    true,
	"mailto": true,
}

// Commons data titles: "Data:<title>.map" / "Data:<title>.tab" where the
// title may not contain ':', '#' or '|' after the prefix.
var (
	geoShapeRe    = regexp.MustCompile(`^Data:[^:#|]+\.map$`)
	tabularDataRe = regexp.MustCompile(`^Data:[^:#|]+\.tab$`)
)

// stringBacked factors the variants whose value is a single raw string.
type stringBacked struct {
	Value string
}

func (v stringBacked) ValueType() string { return valueTypeString }
func (v stringBacked) WireValue() any    { return v.Value }
func (v stringBacked) String() string    { return v.Value }

// StringValue is a plain string datavalue.
type StringValue struct{ stringBacked }

func NewString(s string) (*StringValue, error) {
	return &StringValue{stringBacked{Value: s}}, nil
}

func (v *StringValue) Datatype() string { return DatatypeString }

func (v *StringValue) Equal(other Value) bool {
	o, ok := other.(*StringValue)
	return ok && o.Value == v.Value
}

// ExternalIDValue is an identifier in an external database.
type ExternalIDValue struct{ stringBacked }

func NewExternalID(s string) (*ExternalIDValue, error) {
	return &ExternalIDValue{stringBacked{Value: s}}, nil
}

func (v *ExternalIDValue) Datatype() string { return DatatypeExternalID }

func (v *ExternalIDValue) Equal(other Value) bool {
	o, ok := other.(*ExternalIDValue)
	return ok && o.Value == v.Value
}

// URLValue is a URL with a restricted scheme set.
type URLValue struct{ stringBacked }

func NewURL(s string) (*URLValue, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid URL %q", s)
	}
	if !allowedURLSchemes[strings.ToLower(u.Scheme)] {
		return nil, errors.Newf("URL scheme %q not allowed (want http, https, ftp, irc or mailto)", u.Scheme)
	}
	return &URLValue{stringBacked{Value: s}}, nil
}

func (v *URLValue) Datatype() string { return DatatypeURL }

func (v *URLValue) Equal(other Value) bool {
	o, ok := other.(*URLValue)
	return ok && o.Value == v.Value
}

// CommonsMediaValue is a filename on Wikimedia Commons.
type CommonsMediaValue struct{ stringBacked }

func NewCommonsMedia(s string) (*CommonsMediaValue, error) {
	return &CommonsMediaValue{stringBacked{Value: s}}, nil
}

func (v *CommonsMediaValue) Datatype() string { return DatatypeCommonsMedia }

func (v *CommonsMediaValue) Equal(other Value) bool {
	o, ok := other.(*CommonsMediaValue)
	return ok && o.Value == v.Value
}

// LocalMediaValue is a filename on the local wiki.
type LocalMediaValue struct{ stringBacked }

func NewLocalMedia(s string) (*LocalMediaValue, error) {
	return &LocalMediaValue{stringBacked{Value: s}}, nil
}

func (v *LocalMediaValue) Datatype() string { return DatatypeLocalMedia }

func (v *LocalMediaValue) Equal(other Value) bool {
	o, ok := other.(*LocalMediaValue)
	return ok && o.Value == v.Value
}

// GeoShapeValue names a map data page on Commons ("Data:….map").
type GeoShapeValue struct{ stringBacked }

func NewGeoShape(s string) (*GeoShapeValue, error) {
	if !geoShapeRe.MatchString(s) {
		return nil, errors.Newf("invalid geo-shape %q (want Data:<title>.map without ':', '#' or '|')", s)
	}
	return &GeoShapeValue{stringBacked{Value: s}}, nil
}

func (v *GeoShapeValue) Datatype() string { return DatatypeGeoShape }

func (v *GeoShapeValue) Equal(other Value) bool {
	o, ok := other.(*GeoShapeValue)
	return ok && o.Value == v.Value
}

// TabularDataValue names a tabular data page on Commons ("Data:….tab").
type TabularDataValue struct{ stringBacked }

func NewTabularData(s string) (*TabularDataValue, error) {
	if !tabularDataRe.MatchString(s) {
		return nil, errors.Newf("invalid tabular-data %q (want Data:<title>.tab without ':', '#' or '|')", s)
	}
	return &TabularDataValue{stringBacked{Value: s}}, nil
}

func (v *TabularDataValue) Datatype() string { return DatatypeTabularData }

func (v *TabularDataValue) Equal(other Value) bool {
	o, ok := other.(*TabularDataValue)
	return ok && o.Value == v.Value
}

// MathValue is a TeX math expression.
type MathValue struct{ stringBacked }

func NewMath(s string) (*MathValue, error) {
	return &MathValue{stringBacked{Value: s}}, nil
}

func (v *MathValue) Datatype() string { return DatatypeMath }

func (v *MathValue) Equal(other Value) bool {
	o, ok := other.(*MathValue)
	return ok && o.Value == v.Value
}

// MusicalNotationValue is LilyPond notation.
type MusicalNotationValue struct{ stringBacked }

func NewMusicalNotation(s string) (*MusicalNotationValue, error) {
	return &MusicalNotationValue{stringBacked{Value: s}}, nil
}

func (v *MusicalNotationValue) Datatype() string { return DatatypeMusicalNotation }

func (v *MusicalNotationValue) Equal(other Value) bool {
	o, ok := other.(*MusicalNotationValue)
	return ok && o.Value == v.Value
}

// EDTFValue is an Extended Date/Time Format expression.
type EDTFValue struct{ stringBacked }

func NewEDTF(s string) (*EDTFValue, error) {
	return &EDTFValue{stringBacked{Value: s}}, nil
}

func (v *EDTFValue) Datatype() string { return DatatypeEDTF }

func (v *EDTFValue) Equal(other Value) bool {
	o, ok := other.(*EDTFValue)
	return ok && o.Value == v.Value
}

// MonolingualTextValue is a (text, language) pair.
type MonolingualTextValue struct {
	Text     string
	Language string
}

func NewMonolingualText(text, language string) (*MonolingualTextValue, error) {
	if language == "" {
		return nil, errors.New("monolingual text requires a language tag")
	}
	return &MonolingualTextValue{Text: text, Language: language}, nil
}

func (v *MonolingualTextValue) Datatype() string  { return DatatypeMonolingualText }
func (v *MonolingualTextValue) ValueType() string { return valueTypeMonolingualText }
func (v *MonolingualTextValue) String() string    { return v.Text + "@" + v.Language }

func (v *MonolingualTextValue) WireValue() any {
	return map[string]any{
		"text":     v.Text,
		"language": v.Language,
	}
}

func (v *MonolingualTextValue) Equal(other Value) bool {
	o, ok := other.(*MonolingualTextValue)
	return ok && o.Text == v.Text && o.Language == v.Language
}

func parseMonolingualTextValue(raw any) (Value, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.Newf("expected monolingualtext datavalue object, got %T", raw)
	}
	text, _ := m["text"].(string)
	lang, _ := m["language"].(string)
	return NewMonolingualText(text, lang)
}

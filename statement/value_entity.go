package statement

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/teranos/wikibase/errors"
)

// ItemValue references another item by numeric id.
type ItemValue struct {
	NumericID int64
}

// NewItem accepts "Q<digits>" or a bare numeric id.
func NewItem(v any) (*ItemValue, error) {
	n, err := parseEntityNumericID(v, "Q", itemRe)
	if err != nil {
		return nil, err
	}
	return &ItemValue{NumericID: n}, nil
}

func (v *ItemValue) Datatype() string  { return DatatypeItem }
func (v *ItemValue) ValueType() string { return valueTypeEntityID }
func (v *ItemValue) ID() string        { return fmt.Sprintf("Q%d", v.NumericID) }
func (v *ItemValue) String() string    { return v.ID() }

func (v *ItemValue) WireValue() any {
	return map[string]any{
		"entity-type": "item",
		"numeric-id":  v.NumericID,
		"id":          v.ID(),
	}
}

func (v *ItemValue) Equal(other Value) bool {
	o, ok := other.(*ItemValue)
	return ok && o.NumericID == v.NumericID
}

// PropertyValue references a property by numeric id.
type PropertyValue struct {
	NumericID int64
}

// NewProperty accepts "P<digits>" or a bare numeric id.
func NewProperty(v any) (*PropertyValue, error) {
	n, err := parseEntityNumericID(v, "P", propertyRe)
	if err != nil {
		return nil, err
	}
	return &PropertyValue{NumericID: n}, nil
}

func (v *PropertyValue) Datatype() string  { return DatatypeProperty }
func (v *PropertyValue) ValueType() string { return valueTypeEntityID }
func (v *PropertyValue) ID() string        { return fmt.Sprintf("P%d", v.NumericID) }
func (v *PropertyValue) String() string    { return v.ID() }

func (v *PropertyValue) WireValue() any {
	return map[string]any{
		"entity-type": "property",
		"numeric-id":  v.NumericID,
		"id":          v.ID(),
	}
}

func (v *PropertyValue) Equal(other Value) bool {
	o, ok := other.(*PropertyValue)
	return ok && o.NumericID == v.NumericID
}

// LexemeValue references a lexeme by numeric id.
type LexemeValue struct {
	NumericID int64
}

// NewLexeme accepts "L<digits>" or a bare numeric id.
func NewLexeme(v any) (*LexemeValue, error) {
	n, err := parseEntityNumericID(v, "L", lexemeRe)
	if err != nil {
		return nil, err
	}
	return &LexemeValue{NumericID: n}, nil
}

func (v *LexemeValue) Datatype() string  { return DatatypeLexeme }
func (v *LexemeValue) ValueType() string { return valueTypeEntityID }
func (v *LexemeValue) ID() string        { return fmt.Sprintf("L%d", v.NumericID) }
func (v *LexemeValue) String() string    { return v.ID() }

func (v *LexemeValue) WireValue() any {
	return map[string]any{
		"entity-type": "lexeme",
		"numeric-id":  v.NumericID,
		"id":          v.ID(),
	}
}

func (v *LexemeValue) Equal(other Value) bool {
	o, ok := other.(*LexemeValue)
	return ok && o.NumericID == v.NumericID
}

// FormValue references a lexeme form ("L<n>-F<m>").
type FormValue struct {
	ID string
}

func NewForm(id string) (*FormValue, error) {
	if !formRe.MatchString(id) {
		return nil, errors.Newf("invalid form id %q (want L<digits>-F<digits>)", id)
	}
	return &FormValue{ID: id}, nil
}

func (v *FormValue) Datatype() string  { return DatatypeForm }
func (v *FormValue) ValueType() string { return valueTypeEntityID }
func (v *FormValue) String() string    { return v.ID }

func (v *FormValue) WireValue() any {
	return map[string]any{
		"entity-type": "form",
		"id":          v.ID,
	}
}

func (v *FormValue) Equal(other Value) bool {
	o, ok := other.(*FormValue)
	return ok && o.ID == v.ID
}

// SenseValue references a lexeme sense ("L<n>-S<m>").
type SenseValue struct {
	ID string
}

func NewSense(id string) (*SenseValue, error) {
	if !senseRe.MatchString(id) {
		return nil, errors.Newf("invalid sense id %q (want L<digits>-S<digits>)", id)
	}
	return &SenseValue{ID: id}, nil
}

func (v *SenseValue) Datatype() string  { return DatatypeSense }
func (v *SenseValue) ValueType() string { return valueTypeEntityID }
func (v *SenseValue) String() string    { return v.ID }

func (v *SenseValue) WireValue() any {
	return map[string]any{
		"entity-type": "sense",
		"id":          v.ID,
	}
}

func (v *SenseValue) Equal(other Value) bool {
	o, ok := other.(*SenseValue)
	return ok && o.ID == v.ID
}

// parseEntityNumericID normalises "Q42"/"P42"/"L42", a bare digit string,
// or a numeric type down to the numeric id.
func parseEntityNumericID(v any, prefix string, re *regexp.Regexp) (int64, error) {
	switch t := v.(type) {
	case string:
		s := t
		if re.MatchString(s) {
			s = s[1:]
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, errors.Newf("invalid %s-id %q", prefix, t)
		}
		return n, nil
	case int:
		return int64(t), nil
	case int64:
		return t, nil
	case float64:
		return int64(t), nil
	default:
		return 0, errors.Newf("invalid %s-id value of type %T", prefix, v)
	}
}

// parseEntityIDValue consumes the wire shape of a wikibase-entityid
// datavalue. entityType pins the expected variant; empty means "trust the
// wire's entity-type field".
func parseEntityIDValue(raw any, entityType string) (Value, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.Newf("expected entity-id datavalue object, got %T", raw)
	}
	if entityType == "" {
		entityType, _ = m["entity-type"].(string)
	}

	switch entityType {
	case "item":
		return NewItem(m["numeric-id"])
	case "property":
		return NewProperty(m["numeric-id"])
	case "lexeme":
		return NewLexeme(m["numeric-id"])
	case "form":
		return parseSubLexemeValue(raw, "form")
	case "sense":
		return parseSubLexemeValue(raw, "sense")
	default:
		return nil, errors.Newf("unknown entity-type %q in datavalue", entityType)
	}
}

func parseSubLexemeValue(raw any, kind string) (Value, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.Newf("expected %s datavalue object, got %T", kind, raw)
	}
	id, _ := m["id"].(string)
	if kind == "form" {
		return NewForm(id)
	}
	return NewSense(id)
}

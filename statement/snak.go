package statement

import (
	"github.com/teranos/wikibase/errors"
)

// SnakType distinguishes a concrete value from the two known-absent forms.
type SnakType string

const (
	SnakValue     SnakType = "value"     // a concrete datavalue
	SnakNoValue   SnakType = "novalue"   // known to be absent
	SnakSomeValue SnakType = "somevalue" // present but unknown
)

// Snak is the value-bearing cell inside a statement, qualifier or
// reference. Snaks never carry references or qualifiers of their own.
type Snak struct {
	PropertyID string
	Type       SnakType
	Value      Value  // nil unless Type == SnakValue
	Hash       string // server-issued, opaque; empty on new snaks
	Datatype   string // wire datatype tag; authoritative for novalue/somevalue snaks
}

// NewSnak builds a value snak. The property id format is validated here;
// the value was validated by its constructor.
func NewSnak(pid string, v Value) (*Snak, error) {
	if err := ValidatePropertyID(pid); err != nil {
		return nil, err
	}
	if v == nil {
		return nil, errors.New("value snak requires a value")
	}
	return &Snak{PropertyID: pid, Type: SnakValue, Value: v, Datatype: v.Datatype()}, nil
}

// NewNoValueSnak marks a property as known-absent.
func NewNoValueSnak(pid, datatype string) (*Snak, error) {
	if err := ValidatePropertyID(pid); err != nil {
		return nil, err
	}
	return &Snak{PropertyID: pid, Type: SnakNoValue, Datatype: datatype}, nil
}

// NewSomeValueSnak marks a property as present but unknown.
func NewSomeValueSnak(pid, datatype string) (*Snak, error) {
	if err := ValidatePropertyID(pid); err != nil {
		return nil, err
	}
	return &Snak{PropertyID: pid, Type: SnakSomeValue, Datatype: datatype}, nil
}

// Equal reports snak equality: same property, same snak type, and (for
// value snaks) variant-specific value equality. Hashes do not participate.
func (s *Snak) Equal(o *Snak) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.PropertyID != o.PropertyID || s.Type != o.Type {
		return false
	}
	if s.Type != SnakValue {
		return true
	}
	return s.Value != nil && o.Value != nil && s.Value.Equal(o.Value)
}

// Clone returns a deep-enough copy: Value implementations are immutable
// after construction, so sharing them is safe.
func (s *Snak) Clone() *Snak {
	c := *s
	return &c
}

// ParseSnak consumes one snak in wire shape.
func ParseSnak(raw map[string]any) (*Snak, error) {
	pid := asString(raw["property"])
	if err := ValidatePropertyID(pid); err != nil {
		return nil, err
	}

	snak := &Snak{
		PropertyID: pid,
		Type:       SnakType(asString(raw["snaktype"])),
		Hash:       asString(raw["hash"]),
		Datatype:   asString(raw["datatype"]),
	}
	switch snak.Type {
	case SnakNoValue, SnakSomeValue:
		return snak, nil
	case SnakValue:
	default:
		return nil, errors.Newf("unknown snaktype %q on %s", raw["snaktype"], pid)
	}

	dv, ok := raw["datavalue"].(map[string]any)
	if !ok {
		return nil, errors.Newf("value snak on %s has no datavalue", pid)
	}
	v, err := ParseValue(snak.Datatype, asString(dv["type"]), dv["value"])
	if err != nil {
		return nil, errors.Wrapf(err, "parsing datavalue on %s", pid)
	}
	snak.Value = v
	if snak.Datatype == "" {
		snak.Datatype = v.Datatype()
	}
	return snak, nil
}

// JSON emits the snak in wire shape.
func (s *Snak) JSON() map[string]any {
	m := map[string]any{
		"snaktype": string(s.Type),
		"property": s.PropertyID,
	}
	if s.Datatype != "" {
		m["datatype"] = s.Datatype
	}
	if s.Hash != "" {
		m["hash"] = s.Hash
	}
	if s.Type == SnakValue && s.Value != nil {
		m["datavalue"] = map[string]any{
			"value": s.Value.WireValue(),
			"type":  s.Value.ValueType(),
		}
	}
	return m
}

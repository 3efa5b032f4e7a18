package statement

import (
	"strconv"
	"strings"

	"github.com/teranos/wikibase/errors"
)

// QuantityValue is an amount with optional unit item and bounds. Amounts
// carry an explicit sign on the wire.
type QuantityValue struct {
	Amount     string // "+34", "-1.5"
	Unit       string // full concept URI, or "1" for dimensionless
	UpperBound string // "" when absent
	LowerBound string // "" when absent
}

// NewQuantity validates numeric parsability, normalises the sign on amount
// and bounds, and enforces lower <= amount <= upper when bounds are given.
// An empty unit means dimensionless ("1"). Bounds must come in pairs.
func NewQuantity(amount, unit, upper, lower string) (*QuantityValue, error) {
	a, amt, err := normalizeAmount(amount)
	if err != nil {
		return nil, err
	}
	if unit == "" {
		unit = "1"
	}
	q := &QuantityValue{Amount: amt, Unit: unit}

	if (upper == "") != (lower == "") {
		return nil, errors.New("quantity bounds must be supplied together")
	}
	if upper != "" {
		u, us, err := normalizeAmount(upper)
		if err != nil {
			return nil, errors.Wrap(err, "upper bound")
		}
		l, ls, err := normalizeAmount(lower)
		if err != nil {
			return nil, errors.Wrap(err, "lower bound")
		}
		if l > a || a > u {
			return nil, errors.Newf("quantity bounds violated: want %s <= %s <= %s", ls, amt, us)
		}
		q.UpperBound = us
		q.LowerBound = ls
	}
	return q, nil
}

// normalizeAmount parses the numeric value and returns it alongside the
// sign-prefixed wire form.
func normalizeAmount(s string) (float64, string, error) {
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, "", errors.Newf("quantity amount %q is not numeric", s)
	}
	if !strings.HasPrefix(s, "+") && !strings.HasPrefix(s, "-") {
		s = "+" + s
	}
	return f, s, nil
}

func (v *QuantityValue) Datatype() string  { return DatatypeQuantity }
func (v *QuantityValue) ValueType() string { return valueTypeQuantity }

func (v *QuantityValue) String() string {
	if v.Unit != "1" {
		return v.Amount + " " + v.Unit
	}
	return v.Amount
}

func (v *QuantityValue) WireValue() any {
	m := map[string]any{
		"amount": v.Amount,
		"unit":   v.Unit,
	}
	if v.UpperBound != "" {
		m["upperBound"] = v.UpperBound
	}
	if v.LowerBound != "" {
		m["lowerBound"] = v.LowerBound
	}
	return m
}

func (v *QuantityValue) Equal(other Value) bool {
	o, ok := other.(*QuantityValue)
	return ok &&
		o.Amount == v.Amount &&
		o.Unit == v.Unit &&
		o.UpperBound == v.UpperBound &&
		o.LowerBound == v.LowerBound
}

func parseQuantityValue(raw any) (Value, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.Newf("expected quantity datavalue object, got %T", raw)
	}
	return NewQuantity(
		asString(m["amount"]),
		asString(m["unit"]),
		asString(m["upperBound"]),
		asString(m["lowerBound"]),
	)
}

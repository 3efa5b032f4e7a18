package statement

import (
	"regexp"
	"strings"

	"github.com/teranos/wikibase/errors"
)

// DefaultCalendarModel is the proleptic Gregorian calendar on Wikidata.
const DefaultCalendarModel = "http://www.wikidata.org/entity/Q1985727"

// Wire format "+YYYY-MM-DDThh:mm:ssZ"; years may exceed four digits.
var timeRe = regexp.MustCompile(`^[+-]\d{1,16}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z$`)

// TimeValue is a point in time with precision and calendar model.
type TimeValue struct {
	Time          string // ±YYYY-MM-DDThh:mm:ssZ
	Timezone      int64  // offset in minutes
	Before        int64
	After         int64
	Precision     int64 // 0 (billion years) .. 14 (second)
	CalendarModel string
}

// NewTime validates and normalises a wire-format time string. A missing
// leading sign is repaired to '+'. Precision must be in [0, 14]; an empty
// calendarModel defaults to the Gregorian calendar item.
func NewTime(t string, timezone int64, precision int64, calendarModel string) (*TimeValue, error) {
	t = RepairTimeSign(t)
	if !timeRe.MatchString(t) {
		return nil, errors.Newf("invalid time %q (want ±YYYY-MM-DDThh:mm:ssZ)", t)
	}
	if precision < 0 || precision > 14 {
		return nil, errors.Newf("time precision %d out of range [0, 14]", precision)
	}
	if calendarModel == "" {
		calendarModel = DefaultCalendarModel
	}
	return &TimeValue{
		Time:          t,
		Timezone:      timezone,
		Precision:     precision,
		CalendarModel: calendarModel,
	}, nil
}

// RepairTimeSign inserts the leading '+' the wire format requires when the
// caller (or a SPARQL result cell) left it off.
func RepairTimeSign(t string) string {
	if t != "" && !strings.HasPrefix(t, "+") && !strings.HasPrefix(t, "-") {
		return "+" + t
	}
	return t
}

func (v *TimeValue) Datatype() string  { return DatatypeTime }
func (v *TimeValue) ValueType() string { return valueTypeTime }
func (v *TimeValue) String() string    { return v.Time }

func (v *TimeValue) WireValue() any {
	return map[string]any{
		"time":          v.Time,
		"timezone":      v.Timezone,
		"before":        v.Before,
		"after":         v.After,
		"precision":     v.Precision,
		"calendarmodel": v.CalendarModel,
	}
}

func (v *TimeValue) Equal(other Value) bool {
	o, ok := other.(*TimeValue)
	return ok &&
		o.Time == v.Time &&
		o.Timezone == v.Timezone &&
		o.Precision == v.Precision &&
		o.CalendarModel == v.CalendarModel
}

func parseTimeValue(raw any) (Value, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.Newf("expected time datavalue object, got %T", raw)
	}
	t, _ := m["time"].(string)
	tv, err := NewTime(t, asInt64(m["timezone"]), asInt64(m["precision"]), asString(m["calendarmodel"]))
	if err != nil {
		return nil, err
	}
	tv.Before = asInt64(m["before"])
	tv.After = asInt64(m["after"])
	return tv, nil
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int64:
		return t
	case float64:
		return int64(t)
	default:
		return 0
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

package statement

import (
	"fmt"

	"github.com/teranos/wikibase/errors"
)

// DefaultGlobe is Earth on Wikidata.
const DefaultGlobe = "http://www.wikidata.org/entity/Q2"

// GlobeCoordinateValue is a latitude/longitude pair on some globe.
type GlobeCoordinateValue struct {
	Latitude  float64
	Longitude float64
	Precision float64
	Globe     string
}

// NewGlobeCoordinate builds a coordinate value. An empty globe defaults to
// Earth.
func NewGlobeCoordinate(lat, lon, precision float64, globe string) (*GlobeCoordinateValue, error) {
	if globe == "" {
		globe = DefaultGlobe
	}
	return &GlobeCoordinateValue{
		Latitude:  lat,
		Longitude: lon,
		Precision: precision,
		Globe:     globe,
	}, nil
}

func (v *GlobeCoordinateValue) Datatype() string  { return DatatypeGlobeCoordinate }
func (v *GlobeCoordinateValue) ValueType() string { return valueTypeGlobeCoordinate }

func (v *GlobeCoordinateValue) String() string {
	return fmt.Sprintf("%v,%v", v.Latitude, v.Longitude)
}

func (v *GlobeCoordinateValue) WireValue() any {
	return map[string]any{
		"latitude":  v.Latitude,
		"longitude": v.Longitude,
		"precision": v.Precision,
		"altitude":  nil, // always null on the wire
		"globe":     v.Globe,
	}
}

func (v *GlobeCoordinateValue) Equal(other Value) bool {
	o, ok := other.(*GlobeCoordinateValue)
	return ok &&
		o.Latitude == v.Latitude &&
		o.Longitude == v.Longitude &&
		o.Globe == v.Globe
}

func parseGlobeCoordinateValue(raw any) (Value, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.Newf("expected globecoordinate datavalue object, got %T", raw)
	}
	lat, _ := m["latitude"].(float64)
	lon, _ := m["longitude"].(float64)
	prec, _ := m["precision"].(float64)
	return NewGlobeCoordinate(lat, lon, prec, asString(m["globe"]))
}

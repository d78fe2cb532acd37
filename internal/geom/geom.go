// Package geom converts between the well-known-binary geometry form used by
// PostGIS and in-memory orb geometries.
package geom

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/ewkb"
	"github.com/paulmach/orb/encoding/wkb"
)

// Value is a decoded geometry together with its spatial reference id.
// SRID is 0 when the binary form carried none.
type Value struct {
	Geometry orb.Geometry
	SRID     int
}

// GeoJSONType reports the GeoJSON type tag of the wrapped geometry.
func (v Value) GeoJSONType() string {
	if v.Geometry == nil {
		return ""
	}
	return v.Geometry.GeoJSONType()
}

// GeoInterface is implemented by values that can hand out an orb geometry,
// e.g. *geojson.Geometry.
type GeoInterface interface {
	Geometry() orb.Geometry
}

type UnsupportedGeometryError struct {
	Value any
}

func (e *UnsupportedGeometryError) Error() string {
	return fmt.Sprintf("geom: %T does not conform to the geo interface", e.Value)
}

type MalformedGeometryError struct {
	Len int
	Err error
}

func (e *MalformedGeometryError) Error() string {
	return fmt.Sprintf("geom: malformed wkb (%d bytes): %v", e.Len, e.Err)
}

func (e *MalformedGeometryError) Unwrap() error { return e.Err }

// Encode serialises v as little-endian EWKB. The SRID is embedded only when
// v is a Value with a non-zero SRID.
func Encode(v any) ([]byte, error) {
	g, srid, err := asGeometry(v)
	if err != nil {
		return nil, err
	}
	b, err := ewkb.Marshal(g, srid, binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("geom: marshal %s: %w", g.GeoJSONType(), err)
	}
	return b, nil
}

// Decode parses EWKB or plain WKB.
func Decode(b []byte) (Value, error) {
	if len(b) == 0 {
		return Value{}, &MalformedGeometryError{Len: 0, Err: fmt.Errorf("empty input")}
	}
	g, srid, err := ewkb.Unmarshal(b)
	if err == nil {
		return Value{Geometry: g, SRID: srid}, nil
	}
	if g, werr := wkb.Unmarshal(b); werr == nil {
		return Value{Geometry: g}, nil
	}
	return Value{}, &MalformedGeometryError{Len: len(b), Err: err}
}

// DecodeHex parses the hex-encoded EWKB text PostGIS emits for geometry
// columns in the text wire format.
func DecodeHex(s string) (Value, error) {
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return Value{}, &MalformedGeometryError{Len: len(s), Err: err}
	}
	return Decode(b)
}

func asGeometry(v any) (orb.Geometry, int, error) {
	switch g := v.(type) {
	case Value:
		if g.Geometry == nil {
			return nil, 0, &UnsupportedGeometryError{Value: v}
		}
		return g.Geometry, g.SRID, nil
	case *Value:
		if g == nil || g.Geometry == nil {
			return nil, 0, &UnsupportedGeometryError{Value: v}
		}
		return g.Geometry, g.SRID, nil
	case orb.Geometry:
		if g == nil {
			return nil, 0, &UnsupportedGeometryError{Value: v}
		}
		return g, 0, nil
	case GeoInterface:
		inner := g.Geometry()
		if inner == nil {
			return nil, 0, &UnsupportedGeometryError{Value: v}
		}
		return inner, 0, nil
	default:
		return nil, 0, &UnsupportedGeometryError{Value: v}
	}
}

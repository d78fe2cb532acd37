// Package composer turns shaped query tables into response documents:
// GeoJSON FeatureCollections and chart-ready timeseries bundles.
package composer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/spatial-priorities-api/internal/geom"
	"github.com/mohammed-shakir/spatial-priorities-api/internal/table"
)

// DefaultGeometryColumn is the column ToFeatureCollection reads geometry from
// when none is given.
const DefaultGeometryColumn = "geometry"

const (
	contentTypeJSON    = "application/json"
	contentTypeGeoJSON = "application/geo+json"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

type Feature struct {
	Type       string            `json:"type"`
	Geometry   *geojson.Geometry `json:"geometry"`
	Properties table.Record      `json:"properties"`
}

// ToFeatureCollection emits one Feature per row. The geometry column goes to
// "geometry" (null when the row has no geometry) and every other column goes to
// "properties" in declaration order.
func ToFeatureCollection(t *table.Table, geometryColumn string) (*FeatureCollection, error) {
	if geometryColumn == "" {
		geometryColumn = DefaultGeometryColumn
	}
	if !t.HasColumn(geometryColumn) {
		return nil, fmt.Errorf("composer: geometry column %q not in %v", geometryColumn, t.Columns())
	}

	fc := &FeatureCollection{
		Type:     "FeatureCollection",
		Features: make([]Feature, 0, t.Len()),
	}
	for i, rec := range t.Records() {
		raw, _ := rec.Get(geometryColumn)
		g, err := toGeoJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("composer: row %d: %w", i, err)
		}
		fc.Features = append(fc.Features, Feature{
			Type:       "Feature",
			Geometry:   g,
			Properties: rec.Without(geometryColumn),
		})
	}
	return fc, nil
}

func toGeoJSON(v any) (*geojson.Geometry, error) {
	switch g := v.(type) {
	case nil:
		return nil, nil
	case geom.Value:
		if g.Geometry == nil {
			return nil, nil
		}
		return geojson.NewGeometry(g.Geometry), nil
	case *geom.Value:
		if g == nil || g.Geometry == nil {
			return nil, nil
		}
		return geojson.NewGeometry(g.Geometry), nil
	case orb.Geometry:
		return geojson.NewGeometry(g), nil
	default:
		return nil, &geom.UnsupportedGeometryError{Value: v}
	}
}

// ContentType picks the media type for the collection from an Accept header.
func (fc *FeatureCollection) ContentType(accept string) string {
	return NegotiateContentType(accept)
}

// NegotiateContentType returns application/geo+json when the client asks for
// it with a higher q-value than plain JSON, and application/json otherwise.
func NegotiateContentType(accept string) string {
	bestQ := -1.0
	best := contentTypeJSON
	for part := range strings.SplitSeq(strings.ToLower(accept), ",") {
		mt, q := mediaRange(part)
		var cand string
		switch {
		case strings.Contains(mt, "geo+json"):
			cand = contentTypeGeoJSON
		case mt == contentTypeJSON, mt == "*/*":
			cand = contentTypeJSON
		default:
			continue
		}
		if q > bestQ {
			bestQ = q
			best = cand
		}
	}
	return best
}

func mediaRange(token string) (string, float64) {
	token = strings.TrimSpace(token)
	mt, params, _ := strings.Cut(token, ";")
	q := 1.0
	for p := range strings.SplitSeq(params, ";") {
		if after, ok := strings.CutPrefix(strings.TrimSpace(p), "q="); ok {
			if v, err := strconv.ParseFloat(after, 64); err == nil {
				q = v
			}
		}
	}
	return strings.TrimSpace(mt), q
}

package composer

import (
	"errors"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/spatial-priorities-api/internal/geom"
	"github.com/mohammed-shakir/spatial-priorities-api/internal/table"
)

func mustShape(t *testing.T, rows [][]any, cols []string) *table.Table {
	t.Helper()
	tbl, err := table.Shape(rows, cols)
	if err != nil {
		t.Fatalf("shape: %v", err)
	}
	return tbl
}

func TestToFeatureCollection_OneFeaturePerRow(t *testing.T) {
	tbl := mustShape(t, [][]any{
		{int64(3004), "Municipal Services Building", geom.Value{Geometry: orb.Point{-75.16374, 39.95378}, SRID: 4326}},
		{int64(3005), "Welcome Park", geom.Value{Geometry: orb.Point{-75.14403, 39.94733}, SRID: 4326}},
		{int64(3006), "40th & Spruce", geom.Value{Geometry: orb.Point{-75.20311, 39.95205}, SRID: 4326}},
	}, []string{"station_id", "name", "geometry"})

	fc, err := ToFeatureCollection(tbl, "")
	if err != nil {
		t.Fatalf("ToFeatureCollection: %v", err)
	}
	if fc.Type != "FeatureCollection" {
		t.Fatalf("type=%q want FeatureCollection", fc.Type)
	}
	if got := len(fc.Features); got != 3 {
		t.Fatalf("features len=%d want 3", got)
	}
	for i, f := range fc.Features {
		if f.Type != "Feature" {
			t.Fatalf("feature %d type=%q", i, f.Type)
		}
		if f.Geometry == nil || f.Geometry.Type != "Point" {
			t.Fatalf("feature %d geometry=%v want Point", i, f.Geometry)
		}
		if _, ok := f.Properties.Get("geometry"); ok {
			t.Fatalf("feature %d still carries geometry in properties", i)
		}
	}
}

func TestToFeatureCollection_PropertyOrderAndNullGeometry(t *testing.T) {
	tbl := mustShape(t, [][]any{
		{int64(3010), 1.5, 0.25, 1.75, nil},
	}, []string{"station_id", "origins", "destinations", "totalTrips", "geometry"})

	fc, err := ToFeatureCollection(tbl, "geometry")
	if err != nil {
		t.Fatalf("ToFeatureCollection: %v", err)
	}
	b, err := json.Marshal(fc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":null,` +
		`"properties":{"station_id":3010,"origins":1.5,"destinations":0.25,"totalTrips":1.75}}]}`
	if string(b) != want {
		t.Fatalf("body mismatch\n got: %s\nwant: %s", b, want)
	}
}

func TestToFeatureCollection_EmptyTable(t *testing.T) {
	tbl := mustShape(t, nil, []string{"mun_name", "geometry"})
	fc, err := ToFeatureCollection(tbl, "geometry")
	if err != nil {
		t.Fatalf("ToFeatureCollection: %v", err)
	}
	b, _ := json.Marshal(fc)
	if string(b) != `{"type":"FeatureCollection","features":[]}` {
		t.Fatalf("unexpected body: %s", b)
	}
}

func TestToFeatureCollection_Errors(t *testing.T) {
	tbl := mustShape(t, [][]any{{"Abington", "POLYGON((0 0))"}}, []string{"mun_name", "geometry"})

	if _, err := ToFeatureCollection(tbl, "geom"); err == nil {
		t.Fatalf("expected error for unknown geometry column")
	}

	_, err := ToFeatureCollection(tbl, "geometry")
	var ue *geom.UnsupportedGeometryError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnsupportedGeometryError, got %v", err)
	}
}

func TestToTimeseries_GroupsByCategory(t *testing.T) {
	tbl := mustShape(t, [][]any{
		{"Inbound", 2021.1, 5},
		{"Inbound", 2021.2, 7},
		{"Outbound", 2021.1, 3},
	}, []string{"trip_dir", "yq", "total_trips"})

	ts, err := ToTimeseries(tbl, "trip_dir", "yq", "total_trips")
	if err != nil {
		t.Fatalf("ToTimeseries: %v", err)
	}
	b, err := json.Marshal(ts)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"Inbound":{"labels":["2021 Q1","2021 Q2"],"data_values":[5,7]},"Outbound":{"labels":["2021 Q1"],"data_values":[3]}}`
	if string(b) != want {
		t.Fatalf("body mismatch\n got: %s\nwant: %s", b, want)
	}

	if _, ok := ts.Series("Round Trip"); ok {
		t.Fatalf("category without rows must be absent")
	}
	in, ok := ts.Series("Inbound")
	if !ok || len(in.Labels) != len(in.DataValues) {
		t.Fatalf("labels and values must be index-aligned: %+v", in)
	}
}

func TestToTimeseries_Empty(t *testing.T) {
	tbl := mustShape(t, nil, []string{"trip_dir", "yq", "total_trips"})
	ts, err := ToTimeseries(tbl, "trip_dir", "yq", "total_trips")
	if err != nil {
		t.Fatalf("ToTimeseries: %v", err)
	}
	b, _ := json.Marshal(ts)
	if string(b) != "{}" {
		t.Fatalf("unexpected body: %s", b)
	}
}

func TestToTimeseries_UnknownColumn(t *testing.T) {
	tbl := mustShape(t, nil, []string{"trip_dir", "yq", "total_trips"})
	if _, err := ToTimeseries(tbl, "trip_dir", "quarter", "total_trips"); err == nil {
		t.Fatalf("expected error for unknown period column")
	}
	if _, err := ToTimeseries(tbl, "direction", "yq", "total_trips"); err == nil {
		t.Fatalf("expected error for unknown category column")
	}
}

func TestQuarterLabel(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{2021.1, "2021 Q1"},
		{2019.4, "2019 Q4"},
		{"2020.3", "2020 Q3"},
		{2022, "2022"},
	}
	for _, c := range cases {
		if got := QuarterLabel(c.in); got != c.want {
			t.Fatalf("QuarterLabel(%v)=%q want %q", c.in, got, c.want)
		}
	}
}

func TestNegotiateContentType(t *testing.T) {
	cases := []struct{ accept, want string }{
		{"", "application/json"},
		{"*/*", "application/json"},
		{"application/geo+json", "application/geo+json"},
		{"application/json;q=0.5, application/geo+json", "application/geo+json"},
		{"application/geo+json;q=0.2, application/json", "application/json"},
		{"text/html", "application/json"},
	}
	for _, c := range cases {
		if got := NegotiateContentType(c.accept); got != c.want {
			t.Fatalf("accept=%q got %q want %q", c.accept, got, c.want)
		}
	}
	fc := &FeatureCollection{}
	if got := fc.ContentType("Application/GEO+JSON"); !strings.HasSuffix(got, "geo+json") {
		t.Fatalf("case-insensitive accept failed: %q", got)
	}
}

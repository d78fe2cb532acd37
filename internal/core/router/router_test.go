package router

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mohammed-shakir/spatial-priorities-api/internal/composer"
	"github.com/mohammed-shakir/spatial-priorities-api/internal/core/executor"
	"github.com/mohammed-shakir/spatial-priorities-api/internal/geom"
	"github.com/mohammed-shakir/spatial-priorities-api/internal/table"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func TestHandle_JSONAndETag(t *testing.T) {
	h := Handle(discard(), "/x/", func(*http.Request) (any, error) {
		return map[string]int{"a": 1}, nil
	})

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/x/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	if got := rr.Body.String(); got != `{"a":1}` {
		t.Fatalf("body=%q", got)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type=%q", ct)
	}
	etag := rr.Header().Get("ETag")
	if etag != ETag([]byte(`{"a":1}`)) || !strings.HasPrefix(etag, `"`) {
		t.Fatalf("etag=%q", etag)
	}

	req := httptest.NewRequest(http.MethodGet, "/x/", nil)
	req.Header.Set("If-None-Match", `"other", `+etag)
	rr = serve(h, req)
	if rr.Code != http.StatusNotModified {
		t.Fatalf("status=%d want 304", rr.Code)
	}
	if rr.Body.Len() != 0 {
		t.Fatalf("304 must not carry a body")
	}
}

func TestHandle_NilDocumentIsNull(t *testing.T) {
	h := Handle(discard(), "/x/", func(*http.Request) (any, error) { return nil, nil })
	rr := serve(h, httptest.NewRequest(http.MethodGet, "/x/", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "null" {
		t.Fatalf("status=%d body=%q want 200 null", rr.Code, rr.Body.String())
	}
}

func TestHandle_GeoJSONNegotiation(t *testing.T) {
	h := Handle(discard(), "/x/", func(*http.Request) (any, error) {
		return &composer.FeatureCollection{Type: "FeatureCollection", Features: []composer.Feature{}}, nil
	})
	req := httptest.NewRequest(http.MethodGet, "/x/", nil)
	req.Header.Set("Accept", "application/geo+json")
	rr := serve(h, req)
	if ct := rr.Header().Get("Content-Type"); ct != "application/geo+json" {
		t.Fatalf("content-type=%q", ct)
	}
}

func TestHandle_ErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		detail string
	}{
		{&ParamError{Param: "q", Reason: "value is not a valid integer"}, http.StatusUnprocessableEntity, "valid integer"},
		{&executor.ConnectionError{Op: "connect", Err: errors.New("refused")}, http.StatusServiceUnavailable, "dataset unavailable"},
		{&executor.QueryExecutionError{Query: "q", Message: "syntax error at or near"}, http.StatusInternalServerError, "syntax error at or near"},
		{&table.ColumnCountMismatchError{Row: 0, Got: 2, Want: 3}, http.StatusInternalServerError, "columns"},
		{&geom.MalformedGeometryError{Len: 2}, http.StatusInternalServerError, "geometry"},
		{errors.New("boom"), http.StatusInternalServerError, "internal server error"},
	}
	for _, c := range cases {
		h := Handle(discard(), "/x/", func(*http.Request) (any, error) { return nil, c.err })
		rr := serve(h, httptest.NewRequest(http.MethodGet, "/x/", nil))
		if rr.Code != c.status {
			t.Fatalf("%T: status=%d want %d", c.err, rr.Code, c.status)
		}
		if !strings.Contains(rr.Body.String(), c.detail) {
			t.Fatalf("%T: body=%s missing %q", c.err, rr.Body.String(), c.detail)
		}
	}
}

func TestIntParam(t *testing.T) {
	cases := []struct {
		query string
		want  int64
		ok    bool
	}{
		{"q=3004", 3004, true},
		{"q=-1", -1, true},
		{"q=", 0, false},
		{"q=3.5", 0, false},
		{"q=%203004", 0, false},
		{"q=1;select", 0, false},
		{"other=1", 0, false},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, "/x/?"+c.query, nil)
		got, err := IntParam(req, "q")
		if c.ok != (err == nil) || got != c.want {
			t.Fatalf("%s: got %d err=%v", c.query, got, err)
		}
		var pe *ParamError
		if err != nil && !errors.As(err, &pe) {
			t.Fatalf("%s: want ParamError, got %T", c.query, err)
		}
	}
}

func TestStringParam_Semicolon(t *testing.T) {
	for _, c := range []struct {
		query string
		want  string
		safe  bool
	}{
		{"q=Abington", "Abington", true},
		{"q=Lower%20Merion", "Lower Merion", true},
		{"q=x';drop", "x';drop", false},
		{"q=x%3Bdrop", "x;drop", false},
	} {
		req := httptest.NewRequest(http.MethodGet, "/x/?"+c.query, nil)
		got, safe, err := StringParam(req, "q")
		if err != nil || got != c.want || safe != c.safe {
			t.Fatalf("%s: got (%q,%v,%v)", c.query, got, safe, err)
		}
	}

	_, _, err := StringParam(httptest.NewRequest(http.MethodGet, "/x/", nil), "q")
	var pe *ParamError
	if !errors.As(err, &pe) {
		t.Fatalf("missing param: want ParamError, got %v", err)
	}
}

func TestLngLat(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x/?lng=-75.16&lat=39.95", nil)
	lng, lat, err := LngLat(req)
	if err != nil || lng != -75.16 || lat != 39.95 {
		t.Fatalf("got (%v,%v,%v)", lng, lat, err)
	}

	for _, q := range []string{"lng=-75.16", "lng=abc&lat=1", "lng=200&lat=39.95", "lng=-75&lat=91"} {
		_, _, err := LngLat(httptest.NewRequest(http.MethodGet, "/x/?"+q, nil))
		var pe *ParamError
		if !errors.As(err, &pe) {
			t.Fatalf("%s: want ParamError, got %v", q, err)
		}
	}
}

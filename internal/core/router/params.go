package router

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParamError is a missing or malformed request parameter. It is raised before
// any query is built.
type ParamError struct {
	Param  string
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("query parameter %q: %s", e.Param, e.Reason)
}

// IntParam parses a required base-10 integer. Anything else, including
// surrounding whitespace or a decimal point, is rejected.
func IntParam(r *http.Request, name string) (int64, error) {
	raw, ok := lookup(r, name)
	if !ok {
		return 0, &ParamError{Param: name, Reason: "field required"}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &ParamError{Param: name, Reason: "value is not a valid integer"}
	}
	return n, nil
}

// StringParam returns a required string parameter. safe is false when the
// value contains a semicolon; callers answer with null and run nothing.
func StringParam(r *http.Request, name string) (value string, safe bool, err error) {
	raw, ok := lookup(r, name)
	if !ok {
		return "", false, &ParamError{Param: name, Reason: "field required"}
	}
	return raw, !strings.Contains(raw, ";"), nil
}

func FloatParam(r *http.Request, name string) (float64, error) {
	raw, ok := lookup(r, name)
	if !ok {
		return 0, &ParamError{Param: name, Reason: "field required"}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, &ParamError{Param: name, Reason: "value is not a valid float"}
	}
	return f, nil
}

type coordinates struct {
	Lng float64 `validate:"longitude"`
	Lat float64 `validate:"latitude"`
}

// LngLat reads the lng and lat parameters as a WGS84 coordinate.
func LngLat(r *http.Request) (lng, lat float64, err error) {
	if lng, err = FloatParam(r, "lng"); err != nil {
		return 0, 0, err
	}
	if lat, err = FloatParam(r, "lat"); err != nil {
		return 0, 0, err
	}
	if err := validate.Struct(coordinates{Lng: lng, Lat: lat}); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) && len(ves) > 0 {
			return 0, 0, &ParamError{Param: strings.ToLower(ves[0].Field()), Reason: "out of range for " + ves[0].Tag()}
		}
		return 0, 0, &ParamError{Param: "lng,lat", Reason: err.Error()}
	}
	return lng, lat, nil
}

// lookup returns the first value of name from the raw query. url.ParseQuery
// drops pairs containing a semicolon, so the raw string is split here to keep
// those values visible to StringParam.
func lookup(r *http.Request, name string) (string, bool) {
	for pair := range strings.SplitSeq(r.URL.RawQuery, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil || key != name {
			continue
		}
		val, err := url.QueryUnescape(v)
		if err != nil {
			return v, true
		}
		return val, true
	}
	return "", false
}

// Package router adapts pipeline calls to HTTP: it parses query parameters,
// encodes results as JSON with an ETag, and maps errors to status codes.
package router

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	json "github.com/goccy/go-json"

	"github.com/mohammed-shakir/spatial-priorities-api/internal/core/executor"
	"github.com/mohammed-shakir/spatial-priorities-api/internal/core/observability"
	"github.com/mohammed-shakir/spatial-priorities-api/internal/geom"
	mylog "github.com/mohammed-shakir/spatial-priorities-api/internal/logger"
	"github.com/mohammed-shakir/spatial-priorities-api/internal/table"
)

const contentTypeJSON = "application/json"

// Func produces the response document for one request. A nil document is
// written as JSON null.
type Func func(r *http.Request) (any, error)

// ContentTyper lets a document pick its own media type from the Accept header.
type ContentTyper interface {
	ContentType(accept string) string
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Handle wraps fn with encoding, conditional GET and metrics under route.
func Handle(logger *slog.Logger, route string, fn Func) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		ctx := mylog.WithRoute(r.Context(), route)
		r = r.WithContext(ctx)

		defer func() {
			observability.ObserveHTTP(r.Method, route, sw.code, time.Since(start).Seconds())
		}()

		doc, err := fn(r)
		if err != nil {
			status, detail := statusFor(err)
			if status >= http.StatusInternalServerError {
				logger.ErrorContext(ctx, "request failed", "status", status, "err", err)
			} else {
				logger.DebugContext(ctx, "request rejected", "status", status, "err", err)
			}
			writeError(sw, status, detail)
			return
		}

		body, err := json.Marshal(doc)
		if err != nil {
			logger.ErrorContext(ctx, "encode response", "err", err)
			writeError(sw, http.StatusInternalServerError, "internal server error")
			return
		}

		ct := contentTypeJSON
		if c, ok := doc.(ContentTyper); ok {
			ct = c.ContentType(r.Header.Get("Accept"))
		}
		etag := ETag(body)
		sw.Header().Set("ETag", etag)
		sw.Header().Set("Vary", "Accept")
		if etagMatch(r.Header.Get("If-None-Match"), etag) {
			observability.IncNotModified(route)
			sw.WriteHeader(http.StatusNotModified)
			return
		}
		sw.Header().Set("Content-Type", ct)
		sw.Header().Set("Content-Length", strconv.Itoa(len(body)))
		sw.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			_, _ = sw.Write(body)
		}
	}
}

// ETag is a strong validator over the encoded body.
func ETag(body []byte) string {
	return `"` + strconv.FormatUint(xxhash.Sum64(body), 16) + `"`
}

func etagMatch(header, etag string) bool {
	if header == "" {
		return false
	}
	for tag := range strings.SplitSeq(header, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "*" || strings.TrimPrefix(tag, "W/") == etag {
			return true
		}
	}
	return false
}

func statusFor(err error) (int, string) {
	var (
		pe  *ParamError
		ce  *executor.ConnectionError
		qe  *executor.QueryExecutionError
		cm  *table.ColumnMismatchError
		ccm *table.ColumnCountMismatchError
		ug  *geom.UnsupportedGeometryError
		mg  *geom.MalformedGeometryError
	)
	switch {
	case errors.As(err, &pe):
		return http.StatusUnprocessableEntity, pe.Error()
	case errors.As(err, &ce):
		return http.StatusServiceUnavailable, "dataset unavailable"
	case errors.As(err, &qe):
		return http.StatusInternalServerError, qe.Message
	case errors.As(err, &cm), errors.As(err, &ccm):
		return http.StatusInternalServerError, "result columns do not match the query contract"
	case errors.As(err, &ug), errors.As(err, &mg):
		return http.StatusInternalServerError, "geometry could not be serialized"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	body, _ := json.Marshal(struct {
		Detail string `json:"detail"`
	}{detail})
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

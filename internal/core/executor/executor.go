// Package executor runs parameterized SQL against a PostGIS dataset and returns
// the store's field names with fully materialized, JSON-ready rows.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/mohammed-shakir/spatial-priorities-api/internal/core/observability"
	"github.com/mohammed-shakir/spatial-priorities-api/internal/geom"
)

const defaultConfigCacheSize = 16

type Interface interface {
	Execute(ctx context.Context, uri string, q Query) (Result, error)
	Ping(ctx context.Context, uri string) error
}

// Query is one parameterized statement. Args are sent as bound parameters,
// never spliced into SQL. Geometry names the result columns holding PostGIS
// geometry; they are decoded before the row leaves the executor.
type Query struct {
	Name     string
	SQL      string
	Args     []any
	Geometry []string
}

type Result struct {
	Fields []string
	Rows   [][]any
}

// Conn is the slice of *pgx.Conn the executor uses.
type Conn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type Dialer func(ctx context.Context, cfg *pgx.ConnConfig) (Conn, error)

func pgxDial(ctx context.Context, cfg *pgx.ConnConfig) (Conn, error) {
	c, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return c, nil
}

type Option func(*Executor)

func WithDialer(d Dialer) Option {
	return func(e *Executor) {
		if d != nil {
			e.dial = d
		}
	}
}

type Executor struct {
	logger   *slog.Logger
	dial     Dialer
	configs  *lru.Cache[string, *pgx.ConnConfig]
	startNow func() time.Time // for tests
}

func New(logger *slog.Logger, opts ...Option) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	configs, _ := lru.New[string, *pgx.ConnConfig](defaultConfigCacheSize)
	e := &Executor{
		logger:   logger,
		dial:     pgxDial,
		configs:  configs,
		startNow: time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Execute opens a connection for this call only, runs q, reads every row and
// closes the connection on all paths.
func (e *Executor) Execute(ctx context.Context, uri string, q Query) (Result, error) {
	start := e.startNow()
	outcome := "ok"
	defer func() {
		observability.ObserveQuery(q.Name, outcome, time.Since(start).Seconds())
	}()

	conn, err := e.connect(ctx, uri)
	if err != nil {
		outcome = "connect_error"
		return Result{}, err
	}
	defer e.closeConn(ctx, conn)

	res, err := e.run(ctx, conn, q)
	if err != nil {
		outcome = "query_error"
		return Result{}, err
	}

	e.logger.DebugContext(ctx, "query done",
		"query", q.Name,
		"rows", len(res.Rows),
		"duration", time.Since(start).String())
	return res, nil
}

// Ping checks that a connection can be opened and answers.
func (e *Executor) Ping(ctx context.Context, uri string) error {
	conn, err := e.connect(ctx, uri)
	if err != nil {
		return err
	}
	defer e.closeConn(ctx, conn)
	if err := conn.Ping(ctx); err != nil {
		return &ConnectionError{Op: "ping", Err: err}
	}
	return nil
}

func (e *Executor) connect(ctx context.Context, uri string) (Conn, error) {
	cfg, err := e.config(uri)
	if err != nil {
		return nil, &ConnectionError{Op: "parse", Err: err}
	}
	conn, err := e.dial(ctx, cfg)
	if err != nil {
		return nil, &ConnectionError{Op: "connect", Err: err}
	}
	return conn, nil
}

func (e *Executor) config(uri string) (*pgx.ConnConfig, error) {
	if uri == "" {
		return nil, errors.New("empty connection string")
	}
	if cfg, ok := e.configs.Get(uri); ok {
		return cfg.Copy(), nil
	}
	cfg, err := pgx.ParseConfig(uri)
	if err != nil {
		return nil, err
	}
	e.configs.Add(uri, cfg)
	return cfg.Copy(), nil
}

func (e *Executor) closeConn(ctx context.Context, conn Conn) {
	if err := conn.Close(context.WithoutCancel(ctx)); err != nil {
		e.logger.WarnContext(ctx, "close connection", "err", err)
	}
}

func (e *Executor) run(ctx context.Context, conn Conn, q Query) (Result, error) {
	rows, err := conn.Query(ctx, q.SQL, q.Args...)
	if err != nil {
		return Result{}, newQueryError(q, err)
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	fields := make([]string, len(fds))
	for i, fd := range fds {
		fields[i] = fd.Name
	}
	isGeom := geometryColumns(fields, q.Geometry)

	out := make([][]any, 0)
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return Result{}, newQueryError(q, err)
		}
		for i, v := range vals {
			if isGeom[i] {
				g, err := decodeGeometry(v)
				if err != nil {
					return Result{}, fmt.Errorf("executor: %s row %d column %q: %w", q.Name, len(out), fields[i], err)
				}
				vals[i] = g
				continue
			}
			vals[i] = normalize(v)
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return Result{}, newQueryError(q, err)
	}
	return Result{Fields: fields, Rows: out}, nil
}

func geometryColumns(fields, declared []string) []bool {
	out := make([]bool, len(fields))
	for i, f := range fields {
		for _, d := range declared {
			if f == d {
				out[i] = true
				break
			}
		}
	}
	return out
}

// decodeGeometry accepts the hex text form PostGIS sends for geometry without a
// registered codec, or raw EWKB bytes. NULL stays nil.
func decodeGeometry(v any) (any, error) {
	switch g := v.(type) {
	case nil:
		return nil, nil
	case string:
		return geom.DecodeHex(g)
	case []byte:
		return geom.Decode(g)
	default:
		return nil, &geom.UnsupportedGeometryError{Value: v}
	}
}

// normalize maps driver types that have no natural JSON form.
func normalize(v any) any {
	switch x := v.(type) {
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case [16]byte:
		return uuid.UUID(x).String()
	default:
		return v
	}
}

type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("executor: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// QueryExecutionError carries the store's own message so callers can surface it.
type QueryExecutionError struct {
	Query   string
	Code    string
	Message string
	Err     error
}

func newQueryError(q Query, err error) *QueryExecutionError {
	qe := &QueryExecutionError{Query: q.Name, Message: err.Error(), Err: err}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		qe.Code = pgErr.Code
		qe.Message = pgErr.Message
	}
	return qe
}

func (e *QueryExecutionError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("executor: query %s: %s (SQLSTATE %s)", e.Query, e.Message, e.Code)
	}
	return fmt.Sprintf("executor: query %s: %s", e.Query, e.Message)
}

func (e *QueryExecutionError) Unwrap() error { return e.Err }

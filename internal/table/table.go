// Package table turns positional query rows into named, ordered records.
package table

import (
	"bytes"
	"fmt"
	"slices"

	json "github.com/goccy/go-json"
)

type ColumnCountMismatchError struct {
	Row  int
	Got  int
	Want int
}

func (e *ColumnCountMismatchError) Error() string {
	return fmt.Sprintf("table: row %d has %d fields, %d columns declared", e.Row, e.Got, e.Want)
}

// ColumnMismatchError reports declared columns that the query did not return
// (Missing) or returned columns that were not declared (Unexpected).
type ColumnMismatchError struct {
	Missing    []string
	Unexpected []string
}

func (e *ColumnMismatchError) Error() string {
	return fmt.Sprintf("table: declared columns do not match query columns (missing=%v unexpected=%v)", e.Missing, e.Unexpected)
}

// Table is an immutable, ordered set of records sharing one column schema.
type Table struct {
	columns []string
	index   map[string]int
	rows    []Record
}

// Record is one row. It marshals to a JSON object with keys in column order.
type Record struct {
	columns []string
	values  []any
}

// Shape zips every row positionally with columns. A row whose arity differs
// from len(columns) is rejected; nothing is padded or truncated.
func Shape(rows [][]any, columns []string) (*Table, error) {
	cols := slices.Clone(columns)
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		if _, dup := idx[c]; dup {
			return nil, fmt.Errorf("table: duplicate column %q", c)
		}
		idx[c] = i
	}

	out := make([]Record, 0, len(rows))
	for i, r := range rows {
		if len(r) != len(cols) {
			return nil, &ColumnCountMismatchError{Row: i, Got: len(r), Want: len(cols)}
		}
		out = append(out, Record{columns: cols, values: slices.Clone(r)})
	}
	return &Table{columns: cols, index: idx, rows: out}, nil
}

// ShapeResult checks that the store reported exactly the declared columns
// (any order), moves every value into declaration order and shapes the rows.
func ShapeResult(fields []string, rows [][]any, columns []string) (*Table, error) {
	if len(fields) != len(columns) {
		return nil, &ColumnCountMismatchError{Row: -1, Got: len(fields), Want: len(columns)}
	}

	pos := make(map[string]int, len(fields))
	for i, f := range fields {
		pos[f] = i
	}

	var mismatch ColumnMismatchError
	order := make([]int, len(columns))
	for i, c := range columns {
		p, ok := pos[c]
		if !ok {
			mismatch.Missing = append(mismatch.Missing, c)
			continue
		}
		order[i] = p
	}
	if len(mismatch.Missing) > 0 {
		for _, f := range fields {
			if !slices.Contains(columns, f) {
				mismatch.Unexpected = append(mismatch.Unexpected, f)
			}
		}
		return nil, &mismatch
	}

	aligned := make([][]any, len(rows))
	for i, r := range rows {
		if len(r) != len(fields) {
			return nil, &ColumnCountMismatchError{Row: i, Got: len(r), Want: len(columns)}
		}
		row := make([]any, len(columns))
		for j, p := range order {
			row[j] = r[p]
		}
		aligned[i] = row
	}
	return Shape(aligned, columns)
}

func (t *Table) Columns() []string { return slices.Clone(t.columns) }

func (t *Table) Len() int { return len(t.rows) }

func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Records returns the rows in the order received from the store.
func (t *Table) Records() []Record { return slices.Clone(t.rows) }

// Values flattens every row, row-major, into a single list.
func (t *Table) Values() []any {
	out := make([]any, 0, len(t.rows)*len(t.columns))
	for _, r := range t.rows {
		out = append(out, r.values...)
	}
	return out
}

// Groups is the result of GroupBy. Keys are kept in first-seen order.
type Groups struct {
	Keys []any
	rows map[any][]Record
}

func (g *Groups) Rows(key any) []Record { return g.rows[key] }

// GroupBy partitions the rows by the value of key. Row order inside each
// group is the order the store returned; nothing is re-sorted.
func (t *Table) GroupBy(key string) (*Groups, error) {
	i, ok := t.index[key]
	if !ok {
		return nil, fmt.Errorf("table: group by unknown column %q", key)
	}
	g := &Groups{rows: make(map[any][]Record)}
	for _, r := range t.rows {
		k := r.values[i]
		if !hashable(k) {
			return nil, fmt.Errorf("table: group key %q has unhashable value %T", key, k)
		}
		if _, seen := g.rows[k]; !seen {
			g.Keys = append(g.Keys, k)
		}
		g.rows[k] = append(g.rows[k], r)
	}
	return g, nil
}

func hashable(v any) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	_ = map[any]struct{}{v: {}}
	return true
}

func (r Record) Columns() []string { return slices.Clone(r.columns) }

// Get returns the value of column and whether the column exists.
func (r Record) Get(column string) (any, bool) {
	for i, c := range r.columns {
		if c == column {
			return r.values[i], true
		}
	}
	return nil, false
}

// Without returns a copy of r minus the named column.
func (r Record) Without(column string) Record {
	out := Record{
		columns: make([]string, 0, len(r.columns)),
		values:  make([]any, 0, len(r.values)),
	}
	for i, c := range r.columns {
		if c == column {
			continue
		}
		out.columns = append(out.columns, c)
		out.values = append(out.values, r.values[i])
	}
	return out
}

// MarshalJSON writes the record as an object whose keys follow column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, fmt.Errorf("table: column %q: %w", c, err)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

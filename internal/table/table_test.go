package table

import (
	"errors"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShape_ArityMismatch(t *testing.T) {
	rows := [][]any{
		{"Inbound", 2021.1, 5},
		{"Inbound", 2021.2},
	}
	_, err := Shape(rows, []string{"trip_dir", "yq", "total_trips"})

	var ce *ColumnCountMismatchError
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, 1, ce.Row)
	assert.Equal(t, 2, ce.Got)
	assert.Equal(t, 3, ce.Want)

	_, err = Shape([][]any{{1, 2, 3, 4}}, []string{"a", "b", "c"})
	require.True(t, errors.As(err, &ce), "extra field must not be truncated: %v", err)
}

func TestShape_DuplicateColumn(t *testing.T) {
	_, err := Shape(nil, []string{"a", "a"})
	require.Error(t, err)
}

func TestShapeResult_ReordersByName(t *testing.T) {
	fields := []string{"geometry", "station_id", "name"}
	rows := [][]any{{"g1", int64(3004), "Municipal Services Building"}}

	tbl, err := ShapeResult(fields, rows, []string{"station_id", "name", "geometry"})
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())

	rec := tbl.Records()[0]
	b, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"station_id":3004,"name":"Municipal Services Building","geometry":"g1"}`, string(b))
}

func TestShapeResult_NameMismatch(t *testing.T) {
	_, err := ShapeResult([]string{"station_id", "totaltrips"}, nil, []string{"station_id", "totalTrips"})

	var me *ColumnMismatchError
	require.True(t, errors.As(err, &me), "got %v", err)
	assert.Equal(t, []string{"totalTrips"}, me.Missing)
	assert.Equal(t, []string{"totaltrips"}, me.Unexpected)
}

func TestShapeResult_CountMismatch(t *testing.T) {
	_, err := ShapeResult([]string{"a", "b"}, nil, []string{"a"})
	var ce *ColumnCountMismatchError
	require.True(t, errors.As(err, &ce), "got %v", err)
}

func TestGroupBy_PreservesOrder(t *testing.T) {
	tbl, err := Shape([][]any{
		{"Outbound", 1},
		{"Inbound", 2},
		{"Outbound", 3},
		{"Round Trip", 4},
		{"Inbound", 5},
	}, []string{"dir", "n"})
	require.NoError(t, err)

	g, err := tbl.GroupBy("dir")
	require.NoError(t, err)
	assert.Equal(t, []any{"Outbound", "Inbound", "Round Trip"}, g.Keys)

	var got []any
	for _, r := range g.Rows("Outbound") {
		v, _ := r.Get("n")
		got = append(got, v)
	}
	assert.Equal(t, []any{1, 3}, got)
	assert.Empty(t, g.Rows("missing"))

	_, err = tbl.GroupBy("nope")
	assert.Error(t, err)
}

func TestValues_FlattensRowMajor(t *testing.T) {
	tbl, err := Shape([][]any{{int64(10)}, {int64(11)}, {int64(12)}}, []string{"uid"})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(10), int64(11), int64(12)}, tbl.Values())

	empty, err := Shape(nil, []string{"uid"})
	require.NoError(t, err)
	b, err := json.Marshal(empty.Values())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))
}

func TestRecord_Without(t *testing.T) {
	tbl, err := Shape([][]any{{"Abington", "geom"}}, []string{"mun_name", "geometry"})
	require.NoError(t, err)

	rec := tbl.Records()[0].Without("geometry")
	assert.Equal(t, []string{"mun_name"}, rec.Columns())
	_, ok := rec.Get("geometry")
	assert.False(t, ok)
}

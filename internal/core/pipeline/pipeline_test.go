package pipeline

import (
	"context"
	"errors"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammed-shakir/spatial-priorities-api/internal/core/executor"
	"github.com/mohammed-shakir/spatial-priorities-api/internal/geom"
	"github.com/mohammed-shakir/spatial-priorities-api/internal/table"
)

type stubRunner struct {
	res   executor.Result
	err   error
	calls []executor.Query
}

func (s *stubRunner) Execute(_ context.Context, _ string, q executor.Query) (executor.Result, error) {
	s.calls = append(s.calls, q)
	return s.res, s.err
}

func TestFeatureCollection_AddsGeometryColumn(t *testing.T) {
	run := &stubRunner{res: executor.Result{
		Fields: []string{"geometry", "mun_name"},
		Rows: [][]any{
			{geom.Value{Geometry: orb.Point{-75.2, 40.1}, SRID: 4326}, "Abington"},
			{nil, "Ambler"},
		},
	}}
	p := New(run)

	fc, err := p.FeatureCollection(context.Background(), "uri", executor.Query{Name: "munis"}, []string{"mun_name", "geometry"}, "")
	require.NoError(t, err)
	require.Len(t, run.calls, 1)
	assert.Equal(t, []string{"geometry"}, run.calls[0].Geometry)

	b, err := json.Marshal(fc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"Point","coordinates":[-75.2,40.1]},"properties":{"mun_name":"Abington"}},
		{"type":"Feature","geometry":null,"properties":{"mun_name":"Ambler"}}]}`, string(b))
}

func TestTable_ColumnContract(t *testing.T) {
	run := &stubRunner{res: executor.Result{Fields: []string{"station_id", "totaltrips"}}}
	_, err := New(run).Table(context.Background(), "uri", executor.Query{Name: "trip-points"}, []string{"station_id", "totalTrips"})

	var me *table.ColumnMismatchError
	require.ErrorAs(t, err, &me)
	assert.Contains(t, err.Error(), "trip-points")
}

func TestExecutorErrorsPassThrough(t *testing.T) {
	want := &executor.ConnectionError{Op: "connect", Err: errors.New("refused")}
	run := &stubRunner{err: want}
	p := New(run)

	_, err := p.Values(context.Background(), "uri", executor.Query{}, []string{"uid"})
	var ce *executor.ConnectionError
	require.ErrorAs(t, err, &ce)

	_, err = p.Timeseries(context.Background(), "uri", executor.Query{}, TimeseriesColumns{"trip_dir", "yq", "total_trips"})
	require.ErrorAs(t, err, &ce)
}

func TestTimeseries(t *testing.T) {
	run := &stubRunner{res: executor.Result{
		Fields: []string{"trip_dir", "yq", "total_trips"},
		Rows: [][]any{
			{"Inbound", 2021.1, 5.0},
			{"Inbound", 2021.2, 7.0},
			{"Outbound", 2021.1, 3.0},
		},
	}}
	ts, err := New(run).Timeseries(context.Background(), "uri", executor.Query{}, TimeseriesColumns{"trip_dir", "yq", "total_trips"})
	require.NoError(t, err)

	b, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `{"Inbound":{"labels":["2021 Q1","2021 Q2"],"data_values":[5,7]},"Outbound":{"labels":["2021 Q1"],"data_values":[3]}}`, string(b))
}

func TestValuesAndRecords(t *testing.T) {
	run := &stubRunner{res: executor.Result{
		Fields: []string{"uid"},
		Rows:   [][]any{{int64(7)}, {int64(9)}},
	}}
	p := New(run)

	vals, err := p.Values(context.Background(), "uri", executor.Query{}, []string{"uid"})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(7), int64(9)}, vals)

	run.res = executor.Result{Fields: []string{"x", "y"}, Rows: [][]any{{-75.1, 40.2}}}
	recs, err := p.Records(context.Background(), "uri", executor.Query{}, []string{"x", "y"})
	require.NoError(t, err)
	b, _ := json.Marshal(recs)
	assert.Equal(t, `[{"x":-75.1,"y":40.2}]`, string(b))
}

// Package pipeline runs a query through the executor and shapes the result
// into one of the response documents the routes serve.
package pipeline

import (
	"context"
	"fmt"
	"slices"

	"github.com/mohammed-shakir/spatial-priorities-api/internal/composer"
	"github.com/mohammed-shakir/spatial-priorities-api/internal/core/executor"
	"github.com/mohammed-shakir/spatial-priorities-api/internal/table"
)

type Runner interface {
	Execute(ctx context.Context, uri string, q executor.Query) (executor.Result, error)
}

type Pipeline struct {
	exec Runner
}

func New(exec Runner) *Pipeline {
	return &Pipeline{exec: exec}
}

// Table executes q and checks the store returned exactly columns.
func (p *Pipeline) Table(ctx context.Context, uri string, q executor.Query, columns []string) (*table.Table, error) {
	res, err := p.exec.Execute(ctx, uri, q)
	if err != nil {
		return nil, err
	}
	t, err := table.ShapeResult(res.Fields, res.Rows, columns)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %s: %w", q.Name, err)
	}
	return t, nil
}

// FeatureCollection executes a geometry-bearing query and serializes it as
// GeoJSON. geometryColumn is decoded by the executor even when q does not
// list it.
func (p *Pipeline) FeatureCollection(ctx context.Context, uri string, q executor.Query, columns []string, geometryColumn string) (*composer.FeatureCollection, error) {
	if geometryColumn == "" {
		geometryColumn = composer.DefaultGeometryColumn
	}
	if !slices.Contains(q.Geometry, geometryColumn) {
		q.Geometry = append(slices.Clone(q.Geometry), geometryColumn)
	}
	t, err := p.Table(ctx, uri, q, columns)
	if err != nil {
		return nil, err
	}
	fc, err := composer.ToFeatureCollection(t, geometryColumn)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %s: %w", q.Name, err)
	}
	return fc, nil
}

type TimeseriesColumns struct {
	Category string
	Period   string
	Value    string
}

func (c TimeseriesColumns) list() []string {
	return []string{c.Category, c.Period, c.Value}
}

func (p *Pipeline) Timeseries(ctx context.Context, uri string, q executor.Query, cols TimeseriesColumns) (composer.TimeseriesBundle, error) {
	t, err := p.Table(ctx, uri, q, cols.list())
	if err != nil {
		return composer.TimeseriesBundle{}, err
	}
	ts, err := composer.ToTimeseries(t, cols.Category, cols.Period, cols.Value)
	if err != nil {
		return composer.TimeseriesBundle{}, fmt.Errorf("pipeline: %s: %w", q.Name, err)
	}
	return ts, nil
}

// Values returns every value of every row as one flat list, in row order.
func (p *Pipeline) Values(ctx context.Context, uri string, q executor.Query, columns []string) ([]any, error) {
	t, err := p.Table(ctx, uri, q, columns)
	if err != nil {
		return nil, err
	}
	return t.Values(), nil
}

// Records returns the rows as ordered JSON objects.
func (p *Pipeline) Records(ctx context.Context, uri string, q executor.Query, columns []string) ([]table.Record, error) {
	t, err := p.Table(ctx, uri, q, columns)
	if err != nil {
		return nil, err
	}
	return t.Records(), nil
}

package composer

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/mohammed-shakir/spatial-priorities-api/internal/table"
)

type Series struct {
	Labels     []string `json:"labels"`
	DataValues []any    `json:"data_values"`
}

// TimeseriesBundle maps a category to its series. Categories keep the order
// in which they first appeared in the table.
type TimeseriesBundle struct {
	categories []string
	series     map[string]*Series
}

func (b TimeseriesBundle) Categories() []string {
	return append([]string(nil), b.categories...)
}

func (b TimeseriesBundle) Series(category string) (Series, bool) {
	s, ok := b.series[category]
	if !ok {
		return Series{}, false
	}
	return *s, true
}

func (b TimeseriesBundle) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range b.categories {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(b.series[c])
		if err != nil {
			return nil, fmt.Errorf("composer: series %q: %w", c, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ToTimeseries groups rows by categoryColumn and emits index-aligned labels
// and values per category in row order. Categories without rows are absent.
func ToTimeseries(t *table.Table, categoryColumn, periodColumn, valueColumn string) (TimeseriesBundle, error) {
	for _, c := range []string{periodColumn, valueColumn} {
		if !t.HasColumn(c) {
			return TimeseriesBundle{}, fmt.Errorf("composer: timeseries column %q not in %v", c, t.Columns())
		}
	}
	groups, err := t.GroupBy(categoryColumn)
	if err != nil {
		return TimeseriesBundle{}, fmt.Errorf("composer: %w", err)
	}

	out := TimeseriesBundle{series: make(map[string]*Series, len(groups.Keys))}
	for _, key := range groups.Keys {
		name := categoryName(key)
		s, ok := out.series[name]
		if !ok {
			s = &Series{Labels: []string{}, DataValues: []any{}}
			out.series[name] = s
			out.categories = append(out.categories, name)
		}
		for _, rec := range groups.Rows(key) {
			period, _ := rec.Get(periodColumn)
			value, _ := rec.Get(valueColumn)
			s.Labels = append(s.Labels, QuarterLabel(period))
			s.DataValues = append(s.DataValues, value)
		}
	}
	return out, nil
}

// QuarterLabel renders a year.quarter number as a display label:
// 2021.2 becomes "2021 Q2".
func QuarterLabel(period any) string {
	var s string
	switch v := period.(type) {
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(v), 'f', -1, 32)
	case string:
		s = v
	default:
		s = fmt.Sprint(v)
	}
	return strings.ReplaceAll(s, ".", " Q")
}

func categoryName(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

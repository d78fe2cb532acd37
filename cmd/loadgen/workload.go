package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// target is one request in the workload pool.
type target struct {
	Route string
	Path  string
	Query url.Values
}

func (t target) URL(base string) string {
	u := strings.TrimRight(base, "/") + t.Path
	if len(t.Query) > 0 {
		u += "?" + t.Query.Encode()
	}
	return u
}

var defaultStations = []int{3004, 3005, 3006, 3007, 3009, 3010, 3012, 3020, 3021, 3022, 3023, 3026, 3028, 3032, 3037, 3045}

var defaultMunis = []string{"Abington", "Cheltenham", "Lower Merion", "Norristown", "Upper Darby", "Springfield"}

// makeTargets builds a pool that mixes every route. Hot entries (popular
// stations, the first munis) come first so a Zipf draw favours them.
func makeTargets(stations []int, munis []string, count int, r *rand.Rand) []target {
	var pool []target
	for _, id := range stations {
		q := url.Values{"q": {strconv.Itoa(id)}}
		pool = append(pool,
			target{Route: "trip-points", Path: "/indego/trip-points/", Query: q},
			target{Route: "trip-spider", Path: "/indego/trip-spider/", Query: q},
			target{Route: "timeseries", Path: "/indego/timeseries/", Query: q},
		)
	}
	for _, m := range munis {
		q := url.Values{"q": {m}}
		pool = append(pool,
			target{Route: "gaps-within-muni", Path: "/sidewalk/gaps-within-muni/", Query: q},
			target{Route: "one-muni", Path: "/sidewalk/one-muni/", Query: q},
			target{Route: "one-muni-centroid", Path: "/sidewalk/one-muni-centroid/", Query: q},
		)
	}
	pool = append(pool,
		target{Route: "all", Path: "/indego/all/"},
		target{Route: "all-munis", Path: "/sidewalk/all-munis/"},
	)

	// fill with random points around Philadelphia
	for len(pool) < count {
		lng := -75.35 + r.Float64()*0.40
		lat := 39.90 + r.Float64()*0.30
		pool = append(pool, target{
			Route: "gaps-near-xy",
			Path:  "/sidewalk/gaps-near-xy/",
			Query: url.Values{
				"lng": {strconv.FormatFloat(lng, 'f', 5, 64)},
				"lat": {strconv.FormatFloat(lat, 'f', 5, 64)},
			},
		})
	}
	return pool
}

// loadStationsCSV reads station ids from a CSV with an "id" or "station_id"
// header column.
func loadStationsCSV(path string) ([]int, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open stations: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "id", "station_id":
			col = i
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("stations csv: expected an id or station_id column; got %v", header)
	}

	var out []int
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		s := strings.TrimSpace(rec[col])
		if s == "" {
			continue
		}
		id, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("parse station id %q: %w", s, err)
		}
		out = append(out, id)
	}
	return out, nil
}

func percentile(sortedValues []float64, p float64) float64 {
	if len(sortedValues) == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return sortedValues[0]
	}
	if p >= 100 {
		return sortedValues[len(sortedValues)-1]
	}
	k := (p / 100.0) * float64(len(sortedValues)-1)
	f := math.Floor(k)
	i := int(f)
	if i >= len(sortedValues)-1 {
		return sortedValues[len(sortedValues)-1]
	}
	d := k - f
	return sortedValues[i]*(1-d) + sortedValues[i+1]*d
}

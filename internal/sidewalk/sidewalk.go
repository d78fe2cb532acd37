// Package sidewalk serves the sidewalk-gap, municipality, walkshed and POI
// endpoints.
package sidewalk

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/spatial-priorities-api/internal/composer"
	"github.com/mohammed-shakir/spatial-priorities-api/internal/core/pipeline"
	"github.com/mohammed-shakir/spatial-priorities-api/internal/core/router"
	"github.com/mohammed-shakir/spatial-priorities-api/internal/table"
)

// WalkshedNetworks are always present in a walkshed-area response.
var WalkshedNetworks = []string{"pedestriannetwork_lines", "osm_edges_all_no_motorway"}

type Area struct {
	SquareMiles any `json:"area_in_square_miles"`
}

type Service struct {
	pipe *pipeline.Pipeline
	uri  string
}

func New(pipe *pipeline.Pipeline, uri string) *Service {
	return &Service{pipe: pipe, uri: uri}
}

// NearbyGaps lists the missing-link uids intersecting the walkshed of poi.
func (s *Service) NearbyGaps(ctx context.Context, poi int64) ([]any, error) {
	return s.pipe.Values(ctx, s.uri, nearbyGapsQuery(poi), uidColumns)
}

func (s *Service) GapsWithinMuni(ctx context.Context, muni string) ([]any, error) {
	return s.pipe.Values(ctx, s.uri, gapsWithinMuniQuery(muni), uidColumns)
}

// GapsNearXY lists the missing-link uids within two miles of lng/lat.
func (s *Service) GapsNearXY(ctx context.Context, lng, lat float64) ([]any, error) {
	return s.pipe.Values(ctx, s.uri, gapsNearXYQuery(lng, lat), uidColumns)
}

func (s *Service) AllMunis(ctx context.Context) (*composer.FeatureCollection, error) {
	return s.pipe.FeatureCollection(ctx, s.uri, allMunisQuery(), muniColumns, "geometry")
}

func (s *Service) OneMuni(ctx context.Context, muni string) (*composer.FeatureCollection, error) {
	return s.pipe.FeatureCollection(ctx, s.uri, oneMuniQuery(muni), muniColumns, "geometry")
}

func (s *Service) MuniCentroid(ctx context.Context, muni string) ([]table.Record, error) {
	return s.pipe.Records(ctx, s.uri, muniCentroidQuery(muni), centroidColumns)
}

// WalkshedArea maps each network to the area of poi's walkshed on it.
// Networks in WalkshedNetworks default to 0.
func (s *Service) WalkshedArea(ctx context.Context, poi int64) (*AreaByNetwork, error) {
	t, err := s.pipe.Table(ctx, s.uri, walkshedAreaQuery(poi), areaColumns)
	if err != nil {
		return nil, err
	}
	out := &AreaByNetwork{}
	for _, rec := range t.Records() {
		network, _ := rec.Get("src_network")
		area, _ := rec.Get("area_sq_miles")
		name, _ := network.(string)
		out.Set(name, area)
	}
	for _, n := range WalkshedNetworks {
		if !out.Has(n) {
			out.Set(n, 0)
		}
	}
	return out, nil
}

func (s *Service) POIsNearGap(ctx context.Context, gap int64) (*composer.FeatureCollection, error) {
	return s.pipe.FeatureCollection(ctx, s.uri, poisNearGapQuery(gap), poiColumns, "geometry")
}

func (s *Service) POIsNearSidewalk(ctx context.Context, lng, lat float64) (*composer.FeatureCollection, error) {
	return s.pipe.FeatureCollection(ctx, s.uri, poisNearSidewalkQuery(lng, lat), poiColumns, "geometry")
}

// Routes mounts the endpoints on a sub-router meant for /sidewalk.
func Routes(logger *slog.Logger, s *Service) chi.Router {
	r := chi.NewRouter()
	handle := func(path string, fn router.Func) {
		r.Get(path, router.Handle(logger, "/sidewalk"+path, fn))
	}

	handle("/nearby-gaps/", func(r *http.Request) (any, error) {
		poi, err := router.IntParam(r, "q")
		if err != nil {
			return nil, err
		}
		return s.NearbyGaps(r.Context(), poi)
	})
	handle("/gaps-within-muni/", muniHandler(s.GapsWithinMuni))
	handle("/gaps-near-xy/", func(r *http.Request) (any, error) {
		lng, lat, err := router.LngLat(r)
		if err != nil {
			return nil, err
		}
		return s.GapsNearXY(r.Context(), lng, lat)
	})
	handle("/all-munis/", func(r *http.Request) (any, error) {
		return s.AllMunis(r.Context())
	})
	handle("/one-muni/", muniHandler(s.OneMuni))
	handle("/one-muni-centroid/", muniHandler(s.MuniCentroid))
	handle("/walkshed-area/", func(r *http.Request) (any, error) {
		poi, err := router.IntParam(r, "q")
		if err != nil {
			return nil, err
		}
		return s.WalkshedArea(r.Context(), poi)
	})
	handle("/pois-near-gap/", func(r *http.Request) (any, error) {
		gap, err := router.IntParam(r, "q")
		if err != nil {
			return nil, err
		}
		return s.POIsNearGap(r.Context(), gap)
	})
	handle("/pois-near-existing-sidewalk/", func(r *http.Request) (any, error) {
		lng, lat, err := router.LngLat(r)
		if err != nil {
			return nil, err
		}
		return s.POIsNearSidewalk(r.Context(), lng, lat)
	})
	return r
}

// muniHandler answers null without querying when the name holds a semicolon.
func muniHandler[T any](fn func(context.Context, string) (T, error)) router.Func {
	return func(r *http.Request) (any, error) {
		muni, safe, err := router.StringParam(r, "q")
		if err != nil {
			return nil, err
		}
		if !safe {
			return nil, nil
		}
		return fn(r.Context(), muni)
	}
}

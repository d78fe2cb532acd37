// Package bikeshare serves the Indego station and trip endpoints.
package bikeshare

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/spatial-priorities-api/internal/composer"
	"github.com/mohammed-shakir/spatial-priorities-api/internal/core/pipeline"
	"github.com/mohammed-shakir/spatial-priorities-api/internal/core/router"
)

var timeseriesColumns = pipeline.TimeseriesColumns{
	Category: "trip_dir",
	Period:   "yq",
	Value:    "total_trips",
}

type Service struct {
	pipe *pipeline.Pipeline
	uri  string
}

func New(pipe *pipeline.Pipeline, uri string) *Service {
	return &Service{pipe: pipe, uri: uri}
}

func (s *Service) AllStations(ctx context.Context) (*composer.FeatureCollection, error) {
	return s.pipe.FeatureCollection(ctx, s.uri, allStationsQuery(), stationColumns, "geometry")
}

// TripPoints returns every station with its average quarterly trips to and
// from station.
func (s *Service) TripPoints(ctx context.Context, station int64) (*composer.FeatureCollection, error) {
	return s.pipe.FeatureCollection(ctx, s.uri, tripPointsQuery(station), tripColumns, "geometry")
}

// TripSpider returns one curved connector from station to every other station.
func (s *Service) TripSpider(ctx context.Context, station int64) (*composer.FeatureCollection, error) {
	return s.pipe.FeatureCollection(ctx, s.uri, tripSpiderQuery(station), tripColumns, "geometry")
}

func (s *Service) Timeseries(ctx context.Context, station int64) (composer.TimeseriesBundle, error) {
	return s.pipe.Timeseries(ctx, s.uri, timeseriesQuery(station), timeseriesColumns)
}

// Routes mounts the endpoints on a sub-router meant for /indego.
func Routes(logger *slog.Logger, s *Service) chi.Router {
	r := chi.NewRouter()
	r.Get("/all/", router.Handle(logger, "/indego/all/", func(r *http.Request) (any, error) {
		return s.AllStations(r.Context())
	}))
	r.Get("/trip-points/", router.Handle(logger, "/indego/trip-points/", stationHandler(s.TripPoints)))
	r.Get("/trip-spider/", router.Handle(logger, "/indego/trip-spider/", stationHandler(s.TripSpider)))
	r.Get("/timeseries/", router.Handle(logger, "/indego/timeseries/", func(r *http.Request) (any, error) {
		station, err := router.IntParam(r, "q")
		if err != nil {
			return nil, err
		}
		return s.Timeseries(r.Context(), station)
	}))
	return r
}

func stationHandler(fn func(context.Context, int64) (*composer.FeatureCollection, error)) router.Func {
	return func(r *http.Request) (any, error) {
		station, err := router.IntParam(r, "q")
		if err != nil {
			return nil, err
		}
		return fn(r.Context(), station)
	}
}

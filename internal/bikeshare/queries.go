package bikeshare

import (
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mohammed-shakir/spatial-priorities-api/internal/core/executor"
)

var (
	stationColumns = []string{"station_id", "name", "addressstreet", "geometry"}
	tripColumns    = []string{"station_id", "origins", "destinations", "totalTrips", "geometry"}
)

const allStationsSQL = `
select
    id as station_id,
    name,
    addressstreet,
    geom as geometry
from station_shapes`

// stationTable names the per-station trip table. The name is built from the
// parsed integer and quoted, never from raw input.
func stationTable(station int64) string {
	return pgx.Identifier{fmt.Sprintf("station_%d", station)}.Sanitize()
}

func allStationsQuery() executor.Query {
	return executor.Query{Name: "indego.all", SQL: allStationsSQL}
}

func tripPointsQuery(station int64) executor.Query {
	return executor.Query{
		Name: "indego.trip-points",
		SQL: `
select
    station_id,
    origins::float / 75 as origins,
    destinations::float / 75 as destinations,
    case when station_id = $1 then origins::float / 75
        else (origins::float + destinations::float) / 75 end as "totalTrips",
    geom as geometry
from ` + stationTable(station),
		Args: []any{station},
	}
}

func tripSpiderQuery(station int64) executor.Query {
	return executor.Query{
		Name: "indego.trip-spider",
		SQL: `
with raw as (
    select
        station_id,
        origins::float / 75 as origins,
        destinations::float / 75 as destinations,
        (origins::float + destinations::float) / 75 as "totalTrips",
        st_makeline((select geom from station_shapes where id = $1), geom) as geom
    from ` + stationTable(station) + `
),
arc as (
    select
        *,
        st_centroid(st_offsetcurve(geom, st_length(geom) / 10, 'quad_segs=4 join=bevel')) as mid
    from raw
)
select
    station_id,
    origins,
    destinations,
    "totalTrips",
    st_setsrid(
        st_curvetoline(
            ('CIRCULARSTRING(' || st_x(st_startpoint(geom)) || ' ' || st_y(st_startpoint(geom)) || ', '
            || st_x(mid) || ' ' || st_y(mid) || ', '
            || st_x(st_endpoint(geom)) || ' ' || st_y(st_endpoint(geom)) || ')')::geometry
        ),
        4326
    ) as geometry
from arc
where station_id != $1`,
		Args: []any{station},
	}
}

func timeseriesQuery(station int64) executor.Query {
	return executor.Query{
		Name: "indego.timeseries",
		SQL: `
with raw as (
    select
        case when start_station = $1 and end_station = $1 then 'Round Trip'
             when start_station = $1 and end_station != $1 then 'Outbound'
             when start_station != $1 and end_station = $1 then 'Inbound' end as trip_dir,
        *
    from trips_by_quarter
    where start_station = $1 or end_station = $1
)
select trip_dir, y + q as yq, sum(trips) as total_trips
from raw
group by trip_dir, y, q
order by trip_dir, y, q`,
		Args: []any{station},
	}
}

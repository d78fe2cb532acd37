package sidewalk

import (
	"strconv"

	"github.com/mohammed-shakir/spatial-priorities-api/internal/core/executor"
)

const (
	// walksheds and gap lookups use the OSM network without motorways
	walkshedNetwork = "osm_edges_all_no_motorway"

	// 2 miles in the 26918 (UTM 18N) metre grid
	nearRadiusMetres = 3218

	sqMetresToSqMiles = 3.86102e-7
)

var (
	uidColumns      = []string{"uid"}
	muniColumns     = []string{"mun_name", "geometry"}
	centroidColumns = []string{"x", "y"}
	areaColumns     = []string{"src_network", "area_sq_miles"}
	poiColumns      = []string{"poi_name", "category", "ab_ratio", "geometry"}
)

func nearbyGapsQuery(poi int64) executor.Query {
	return executor.Query{
		Name: "sidewalk.nearby-gaps",
		SQL: `
with bounds as (
    select geom
    from api.isochrones
    where eta_uid = ($1::bigint)::text
    and src_network = $2
)
select ml.uid
from api.missing_links ml, bounds b
where st_intersects(ml.geom, b.geom)`,
		Args: []any{poi, walkshedNetwork},
	}
}

func gapsWithinMuniQuery(muni string) executor.Query {
	return executor.Query{
		Name: "sidewalk.gaps-within-muni",
		SQL: `
with bounds as (
    select geom
    from api.montco_munis
    where mun_name = $1
)
select ml.uid
from api.missing_links ml, bounds b
where st_intersects(ml.geom, b.geom)`,
		Args: []any{muni},
	}
}

func gapsNearXYQuery(lng, lat float64) executor.Query {
	return executor.Query{
		Name: "sidewalk.gaps-near-xy",
		SQL: `
with bounds as (
    select st_transform(st_setsrid(st_point($1::float8, $2::float8), 4326), 26918) as geom
)
select ml.uid
from api.missing_links ml, bounds b
where st_dwithin(ml.geom, b.geom, $3::float8)`,
		Args: []any{lng, lat, float64(nearRadiusMetres)},
	}
}

func allMunisQuery() executor.Query {
	return executor.Query{
		Name: "sidewalk.all-munis",
		SQL: `
select
    mun_name,
    st_transform(geom, 4326) as geometry
from api.montco_munis`,
	}
}

func oneMuniQuery(muni string) executor.Query {
	return executor.Query{
		Name: "sidewalk.one-muni",
		SQL: `
select
    mun_name,
    st_transform(geom, 4326) as geometry
from api.montco_munis
where mun_name = $1`,
		Args: []any{muni},
	}
}

func muniCentroidQuery(muni string) executor.Query {
	return executor.Query{
		Name: "sidewalk.one-muni-centroid",
		SQL: `
with point as (
    select st_centroid(st_transform(geom, 4326)) as geom
    from api.montco_munis
    where mun_name = $1
)
select
    st_x(geom) as x,
    st_y(geom) as y
from point`,
		Args: []any{muni},
	}
}

func walkshedAreaQuery(poi int64) executor.Query {
	return executor.Query{
		Name: "sidewalk.walkshed-area",
		SQL: `
select
    src_network,
    st_area(geom) * $2::float8 as area_sq_miles
from api.isochrones
where eta_uid = ($1::bigint)::text`,
		Args: []any{poi, sqMetresToSqMiles},
	}
}

// poisQuery finds the POIs whose walkshed contains the geometry selected by
// origin. origin must yield one column named geom and may use $1.
func poisQuery(name, origin string, args ...any) executor.Query {
	n := len(args) + 1
	return executor.Query{
		Name: name,
		SQL: `
with sw as (` + origin + `
),
poi_uids as (
    select distinct i.eta_uid as poi_uid
    from api.isochrones i, sw
    where st_within(sw.geom, i.geom)
    and src_network = $` + strconv.Itoa(n) + `
)
select
    array_agg(p.poi_name) as poi_name,
    p.category,
    p.ab_ratio,
    st_transform(p.geom, 4326) as geometry
from api.pois p
inner join poi_uids u on p.poi_uid::text = u.poi_uid
group by p.category, p.geom, p.ab_ratio`,
		Args: append(args, walkshedNetwork),
	}
}

func poisNearGapQuery(gap int64) executor.Query {
	return poisQuery("sidewalk.pois-near-gap", `
    select geom
    from api.missing_links
    where uid = $1`, gap)
}

func poisNearSidewalkQuery(lng, lat float64) executor.Query {
	return poisQuery("sidewalk.pois-near-existing-sidewalk", `
    select st_transform(st_setsrid(st_point($1::float8, $2::float8), 4326), 26918) as geom`, lng, lat)
}

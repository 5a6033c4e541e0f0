package importer

import (
	"math"

	"github.com/twpayne/go-geom"

	"github.com/sells-group/listing-pipeline/pkg/overpass"
)

// kmPerDegree is the approximate ground distance of one degree of latitude.
const kmPerDegree = 111.0

// CityBounds computes the search envelope around a city center. The longitude
// offset widens with latitude since meridians converge toward the poles.
// Coordinates are stored x=lon, y=lat.
func CityBounds(lat, lon, radiusKM float64) *geom.Bounds {
	latOffset := radiusKM / kmPerDegree
	lonOffset := radiusKM / (kmPerDegree * math.Cos(lat*math.Pi/180))

	return geom.NewBounds(geom.XY).Set(
		lon-lonOffset, lat-latOffset,
		lon+lonOffset, lat+latOffset,
	)
}

// BoundingBox converts the envelope to the catalog's query box.
func BoundingBox(lat, lon, radiusKM float64) overpass.BoundingBox {
	return queryBox(CityBounds(lat, lon, radiusKM))
}

func queryBox(bounds *geom.Bounds) overpass.BoundingBox {
	return overpass.BoundingBox{
		South: bounds.Min(1),
		West:  bounds.Min(0),
		North: bounds.Max(1),
		East:  bounds.Max(0),
	}
}

// inBounds reports whether a catalog coordinate falls inside the envelope.
// Way centers can land outside the requested box when the way itself spans
// the boundary.
func inBounds(bounds *geom.Bounds, lat, lon float64) bool {
	return bounds.OverlapsPoint(geom.XY, geom.Coord{lon, lat})
}

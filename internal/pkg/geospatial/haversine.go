package geospatial

import (
	"math"

	"github.com/oceanclean/oceanclean/internal/core/domain"
)

const earthRadiusKm = 6371.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// Distance is Haversine over two coordinates.
func Distance(a, b domain.LatLng) float64 {
	return Haversine(a.Lat, a.Lng, b.Lat, b.Lng)
}

// Centroid returns the vertex average of a ring. It is good enough for the
// small harbour-scale polygons drawn on the dashboard.
func Centroid(ring []domain.LatLng) domain.LatLng {
	if len(ring) == 0 {
		return domain.LatLng{}
	}
	var c domain.LatLng
	for _, p := range ring {
		c.Lat += p.Lat
		c.Lng += p.Lng
	}
	n := float64(len(ring))
	return domain.LatLng{Lat: c.Lat / n, Lng: c.Lng / n}
}

// BoundingBox returns a bounding box around a point with the given radius in meters.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta := radiusMeters / 111320.0
	lonDelta := radiusMeters / (111320.0 * math.Cos(toRad(lat)))

	return lat - latDelta, lon - lonDelta, lat + latDelta, lon + lonDelta
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

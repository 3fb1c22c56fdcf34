package geospatial

import "github.com/oceanclean/oceanclean/internal/core/domain"

// Contains reports whether p lies inside ring using the even-odd rule. Points
// exactly on an edge may fall either way.
func Contains(ring []domain.LatLng, p domain.LatLng) bool {
	if len(ring) < domain.MinRingVertices {
		return false
	}
	inside := false
	j := len(ring) - 1
	for i := range ring {
		a, b := ring[i], ring[j]
		if (a.Lat > p.Lat) != (b.Lat > p.Lat) {
			x := (b.Lng-a.Lng)*(p.Lat-a.Lat)/(b.Lat-a.Lat) + a.Lng
			if p.Lng < x {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

package domain

import (
	"encoding/json"
	"fmt"
)

// LatLng is a WGS 84 coordinate. It encodes as a [lat, lng] pair, the shape
// used by the dashboard documents.
type LatLng struct {
	Lat float64
	Lng float64
}

// MarshalJSON encodes the point as [lat, lng].
func (p LatLng) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.Lat, p.Lng})
}

// UnmarshalJSON accepts [lat, lng] pairs and {"lat":..,"lng":..} objects.
func (p *LatLng) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("coordinate pair must have 2 values, got %d", len(pair))
		}
		p.Lat, p.Lng = pair[0], pair[1]
		return nil
	}

	var obj struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("coordinate: %w", err)
	}
	if obj.Lat == nil || obj.Lng == nil {
		return fmt.Errorf("coordinate object needs lat and lng")
	}
	p.Lat, p.Lng = *obj.Lat, *obj.Lng
	return nil
}

// Valid reports whether the point lies within the WGS 84 ranges.
func (p LatLng) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// MinRingVertices is the smallest vertex count of a polygon ring.
const MinRingVertices = 3

// ValidateRing checks that ring can be stored as an area outline.
func ValidateRing(ring []LatLng) error {
	if len(ring) < MinRingVertices {
		return fmt.Errorf("%w: polygon needs at least %d vertices, got %d", ErrValidation, MinRingVertices, len(ring))
	}
	for i, p := range ring {
		if !p.Valid() {
			return fmt.Errorf("%w: vertex %d (%g, %g) out of range", ErrValidation, i, p.Lat, p.Lng)
		}
	}
	return nil
}

// RingBounds returns the bounding box of a ring.
func RingBounds(ring []LatLng) Bounds {
	if len(ring) == 0 {
		return Bounds{}
	}
	b := Bounds{MinLat: ring[0].Lat, MaxLat: ring[0].Lat, MinLng: ring[0].Lng, MaxLng: ring[0].Lng}
	for _, p := range ring[1:] {
		b.MinLat = min(b.MinLat, p.Lat)
		b.MaxLat = max(b.MaxLat, p.Lat)
		b.MinLng = min(b.MinLng, p.Lng)
		b.MaxLng = max(b.MaxLng, p.Lng)
	}
	return b
}

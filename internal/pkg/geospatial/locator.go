package geospatial

import (
	"math"
	"slices"

	"github.com/dhconnelly/rtreego"

	"github.com/oceanclean/oceanclean/internal/core/domain"
)

const (
	dimensions  = 2
	minChildren = 4
	maxChildren = 16
	// rtreego rejects zero-length rectangles, so degenerate boxes are padded.
	minExtent = 1e-9
)

// areaItem wraps an Area for R-Tree indexing.
type areaItem struct {
	area domain.Area
	rect *rtreego.Rect
}

func (a *areaItem) Bounds() *rtreego.Rect {
	return a.rect
}

// Locator answers "which areas contain this point" for one map.
type Locator struct {
	tree  *rtreego.Rtree
	areas []domain.Area
}

// NewLocator indexes the bounding boxes of every area of m. Areas whose ring
// is invalid are skipped.
func NewLocator(m domain.Map) *Locator {
	l := &Locator{tree: rtreego.NewTree(dimensions, minChildren, maxChildren)}
	for _, a := range m.Areas {
		if domain.ValidateRing(a.Coordinates) != nil {
			continue
		}
		b := domain.RingBounds(a.Coordinates)
		rect, err := rtreego.NewRect(
			rtreego.Point{b.MinLat, b.MinLng},
			[]float64{math.Max(b.MaxLat-b.MinLat, minExtent), math.Max(b.MaxLng-b.MinLng, minExtent)},
		)
		if err != nil {
			continue
		}
		l.tree.Insert(&areaItem{area: a, rect: rect})
		l.areas = append(l.areas, a)
	}
	return l
}

// Size reports how many areas are indexed.
func (l *Locator) Size() int { return l.tree.Size() }

// Containing returns the areas whose polygon contains p, in map order.
func (l *Locator) Containing(p domain.LatLng) []domain.Area {
	hits := l.tree.SearchIntersect(rtreego.Point{p.Lat, p.Lng}.ToRect(minExtent))
	var out []domain.Area
	for _, h := range hits {
		item, ok := h.(*areaItem)
		if !ok {
			continue
		}
		if Contains(item.area.Coordinates, p) {
			out = append(out, item.area)
		}
	}
	slices.SortFunc(out, func(a, b domain.Area) int {
		return slices.IndexFunc(l.areas, func(x domain.Area) bool { return x.ID == a.ID }) -
			slices.IndexFunc(l.areas, func(x domain.Area) bool { return x.ID == b.ID })
	})
	return out
}

// Nearest returns the area whose centroid is closest to p and the distance in
// meters. ok is false when nothing is indexed.
func (l *Locator) Nearest(p domain.LatLng) (area domain.Area, meters float64, ok bool) {
	for _, a := range l.areas {
		d := Distance(p, Centroid(a.Coordinates))
		if !ok || d < meters {
			area, meters, ok = a, d, true
		}
	}
	return area, meters, ok
}

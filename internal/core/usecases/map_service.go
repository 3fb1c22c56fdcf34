package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oceanclean/oceanclean/internal/core/domain"
	"github.com/oceanclean/oceanclean/internal/core/ports"
	"github.com/oceanclean/oceanclean/internal/pkg/geospatial"
)

// LocateResult lists the areas of a map containing a point. When none does,
// Nearest names the area with the closest centroid.
type LocateResult struct {
	MapID          string        `json:"mapId"`
	Point          domain.LatLng `json:"point"`
	Inside         []domain.Area `json:"inside"`
	Nearest        *domain.Area  `json:"nearest,omitempty"`
	DistanceMeters float64       `json:"distanceMeters,omitempty"`
}

// MapService is the stateless map API used by REST and GraphQL clients that do
// not hold an editor session.
type MapService struct {
	maps  ports.MapRepository
	now   func() time.Time
	newID func() string
}

// NewMapService creates a new MapService.
func NewMapService(maps ports.MapRepository) *MapService {
	return &MapService{maps: maps, now: time.Now, newID: uuid.NewString}
}

// List returns every map ordered by creation time.
func (s *MapService) List(ctx context.Context) ([]domain.Map, error) {
	maps, err := s.maps.ListMaps(ctx)
	if err != nil {
		return nil, err
	}
	sortMaps(maps)
	return maps, nil
}

// Get returns a single map or domain.ErrNotFound.
func (s *MapService) Get(ctx context.Context, id string) (*domain.Map, error) {
	m, err := s.maps.GetMap(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("%w: map %s", domain.ErrNotFound, id)
	}
	return m, nil
}

// Create stores a new map. Areas without ids or names get generated ones.
func (s *MapService) Create(ctx context.Context, name string, areas []domain.Area) (*domain.Map, error) {
	m := &domain.Map{
		ID:        s.newID(),
		Name:      strings.TrimSpace(name),
		CreatedAt: domain.EpochMillis(s.now()),
	}
	if err := s.fill(m, areas); err != nil {
		return nil, err
	}
	if err := s.maps.SaveMap(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Replace overwrites the name and areas of an existing map. The id and
// createdAt stamp are kept.
func (s *MapService) Replace(ctx context.Context, id, name string, areas []domain.Area) (*domain.Map, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	m := &domain.Map{ID: existing.ID, Name: strings.TrimSpace(name), CreatedAt: existing.CreatedAt}
	if err := s.fill(m, areas); err != nil {
		return nil, err
	}
	if err := s.maps.SaveMap(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Delete removes a map. Unknown ids yield domain.ErrNotFound.
func (s *MapService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.maps.DeleteMap(ctx, id)
}

// Locate finds the areas of map id that contain p.
func (s *MapService) Locate(ctx context.Context, id string, p domain.LatLng) (*LocateResult, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: point (%g, %g) out of range", domain.ErrValidation, p.Lat, p.Lng)
	}
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	loc := geospatial.NewLocator(*m)
	res := &LocateResult{MapID: m.ID, Point: p, Inside: loc.Containing(p)}
	if res.Inside == nil {
		res.Inside = []domain.Area{}
	}
	if len(res.Inside) == 0 {
		if a, d, ok := loc.Nearest(p); ok {
			res.Nearest = &a
			res.DistanceMeters = d
		}
	}
	return res, nil
}

func (s *MapService) fill(m *domain.Map, areas []domain.Area) error {
	if m.Name == "" {
		return fmt.Errorf("%w: map name must not be empty", domain.ErrValidation)
	}
	m.Areas = make([]domain.Area, 0, len(areas))
	seen := make(map[string]struct{}, len(areas))
	for i, a := range areas {
		if err := domain.ValidateRing(a.Coordinates); err != nil {
			return fmt.Errorf("area %d: %w", i, err)
		}
		if a.ID == "" {
			a.ID = s.newID()
		}
		if _, dup := seen[a.ID]; dup {
			return fmt.Errorf("%w: duplicate area id %s", domain.ErrValidation, a.ID)
		}
		seen[a.ID] = struct{}{}
		if strings.TrimSpace(a.Name) == "" {
			a.Name = domain.DefaultAreaName(i)
		}
		if a.CreatedAt == 0 {
			a.CreatedAt = domain.EpochMillis(s.now())
		}
		m.Areas = append(m.Areas, a)
	}
	return nil
}

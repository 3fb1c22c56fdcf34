package usecases_test

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/oceanclean/oceanclean/internal/core/domain"
	"github.com/oceanclean/oceanclean/internal/core/ports"
)

// --- Fake MapRepository ---

// fakeMapRepo keeps maps in memory and counts writes. It never pushes on its
// own; tests call push to simulate a remote change.
type fakeMapRepo struct {
	mu       sync.Mutex
	maps     map[string]domain.Map
	saves    int
	deletes  int
	err      error
	saveFn   func(ctx context.Context, m *domain.Map) error
	watchers []func([]domain.Map)
}

func newFakeMapRepo(maps ...domain.Map) *fakeMapRepo {
	r := &fakeMapRepo{maps: make(map[string]domain.Map)}
	for _, m := range maps {
		r.maps[m.ID] = m.Clone()
	}
	return r
}

func (r *fakeMapRepo) ListMaps(ctx context.Context) ([]domain.Map, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return r.list(), nil
}

func (r *fakeMapRepo) GetMap(ctx context.Context, id string) (*domain.Map, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	m, ok := r.maps[id]
	if !ok {
		return nil, nil
	}
	c := m.Clone()
	return &c, nil
}

func (r *fakeMapRepo) SaveMap(ctx context.Context, m *domain.Map) error {
	if r.saveFn != nil {
		if err := r.saveFn(ctx, m); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.saves++
	r.maps[m.ID] = m.Clone()
	return nil
}

func (r *fakeMapRepo) DeleteMap(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.deletes++
	delete(r.maps, id)
	return nil
}

func (r *fakeMapRepo) WatchMaps(ctx context.Context, fn func([]domain.Map)) (ports.Subscription, error) {
	r.mu.Lock()
	r.watchers = append(r.watchers, fn)
	maps := r.list()
	r.mu.Unlock()
	fn(maps)
	return ports.SubscriptionFunc(func() {}), nil
}

func (r *fakeMapRepo) push() {
	r.mu.Lock()
	maps := r.list()
	watchers := slices.Clone(r.watchers)
	r.mu.Unlock()
	for _, fn := range watchers {
		fn(maps)
	}
}

func (r *fakeMapRepo) stored(id string) (domain.Map, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.maps[id]
	return m, ok
}

func (r *fakeMapRepo) writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves + r.deletes
}

func (r *fakeMapRepo) fail(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

func (r *fakeMapRepo) list() []domain.Map {
	out := make([]domain.Map, 0, len(r.maps))
	for _, m := range r.maps {
		out = append(out, m.Clone())
	}
	return out
}

// --- Fixtures ---

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func mapA() domain.Map {
	return domain.Map{ID: "1", Name: "Harbor", Areas: []domain.Area{}, CreatedAt: 1000}
}

func mapB() domain.Map {
	return domain.Map{ID: "2", Name: "Bay", Areas: []domain.Area{}, CreatedAt: 2000}
}

func ring(pairs ...[2]float64) []domain.LatLng {
	out := make([]domain.LatLng, len(pairs))
	for i, p := range pairs {
		out[i] = domain.LatLng{Lat: p[0], Lng: p[1]}
	}
	return out
}

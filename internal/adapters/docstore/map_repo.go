package docstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/oceanclean/oceanclean/internal/core/domain"
	"github.com/oceanclean/oceanclean/internal/core/ports"
	"github.com/oceanclean/oceanclean/internal/pkg/doctree"
)

// MapsCollection is the store key holding every Map document.
const MapsCollection = "maps"

// MapRepo implements ports.MapRepository.
type MapRepo struct {
	store ports.DocumentStore
}

func NewMapRepo(store ports.DocumentStore) *MapRepo {
	return &MapRepo{store: store}
}

func (r *MapRepo) ListMaps(ctx context.Context) ([]domain.Map, error) {
	raw, ok, err := r.store.Get(ctx, MapsCollection)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []domain.Map{}, nil
	}
	return decodeMaps(raw)
}

func (r *MapRepo) GetMap(ctx context.Context, id string) (*domain.Map, error) {
	if !doctree.ValidSegment(id) {
		return nil, nil
	}
	raw, ok, err := r.store.Get(ctx, doctree.Join(MapsCollection, id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var m domain.Map
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode map %s: %w", id, err)
	}
	return &m, nil
}

func (r *MapRepo) SaveMap(ctx context.Context, m *domain.Map) error {
	if !doctree.ValidSegment(m.ID) {
		return fmt.Errorf("%w: invalid map id %q", domain.ErrValidation, m.ID)
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, doctree.Join(MapsCollection, m.ID), data)
}

func (r *MapRepo) DeleteMap(ctx context.Context, id string) error {
	if !doctree.ValidSegment(id) {
		return fmt.Errorf("%w: invalid map id %q", domain.ErrValidation, id)
	}
	return r.store.Delete(ctx, doctree.Join(MapsCollection, id))
}

func (r *MapRepo) WatchMaps(ctx context.Context, fn func(maps []domain.Map)) (ports.Subscription, error) {
	return r.store.Subscribe(ctx, MapsCollection, func(raw json.RawMessage, exists bool) {
		if !exists {
			fn([]domain.Map{})
			return
		}
		maps, err := decodeMaps(raw)
		if err != nil {
			return
		}
		fn(maps)
	})
}

func decodeMaps(raw json.RawMessage) ([]domain.Map, error) {
	var byID map[string]domain.Map
	if err := json.Unmarshal(raw, &byID); err != nil {
		return nil, fmt.Errorf("decode maps: %w", err)
	}
	maps := make([]domain.Map, 0, len(byID))
	for id, m := range byID {
		if m.ID == "" {
			m.ID = id
		}
		maps = append(maps, m)
	}
	return maps, nil
}

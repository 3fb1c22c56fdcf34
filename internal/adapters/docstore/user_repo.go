package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/oceanclean/oceanclean/internal/core/domain"
	"github.com/oceanclean/oceanclean/internal/core/ports"
	"github.com/oceanclean/oceanclean/internal/pkg/doctree"
)

const usersCollection = "users"

// UserRepo implements ports.UserRepository.
type UserRepo struct {
	store ports.DocumentStore
}

func NewUserRepo(store ports.DocumentStore) *UserRepo {
	return &UserRepo{store: store}
}

func (r *UserRepo) List(ctx context.Context) ([]domain.User, error) {
	raw, ok, err := r.store.Get(ctx, usersCollection)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var byID map[string]domain.User
	if err := json.Unmarshal(raw, &byID); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	users := make([]domain.User, 0, len(byID))
	for id, u := range byID {
		u.ID = id
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

// FindByUsername scans the users collection; usernames are not keys.
func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	users, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *UserRepo) Save(ctx context.Context, u *domain.User) error {
	if !doctree.ValidSegment(u.ID) {
		return fmt.Errorf("%w: invalid user id %q", domain.ErrValidation, u.ID)
	}
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, doctree.Join(usersCollection, u.ID), data)
}

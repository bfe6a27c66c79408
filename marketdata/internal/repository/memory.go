package repository

import (
	"context"
	"sync"

	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/models"
)

type InMemoryRepository struct {
	users map[string]*models.User
	mu    sync.RWMutex
}

func NewInMemoryRepository(users ...*models.User) *InMemoryRepository {
	r := &InMemoryRepository{
		users: make(map[string]*models.User, len(users)),
	}
	for _, u := range users {
		cp := *u
		r.users[u.Username] = &cp
	}
	return r
}

func (r *InMemoryRepository) CreateUser(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.Username]; exists {
		return ErrUserExists
	}

	cp := *user
	r.users[user.Username] = &cp
	return nil
}

// GetUserByUsername returns a copy so callers cannot mutate the store.
func (r *InMemoryRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.users[username]
	if !exists {
		return nil, ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

package users

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/projecto/projecto/internal/apperr"
	"github.com/projecto/projecto/internal/models"
)

// MemoryRepo is an in-memory UserRepository used by unit tests.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]*models.User
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*models.User)}
}

func (m *MemoryRepo) Insert(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.Key == "" {
		u.Key = primitive.NewObjectID().Hex()
	}
	cp := *u
	m.store[u.Key] = &cp
	return nil
}

func (m *MemoryRepo) Get(ctx context.Context, key string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.store[key]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, apperr.ErrNotFound
}

func (m *MemoryRepo) KeyByEmail(ctx context.Context, email string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.store {
		for _, e := range u.Emails {
			if e == email {
				return u.Key, nil
			}
		}
	}
	return "", apperr.ErrNotFound
}

func (m *MemoryRepo) Update(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[u.Key]; !ok {
		return apperr.ErrNotFound
	}
	cp := *u
	m.store[u.Key] = &cp
	return nil
}

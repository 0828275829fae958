package projects

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/projecto/projecto/internal/apperr"
	"github.com/projecto/projecto/internal/models"
)

// MemoryRepo is an in-memory Repository used by unit tests.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]*models.Project
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*models.Project)}
}

func clone(p *models.Project) *models.Project {
	cp := *p
	cp.Owners = append([]string(nil), p.Owners...)
	cp.Collaborators = append([]string(nil), p.Collaborators...)
	cp.UnregisteredOwners = append([]string(nil), p.UnregisteredOwners...)
	cp.UnregisteredCollaborators = append([]string(nil), p.UnregisteredCollaborators...)
	return &cp
}

func (m *MemoryRepo) Insert(ctx context.Context, p *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.Key == "" {
		p.Key = primitive.NewObjectID().Hex()
	}
	m.store[p.Key] = clone(p)
	return nil
}

func (m *MemoryRepo) Get(ctx context.Context, key string) (*models.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.store[key]; ok {
		return clone(p), nil
	}
	return nil, apperr.ErrNotFound
}

func (m *MemoryRepo) Update(ctx context.Context, p *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[p.Key]; !ok {
		return apperr.ErrNotFound
	}
	m.store[p.Key] = clone(p)
	return nil
}

func (m *MemoryRepo) ByOwner(ctx context.Context, userKey string) ([]*models.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*models.Project{}
	for _, p := range m.store {
		for _, o := range p.Owners {
			if o == userKey {
				out = append(out, clone(p))
				break
			}
		}
	}
	return out, nil
}

func (m *MemoryRepo) ByCollaborator(ctx context.Context, userKey string) ([]*models.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*models.Project{}
	for _, p := range m.store {
		for _, c := range p.Collaborators {
			if c == userKey {
				out = append(out, clone(p))
				break
			}
		}
	}
	return out, nil
}

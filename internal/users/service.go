package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/projecto/projecto/internal/apperr"
	"github.com/projecto/projecto/internal/models"
)

// Service encapsulates user-related business logic.
type Service struct {
	repo UserRepository
}

func NewService(r UserRepository) *Service {
	return &Service{repo: r}
}

// RegisterOrLogin resolves an email to its user, creating the account on
// first sight (registration-on-demand).
func (s *Service) RegisterOrLogin(ctx context.Context, email string) (*models.User, error) {
	if email == "" {
		return nil, fmt.Errorf("empty email: %w", apperr.ErrBadRequest)
	}
	key, err := s.repo.KeyByEmail(ctx, email)
	if err == nil {
		return s.repo.Get(ctx, key)
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	u := &models.User{
		Name:   models.DefaultUserName,
		Emails: []string{email},
		Avatar: models.AvatarHash(email),
	}
	if err := s.repo.Insert(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Get loads a user by key.
func (s *Service) Get(ctx context.Context, key string) (*models.User, error) {
	return s.repo.Get(ctx, key)
}

// KeyByEmail resolves a registered email to a user key. Unregistered emails
// report apperr.ErrNotFound.
func (s *Service) KeyByEmail(ctx context.Context, email string) (string, error) {
	return s.repo.KeyByEmail(ctx, email)
}

// ChangeName updates the principal's display name.
func (s *Service) ChangeName(ctx context.Context, key, name string) error {
	if name == "" {
		return fmt.Errorf("empty name: %w", apperr.ErrBadRequest)
	}
	u, err := s.repo.Get(ctx, key)
	if err != nil {
		return err
	}
	u.Name = name
	return s.repo.Update(ctx, u)
}

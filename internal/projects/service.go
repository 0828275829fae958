package projects

import (
	"context"
	"errors"
	"fmt"

	"github.com/projecto/projecto/internal/access"
	"github.com/projecto/projecto/internal/apperr"
	"github.com/projecto/projecto/internal/models"
)

// EmailResolver resolves a registered email to a user key. Unregistered
// emails report apperr.ErrNotFound.
type EmailResolver interface {
	KeyByEmail(ctx context.Context, email string) (string, error)
}

// UserLoader loads users by key for the members listing.
type UserLoader interface {
	Get(ctx context.Context, key string) (*models.User, error)
}

// Service implements project lifecycle and the membership mutator.
type Service struct {
	repo     Repository
	resolver EmailResolver
	users    UserLoader
}

func NewService(repo Repository, resolver EmailResolver, users UserLoader) *Service {
	return &Service{repo: repo, resolver: resolver, users: users}
}

// Create creates a project with the principal as its first owner.
func (s *Service) Create(ctx context.Context, principal, name, desc string) (*models.Project, error) {
	if name == "" {
		return nil, fmt.Errorf("project name required: %w", apperr.ErrBadRequest)
	}
	p := &models.Project{
		Name:   name,
		Desc:   desc,
		Owners: []string{principal},
	}
	if err := s.repo.Insert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListMine returns the projects the principal owns and the ones they
// participate in as a collaborator.
func (s *Service) ListMine(ctx context.Context, principal string) (owned, participating []*models.Project, err error) {
	owned, err = s.repo.ByOwner(ctx, principal)
	if err != nil {
		return nil, nil, err
	}
	participating, err = s.repo.ByCollaborator(ctx, principal)
	if err != nil {
		return nil, nil, err
	}
	return owned, participating, nil
}

// Get loads a project for the principal. Non-members get ErrForbidden,
// missing projects ErrNotFound.
func (s *Service) Get(ctx context.Context, principal, key string) (*models.Project, error) {
	p, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !access.Access(principal, p) {
		return nil, fmt.Errorf("project %s: %w", key, apperr.ErrForbidden)
	}
	return p, nil
}

// GetForAccess loads a project and requires owner-or-collaborator access.
// Shared by the feed/todo/file services to gate project-scoped operations.
func (s *Service) GetForAccess(ctx context.Context, principal, key string) (*models.Project, error) {
	return s.Get(ctx, principal, key)
}

// getForManager loads a project and requires owner (manager) access.
func (s *Service) getForManager(ctx context.Context, principal, key string) (*models.Project, error) {
	p, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !access.Manager(principal, p) {
		return nil, fmt.Errorf("project %s: %w", key, apperr.ErrForbidden)
	}
	return p, nil
}

// Member is a members-listing entry for a registered member.
type Member struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Members lists registered owners/collaborators (name + first email) and the
// raw unregistered lists. Managers only.
func (s *Service) Members(ctx context.Context, principal, key string) (owners, collaborators []Member, unregOwners, unregCollaborators []string, err error) {
	p, err := s.getForManager(ctx, principal, key)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	owners = []Member{}
	for _, k := range p.Owners {
		u, err := s.users.Get(ctx, k)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		owners = append(owners, Member{Name: u.Name, Email: u.PrimaryEmail()})
	}
	collaborators = []Member{}
	for _, k := range p.Collaborators {
		u, err := s.users.Get(ctx, k)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		collaborators = append(collaborators, Member{Name: u.Name, Email: u.PrimaryEmail()})
	}
	return owners, collaborators, p.UnregisteredOwners, p.UnregisteredCollaborators, nil
}

// AddOwners resolves each email and appends registered users to owners and
// unknown emails to unregistered_owners. Duplicates are tolerated.
func (s *Service) AddOwners(ctx context.Context, principal, key string, emails []string) error {
	return s.add(ctx, principal, key, emails, true)
}

// AddCollaborators is AddOwners for the collaborator lists.
func (s *Service) AddCollaborators(ctx context.Context, principal, key string, emails []string) error {
	return s.add(ctx, principal, key, emails, false)
}

func (s *Service) add(ctx context.Context, principal, key string, emails []string, owners bool) error {
	if len(emails) == 0 {
		return fmt.Errorf("emails required: %w", apperr.ErrBadRequest)
	}
	// re-read right before mutating to narrow the lost-update window
	p, err := s.getForManager(ctx, principal, key)
	if err != nil {
		return err
	}
	for _, email := range emails {
		userKey, err := s.resolver.KeyByEmail(ctx, email)
		switch {
		case err == nil:
			if owners {
				p.Owners = append(p.Owners, userKey)
			} else {
				p.Collaborators = append(p.Collaborators, userKey)
			}
		case errors.Is(err, apperr.ErrNotFound):
			if owners {
				p.UnregisteredOwners = append(p.UnregisteredOwners, email)
			} else {
				p.UnregisteredCollaborators = append(p.UnregisteredCollaborators, email)
			}
		default:
			return err
		}
	}
	return s.repo.Update(ctx, p)
}

// RemoveOwners removes a batch of owner emails. The batch is atomic within
// the request: every removal is validated against working copies before the
// project is persisted, so a single unknown email leaves the project
// untouched. Removing the sole remaining owner is rejected with ErrForbidden.
func (s *Service) RemoveOwners(ctx context.Context, principal, key string, emails []string) error {
	if len(emails) == 0 {
		return fmt.Errorf("emails required: %w", apperr.ErrBadRequest)
	}
	p, err := s.getForManager(ctx, principal, key)
	if err != nil {
		return err
	}
	owners := append([]string(nil), p.Owners...)
	unregistered := append([]string(nil), p.UnregisteredOwners...)
	for _, email := range emails {
		userKey, err := s.resolver.KeyByEmail(ctx, email)
		switch {
		case err == nil:
			if len(owners) == 1 && owners[0] == userKey {
				return fmt.Errorf("cannot remove the last owner: %w", apperr.ErrForbidden)
			}
			var ok bool
			if owners, ok = removeFirst(owners, userKey); !ok {
				return fmt.Errorf("%s is not an owner: %w", email, apperr.ErrNotFound)
			}
		case errors.Is(err, apperr.ErrNotFound):
			var ok bool
			if unregistered, ok = removeFirst(unregistered, email); !ok {
				return fmt.Errorf("%s is not an unregistered owner: %w", email, apperr.ErrNotFound)
			}
		default:
			return err
		}
	}
	p.Owners = owners
	p.UnregisteredOwners = unregistered
	return s.repo.Update(ctx, p)
}

// RemoveCollaborators removes a batch of collaborator emails with the same
// validate-then-apply atomicity as RemoveOwners.
func (s *Service) RemoveCollaborators(ctx context.Context, principal, key string, emails []string) error {
	if len(emails) == 0 {
		return fmt.Errorf("emails required: %w", apperr.ErrBadRequest)
	}
	p, err := s.getForManager(ctx, principal, key)
	if err != nil {
		return err
	}
	collaborators := append([]string(nil), p.Collaborators...)
	unregistered := append([]string(nil), p.UnregisteredCollaborators...)
	for _, email := range emails {
		userKey, err := s.resolver.KeyByEmail(ctx, email)
		switch {
		case err == nil:
			var ok bool
			if collaborators, ok = removeFirst(collaborators, userKey); !ok {
				return fmt.Errorf("%s is not a collaborator: %w", email, apperr.ErrNotFound)
			}
		case errors.Is(err, apperr.ErrNotFound):
			var ok bool
			if unregistered, ok = removeFirst(unregistered, email); !ok {
				return fmt.Errorf("%s is not an unregistered collaborator: %w", email, apperr.ErrNotFound)
			}
		default:
			return err
		}
	}
	p.Collaborators = collaborators
	p.UnregisteredCollaborators = unregistered
	return s.repo.Update(ctx, p)
}

// removeFirst removes the first occurrence of v and reports whether it was
// present. Only one occurrence goes per call, mirroring list removal
// semantics when duplicates were tolerated on add.
func removeFirst(list []string, v string) ([]string, bool) {
	for i, item := range list {
		if item == v {
			return append(list[:i:i], list[i+1:]...), true
		}
	}
	return list, false
}

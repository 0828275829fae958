package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/projecto/projecto/internal/access"
	"github.com/projecto/projecto/internal/apperr"
	"github.com/projecto/projecto/internal/comments"
	"github.com/projecto/projecto/internal/models"
	"github.com/projecto/projecto/pkg/logger"
	"github.com/projecto/projecto/pkg/metrics"
)

const (
	// LiveWindow is the hard live-retention cutoff: items ranked past it
	// (date descending) are archived by the sweep.
	LiveWindow = 200
	// MaxAmount caps the amount parameter on feed listings.
	MaxAmount = 200
	// DefaultAmount is used when no amount is requested.
	DefaultAmount = 20

	// DefaultType is assigned to feed items posted without a type.
	DefaultType = "post"
)

// ProjectLoader loads a project and enforces owner-or-collaborator access.
type ProjectLoader interface {
	GetForAccess(ctx context.Context, principal, key string) (*models.Project, error)
}

// UserLoader resolves lazy author references for serialization.
type UserLoader interface {
	Get(ctx context.Context, key string) (*models.User, error)
}

// Service implements the feed query engine and the feed side of the cascade
// lifecycle.
type Service struct {
	repo     Repository
	comments comments.Repository
	projects ProjectLoader
	users    UserLoader
}

func NewService(repo Repository, cr comments.Repository, pl ProjectLoader, ul UserLoader) *Service {
	return &Service{repo: repo, comments: cr, projects: pl, users: ul}
}

// CommentView is a comment with its author expanded.
type CommentView struct {
	Comment *models.Comment
	Author  *models.User
}

// ItemView is a feed item prepared for client serialization: author
// expanded, children either as keys or expanded comments.
type ItemView struct {
	Item        *models.FeedItem
	Author      *models.User
	CommentKeys []string
	Comments    []CommentView
}

// Post appends a feed item to the project's activity feed.
func (s *Service) Post(ctx context.Context, principal, projectKey, content, itemType string) (*ItemView, error) {
	if content == "" {
		return nil, fmt.Errorf("content required: %w", apperr.ErrBadRequest)
	}
	if _, err := s.projects.GetForAccess(ctx, principal, projectKey); err != nil {
		return nil, err
	}
	if itemType == "" {
		itemType = DefaultType
	}
	item := &models.FeedItem{
		Content: models.Content{
			Content: content,
			Author:  principal,
			Date:    time.Now().UTC(),
			Parent:  projectKey,
		},
		Type: itemType,
	}
	if err := s.repo.Insert(ctx, item); err != nil {
		return nil, err
	}
	author, err := s.users.Get(ctx, principal)
	if err != nil {
		return nil, err
	}
	return &ItemView{Item: item, Author: author, CommentKeys: []string{}}, nil
}

// ArchiveSweep archives live items ranked past the LiveWindow (date
// descending). It is invoked by List to preserve the original behavior, but
// is an explicit operation so the read path's side effect can also be
// scheduled on its own.
func (s *Service) ArchiveSweep(ctx context.Context, projectKey string) (int, error) {
	live, err := s.repo.LiveByParent(ctx, projectKey)
	if err != nil {
		return 0, err
	}
	archived := 0
	for i := LiveWindow; i < len(live); i++ {
		live[i].Archived = true
		if err := s.repo.Update(ctx, live[i]); err != nil {
			return archived, err
		}
		archived++
	}
	if archived > 0 {
		metrics.FeedItemsArchived.Add(float64(archived))
		logger.Debugf("archived %d feed items for project %s", archived, projectKey)
	}
	return archived, nil
}

// List returns up to amount live feed items sorted by date descending,
// optionally filtered by type. Children are rendered as comment keys.
func (s *Service) List(ctx context.Context, principal, projectKey string, amount int, itemType string) ([]*ItemView, error) {
	if _, err := s.projects.GetForAccess(ctx, principal, projectKey); err != nil {
		return nil, err
	}
	if amount <= 0 {
		amount = DefaultAmount
	}
	if amount > MaxAmount {
		amount = MaxAmount
	}
	if _, err := s.ArchiveSweep(ctx, projectKey); err != nil {
		return nil, err
	}
	live, err := s.repo.LiveByParent(ctx, projectKey)
	if err != nil {
		return nil, err
	}
	out := []*ItemView{}
	for _, item := range live {
		if itemType != "" && item.Type != itemType {
			continue
		}
		view, err := s.view(ctx, item, false)
		if err != nil {
			return nil, err
		}
		out = append(out, view)
		if len(out) >= amount {
			break
		}
	}
	return out, nil
}

// Get loads one feed item with expanded comments. An item whose parent does
// not match the requested project is reported as not found, never as
// forbidden, so existence does not leak across projects.
func (s *Service) Get(ctx context.Context, principal, projectKey, itemKey string) (*ItemView, error) {
	if _, err := s.projects.GetForAccess(ctx, principal, projectKey); err != nil {
		return nil, err
	}
	item, err := s.getInProject(ctx, projectKey, itemKey)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, item, true)
}

// Delete removes a feed item and cascades to its comments. Only the item's
// author or a project owner may delete.
func (s *Service) Delete(ctx context.Context, principal, projectKey, itemKey string) error {
	p, err := s.projects.GetForAccess(ctx, principal, projectKey)
	if err != nil {
		return err
	}
	item, err := s.getInProject(ctx, projectKey, itemKey)
	if err != nil {
		return err
	}
	if item.Author != principal && !access.Manager(principal, p) {
		return fmt.Errorf("feed item %s: %w", itemKey, apperr.ErrForbidden)
	}
	// best effort: comments go first so a failure never orphans children
	n, err := s.comments.DeleteByParent(ctx, item.Key)
	if err != nil {
		return fmt.Errorf("cascade delete comments of %s: %w", itemKey, err)
	}
	metrics.CommentsCascadeDeleted.Add(float64(n))
	return s.repo.Delete(ctx, item.Key)
}

// PostComment attaches a comment to a feed item.
func (s *Service) PostComment(ctx context.Context, principal, projectKey, itemKey, content string) (*CommentView, error) {
	if content == "" {
		return nil, fmt.Errorf("content required: %w", apperr.ErrBadRequest)
	}
	if _, err := s.projects.GetForAccess(ctx, principal, projectKey); err != nil {
		return nil, err
	}
	item, err := s.getInProject(ctx, projectKey, itemKey)
	if err != nil {
		return nil, err
	}
	c := &models.Comment{Content: models.Content{
		Content: content,
		Author:  principal,
		Date:    time.Now().UTC(),
		Parent:  item.Key,
	}}
	if err := s.comments.Insert(ctx, c); err != nil {
		return nil, err
	}
	author, err := s.users.Get(ctx, principal)
	if err != nil {
		return nil, err
	}
	return &CommentView{Comment: c, Author: author}, nil
}

// DeleteComment removes one comment from a feed item. Only the comment's
// author or a project owner may delete.
func (s *Service) DeleteComment(ctx context.Context, principal, projectKey, commentKey string) error {
	p, err := s.projects.GetForAccess(ctx, principal, projectKey)
	if err != nil {
		return err
	}
	c, err := s.comments.Get(ctx, commentKey)
	if err != nil {
		return err
	}
	// the comment's parent item must itself live in this project
	if _, err := s.getInProject(ctx, projectKey, c.Parent); err != nil {
		return err
	}
	if c.Author != principal && !access.Manager(principal, p) {
		return fmt.Errorf("comment %s: %w", commentKey, apperr.ErrForbidden)
	}
	return s.comments.Delete(ctx, commentKey)
}

func (s *Service) getInProject(ctx context.Context, projectKey, itemKey string) (*models.FeedItem, error) {
	item, err := s.repo.Get(ctx, itemKey)
	if err != nil {
		return nil, err
	}
	if item.Parent != projectKey {
		return nil, fmt.Errorf("feed item %s: %w", itemKey, apperr.ErrNotFound)
	}
	return item, nil
}

func (s *Service) view(ctx context.Context, item *models.FeedItem, expand bool) (*ItemView, error) {
	author, err := s.users.Get(ctx, item.Author)
	if err != nil {
		return nil, err
	}
	v := &ItemView{Item: item, Author: author}
	if !expand {
		keys, err := s.comments.KeysByParent(ctx, item.Key)
		if err != nil {
			return nil, err
		}
		v.CommentKeys = keys
		return v, nil
	}
	children, err := s.comments.ByParent(ctx, item.Key)
	if err != nil {
		return nil, err
	}
	v.Comments = []CommentView{}
	for _, c := range children {
		ca, err := s.users.Get(ctx, c.Author)
		if err != nil {
			return nil, err
		}
		v.Comments = append(v.Comments, CommentView{Comment: c, Author: ca})
	}
	return v, nil
}

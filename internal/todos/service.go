package todos

import (
	"context"
	"fmt"
	"time"

	"github.com/projecto/projecto/internal/access"
	"github.com/projecto/projecto/internal/apperr"
	"github.com/projecto/projecto/internal/comments"
	"github.com/projecto/projecto/internal/models"
	"github.com/projecto/projecto/pkg/metrics"
)

const (
	// MaxAmount caps the per-page amount on todo listings.
	MaxAmount = 100
	// DefaultAmount is used when no amount is requested.
	DefaultAmount = 20

	// BlankTag is the sentinel that matches todos with no tags at all.
	BlankTag = " "
)

// ProjectLoader loads a project and enforces owner-or-collaborator access.
type ProjectLoader interface {
	GetForAccess(ctx context.Context, principal, key string) (*models.Project, error)
}

// UserLoader resolves lazy author references for serialization.
type UserLoader interface {
	Get(ctx context.Context, key string) (*models.User, error)
}

// Service implements the todo query engine and the todo side of the cascade
// lifecycle.
type Service struct {
	repo     Repository
	comments comments.Repository
	projects ProjectLoader
	users    UserLoader
	tags     TagCache // optional
}

func NewService(repo Repository, cr comments.Repository, pl ProjectLoader, ul UserLoader, tags TagCache) *Service {
	return &Service{repo: repo, comments: cr, projects: pl, users: ul, tags: tags}
}

// TodoView is a todo prepared for client serialization.
type TodoView struct {
	Todo        *models.Todo
	Author      *models.User
	CommentKeys []string
	Comments    []CommentView
}

// CommentView is a comment with its author expanded.
type CommentView struct {
	Comment *models.Comment
	Author  *models.User
}

// Page is the envelope returned by the paginated listings.
type Page struct {
	Todos       []*TodoView
	CurrentPage int
	TotalTodos  int
	PerPage     int
}

// CreateInput carries the writable todo fields.
type CreateInput struct {
	Title    string
	Content  string
	Tags     []string
	Due      *time.Time
	Assigned string
}

// UpdateInput merges into an existing todo; nil fields are left unchanged.
type UpdateInput struct {
	Title    *string
	Content  *string
	Tags     *[]string
	Due      *time.Time
	Assigned *string
}

// Create adds a todo to the project.
func (s *Service) Create(ctx context.Context, principal, projectKey string, in CreateInput) (*TodoView, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("title required: %w", apperr.ErrBadRequest)
	}
	if _, err := s.projects.GetForAccess(ctx, principal, projectKey); err != nil {
		return nil, err
	}
	todo := &models.Todo{
		Content: models.Content{
			Title:   in.Title,
			Content: in.Content,
			Author:  principal,
			Date:    time.Now().UTC(),
			Parent:  projectKey,
		},
		Tags:     in.Tags,
		Due:      in.Due,
		Assigned: in.Assigned,
	}
	if err := s.repo.Insert(ctx, todo); err != nil {
		return nil, err
	}
	s.invalidateTags(ctx, projectKey)
	return s.view(ctx, todo, false)
}

// Update merges the provided fields into a todo.
func (s *Service) Update(ctx context.Context, principal, projectKey, todoKey string, in UpdateInput) (*TodoView, error) {
	if _, err := s.projects.GetForAccess(ctx, principal, projectKey); err != nil {
		return nil, err
	}
	todo, err := s.getInProject(ctx, projectKey, todoKey)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		todo.Title = *in.Title
	}
	if in.Content != nil {
		todo.Content.Content = *in.Content
	}
	if in.Tags != nil {
		todo.Tags = *in.Tags
	}
	if in.Due != nil {
		todo.Due = in.Due
	}
	if in.Assigned != nil {
		todo.Assigned = *in.Assigned
	}
	if err := s.repo.Update(ctx, todo); err != nil {
		return nil, err
	}
	s.invalidateTags(ctx, projectKey)
	return s.view(ctx, todo, true)
}

// Get loads one todo with expanded comments; parent mismatch is not found.
func (s *Service) Get(ctx context.Context, principal, projectKey, todoKey string) (*TodoView, error) {
	if _, err := s.projects.GetForAccess(ctx, principal, projectKey); err != nil {
		return nil, err
	}
	todo, err := s.getInProject(ctx, projectKey, todoKey)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, todo, true)
}

// Delete removes a todo and cascades to its comments.
func (s *Service) Delete(ctx context.Context, principal, projectKey, todoKey string) error {
	if _, err := s.projects.GetForAccess(ctx, principal, projectKey); err != nil {
		return err
	}
	todo, err := s.getInProject(ctx, projectKey, todoKey)
	if err != nil {
		return err
	}
	n, err := s.comments.DeleteByParent(ctx, todo.Key)
	if err != nil {
		return fmt.Errorf("cascade delete comments of %s: %w", todoKey, err)
	}
	metrics.CommentsCascadeDeleted.Add(float64(n))
	if err := s.repo.Delete(ctx, todo.Key); err != nil {
		return err
	}
	s.invalidateTags(ctx, projectKey)
	return nil
}

// MarkDone flips the done flag of a todo.
func (s *Service) MarkDone(ctx context.Context, principal, projectKey, todoKey string, done bool) error {
	if _, err := s.projects.GetForAccess(ctx, principal, projectKey); err != nil {
		return err
	}
	todo, err := s.getInProject(ctx, projectKey, todoKey)
	if err != nil {
		return err
	}
	todo.Done = done
	return s.repo.Update(ctx, todo)
}

// ClearDone deletes every done todo of a project, cascading comments.
func (s *Service) ClearDone(ctx context.Context, principal, projectKey string) error {
	if _, err := s.projects.GetForAccess(ctx, principal, projectKey); err != nil {
		return err
	}
	all, err := s.repo.ByParent(ctx, projectKey)
	if err != nil {
		return err
	}
	for _, todo := range all {
		if !todo.Done {
			continue
		}
		n, err := s.comments.DeleteByParent(ctx, todo.Key)
		if err != nil {
			return fmt.Errorf("cascade delete comments of %s: %w", todo.Key, err)
		}
		metrics.CommentsCascadeDeleted.Add(float64(n))
		if err := s.repo.Delete(ctx, todo.Key); err != nil {
			return err
		}
	}
	s.invalidateTags(ctx, projectKey)
	return nil
}

// List returns one page of the project's todos, date descending. Done todos
// are hidden unless showdone is set. Strict pagination: a page past the end
// is empty.
func (s *Service) List(ctx context.Context, principal, projectKey string, page, amount int, showdone bool) (*Page, error) {
	if _, err := s.projects.GetForAccess(ctx, principal, projectKey); err != nil {
		return nil, err
	}
	page, amount, err := normalize(page, amount)
	if err != nil {
		return nil, err
	}
	all, err := s.repo.ByParent(ctx, projectKey)
	if err != nil {
		return nil, err
	}
	filtered := []*models.Todo{}
	for _, todo := range all {
		if todo.Done && !showdone {
			continue
		}
		filtered = append(filtered, todo)
	}
	return s.page(ctx, filtered, page, amount, false)
}

// Filter returns one page of todos matching the tag filter. Done-state is
// controlled independently by showdone/shownotdone. A todo with no tags
// matches only when the blank sentinel is requested; otherwise any tag
// intersection matches. A page landing past the end is clamped down to the
// last non-empty page instead of returning an empty result.
func (s *Service) Filter(ctx context.Context, principal, projectKey string, tags []string, showdone, shownotdone bool, page, amount int) (*Page, error) {
	if _, err := s.projects.GetForAccess(ctx, principal, projectKey); err != nil {
		return nil, err
	}
	page, amount, err := normalize(page, amount)
	if err != nil {
		return nil, err
	}
	tagSet := map[string]bool{}
	for _, t := range tags {
		tagSet[t] = true
	}
	all, err := s.repo.ByParent(ctx, projectKey)
	if err != nil {
		return nil, err
	}
	filtered := []*models.Todo{}
	for _, todo := range all {
		if !((todo.Done && showdone) || (!todo.Done && shownotdone)) {
			continue
		}
		if len(todo.Tags) == 0 {
			if tagSet[BlankTag] {
				filtered = append(filtered, todo)
			}
			continue
		}
		for _, t := range todo.Tags {
			if tagSet[t] {
				filtered = append(filtered, todo)
				break
			}
		}
	}
	return s.page(ctx, filtered, page, amount, true)
}

// Tags returns the union of tags across the project's todos, served from
// the cache when warm.
func (s *Service) Tags(ctx context.Context, principal, projectKey string) ([]string, error) {
	if _, err := s.projects.GetForAccess(ctx, principal, projectKey); err != nil {
		return nil, err
	}
	if s.tags != nil {
		if cached, ok := s.tags.Get(ctx, projectKey); ok {
			return cached, nil
		}
	}
	all, err := s.repo.ByParent(ctx, projectKey)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	tags := []string{}
	for _, todo := range all {
		for _, t := range todo.Tags {
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}
	if s.tags != nil {
		s.tags.Set(ctx, projectKey, tags)
	}
	return tags, nil
}

// PostComment attaches a comment to a todo.
func (s *Service) PostComment(ctx context.Context, principal, projectKey, todoKey, content string) (*CommentView, error) {
	if content == "" {
		return nil, fmt.Errorf("content required: %w", apperr.ErrBadRequest)
	}
	if _, err := s.projects.GetForAccess(ctx, principal, projectKey); err != nil {
		return nil, err
	}
	todo, err := s.getInProject(ctx, projectKey, todoKey)
	if err != nil {
		return nil, err
	}
	c := &models.Comment{Content: models.Content{
		Content: content,
		Author:  principal,
		Date:    time.Now().UTC(),
		Parent:  todo.Key,
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

// DeleteComment removes one comment from a todo; author or project owner.
func (s *Service) DeleteComment(ctx context.Context, principal, projectKey, commentKey string) error {
	p, err := s.projects.GetForAccess(ctx, principal, projectKey)
	if err != nil {
		return err
	}
	c, err := s.comments.Get(ctx, commentKey)
	if err != nil {
		return err
	}
	if _, err := s.getInProject(ctx, projectKey, c.Parent); err != nil {
		return err
	}
	if c.Author != principal && !access.Manager(principal, p) {
		return fmt.Errorf("comment %s: %w", commentKey, apperr.ErrForbidden)
	}
	return s.comments.Delete(ctx, commentKey)
}

func (s *Service) getInProject(ctx context.Context, projectKey, todoKey string) (*models.Todo, error) {
	todo, err := s.repo.Get(ctx, todoKey)
	if err != nil {
		return nil, err
	}
	if todo.Parent != projectKey {
		return nil, fmt.Errorf("todo %s: %w", todoKey, apperr.ErrNotFound)
	}
	return todo, nil
}

// page slices one page out of the filtered, sorted set. With clamp, a page
// past the end lands on the last non-empty page instead of coming back
// empty.
func (s *Service) page(ctx context.Context, filtered []*models.Todo, page, amount int, clamp bool) (*Page, error) {
	total := len(filtered)
	p := page - 1
	if clamp && total < p*amount+1 {
		p = (total + amount - 1) / amount - 1
		if p < 0 {
			p = 0
		}
	}
	start := p * amount
	end := start + amount
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	views := []*TodoView{}
	for _, todo := range filtered[start:end] {
		v, err := s.view(ctx, todo, false)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return &Page{Todos: views, CurrentPage: p + 1, TotalTodos: total, PerPage: amount}, nil
}

func normalize(page, amount int) (int, int, error) {
	if page < 1 || amount < 0 {
		return 0, 0, fmt.Errorf("bad pagination parameters: %w", apperr.ErrBadRequest)
	}
	if amount == 0 {
		amount = DefaultAmount
	}
	if amount > MaxAmount {
		amount = MaxAmount
	}
	return page, amount, nil
}

func (s *Service) invalidateTags(ctx context.Context, projectKey string) {
	if s.tags != nil {
		s.tags.Invalidate(ctx, projectKey)
	}
}

func (s *Service) view(ctx context.Context, todo *models.Todo, expand bool) (*TodoView, error) {
	author, err := s.users.Get(ctx, todo.Author)
	if err != nil {
		return nil, err
	}
	v := &TodoView{Todo: todo, Author: author}
	if !expand {
		keys, err := s.comments.KeysByParent(ctx, todo.Key)
		if err != nil {
			return nil, err
		}
		v.CommentKeys = keys
		return v, nil
	}
	children, err := s.comments.ByParent(ctx, todo.Key)
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

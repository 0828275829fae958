package feed

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/projecto/projecto/internal/apperr"
	"github.com/projecto/projecto/internal/comments"
	"github.com/projecto/projecto/internal/models"
	"github.com/projecto/projecto/internal/projects"
	"github.com/projecto/projecto/internal/users"
)

type fixture struct {
	svc      *Service
	repo     *MemoryRepo
	comments *comments.MemoryRepo
	projects *projects.Service
	users    *users.Service
	owner    *models.User
	project  *models.Project
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	usvc := users.NewService(users.NewMemoryRepo())
	owner, err := usvc.RegisterOrLogin(ctx, "owner@test.com")
	if err != nil {
		t.Fatalf("register owner: %v", err)
	}
	psvc := projects.NewService(projects.NewMemoryRepo(), usvc, usvc)
	p, err := psvc.Create(ctx, owner.Key, "proj", "")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	repo := NewMemoryRepo()
	crepo := comments.NewMemoryRepo()
	return &fixture{
		svc:      NewService(repo, crepo, psvc, usvc),
		repo:     repo,
		comments: crepo,
		projects: psvc,
		users:    usvc,
		owner:    owner,
		project:  p,
	}
}

// seed inserts a feed item directly, bypassing Post, so dates can be forced.
func (f *fixture) seed(t *testing.T, itemType string, date time.Time) *models.FeedItem {
	t.Helper()
	item := &models.FeedItem{
		Content: models.Content{Content: "entry", Author: f.owner.Key, Date: date, Parent: f.project.Key},
		Type:    itemType,
	}
	if err := f.repo.Insert(context.Background(), item); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return item
}

func TestPostAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, err := f.svc.Post(ctx, f.owner.Key, f.project.Key, "hello world", "")
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if v.Item.Type != DefaultType {
		t.Fatalf("expected default type, got %s", v.Item.Type)
	}
	if v.Author.Key != f.owner.Key {
		t.Fatalf("author should be expanded, got %v", v.Author)
	}

	list, err := f.svc.List(ctx, f.owner.Key, f.project.Key, 0, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Item.Key != v.Item.Key {
		t.Fatalf("unexpected listing: %v", list)
	}
}

func TestPostRequiresContent(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Post(context.Background(), f.owner.Key, f.project.Key, "", ""); !errors.Is(err, apperr.ErrBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestListForbiddenForNonMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stranger, _ := f.users.RegisterOrLogin(ctx, "stranger@test.com")

	if _, err := f.svc.List(ctx, stranger.Key, f.project.Key, 0, ""); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestListTypeFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Now().UTC()
	f.seed(t, "post", base)
	f.seed(t, "comment", base.Add(time.Second))
	f.seed(t, "comment", base.Add(2*time.Second))

	list, err := f.svc.List(ctx, f.owner.Key, f.project.Key, 0, "comment")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 comment-typed items, got %d", len(list))
	}
	for _, v := range list {
		if v.Item.Type != "comment" {
			t.Fatalf("type filter leaked %s", v.Item.Type)
		}
	}
}

func TestListSortsByDateDescendingAndTruncates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		f.seed(t, "post", base.Add(time.Duration(i)*time.Second))
	}

	list, err := f.svc.List(ctx, f.owner.Key, f.project.Key, 3, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected truncation to 3, got %d", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i].Item.Date.After(list[i-1].Item.Date) {
			t.Fatal("feed must be sorted by date descending")
		}
	}
}

func TestArchiveSweepBeyondLiveWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Now().UTC()
	for i := 0; i < LiveWindow+5; i++ {
		f.seed(t, "post", base.Add(time.Duration(i)*time.Second))
	}

	archived, err := f.svc.ArchiveSweep(ctx, f.project.Key)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if archived != 5 {
		t.Fatalf("expected 5 archived, got %d", archived)
	}

	live, err := f.repo.LiveByParent(ctx, f.project.Key)
	if err != nil {
		t.Fatalf("live: %v", err)
	}
	if len(live) != LiveWindow {
		t.Fatalf("expected %d live items, got %d", LiveWindow, len(live))
	}

	// archived items stay in the store, excluded from live listings
	list, err := f.svc.List(ctx, f.owner.Key, f.project.Key, MaxAmount, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != LiveWindow {
		t.Fatalf("expected %d listed items, got %d", LiveWindow, len(list))
	}

	// sweep is idempotent
	archived, err = f.svc.ArchiveSweep(ctx, f.project.Key)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if archived != 0 {
		t.Fatalf("second sweep should archive nothing, got %d", archived)
	}
}

func TestGetParentMismatchIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other, err := f.projects.Create(ctx, f.owner.Key, "other", "")
	if err != nil {
		t.Fatalf("create other project: %v", err)
	}
	item := f.seed(t, "post", time.Now().UTC())

	// item belongs to f.project, requested via the other project's path
	if _, err := f.svc.Get(ctx, f.owner.Key, other.Key, item.Key); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("cross-project access must be not found, got %v", err)
	}
}

func TestDeleteCascadesComments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seed(t, "post", time.Now().UTC())

	for i := 0; i < 3; i++ {
		if _, err := f.svc.PostComment(ctx, f.owner.Key, f.project.Key, item.Key, fmt.Sprintf("c%d", i)); err != nil {
			t.Fatalf("post comment: %v", err)
		}
	}

	if err := f.svc.Delete(ctx, f.owner.Key, f.project.Key, item.Key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	keys, err := f.comments.KeysByParent(ctx, item.Key)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected 0 comments after cascade, got %d", len(keys))
	}
	if _, err := f.repo.Get(ctx, item.Key); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("item should be gone, got %v", err)
	}
}

func TestDeleteRequiresAuthorOrOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	collab, _ := f.users.RegisterOrLogin(ctx, "collab@test.com")
	if err := f.projects.AddCollaborators(ctx, f.owner.Key, f.project.Key, []string{"collab@test.com"}); err != nil {
		t.Fatalf("add collaborator: %v", err)
	}
	item := f.seed(t, "post", time.Now().UTC())

	// collaborator who is neither author nor owner
	if err := f.svc.Delete(ctx, collab.Key, f.project.Key, item.Key); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	// the author may delete
	if err := f.svc.Delete(ctx, f.owner.Key, f.project.Key, item.Key); err != nil {
		t.Fatalf("author delete: %v", err)
	}
}

func TestGetExpandsCommentsSortedAscending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seed(t, "post", time.Now().UTC())

	for i := 0; i < 3; i++ {
		if _, err := f.svc.PostComment(ctx, f.owner.Key, f.project.Key, item.Key, fmt.Sprintf("c%d", i)); err != nil {
			t.Fatalf("post comment: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	v, err := f.svc.Get(ctx, f.owner.Key, f.project.Key, item.Key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(v.Comments) != 3 {
		t.Fatalf("expected 3 expanded comments, got %d", len(v.Comments))
	}
	for i := 1; i < len(v.Comments); i++ {
		if v.Comments[i].Comment.Date.Before(v.Comments[i-1].Comment.Date) {
			t.Fatal("expanded comments must be sorted by date ascending")
		}
	}
}

func TestDeleteCommentPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	collab, _ := f.users.RegisterOrLogin(ctx, "collab@test.com")
	if err := f.projects.AddCollaborators(ctx, f.owner.Key, f.project.Key, []string{"collab@test.com"}); err != nil {
		t.Fatalf("add collaborator: %v", err)
	}
	item := f.seed(t, "post", time.Now().UTC())
	cv, err := f.svc.PostComment(ctx, f.owner.Key, f.project.Key, item.Key, "a comment")
	if err != nil {
		t.Fatalf("post comment: %v", err)
	}

	if err := f.svc.DeleteComment(ctx, collab.Key, f.project.Key, cv.Comment.Key); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden for non-author collaborator, got %v", err)
	}
	if err := f.svc.DeleteComment(ctx, f.owner.Key, f.project.Key, cv.Comment.Key); err != nil {
		t.Fatalf("author delete comment: %v", err)
	}
}

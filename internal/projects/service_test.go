package projects

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/projecto/projecto/internal/apperr"
	"github.com/projecto/projecto/internal/models"
	"github.com/projecto/projecto/internal/users"
)

func newFixture(t *testing.T) (*Service, *users.Service, *models.User) {
	t.Helper()
	urepo := users.NewMemoryRepo()
	usvc := users.NewService(urepo)
	owner, err := usvc.RegisterOrLogin(context.Background(), "owner@test.com")
	if err != nil {
		t.Fatalf("register owner: %v", err)
	}
	svc := NewService(NewMemoryRepo(), usvc, usvc)
	return svc, usvc, owner
}

func TestCreateAddsCreatorAsOwner(t *testing.T) {
	svc, _, owner := newFixture(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, owner.Key, "proj", "a project")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(p.Owners) != 1 || p.Owners[0] != owner.Key {
		t.Fatalf("creator should be sole owner, got %v", p.Owners)
	}

	if _, err := svc.Create(ctx, owner.Key, "", ""); !errors.Is(err, apperr.ErrBadRequest) {
		t.Fatalf("expected bad request for empty name, got %v", err)
	}
}

func TestGetRequiresMembership(t *testing.T) {
	svc, usvc, owner := newFixture(t)
	ctx := context.Background()

	p, _ := svc.Create(ctx, owner.Key, "proj", "")
	stranger, _ := usvc.RegisterOrLogin(ctx, "stranger@test.com")

	if _, err := svc.Get(ctx, stranger.Key, p.Key); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden for non-member, got %v", err)
	}
	if _, err := svc.Get(ctx, owner.Key, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found for missing project, got %v", err)
	}
}

func TestAddOwnersRegisteredAndUnregistered(t *testing.T) {
	svc, usvc, owner := newFixture(t)
	ctx := context.Background()

	other, _ := usvc.RegisterOrLogin(ctx, "other@test.com")
	p, _ := svc.Create(ctx, owner.Key, "proj", "")

	if err := svc.AddOwners(ctx, owner.Key, p.Key, []string{"other@test.com", "new@x.com"}); err != nil {
		t.Fatalf("add owners: %v", err)
	}

	got, _ := svc.Get(ctx, owner.Key, p.Key)
	if !reflect.DeepEqual(got.Owners, []string{owner.Key, other.Key}) {
		t.Fatalf("unexpected owners: %v", got.Owners)
	}
	if !reflect.DeepEqual(got.UnregisteredOwners, []string{"new@x.com"}) {
		t.Fatalf("unregistered email should land in unregistered_owners: %v", got.UnregisteredOwners)
	}
}

func TestAddToleratesDuplicates(t *testing.T) {
	svc, _, owner := newFixture(t)
	ctx := context.Background()
	p, _ := svc.Create(ctx, owner.Key, "proj", "")

	if err := svc.AddCollaborators(ctx, owner.Key, p.Key, []string{"c@x.com", "c@x.com"}); err != nil {
		t.Fatalf("add collaborators: %v", err)
	}
	got, _ := svc.Get(ctx, owner.Key, p.Key)
	if len(got.UnregisteredCollaborators) != 2 {
		t.Fatalf("duplicates are tolerated on add, got %v", got.UnregisteredCollaborators)
	}
}

func TestMembershipMutationRequiresManager(t *testing.T) {
	svc, usvc, owner := newFixture(t)
	ctx := context.Background()

	collab, _ := usvc.RegisterOrLogin(ctx, "collab@test.com")
	p, _ := svc.Create(ctx, owner.Key, "proj", "")
	if err := svc.AddCollaborators(ctx, owner.Key, p.Key, []string{"collab@test.com"}); err != nil {
		t.Fatalf("add collaborators: %v", err)
	}

	err := svc.AddOwners(ctx, collab.Key, p.Key, []string{"x@y.com"})
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("collaborator must not mutate membership, got %v", err)
	}
	if _, _, _, _, err := svc.Members(ctx, collab.Key, p.Key); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("collaborator must not list members, got %v", err)
	}
}

func TestRemoveOwnersBatchIsAtomic(t *testing.T) {
	svc, usvc, owner := newFixture(t)
	ctx := context.Background()

	other, _ := usvc.RegisterOrLogin(ctx, "other@test.com")
	p, _ := svc.Create(ctx, owner.Key, "proj", "")
	if err := svc.AddOwners(ctx, owner.Key, p.Key, []string{"other@test.com", "ghost@x.com"}); err != nil {
		t.Fatalf("add owners: %v", err)
	}

	before, _ := svc.Get(ctx, owner.Key, p.Key)

	// second email is in no membership list: the whole batch must fail
	err := svc.RemoveOwners(ctx, owner.Key, p.Key, []string{"other@test.com", "unknown@x.com"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found for unknown removal target, got %v", err)
	}

	after, _ := svc.Get(ctx, owner.Key, p.Key)
	if !reflect.DeepEqual(before.Owners, after.Owners) {
		t.Fatalf("owners changed despite failed batch: %v != %v", before.Owners, after.Owners)
	}
	if !reflect.DeepEqual(before.UnregisteredOwners, after.UnregisteredOwners) {
		t.Fatalf("unregistered_owners changed despite failed batch: %v != %v",
			before.UnregisteredOwners, after.UnregisteredOwners)
	}
	_ = other
}

func TestRemoveOwnersAppliesFullBatch(t *testing.T) {
	svc, usvc, owner := newFixture(t)
	ctx := context.Background()

	_, _ = usvc.RegisterOrLogin(ctx, "other@test.com")
	p, _ := svc.Create(ctx, owner.Key, "proj", "")
	if err := svc.AddOwners(ctx, owner.Key, p.Key, []string{"other@test.com", "ghost@x.com"}); err != nil {
		t.Fatalf("add owners: %v", err)
	}

	if err := svc.RemoveOwners(ctx, owner.Key, p.Key, []string{"other@test.com", "ghost@x.com"}); err != nil {
		t.Fatalf("remove owners: %v", err)
	}
	got, _ := svc.Get(ctx, owner.Key, p.Key)
	if !reflect.DeepEqual(got.Owners, []string{owner.Key}) {
		t.Fatalf("unexpected owners after removal: %v", got.Owners)
	}
	if len(got.UnregisteredOwners) != 0 {
		t.Fatalf("unexpected unregistered owners after removal: %v", got.UnregisteredOwners)
	}
}

func TestCannotRemoveLastOwner(t *testing.T) {
	svc, _, owner := newFixture(t)
	ctx := context.Background()
	p, _ := svc.Create(ctx, owner.Key, "proj", "")

	err := svc.RemoveOwners(ctx, owner.Key, p.Key, []string{"owner@test.com"})
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden when removing the sole owner, got %v", err)
	}
	got, _ := svc.Get(ctx, owner.Key, p.Key)
	if len(got.Owners) != 1 {
		t.Fatalf("owners must never become empty: %v", got.Owners)
	}
}

func TestCannotRemoveLastOwnerMidBatch(t *testing.T) {
	svc, usvc, owner := newFixture(t)
	ctx := context.Background()

	_, _ = usvc.RegisterOrLogin(ctx, "other@test.com")
	p, _ := svc.Create(ctx, owner.Key, "proj", "")
	if err := svc.AddOwners(ctx, owner.Key, p.Key, []string{"other@test.com"}); err != nil {
		t.Fatalf("add owners: %v", err)
	}

	// removing both owners in one batch would empty the list; the guard
	// fires once the working copy is down to one
	err := svc.RemoveOwners(ctx, owner.Key, p.Key, []string{"other@test.com", "owner@test.com"})
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	got, _ := svc.Get(ctx, owner.Key, p.Key)
	if len(got.Owners) != 2 {
		t.Fatalf("failed batch must not partially apply: %v", got.Owners)
	}
}

func TestRemoveCollaborators(t *testing.T) {
	svc, usvc, owner := newFixture(t)
	ctx := context.Background()

	collab, _ := usvc.RegisterOrLogin(ctx, "collab@test.com")
	p, _ := svc.Create(ctx, owner.Key, "proj", "")
	if err := svc.AddCollaborators(ctx, owner.Key, p.Key, []string{"collab@test.com", "pending@x.com"}); err != nil {
		t.Fatalf("add collaborators: %v", err)
	}

	if err := svc.RemoveCollaborators(ctx, owner.Key, p.Key, []string{"collab@test.com"}); err != nil {
		t.Fatalf("remove collaborators: %v", err)
	}
	got, _ := svc.Get(ctx, owner.Key, p.Key)
	if len(got.Collaborators) != 0 {
		t.Fatalf("collaborator not removed: %v", got.Collaborators)
	}
	if !reflect.DeepEqual(got.UnregisteredCollaborators, []string{"pending@x.com"}) {
		t.Fatalf("unregistered collaborator should remain: %v", got.UnregisteredCollaborators)
	}
	_ = collab

	err := svc.RemoveCollaborators(ctx, owner.Key, p.Key, []string{"collab@test.com"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("removing a non-member must fail with not found, got %v", err)
	}
}

func TestListMine(t *testing.T) {
	svc, usvc, owner := newFixture(t)
	ctx := context.Background()

	collab, _ := usvc.RegisterOrLogin(ctx, "collab@test.com")
	p1, _ := svc.Create(ctx, owner.Key, "mine", "")
	p2, _ := svc.Create(ctx, collab.Key, "theirs", "")
	if err := svc.AddCollaborators(ctx, collab.Key, p2.Key, []string{"owner@test.com"}); err != nil {
		t.Fatalf("add collaborators: %v", err)
	}

	owned, participating, err := svc.ListMine(ctx, owner.Key)
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if len(owned) != 1 || owned[0].Key != p1.Key {
		t.Fatalf("unexpected owned projects: %v", owned)
	}
	if len(participating) != 1 || participating[0].Key != p2.Key {
		t.Fatalf("unexpected participating projects: %v", participating)
	}
}

func TestMembersListing(t *testing.T) {
	svc, usvc, owner := newFixture(t)
	ctx := context.Background()

	_, _ = usvc.RegisterOrLogin(ctx, "collab@test.com")
	p, _ := svc.Create(ctx, owner.Key, "proj", "")
	if err := svc.AddCollaborators(ctx, owner.Key, p.Key, []string{"collab@test.com", "pending@x.com"}); err != nil {
		t.Fatalf("add collaborators: %v", err)
	}

	owners, collaborators, unregOwners, unregCollabs, err := svc.Members(ctx, owner.Key, p.Key)
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if len(owners) != 1 || owners[0].Email != "owner@test.com" {
		t.Fatalf("unexpected owners listing: %v", owners)
	}
	if len(collaborators) != 1 || collaborators[0].Email != "collab@test.com" {
		t.Fatalf("unexpected collaborators listing: %v", collaborators)
	}
	if len(unregOwners) != 0 {
		t.Fatalf("unexpected unregistered owners: %v", unregOwners)
	}
	if !reflect.DeepEqual(unregCollabs, []string{"pending@x.com"}) {
		t.Fatalf("unexpected unregistered collaborators: %v", unregCollabs)
	}
}

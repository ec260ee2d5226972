package pairs

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mvoicu/dansport/internal/identity"
	apperrors "github.com/mvoicu/dansport/internal/platform/errors"
	"github.com/mvoicu/dansport/internal/services/federation/storage"
)

type fakeStore struct {
	pairs map[string]storage.Pair
}

func newFakeStore() *fakeStore {
	return &fakeStore{pairs: make(map[string]storage.Pair)}
}

func (f *fakeStore) PutPair(ctx context.Context, pair storage.Pair) error {
	if existing, ok := f.pairs[pair.ID]; ok {
		pair.ClubID = existing.ClubID
	}
	f.pairs[pair.ID] = pair
	return nil
}

func (f *fakeStore) GetPair(ctx context.Context, id string) (storage.Pair, error) {
	pair, ok := f.pairs[id]
	if !ok {
		return storage.Pair{}, storage.ErrNotFound
	}
	return pair, nil
}

func (f *fakeStore) ListPairsByClub(ctx context.Context, clubID string) ([]storage.Pair, error) {
	var pairs []storage.Pair
	for _, pair := range f.pairs {
		if pair.ClubID == clubID {
			pairs = append(pairs, pair)
		}
	}
	return pairs, nil
}

func (f *fakeStore) DeletePair(ctx context.Context, id string) error {
	if _, ok := f.pairs[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.pairs, id)
	return nil
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func sequentialIDGenerator(prefix string) func() (string, error) {
	counter := 0
	return func() (string, error) {
		counter++
		return fmt.Sprintf("%s-%d", prefix, counter), nil
	}
}

func validInput() PairInput {
	return PairInput{
		Partner1: PartnerInput{Name: "Ana Ionescu", License: "RO-1001"},
		Partner2: PartnerInput{Name: "Mihai Popa", License: "RO-1002"},
		Coach:    "D. Georgescu",
	}
}

func TestCreateAssignsOwningClub(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	service := NewService(newFakeStore(), fixedClock(now), sequentialIDGenerator("pair"))

	club := identity.Actor{ID: "club-1", Role: identity.RoleClub}
	// A club-supplied club id is ignored; ownership derives from identity.
	pair, err := service.Create(context.Background(), club, "club-other", validInput())
	if err != nil {
		t.Fatalf("create pair: %v", err)
	}
	if pair.ClubID != "club-1" {
		t.Fatalf("expected actor club ownership, got %q", pair.ClubID)
	}

	admin := identity.Actor{ID: "admin-1", Role: identity.RoleAdmin}
	adminPair, err := service.Create(context.Background(), admin, "club-2", validInput())
	if err != nil {
		t.Fatalf("admin create pair: %v", err)
	}
	if adminPair.ClubID != "club-2" {
		t.Fatalf("expected named club ownership, got %q", adminPair.ClubID)
	}
	if _, err := service.Create(context.Background(), admin, "", validInput()); apperrors.KindOf(err) != apperrors.KindInvalidInput {
		t.Fatalf("expected invalid input for admin without club, got %v", err)
	}

	if _, err := service.Create(context.Background(), identity.Actor{ID: "judge-1", Role: identity.RoleJudge}, "club-1", validInput()); apperrors.KindOf(err) != apperrors.KindForbidden {
		t.Fatalf("expected forbidden for judge, got %v", err)
	}
	if _, err := service.Create(context.Background(), identity.Actor{}, "club-1", validInput()); apperrors.KindOf(err) != apperrors.KindUnauthorized {
		t.Fatalf("expected unauthorized for anonymous, got %v", err)
	}
}

func TestUpdateKeepsClubImmutable(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	store := newFakeStore()
	service := NewService(store, fixedClock(now), sequentialIDGenerator("pair"))
	club := identity.Actor{ID: "club-1", Role: identity.RoleClub}
	pair, err := service.Create(context.Background(), club, "", validInput())
	if err != nil {
		t.Fatalf("create pair: %v", err)
	}

	input := validInput()
	input.Coach = "New Coach"
	updated, err := service.Update(context.Background(), club, pair.ID, input)
	if err != nil {
		t.Fatalf("update pair: %v", err)
	}
	if updated.ClubID != "club-1" {
		t.Fatalf("club changed on update: %q", updated.ClubID)
	}
	if updated.Coach != "New Coach" {
		t.Fatalf("expected coach update, got %q", updated.Coach)
	}

	if _, err := service.Update(context.Background(), identity.Actor{ID: "club-2", Role: identity.RoleClub}, pair.ID, input); apperrors.KindOf(err) != apperrors.KindForbidden {
		t.Fatalf("expected forbidden for foreign club, got %v", err)
	}
	if _, err := service.Update(context.Background(), identity.Actor{ID: "judge-1", Role: identity.RoleJudge}, pair.ID, input); apperrors.KindOf(err) != apperrors.KindForbidden {
		t.Fatalf("expected forbidden for judge, got %v", err)
	}
	if _, err := service.Update(context.Background(), identity.Actor{ID: "admin-1", Role: identity.RoleAdmin}, pair.ID, input); err != nil {
		t.Fatalf("admin should update any pair: %v", err)
	}
}

func TestGetAndListScoping(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	store := newFakeStore()
	service := NewService(store, fixedClock(now), sequentialIDGenerator("pair"))
	club := identity.Actor{ID: "club-1", Role: identity.RoleClub}
	pair, err := service.Create(context.Background(), club, "", validInput())
	if err != nil {
		t.Fatalf("create pair: %v", err)
	}

	if _, err := service.Get(context.Background(), club, pair.ID); err != nil {
		t.Fatalf("owner get: %v", err)
	}
	if _, err := service.Get(context.Background(), identity.Actor{ID: "judge-1", Role: identity.RoleJudge}, pair.ID); err != nil {
		t.Fatalf("judge get: %v", err)
	}
	if _, err := service.Get(context.Background(), identity.Actor{ID: "club-2", Role: identity.RoleClub}, pair.ID); apperrors.KindOf(err) != apperrors.KindForbidden {
		t.Fatalf("expected forbidden for foreign club get, got %v", err)
	}

	// A club's list call is always scoped to its own registry.
	own, err := service.List(context.Background(), club, "club-2")
	if err != nil {
		t.Fatalf("list pairs: %v", err)
	}
	if len(own) != 1 || own[0].ClubID != "club-1" {
		t.Fatalf("unexpected club listing: %+v", own)
	}

	named, err := service.List(context.Background(), identity.Actor{ID: "admin-1", Role: identity.RoleAdmin}, "club-1")
	if err != nil {
		t.Fatalf("admin list pairs: %v", err)
	}
	if len(named) != 1 {
		t.Fatalf("expected 1 pair for admin listing, got %d", len(named))
	}

	if _, err := service.List(context.Background(), identity.Actor{ID: "dancer-1", Role: identity.RoleDancer}, "club-1"); apperrors.KindOf(err) != apperrors.KindForbidden {
		t.Fatalf("expected forbidden for dancer listing, got %v", err)
	}
}

func TestDeleteAuthorization(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	store := newFakeStore()
	service := NewService(store, fixedClock(now), sequentialIDGenerator("pair"))
	club := identity.Actor{ID: "club-1", Role: identity.RoleClub}
	pair, err := service.Create(context.Background(), club, "", validInput())
	if err != nil {
		t.Fatalf("create pair: %v", err)
	}

	if err := service.Delete(context.Background(), identity.Actor{ID: "club-2", Role: identity.RoleClub}, pair.ID); apperrors.KindOf(err) != apperrors.KindForbidden {
		t.Fatalf("expected forbidden for foreign club delete, got %v", err)
	}
	if err := service.Delete(context.Background(), club, pair.ID); err != nil {
		t.Fatalf("delete pair: %v", err)
	}
	if err := service.Delete(context.Background(), club, pair.ID); apperrors.KindOf(err) != apperrors.KindNotFound {
		t.Fatalf("expected not found on repeat delete, got %v", err)
	}
}

// Package pairs implements the club-owned pair registry.
package pairs

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mvoicu/dansport/internal/identity"
	apperrors "github.com/mvoicu/dansport/internal/platform/errors"
	"github.com/mvoicu/dansport/internal/platform/id"
	"github.com/mvoicu/dansport/internal/services/federation/storage"
)

// Store is the persistence boundary for pair registry behavior.
type Store interface {
	PutPair(ctx context.Context, pair storage.Pair) error
	GetPair(ctx context.Context, id string) (storage.Pair, error)
	ListPairsByClub(ctx context.Context, clubID string) ([]storage.Pair, error)
	DeletePair(ctx context.Context, id string) error
}

// Service orchestrates pair registry use-cases. The owning club is fixed
// at creation and anchors all later authorization.
type Service struct {
	store Store
	clock func() time.Time
	newID func() (string, error)
}

// NewService constructs pair registry use-cases.
func NewService(store Store, clock func() time.Time, newID func() (string, error)) *Service {
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = id.NewID
	}
	return &Service{store: store, clock: clock, newID: newID}
}

// PartnerInput describes one dancer of a pair.
type PartnerInput struct {
	Name             string
	License          string
	MinQualification bool
	Birthdate        *time.Time
}

// PairInput carries the editable pair fields.
type PairInput struct {
	Partner1    PartnerInput
	Partner2    PartnerInput
	Coach       string
	AgeCategory string
	ClassLevel  string
	Discipline  string
}

// Create registers a new pair owned by the acting club. Admins may create
// on behalf of a club by naming it.
func (s *Service) Create(ctx context.Context, actor identity.Actor, clubID string, input PairInput) (storage.Pair, error) {
	if s == nil || s.store == nil {
		return storage.Pair{}, apperrors.E(apperrors.KindUnavailable, "pair store is not configured")
	}
	if actor.IsAnonymous() {
		return storage.Pair{}, apperrors.E(apperrors.KindUnauthorized, "authentication required")
	}
	clubID = strings.TrimSpace(clubID)
	switch actor.Role {
	case identity.RoleClub:
		clubID = actor.ID
	case identity.RoleAdmin:
		if clubID == "" {
			return storage.Pair{}, apperrors.E(apperrors.KindInvalidInput, "club id is required")
		}
	default:
		return storage.Pair{}, apperrors.E(apperrors.KindForbidden, "only clubs may register pairs")
	}
	if err := validatePairInput(input); err != nil {
		return storage.Pair{}, err
	}

	pairID, err := s.newID()
	if err != nil {
		return storage.Pair{}, apperrors.Wrap(apperrors.KindUnknown, "generate pair id", err)
	}
	now := s.clock().UTC()
	pair := applyPairInput(storage.Pair{
		ID:        pairID,
		ClubID:    clubID,
		CreatedAt: now,
		UpdatedAt: now,
	}, input)
	if err := s.store.PutPair(ctx, pair); err != nil {
		return storage.Pair{}, apperrors.Wrap(apperrors.KindUnavailable, "persist pair", err)
	}
	return pair, nil
}

// Get loads one pair. Registry reads are limited to the owning club and
// admin/judge-class actors.
func (s *Service) Get(ctx context.Context, actor identity.Actor, pairID string) (storage.Pair, error) {
	if s == nil || s.store == nil {
		return storage.Pair{}, apperrors.E(apperrors.KindUnavailable, "pair store is not configured")
	}
	if actor.IsAnonymous() {
		return storage.Pair{}, apperrors.E(apperrors.KindUnauthorized, "authentication required")
	}
	pair, err := s.load(ctx, pairID)
	if err != nil {
		return storage.Pair{}, err
	}
	if pair.ClubID != actor.ID && !actor.IsPrivileged() {
		return storage.Pair{}, apperrors.E(apperrors.KindForbidden, "pair belongs to another club")
	}
	return pair, nil
}

// List returns a club's pairs. Clubs list their own registry; admins and
// judges may name any club.
func (s *Service) List(ctx context.Context, actor identity.Actor, clubID string) ([]storage.Pair, error) {
	if s == nil || s.store == nil {
		return nil, apperrors.E(apperrors.KindUnavailable, "pair store is not configured")
	}
	if actor.IsAnonymous() {
		return nil, apperrors.E(apperrors.KindUnauthorized, "authentication required")
	}
	clubID = strings.TrimSpace(clubID)
	if actor.Role == identity.RoleClub {
		clubID = actor.ID
	} else if !actor.IsPrivileged() {
		return nil, apperrors.E(apperrors.KindForbidden, "only clubs may list pairs")
	}
	if clubID == "" {
		return nil, apperrors.E(apperrors.KindInvalidInput, "club id is required")
	}
	pairs, err := s.store.ListPairsByClub(ctx, clubID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "list pairs", err)
	}
	return pairs, nil
}

// Update edits a pair's partner and descriptive fields. The owning club
// never changes.
func (s *Service) Update(ctx context.Context, actor identity.Actor, pairID string, input PairInput) (storage.Pair, error) {
	if s == nil || s.store == nil {
		return storage.Pair{}, apperrors.E(apperrors.KindUnavailable, "pair store is not configured")
	}
	if actor.IsAnonymous() {
		return storage.Pair{}, apperrors.E(apperrors.KindUnauthorized, "authentication required")
	}
	pair, err := s.load(ctx, pairID)
	if err != nil {
		return storage.Pair{}, err
	}
	if pair.ClubID != actor.ID && actor.Role != identity.RoleAdmin {
		return storage.Pair{}, apperrors.E(apperrors.KindForbidden, "only the owning club or an admin may edit this pair")
	}
	if err := validatePairInput(input); err != nil {
		return storage.Pair{}, err
	}

	pair = applyPairInput(pair, input)
	pair.UpdatedAt = s.clock().UTC()
	if err := s.store.PutPair(ctx, pair); err != nil {
		return storage.Pair{}, apperrors.Wrap(apperrors.KindUnavailable, "persist pair", err)
	}
	return pair, nil
}

// Delete removes one pair from the registry.
func (s *Service) Delete(ctx context.Context, actor identity.Actor, pairID string) error {
	if s == nil || s.store == nil {
		return apperrors.E(apperrors.KindUnavailable, "pair store is not configured")
	}
	if actor.IsAnonymous() {
		return apperrors.E(apperrors.KindUnauthorized, "authentication required")
	}
	pair, err := s.load(ctx, pairID)
	if err != nil {
		return err
	}
	if pair.ClubID != actor.ID && actor.Role != identity.RoleAdmin {
		return apperrors.E(apperrors.KindForbidden, "only the owning club or an admin may delete this pair")
	}
	if err := s.store.DeletePair(ctx, pair.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.E(apperrors.KindNotFound, "pair not found")
		}
		return apperrors.Wrap(apperrors.KindUnavailable, "delete pair", err)
	}
	return nil
}

func (s *Service) load(ctx context.Context, pairID string) (storage.Pair, error) {
	pairID = strings.TrimSpace(pairID)
	if pairID == "" {
		return storage.Pair{}, apperrors.E(apperrors.KindInvalidInput, "pair id is required")
	}
	pair, err := s.store.GetPair(ctx, pairID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Pair{}, apperrors.E(apperrors.KindNotFound, "pair not found")
		}
		return storage.Pair{}, apperrors.Wrap(apperrors.KindUnavailable, "load pair", err)
	}
	return pair, nil
}

func validatePairInput(input PairInput) error {
	if strings.TrimSpace(input.Partner1.Name) == "" {
		return apperrors.E(apperrors.KindInvalidInput, "first partner name is required")
	}
	if strings.TrimSpace(input.Partner2.Name) == "" {
		return apperrors.E(apperrors.KindInvalidInput, "second partner name is required")
	}
	return nil
}

func applyPairInput(pair storage.Pair, input PairInput) storage.Pair {
	pair.Partner1 = storage.Partner{
		Name:             strings.TrimSpace(input.Partner1.Name),
		License:          strings.TrimSpace(input.Partner1.License),
		MinQualification: input.Partner1.MinQualification,
		Birthdate:        input.Partner1.Birthdate,
	}
	pair.Partner2 = storage.Partner{
		Name:             strings.TrimSpace(input.Partner2.Name),
		License:          strings.TrimSpace(input.Partner2.License),
		MinQualification: input.Partner2.MinQualification,
		Birthdate:        input.Partner2.Birthdate,
	}
	pair.Coach = strings.TrimSpace(input.Coach)
	pair.AgeCategory = strings.TrimSpace(input.AgeCategory)
	pair.ClassLevel = strings.TrimSpace(input.ClassLevel)
	pair.Discipline = strings.TrimSpace(input.Discipline)
	return pair
}

// Package results implements the judged-results ledger for events.
package results

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mvoicu/dansport/internal/identity"
	apperrors "github.com/mvoicu/dansport/internal/platform/errors"
	"github.com/mvoicu/dansport/internal/platform/id"
	"github.com/mvoicu/dansport/internal/services/federation/domain/authz"
	"github.com/mvoicu/dansport/internal/services/federation/storage"
)

// Store is the persistence boundary for result entries.
type Store interface {
	GetEvent(ctx context.Context, id string) (storage.Event, error)
	GetPair(ctx context.Context, id string) (storage.Pair, error)
	GetRosters(ctx context.Context, eventID string) (storage.Rosters, error)
	InsertResult(ctx context.Context, result storage.Result) error
	GetResult(ctx context.Context, eventID, resultID string) (storage.Result, error)
	ListEventResults(ctx context.Context, eventID string) ([]storage.Result, error)
	DeleteResult(ctx context.Context, eventID, resultID string) error
}

// Service appends and removes result entries under pair-ownership
// authorization.
type Service struct {
	store Store
	clock func() time.Time
	newID func() (string, error)
}

// NewService constructs results ledger use-cases.
func NewService(store Store, clock func() time.Time, newID func() (string, error)) *Service {
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = id.NewID
	}
	return &Service{store: store, clock: clock, newID: newID}
}

// AddInput describes one result submission. Place and Score are optional;
// callers drop non-numeric input before reaching the domain.
type AddInput struct {
	PairID   string
	Category string
	Round    string
	Place    *int
	Score    *float64
}

// Add appends one timestamped, actor-stamped result entry. Club uploaders
// must scope the entry to an attending pair they own.
func (s *Service) Add(ctx context.Context, actor identity.Actor, eventID string, input AddInput) (storage.Result, error) {
	if s == nil || s.store == nil {
		return storage.Result{}, apperrors.E(apperrors.KindUnavailable, "result store is not configured")
	}
	if actor.IsAnonymous() {
		return storage.Result{}, apperrors.E(apperrors.KindUnauthorized, "authentication required")
	}
	event, rosters, err := s.loadEventWithRosters(ctx, eventID)
	if err != nil {
		return storage.Result{}, err
	}

	isCreator := actor.ID == event.CreatorID
	isClubUploader := actor.Role == identity.RoleClub && authz.ClubOwnsAttendingPair(rosters, actor.ID)
	if !isCreator && !actor.IsPrivileged() && !isClubUploader {
		return storage.Result{}, apperrors.E(apperrors.KindForbidden, "not allowed to record results for this event")
	}

	pairID := strings.TrimSpace(input.PairID)
	if isClubUploader && !isCreator && !actor.IsPrivileged() {
		if pairID == "" {
			return storage.Result{}, apperrors.E(apperrors.KindInvalidInput, "club results must name a pair")
		}
		pair, attending := authz.AttendingPair(rosters, pairID)
		if !attending {
			return storage.Result{}, apperrors.E(apperrors.KindInvalidInput, "pair is not attending this event")
		}
		if pair.ClubID != actor.ID {
			return storage.Result{}, apperrors.E(apperrors.KindForbidden, "pair belongs to another club")
		}
	} else if pairID != "" {
		if _, attending := authz.AttendingPair(rosters, pairID); !attending {
			return storage.Result{}, apperrors.E(apperrors.KindInvalidInput, "pair is not attending this event")
		}
	}

	resultID, err := s.newID()
	if err != nil {
		return storage.Result{}, apperrors.Wrap(apperrors.KindUnknown, "generate result id", err)
	}
	result := storage.Result{
		ID:        resultID,
		EventID:   event.ID,
		PairID:    pairID,
		CreatedBy: actor.ID,
		Category:  strings.TrimSpace(input.Category),
		Round:     strings.TrimSpace(input.Round),
		Place:     input.Place,
		Score:     input.Score,
		CreatedAt: s.clock().UTC(),
	}
	if err := s.store.InsertResult(ctx, result); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Result{}, apperrors.E(apperrors.KindNotFound, "event not found")
		}
		return storage.Result{}, apperrors.Wrap(apperrors.KindUnavailable, "persist result", err)
	}
	return result, nil
}

// List returns an event's results in insertion order.
func (s *Service) List(ctx context.Context, eventID string) ([]storage.Result, error) {
	if s == nil || s.store == nil {
		return nil, apperrors.E(apperrors.KindUnavailable, "result store is not configured")
	}
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	results, err := s.store.ListEventResults(ctx, event.ID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "list results", err)
	}
	return results, nil
}

// Remove deletes one result entry. The entry's creator, the event
// creator, an admin/judge-class actor, or the club owning a pair-scoped
// result's pair may remove it. Ownership is resolved against the pair
// registry because results outlive roster membership. Pair-less results
// stay out of reach of club uploaders.
func (s *Service) Remove(ctx context.Context, actor identity.Actor, eventID, resultID string) error {
	if s == nil || s.store == nil {
		return apperrors.E(apperrors.KindUnavailable, "result store is not configured")
	}
	if actor.IsAnonymous() {
		return apperrors.E(apperrors.KindUnauthorized, "authentication required")
	}
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return err
	}
	resultID = strings.TrimSpace(resultID)
	if resultID == "" {
		return apperrors.E(apperrors.KindInvalidInput, "result id is required")
	}
	result, err := s.store.GetResult(ctx, event.ID, resultID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.E(apperrors.KindNotFound, "result not found")
		}
		return apperrors.Wrap(apperrors.KindUnavailable, "load result", err)
	}

	allowed := result.CreatedBy == actor.ID ||
		event.CreatorID == actor.ID ||
		actor.IsPrivileged()
	if !allowed && result.PairID != "" && actor.Role == identity.RoleClub {
		pair, pairErr := s.store.GetPair(ctx, result.PairID)
		switch {
		case pairErr == nil:
			if pair.ClubID == actor.ID {
				allowed = true
			}
		case errors.Is(pairErr, storage.ErrNotFound):
			// deleted pair leaves no ownership anchor
		default:
			return apperrors.Wrap(apperrors.KindUnavailable, "load pair", pairErr)
		}
	}
	if !allowed {
		return apperrors.E(apperrors.KindForbidden, "not allowed to remove this result")
	}

	if err := s.store.DeleteResult(ctx, event.ID, result.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.E(apperrors.KindNotFound, "result not found")
		}
		return apperrors.Wrap(apperrors.KindUnavailable, "delete result", err)
	}
	return nil
}

func (s *Service) loadEvent(ctx context.Context, eventID string) (storage.Event, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return storage.Event{}, apperrors.E(apperrors.KindInvalidInput, "event id is required")
	}
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Event{}, apperrors.E(apperrors.KindNotFound, "event not found")
		}
		return storage.Event{}, apperrors.Wrap(apperrors.KindUnavailable, "load event", err)
	}
	return event, nil
}

func (s *Service) loadEventWithRosters(ctx context.Context, eventID string) (storage.Event, storage.Rosters, error) {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return storage.Event{}, storage.Rosters{}, err
	}
	rosters, err := s.store.GetRosters(ctx, event.ID)
	if err != nil {
		return storage.Event{}, storage.Rosters{}, apperrors.Wrap(apperrors.KindUnavailable, "load rosters", err)
	}
	return event, rosters, nil
}

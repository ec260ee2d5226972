// Package participation mutates event rosters under ownership rules.
//
// Roster edits are delegated to atomic storage-level set operations, never
// read-modify-write, so concurrent calls from different clubs cannot lose
// updates.
package participation

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

// Store is the persistence boundary for roster behavior.
type Store interface {
	GetEvent(ctx context.Context, id string) (storage.Event, error)
	ListPairsByIDs(ctx context.Context, ids []string) ([]storage.Pair, error)
	AddEventPairs(ctx context.Context, eventID string, pairIDs []string, at time.Time) error
	RemoveEventPairs(ctx context.Context, eventID string, pairIDs []string) error
	AddEventJudge(ctx context.Context, eventID, judgeID string, at time.Time) error
	RemoveEventJudge(ctx context.Context, eventID, judgeID string) error
	GetRosters(ctx context.Context, eventID string) (storage.Rosters, error)
	InsertSolicitation(ctx context.Context, solicitation storage.Solicitation) error
	ListEventSolicitations(ctx context.Context, eventID string) ([]storage.Solicitation, error)
}

// EventWithRosters is an event with its populated pair and judge rosters.
type EventWithRosters struct {
	Event   storage.Event
	Rosters storage.Rosters
}

// Service mutates event pair and judge rosters.
type Service struct {
	store Store
	clock func() time.Time
	newID func() (string, error)
}

// NewService constructs participation use-cases.
func NewService(store Store, clock func() time.Time, newID func() (string, error)) *Service {
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = id.NewID
	}
	return &Service{store: store, clock: clock, newID: newID}
}

// AddPairs attaches the actor's pairs to an event roster. Unowned pair
// ids are silently excluded; an empty valid set fails with Forbidden. The
// union is idempotent.
func (s *Service) AddPairs(ctx context.Context, actor identity.Actor, eventID string, pairIDs []string) (EventWithRosters, error) {
	if s == nil || s.store == nil {
		return EventWithRosters{}, apperrors.E(apperrors.KindUnavailable, "participation store is not configured")
	}
	event, owned, err := s.resolveOwnedPairs(ctx, actor, eventID, pairIDs)
	if err != nil {
		return EventWithRosters{}, err
	}
	if err := s.store.AddEventPairs(ctx, event.ID, owned, s.clock().UTC()); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// The roster insert references both the event and the pair, so
			// either row may have vanished since the ownership check.
			return EventWithRosters{}, apperrors.E(apperrors.KindNotFound, "event or pair no longer exists")
		}
		return EventWithRosters{}, apperrors.Wrap(apperrors.KindUnavailable, "add event pairs", err)
	}
	return s.eventWithRosters(ctx, event)
}

// RemovePairs detaches the actor's pairs from an event roster, with the
// same ownership filter as AddPairs. Idempotent.
func (s *Service) RemovePairs(ctx context.Context, actor identity.Actor, eventID string, pairIDs []string) (EventWithRosters, error) {
	if s == nil || s.store == nil {
		return EventWithRosters{}, apperrors.E(apperrors.KindUnavailable, "participation store is not configured")
	}
	event, owned, err := s.resolveOwnedPairs(ctx, actor, eventID, pairIDs)
	if err != nil {
		return EventWithRosters{}, err
	}
	if err := s.store.RemoveEventPairs(ctx, event.ID, owned); err != nil {
		return EventWithRosters{}, apperrors.Wrap(apperrors.KindUnavailable, "remove event pairs", err)
	}
	return s.eventWithRosters(ctx, event)
}

// SetJudgeAttendance adds or removes the acting judge on an event roster.
// Idempotent in both directions.
func (s *Service) SetJudgeAttendance(ctx context.Context, actor identity.Actor, eventID string, attending bool) (EventWithRosters, error) {
	if s == nil || s.store == nil {
		return EventWithRosters{}, apperrors.E(apperrors.KindUnavailable, "participation store is not configured")
	}
	if actor.IsAnonymous() {
		return EventWithRosters{}, apperrors.E(apperrors.KindUnauthorized, "authentication required")
	}
	if actor.Role != identity.RoleJudge {
		return EventWithRosters{}, apperrors.E(apperrors.KindForbidden, "only judges may set judge attendance")
	}
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return EventWithRosters{}, err
	}

	if attending {
		err = s.store.AddEventJudge(ctx, event.ID, actor.ID, s.clock().UTC())
	} else {
		err = s.store.RemoveEventJudge(ctx, event.ID, actor.ID)
	}
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return EventWithRosters{}, apperrors.E(apperrors.KindNotFound, "event not found")
		}
		return EventWithRosters{}, apperrors.Wrap(apperrors.KindUnavailable, "set judge attendance", err)
	}
	return s.eventWithRosters(ctx, event)
}

// GetRosters returns an event's populated rosters.
func (s *Service) GetRosters(ctx context.Context, eventID string) (storage.Rosters, error) {
	if s == nil || s.store == nil {
		return storage.Rosters{}, apperrors.E(apperrors.KindUnavailable, "participation store is not configured")
	}
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return storage.Rosters{}, err
	}
	rosters, err := s.store.GetRosters(ctx, event.ID)
	if err != nil {
		return storage.Rosters{}, apperrors.Wrap(apperrors.KindUnavailable, "load rosters", err)
	}
	return rosters, nil
}

// Solicit registers a club's interest in participating in an event. A
// second solicitation for the same event and club fails with Conflict.
func (s *Service) Solicit(ctx context.Context, actor identity.Actor, eventID, message string) (storage.Solicitation, error) {
	if s == nil || s.store == nil {
		return storage.Solicitation{}, apperrors.E(apperrors.KindUnavailable, "participation store is not configured")
	}
	if actor.IsAnonymous() {
		return storage.Solicitation{}, apperrors.E(apperrors.KindUnauthorized, "authentication required")
	}
	if actor.Role != identity.RoleClub {
		return storage.Solicitation{}, apperrors.E(apperrors.KindForbidden, "only clubs may solicit participation")
	}
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return storage.Solicitation{}, err
	}

	solicitationID, err := s.newID()
	if err != nil {
		return storage.Solicitation{}, apperrors.Wrap(apperrors.KindUnknown, "generate solicitation id", err)
	}
	solicitation := storage.Solicitation{
		ID:        solicitationID,
		EventID:   event.ID,
		ClubID:    actor.ID,
		Message:   strings.TrimSpace(message),
		CreatedAt: s.clock().UTC(),
	}
	if err := s.store.InsertSolicitation(ctx, solicitation); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return storage.Solicitation{}, apperrors.E(apperrors.KindConflict, "club already solicited this event")
		}
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Solicitation{}, apperrors.E(apperrors.KindNotFound, "event not found")
		}
		return storage.Solicitation{}, apperrors.Wrap(apperrors.KindUnavailable, "persist solicitation", err)
	}
	return solicitation, nil
}

// ListSolicitations lists an event's participation requests for the event
// creator and admin/judge-class actors.
func (s *Service) ListSolicitations(ctx context.Context, actor identity.Actor, eventID string) ([]storage.Solicitation, error) {
	if s == nil || s.store == nil {
		return nil, apperrors.E(apperrors.KindUnavailable, "participation store is not configured")
	}
	if actor.IsAnonymous() {
		return nil, apperrors.E(apperrors.KindUnauthorized, "authentication required")
	}
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.CreatorID != actor.ID && !actor.IsPrivileged() {
		return nil, apperrors.E(apperrors.KindForbidden, "only the event creator, an admin, or a judge may list solicitations")
	}
	solicitations, err := s.store.ListEventSolicitations(ctx, event.ID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "list solicitations", err)
	}
	return solicitations, nil
}

// resolveOwnedPairs re-derives pair ownership from the registry at call
// time; client-supplied ownership claims are never trusted.
func (s *Service) resolveOwnedPairs(ctx context.Context, actor identity.Actor, eventID string, pairIDs []string) (storage.Event, []string, error) {
	if actor.IsAnonymous() {
		return storage.Event{}, nil, apperrors.E(apperrors.KindUnauthorized, "authentication required")
	}
	if actor.Role != identity.RoleClub {
		return storage.Event{}, nil, apperrors.E(apperrors.KindForbidden, "only clubs may manage pair rosters")
	}
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return storage.Event{}, nil, err
	}
	pairs, err := s.store.ListPairsByIDs(ctx, pairIDs)
	if err != nil {
		return storage.Event{}, nil, apperrors.Wrap(apperrors.KindUnavailable, "load pairs", err)
	}
	owned := authz.OwnedPairIDs(pairs, actor.ID)
	if len(owned) == 0 {
		return storage.Event{}, nil, apperrors.E(apperrors.KindForbidden, "no pairs owned by this club")
	}
	return event, owned, nil
}

func (s *Service) eventWithRosters(ctx context.Context, event storage.Event) (EventWithRosters, error) {
	rosters, err := s.store.GetRosters(ctx, event.ID)
	if err != nil {
		return EventWithRosters{}, apperrors.Wrap(apperrors.KindUnavailable, "load rosters", err)
	}
	return EventWithRosters{Event: event, Rosters: rosters}, nil
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

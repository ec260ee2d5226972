// Package events implements event lifecycle and approval gatekeeping.
package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mvoicu/dansport/internal/identity"
	apperrors "github.com/mvoicu/dansport/internal/platform/errors"
	"github.com/mvoicu/dansport/internal/platform/id"
	"github.com/mvoicu/dansport/internal/services/federation/domain/authz"
	"github.com/mvoicu/dansport/internal/services/federation/storage"
)

// Store is the persistence boundary for event lifecycle behavior.
type Store interface {
	PutEvent(ctx context.Context, event storage.Event) error
	GetEvent(ctx context.Context, id string) (storage.Event, error)
	ListEvents(ctx context.Context, filter storage.EventFilter) ([]storage.Event, error)
	SetEventApproval(ctx context.Context, id string, approved bool, at time.Time) error
	DeleteEvent(ctx context.Context, id string) error
}

// Service orchestrates event creation, listing, and the approval workflow.
type Service struct {
	store Store
	clock func() time.Time
	newID func() (string, error)
}

// NewService constructs event domain use-cases.
func NewService(store Store, clock func() time.Time, newID func() (string, error)) *Service {
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = id.NewID
	}
	return &Service{store: store, clock: clock, newID: newID}
}

// CreateInput describes one event creation request.
type CreateInput struct {
	Title       string
	Description string
	Location    string
	StartAt     time.Time
	EndAt       *time.Time
	AllDay      bool
}

// UpdateInput carries editable event fields.
type UpdateInput struct {
	Title       string
	Description string
	Location    string
	StartAt     time.Time
	EndAt       *time.Time
	AllDay      bool
}

// ListInput scopes event listing.
type ListInput struct {
	From *time.Time
	To   *time.Time
}

// Create registers a new event. Admin-created events start approved;
// dancer-class actors may not create events at all.
func (s *Service) Create(ctx context.Context, actor identity.Actor, input CreateInput) (storage.Event, error) {
	if s == nil || s.store == nil {
		return storage.Event{}, apperrors.E(apperrors.KindUnavailable, "event store is not configured")
	}
	if actor.IsAnonymous() {
		return storage.Event{}, apperrors.E(apperrors.KindUnauthorized, "authentication required")
	}
	if actor.Role == identity.RoleDancer {
		return storage.Event{}, apperrors.E(apperrors.KindForbidden, "dancers may not create events")
	}
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return storage.Event{}, apperrors.E(apperrors.KindInvalidInput, "title is required")
	}
	if input.StartAt.IsZero() {
		return storage.Event{}, apperrors.E(apperrors.KindInvalidInput, "start time is required")
	}
	if input.EndAt != nil && input.EndAt.Before(input.StartAt) {
		return storage.Event{}, apperrors.E(apperrors.KindInvalidInput, "end time precedes start time")
	}

	eventID, err := s.newID()
	if err != nil {
		return storage.Event{}, apperrors.Wrap(apperrors.KindUnknown, "generate event id", err)
	}
	now := s.clock().UTC()
	event := storage.Event{
		ID:          eventID,
		CreatorID:   actor.ID,
		Title:       input.Title,
		Description: strings.TrimSpace(input.Description),
		Location:    strings.TrimSpace(input.Location),
		StartAt:     input.StartAt.UTC(),
		EndAt:       input.EndAt,
		AllDay:      input.AllDay,
		IsApproved:  actor.Role == identity.RoleAdmin,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.PutEvent(ctx, event); err != nil {
		return storage.Event{}, apperrors.Wrap(apperrors.KindUnavailable, "persist event", err)
	}
	return event, nil
}

// Get loads one event. Unapproved events are visible only to their
// creator and admin/judge-class actors.
func (s *Service) Get(ctx context.Context, actor identity.Actor, eventID string) (storage.Event, error) {
	if s == nil || s.store == nil {
		return storage.Event{}, apperrors.E(apperrors.KindUnavailable, "event store is not configured")
	}
	event, err := s.load(ctx, eventID)
	if err != nil {
		return storage.Event{}, err
	}
	if !event.IsApproved && event.CreatorID != actor.ID && !actor.IsPrivileged() {
		return storage.Event{}, apperrors.E(apperrors.KindNotFound, "event not found")
	}
	return event, nil
}

// List returns the events visible to the actor ordered by start time.
func (s *Service) List(ctx context.Context, actor identity.Actor, input ListInput) ([]storage.Event, error) {
	if s == nil || s.store == nil {
		return nil, apperrors.E(apperrors.KindUnavailable, "event store is not configured")
	}
	events, err := s.store.ListEvents(ctx, storage.EventFilter{
		RequesterID: actor.ID,
		Privileged:  actor.IsPrivileged(),
		From:        input.From,
		To:          input.To,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "list events", err)
	}
	return events, nil
}

// Update edits schedule and description fields. Only the creator or an
// admin may update; approval status never changes here.
func (s *Service) Update(ctx context.Context, actor identity.Actor, eventID string, input UpdateInput) (storage.Event, error) {
	if s == nil || s.store == nil {
		return storage.Event{}, apperrors.E(apperrors.KindUnavailable, "event store is not configured")
	}
	if actor.IsAnonymous() {
		return storage.Event{}, apperrors.E(apperrors.KindUnauthorized, "authentication required")
	}
	event, err := s.load(ctx, eventID)
	if err != nil {
		return storage.Event{}, err
	}
	if !authz.CanManageEvent(actor, event) {
		return storage.Event{}, apperrors.E(apperrors.KindForbidden, "only the event creator or an admin may edit this event")
	}
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return storage.Event{}, apperrors.E(apperrors.KindInvalidInput, "title is required")
	}
	if input.StartAt.IsZero() {
		return storage.Event{}, apperrors.E(apperrors.KindInvalidInput, "start time is required")
	}
	if input.EndAt != nil && input.EndAt.Before(input.StartAt) {
		return storage.Event{}, apperrors.E(apperrors.KindInvalidInput, "end time precedes start time")
	}

	event.Title = input.Title
	event.Description = strings.TrimSpace(input.Description)
	event.Location = strings.TrimSpace(input.Location)
	event.StartAt = input.StartAt.UTC()
	event.EndAt = input.EndAt
	event.AllDay = input.AllDay
	event.UpdatedAt = s.clock().UTC()
	if err := s.store.PutEvent(ctx, event); err != nil {
		return storage.Event{}, apperrors.Wrap(apperrors.KindUnavailable, "persist event", err)
	}
	return event, nil
}

// Delete removes an event and its attached metadata. Photo bytes in blob
// storage are untouched; only the explicit photo-deletion path removes
// them.
func (s *Service) Delete(ctx context.Context, actor identity.Actor, eventID string) error {
	if s == nil || s.store == nil {
		return apperrors.E(apperrors.KindUnavailable, "event store is not configured")
	}
	if actor.IsAnonymous() {
		return apperrors.E(apperrors.KindUnauthorized, "authentication required")
	}
	event, err := s.load(ctx, eventID)
	if err != nil {
		return err
	}
	if event.CreatorID != actor.ID && !actor.IsPrivileged() {
		return apperrors.E(apperrors.KindForbidden, "only the event creator, an admin, or a judge may delete this event")
	}
	if err := s.store.DeleteEvent(ctx, event.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.E(apperrors.KindNotFound, "event not found")
		}
		return apperrors.Wrap(apperrors.KindUnavailable, "delete event", err)
	}
	return nil
}

// Approve flips one pending event to approved. One-way and admin-only.
func (s *Service) Approve(ctx context.Context, actor identity.Actor, eventID string) (storage.Event, error) {
	if s == nil || s.store == nil {
		return storage.Event{}, apperrors.E(apperrors.KindUnavailable, "event store is not configured")
	}
	if actor.IsAnonymous() {
		return storage.Event{}, apperrors.E(apperrors.KindUnauthorized, "authentication required")
	}
	if actor.Role != identity.RoleAdmin {
		return storage.Event{}, apperrors.E(apperrors.KindForbidden, "only an admin may approve events")
	}
	event, err := s.load(ctx, eventID)
	if err != nil {
		return storage.Event{}, err
	}
	if event.IsApproved {
		return event, nil
	}
	now := s.clock().UTC()
	if err := s.store.SetEventApproval(ctx, event.ID, true, now); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Event{}, apperrors.E(apperrors.KindNotFound, "event not found")
		}
		return storage.Event{}, apperrors.Wrap(apperrors.KindUnavailable, "approve event", err)
	}
	event.IsApproved = true
	event.UpdatedAt = now
	return event, nil
}

// Reject hard-deletes one pending event. There is no rejected resting
// state.
func (s *Service) Reject(ctx context.Context, actor identity.Actor, eventID string) error {
	if s == nil || s.store == nil {
		return apperrors.E(apperrors.KindUnavailable, "event store is not configured")
	}
	if actor.IsAnonymous() {
		return apperrors.E(apperrors.KindUnauthorized, "authentication required")
	}
	if actor.Role != identity.RoleAdmin {
		return apperrors.E(apperrors.KindForbidden, "only an admin may reject events")
	}
	event, err := s.load(ctx, eventID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteEvent(ctx, event.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.E(apperrors.KindNotFound, "event not found")
		}
		return apperrors.Wrap(apperrors.KindUnavailable, "reject event", err)
	}
	return nil
}

func (s *Service) load(ctx context.Context, eventID string) (storage.Event, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return storage.Event{}, apperrors.E(apperrors.KindInvalidInput, "event id is required")
	}
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Event{}, apperrors.E(apperrors.KindNotFound, "event not found")
		}
		return storage.Event{}, apperrors.Wrap(apperrors.KindUnavailable, fmt.Sprintf("load event %s", eventID), err)
	}
	return event, nil
}

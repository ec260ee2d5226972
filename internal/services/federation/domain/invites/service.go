// Package invites gates who may trigger event invitation email.
package invites

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mvoicu/dansport/internal/identity"
	apperrors "github.com/mvoicu/dansport/internal/platform/errors"
	"github.com/mvoicu/dansport/internal/services/federation/domain/authz"
	"github.com/mvoicu/dansport/internal/services/federation/mail"
	"github.com/mvoicu/dansport/internal/services/federation/storage"
)

// Store is the persistence boundary for invite gating.
type Store interface {
	GetEvent(ctx context.Context, id string) (storage.Event, error)
	GetRosters(ctx context.Context, eventID string) (storage.Rosters, error)
}

// Service composes and dispatches event invitations. Its only real
// responsibility is the authorization gate; template logic stays minimal.
type Service struct {
	store  Store
	mailer mail.Sender
}

// NewService constructs invitation use-cases.
func NewService(store Store, mailer mail.Sender) *Service {
	return &Service{store: store, mailer: mailer}
}

// SendInput describes one invitation dispatch.
type SendInput struct {
	To      []string
	Message string
}

// Send dispatches an invitation for one event. Only the event creator, an
// attending judge, or an admin may trigger a send.
func (s *Service) Send(ctx context.Context, actor identity.Actor, eventID string, input SendInput) error {
	if s == nil || s.store == nil || s.mailer == nil {
		return apperrors.E(apperrors.KindUnavailable, "invite dispatch is not configured")
	}
	if actor.IsAnonymous() {
		return apperrors.E(apperrors.KindUnauthorized, "authentication required")
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return apperrors.E(apperrors.KindInvalidInput, "event id is required")
	}
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.E(apperrors.KindNotFound, "event not found")
		}
		return apperrors.Wrap(apperrors.KindUnavailable, "load event", err)
	}

	allowed := actor.ID == event.CreatorID || actor.Role == identity.RoleAdmin
	if !allowed && actor.Role == identity.RoleJudge {
		rosters, rostersErr := s.store.GetRosters(ctx, event.ID)
		if rostersErr != nil {
			return apperrors.Wrap(apperrors.KindUnavailable, "load rosters", rostersErr)
		}
		allowed = authz.JudgeAttending(rosters, actor.ID)
	}
	if !allowed {
		return apperrors.E(apperrors.KindForbidden, "only the event creator, an attending judge, or an admin may send invitations")
	}

	recipients := make([]string, 0, len(input.To))
	for _, to := range input.To {
		to = strings.TrimSpace(to)
		if to != "" {
			recipients = append(recipients, to)
		}
	}
	if len(recipients) == 0 {
		return apperrors.E(apperrors.KindInvalidInput, "at least one recipient is required")
	}

	body := fmt.Sprintf("You are invited to %s", event.Title)
	if event.Location != "" {
		body += fmt.Sprintf(" at %s", event.Location)
	}
	body += fmt.Sprintf(" on %s.", event.StartAt.Format("2 January 2006"))
	if message := strings.TrimSpace(input.Message); message != "" {
		body += "\n\n" + message
	}

	if err := s.mailer.Send(ctx, mail.Message{
		To:      recipients,
		Subject: "Invitation: " + event.Title,
		Body:    body,
	}); err != nil {
		return apperrors.Wrap(apperrors.KindUnavailable, "send invitation", err)
	}
	return nil
}

package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/mvoicu/dansport/internal/services/federation/storage"
)

// InsertSolicitation records one club's participation request. A second
// request for the same event and club returns ErrAlreadyExists.
func (s *Store) InsertSolicitation(ctx context.Context, solicitation storage.Solicitation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	solicitation.ID = strings.TrimSpace(solicitation.ID)
	solicitation.EventID = strings.TrimSpace(solicitation.EventID)
	solicitation.ClubID = strings.TrimSpace(solicitation.ClubID)
	if solicitation.ID == "" {
		return fmt.Errorf("solicitation id is required")
	}
	if solicitation.EventID == "" {
		return fmt.Errorf("event id is required")
	}
	if solicitation.ClubID == "" {
		return fmt.Errorf("club id is required")
	}
	if solicitation.CreatedAt.IsZero() {
		return fmt.Errorf("created_at is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO solicitations (id, event_id, club_id, message, created_at)
VALUES (?, ?, ?, ?, ?)
`,
		solicitation.ID,
		solicitation.EventID,
		solicitation.ClubID,
		solicitation.Message,
		toMillis(solicitation.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrAlreadyExists
		}
		if isForeignKeyConstraintError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("insert solicitation: %w", err)
	}
	return nil
}

// ListEventSolicitations lists an event's participation requests,
// oldest-first.
func (s *Store) ListEventSolicitations(ctx context.Context, eventID string) ([]storage.Solicitation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return nil, fmt.Errorf("event id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, event_id, club_id, message, created_at
FROM solicitations
WHERE event_id = ?
ORDER BY created_at ASC, id ASC
`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list solicitations: %w", err)
	}
	defer rows.Close()

	var solicitations []storage.Solicitation
	for rows.Next() {
		var solicitation storage.Solicitation
		var createdAt int64
		if err := rows.Scan(
			&solicitation.ID,
			&solicitation.EventID,
			&solicitation.ClubID,
			&solicitation.Message,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan solicitation row: %w", err)
		}
		solicitation.CreatedAt = fromMillis(createdAt)
		solicitations = append(solicitations, solicitation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate solicitation rows: %w", err)
	}
	return solicitations, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mvoicu/dansport/internal/services/federation/storage"
)

const eventColumns = `id, creator_id, title, description, location, start_at, end_at, all_day, is_approved, created_at, updated_at`

// PutEvent upserts one event row.
func (s *Store) PutEvent(ctx context.Context, event storage.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	normalized, err := normalizeEvent(event)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(ctx, `
	INSERT INTO events (
		id, creator_id, title, description, location, start_at, end_at, all_day, is_approved, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		description = excluded.description,
		location = excluded.location,
		start_at = excluded.start_at,
		end_at = excluded.end_at,
		all_day = excluded.all_day,
		is_approved = excluded.is_approved,
		updated_at = excluded.updated_at
	`,
		normalized.ID,
		normalized.CreatorID,
		normalized.Title,
		normalized.Description,
		normalized.Location,
		toMillis(normalized.StartAt),
		nullMillis(normalized.EndAt),
		boolToInt(normalized.AllDay),
		boolToInt(normalized.IsApproved),
		toMillis(normalized.CreatedAt),
		toMillis(normalized.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put event: %w", err)
	}
	return nil
}

// GetEvent loads one event by id.
func (s *Store) GetEvent(ctx context.Context, id string) (storage.Event, error) {
	if err := ctx.Err(); err != nil {
		return storage.Event{}, err
	}
	if err := s.ready(); err != nil {
		return storage.Event{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.Event{}, fmt.Errorf("event id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+eventColumns+`
FROM events
WHERE id = ?
`, id)
	event, err := scanEvent(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Event{}, storage.ErrNotFound
		}
		return storage.Event{}, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// ListEvents lists visible events ordered by start time. Unapproved events
// appear only for their creator unless the filter is privileged.
func (s *Store) ListEvents(ctx context.Context, filter storage.EventFilter) ([]storage.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	query := `
SELECT ` + eventColumns + `
FROM events
WHERE 1 = 1
`
	var args []any
	if !filter.Privileged {
		query += "  AND (is_approved = 1 OR creator_id = ?)\n"
		args = append(args, strings.TrimSpace(filter.RequesterID))
	}
	if filter.From != nil {
		query += "  AND start_at >= ?\n"
		args = append(args, toMillis(*filter.From))
	}
	if filter.To != nil {
		query += "  AND start_at <= ?\n"
		args = append(args, toMillis(*filter.To))
	}
	query += "ORDER BY start_at ASC, id ASC\n"

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []storage.Event
	for rows.Next() {
		event, scanErr := scanEvent(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan event row: %w", scanErr)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}
	return events, nil
}

// SetEventApproval flips one event's approval flag.
func (s *Store) SetEventApproval(ctx context.Context, id string, approved bool, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("event id is required")
	}
	if at.IsZero() {
		return fmt.Errorf("approval time is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE events
SET is_approved = ?, updated_at = ?
WHERE id = ?
`, boolToInt(approved), toMillis(at), id)
	if err != nil {
		return fmt.Errorf("set event approval: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set event approval rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteEvent removes one event. Rosters, photos, results, and
// solicitations cascade.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("event id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete event rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func normalizeEvent(event storage.Event) (storage.Event, error) {
	event.ID = strings.TrimSpace(event.ID)
	event.CreatorID = strings.TrimSpace(event.CreatorID)
	event.Title = strings.TrimSpace(event.Title)
	if event.ID == "" {
		return storage.Event{}, fmt.Errorf("event id is required")
	}
	if event.CreatorID == "" {
		return storage.Event{}, fmt.Errorf("creator id is required")
	}
	if event.Title == "" {
		return storage.Event{}, fmt.Errorf("event title is required")
	}
	if event.StartAt.IsZero() {
		return storage.Event{}, fmt.Errorf("event start is required")
	}
	if event.CreatedAt.IsZero() {
		return storage.Event{}, fmt.Errorf("created_at is required")
	}
	if event.UpdatedAt.IsZero() {
		return storage.Event{}, fmt.Errorf("updated_at is required")
	}
	event.StartAt = event.StartAt.UTC()
	if event.EndAt != nil {
		endAt := event.EndAt.UTC()
		event.EndAt = &endAt
	}
	event.CreatedAt = event.CreatedAt.UTC()
	event.UpdatedAt = event.UpdatedAt.UTC()
	return event, nil
}

func scanEvent(scan scanner) (storage.Event, error) {
	var event storage.Event
	var startAt int64
	var endAt sql.NullInt64
	var allDay, isApproved int
	var createdAt, updatedAt int64
	if err := scan(
		&event.ID,
		&event.CreatorID,
		&event.Title,
		&event.Description,
		&event.Location,
		&startAt,
		&endAt,
		&allDay,
		&isApproved,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.Event{}, err
	}
	event.StartAt = fromMillis(startAt)
	event.EndAt = millisPtr(endAt)
	event.AllDay = allDay != 0
	event.IsApproved = isApproved != 0
	event.CreatedAt = fromMillis(createdAt)
	event.UpdatedAt = fromMillis(updatedAt)
	return event, nil
}

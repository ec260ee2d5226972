package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mvoicu/dansport/internal/services/federation/storage"
)

const resultColumns = `id, event_id, pair_id, created_by, category, round, place, score, created_at`

// InsertResult appends one result entry to an event's ledger.
func (s *Store) InsertResult(ctx context.Context, result storage.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	normalized, err := normalizeResult(result)
	if err != nil {
		return err
	}

	var place sql.NullInt64
	if normalized.Place != nil {
		place = sql.NullInt64{Int64: int64(*normalized.Place), Valid: true}
	}
	var score sql.NullFloat64
	if normalized.Score != nil {
		score = sql.NullFloat64{Float64: *normalized.Score, Valid: true}
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO results (id, event_id, pair_id, created_by, category, round, place, score, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		normalized.ID,
		normalized.EventID,
		normalized.PairID,
		normalized.CreatedBy,
		normalized.Category,
		normalized.Round,
		place,
		score,
		toMillis(normalized.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrAlreadyExists
		}
		if isForeignKeyConstraintError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// GetResult loads one event result by id.
func (s *Store) GetResult(ctx context.Context, eventID, resultID string) (storage.Result, error) {
	if err := ctx.Err(); err != nil {
		return storage.Result{}, err
	}
	if err := s.ready(); err != nil {
		return storage.Result{}, err
	}
	eventID = strings.TrimSpace(eventID)
	resultID = strings.TrimSpace(resultID)
	if eventID == "" {
		return storage.Result{}, fmt.Errorf("event id is required")
	}
	if resultID == "" {
		return storage.Result{}, fmt.Errorf("result id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+resultColumns+`
FROM results
WHERE event_id = ? AND id = ?
`, eventID, resultID)
	result, err := scanResult(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Result{}, storage.ErrNotFound
		}
		return storage.Result{}, fmt.Errorf("get result: %w", err)
	}
	return result, nil
}

// ListEventResults lists an event's results in insertion order.
func (s *Store) ListEventResults(ctx context.Context, eventID string) ([]storage.Result, error) {
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
SELECT `+resultColumns+`
FROM results
WHERE event_id = ?
ORDER BY created_at ASC, id ASC
`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list event results: %w", err)
	}
	defer rows.Close()

	var results []storage.Result
	for rows.Next() {
		result, scanErr := scanResult(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan result row: %w", scanErr)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate result rows: %w", err)
	}
	return results, nil
}

// DeleteResult removes one result entry from an event's ledger.
func (s *Store) DeleteResult(ctx context.Context, eventID, resultID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	eventID = strings.TrimSpace(eventID)
	resultID = strings.TrimSpace(resultID)
	if eventID == "" {
		return fmt.Errorf("event id is required")
	}
	if resultID == "" {
		return fmt.Errorf("result id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM results WHERE event_id = ? AND id = ?
`, eventID, resultID)
	if err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete result rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func normalizeResult(result storage.Result) (storage.Result, error) {
	result.ID = strings.TrimSpace(result.ID)
	result.EventID = strings.TrimSpace(result.EventID)
	result.PairID = strings.TrimSpace(result.PairID)
	result.CreatedBy = strings.TrimSpace(result.CreatedBy)
	result.Category = strings.TrimSpace(result.Category)
	result.Round = strings.TrimSpace(result.Round)
	if result.ID == "" {
		return storage.Result{}, fmt.Errorf("result id is required")
	}
	if result.EventID == "" {
		return storage.Result{}, fmt.Errorf("event id is required")
	}
	if result.CreatedBy == "" {
		return storage.Result{}, fmt.Errorf("creator id is required")
	}
	if result.CreatedAt.IsZero() {
		return storage.Result{}, fmt.Errorf("created_at is required")
	}
	result.CreatedAt = result.CreatedAt.UTC()
	return result, nil
}

func scanResult(scan scanner) (storage.Result, error) {
	var result storage.Result
	var place sql.NullInt64
	var score sql.NullFloat64
	var createdAt int64
	if err := scan(
		&result.ID,
		&result.EventID,
		&result.PairID,
		&result.CreatedBy,
		&result.Category,
		&result.Round,
		&place,
		&score,
		&createdAt,
	); err != nil {
		return storage.Result{}, err
	}
	if place.Valid {
		value := int(place.Int64)
		result.Place = &value
	}
	if score.Valid {
		value := score.Float64
		result.Score = &value
	}
	result.CreatedAt = fromMillis(createdAt)
	return result, nil
}

package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mvoicu/dansport/internal/services/federation/storage"
)

// AddEventPairs appends pairs to an event roster as a set union. Pairs
// already on the roster are left untouched, so concurrent additions from
// different clubs never clobber each other.
func (s *Store) AddEventPairs(ctx context.Context, eventID string, pairIDs []string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return fmt.Errorf("event id is required")
	}
	cleaned := cleanIDs(pairIDs)
	if len(cleaned) == 0 {
		return nil
	}
	if at.IsZero() {
		return fmt.Errorf("roster time is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin roster write: %w", err)
	}
	for _, pairID := range cleaned {
		if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO event_pairs (event_id, pair_id, added_at)
VALUES (?, ?, ?)
`, eventID, pairID, toMillis(at)); err != nil {
			_ = tx.Rollback()
			if isForeignKeyConstraintError(err) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("add event pair: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit roster write: %w", err)
	}
	return nil
}

// RemoveEventPairs removes only the named pairs from an event roster.
func (s *Store) RemoveEventPairs(ctx context.Context, eventID string, pairIDs []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return fmt.Errorf("event id is required")
	}
	cleaned := cleanIDs(pairIDs)
	if len(cleaned) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(cleaned))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(cleaned)+1)
	args = append(args, eventID)
	for _, pairID := range cleaned {
		args = append(args, pairID)
	}

	if _, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM event_pairs
WHERE event_id = ? AND pair_id IN (`+placeholders+`)
`, args...); err != nil {
		return fmt.Errorf("remove event pairs: %w", err)
	}
	return nil
}

// AddEventJudge records one judge as attending an event. Re-adding an
// attending judge is a no-op.
func (s *Store) AddEventJudge(ctx context.Context, eventID, judgeID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	eventID = strings.TrimSpace(eventID)
	judgeID = strings.TrimSpace(judgeID)
	if eventID == "" {
		return fmt.Errorf("event id is required")
	}
	if judgeID == "" {
		return fmt.Errorf("judge id is required")
	}
	if at.IsZero() {
		return fmt.Errorf("roster time is required")
	}

	if _, err := s.sqlDB.ExecContext(ctx, `
INSERT OR IGNORE INTO event_judges (event_id, judge_id, added_at)
VALUES (?, ?, ?)
`, eventID, judgeID, toMillis(at)); err != nil {
		if isForeignKeyConstraintError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("add event judge: %w", err)
	}
	return nil
}

// RemoveEventJudge removes one judge from an event roster. Removing an
// absent judge is a no-op.
func (s *Store) RemoveEventJudge(ctx context.Context, eventID, judgeID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	eventID = strings.TrimSpace(eventID)
	judgeID = strings.TrimSpace(judgeID)
	if eventID == "" {
		return fmt.Errorf("event id is required")
	}
	if judgeID == "" {
		return fmt.Errorf("judge id is required")
	}

	if _, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM event_judges
WHERE event_id = ? AND judge_id = ?
`, eventID, judgeID); err != nil {
		return fmt.Errorf("remove event judge: %w", err)
	}
	return nil
}

// GetRosters loads an event's attending pairs and judges.
func (s *Store) GetRosters(ctx context.Context, eventID string) (storage.Rosters, error) {
	if err := ctx.Err(); err != nil {
		return storage.Rosters{}, err
	}
	if err := s.ready(); err != nil {
		return storage.Rosters{}, err
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return storage.Rosters{}, fmt.Errorf("event id is required")
	}

	pairRows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+prefixColumns("p", pairColumns)+`
FROM pairs p
JOIN event_pairs ep ON ep.pair_id = p.id
WHERE ep.event_id = ?
ORDER BY ep.added_at ASC, p.id ASC
`, eventID)
	if err != nil {
		return storage.Rosters{}, fmt.Errorf("list event pairs: %w", err)
	}
	defer pairRows.Close()
	pairs, err := collectPairs(pairRows)
	if err != nil {
		return storage.Rosters{}, err
	}

	judgeRows, err := s.sqlDB.QueryContext(ctx, `
SELECT judge_id
FROM event_judges
WHERE event_id = ?
ORDER BY added_at ASC, judge_id ASC
`, eventID)
	if err != nil {
		return storage.Rosters{}, fmt.Errorf("list event judges: %w", err)
	}
	defer judgeRows.Close()

	var judgeIDs []string
	for judgeRows.Next() {
		var judgeID string
		if err := judgeRows.Scan(&judgeID); err != nil {
			return storage.Rosters{}, fmt.Errorf("scan event judge row: %w", err)
		}
		judgeIDs = append(judgeIDs, judgeID)
	}
	if err := judgeRows.Err(); err != nil {
		return storage.Rosters{}, fmt.Errorf("iterate event judge rows: %w", err)
	}

	return storage.Rosters{Pairs: pairs, JudgeIDs: judgeIDs}, nil
}

func cleanIDs(ids []string) []string {
	cleaned := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		cleaned = append(cleaned, id)
	}
	return cleaned
}

func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mvoicu/dansport/internal/services/federation/storage"
)

const pairColumns = `id, club_id,
partner1_name, partner1_license, partner1_min_qualification, partner1_birthdate,
partner2_name, partner2_license, partner2_min_qualification, partner2_birthdate,
coach, age_category, class_level, discipline, created_at, updated_at`

// PutPair upserts one pair registry row. The club owner never changes on
// update.
func (s *Store) PutPair(ctx context.Context, pair storage.Pair) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	normalized, err := normalizePair(pair)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(ctx, `
	INSERT INTO pairs (
		id, club_id,
		partner1_name, partner1_license, partner1_min_qualification, partner1_birthdate,
		partner2_name, partner2_license, partner2_min_qualification, partner2_birthdate,
		coach, age_category, class_level, discipline, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		partner1_name = excluded.partner1_name,
		partner1_license = excluded.partner1_license,
		partner1_min_qualification = excluded.partner1_min_qualification,
		partner1_birthdate = excluded.partner1_birthdate,
		partner2_name = excluded.partner2_name,
		partner2_license = excluded.partner2_license,
		partner2_min_qualification = excluded.partner2_min_qualification,
		partner2_birthdate = excluded.partner2_birthdate,
		coach = excluded.coach,
		age_category = excluded.age_category,
		class_level = excluded.class_level,
		discipline = excluded.discipline,
		updated_at = excluded.updated_at
	`,
		normalized.ID,
		normalized.ClubID,
		normalized.Partner1.Name,
		normalized.Partner1.License,
		boolToInt(normalized.Partner1.MinQualification),
		nullMillis(normalized.Partner1.Birthdate),
		normalized.Partner2.Name,
		normalized.Partner2.License,
		boolToInt(normalized.Partner2.MinQualification),
		nullMillis(normalized.Partner2.Birthdate),
		normalized.Coach,
		normalized.AgeCategory,
		normalized.ClassLevel,
		normalized.Discipline,
		toMillis(normalized.CreatedAt),
		toMillis(normalized.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put pair: %w", err)
	}
	return nil
}

// GetPair loads one pair by id.
func (s *Store) GetPair(ctx context.Context, id string) (storage.Pair, error) {
	if err := ctx.Err(); err != nil {
		return storage.Pair{}, err
	}
	if err := s.ready(); err != nil {
		return storage.Pair{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.Pair{}, fmt.Errorf("pair id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+pairColumns+`
FROM pairs
WHERE id = ?
`, id)
	pair, err := scanPair(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Pair{}, storage.ErrNotFound
		}
		return storage.Pair{}, fmt.Errorf("get pair: %w", err)
	}
	return pair, nil
}

// ListPairsByClub lists one club's pairs, newest-first.
func (s *Store) ListPairsByClub(ctx context.Context, clubID string) ([]storage.Pair, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	clubID = strings.TrimSpace(clubID)
	if clubID == "" {
		return nil, fmt.Errorf("club id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+pairColumns+`
FROM pairs
WHERE club_id = ?
ORDER BY created_at DESC, id DESC
`, clubID)
	if err != nil {
		return nil, fmt.Errorf("list pairs by club: %w", err)
	}
	defer rows.Close()
	return collectPairs(rows)
}

// ListPairsByIDs loads the pairs whose ids exist, ignoring unknown ids.
func (s *Store) ListPairsByIDs(ctx context.Context, ids []string) ([]storage.Pair, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	cleaned := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" {
			cleaned = append(cleaned, id)
		}
	}
	if len(cleaned) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(cleaned))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(cleaned))
	for _, id := range cleaned {
		args = append(args, id)
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+pairColumns+`
FROM pairs
WHERE id IN (`+placeholders+`)
ORDER BY created_at DESC, id DESC
`, args...)
	if err != nil {
		return nil, fmt.Errorf("list pairs by ids: %w", err)
	}
	defer rows.Close()
	return collectPairs(rows)
}

// DeletePair removes one pair and its roster memberships.
func (s *Store) DeletePair(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("pair id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM pairs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete pair: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete pair rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func normalizePair(pair storage.Pair) (storage.Pair, error) {
	pair.ID = strings.TrimSpace(pair.ID)
	pair.ClubID = strings.TrimSpace(pair.ClubID)
	pair.Partner1.Name = strings.TrimSpace(pair.Partner1.Name)
	pair.Partner2.Name = strings.TrimSpace(pair.Partner2.Name)
	if pair.ID == "" {
		return storage.Pair{}, fmt.Errorf("pair id is required")
	}
	if pair.ClubID == "" {
		return storage.Pair{}, fmt.Errorf("club id is required")
	}
	if pair.Partner1.Name == "" {
		return storage.Pair{}, fmt.Errorf("first partner name is required")
	}
	if pair.CreatedAt.IsZero() {
		return storage.Pair{}, fmt.Errorf("created_at is required")
	}
	if pair.UpdatedAt.IsZero() {
		return storage.Pair{}, fmt.Errorf("updated_at is required")
	}
	pair.CreatedAt = pair.CreatedAt.UTC()
	pair.UpdatedAt = pair.UpdatedAt.UTC()
	return pair, nil
}

func scanPair(scan scanner) (storage.Pair, error) {
	var pair storage.Pair
	var p1Min, p2Min int
	var p1Birth, p2Birth sql.NullInt64
	var createdAt, updatedAt int64
	if err := scan(
		&pair.ID,
		&pair.ClubID,
		&pair.Partner1.Name,
		&pair.Partner1.License,
		&p1Min,
		&p1Birth,
		&pair.Partner2.Name,
		&pair.Partner2.License,
		&p2Min,
		&p2Birth,
		&pair.Coach,
		&pair.AgeCategory,
		&pair.ClassLevel,
		&pair.Discipline,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.Pair{}, err
	}
	pair.Partner1.MinQualification = p1Min != 0
	pair.Partner2.MinQualification = p2Min != 0
	pair.Partner1.Birthdate = millisPtr(p1Birth)
	pair.Partner2.Birthdate = millisPtr(p2Birth)
	pair.CreatedAt = fromMillis(createdAt)
	pair.UpdatedAt = fromMillis(updatedAt)
	return pair, nil
}

func collectPairs(rows *sql.Rows) ([]storage.Pair, error) {
	var pairs []storage.Pair
	for rows.Next() {
		pair, err := scanPair(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan pair row: %w", err)
		}
		pairs = append(pairs, pair)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pair rows: %w", err)
	}
	return pairs, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

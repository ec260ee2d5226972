package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mvoicu/dansport/internal/services/federation/storage"
)

const photoColumns = `id, event_id, pair_id, uploaded_by, blob_key, url, filename, content_type, byte_size, created_at`

// InsertPairPhoto appends one photo under a pair's per-event ceiling. The
// quota count and the insert run as one statement, so concurrent
// submissions cannot exceed the ceiling.
func (s *Store) InsertPairPhoto(ctx context.Context, photo storage.Photo, ceiling int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	normalized, err := normalizePhoto(photo)
	if err != nil {
		return err
	}
	if normalized.PairID == "" {
		return fmt.Errorf("pair id is required")
	}
	if ceiling <= 0 {
		return fmt.Errorf("ceiling must be greater than zero")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO photos (id, event_id, pair_id, uploaded_by, blob_key, url, filename, content_type, byte_size, created_at)
SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
WHERE (SELECT COUNT(1) FROM photos WHERE event_id = ? AND pair_id = ?) < ?
`,
		normalized.ID,
		normalized.EventID,
		normalized.PairID,
		normalized.UploadedBy,
		normalized.BlobKey,
		normalized.URL,
		normalized.Filename,
		normalized.ContentType,
		normalized.ByteSize,
		toMillis(normalized.CreatedAt),
		normalized.EventID,
		normalized.PairID,
		ceiling,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrAlreadyExists
		}
		if isForeignKeyConstraintError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("insert pair photo: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert pair photo rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrQuotaExceeded
	}
	return nil
}

// InsertUploaderPhoto appends one photo under the uploader's per-event
// ceiling, for photos not attached to a pair.
func (s *Store) InsertUploaderPhoto(ctx context.Context, photo storage.Photo, ceiling int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	normalized, err := normalizePhoto(photo)
	if err != nil {
		return err
	}
	if normalized.PairID != "" {
		return fmt.Errorf("pair id must be empty for uploader photos")
	}
	if ceiling <= 0 {
		return fmt.Errorf("ceiling must be greater than zero")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO photos (id, event_id, pair_id, uploaded_by, blob_key, url, filename, content_type, byte_size, created_at)
SELECT ?, ?, '', ?, ?, ?, ?, ?, ?, ?
WHERE (SELECT COUNT(1) FROM photos WHERE event_id = ? AND pair_id = '' AND uploaded_by = ?) < ?
`,
		normalized.ID,
		normalized.EventID,
		normalized.UploadedBy,
		normalized.BlobKey,
		normalized.URL,
		normalized.Filename,
		normalized.ContentType,
		normalized.ByteSize,
		toMillis(normalized.CreatedAt),
		normalized.EventID,
		normalized.UploadedBy,
		ceiling,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrAlreadyExists
		}
		if isForeignKeyConstraintError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("insert uploader photo: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert uploader photo rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrQuotaExceeded
	}
	return nil
}

// CountPairPhotos returns one pair's photo count for an event.
func (s *Store) CountPairPhotos(ctx context.Context, eventID, pairID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.ready(); err != nil {
		return 0, err
	}
	eventID = strings.TrimSpace(eventID)
	pairID = strings.TrimSpace(pairID)
	if eventID == "" {
		return 0, fmt.Errorf("event id is required")
	}
	if pairID == "" {
		return 0, fmt.Errorf("pair id is required")
	}

	var count int
	if err := s.sqlDB.QueryRowContext(ctx, `
SELECT COUNT(1) FROM photos WHERE event_id = ? AND pair_id = ?
`, eventID, pairID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pair photos: %w", err)
	}
	return count, nil
}

// CountUploaderPhotos returns one uploader's pair-less photo count for an
// event.
func (s *Store) CountUploaderPhotos(ctx context.Context, eventID, uploaderID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.ready(); err != nil {
		return 0, err
	}
	eventID = strings.TrimSpace(eventID)
	uploaderID = strings.TrimSpace(uploaderID)
	if eventID == "" {
		return 0, fmt.Errorf("event id is required")
	}
	if uploaderID == "" {
		return 0, fmt.Errorf("uploader id is required")
	}

	var count int
	if err := s.sqlDB.QueryRowContext(ctx, `
SELECT COUNT(1) FROM photos WHERE event_id = ? AND pair_id = '' AND uploaded_by = ?
`, eventID, uploaderID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count uploader photos: %w", err)
	}
	return count, nil
}

// GetPhoto loads one event photo by id.
func (s *Store) GetPhoto(ctx context.Context, eventID, photoID string) (storage.Photo, error) {
	if err := ctx.Err(); err != nil {
		return storage.Photo{}, err
	}
	if err := s.ready(); err != nil {
		return storage.Photo{}, err
	}
	eventID = strings.TrimSpace(eventID)
	photoID = strings.TrimSpace(photoID)
	if eventID == "" {
		return storage.Photo{}, fmt.Errorf("event id is required")
	}
	if photoID == "" {
		return storage.Photo{}, fmt.Errorf("photo id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+photoColumns+`
FROM photos
WHERE event_id = ? AND id = ?
`, eventID, photoID)
	photo, err := scanPhoto(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Photo{}, storage.ErrNotFound
		}
		return storage.Photo{}, fmt.Errorf("get photo: %w", err)
	}
	return photo, nil
}

// ListEventPhotos lists an event's photos, oldest-first.
func (s *Store) ListEventPhotos(ctx context.Context, eventID string) ([]storage.Photo, error) {
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
SELECT `+photoColumns+`
FROM photos
WHERE event_id = ?
ORDER BY created_at ASC, id ASC
`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list event photos: %w", err)
	}
	defer rows.Close()

	var photos []storage.Photo
	for rows.Next() {
		photo, scanErr := scanPhoto(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan photo row: %w", scanErr)
		}
		photos = append(photos, photo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate photo rows: %w", err)
	}
	return photos, nil
}

// DeletePhoto removes one event photo's metadata row.
func (s *Store) DeletePhoto(ctx context.Context, eventID, photoID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	eventID = strings.TrimSpace(eventID)
	photoID = strings.TrimSpace(photoID)
	if eventID == "" {
		return fmt.Errorf("event id is required")
	}
	if photoID == "" {
		return fmt.Errorf("photo id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM photos WHERE event_id = ? AND id = ?
`, eventID, photoID)
	if err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete photo rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func normalizePhoto(photo storage.Photo) (storage.Photo, error) {
	photo.ID = strings.TrimSpace(photo.ID)
	photo.EventID = strings.TrimSpace(photo.EventID)
	photo.PairID = strings.TrimSpace(photo.PairID)
	photo.UploadedBy = strings.TrimSpace(photo.UploadedBy)
	photo.BlobKey = strings.TrimSpace(photo.BlobKey)
	if photo.ID == "" {
		return storage.Photo{}, fmt.Errorf("photo id is required")
	}
	if photo.EventID == "" {
		return storage.Photo{}, fmt.Errorf("event id is required")
	}
	if photo.UploadedBy == "" {
		return storage.Photo{}, fmt.Errorf("uploader id is required")
	}
	if photo.BlobKey == "" {
		return storage.Photo{}, fmt.Errorf("blob key is required")
	}
	if photo.CreatedAt.IsZero() {
		return storage.Photo{}, fmt.Errorf("created_at is required")
	}
	photo.CreatedAt = photo.CreatedAt.UTC()
	return photo, nil
}

func scanPhoto(scan scanner) (storage.Photo, error) {
	var photo storage.Photo
	var createdAt int64
	if err := scan(
		&photo.ID,
		&photo.EventID,
		&photo.PairID,
		&photo.UploadedBy,
		&photo.BlobKey,
		&photo.URL,
		&photo.Filename,
		&photo.ContentType,
		&photo.ByteSize,
		&createdAt,
	); err != nil {
		return storage.Photo{}, err
	}
	photo.CreatedAt = fromMillis(createdAt)
	return photo, nil
}

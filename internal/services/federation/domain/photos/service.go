// Package photos implements quota-gated photo submission for events.
//
// Uploads are admitted under one of two mutually exclusive quota scopes,
// resolved once at admission time: pair-scoped (counted against the pair)
// or uploader-scoped (counted against the uploading actor). Both ceilings
// are fixed per event.
package photos

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"strings"
	"time"

	"github.com/mvoicu/dansport/internal/identity"
	apperrors "github.com/mvoicu/dansport/internal/platform/errors"
	"github.com/mvoicu/dansport/internal/platform/id"
	"github.com/mvoicu/dansport/internal/services/federation/blob"
	"github.com/mvoicu/dansport/internal/services/federation/domain/authz"
	"github.com/mvoicu/dansport/internal/services/federation/storage"
)

// QuotaCeiling is the photo count permitted per pair and per uploader,
// per event.
const QuotaCeiling = 4

// Store is the persistence boundary for photo metadata.
type Store interface {
	GetEvent(ctx context.Context, id string) (storage.Event, error)
	GetRosters(ctx context.Context, eventID string) (storage.Rosters, error)
	InsertPairPhoto(ctx context.Context, photo storage.Photo, ceiling int) error
	InsertUploaderPhoto(ctx context.Context, photo storage.Photo, ceiling int) error
	CountPairPhotos(ctx context.Context, eventID, pairID string) (int, error)
	CountUploaderPhotos(ctx context.Context, eventID, uploaderID string) (int, error)
	GetPhoto(ctx context.Context, eventID, photoID string) (storage.Photo, error)
	ListEventPhotos(ctx context.Context, eventID string) ([]storage.Photo, error)
	DeletePhoto(ctx context.Context, eventID, photoID string) error
}

// Service admits photos against quota ceilings and reverses storage and
// metadata together on deletion.
type Service struct {
	store   Store
	blobs   blob.Store
	logger  *log.Logger
	baseURL string
	clock   func() time.Time
	newID   func() (string, error)
}

// NewService constructs photo upload use-cases. baseURL prefixes the
// public URL recorded for each admitted photo.
func NewService(store Store, blobs blob.Store, logger *log.Logger, baseURL string, clock func() time.Time, newID func() (string, error)) *Service {
	if logger == nil {
		logger = log.Default()
	}
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = id.NewID
	}
	return &Service{
		store:   store,
		blobs:   blobs,
		logger:  logger,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		clock:   clock,
		newID:   newID,
	}
}

// SubmitInput describes one photo submission.
type SubmitInput struct {
	EventID     string
	PairID      string
	Filename    string
	ContentType string
	Body        io.Reader
}

// DeleteResult reports whether the blob store acknowledged removal of the
// photo bytes.
type DeleteResult struct {
	RemovedFromStorage bool
}

// Submit admits one photo. The quota is checked before the blob write so
// routine rejections never orphan bytes, and the metadata append re-checks
// it as a single conditional insert at the storage layer, so the ceiling
// holds under concurrent submissions.
func (s *Service) Submit(ctx context.Context, actor identity.Actor, input SubmitInput) (storage.Photo, error) {
	if s == nil || s.store == nil || s.blobs == nil {
		return storage.Photo{}, apperrors.E(apperrors.KindUnavailable, "photo storage is not configured")
	}
	if actor.IsAnonymous() {
		return storage.Photo{}, apperrors.E(apperrors.KindUnauthorized, "authentication required")
	}
	if input.Body == nil {
		return storage.Photo{}, apperrors.E(apperrors.KindInvalidInput, "photo content is required")
	}
	event, rosters, err := s.loadEventWithRosters(ctx, input.EventID)
	if err != nil {
		return storage.Photo{}, err
	}

	isCreator := actor.ID == event.CreatorID
	isClubUploader := actor.Role == identity.RoleClub && authz.ClubOwnsAttendingPair(rosters, actor.ID)
	if !isCreator && !isClubUploader {
		return storage.Photo{}, apperrors.E(apperrors.KindForbidden, "only the event creator or a club with attending pairs may upload photos")
	}

	pairID := strings.TrimSpace(input.PairID)
	if pairID != "" {
		pair, attending := authz.AttendingPair(rosters, pairID)
		if !attending {
			return storage.Photo{}, apperrors.E(apperrors.KindInvalidInput, "pair is not attending this event")
		}
		if !isCreator && pair.ClubID != actor.ID {
			return storage.Photo{}, apperrors.E(apperrors.KindForbidden, "pair belongs to another club")
		}
	} else if isClubUploader && !isCreator {
		return storage.Photo{}, apperrors.E(apperrors.KindInvalidInput, "club uploads must name a pair")
	}

	// Reject over-quota uploads before any bytes land in blob storage. The
	// conditional insert below stays the hard ceiling for the race window.
	var count int
	if pairID != "" {
		count, err = s.store.CountPairPhotos(ctx, event.ID, pairID)
	} else {
		count, err = s.store.CountUploaderPhotos(ctx, event.ID, actor.ID)
	}
	if err != nil {
		return storage.Photo{}, apperrors.Wrap(apperrors.KindUnavailable, "count photos", err)
	}
	if count >= QuotaCeiling {
		return storage.Photo{}, apperrors.E(apperrors.KindQuotaExceeded, "photo quota reached for this event")
	}

	photoID, err := s.newID()
	if err != nil {
		return storage.Photo{}, apperrors.Wrap(apperrors.KindUnknown, "generate photo id", err)
	}
	filename := path.Base(strings.TrimSpace(input.Filename))
	if filename == "" || filename == "." || filename == "/" {
		filename = photoID
	}
	blobKey := fmt.Sprintf("events/%s/%s-%s", event.ID, photoID, filename)

	written, err := s.blobs.Put(ctx, blobKey, input.Body)
	if err != nil {
		return storage.Photo{}, apperrors.Wrap(apperrors.KindUnavailable, "store photo bytes", err)
	}

	photo := storage.Photo{
		ID:          photoID,
		EventID:     event.ID,
		PairID:      pairID,
		UploadedBy:  actor.ID,
		BlobKey:     blobKey,
		URL:         s.baseURL + "/blobs/" + blobKey,
		Filename:    filename,
		ContentType: strings.TrimSpace(input.ContentType),
		ByteSize:    written,
		CreatedAt:   s.clock().UTC(),
	}
	if pairID != "" {
		err = s.store.InsertPairPhoto(ctx, photo, QuotaCeiling)
	} else {
		err = s.store.InsertUploaderPhoto(ctx, photo, QuotaCeiling)
	}
	if err != nil {
		// Bytes are already stored; the orphaned blob is an operational
		// cleanup concern, not a transactional one.
		s.logger.Printf("photo %s: blob %s orphaned after rejected metadata insert: %v", photoID, blobKey, err)
		if errors.Is(err, storage.ErrQuotaExceeded) {
			return storage.Photo{}, apperrors.E(apperrors.KindQuotaExceeded, "photo quota reached for this event")
		}
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Photo{}, apperrors.E(apperrors.KindNotFound, "event not found")
		}
		return storage.Photo{}, apperrors.Wrap(apperrors.KindUnavailable, "persist photo metadata", err)
	}
	return photo, nil
}

// List returns an event's photos.
func (s *Service) List(ctx context.Context, eventID string) ([]storage.Photo, error) {
	if s == nil || s.store == nil {
		return nil, apperrors.E(apperrors.KindUnavailable, "photo storage is not configured")
	}
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	photos, err := s.store.ListEventPhotos(ctx, event.ID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "list photos", err)
	}
	return photos, nil
}

// Delete removes one photo. The blob delete runs first and a missing
// object counts as removed; the metadata entry is removed regardless, so a
// dangling metadata entry is never left behind.
func (s *Service) Delete(ctx context.Context, actor identity.Actor, eventID, photoID string) (DeleteResult, error) {
	if s == nil || s.store == nil || s.blobs == nil {
		return DeleteResult{}, apperrors.E(apperrors.KindUnavailable, "photo storage is not configured")
	}
	if actor.IsAnonymous() {
		return DeleteResult{}, apperrors.E(apperrors.KindUnauthorized, "authentication required")
	}
	event, rosters, err := s.loadEventWithRosters(ctx, eventID)
	if err != nil {
		return DeleteResult{}, err
	}
	photoID = strings.TrimSpace(photoID)
	if photoID == "" {
		return DeleteResult{}, apperrors.E(apperrors.KindInvalidInput, "photo id is required")
	}
	photo, err := s.store.GetPhoto(ctx, event.ID, photoID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return DeleteResult{}, apperrors.E(apperrors.KindNotFound, "photo not found")
		}
		return DeleteResult{}, apperrors.Wrap(apperrors.KindUnavailable, "load photo", err)
	}

	allowed := photo.UploadedBy == actor.ID ||
		event.CreatorID == actor.ID ||
		actor.IsPrivileged() ||
		(actor.Role == identity.RoleJudge && authz.JudgeAttending(rosters, actor.ID))
	if !allowed {
		return DeleteResult{}, apperrors.E(apperrors.KindForbidden, "not allowed to delete this photo")
	}

	removed := true
	if err := s.blobs.Delete(ctx, photo.BlobKey); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			removed = false
			s.logger.Printf("photo %s: blob delete failed for %s, metadata removed anyway: %v", photo.ID, photo.BlobKey, err)
		}
	}
	if err := s.store.DeletePhoto(ctx, event.ID, photo.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return DeleteResult{}, apperrors.Wrap(apperrors.KindUnavailable, "delete photo metadata", err)
	}
	return DeleteResult{RemovedFromStorage: removed}, nil
}

// ExportArchive writes a zip of an event's photos to w, grouped into one
// folder per pair and an uploader-named folder for pair-less photos. Only
// the event creator and admin/judge-class actors may export.
func (s *Service) ExportArchive(ctx context.Context, actor identity.Actor, eventID string, w io.Writer) error {
	if s == nil || s.store == nil || s.blobs == nil {
		return apperrors.E(apperrors.KindUnavailable, "photo storage is not configured")
	}
	if actor.IsAnonymous() {
		return apperrors.E(apperrors.KindUnauthorized, "authentication required")
	}
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if event.CreatorID != actor.ID && !actor.IsPrivileged() {
		return apperrors.E(apperrors.KindForbidden, "only the event creator, an admin, or a judge may export photos")
	}
	photos, err := s.store.ListEventPhotos(ctx, event.ID)
	if err != nil {
		return apperrors.Wrap(apperrors.KindUnavailable, "list photos", err)
	}

	archive := zip.NewWriter(w)
	for _, photo := range photos {
		folder := "uploader-" + photo.UploadedBy
		if photo.PairID != "" {
			folder = "pair-" + photo.PairID
		}
		entry, err := archive.Create(folder + "/" + photo.Filename)
		if err != nil {
			return apperrors.Wrap(apperrors.KindUnknown, "create archive entry", err)
		}
		reader, err := s.blobs.Open(ctx, photo.BlobKey)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				s.logger.Printf("photo %s: blob %s missing during export, skipped", photo.ID, photo.BlobKey)
				continue
			}
			return apperrors.Wrap(apperrors.KindUnavailable, "open photo bytes", err)
		}
		if _, err := io.Copy(entry, reader); err != nil {
			_ = reader.Close()
			return apperrors.Wrap(apperrors.KindUnavailable, "copy photo bytes", err)
		}
		if err := reader.Close(); err != nil {
			return apperrors.Wrap(apperrors.KindUnavailable, "close photo bytes", err)
		}
	}
	if err := archive.Close(); err != nil {
		return apperrors.Wrap(apperrors.KindUnknown, "finalize archive", err)
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

package photos

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mvoicu/dansport/internal/identity"
	apperrors "github.com/mvoicu/dansport/internal/platform/errors"
	"github.com/mvoicu/dansport/internal/services/federation/storage"
)

type fakeStore struct {
	events  map[string]storage.Event
	rosters map[string]storage.Rosters
	photos  map[string]storage.Photo
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:  make(map[string]storage.Event),
		rosters: make(map[string]storage.Rosters),
		photos:  make(map[string]storage.Photo),
	}
}

func (f *fakeStore) GetEvent(ctx context.Context, id string) (storage.Event, error) {
	event, ok := f.events[id]
	if !ok {
		return storage.Event{}, storage.ErrNotFound
	}
	return event, nil
}

func (f *fakeStore) GetRosters(ctx context.Context, eventID string) (storage.Rosters, error) {
	return f.rosters[eventID], nil
}

func (f *fakeStore) InsertPairPhoto(ctx context.Context, photo storage.Photo, ceiling int) error {
	count := 0
	for _, existing := range f.photos {
		if existing.EventID == photo.EventID && existing.PairID == photo.PairID {
			count++
		}
	}
	if count >= ceiling {
		return storage.ErrQuotaExceeded
	}
	f.photos[photo.ID] = photo
	return nil
}

func (f *fakeStore) InsertUploaderPhoto(ctx context.Context, photo storage.Photo, ceiling int) error {
	count := 0
	for _, existing := range f.photos {
		if existing.EventID == photo.EventID && existing.PairID == "" && existing.UploadedBy == photo.UploadedBy {
			count++
		}
	}
	if count >= ceiling {
		return storage.ErrQuotaExceeded
	}
	f.photos[photo.ID] = photo
	return nil
}

func (f *fakeStore) CountPairPhotos(ctx context.Context, eventID, pairID string) (int, error) {
	count := 0
	for _, existing := range f.photos {
		if existing.EventID == eventID && existing.PairID == pairID {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) CountUploaderPhotos(ctx context.Context, eventID, uploaderID string) (int, error) {
	count := 0
	for _, existing := range f.photos {
		if existing.EventID == eventID && existing.PairID == "" && existing.UploadedBy == uploaderID {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) GetPhoto(ctx context.Context, eventID, photoID string) (storage.Photo, error) {
	photo, ok := f.photos[photoID]
	if !ok || photo.EventID != eventID {
		return storage.Photo{}, storage.ErrNotFound
	}
	return photo, nil
}

func (f *fakeStore) ListEventPhotos(ctx context.Context, eventID string) ([]storage.Photo, error) {
	var photos []storage.Photo
	for _, photo := range f.photos {
		if photo.EventID == eventID {
			photos = append(photos, photo)
		}
	}
	return photos, nil
}

func (f *fakeStore) DeletePhoto(ctx context.Context, eventID, photoID string) error {
	photo, ok := f.photos[photoID]
	if !ok || photo.EventID != eventID {
		return storage.ErrNotFound
	}
	delete(f.photos, photoID)
	return nil
}

type fakeBlobs struct {
	objects   map[string][]byte
	deleteErr error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: make(map[string][]byte)}
}

func (f *fakeBlobs) Put(ctx context.Context, key string, reader io.Reader) (int64, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return 0, err
	}
	f.objects[key] = content
	return int64(len(content)), nil
}

func (f *fakeBlobs) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	content, ok := f.objects[key]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (f *fakeBlobs) Delete(ctx context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.objects[key]; !ok {
		return os.ErrNotExist
	}
	delete(f.objects, key)
	return nil
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func sequentialIDGenerator(prefix string) func() (string, error) {
	counter := 0
	return func() (string, error) {
		counter++
		return fmt.Sprintf("%s-%d", prefix, counter), nil
	}
}

func newTestService(store *fakeStore, blobs *fakeBlobs) *Service {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	logger := log.New(io.Discard, "", 0)
	return NewService(store, blobs, logger, "https://photos.dansport.ro", fixedClock(now), sequentialIDGenerator("photo"))
}

func seedAttendingPair(store *fakeStore, eventID, pairID, clubID string) {
	rosters := store.rosters[eventID]
	rosters.Pairs = append(rosters.Pairs, storage.Pair{ID: pairID, ClubID: clubID})
	store.rosters[eventID] = rosters
}

func TestSubmitPairScopedPhoto(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	blobs := newFakeBlobs()
	store.events["event-1"] = storage.Event{ID: "event-1", CreatorID: "creator-1", IsApproved: true}
	seedAttendingPair(store, "event-1", "pair-1", "club-1")
	service := newTestService(store, blobs)

	club := identity.Actor{ID: "club-1", Role: identity.RoleClub}
	photo, err := service.Submit(context.Background(), club, SubmitInput{
		EventID:     "event-1",
		PairID:      "pair-1",
		Filename:    "finala.jpg",
		ContentType: "image/jpeg",
		Body:        strings.NewReader("jpeg bytes"),
	})
	if err != nil {
		t.Fatalf("submit photo: %v", err)
	}
	if photo.PairID != "pair-1" || photo.UploadedBy != "club-1" {
		t.Fatalf("unexpected photo: %+v", photo)
	}
	if photo.ByteSize != int64(len("jpeg bytes")) {
		t.Fatalf("unexpected byte size: %d", photo.ByteSize)
	}
	if !strings.HasPrefix(photo.URL, "https://photos.dansport.ro/blobs/events/event-1/") {
		t.Fatalf("unexpected url: %q", photo.URL)
	}
	if _, ok := blobs.objects[photo.BlobKey]; !ok {
		t.Fatal("blob bytes not stored")
	}
}

func TestSubmitQuotaCeiling(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	blobs := newFakeBlobs()
	store.events["event-1"] = storage.Event{ID: "event-1", CreatorID: "creator-1", IsApproved: true}
	seedAttendingPair(store, "event-1", "pair-1", "club-1")
	service := newTestService(store, blobs)
	club := identity.Actor{ID: "club-1", Role: identity.RoleClub}

	for i := 0; i < QuotaCeiling; i++ {
		if _, err := service.Submit(context.Background(), club, SubmitInput{
			EventID:  "event-1",
			PairID:   "pair-1",
			Filename: fmt.Sprintf("photo-%d.jpg", i),
			Body:     strings.NewReader("bytes"),
		}); err != nil {
			t.Fatalf("submit photo %d: %v", i, err)
		}
	}

	stored := len(blobs.objects)
	_, err := service.Submit(context.Background(), club, SubmitInput{
		EventID:  "event-1",
		PairID:   "pair-1",
		Filename: "over.jpg",
		Body:     strings.NewReader("bytes"),
	})
	if apperrors.KindOf(err) != apperrors.KindQuotaExceeded {
		t.Fatalf("expected quota exceeded on 5th photo, got %v", err)
	}
	// A rejected upload must not leave bytes behind in blob storage.
	if len(blobs.objects) != stored {
		t.Fatalf("blob store grew from %d to %d objects on rejected upload", stored, len(blobs.objects))
	}
}

func TestSubmitAuthorization(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	blobs := newFakeBlobs()
	store.events["event-1"] = storage.Event{ID: "event-1", CreatorID: "creator-1", IsApproved: true}
	seedAttendingPair(store, "event-1", "pair-1", "club-1")
	service := newTestService(store, blobs)

	cases := []struct {
		name   string
		actor  identity.Actor
		pairID string
		want   apperrors.Kind
	}{
		{
			name:  "anonymous",
			actor: identity.Actor{},
			want:  apperrors.KindUnauthorized,
		},
		{
			name:  "club without attending pairs",
			actor: identity.Actor{ID: "club-2", Role: identity.RoleClub},
			want:  apperrors.KindForbidden,
		},
		{
			name:  "dancer",
			actor: identity.Actor{ID: "dancer-1", Role: identity.RoleDancer},
			want:  apperrors.KindForbidden,
		},
		{
			name:  "club upload without pair id",
			actor: identity.Actor{ID: "club-1", Role: identity.RoleClub},
			want:  apperrors.KindInvalidInput,
		},
		{
			name:   "pair not attending",
			actor:  identity.Actor{ID: "creator-1"},
			pairID: "pair-absent",
			want:   apperrors.KindInvalidInput,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := service.Submit(context.Background(), tc.actor, SubmitInput{
				EventID:  "event-1",
				PairID:   tc.pairID,
				Filename: "x.jpg",
				Body:     strings.NewReader("bytes"),
			})
			if apperrors.KindOf(err) != tc.want {
				t.Fatalf("expected %s, got %v", tc.want, err)
			}
		})
	}
}

func TestSubmitUploaderScopedForCreator(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	blobs := newFakeBlobs()
	store.events["event-1"] = storage.Event{ID: "event-1", CreatorID: "creator-1", IsApproved: true}
	service := newTestService(store, blobs)
	creator := identity.Actor{ID: "creator-1", Role: identity.RoleJudge}

	photo, err := service.Submit(context.Background(), creator, SubmitInput{
		EventID:  "event-1",
		Filename: "general.jpg",
		Body:     strings.NewReader("bytes"),
	})
	if err != nil {
		t.Fatalf("submit uploader photo: %v", err)
	}
	if photo.PairID != "" {
		t.Fatalf("expected uploader-scoped photo, got pair %q", photo.PairID)
	}
}

func TestDeleteRemovesMetadataEvenWhenBlobDeleteFails(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	blobs := newFakeBlobs()
	store.events["event-1"] = storage.Event{ID: "event-1", CreatorID: "creator-1", IsApproved: true}
	service := newTestService(store, blobs)
	creator := identity.Actor{ID: "creator-1"}

	photo, err := service.Submit(context.Background(), creator, SubmitInput{
		EventID:  "event-1",
		Filename: "x.jpg",
		Body:     strings.NewReader("bytes"),
	})
	if err != nil {
		t.Fatalf("submit photo: %v", err)
	}

	blobs.deleteErr = fmt.Errorf("storage offline")
	result, err := service.Delete(context.Background(), creator, "event-1", photo.ID)
	if err != nil {
		t.Fatalf("delete photo: %v", err)
	}
	if result.RemovedFromStorage {
		t.Fatal("expected storage removal failure to be reported")
	}
	if _, err := store.GetPhoto(context.Background(), "event-1", photo.ID); err == nil {
		t.Fatal("metadata entry should be removed despite blob failure")
	}
}

func TestDeleteTreatsMissingBlobAsRemoved(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	blobs := newFakeBlobs()
	store.events["event-1"] = storage.Event{ID: "event-1", CreatorID: "creator-1", IsApproved: true}
	service := newTestService(store, blobs)
	creator := identity.Actor{ID: "creator-1"}

	photo, err := service.Submit(context.Background(), creator, SubmitInput{
		EventID:  "event-1",
		Filename: "x.jpg",
		Body:     strings.NewReader("bytes"),
	})
	if err != nil {
		t.Fatalf("submit photo: %v", err)
	}
	delete(blobs.objects, photo.BlobKey)

	result, err := service.Delete(context.Background(), creator, "event-1", photo.ID)
	if err != nil {
		t.Fatalf("delete photo: %v", err)
	}
	if !result.RemovedFromStorage {
		t.Fatal("missing blob should count as removed")
	}
}

func TestDeleteAuthorization(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	blobs := newFakeBlobs()
	store.events["event-1"] = storage.Event{ID: "event-1", CreatorID: "creator-1", IsApproved: true}
	store.rosters["event-1"] = storage.Rosters{JudgeIDs: []string{"judge-attending"}}
	store.photos["photo-1"] = storage.Photo{ID: "photo-1", EventID: "event-1", UploadedBy: "uploader-1", BlobKey: "events/event-1/photo-1"}
	service := newTestService(store, blobs)

	if _, err := service.Delete(context.Background(), identity.Actor{ID: "club-2", Role: identity.RoleClub}, "event-1", "photo-1"); apperrors.KindOf(err) != apperrors.KindForbidden {
		t.Fatalf("expected forbidden for unrelated club, got %v", err)
	}
	// Privileged roles, the uploader, and the creator all may delete.
	if _, err := service.Delete(context.Background(), identity.Actor{ID: "admin-1", Role: identity.RoleAdmin}, "event-1", "photo-1"); err != nil {
		t.Fatalf("admin delete: %v", err)
	}

	store.photos["photo-2"] = storage.Photo{ID: "photo-2", EventID: "event-1", UploadedBy: "uploader-1", BlobKey: "events/event-1/photo-2"}
	if _, err := service.Delete(context.Background(), identity.Actor{ID: "uploader-1", Role: identity.RoleClub}, "event-1", "photo-2"); err != nil {
		t.Fatalf("uploader delete: %v", err)
	}
}

func TestExportArchiveGroupsByPair(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	blobs := newFakeBlobs()
	store.events["event-1"] = storage.Event{ID: "event-1", CreatorID: "creator-1", IsApproved: true}
	seedAttendingPair(store, "event-1", "pair-1", "club-1")
	service := newTestService(store, blobs)

	club := identity.Actor{ID: "club-1", Role: identity.RoleClub}
	if _, err := service.Submit(context.Background(), club, SubmitInput{
		EventID:  "event-1",
		PairID:   "pair-1",
		Filename: "paired.jpg",
		Body:     strings.NewReader("pair bytes"),
	}); err != nil {
		t.Fatalf("submit pair photo: %v", err)
	}
	creator := identity.Actor{ID: "creator-1"}
	if _, err := service.Submit(context.Background(), creator, SubmitInput{
		EventID:  "event-1",
		Filename: "general.jpg",
		Body:     strings.NewReader("general bytes"),
	}); err != nil {
		t.Fatalf("submit uploader photo: %v", err)
	}

	var buffer bytes.Buffer
	if err := service.ExportArchive(context.Background(), creator, "event-1", &buffer); err != nil {
		t.Fatalf("export archive: %v", err)
	}

	reader, err := zip.NewReader(bytes.NewReader(buffer.Bytes()), int64(buffer.Len()))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	names := make(map[string]bool, len(reader.File))
	for _, file := range reader.File {
		names[file.Name] = true
	}
	if !names["pair-pair-1/paired.jpg"] {
		t.Fatalf("missing pair entry, got %v", names)
	}
	if !names["uploader-creator-1/general.jpg"] {
		t.Fatalf("missing uploader entry, got %v", names)
	}

	if err := service.ExportArchive(context.Background(), club, "event-1", &buffer); apperrors.KindOf(err) != apperrors.KindForbidden {
		t.Fatalf("expected forbidden for club export, got %v", err)
	}
}

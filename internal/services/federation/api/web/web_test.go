package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mvoicu/dansport/internal/identity"
	"github.com/mvoicu/dansport/internal/services/federation/blob/fsblob"
	"github.com/mvoicu/dansport/internal/services/federation/domain/events"
	"github.com/mvoicu/dansport/internal/services/federation/domain/invites"
	"github.com/mvoicu/dansport/internal/services/federation/domain/pairs"
	"github.com/mvoicu/dansport/internal/services/federation/domain/participation"
	"github.com/mvoicu/dansport/internal/services/federation/domain/photos"
	"github.com/mvoicu/dansport/internal/services/federation/domain/results"
	"github.com/mvoicu/dansport/internal/services/federation/mail"
	"github.com/mvoicu/dansport/internal/services/federation/storage/sqlite"
)

type recordingMailer struct {
	mu       sync.Mutex
	messages []mail.Message
}

func (m *recordingMailer) Send(_ context.Context, message mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, message)
	return nil
}

type testEnv struct {
	mux    *http.ServeMux
	mailer *recordingMailer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "federation.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})

	blobs, err := fsblob.New(t.TempDir())
	if err != nil {
		t.Fatalf("open blob store: %v", err)
	}

	clock := func() time.Time {
		return time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	}
	var idCounter int
	var idMu sync.Mutex
	newID := func() (string, error) {
		idMu.Lock()
		defer idMu.Unlock()
		idCounter++
		return fmt.Sprintf("id-%03d", idCounter), nil
	}

	mailer := &recordingMailer{}
	logger := log.New(io.Discard, "", 0)

	handlers := NewHandlers(
		events.NewService(store, clock, newID),
		pairs.NewService(store, clock, newID),
		participation.NewService(store, clock, newID),
		photos.NewService(store, blobs, logger, "https://media.example.test", clock, newID),
		results.NewService(store, clock, newID),
		invites.NewService(store, mailer),
	)

	mux := http.NewServeMux()
	RegisterRoutes(mux, handlers)
	return &testEnv{mux: mux, mailer: mailer}
}

func (env *testEnv) do(t *testing.T, method, target string, actor identity.Actor, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !actor.IsAnonymous() {
		req = req.WithContext(identity.WithActor(req.Context(), actor))
	}
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) doMultipart(t *testing.T, target string, actor identity.Actor, pairID, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if pairID != "" {
		if err := writer.WriteField("pair_id", pairID); err != nil {
			t.Fatalf("write pair field: %v", err)
		}
	}
	part, err := writer.CreateFormFile("photo", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write file content: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req = req.WithContext(identity.WithActor(req.Context(), actor))
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

var (
	clubActor  = identity.Actor{ID: "club-1", Role: identity.RoleClub}
	adminActor = identity.Actor{ID: "admin-1", Role: identity.RoleAdmin}
	judgeActor = identity.Actor{ID: "judge-1", Role: identity.RoleJudge}
)

func createEvent(t *testing.T, env *testEnv, actor identity.Actor) string {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/events", actor, map[string]any{
		"title":    "Spring Cup",
		"location": "Cluj Arena",
		"start_at": "2025-04-12T09:00:00Z",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create event status = %d, body %s", rec.Code, rec.Body.String())
	}
	var view struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &view)
	return view.ID
}

func createPair(t *testing.T, env *testEnv, actor identity.Actor) string {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/pairs", actor, map[string]any{
		"partner1": map[string]any{"name": "Ana Pop"},
		"partner2": map[string]any{"name": "Ion Dima"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create pair status = %d, body %s", rec.Code, rec.Body.String())
	}
	var view struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &view)
	return view.ID
}

func attachPair(t *testing.T, env *testEnv, eventID, pairID string, actor identity.Actor) {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/events/"+eventID+"/pairs", actor, map[string]any{
		"pair_ids": []string{pairID},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("attach pair status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestEventApprovalFlow(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	eventID := createEvent(t, env, clubActor)

	rec := env.do(t, http.MethodGet, "/api/events/"+eventID, identity.Actor{}, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unapproved event visible to guest: status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/events/"+eventID+"/approve", clubActor, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("club approve status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	rec = env.do(t, http.MethodPost, "/api/events/"+eventID+"/approve", adminActor, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin approve status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/events/"+eventID, identity.Actor{}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("approved event status = %d", rec.Code)
	}
	var view struct {
		IsApproved bool `json:"is_approved"`
	}
	decodeBody(t, rec, &view)
	if !view.IsApproved {
		t.Fatal("event should be approved")
	}

	rec = env.do(t, http.MethodGet, "/api/events", identity.Actor{}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var listing struct {
		Events []eventView `json:"events"`
	}
	decodeBody(t, rec, &listing)
	if len(listing.Events) != 1 {
		t.Fatalf("listed %d events, want 1", len(listing.Events))
	}
}

func TestEventCreateRequiresAuth(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/events", identity.Actor{}, map[string]any{
		"title":    "Anonymous Cup",
		"start_at": "2025-04-12T09:00:00Z",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	var body struct {
		Error string `json:"error"`
	}
	decodeBody(t, rec, &body)
	if body.Error == "" {
		t.Fatal("expected error message in response body")
	}
}

func TestEventListRangeRejectsBadTimestamp(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/events?from=yesterday", identity.Actor{}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestRosterRoundTrip(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	eventID := createEvent(t, env, clubActor)
	pairID := createPair(t, env, clubActor)
	attachPair(t, env, eventID, pairID, clubActor)

	rec := env.do(t, http.MethodPut, "/api/events/"+eventID+"/attendance", judgeActor, map[string]any{
		"attending": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("attendance status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/events/"+eventID+"/rosters", identity.Actor{}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("rosters status = %d", rec.Code)
	}
	var rosters rostersView
	decodeBody(t, rec, &rosters)
	if len(rosters.Pairs) != 1 || rosters.Pairs[0].ID != pairID {
		t.Fatalf("unexpected roster pairs: %+v", rosters.Pairs)
	}
	if len(rosters.JudgeIDs) != 1 || rosters.JudgeIDs[0] != judgeActor.ID {
		t.Fatalf("unexpected roster judges: %+v", rosters.JudgeIDs)
	}

	rec = env.do(t, http.MethodDelete, "/api/events/"+eventID+"/pairs", clubActor, map[string]any{
		"pair_ids": []string{pairID},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("remove pairs status = %d, body %s", rec.Code, rec.Body.String())
	}
	var state eventWithRostersView
	decodeBody(t, rec, &state)
	if len(state.Rosters.Pairs) != 0 {
		t.Fatalf("roster should be empty, got %+v", state.Rosters.Pairs)
	}
}

func TestPhotoUploadQuota(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	eventID := createEvent(t, env, clubActor)
	pairID := createPair(t, env, clubActor)
	attachPair(t, env, eventID, pairID, clubActor)

	target := "/api/events/" + eventID + "/photos"
	for i := 0; i < photos.QuotaCeiling; i++ {
		rec := env.doMultipart(t, target, clubActor, pairID, fmt.Sprintf("shot-%d.jpg", i), []byte("jpeg-bytes"))
		if rec.Code != http.StatusCreated {
			t.Fatalf("upload %d status = %d, body %s", i, rec.Code, rec.Body.String())
		}
	}

	rec := env.doMultipart(t, target, clubActor, pairID, "overflow.jpg", []byte("jpeg-bytes"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("overflow status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}

	rec = env.do(t, http.MethodGet, target, identity.Actor{}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var listing struct {
		Photos []photoView `json:"photos"`
	}
	decodeBody(t, rec, &listing)
	if len(listing.Photos) != photos.QuotaCeiling {
		t.Fatalf("listed %d photos, want %d", len(listing.Photos), photos.QuotaCeiling)
	}
	if listing.Photos[0].URL == "" {
		t.Fatal("photo URL should be populated")
	}
}

func TestPhotoDeleteReportsStorageRemoval(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	eventID := createEvent(t, env, clubActor)
	pairID := createPair(t, env, clubActor)
	attachPair(t, env, eventID, pairID, clubActor)

	rec := env.doMultipart(t, "/api/events/"+eventID+"/photos", clubActor, pairID, "shot.jpg", []byte("jpeg-bytes"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body.String())
	}
	var uploaded photoView
	decodeBody(t, rec, &uploaded)

	rec = env.do(t, http.MethodDelete, "/api/events/"+eventID+"/photos/"+uploaded.ID, clubActor, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body %s", rec.Code, rec.Body.String())
	}
	var outcome struct {
		RemovedFromStorage bool `json:"removed_from_storage"`
	}
	decodeBody(t, rec, &outcome)
	if !outcome.RemovedFromStorage {
		t.Fatal("blob removal should be acknowledged")
	}
}

func TestPhotoArchiveAuthorization(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	eventID := createEvent(t, env, adminActor)

	rec := env.do(t, http.MethodGet, "/api/events/"+eventID+"/photos/archive", clubActor, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("club archive status = %d, want %d", rec.Code, http.StatusForbidden)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("error content type = %q", ct)
	}

	rec = env.do(t, http.MethodGet, "/api/events/"+eventID+"/photos/archive", adminActor, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin archive status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/zip" {
		t.Fatalf("archive content type = %q", ct)
	}
}

func TestResultNumbersParseLeniently(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	eventID := createEvent(t, env, clubActor)

	rec := env.do(t, http.MethodPost, "/api/events/"+eventID+"/results", clubActor, map[string]any{
		"category": "Latin",
		"round":    "Final",
		"place":    "3rd",
		"score":    "9.5",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add result status = %d, body %s", rec.Code, rec.Body.String())
	}
	var view resultView
	decodeBody(t, rec, &view)
	if view.Place != nil {
		t.Fatalf("non-numeric place should drop to nil, got %d", *view.Place)
	}
	if view.Score == nil || *view.Score != 9.5 {
		t.Fatalf("numeric string score should parse, got %v", view.Score)
	}

	rec = env.do(t, http.MethodDelete, "/api/events/"+eventID+"/results/"+view.ID, clubActor, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("remove result status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestSolicitationConflict(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	eventID := createEvent(t, env, adminActor)

	rec := env.do(t, http.MethodPost, "/api/events/"+eventID+"/solicitations", clubActor, map[string]any{
		"message": "We would like to participate.",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("solicit status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/events/"+eventID+"/solicitations", clubActor, map[string]any{
		"message": "Asking again.",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("repeat solicit status = %d, want %d", rec.Code, http.StatusConflict)
	}

	rec = env.do(t, http.MethodGet, "/api/events/"+eventID+"/solicitations", adminActor, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list solicitations status = %d", rec.Code)
	}
	var listing struct {
		Solicitations []solicitationView `json:"solicitations"`
	}
	decodeBody(t, rec, &listing)
	if len(listing.Solicitations) != 1 {
		t.Fatalf("listed %d solicitations, want 1", len(listing.Solicitations))
	}
}

func TestInviteSend(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	eventID := createEvent(t, env, clubActor)

	rec := env.do(t, http.MethodPost, "/api/events/"+eventID+"/invites", clubActor, map[string]any{
		"to":      []string{"dancer@example.test"},
		"message": "Doors open at nine.",
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("invite status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(env.mailer.messages) != 1 {
		t.Fatalf("sent %d messages, want 1", len(env.mailer.messages))
	}
	if got := env.mailer.messages[0].Subject; got != "Invitation: Spring Cup" {
		t.Fatalf("subject = %q", got)
	}
}

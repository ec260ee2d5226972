package web

import (
	"io"
	"net/http"
	"strings"

	apperrors "github.com/mvoicu/dansport/internal/platform/errors"
	"github.com/mvoicu/dansport/internal/platform/httpx"
	"github.com/mvoicu/dansport/internal/services/federation/domain/photos"
)

const maxUploadBytes = 20 << 20

func (h *Handlers) handlePhotoUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpx.WriteError(w, apperrors.Wrap(apperrors.KindInvalidInput, "parse multipart form", err))
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		httpx.WriteError(w, apperrors.E(apperrors.KindInvalidInput, "photo file is required"))
		return
	}
	defer file.Close()

	photo, err := h.photos.Submit(r.Context(), actorFrom(r), photos.SubmitInput{
		EventID:     pathID(r, "eventID"),
		PairID:      strings.TrimSpace(r.FormValue("pair_id")),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusCreated, renderPhoto(photo))
}

func (h *Handlers) handlePhotoList(w http.ResponseWriter, r *http.Request) {
	list, err := h.photos.List(r.Context(), pathID(r, "eventID"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"photos": renderPhotos(list)})
}

func (h *Handlers) handlePhotoDelete(w http.ResponseWriter, r *http.Request) {
	removed, err := h.photos.Delete(r.Context(), actorFrom(r), pathID(r, "eventID"), pathID(r, "photoID"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"removed_from_storage": removed.RemovedFromStorage})
}

// streamTracker records whether any archive bytes reached the client, so a
// failure before the first write can still produce a JSON error response.
type streamTracker struct {
	dst   io.Writer
	wrote bool
}

func (t *streamTracker) Write(p []byte) (int, error) {
	if len(p) > 0 {
		t.wrote = true
	}
	return t.dst.Write(p)
}

func (h *Handlers) handlePhotoArchive(w http.ResponseWriter, r *http.Request) {
	eventID := pathID(r, "eventID")
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="event-`+eventID+`-photos.zip"`)

	tracker := &streamTracker{dst: w}
	if err := h.photos.ExportArchive(r.Context(), actorFrom(r), eventID, tracker); err != nil {
		if !tracker.wrote {
			w.Header().Del("Content-Disposition")
			httpx.WriteError(w, err)
		}
		return
	}
}

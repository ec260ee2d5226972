package web

import (
	"net/http"
	"time"

	"github.com/mvoicu/dansport/internal/platform/httpx"
	"github.com/mvoicu/dansport/internal/services/federation/domain/events"
)

type eventPayload struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	StartAt     time.Time  `json:"start_at"`
	EndAt       *time.Time `json:"end_at"`
	AllDay      bool       `json:"all_day"`
}

func (h *Handlers) handleEventCreate(w http.ResponseWriter, r *http.Request) {
	var payload eventPayload
	if err := decodeJSON(r, &payload); err != nil {
		httpx.WriteError(w, err)
		return
	}
	event, err := h.events.Create(r.Context(), actorFrom(r), events.CreateInput{
		Title:       payload.Title,
		Description: payload.Description,
		Location:    payload.Location,
		StartAt:     payload.StartAt,
		EndAt:       payload.EndAt,
		AllDay:      payload.AllDay,
	})
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusCreated, renderEvent(event))
}

func (h *Handlers) handleEventList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	from, err := parseTimeParam(query, "from")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	to, err := parseTimeParam(query, "to")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	list, err := h.events.List(r.Context(), actorFrom(r), events.ListInput{From: from, To: to})
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"events": renderEvents(list)})
}

func (h *Handlers) handleEventGet(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.Get(r.Context(), actorFrom(r), pathID(r, "eventID"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, renderEvent(event))
}

func (h *Handlers) handleEventUpdate(w http.ResponseWriter, r *http.Request) {
	var payload eventPayload
	if err := decodeJSON(r, &payload); err != nil {
		httpx.WriteError(w, err)
		return
	}
	event, err := h.events.Update(r.Context(), actorFrom(r), pathID(r, "eventID"), events.UpdateInput{
		Title:       payload.Title,
		Description: payload.Description,
		Location:    payload.Location,
		StartAt:     payload.StartAt,
		EndAt:       payload.EndAt,
		AllDay:      payload.AllDay,
	})
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, renderEvent(event))
}

func (h *Handlers) handleEventDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.events.Delete(r.Context(), actorFrom(r), pathID(r, "eventID")); err != nil {
		httpx.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) handleEventApprove(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.Approve(r.Context(), actorFrom(r), pathID(r, "eventID"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, renderEvent(event))
}

func (h *Handlers) handleEventReject(w http.ResponseWriter, r *http.Request) {
	if err := h.events.Reject(r.Context(), actorFrom(r), pathID(r, "eventID")); err != nil {
		httpx.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

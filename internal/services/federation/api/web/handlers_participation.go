package web

import (
	"net/http"

	"github.com/mvoicu/dansport/internal/platform/httpx"
)

type rosterPairsPayload struct {
	PairIDs []string `json:"pair_ids"`
}

type attendancePayload struct {
	Attending bool `json:"attending"`
}

type solicitationPayload struct {
	Message string `json:"message"`
}

func (h *Handlers) handleRostersGet(w http.ResponseWriter, r *http.Request) {
	rosters, err := h.participation.GetRosters(r.Context(), pathID(r, "eventID"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, renderRosters(rosters))
}

func (h *Handlers) handleEventPairsAdd(w http.ResponseWriter, r *http.Request) {
	var payload rosterPairsPayload
	if err := decodeJSON(r, &payload); err != nil {
		httpx.WriteError(w, err)
		return
	}
	state, err := h.participation.AddPairs(r.Context(), actorFrom(r), pathID(r, "eventID"), payload.PairIDs)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, renderEventWithRosters(state))
}

func (h *Handlers) handleEventPairsRemove(w http.ResponseWriter, r *http.Request) {
	var payload rosterPairsPayload
	if err := decodeJSON(r, &payload); err != nil {
		httpx.WriteError(w, err)
		return
	}
	state, err := h.participation.RemovePairs(r.Context(), actorFrom(r), pathID(r, "eventID"), payload.PairIDs)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, renderEventWithRosters(state))
}

func (h *Handlers) handleJudgeAttendance(w http.ResponseWriter, r *http.Request) {
	var payload attendancePayload
	if err := decodeJSON(r, &payload); err != nil {
		httpx.WriteError(w, err)
		return
	}
	state, err := h.participation.SetJudgeAttendance(r.Context(), actorFrom(r), pathID(r, "eventID"), payload.Attending)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, renderEventWithRosters(state))
}

func (h *Handlers) handleSolicitationCreate(w http.ResponseWriter, r *http.Request) {
	var payload solicitationPayload
	if err := decodeJSON(r, &payload); err != nil {
		httpx.WriteError(w, err)
		return
	}
	item, err := h.participation.Solicit(r.Context(), actorFrom(r), pathID(r, "eventID"), payload.Message)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusCreated, renderSolicitation(item))
}

func (h *Handlers) handleSolicitationList(w http.ResponseWriter, r *http.Request) {
	list, err := h.participation.ListSolicitations(r.Context(), actorFrom(r), pathID(r, "eventID"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"solicitations": renderSolicitations(list)})
}

package web

import (
	"net/http"

	"github.com/mvoicu/dansport/internal/platform/httpx"
	"github.com/mvoicu/dansport/internal/services/federation/domain/results"
)

type resultPayload struct {
	PairID   string    `json:"pair_id"`
	Category string    `json:"category"`
	Round    string    `json:"round"`
	Place    flexInt   `json:"place"`
	Score    flexFloat `json:"score"`
}

func (h *Handlers) handleResultAdd(w http.ResponseWriter, r *http.Request) {
	var payload resultPayload
	if err := decodeJSON(r, &payload); err != nil {
		httpx.WriteError(w, err)
		return
	}
	result, err := h.results.Add(r.Context(), actorFrom(r), pathID(r, "eventID"), results.AddInput{
		PairID:   payload.PairID,
		Category: payload.Category,
		Round:    payload.Round,
		Place:    payload.Place.value,
		Score:    payload.Score.value,
	})
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusCreated, renderResult(result))
}

func (h *Handlers) handleResultList(w http.ResponseWriter, r *http.Request) {
	list, err := h.results.List(r.Context(), pathID(r, "eventID"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"results": renderResults(list)})
}

func (h *Handlers) handleResultRemove(w http.ResponseWriter, r *http.Request) {
	if err := h.results.Remove(r.Context(), actorFrom(r), pathID(r, "eventID"), pathID(r, "resultID")); err != nil {
		httpx.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

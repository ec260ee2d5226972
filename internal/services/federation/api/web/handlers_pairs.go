package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/mvoicu/dansport/internal/platform/httpx"
	"github.com/mvoicu/dansport/internal/services/federation/domain/pairs"
)

type partnerPayload struct {
	Name             string     `json:"name"`
	License          string     `json:"license"`
	MinQualification bool       `json:"min_qualification"`
	Birthdate        *time.Time `json:"birthdate"`
}

type pairPayload struct {
	ClubID      string         `json:"club_id"`
	Partner1    partnerPayload `json:"partner1"`
	Partner2    partnerPayload `json:"partner2"`
	Coach       string         `json:"coach"`
	AgeCategory string         `json:"age_category"`
	ClassLevel  string         `json:"class_level"`
	Discipline  string         `json:"discipline"`
}

func (p pairPayload) input() pairs.PairInput {
	return pairs.PairInput{
		Partner1: pairs.PartnerInput{
			Name:             p.Partner1.Name,
			License:          p.Partner1.License,
			MinQualification: p.Partner1.MinQualification,
			Birthdate:        p.Partner1.Birthdate,
		},
		Partner2: pairs.PartnerInput{
			Name:             p.Partner2.Name,
			License:          p.Partner2.License,
			MinQualification: p.Partner2.MinQualification,
			Birthdate:        p.Partner2.Birthdate,
		},
		Coach:       p.Coach,
		AgeCategory: p.AgeCategory,
		ClassLevel:  p.ClassLevel,
		Discipline:  p.Discipline,
	}
}

func (h *Handlers) handlePairCreate(w http.ResponseWriter, r *http.Request) {
	var payload pairPayload
	if err := decodeJSON(r, &payload); err != nil {
		httpx.WriteError(w, err)
		return
	}
	pair, err := h.pairs.Create(r.Context(), actorFrom(r), payload.ClubID, payload.input())
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusCreated, renderPair(pair))
}

func (h *Handlers) handlePairList(w http.ResponseWriter, r *http.Request) {
	clubID := strings.TrimSpace(r.URL.Query().Get("club"))
	list, err := h.pairs.List(r.Context(), actorFrom(r), clubID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"pairs": renderPairs(list)})
}

func (h *Handlers) handlePairGet(w http.ResponseWriter, r *http.Request) {
	pair, err := h.pairs.Get(r.Context(), actorFrom(r), pathID(r, "pairID"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, renderPair(pair))
}

func (h *Handlers) handlePairUpdate(w http.ResponseWriter, r *http.Request) {
	var payload pairPayload
	if err := decodeJSON(r, &payload); err != nil {
		httpx.WriteError(w, err)
		return
	}
	pair, err := h.pairs.Update(r.Context(), actorFrom(r), pathID(r, "pairID"), payload.input())
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, renderPair(pair))
}

func (h *Handlers) handlePairDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.pairs.Delete(r.Context(), actorFrom(r), pathID(r, "pairID")); err != nil {
		httpx.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package web

import (
	"net/http"

	"github.com/mvoicu/dansport/internal/platform/httpx"
	"github.com/mvoicu/dansport/internal/services/federation/domain/invites"
)

type invitePayload struct {
	To      []string `json:"to"`
	Message string   `json:"message"`
}

func (h *Handlers) handleInviteSend(w http.ResponseWriter, r *http.Request) {
	var payload invitePayload
	if err := decodeJSON(r, &payload); err != nil {
		httpx.WriteError(w, err)
		return
	}
	err := h.invites.Send(r.Context(), actorFrom(r), pathID(r, "eventID"), invites.SendInput{
		To:      payload.To,
		Message: payload.Message,
	})
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Package web exposes the federation JSON API over HTTP.
package web

import (
	"net/http"

	"github.com/mvoicu/dansport/internal/services/federation/domain/events"
	"github.com/mvoicu/dansport/internal/services/federation/domain/invites"
	"github.com/mvoicu/dansport/internal/services/federation/domain/pairs"
	"github.com/mvoicu/dansport/internal/services/federation/domain/participation"
	"github.com/mvoicu/dansport/internal/services/federation/domain/photos"
	"github.com/mvoicu/dansport/internal/services/federation/domain/results"
)

// Handlers bundles the domain services behind the HTTP surface.
type Handlers struct {
	events        *events.Service
	pairs         *pairs.Service
	participation *participation.Service
	photos        *photos.Service
	results       *results.Service
	invites       *invites.Service
}

// NewHandlers wires the domain services into one handler set.
func NewHandlers(
	eventService *events.Service,
	pairService *pairs.Service,
	participationService *participation.Service,
	photoService *photos.Service,
	resultService *results.Service,
	inviteService *invites.Service,
) *Handlers {
	return &Handlers{
		events:        eventService,
		pairs:         pairService,
		participation: participationService,
		photos:        photoService,
		results:       resultService,
		invites:       inviteService,
	}
}

// RegisterRoutes wires the federation API routes into the provided mux.
func RegisterRoutes(mux *http.ServeMux, h *Handlers) {
	if mux == nil || h == nil {
		return
	}

	mux.HandleFunc("POST /api/events", h.handleEventCreate)
	mux.HandleFunc("GET /api/events", h.handleEventList)
	mux.HandleFunc("GET /api/events/{eventID}", h.handleEventGet)
	mux.HandleFunc("PUT /api/events/{eventID}", h.handleEventUpdate)
	mux.HandleFunc("DELETE /api/events/{eventID}", h.handleEventDelete)
	mux.HandleFunc("POST /api/events/{eventID}/approve", h.handleEventApprove)
	mux.HandleFunc("POST /api/events/{eventID}/reject", h.handleEventReject)

	mux.HandleFunc("POST /api/pairs", h.handlePairCreate)
	mux.HandleFunc("GET /api/pairs", h.handlePairList)
	mux.HandleFunc("GET /api/pairs/{pairID}", h.handlePairGet)
	mux.HandleFunc("PUT /api/pairs/{pairID}", h.handlePairUpdate)
	mux.HandleFunc("DELETE /api/pairs/{pairID}", h.handlePairDelete)

	mux.HandleFunc("GET /api/events/{eventID}/rosters", h.handleRostersGet)
	mux.HandleFunc("POST /api/events/{eventID}/pairs", h.handleEventPairsAdd)
	mux.HandleFunc("DELETE /api/events/{eventID}/pairs", h.handleEventPairsRemove)
	mux.HandleFunc("PUT /api/events/{eventID}/attendance", h.handleJudgeAttendance)
	mux.HandleFunc("POST /api/events/{eventID}/solicitations", h.handleSolicitationCreate)
	mux.HandleFunc("GET /api/events/{eventID}/solicitations", h.handleSolicitationList)

	mux.HandleFunc("POST /api/events/{eventID}/photos", h.handlePhotoUpload)
	mux.HandleFunc("GET /api/events/{eventID}/photos", h.handlePhotoList)
	mux.HandleFunc("GET /api/events/{eventID}/photos/archive", h.handlePhotoArchive)
	mux.HandleFunc("DELETE /api/events/{eventID}/photos/{photoID}", h.handlePhotoDelete)

	mux.HandleFunc("POST /api/events/{eventID}/results", h.handleResultAdd)
	mux.HandleFunc("GET /api/events/{eventID}/results", h.handleResultList)
	mux.HandleFunc("DELETE /api/events/{eventID}/results/{resultID}", h.handleResultRemove)

	mux.HandleFunc("POST /api/events/{eventID}/invites", h.handleInviteSend)
}

package handlers

import (
	"net/http"

	"github.com/Dosada05/gauntlet-system/middleware"
	"github.com/Dosada05/gauntlet-system/services"
)

type PhaseHandler struct {
	phaseService services.PhaseService
}

func NewPhaseHandler(ps services.PhaseService) *PhaseHandler {
	return &PhaseHandler{phaseService: ps}
}

// ListHandler handles GET /tournaments/{tournamentID}/phases
func (h *PhaseHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	phases, err := h.phaseService.ListByTournament(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"phases": phases}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StartHandler handles POST /phases/{phaseID}/start
func (h *PhaseHandler) StartHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.GetUserFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	phaseID, err := getIDFromURL(r, "phaseID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	phase, err := h.phaseService.StartPhase(r.Context(), phaseID, actor)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"phase": phase}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AdvanceHandler handles POST /phases/{phaseID}/advance
func (h *PhaseHandler) AdvanceHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.GetUserFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	phaseID, err := getIDFromURL(r, "phaseID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	phase, err := h.phaseService.AdvancePhase(r.Context(), phaseID, actor)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"phase": phase}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

package handlers

import (
	"context"
	"net/http"

	"github.com/Dosada05/gauntlet-system/middleware"
	"github.com/Dosada05/gauntlet-system/models"
	"github.com/Dosada05/gauntlet-system/services"
)

type ParticipantHandler struct {
	participantService services.ParticipantService
}

func NewParticipantHandler(ps services.ParticipantService) *ParticipantHandler {
	return &ParticipantHandler{participantService: ps}
}

// RegisterHandler handles POST /tournaments/{tournamentID}/participants
func (h *ParticipantHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.RegisterParticipantInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	participant, err := h.participantService.Register(r.Context(), tournamentID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"participant": participant}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler handles GET /tournaments/{tournamentID}/participants
func (h *ParticipantHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	participants, err := h.participantService.ListByTournament(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"participants": participants}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ApproveHandler handles POST /participants/{participantID}/approve
func (h *ParticipantHandler) ApproveHandler(w http.ResponseWriter, r *http.Request) {
	h.lifecycleAction(w, r, h.participantService.Approve)
}

// RejectHandler handles POST /participants/{participantID}/reject
func (h *ParticipantHandler) RejectHandler(w http.ResponseWriter, r *http.Request) {
	h.lifecycleAction(w, r, h.participantService.Reject)
}

// EliminateHandler handles POST /participants/{participantID}/eliminate
func (h *ParticipantHandler) EliminateHandler(w http.ResponseWriter, r *http.Request) {
	h.lifecycleAction(w, r, h.participantService.Eliminate)
}

// CheckInHandler handles POST /participants/{participantID}/check-in
func (h *ParticipantHandler) CheckInHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "participantID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	participant, err := h.participantService.CheckIn(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"participant": participant}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RemoveHandler handles DELETE /participants/{participantID}
func (h *ParticipantHandler) RemoveHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.GetUserFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	id, err := getIDFromURL(r, "participantID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.participantService.Remove(r.Context(), id, actor); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// BulkImportHandler handles POST /tournaments/{tournamentID}/participants/import
// The body is raw CSV: ranger_name,player_id per line, optional header row.
func (h *ParticipantHandler) BulkImportHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.GetUserFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.participantService.BulkImport(r.Context(), tournamentID, actor, r.Body)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	status := http.StatusOK
	if result.Imported > 0 && len(result.Errors) == 0 {
		status = http.StatusCreated
	}
	if err := writeJSON(w, status, jsonResponse{"result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// BulkRemoveHandler handles POST /tournaments/{tournamentID}/participants/remove
func (h *ParticipantHandler) BulkRemoveHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.GetUserFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		ParticipantIDs []int `json:"participant_ids"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.participantService.BulkRemove(r.Context(), tournamentID, actor, input.ParticipantIDs); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RecordResultHandler handles POST /participants/{participantID}/results
func (h *ParticipantHandler) RecordResultHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.GetUserFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	id, err := getIDFromURL(r, "participantID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.RecordMatchResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.participantService.RecordMatchResult(r.Context(), id, actor, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ParticipantHandler) lifecycleAction(
	w http.ResponseWriter,
	r *http.Request,
	action func(ctx context.Context, id int, actor *models.User) (*models.Participant, error),
) {
	actor, err := middleware.GetUserFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	id, err := getIDFromURL(r, "participantID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	participant, err := action(r.Context(), id, actor)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"participant": participant}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Dosada05/gauntlet-system/services"
	"github.com/Dosada05/gauntlet-system/standings"
)

type LeaderboardHandler struct {
	leaderboardService services.LeaderboardService
}

func NewLeaderboardHandler(ls services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: ls}
}

// GetHandler handles GET /tournaments/{tournamentID}/leaderboard
func (h *LeaderboardHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var query services.LeaderboardQuery
	params := r.URL.Query()

	if divisionIDStr := params.Get("division_id"); divisionIDStr != "" {
		id, err := strconv.Atoi(divisionIDStr)
		if err != nil || id <= 0 {
			badRequestResponse(w, r, errors.New("invalid division_id query parameter"))
			return
		}
		query.DivisionID = &id
	}
	query.SearchTerm = params.Get("search")
	switch sortBy := params.Get("sort_by"); sortBy {
	case "", string(standings.SortByPoints):
		query.SortBy = standings.SortByPoints
	case string(standings.SortByMatches):
		query.SortBy = standings.SortByMatches
	case string(standings.SortByName):
		query.SortBy = standings.SortByName
	default:
		badRequestResponse(w, r, errors.New("invalid sort_by query parameter"))
		return
	}
	query.Ascending = params.Get("order") == "asc"
	query.ApplyTiebreakers = params.Get("resolve_ties") == "true"

	leaderboard, err := h.leaderboardService.GetLeaderboard(r.Context(), tournamentID, query)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"leaderboard": leaderboard}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

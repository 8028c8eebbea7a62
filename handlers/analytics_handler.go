package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/Dosada05/gauntlet-system/services"
	"github.com/go-chi/chi/v5"
)

type AnalyticsHandler struct {
	analyticsService services.AnalyticsService
}

func NewAnalyticsHandler(as services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: as}
}

// SummaryHandler handles GET /analytics/summary?start_date=...&end_date=...
// Dates are RFC 3339; the window defaults to the trailing 7 days.
func (h *AnalyticsHandler) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseWindow(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	summary, err := h.analyticsService.Summary(r.Context(), start, end)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"summary": summary}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// PlayerStatsHandler handles GET /analytics/players/{playerID}
func (h *AnalyticsHandler) PlayerStatsHandler(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	if playerID == "" {
		badRequestResponse(w, r, errors.New("missing playerID URL parameter"))
		return
	}
	start, end, err := parseWindow(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	stats, err := h.analyticsService.PlayerStats(r.Context(), playerID, start, end)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"stats": stats}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func parseWindow(r *http.Request) (time.Time, time.Time, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -7)

	if startStr := r.URL.Query().Get("start_date"); startStr != "" {
		parsed, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid start_date, expected RFC 3339")
		}
		start = parsed
	}
	if endStr := r.URL.Query().Get("end_date"); endStr != "" {
		parsed, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid end_date, expected RFC 3339")
		}
		end = parsed
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.New("end_date must not precede start_date")
	}
	return start, end, nil
}

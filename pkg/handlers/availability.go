package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"artist-calendar-backend/pkg/calendar"
	"artist-calendar-backend/pkg/consistency"
	"artist-calendar-backend/pkg/models"
	"artist-calendar-backend/pkg/utils"
)

// AvailabilityHandler 可用日处理器
type AvailabilityHandler struct {
	cal *calendar.Service
}

func NewAvailabilityHandler(cal *calendar.Service) *AvailabilityHandler {
	return &AvailabilityHandler{cal: cal}
}

// POST /api/availability-days/toggle
func (h *AvailabilityHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.ToggleRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteAppError(w, err)
		return
	}
	res, err := h.cal.Toggle(r.Context(), user.ID, req)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, res)
}

// PUT /api/availability-days/{date}
func (h *AvailabilityHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.AvailabilityNoteRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteAppError(w, err)
		return
	}
	day, err := h.cal.UpdateNote(r.Context(), user.ID, chi.URLParam(r, "date"), req)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, day)
}

// GET /api/availability-days?start_date=&end_date=
func (h *AvailabilityHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	lag, ok := settle(w, r, h.cal.Tracker(), consistency.ScopeAvailability, consistency.ScopeArtists)
	if !ok {
		return
	}
	start, end := dateRange(r)
	days, err := h.cal.ListRange(r.Context(), scopeFor(user), start, end)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteListResponse(w, days, len(days), lag)
}

// GET /api/availability-days/{date}
func (h *AvailabilityHandler) OnDate(w http.ResponseWriter, r *http.Request) {
	lag, ok := settle(w, r, h.cal.Tracker(), consistency.ScopeAvailability, consistency.ScopeBlocked)
	if !ok {
		return
	}
	day, err := h.cal.AvailabilityOnDate(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteListResponse(w, day, len(day.Artists), lag)
}

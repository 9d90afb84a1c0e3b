package handlers

import (
	"net/http"
	"time"

	"artist-calendar-backend/pkg/apperr"
	"artist-calendar-backend/pkg/calendar"
	"artist-calendar-backend/pkg/consistency"
	"artist-calendar-backend/pkg/models"
	"artist-calendar-backend/pkg/utils"
)

// CalendarHandler 日历视图与修复处理器
type CalendarHandler struct {
	cal     *calendar.Service
	sweeper *consistency.Sweeper
}

func NewCalendarHandler(cal *calendar.Service, sweeper *consistency.Sweeper) *CalendarHandler {
	return &CalendarHandler{cal: cal, sweeper: sweeper}
}

// project 按调用者角色和可选分类生成日历
func (h *CalendarHandler) project(w http.ResponseWriter, r *http.Request) ([]models.CalendarEntry, time.Duration, bool) {
	user, ok := currentUser(w, r)
	if !ok {
		return nil, 0, false
	}
	lag, ok := settle(w, r, h.cal.Tracker(), consistency.ScopeAvailability, consistency.ScopeBlocked, consistency.ScopeArtists)
	if !ok {
		return nil, 0, false
	}

	q := r.URL.Query()
	scope := scopeFor(user)
	if raw, present := q["category"]; present && len(raw) > 0 {
		c, valid := models.ParseCategory(&raw[0])
		if !valid {
			utils.WriteAppError(w, apperr.Validation("category must be DJ, Group or Uncategorized"))
			return nil, 0, false
		}
		scope = scope.WithCategory(c)
	}

	start, end := dateRange(r)
	entries, err := h.cal.Project(r.Context(), scope, start, end)
	if err != nil {
		utils.WriteAppError(w, err)
		return nil, 0, false
	}
	return entries, lag, true
}

// GET /api/calendar?start_date=&end_date=&category=
func (h *CalendarHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	entries, lag, ok := h.project(w, r)
	if !ok {
		return
	}
	utils.WriteListResponse(w, entries, len(entries), lag)
}

// GET /api/calendar.ics
func (h *CalendarHandler) ICS(w http.ResponseWriter, r *http.Request) {
	entries, _, ok := h.project(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calendar.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(calendar.RenderICS(entries, time.Now()))
}

// POST /api/admin/reconcile
func (h *CalendarHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	n, err := h.sweeper.RunOnce(r.Context())
	if err != nil {
		utils.WriteAppError(w, apperr.Transient("reconcile", err))
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"removed_availabilities": n})
}

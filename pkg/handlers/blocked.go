package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"artist-calendar-backend/pkg/calendar"
	"artist-calendar-backend/pkg/consistency"
	"artist-calendar-backend/pkg/models"
	"artist-calendar-backend/pkg/utils"
)

// BlockedHandler 封锁日处理器
type BlockedHandler struct {
	cal *calendar.Service
}

func NewBlockedHandler(cal *calendar.Service) *BlockedHandler {
	return &BlockedHandler{cal: cal}
}

// POST /api/blocked-dates
func (h *BlockedHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.BlockedDateRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteAppError(w, err)
		return
	}
	res, err := h.cal.CreateBlock(r.Context(), req)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	if res.Created {
		utils.WriteCreatedResponse(w, res)
		return
	}
	utils.WriteSuccessResponse(w, res)
}

// POST /api/blocked-dates/recurring
func (h *BlockedHandler) CreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req models.RecurringBlockRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteAppError(w, err)
		return
	}
	results, err := h.cal.CreateRecurringBlocks(r.Context(), req)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	removed := 0
	for _, res := range results {
		removed += res.RemovedAvailabilities
	}
	utils.WriteCreatedResponse(w, map[string]interface{}{
		"blocks":                 results,
		"count":                  len(results),
		"removed_availabilities": removed,
	})
}

// PUT /api/blocked-dates/{id}
func (h *BlockedHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.BlockedDateUpdateRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteAppError(w, err)
		return
	}
	b, err := h.cal.UpdateBlock(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, b)
}

// DELETE /api/blocked-dates/{id}
func (h *BlockedHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.cal.DeleteBlock(r.Context(), chi.URLParam(r, "id")); err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"deleted": true})
}

// GET /api/blocked-dates?start_date=&end_date=
func (h *BlockedHandler) List(w http.ResponseWriter, r *http.Request) {
	lag, ok := settle(w, r, h.cal.Tracker(), consistency.ScopeBlocked)
	if !ok {
		return
	}
	start, end := dateRange(r)
	blocks, err := h.cal.ListBlocks(r.Context(), start, end)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteListResponse(w, blocks, len(blocks), lag)
}

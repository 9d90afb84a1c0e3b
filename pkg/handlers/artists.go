package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"artist-calendar-backend/pkg/calendar"
	"artist-calendar-backend/pkg/consistency"
	"artist-calendar-backend/pkg/models"
	"artist-calendar-backend/pkg/utils"
)

// ArtistHandler 艺人与资料处理器
type ArtistHandler struct {
	cal *calendar.Service
}

func NewArtistHandler(cal *calendar.Service) *ArtistHandler {
	return &ArtistHandler{cal: cal}
}

// GET /api/artists
func (h *ArtistHandler) List(w http.ResponseWriter, r *http.Request) {
	lag, ok := settle(w, r, h.cal.Tracker(), consistency.ScopeArtists)
	if !ok {
		return
	}
	artists, err := h.cal.ListArtists(r.Context())
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteListResponse(w, artists, len(artists), lag)
}

// PATCH /api/artists/{id}/category
func (h *ArtistHandler) SetCategory(w http.ResponseWriter, r *http.Request) {
	var req models.CategoryRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteAppError(w, err)
		return
	}
	artist, err := h.cal.SetCategory(r.Context(), chi.URLParam(r, "id"), req.Category)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, artist)
}

// DELETE /api/artists/{id}
func (h *ArtistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	n, err := h.cal.DeleteArtist(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"deleted_availabilities": n})
}

// GET /api/profile
func (h *ArtistHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	artist, err := h.cal.GetProfile(r.Context(), user.ID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, artist)
}

// PUT /api/profile
func (h *ArtistHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.ArtistProfileRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteAppError(w, err)
		return
	}
	artist, err := h.cal.UpdateProfile(r.Context(), user.ID, req)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, artist)
}

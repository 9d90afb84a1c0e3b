package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"artist-calendar-backend/pkg/consistency"
	"artist-calendar-backend/pkg/invitations"
	"artist-calendar-backend/pkg/models"
	"artist-calendar-backend/pkg/utils"
)

// InvitationHandler 邀请处理器
type InvitationHandler struct {
	svc     *invitations.Service
	tracker consistency.Tracker
}

func NewInvitationHandler(svc *invitations.Service, tracker consistency.Tracker) *InvitationHandler {
	return &InvitationHandler{svc: svc, tracker: tracker}
}

// GET /api/invitations/verify/{token}
func (h *InvitationHandler) Verify(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Verify(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, res)
}

// POST /api/invitations
func (h *InvitationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.InvitationCreateRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteAppError(w, err)
		return
	}
	inv, err := h.svc.Issue(r.Context(), req)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, map[string]interface{}{
		"invitation": inv,
		"link":       h.svc.Link(inv.Token),
	})
}

// GET /api/invitations
func (h *InvitationHandler) List(w http.ResponseWriter, r *http.Request) {
	lag, ok := settle(w, r, h.tracker, consistency.ScopeInvitations)
	if !ok {
		return
	}
	list, err := h.svc.List(r.Context())
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteListResponse(w, list, len(list), lag)
}

// DELETE /api/invitations/{id}
func (h *InvitationHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Revoke(r.Context(), chi.URLParam(r, "id")); err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"revoked": true})
}

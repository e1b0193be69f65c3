package handler

import (
	"net/http"

	"github.com/BytePitApp/bytepit-api/internal/api/middleware"
	"github.com/BytePitApp/bytepit-api/internal/app/service"
	"github.com/BytePitApp/bytepit-api/internal/common"
	"github.com/BytePitApp/bytepit-api/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type AdminHandler struct {
	adminService *service.AdminService
}

func NewAdminHandler(as *service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: as}
}

func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Use(middleware.RequireRole(model.RoleAdmin))
	r.Get("/users", h.listUsers)
	r.Get("/organisers/unapproved", h.listUnapprovedOrganisers)
	r.Post("/organisers/{username}/approve", h.approveOrganiser)
	r.Patch("/users/{username}/role", h.changeRole)
}

func (h *AdminHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.adminService.ListUsers(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, users)
}

func (h *AdminHandler) listUnapprovedOrganisers(w http.ResponseWriter, r *http.Request) {
	users, err := h.adminService.ListUnapprovedOrganisers(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, users)
}

func (h *AdminHandler) approveOrganiser(w http.ResponseWriter, r *http.Request) {
	if err := h.adminService.ApproveOrganiser(r.Context(), chi.URLParam(r, "username")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) changeRole(w http.ResponseWriter, r *http.Request) {
	var req service.ChangeRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.adminService.ChangeRole(r.Context(), chi.URLParam(r, "username"), req); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

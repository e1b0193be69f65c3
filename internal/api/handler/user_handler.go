package handler

import (
	"net/http"

	"github.com/BytePitApp/bytepit-api/internal/api/middleware"
	"github.com/BytePitApp/bytepit-api/internal/app/service"
	"github.com/BytePitApp/bytepit-api/internal/common"

	"github.com/go-chi/chi/v5"
)

type UserHandler struct {
	authService        *service.AuthService
	problemService     *service.ProblemService
	competitionService *service.CompetitionService
}

func NewUserHandler(as *service.AuthService, ps *service.ProblemService, cs *service.CompetitionService) *UserHandler {
	return &UserHandler{authService: as, problemService: ps, competitionService: cs}
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Get("/current", h.currentUser)
	r.Get("/{username}", h.getUser)
	r.Get("/{userID}/trophies", h.trophies)
	r.Get("/{userID}/statistics", h.statistics)
}

func (h *UserHandler) currentUser(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	user, err := h.authService.CurrentUser(r.Context(), actor.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, user)
}

func (h *UserHandler) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.GetUserByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, user)
}

func (h *UserHandler) trophies(w http.ResponseWriter, r *http.Request) {
	trophies, err := h.competitionService.UserTrophies(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, trophies)
}

func (h *UserHandler) statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.problemService.UserStatistics(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, stats)
}

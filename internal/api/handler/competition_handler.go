package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/BytePitApp/bytepit-api/internal/api/middleware"
	"github.com/BytePitApp/bytepit-api/internal/app/service"
	"github.com/BytePitApp/bytepit-api/internal/common"
	"github.com/BytePitApp/bytepit-api/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

var trophyFields = [3]string{"first_place_trophy", "second_place_trophy", "third_place_trophy"}

type CompetitionHandler struct {
	competitionService *service.CompetitionService
}

func NewCompetitionHandler(cs *service.CompetitionService) *CompetitionHandler {
	return &CompetitionHandler{competitionService: cs}
}

func (h *CompetitionHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Get("/", h.listCompetitions)
	r.Get("/active", h.listActiveCompetitions)
	r.Get("/random", h.randomCompetition)
	r.Get("/organiser/{organiserID}", h.listByOrganiser)
	r.Get("/{competitionID}", h.getCompetition)
	r.Get("/{competitionID}/results", h.results)
	r.Get("/virtual/{competitionID}/results", h.virtualResults)
	r.Post("/{competitionID}/virtual", h.createVirtualCompetition)

	r.Group(func(organiserRouter chi.Router) {
		organiserRouter.Use(middleware.RequireRole(model.RoleOrganiser, model.RoleAdmin))
		organiserRouter.Post("/", h.createCompetition)
		organiserRouter.Patch("/{competitionID}", h.updateCompetition)
		organiserRouter.Delete("/{competitionID}", h.deleteCompetition)
		organiserRouter.Post("/{competitionID}/trophies/{userID}", h.awardTrophy)
	})
}

func (h *CompetitionHandler) createCompetition(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := parseMultipart(r); err != nil {
		respondError(w, r, err)
		return
	}
	patch, trophies, err := competitionFromForm(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	competition, err := h.competitionService.CreateCompetition(r.Context(), actor, service.CreateCompetitionRequest{
		Name:        deref(patch.Name),
		Description: deref(patch.Description),
		StartTime:   deref(patch.StartTime),
		EndTime:     deref(patch.EndTime),
		Problems:    deref(patch.Problems),
		Trophies:    trophies,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, competition)
}

func (h *CompetitionHandler) updateCompetition(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := parseMultipart(r); err != nil {
		respondError(w, r, err)
		return
	}
	patch, trophies, err := competitionFromForm(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	competition, err := h.competitionService.UpdateCompetition(r.Context(), actor, chi.URLParam(r, "competitionID"), service.UpdateCompetitionRequest{
		Patch:    patch,
		Trophies: trophies,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, competition)
}

func competitionFromForm(r *http.Request) (model.CompetitionPatch, service.TrophyIcons, error) {
	patch := model.CompetitionPatch{
		Name:        formString(r, "name"),
		Description: formString(r, "description"),
		Problems:    formList(r, "problems"),
	}
	var trophies service.TrophyIcons
	var err error
	if patch.StartTime, err = formTime(r, "start_time"); err != nil {
		return patch, trophies, err
	}
	if patch.EndTime, err = formTime(r, "end_time"); err != nil {
		return patch, trophies, err
	}
	for i, field := range trophyFields {
		if trophies[i], err = formFile(r, field); err != nil {
			return patch, trophies, err
		}
	}
	return patch, trophies, nil
}

func (h *CompetitionHandler) createVirtualCompetition(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	competition, err := h.competitionService.CreateVirtualCompetition(r.Context(), actor, chi.URLParam(r, "competitionID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, competition)
}

func (h *CompetitionHandler) deleteCompetition(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.competitionService.DeleteCompetition(r.Context(), actor, chi.URLParam(r, "competitionID")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CompetitionHandler) getCompetition(w http.ResponseWriter, r *http.Request) {
	details, err := h.competitionService.GetCompetition(r.Context(), chi.URLParam(r, "competitionID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, details)
}

func (h *CompetitionHandler) listCompetitions(w http.ResponseWriter, r *http.Request) {
	competitions, err := h.competitionService.ListCompetitions(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, competitions)
}

func (h *CompetitionHandler) listActiveCompetitions(w http.ResponseWriter, r *http.Request) {
	competitions, err := h.competitionService.ListActiveCompetitions(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, competitions)
}

func (h *CompetitionHandler) randomCompetition(w http.ResponseWriter, r *http.Request) {
	competition, err := h.competitionService.RandomCompetition(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, competition)
}

func (h *CompetitionHandler) listByOrganiser(w http.ResponseWriter, r *http.Request) {
	competitions, err := h.competitionService.ListCompetitionsByOrganiser(r.Context(), chi.URLParam(r, "organiserID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, competitions)
}

func (h *CompetitionHandler) results(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	entries, err := h.competitionService.Results(r.Context(), chi.URLParam(r, "competitionID"), actor.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, entries)
}

func (h *CompetitionHandler) virtualResults(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	entries, err := h.competitionService.VirtualResults(r.Context(), chi.URLParam(r, "competitionID"), actor.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, entries)
}

func (h *CompetitionHandler) awardTrophy(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	position, err := strconv.Atoi(r.URL.Query().Get("position"))
	if err != nil {
		respondError(w, r, fmt.Errorf("position must be an integer: %w", common.ErrValidation))
		return
	}
	err = h.competitionService.AwardTrophy(r.Context(), actor, chi.URLParam(r, "competitionID"), chi.URLParam(r, "userID"), position)
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

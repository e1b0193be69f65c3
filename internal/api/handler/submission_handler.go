package handler

import (
	"net/http"

	"github.com/BytePitApp/bytepit-api/internal/api/middleware"
	"github.com/BytePitApp/bytepit-api/internal/app/service"
	"github.com/BytePitApp/bytepit-api/internal/common"

	"github.com/go-chi/chi/v5"
)

type SubmissionHandler struct {
	submissionService *service.SubmissionService
}

func NewSubmissionHandler(ss *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: ss}
}

func (h *SubmissionHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator) // All submission routes require auth
	r.Post("/", h.createSubmission)
	r.Get("/{problemID}", h.getPracticeResult)
	r.Get("/{problemID}/{competitionID}", h.getCompetitionResult)
}

// createSubmission evaluates synchronously and answers with the verdict.
func (h *SubmissionHandler) createSubmission(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req service.CreateSubmissionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	verdict, err := h.submissionService.Evaluate(r.Context(), actor.UserID, req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, verdict)
}

func (h *SubmissionHandler) getPracticeResult(w http.ResponseWriter, r *http.Request) {
	h.respondWithResult(w, r, nil)
}

func (h *SubmissionHandler) getCompetitionResult(w http.ResponseWriter, r *http.Request) {
	competitionID := chi.URLParam(r, "competitionID")
	h.respondWithResult(w, r, &competitionID)
}

func (h *SubmissionHandler) respondWithResult(w http.ResponseWriter, r *http.Request, competitionID *string) {
	actor, err := actorFromRequest(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	result, err := h.submissionService.GetResult(r.Context(), chi.URLParam(r, "problemID"), actor.UserID, competitionID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}

package handler

import (
	"net/http"

	"github.com/BytePitApp/bytepit-api/internal/api/middleware"
	"github.com/BytePitApp/bytepit-api/internal/app/service"
	"github.com/BytePitApp/bytepit-api/internal/common"
	"github.com/BytePitApp/bytepit-api/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type ProblemHandler struct {
	problemService *service.ProblemService
}

func NewProblemHandler(ps *service.ProblemService) *ProblemHandler {
	return &ProblemHandler{problemService: ps}
}

func (h *ProblemHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Get("/", h.listPublicProblems)
	r.Get("/organiser/{organiserID}", h.listByOrganiser)
	r.Get("/{problemID}", h.getProblem)

	r.Group(func(adminRouter chi.Router) {
		adminRouter.Use(middleware.RequireRole(model.RoleAdmin))
		adminRouter.Get("/all", h.listAllProblems)
	})

	r.Group(func(organiserRouter chi.Router) {
		organiserRouter.Use(middleware.RequireRole(model.RoleOrganiser, model.RoleAdmin))
		organiserRouter.Post("/", h.createProblem)
		organiserRouter.Patch("/{problemID}", h.updateProblem)
		organiserRouter.Delete("/{problemID}", h.deleteProblem)
		organiserRouter.Get("/{problemID}/files/{fileName}", h.downloadTestFile)
	})
}

func (h *ProblemHandler) createProblem(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := parseMultipart(r); err != nil {
		respondError(w, r, err)
		return
	}

	patch, err := problemPatchFromForm(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	files, err := testFiles(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	req := service.CreateProblemRequest{
		Name:          deref(patch.Name),
		ExampleInput:  deref(patch.ExampleInput),
		ExampleOutput: deref(patch.ExampleOutput),
		IsHidden:      deref(patch.IsHidden),
		NumOfPoints:   deref(patch.NumOfPoints),
		RuntimeLimit:  deref(patch.RuntimeLimit),
		Description:   deref(patch.Description),
		IsPrivate:     deref(patch.IsPrivate),
		TestFiles:     files,
	}

	problem, err := h.problemService.CreateProblem(r.Context(), actor, req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, problem)
}

func (h *ProblemHandler) updateProblem(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := parseMultipart(r); err != nil {
		respondError(w, r, err)
		return
	}

	patch, err := problemPatchFromForm(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	files, err := testFiles(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	problem, err := h.problemService.UpdateProblem(r.Context(), actor, chi.URLParam(r, "problemID"), service.UpdateProblemRequest{
		Patch:     patch,
		TestFiles: files,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problem)
}

func problemPatchFromForm(r *http.Request) (model.ProblemPatch, error) {
	patch := model.ProblemPatch{
		Name:          formString(r, "name"),
		ExampleInput:  formString(r, "example_input"),
		ExampleOutput: formString(r, "example_output"),
		Description:   formString(r, "description"),
	}
	var err error
	if patch.IsHidden, err = formBool(r, "is_hidden"); err != nil {
		return patch, err
	}
	if patch.IsPrivate, err = formBool(r, "is_private"); err != nil {
		return patch, err
	}
	if patch.NumOfPoints, err = formFloat(r, "num_of_points"); err != nil {
		return patch, err
	}
	if patch.RuntimeLimit, err = formFloat(r, "runtime_limit"); err != nil {
		return patch, err
	}
	return patch, nil
}

func (h *ProblemHandler) deleteProblem(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.problemService.DeleteProblem(r.Context(), actor, chi.URLParam(r, "problemID")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProblemHandler) getProblem(w http.ResponseWriter, r *http.Request) {
	problem, err := h.problemService.GetProblem(r.Context(), chi.URLParam(r, "problemID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problem)
}

func (h *ProblemHandler) listPublicProblems(w http.ResponseWriter, r *http.Request) {
	problems, err := h.problemService.ListPublicProblems(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problems)
}

func (h *ProblemHandler) listAllProblems(w http.ResponseWriter, r *http.Request) {
	problems, err := h.problemService.ListAllProblems(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problems)
}

func (h *ProblemHandler) listByOrganiser(w http.ResponseWriter, r *http.Request) {
	problems, err := h.problemService.ListProblemsByOrganiser(r.Context(), chi.URLParam(r, "organiserID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problems)
}

func (h *ProblemHandler) downloadTestFile(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	fileName := chi.URLParam(r, "fileName")
	content, err := h.problemService.GetTestFile(r.Context(), actor, chi.URLParam(r, "problemID"), fileName)
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+fileName+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}

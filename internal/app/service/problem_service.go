package service

import (
	"context"
	"fmt"
	"time"

	"github.com/BytePitApp/bytepit-api/internal/common"
	"github.com/BytePitApp/bytepit-api/internal/domain/model"
	"github.com/BytePitApp/bytepit-api/internal/domain/repository"
	"github.com/BytePitApp/bytepit-api/internal/platform/logger"

	"github.com/google/uuid"
	"github.com/gosimple/slug" // For slug generation
)

type ProblemService struct {
	problemRepo repository.ProblemRepository
	resultRepo  repository.ResultRepository
	tests       repository.TestCaseStore
	db          TxBeginner // For transactions
	now         func() time.Time
}

func NewProblemService(
	problemRepo repository.ProblemRepository,
	resultRepo repository.ResultRepository,
	tests repository.TestCaseStore,
	db TxBeginner,
) *ProblemService {
	return &ProblemService{
		problemRepo: problemRepo,
		resultRepo:  resultRepo,
		tests:       tests,
		db:          db,
		now:         time.Now,
	}
}

type CreateProblemRequest struct {
	Name          string           `json:"name" validate:"required"`
	ExampleInput  string           `json:"example_input"`
	ExampleOutput string           `json:"example_output"`
	IsHidden      bool             `json:"is_hidden"`
	NumOfPoints   float64          `json:"num_of_points" validate:"gt=0"`
	RuntimeLimit  float64          `json:"runtime_limit" validate:"gt=0"` // seconds
	Description   string           `json:"description" validate:"required"`
	IsPrivate     bool             `json:"is_private"`
	TestFiles     []model.TestFile `json:"-"`
}

type UpdateProblemRequest struct {
	Patch     model.ProblemPatch
	TestFiles []model.TestFile // empty keeps the stored tests
}

func (s *ProblemService) CreateProblem(ctx context.Context, actor Actor, req CreateProblemRequest) (*model.Problem, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if err := repository.ValidateTestFiles(req.TestFiles); err != nil {
		return nil, err
	}

	problem := &model.Problem{
		ID:            uuid.NewString(),
		Name:          req.Name,
		Slug:          slug.Make(req.Name),
		ExampleInput:  req.ExampleInput,
		ExampleOutput: req.ExampleOutput,
		IsHidden:      req.IsHidden,
		NumOfPoints:   req.NumOfPoints,
		RuntimeLimit:  req.RuntimeLimit,
		Description:   req.Description,
		OrganiserID:   actor.UserID,
		IsPrivate:     req.IsPrivate,
		CreatedOn:     s.now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Rollback if not committed

	if err := s.problemRepo.CreateProblem(ctx, tx, problem); err != nil {
		return nil, common.Errorf("failed to create problem in DB: %w", err)
	}
	// Uploading before commit keeps the row out of sight until its tests exist.
	if err := s.tests.SaveTests(ctx, problem.ID, req.TestFiles); err != nil {
		s.dropTests(ctx, problem.ID)
		return nil, common.Errorf("failed to upload test files: %w", err)
	}
	if err := tx.Commit(); err != nil {
		s.dropTests(ctx, problem.ID)
		return nil, common.Errorf("failed to commit transaction: %w", err)
	}
	return problem, nil
}

func (s *ProblemService) UpdateProblem(ctx context.Context, actor Actor, problemID string, req UpdateProblemRequest) (*model.Problem, error) {
	current, err := s.problemRepo.FindProblemByID(ctx, problemID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(current.OrganiserID) {
		return nil, common.Errorf("only the problem's organiser can change it: %w", common.ErrForbidden)
	}

	updated := req.Patch.Apply(*current)
	if updated.Name == "" {
		return nil, common.Errorf("name is required: %w", common.ErrValidation)
	}
	if updated.NumOfPoints <= 0 || updated.RuntimeLimit <= 0 {
		return nil, common.Errorf("num_of_points and runtime_limit must be positive: %w", common.ErrValidation)
	}
	if updated.Name != current.Name {
		updated.Slug = slug.Make(updated.Name)
	}
	if len(req.TestFiles) > 0 {
		if err := repository.ValidateTestFiles(req.TestFiles); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.problemRepo.UpdateProblem(ctx, tx, &updated); err != nil {
		return nil, common.Errorf("failed to update problem: %w", err)
	}
	// New files are uploaded over the old ones. Stale files are only removed
	// once the update is committed, so a failed upload leaves every old test
	// case readable.
	if len(req.TestFiles) > 0 {
		if err := s.tests.SaveTests(ctx, problemID, req.TestFiles); err != nil {
			return nil, common.Errorf("failed to upload test files: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit transaction: %w", err)
	}
	if len(req.TestFiles) > 0 {
		s.pruneTests(ctx, problemID, req.TestFiles)
	}
	return &updated, nil
}

// pruneTests removes test files left over from a previous upload on a best
// effort basis.
func (s *ProblemService) pruneTests(ctx context.Context, problemID string, files []model.TestFile) {
	keep := make([]string, len(files))
	for i, f := range files {
		keep[i] = f.Name
	}
	if err := s.tests.PruneTests(context.WithoutCancel(ctx), problemID, keep); err != nil {
		logger.FromContext(ctx).Warn("failed to prune old test files", "problem_id", problemID, "error", err)
	}
}

func (s *ProblemService) DeleteProblem(ctx context.Context, actor Actor, problemID string) error {
	problem, err := s.problemRepo.FindProblemByID(ctx, problemID)
	if err != nil {
		return err
	}
	if !actor.CanManage(problem.OrganiserID) {
		return common.Errorf("only the problem's organiser can delete it: %w", common.ErrForbidden)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.problemRepo.DeleteProblem(ctx, tx, problemID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return common.Errorf("failed to commit transaction: %w", err)
	}
	s.dropTests(ctx, problemID)
	return nil
}

// dropTests removes uploaded blobs on a best effort basis.
func (s *ProblemService) dropTests(ctx context.Context, problemID string) {
	if err := s.tests.DeleteTests(context.WithoutCancel(ctx), problemID); err != nil {
		logger.FromContext(ctx).Warn("failed to delete test files", "problem_id", problemID, "error", err)
	}
}

func (s *ProblemService) GetProblem(ctx context.Context, problemID string) (*model.Problem, error) {
	return s.problemRepo.FindProblemByID(ctx, problemID)
}

func (s *ProblemService) ListPublicProblems(ctx context.Context) ([]model.Problem, error) {
	return s.problemRepo.ListPublicProblems(ctx)
}

func (s *ProblemService) ListAllProblems(ctx context.Context) ([]model.Problem, error) {
	return s.problemRepo.ListAllProblems(ctx)
}

func (s *ProblemService) ListProblemsByOrganiser(ctx context.Context, organiserID string) ([]model.Problem, error) {
	return s.problemRepo.ListProblemsByOrganiser(ctx, organiserID)
}

// GetTestFile returns a raw test blob to the problem's organiser or an admin.
func (s *ProblemService) GetTestFile(ctx context.Context, actor Actor, problemID, fileName string) ([]byte, error) {
	problem, err := s.problemRepo.FindProblemByID(ctx, problemID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(problem.OrganiserID) {
		return nil, common.Errorf("test files are only visible to the organiser: %w", common.ErrForbidden)
	}
	content, err := s.tests.GetFile(ctx, problemID, fileName)
	if err != nil {
		return nil, fmt.Errorf("test file %s: %w", fileName, err)
	}
	return content, nil
}

func (s *ProblemService) UserStatistics(ctx context.Context, userID string) (*model.UserStatistics, error) {
	return s.resultRepo.Statistics(ctx, userID)
}

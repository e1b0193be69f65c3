package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BytePitApp/bytepit-api/internal/common"
	"github.com/BytePitApp/bytepit-api/internal/domain/model"
	"github.com/BytePitApp/bytepit-api/internal/domain/repository"
	"github.com/BytePitApp/bytepit-api/internal/platform/logger"
)

// Executor runs a program once against one stdin.
type Executor interface {
	Execute(ctx context.Context, source, stdin string, language model.Language) (*model.ExecutionResult, error)
}

// Locker serialises work on a key across API instances.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(context.Context) error, error)
}

type SubmissionService struct {
	problemRepo     repository.ProblemRepository
	competitionRepo repository.CompetitionRepository
	resultRepo      repository.ResultRepository
	tests           repository.TestCaseStore
	executor        Executor
	locker          Locker // nil disables the per-user guard
	now             func() time.Time
}

func NewSubmissionService(
	problemRepo repository.ProblemRepository,
	competitionRepo repository.CompetitionRepository,
	resultRepo repository.ResultRepository,
	tests repository.TestCaseStore,
	executor Executor,
	locker Locker,
) *SubmissionService {
	return &SubmissionService{
		problemRepo:     problemRepo,
		competitionRepo: competitionRepo,
		resultRepo:      resultRepo,
		tests:           tests,
		executor:        executor,
		locker:          locker,
		now:             time.Now,
	}
}

type CreateSubmissionRequest struct {
	ProblemID     string         `json:"problem_id" validate:"required"`
	CompetitionID *string        `json:"competition_id,omitempty"`
	SourceCode    string         `json:"source_code" validate:"required"`
	Language      model.Language `json:"language" validate:"required,oneof=python c cpp nodejs javascript java"`
}

// Evaluate grades a submission against every test case of the problem and
// stores it when it beats the user's previous best.
func (s *SubmissionService) Evaluate(ctx context.Context, userID string, req CreateSubmissionRequest) (*model.EvaluationVerdict, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.CompetitionID != nil && *req.CompetitionID == "" {
		req.CompetitionID = nil
	}

	problem, err := s.problemRepo.FindProblemByID(ctx, req.ProblemID)
	if err != nil {
		return nil, fmt.Errorf("problem %s: %w", req.ProblemID, err)
	}
	if req.CompetitionID != nil {
		if err := s.checkCompetition(ctx, *req.CompetitionID, problem.ID); err != nil {
			return nil, err
		}
	}

	tests, err := s.tests.ListTests(ctx, problem.ID)
	if err != nil {
		return nil, fmt.Errorf("load test cases: %w", err)
	}
	if len(tests) == 0 {
		return nil, fmt.Errorf("problem has no test cases: %w", common.ErrInvalidState)
	}

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("another submission is being evaluated: %w", err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				logger.FromContext(ctx).Warn("failed to release submission lock", "user_id", userID, "error", err)
			}
		}()
	}

	runs := make([]model.ExecutionResult, 0, len(tests))
	for _, tc := range tests {
		res, err := s.executor.Execute(ctx, req.SourceCode, tc.Input, req.Language)
		if err != nil {
			return nil, err
		}
		if res.Exception != nil {
			return nil, fmt.Errorf("%s: %w", *res.Exception, common.ErrExecution)
		}
		runs = append(runs, *res)
	}

	summary := scoreRuns(problem, tests, runs)

	improved, err := s.resultRepo.Upsert(ctx, &model.ProblemResult{
		ProblemID:      problem.ID,
		CompetitionID:  req.CompetitionID,
		UserID:         userID,
		AverageRuntime: summary.averageRuntime,
		IsCorrect:      summary.isCorrect,
		NumOfPoints:    summary.points,
		SourceCode:     req.SourceCode,
		Language:       req.Language,
	})
	if err != nil {
		if !errors.Is(err, common.ErrPersistence) {
			err = fmt.Errorf("%w: %w", common.ErrPersistence, err)
		}
		return nil, err
	}

	logger.FromContext(ctx).Info("submission evaluated",
		"problem_id", problem.ID, "user_id", userID, "points", summary.points, "improved", improved)

	return &model.EvaluationVerdict{
		IsCorrect:        summary.isCorrect,
		IsRuntimeOK:      summary.isRuntimeOK,
		HasImproved:      improved,
		Points:           summary.points,
		AverageRuntime:   summary.averageRuntime,
		IncorrectOutputs: summary.incorrectOutputs,
	}, nil
}

// checkCompetition accepts top-level competitions that are running and
// virtual ones at any time, as long as they include the problem.
func (s *SubmissionService) checkCompetition(ctx context.Context, competitionID, problemID string) error {
	competition, err := s.competitionRepo.FindCompetition(ctx, competitionID)
	if errors.Is(err, common.ErrNotFound) {
		competition, err = s.competitionRepo.FindVirtualCompetition(ctx, competitionID)
	}
	if err != nil {
		return fmt.Errorf("competition %s: %w", competitionID, err)
	}

	if !competition.IsVirtual() && !competition.IsRunning(s.now()) {
		return fmt.Errorf("competition is not running: %w", common.ErrInvalidState)
	}
	if !competition.HasProblem(problemID) {
		return fmt.Errorf("problem is not in competition: %w", common.ErrInvalidState)
	}
	return nil
}

func (s *SubmissionService) GetResult(ctx context.Context, problemID, userID string, competitionID *string) (*model.ProblemResult, error) {
	res, err := s.resultRepo.Find(ctx, problemID, userID, competitionID)
	if err != nil {
		return nil, fmt.Errorf("submission: %w", err)
	}
	return res, nil
}

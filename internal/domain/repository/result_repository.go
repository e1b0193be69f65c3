package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/BytePitApp/bytepit-api/internal/common"
	"github.com/BytePitApp/bytepit-api/internal/domain/model"
	"github.com/google/uuid"
)

type ResultRepository interface {
	// Upsert stores result unless an existing row for the same key is at
	// least as good. It reports whether a row was written.
	Upsert(ctx context.Context, result *model.ProblemResult) (bool, error)
	Find(ctx context.Context, problemID, userID string, competitionID *string) (*model.ProblemResult, error)
	ListByCompetition(ctx context.Context, competitionID string) ([]model.ProblemResult, error)
	Statistics(ctx context.Context, userID string) (*model.UserStatistics, error)
}

type pgResultRepository struct {
	db *sql.DB
}

func NewPgResultRepository(db *sql.DB) ResultRepository {
	return &pgResultRepository{db: db}
}

// The WHERE on DO UPDATE makes the write conditional: strictly more points,
// or equal points with a strictly lower average runtime. A skipped update
// reports zero affected rows.
const (
	upsertPracticeResult = `
INSERT INTO problem_results (id, problem_id, competition_id, user_id, average_runtime, is_correct, num_of_points, source_code, language)
VALUES ($1, $2, NULL, $3, $4, $5, $6, $7, $8)
ON CONFLICT (problem_id, user_id) WHERE competition_id IS NULL DO UPDATE
SET average_runtime = EXCLUDED.average_runtime, is_correct = EXCLUDED.is_correct, num_of_points = EXCLUDED.num_of_points,
    source_code = EXCLUDED.source_code, language = EXCLUDED.language, updated_at = NOW()
WHERE problem_results.num_of_points < EXCLUDED.num_of_points
   OR (problem_results.num_of_points = EXCLUDED.num_of_points AND problem_results.average_runtime > EXCLUDED.average_runtime)`

	upsertCompetitionResult = `
INSERT INTO problem_results (id, problem_id, competition_id, user_id, average_runtime, is_correct, num_of_points, source_code, language)
VALUES ($1, $2, $9, $3, $4, $5, $6, $7, $8)
ON CONFLICT (problem_id, competition_id, user_id) WHERE competition_id IS NOT NULL DO UPDATE
SET average_runtime = EXCLUDED.average_runtime, is_correct = EXCLUDED.is_correct, num_of_points = EXCLUDED.num_of_points,
    source_code = EXCLUDED.source_code, language = EXCLUDED.language, updated_at = NOW()
WHERE problem_results.num_of_points < EXCLUDED.num_of_points
   OR (problem_results.num_of_points = EXCLUDED.num_of_points AND problem_results.average_runtime > EXCLUDED.average_runtime)`
)

func (r *pgResultRepository) Upsert(ctx context.Context, result *model.ProblemResult) (bool, error) {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	args := []any{
		result.ID, result.ProblemID, result.UserID, result.AverageRuntime,
		result.IsCorrect, result.NumOfPoints, result.SourceCode, string(result.Language),
	}
	query := upsertPracticeResult
	if result.CompetitionID != nil {
		query = upsertCompetitionResult
		args = append(args, *result.CompetitionID)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("pgResultRepository.Upsert: %w: %w", common.ErrPersistence, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("pgResultRepository.Upsert rows affected: %w: %w", common.ErrPersistence, err)
	}
	return n == 1, nil
}

const resultColumns = `pr.id, pr.problem_id, pr.competition_id, pr.user_id, pr.average_runtime, pr.is_correct,
       pr.num_of_points, pr.source_code, pr.language, p.name, pr.updated_at`

func scanResult(row interface{ Scan(...any) error }) (*model.ProblemResult, error) {
	res := &model.ProblemResult{}
	var language string
	err := row.Scan(
		&res.ID, &res.ProblemID, &res.CompetitionID, &res.UserID, &res.AverageRuntime, &res.IsCorrect,
		&res.NumOfPoints, &res.SourceCode, &language, &res.ProblemName, &res.UpdatedAt,
	)
	res.Language = model.Language(language)
	return res, err
}

func (r *pgResultRepository) Find(ctx context.Context, problemID, userID string, competitionID *string) (*model.ProblemResult, error) {
	query := `SELECT ` + resultColumns + `
	            FROM problem_results pr JOIN problems p ON p.id = pr.problem_id
	           WHERE pr.problem_id = $1 AND pr.user_id = $2 AND pr.competition_id IS NOT DISTINCT FROM $3`
	res, err := scanResult(r.db.QueryRowContext(ctx, query, problemID, userID, competitionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgResultRepository.Find: %w", err)
	}
	return res, nil
}

func (r *pgResultRepository) ListByCompetition(ctx context.Context, competitionID string) ([]model.ProblemResult, error) {
	query := `SELECT ` + resultColumns + `
	            FROM problem_results pr JOIN problems p ON p.id = pr.problem_id
	           WHERE pr.competition_id = $1
	           ORDER BY pr.updated_at`
	rows, err := r.db.QueryContext(ctx, query, competitionID)
	if err != nil {
		return nil, fmt.Errorf("pgResultRepository.ListByCompetition: %w", err)
	}
	defer rows.Close()

	results := []model.ProblemResult{}
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("pgResultRepository.ListByCompetition scan: %w", err)
		}
		results = append(results, *res)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgResultRepository.ListByCompetition rows.Err: %w", err)
	}
	return results, nil
}

func (r *pgResultRepository) Statistics(ctx context.Context, userID string) (*model.UserStatistics, error) {
	query := `SELECT COUNT(DISTINCT problem_id),
	                 COUNT(DISTINCT problem_id) FILTER (WHERE is_correct),
	                 COUNT(DISTINCT competition_id)
	            FROM problem_results
	           WHERE user_id = $1`
	stats := &model.UserStatistics{UserID: userID}
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&stats.TotalAttempted, &stats.TotalSolved, &stats.CompetitionsRun); err != nil {
		return nil, fmt.Errorf("pgResultRepository.Statistics: %w", err)
	}
	return stats, nil
}

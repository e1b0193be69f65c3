package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/BytePitApp/bytepit-api/internal/common"
	"github.com/BytePitApp/bytepit-api/internal/domain/model"
)

type ProblemRepository interface {
	CreateProblem(ctx context.Context, tx *sql.Tx, problem *model.Problem) error
	UpdateProblem(ctx context.Context, tx *sql.Tx, problem *model.Problem) error
	DeleteProblem(ctx context.Context, tx *sql.Tx, id string) error
	FindProblemByID(ctx context.Context, id string) (*model.Problem, error)
	ListPublicProblems(ctx context.Context) ([]model.Problem, error)
	ListAllProblems(ctx context.Context) ([]model.Problem, error)
	ListProblemsByOrganiser(ctx context.Context, organiserID string) ([]model.Problem, error)
	ListProblemsByCompetition(ctx context.Context, competitionID string) ([]model.Problem, error)
}

type pgProblemRepository struct {
	db *sql.DB
}

func NewPgProblemRepository(db *sql.DB) ProblemRepository {
	return &pgProblemRepository{db: db}
}

const problemColumns = `p.id, p.name, p.slug, p.example_input, p.example_output, p.is_hidden, p.num_of_points,
       p.runtime_limit, p.description, p.organiser_id, p.is_private, p.created_on`

func scanProblem(row interface{ Scan(...any) error }) (*model.Problem, error) {
	p := &model.Problem{}
	err := row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.ExampleInput, &p.ExampleOutput, &p.IsHidden, &p.NumOfPoints,
		&p.RuntimeLimit, &p.Description, &p.OrganiserID, &p.IsPrivate, &p.CreatedOn,
	)
	return p, err
}

func (r *pgProblemRepository) CreateProblem(ctx context.Context, tx *sql.Tx, p *model.Problem) error {
	query := `INSERT INTO problems (id, name, slug, example_input, example_output, is_hidden, num_of_points,
	                                runtime_limit, description, organiser_id, is_private, created_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := conn(r.db, tx).ExecContext(ctx, query,
		p.ID, p.Name, p.Slug, p.ExampleInput, p.ExampleOutput, p.IsHidden, p.NumOfPoints,
		p.RuntimeLimit, p.Description, p.OrganiserID, p.IsPrivate, p.CreatedOn,
	)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("problem already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgProblemRepository.CreateProblem: %w", err)
	}
	return nil
}

func (r *pgProblemRepository) UpdateProblem(ctx context.Context, tx *sql.Tx, p *model.Problem) error {
	query := `UPDATE problems SET
                name = $1, slug = $2, example_input = $3, example_output = $4, is_hidden = $5,
                num_of_points = $6, runtime_limit = $7, description = $8, is_private = $9
              WHERE id = $10`
	res, err := conn(r.db, tx).ExecContext(ctx, query,
		p.Name, p.Slug, p.ExampleInput, p.ExampleOutput, p.IsHidden,
		p.NumOfPoints, p.RuntimeLimit, p.Description, p.IsPrivate, p.ID,
	)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.UpdateProblem: %w", err)
	}
	return expectOneRow(res, "pgProblemRepository.UpdateProblem")
}

func (r *pgProblemRepository) DeleteProblem(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := conn(r.db, tx).ExecContext(ctx, `DELETE FROM problems WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.DeleteProblem: %w", err)
	}
	return expectOneRow(res, "pgProblemRepository.DeleteProblem")
}

func (r *pgProblemRepository) FindProblemByID(ctx context.Context, id string) (*model.Problem, error) {
	query := `SELECT ` + problemColumns + ` FROM problems p WHERE p.id = $1`
	problem, err := scanProblem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.FindProblemByID: %w", err)
	}
	return problem, nil
}

func (r *pgProblemRepository) listProblems(ctx context.Context, op, query string, args ...any) ([]model.Problem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.%s: %w", op, err)
	}
	defer rows.Close()

	problems := []model.Problem{}
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, fmt.Errorf("pgProblemRepository.%s scan: %w", op, err)
		}
		problems = append(problems, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgProblemRepository.%s rows.Err: %w", op, err)
	}
	return problems, nil
}

func (r *pgProblemRepository) ListPublicProblems(ctx context.Context) ([]model.Problem, error) {
	return r.listProblems(ctx, "ListPublicProblems",
		`SELECT `+problemColumns+` FROM problems p WHERE p.is_hidden = FALSE AND p.is_private = FALSE ORDER BY p.created_on DESC`)
}

func (r *pgProblemRepository) ListAllProblems(ctx context.Context) ([]model.Problem, error) {
	return r.listProblems(ctx, "ListAllProblems",
		`SELECT `+problemColumns+` FROM problems p ORDER BY p.created_on DESC`)
}

func (r *pgProblemRepository) ListProblemsByOrganiser(ctx context.Context, organiserID string) ([]model.Problem, error) {
	return r.listProblems(ctx, "ListProblemsByOrganiser",
		`SELECT `+problemColumns+` FROM problems p WHERE p.organiser_id = $1 ORDER BY p.created_on DESC`, organiserID)
}

func (r *pgProblemRepository) ListProblemsByCompetition(ctx context.Context, competitionID string) ([]model.Problem, error) {
	return r.listProblems(ctx, "ListProblemsByCompetition",
		`SELECT `+problemColumns+`
		   FROM problems p
		   JOIN competition_problems cp ON cp.problem_id = p.id
		  WHERE cp.competition_id = $1
		  ORDER BY cp.sort_order`, competitionID)
}

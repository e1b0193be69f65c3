package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/BytePitApp/bytepit-api/internal/common"
	"github.com/BytePitApp/bytepit-api/internal/domain/model"
)

type CompetitionRepository interface {
	CreateCompetition(ctx context.Context, tx *sql.Tx, c *model.Competition) error
	UpdateCompetition(ctx context.Context, tx *sql.Tx, c *model.Competition) error
	DeleteCompetition(ctx context.Context, id string) error
	// FindCompetition only returns top-level (non-virtual) competitions.
	FindCompetition(ctx context.Context, id string) (*model.Competition, error)
	FindVirtualCompetition(ctx context.Context, id string) (*model.Competition, error)
	ListCompetitions(ctx context.Context) ([]model.Competition, error)
	ListActiveCompetitions(ctx context.Context, now time.Time) ([]model.Competition, error)
	RandomCompetition(ctx context.Context) (*model.Competition, error)
	ListCompetitionsByOrganiser(ctx context.Context, organiserID string) ([]model.Competition, error)
}

type pgCompetitionRepository struct {
	db *sql.DB
}

func NewPgCompetitionRepository(db *sql.DB) CompetitionRepository {
	return &pgCompetitionRepository{db: db}
}

const competitionColumns = `id, name, description, start_time, end_time, parent_id, organiser_id`

func scanCompetition(row interface{ Scan(...any) error }) (*model.Competition, error) {
	c := &model.Competition{}
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.StartTime, &c.EndTime, &c.ParentID, &c.OrganiserID)
	return c, err
}

func (r *pgCompetitionRepository) CreateCompetition(ctx context.Context, tx *sql.Tx, c *model.Competition) error {
	query := `INSERT INTO competitions (id, name, description, start_time, end_time, parent_id, organiser_id)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	q := conn(r.db, tx)
	if _, err := q.ExecContext(ctx, query, c.ID, c.Name, c.Description, c.StartTime, c.EndTime, c.ParentID, c.OrganiserID); err != nil {
		return fmt.Errorf("pgCompetitionRepository.CreateCompetition: %w", err)
	}
	return r.insertProblems(ctx, q, c.ID, c.Problems)
}

func (r *pgCompetitionRepository) UpdateCompetition(ctx context.Context, tx *sql.Tx, c *model.Competition) error {
	query := `UPDATE competitions SET name = $1, description = $2, start_time = $3, end_time = $4 WHERE id = $5`
	q := conn(r.db, tx)
	res, err := q.ExecContext(ctx, query, c.Name, c.Description, c.StartTime, c.EndTime, c.ID)
	if err != nil {
		return fmt.Errorf("pgCompetitionRepository.UpdateCompetition: %w", err)
	}
	if err := expectOneRow(res, "pgCompetitionRepository.UpdateCompetition"); err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM competition_problems WHERE competition_id = $1`, c.ID); err != nil {
		return fmt.Errorf("pgCompetitionRepository.UpdateCompetition clear problems: %w", err)
	}
	return r.insertProblems(ctx, q, c.ID, c.Problems)
}

func (r *pgCompetitionRepository) insertProblems(ctx context.Context, q querier, competitionID string, problemIDs []string) error {
	query := `INSERT INTO competition_problems (competition_id, problem_id, sort_order) VALUES ($1, $2, $3)`
	for i, problemID := range problemIDs {
		if _, err := q.ExecContext(ctx, query, competitionID, problemID, i); err != nil {
			return fmt.Errorf("pgCompetitionRepository.insertProblems: %w", err)
		}
	}
	return nil
}

func (r *pgCompetitionRepository) DeleteCompetition(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM competitions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgCompetitionRepository.DeleteCompetition: %w", err)
	}
	return expectOneRow(res, "pgCompetitionRepository.DeleteCompetition")
}

func (r *pgCompetitionRepository) findOne(ctx context.Context, op, query string, args ...any) (*model.Competition, error) {
	c, err := scanCompetition(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgCompetitionRepository.%s: %w", op, err)
	}
	if c.Problems, err = r.problemIDs(ctx, c.ID); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *pgCompetitionRepository) FindCompetition(ctx context.Context, id string) (*model.Competition, error) {
	return r.findOne(ctx, "FindCompetition",
		`SELECT `+competitionColumns+` FROM competitions WHERE id = $1 AND parent_id IS NULL`, id)
}

func (r *pgCompetitionRepository) FindVirtualCompetition(ctx context.Context, id string) (*model.Competition, error) {
	return r.findOne(ctx, "FindVirtualCompetition",
		`SELECT `+competitionColumns+` FROM competitions WHERE id = $1 AND parent_id IS NOT NULL`, id)
}

func (r *pgCompetitionRepository) RandomCompetition(ctx context.Context) (*model.Competition, error) {
	return r.findOne(ctx, "RandomCompetition",
		`SELECT `+competitionColumns+` FROM competitions WHERE parent_id IS NULL ORDER BY RANDOM() LIMIT 1`)
}

func (r *pgCompetitionRepository) list(ctx context.Context, op, query string, args ...any) ([]model.Competition, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgCompetitionRepository.%s: %w", op, err)
	}
	competitions := []model.Competition{}
	for rows.Next() {
		c, err := scanCompetition(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("pgCompetitionRepository.%s scan: %w", op, err)
		}
		competitions = append(competitions, *c)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("pgCompetitionRepository.%s rows.Err: %w", op, err)
	}

	for i := range competitions {
		if competitions[i].Problems, err = r.problemIDs(ctx, competitions[i].ID); err != nil {
			return nil, err
		}
	}
	return competitions, nil
}

func (r *pgCompetitionRepository) ListCompetitions(ctx context.Context) ([]model.Competition, error) {
	return r.list(ctx, "ListCompetitions",
		`SELECT `+competitionColumns+` FROM competitions WHERE parent_id IS NULL ORDER BY start_time DESC`)
}

func (r *pgCompetitionRepository) ListActiveCompetitions(ctx context.Context, now time.Time) ([]model.Competition, error) {
	return r.list(ctx, "ListActiveCompetitions",
		`SELECT `+competitionColumns+` FROM competitions
		  WHERE start_time <= $1 AND end_time > $1 AND parent_id IS NULL
		  ORDER BY start_time ASC`, now)
}

func (r *pgCompetitionRepository) ListCompetitionsByOrganiser(ctx context.Context, organiserID string) ([]model.Competition, error) {
	return r.list(ctx, "ListCompetitionsByOrganiser",
		`SELECT `+competitionColumns+` FROM competitions WHERE organiser_id = $1 AND parent_id IS NULL ORDER BY start_time DESC`,
		organiserID)
}

func (r *pgCompetitionRepository) problemIDs(ctx context.Context, competitionID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT problem_id FROM competition_problems WHERE competition_id = $1 ORDER BY sort_order`, competitionID)
	if err != nil {
		return nil, fmt.Errorf("pgCompetitionRepository.problemIDs: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgCompetitionRepository.problemIDs scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgCompetitionRepository.problemIDs rows.Err: %w", err)
	}
	return ids, nil
}

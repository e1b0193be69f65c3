package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/BytePitApp/bytepit-api/internal/domain/model"
	"github.com/google/uuid"
)

type TrophyRepository interface {
	// ReplaceTrophies drops the competition's trophies and inserts one per icon, icons[0] being first place.
	ReplaceTrophies(ctx context.Context, tx *sql.Tx, competitionID string, icons [][]byte) error
	ListByCompetition(ctx context.Context, competitionID string) ([]model.Trophy, error)
	SetOwner(ctx context.Context, competitionID string, position int, userID string) error
	ListByUser(ctx context.Context, userID string) ([]model.UserTrophy, error)
}

type pgTrophyRepository struct {
	db *sql.DB
}

func NewPgTrophyRepository(db *sql.DB) TrophyRepository {
	return &pgTrophyRepository{db: db}
}

func (r *pgTrophyRepository) ReplaceTrophies(ctx context.Context, tx *sql.Tx, competitionID string, icons [][]byte) error {
	q := conn(r.db, tx)
	if _, err := q.ExecContext(ctx, `DELETE FROM trophies WHERE competition_id = $1`, competitionID); err != nil {
		return fmt.Errorf("pgTrophyRepository.ReplaceTrophies delete: %w", err)
	}
	query := `INSERT INTO trophies (id, competition_id, position, icon) VALUES ($1, $2, $3, $4)`
	for i, icon := range icons {
		if _, err := q.ExecContext(ctx, query, uuid.NewString(), competitionID, i+1, icon); err != nil {
			return fmt.Errorf("pgTrophyRepository.ReplaceTrophies insert: %w", err)
		}
	}
	return nil
}

func (r *pgTrophyRepository) ListByCompetition(ctx context.Context, competitionID string) ([]model.Trophy, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, competition_id, position, user_id, icon FROM trophies WHERE competition_id = $1 ORDER BY position`,
		competitionID)
	if err != nil {
		return nil, fmt.Errorf("pgTrophyRepository.ListByCompetition: %w", err)
	}
	defer rows.Close()

	trophies := []model.Trophy{}
	for rows.Next() {
		var t model.Trophy
		if err := rows.Scan(&t.ID, &t.CompetitionID, &t.Position, &t.UserID, &t.Icon); err != nil {
			return nil, fmt.Errorf("pgTrophyRepository.ListByCompetition scan: %w", err)
		}
		trophies = append(trophies, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgTrophyRepository.ListByCompetition rows.Err: %w", err)
	}
	return trophies, nil
}

func (r *pgTrophyRepository) SetOwner(ctx context.Context, competitionID string, position int, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE trophies SET user_id = $1 WHERE competition_id = $2 AND position = $3`,
		userID, competitionID, position)
	if err != nil {
		return fmt.Errorf("pgTrophyRepository.SetOwner: %w", err)
	}
	return expectOneRow(res, "pgTrophyRepository.SetOwner")
}

// Podium places are computed from summed points per finished, non-virtual
// competition. On equal points the user who reached the total first ranks
// higher, then the lower user id.
const userTrophiesQuery = `
WITH total_points AS (
    SELECT competition_id, user_id, SUM(num_of_points) AS total_points, MAX(updated_at) AS reached_at
      FROM problem_results
     WHERE competition_id IS NOT NULL
     GROUP BY competition_id, user_id
), ranked AS (
    SELECT competition_id, user_id, total_points,
           ROW_NUMBER() OVER (
               PARTITION BY competition_id ORDER BY total_points DESC, reached_at ASC, user_id ASC
           ) AS rn
      FROM total_points
)
SELECT ranked.competition_id, ranked.rn, trophies.icon
  FROM ranked
  JOIN competitions ON competitions.id = ranked.competition_id
  JOIN trophies ON trophies.competition_id = ranked.competition_id AND trophies.position = ranked.rn
 WHERE ranked.rn <= 3
   AND ranked.user_id = $1
   AND competitions.end_time < NOW()
   AND competitions.parent_id IS NULL
 ORDER BY ranked.total_points DESC`

func (r *pgTrophyRepository) ListByUser(ctx context.Context, userID string) ([]model.UserTrophy, error) {
	rows, err := r.db.QueryContext(ctx, userTrophiesQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("pgTrophyRepository.ListByUser: %w", err)
	}
	defer rows.Close()

	trophies := []model.UserTrophy{}
	for rows.Next() {
		var t model.UserTrophy
		if err := rows.Scan(&t.CompetitionID, &t.RankInCompetition, &t.Icon); err != nil {
			return nil, fmt.Errorf("pgTrophyRepository.ListByUser scan: %w", err)
		}
		trophies = append(trophies, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgTrophyRepository.ListByUser rows.Err: %w", err)
	}
	return trophies, nil
}

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/BytePitApp/bytepit-api/internal/domain/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTrophiesByUserBreaksTies(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewPgTrophyRepository(db)

	organiser := uuid.NewString()
	early := "ffffffff-ffff-ffff-ffff-ffffffffffff"
	lowID := "00000000-0000-0000-0000-000000000001"
	highID := "00000000-0000-0000-0000-000000000002"
	for i, id := range []string{organiser, early, lowID, highID} {
		_, err := db.ExecContext(ctx,
			`INSERT INTO users (id, username, email, password_hash, role) VALUES ($1, $2, $3, 'hash', 'contestant')`,
			id, "user"+string(rune('a'+i)), string(rune('a'+i))+"@example.com")
		require.NoError(t, err)
	}

	problemID := uuid.NewString()
	_, err := db.ExecContext(ctx,
		`INSERT INTO problems (id, name, slug, num_of_points, runtime_limit, organiser_id) VALUES ($1, 'Sum', 'sum', 10, 1, $2)`,
		problemID, organiser)
	require.NoError(t, err)

	now := time.Now()
	competitionID := uuid.NewString()
	_, err = db.ExecContext(ctx,
		`INSERT INTO competitions (id, name, start_time, end_time, organiser_id) VALUES ($1, 'Cup', $2, $3, $4)`,
		competitionID, now.Add(-3*time.Hour), now.Add(-time.Hour), organiser)
	require.NoError(t, err)
	require.NoError(t, repo.ReplaceTrophies(ctx, nil, competitionID,
		[][]byte{[]byte("gold"), []byte("silver"), []byte("bronze")}))

	// Everyone ends on the same total. The early user got there first.
	for _, r := range []struct {
		userID    string
		reachedAt time.Time
	}{
		{early, now.Add(-2 * time.Hour)},
		{lowID, now.Add(-90 * time.Minute)},
		{highID, now.Add(-90 * time.Minute)},
	} {
		_, err = db.ExecContext(ctx,
			`INSERT INTO problem_results (id, problem_id, competition_id, user_id, average_runtime, is_correct, num_of_points, source_code, language, updated_at)
			 VALUES ($1, $2, $3, $4, 100, TRUE, 10, 'print(1)', 'python', $5)`,
			uuid.NewString(), problemID, competitionID, r.userID, r.reachedAt)
		require.NoError(t, err)
	}

	for userID, want := range map[string]model.UserTrophy{
		early:  {CompetitionID: competitionID, RankInCompetition: 1, Icon: []byte("gold")},
		lowID:  {CompetitionID: competitionID, RankInCompetition: 2, Icon: []byte("silver")},
		highID: {CompetitionID: competitionID, RankInCompetition: 3, Icon: []byte("bronze")},
	} {
		trophies, err := repo.ListByUser(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, []model.UserTrophy{want}, trophies, userID)
	}
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/BytePitApp/bytepit-api/internal/common"
	"github.com/BytePitApp/bytepit-api/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ranks(entries []model.LeaderboardEntry) []int {
	out := make([]int, len(entries))
	for i, e := range entries {
		out[i] = e.Rank
	}
	return out
}

func userIDs(entries []model.LeaderboardEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.UserID
	}
	return out
}

func TestRankEntries(t *testing.T) {
	tests := []struct {
		name      string
		totals    []float64
		wantRanks []int
	}{
		{"single entry", []float64{3}, []int{1}},
		{"dense ties", []float64{10, 7, 7, 3}, []int{1, 2, 2, 3}},
		{"tie at the top", []float64{5, 5, 1}, []int{1, 1, 2}},
		{"unsorted input", []float64{1, 9, 4}, []int{1, 2, 3}},
		{"empty", nil, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := make([]model.LeaderboardEntry, len(tt.totals))
			for i, total := range tt.totals {
				entries[i] = model.LeaderboardEntry{TotalPoints: total}
			}

			rankEntries(entries)

			assert.Equal(t, tt.wantRanks, ranks(entries))
		})
	}
}

func TestRankEntriesKeepsOrderOfTies(t *testing.T) {
	entries := []model.LeaderboardEntry{
		{UserID: "a", TotalPoints: 2},
		{UserID: "b", TotalPoints: 5},
		{UserID: "c", TotalPoints: 2},
	}

	rankEntries(entries)

	assert.Equal(t, []string{"b", "a", "c"}, userIDs(entries))
}

func TestGroupByUser(t *testing.T) {
	results := []model.ProblemResult{
		{UserID: "u2", ProblemID: "p1", NumOfPoints: 5},
		{UserID: "u1", ProblemID: "p1", NumOfPoints: 10},
		{UserID: "u2", ProblemID: "p2", NumOfPoints: 2.5},
	}

	entries := groupByUser(results)

	require.Len(t, entries, 2)
	assert.Equal(t, "u2", entries[0].UserID)
	assert.Equal(t, 7.5, entries[0].TotalPoints)
	assert.Len(t, entries[0].ProblemResults, 2)
	assert.Equal(t, 10.0, entries[1].TotalPoints)
}

type competitionFixture struct {
	svc          *CompetitionService
	competitions *fakeCompetitionRepo
	problems     *fakeProblemRepo
	results      *fakeResultRepo
	trophies     *fakeTrophyRepo
	users        *fakeUserRepo
}

func newCompetitionFixture(t *testing.T) *competitionFixture {
	t.Helper()
	parent := &model.Competition{
		ID: "c1", Name: "Spring Cup", OrganiserID: "org",
		StartTime: fixedNow.Add(-48 * time.Hour), EndTime: fixedNow.Add(-46 * time.Hour),
		Problems: []string{"p1", "p2"},
	}
	virtual := &model.Competition{
		ID: "v1", Name: "Spring Cup", OrganiserID: "u3", ParentID: ptr("c1"),
		StartTime: fixedNow.Add(-time.Hour), EndTime: fixedNow.Add(time.Hour),
		Problems: []string{"p1", "p2"},
	}
	f := &competitionFixture{
		competitions: newFakeCompetitionRepo(parent, virtual),
		problems: newFakeProblemRepo(
			&model.Problem{ID: "p1", NumOfPoints: 10, RuntimeLimit: 1},
			&model.Problem{ID: "p2", NumOfPoints: 10, RuntimeLimit: 1},
		),
		results:  newFakeResultRepo(),
		trophies: newFakeTrophyRepo(),
		users: newFakeUserRepo(
			&model.User{ID: "org", Username: "organiser"},
			&model.User{ID: "u1", Username: "ana"},
			&model.User{ID: "u2", Username: "ivan"},
			&model.User{ID: "u3", Username: "marko"},
		),
	}
	f.results.byCompetition["c1"] = []model.ProblemResult{
		{UserID: "u1", ProblemID: "p1", NumOfPoints: 10, IsCorrect: true, SourceCode: "u1-p1"},
		{UserID: "u2", ProblemID: "p1", NumOfPoints: 10, IsCorrect: true, SourceCode: "u2-p1"},
		{UserID: "u2", ProblemID: "p2", NumOfPoints: 5, SourceCode: "u2-p2"},
		{UserID: "u3", ProblemID: "p1", NumOfPoints: 2.5, SourceCode: "u3-p1"},
	}
	f.svc = NewCompetitionService(f.competitions, f.problems, f.results, f.trophies, f.users, newMockTx(t, 0))
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func TestResults(t *testing.T) {
	f := newCompetitionFixture(t)

	entries, err := f.svc.Results(context.Background(), "c1", "u1")

	require.NoError(t, err)
	assert.Equal(t, []string{"u2", "u1", "u3"}, userIDs(entries))
	assert.Equal(t, []int{1, 2, 3}, ranks(entries))
	assert.Equal(t, []string{"ivan", "ana", "marko"}, []string{entries[0].Username, entries[1].Username, entries[2].Username})

	// u1 solved p1 only, so u2's p2 source stays hidden.
	assert.Equal(t, "u2-p1", entries[0].ProblemResults[0].SourceCode)
	assert.Equal(t, "", entries[0].ProblemResults[1].SourceCode)
	assert.Equal(t, "u1-p1", entries[1].ProblemResults[0].SourceCode)
}

func TestResultsCachesUsernames(t *testing.T) {
	f := newCompetitionFixture(t)

	_, err := f.svc.Results(context.Background(), "c1", "u1")
	require.NoError(t, err)
	lookups := f.users.findByIDs

	_, err = f.svc.Results(context.Background(), "c1", "u1")
	require.NoError(t, err)
	assert.Equal(t, lookups, f.users.findByIDs)
}

func TestResultsRejectsVirtualCompetition(t *testing.T) {
	f := newCompetitionFixture(t)

	_, err := f.svc.Results(context.Background(), "v1", "u1")

	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestVirtualResults(t *testing.T) {
	f := newCompetitionFixture(t)
	f.results.byCompetition["v1"] = []model.ProblemResult{
		{UserID: "u3", ProblemID: "p1", NumOfPoints: 10, IsCorrect: true, SourceCode: "v-p1"},
		{UserID: "u3", ProblemID: "p2", NumOfPoints: 5, SourceCode: "v-p2"},
	}

	entries, err := f.svc.VirtualResults(context.Background(), "v1", "u3")

	require.NoError(t, err)
	// The original 2.5 point entry of u3 is replaced by the virtual run, tied with u2.
	assert.Equal(t, []string{"u2", "u3", "u1"}, userIDs(entries))
	assert.Equal(t, []int{1, 1, 2}, ranks(entries))
	assert.Equal(t, 15.0, entries[1].TotalPoints)
	assert.Equal(t, "u2-p1", entries[0].ProblemResults[0].SourceCode)
	assert.Equal(t, "", entries[0].ProblemResults[1].SourceCode)
}

func TestVirtualResultsSingleEntry(t *testing.T) {
	f := newCompetitionFixture(t)
	f.results.byCompetition["c1"] = nil
	f.results.byCompetition["v1"] = []model.ProblemResult{{UserID: "u3", ProblemID: "p1", NumOfPoints: 1}}

	entries, err := f.svc.VirtualResults(context.Background(), "v1", "u3")

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Rank)
}

func TestVirtualResultsWithoutOwnRun(t *testing.T) {
	f := newCompetitionFixture(t)

	_, err := f.svc.VirtualResults(context.Background(), "v1", "u3")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = f.svc.VirtualResults(context.Background(), "c1", "u3")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

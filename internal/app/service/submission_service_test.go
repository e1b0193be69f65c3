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

type submissionFixture struct {
	svc          *SubmissionService
	problems     *fakeProblemRepo
	competitions *fakeCompetitionRepo
	results      *fakeResultRepo
	tests        *fakeTestStore
	executor     *scriptedExecutor
	locker       *fakeLocker
}

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newSubmissionFixture() *submissionFixture {
	f := &submissionFixture{
		problems:     newFakeProblemRepo(&model.Problem{ID: "p1", Name: "Sum", NumOfPoints: 10, RuntimeLimit: 1}),
		competitions: newFakeCompetitionRepo(),
		results:      newFakeResultRepo(),
		tests:        newFakeTestStore(),
		executor:     &scriptedExecutor{},
		locker:       &fakeLocker{},
	}
	f.tests.tests["p1"] = testCases("1", "2", "3", "4")
	f.svc = NewSubmissionService(f.problems, f.competitions, f.results, f.tests, f.executor, f.locker)
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func runsWithOutputs(outputs ...string) []model.ExecutionResult {
	runs := make([]model.ExecutionResult, len(outputs))
	for i, o := range outputs {
		runs[i] = model.ExecutionResult{Stdout: o + "\n", ExecutionTime: 100}
	}
	return runs
}

func submission(competitionID *string) CreateSubmissionRequest {
	return CreateSubmissionRequest{
		ProblemID:     "p1",
		CompetitionID: competitionID,
		SourceCode:    "print(sum(map(int, input().split())))",
		Language:      model.LanguagePython,
	}
}

func TestEvaluatePartialScore(t *testing.T) {
	f := newSubmissionFixture()
	f.executor.results = runsWithOutputs("1", "2", "wrong", "4")

	verdict, err := f.svc.Evaluate(context.Background(), "u1", submission(nil))

	require.NoError(t, err)
	assert.InDelta(t, 7.5, verdict.Points, 1e-9)
	assert.False(t, verdict.IsCorrect)
	assert.True(t, verdict.IsRuntimeOK)
	assert.False(t, verdict.HasImproved)
	assert.Equal(t, []model.IncorrectOutput{{Output: "wrong", ExpectedOutput: "3"}}, verdict.IncorrectOutputs)
	assert.Equal(t, []string{"1-in", "2-in", "3-in", "4-in"}, f.executor.stdins)

	require.Len(t, f.results.upserts, 1)
	stored := f.results.upserts[0]
	assert.Equal(t, "p1", stored.ProblemID)
	assert.Equal(t, "u1", stored.UserID)
	assert.Nil(t, stored.CompetitionID)
	assert.InDelta(t, 7.5, stored.NumOfPoints, 1e-9)
	assert.Equal(t, model.LanguagePython, stored.Language)
	assert.Equal(t, []string{"u1"}, f.locker.released)
}

func TestEvaluateFullScoreImproves(t *testing.T) {
	f := newSubmissionFixture()
	f.executor.results = runsWithOutputs("1", "2", "3", "4")
	f.results.improved = true

	verdict, err := f.svc.Evaluate(context.Background(), "u1", submission(nil))

	require.NoError(t, err)
	assert.Equal(t, 10.0, verdict.Points)
	assert.True(t, verdict.IsCorrect)
	assert.True(t, verdict.HasImproved)
	assert.Empty(t, verdict.IncorrectOutputs)
	assert.Equal(t, 100.0, verdict.AverageRuntime)
}

func TestEvaluateExceptionStopsAndSkipsPersistence(t *testing.T) {
	f := newSubmissionFixture()
	f.tests.tests["p1"] = testCases("1", "2", "3", "4", "5")
	f.executor.results = runsWithOutputs("1", "2", "3", "4", "5")
	f.executor.results[2].Exception = ptr("IndexError: list index out of range")

	_, err := f.svc.Evaluate(context.Background(), "u1", submission(nil))

	assert.ErrorIs(t, err, common.ErrExecution)
	assert.Contains(t, err.Error(), "IndexError")
	assert.Equal(t, 3, f.executor.calls())
	assert.Empty(t, f.results.upserts)
	assert.Equal(t, []string{"u1"}, f.locker.released)
}

func TestEvaluateExecutorUnavailable(t *testing.T) {
	f := newSubmissionFixture()
	f.executor.results = runsWithOutputs("1", "2", "3", "4")
	f.executor.err = common.ErrServiceUnavailable
	f.executor.errAt = 1

	_, err := f.svc.Evaluate(context.Background(), "u1", submission(nil))

	assert.ErrorIs(t, err, common.ErrServiceUnavailable)
	assert.Empty(t, f.results.upserts)
}

func TestEvaluatePreconditions(t *testing.T) {
	running := &model.Competition{
		ID: "c1", StartTime: fixedNow.Add(-time.Hour), EndTime: fixedNow.Add(time.Hour), Problems: []string{"p1"},
	}
	finished := &model.Competition{
		ID: "c2", StartTime: fixedNow.Add(-2 * time.Hour), EndTime: fixedNow, Problems: []string{"p1"},
	}
	without := &model.Competition{
		ID: "c3", StartTime: fixedNow.Add(-time.Hour), EndTime: fixedNow.Add(time.Hour), Problems: []string{"p9"},
	}
	virtual := &model.Competition{
		ID: "v1", ParentID: ptr("c2"), StartTime: finished.StartTime, EndTime: finished.EndTime, Problems: []string{"p1"},
	}

	tests := []struct {
		name    string
		req     CreateSubmissionRequest
		wantErr error
	}{
		{"missing problem", CreateSubmissionRequest{ProblemID: "nope", SourceCode: "x", Language: model.LanguageC}, common.ErrNotFound},
		{"missing competition", submission(ptr("nope")), common.ErrNotFound},
		{"finished competition", submission(ptr("c2")), common.ErrInvalidState},
		{"problem not in competition", submission(ptr("c3")), common.ErrInvalidState},
		{"unknown language", CreateSubmissionRequest{ProblemID: "p1", SourceCode: "x", Language: "cobol"}, common.ErrValidation},
		{"empty source", CreateSubmissionRequest{ProblemID: "p1", Language: model.LanguageC}, common.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSubmissionFixture()
			f.competitions = newFakeCompetitionRepo(running, finished, without, virtual)
			f.svc.competitionRepo = f.competitions

			_, err := f.svc.Evaluate(context.Background(), "u1", tt.req)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, f.executor.calls())
			assert.Empty(t, f.results.upserts)
		})
	}

	t.Run("virtual competition ignores the clock", func(t *testing.T) {
		f := newSubmissionFixture()
		f.competitions = newFakeCompetitionRepo(finished, virtual)
		f.svc.competitionRepo = f.competitions
		f.executor.results = runsWithOutputs("1", "2", "3", "4")

		_, err := f.svc.Evaluate(context.Background(), "u1", submission(ptr("v1")))

		require.NoError(t, err)
		require.Len(t, f.results.upserts, 1)
		assert.Equal(t, ptr("v1"), f.results.upserts[0].CompetitionID)
	})

	t.Run("running competition", func(t *testing.T) {
		f := newSubmissionFixture()
		f.competitions = newFakeCompetitionRepo(running)
		f.svc.competitionRepo = f.competitions
		f.executor.results = runsWithOutputs("1", "2", "3", "4")

		_, err := f.svc.Evaluate(context.Background(), "u1", submission(ptr("c1")))

		require.NoError(t, err)
	})
}

func TestEvaluateWithoutTestCases(t *testing.T) {
	f := newSubmissionFixture()
	f.tests.tests["p1"] = nil

	_, err := f.svc.Evaluate(context.Background(), "u1", submission(nil))

	assert.ErrorIs(t, err, common.ErrInvalidState)
	assert.Zero(t, f.executor.calls())
}

func TestEvaluateRejectsConcurrentSubmission(t *testing.T) {
	f := newSubmissionFixture()
	f.locker.held = map[string]bool{"u1": true}

	_, err := f.svc.Evaluate(context.Background(), "u1", submission(nil))

	assert.ErrorIs(t, err, common.ErrLockFailed)
	assert.Equal(t, 409, common.HTTPStatusFromError(err))
	assert.Zero(t, f.executor.calls())
}

func TestEvaluateWithoutLocker(t *testing.T) {
	f := newSubmissionFixture()
	f.svc.locker = nil
	f.executor.results = runsWithOutputs("1", "2", "3", "4")

	_, err := f.svc.Evaluate(context.Background(), "u1", submission(nil))

	require.NoError(t, err)
}

func TestEvaluatePersistenceFailure(t *testing.T) {
	f := newSubmissionFixture()
	f.executor.results = runsWithOutputs("1", "2", "3", "4")
	f.results.err = assert.AnError

	_, err := f.svc.Evaluate(context.Background(), "u1", submission(nil))

	assert.ErrorIs(t, err, common.ErrPersistence)
	assert.Equal(t, 500, common.HTTPStatusFromError(err))
}

func TestGetResult(t *testing.T) {
	f := newSubmissionFixture()
	f.results.stored[resultKey("p1", "u1", ptr("c1"))] = &model.ProblemResult{ProblemID: "p1", NumOfPoints: 4}

	res, err := f.svc.GetResult(context.Background(), "p1", "u1", ptr("c1"))
	require.NoError(t, err)
	assert.Equal(t, 4.0, res.NumOfPoints)

	_, err = f.svc.GetResult(context.Background(), "p1", "u1", nil)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

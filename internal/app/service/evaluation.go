package service

import (
	"strings"

	"github.com/BytePitApp/bytepit-api/internal/domain/model"
)

type evaluationSummary struct {
	points           float64
	averageRuntime   float64
	isCorrect        bool
	isRuntimeOK      bool
	incorrectOutputs []model.IncorrectOutput
}

// scoreRuns grades one finished run per test case. runs[i] belongs to tests[i].
//
// Per-test limits use runtime_limit in milliseconds while the aggregate
// is_runtime_ok check scales it to microseconds. Both comparisons are kept
// as the platform has always reported them.
func scoreRuns(problem *model.Problem, tests []model.TestCase, runs []model.ExecutionResult) evaluationSummary {
	perTestLimit := problem.RuntimeLimit * 1000
	aggregateLimit := problem.RuntimeLimit * 1_000_000

	var correct int
	var totalRuntime float64
	incorrect := []model.IncorrectOutput{}
	for i, run := range runs {
		output := strings.TrimSuffix(run.Stdout, "\n")
		expected := tests[i].ExpectedOutput
		totalRuntime += run.ExecutionTime

		if output == expected && run.ExecutionTime < perTestLimit {
			correct++
			continue
		}
		incorrect = append(incorrect, model.IncorrectOutput{Output: output, ExpectedOutput: expected})
	}

	n := float64(len(runs))
	points := float64(correct) / n * problem.NumOfPoints
	average := totalRuntime / n

	return evaluationSummary{
		points:           points,
		averageRuntime:   average,
		isCorrect:        points == problem.NumOfPoints,
		isRuntimeOK:      average < aggregateLimit,
		incorrectOutputs: incorrect,
	}
}

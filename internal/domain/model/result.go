package model

import "time"

// ProblemResult is a user's best evaluated attempt at a problem, either in
// practice (CompetitionID nil) or inside a competition.
type ProblemResult struct {
	ID             string    `json:"id"`
	ProblemID      string    `json:"problem_id"`
	CompetitionID  *string   `json:"competition_id"`
	UserID         string    `json:"user_id"`
	AverageRuntime float64   `json:"average_runtime"`
	IsCorrect      bool      `json:"is_correct"`
	NumOfPoints    float64   `json:"num_of_points"`
	SourceCode     string    `json:"source_code"`
	Language       Language  `json:"language"`
	ProblemName    string    `json:"problem_name,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ExecutionResult is what the remote execution service reports for one run.
type ExecutionResult struct {
	ExecutionTime float64 // milliseconds
	Stdout        string
	Stderr        string
	Exception     *string
}

type IncorrectOutput struct {
	Output         string `json:"output"`
	ExpectedOutput string `json:"expected_output"`
}

// EvaluationVerdict is returned to the submitter.
type EvaluationVerdict struct {
	IsCorrect        bool              `json:"is_correct"`
	IsRuntimeOK      bool              `json:"is_runtime_ok"`
	HasImproved      bool              `json:"has_improved"`
	Points           float64           `json:"points"`
	AverageRuntime   float64           `json:"average_runtime"`
	IncorrectOutputs []IncorrectOutput `json:"incorrect_outputs"`
	Exception        *string           `json:"exception"`
}

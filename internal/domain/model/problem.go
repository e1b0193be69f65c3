package model

import (
	"time"
)

type Problem struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	ExampleInput  string    `json:"example_input"`
	ExampleOutput string    `json:"example_output"`
	IsHidden      bool      `json:"is_hidden"`
	NumOfPoints   float64   `json:"num_of_points"`
	RuntimeLimit  float64   `json:"runtime_limit"` // seconds
	Description   string    `json:"description"`
	OrganiserID   string    `json:"organiser_id"`
	IsPrivate     bool      `json:"is_private"`
	CreatedOn     time.Time `json:"created_on"`
}

// ProblemPatch carries the fields of a partial update. Nil means unchanged.
type ProblemPatch struct {
	Name          *string  `json:"name,omitempty"`
	ExampleInput  *string  `json:"example_input,omitempty"`
	ExampleOutput *string  `json:"example_output,omitempty"`
	IsHidden      *bool    `json:"is_hidden,omitempty"`
	NumOfPoints   *float64 `json:"num_of_points,omitempty"`
	RuntimeLimit  *float64 `json:"runtime_limit,omitempty"`
	Description   *string  `json:"description,omitempty"`
	IsPrivate     *bool    `json:"is_private,omitempty"`
}

// Apply returns a copy of p with every non-nil patch field written over it.
func (patch ProblemPatch) Apply(p Problem) Problem {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.ExampleInput != nil {
		p.ExampleInput = *patch.ExampleInput
	}
	if patch.ExampleOutput != nil {
		p.ExampleOutput = *patch.ExampleOutput
	}
	if patch.IsHidden != nil {
		p.IsHidden = *patch.IsHidden
	}
	if patch.NumOfPoints != nil {
		p.NumOfPoints = *patch.NumOfPoints
	}
	if patch.RuntimeLimit != nil {
		p.RuntimeLimit = *patch.RuntimeLimit
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.IsPrivate != nil {
		p.IsPrivate = *patch.IsPrivate
	}
	return p
}

// TestCase is one input/expected-output pair, ordered by Index.
type TestCase struct {
	Index          int    `json:"index"`
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
}

// TestFile is an uploaded test blob such as "3_in.txt".
type TestFile struct {
	Name    string
	Content []byte
}

package model

import "time"

type Competition struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	ParentID    *string   `json:"parent_id"`
	OrganiserID string    `json:"organiser_id"`
	Problems    []string  `json:"problems"`
}

func (c *Competition) IsVirtual() bool {
	return c.ParentID != nil
}

// IsRunning reports whether now falls in [StartTime, EndTime).
func (c *Competition) IsRunning(now time.Time) bool {
	return !now.Before(c.StartTime) && now.Before(c.EndTime)
}

func (c *Competition) HasProblem(problemID string) bool {
	for _, id := range c.Problems {
		if id == problemID {
			return true
		}
	}
	return false
}

// CompetitionPatch carries the fields of a partial update. Nil means unchanged.
type CompetitionPatch struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	Problems    *[]string  `json:"problems,omitempty"`
}

func (patch CompetitionPatch) Apply(c Competition) Competition {
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.Description != nil {
		c.Description = *patch.Description
	}
	if patch.StartTime != nil {
		c.StartTime = *patch.StartTime
	}
	if patch.EndTime != nil {
		c.EndTime = *patch.EndTime
	}
	if patch.Problems != nil {
		c.Problems = append([]string(nil), (*patch.Problems)...)
	}
	return c
}

// CompetitionDetails is a competition with its problems, trophies and organiser name resolved.
type CompetitionDetails struct {
	Competition
	OrganiserUsername string    `json:"organiser_username"`
	ProblemList       []Problem `json:"problem_list"`
	Trophies          []Trophy  `json:"trophies"`
}

type Trophy struct {
	ID            string  `json:"id"`
	CompetitionID string  `json:"competition_id"`
	Position      int     `json:"position"`
	UserID        *string `json:"user_id"`
	Icon          []byte  `json:"icon"`
}

// UserTrophy is a podium finish of a user in a finished competition.
type UserTrophy struct {
	CompetitionID     string `json:"competition_id"`
	RankInCompetition int    `json:"rank_in_competition"`
	Icon              []byte `json:"icon"`
}

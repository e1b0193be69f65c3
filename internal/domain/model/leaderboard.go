package model

// LeaderboardEntry is one user's line in a competition's results.
type LeaderboardEntry struct {
	Rank           int             `json:"rank"`
	UserID         string          `json:"user_id"`
	Username       string          `json:"username"`
	TotalPoints    float64         `json:"total_points"`
	ProblemResults []ProblemResult `json:"problem_results"`
}

package service

import (
	"sort"

	"github.com/BytePitApp/bytepit-api/internal/domain/model"
)

// groupByUser folds per-problem results into one entry per user, in order of
// first appearance.
func groupByUser(results []model.ProblemResult) []model.LeaderboardEntry {
	index := map[string]int{}
	entries := []model.LeaderboardEntry{}
	for _, res := range results {
		i, ok := index[res.UserID]
		if !ok {
			i = len(entries)
			index[res.UserID] = i
			entries = append(entries, model.LeaderboardEntry{UserID: res.UserID, ProblemResults: []model.ProblemResult{}})
		}
		entries[i].TotalPoints += res.NumOfPoints
		entries[i].ProblemResults = append(entries[i].ProblemResults, res)
	}
	return entries
}

// rankEntries sorts by total points, highest first, keeping the incoming order
// between equal totals, and assigns dense ranks: 10, 7, 7, 3 ranks 1, 2, 2, 3.
func rankEntries(entries []model.LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalPoints > entries[j].TotalPoints
	})
	for i := range entries {
		switch {
		case i == 0:
			entries[i].Rank = 1
		case entries[i].TotalPoints == entries[i-1].TotalPoints:
			entries[i].Rank = entries[i-1].Rank
		default:
			entries[i].Rank = entries[i-1].Rank + 1
		}
	}
}

// hideForeignSources blanks the source code of other users for problems the
// viewer has not solved.
func hideForeignSources(entries []model.LeaderboardEntry, viewerID string, solved map[string]bool) {
	for i := range entries {
		if entries[i].UserID == viewerID {
			continue
		}
		for j := range entries[i].ProblemResults {
			if !solved[entries[i].ProblemResults[j].ProblemID] {
				entries[i].ProblemResults[j].SourceCode = ""
			}
		}
	}
}

func solvedBy(results []model.ProblemResult, userID string) map[string]bool {
	solved := map[string]bool{}
	for _, res := range results {
		if res.UserID == userID && res.IsCorrect {
			solved[res.ProblemID] = true
		}
	}
	return solved
}

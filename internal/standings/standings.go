// Package standings is the ranking engine: it orders score rows, merges the
// two rounds under the qualifier and cumulative modes and marks winners.
package standings

import (
	"sort"

	"eventleader/internal/model"
)

// Entry is one ranked row of a single-round leaderboard.
type Entry struct {
	Rank     int     `json:"rank"`
	TeamName string  `json:"teamName"`
	Score    float64 `json:"score"`
	Winner   bool    `json:"winner"`
}

// MergedEntry is one ranked row of a round-2 leaderboard. Round2 and Final
// are nil until the team has a round-2 score; unscored teams always rank
// after every scored team.
type MergedEntry struct {
	Rank     int      `json:"rank"`
	TeamName string   `json:"teamName"`
	Round1   float64  `json:"round1"`
	Round2   *float64 `json:"round2"`
	Final    *float64 `json:"final"`
	Winner   bool     `json:"winner"`
}

// SortEntries orders score rows for display: descending by score, ties broken
// by earliest update and then by team name. The tiebreak is deliberate; the
// contract forbids relying on storage scan order.
func SortEntries(entries []model.ScoreEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.UpdatedAt != b.UpdatedAt {
			return a.UpdatedAt < b.UpdatedAt
		}
		return a.TeamName < b.TeamName
	})
}

// Rank turns sorted-or-not score rows into a ranked leaderboard. The top
// winnersCount entries are marked as winners; pass 0 when winners have not
// been declared.
func Rank(entries []model.ScoreEntry, winnersCount int) []Entry {
	sorted := make([]model.ScoreEntry, len(entries))
	copy(sorted, entries)
	SortEntries(sorted)
	res := make([]Entry, len(sorted))
	for i, e := range sorted {
		rank := i + 1
		res[i] = Entry{
			Rank:     rank,
			TeamName: e.TeamName,
			Score:    e.Score,
			Winner:   winnersCount > 0 && rank <= winnersCount,
		}
	}
	return res
}

// Merge builds the round-2 standings for an event. The universe is
// ev.Round2Teams, not the raw participant list: teams that did not qualify
// are excluded even if they have a round-1 score.
//
// In cumulative mode the final score is round1+round2 once a round-2 score
// exists; in qualifier mode it is the round-2 score alone. Teams without a
// round-2 score have a nil final and sort after all scored teams, keeping
// their qualification order among themselves.
func Merge(ev *model.Event, r1, r2 []model.ScoreEntry) []MergedEntry {
	r1Map := make(map[string]float64, len(r1))
	for _, e := range r1 {
		r1Map[e.TeamName] = e.Score
	}
	r2Map := make(map[string]float64, len(r2))
	for _, e := range r2 {
		r2Map[e.TeamName] = e.Score
	}

	res := make([]MergedEntry, 0, len(ev.Round2Teams))
	for _, team := range ev.Round2Teams {
		entry := MergedEntry{
			TeamName: team,
			Round1:   r1Map[team],
		}
		if score, ok := r2Map[team]; ok {
			entry.Round2 = &score
			final := score
			if ev.Round2Mode == model.Round2Cumulative {
				final += entry.Round1
			}
			entry.Final = &final
		}
		res = append(res, entry)
	}

	sort.SliceStable(res, func(i, j int) bool {
		a, b := res[i], res[j]
		switch {
		case a.Final == nil:
			return false
		case b.Final == nil:
			return true
		default:
			return *a.Final > *b.Final
		}
	})

	winnersCount := 0
	if ev.Round2WinnersDeclaredAt != nil {
		winnersCount = ev.Round2WinnersCount
	}
	for i := range res {
		res[i].Rank = i + 1
		res[i].Winner = winnersCount > 0 && res[i].Rank <= winnersCount && res[i].Final != nil
	}
	return res
}

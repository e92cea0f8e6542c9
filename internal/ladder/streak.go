package ladder

import (
	"sort"

	"pingrank/internal/domain"
)

// StreakFor replays the player's completed matches in chronological order
// and folds them into a signed streak: positive for consecutive wins,
// negative for consecutive losses, zero when the player has no completed
// matches. The streak is always re-derived from history; an incrementally
// maintained counter cannot be trusted to reverse correctly when a match is
// deleted.
func StreakFor(playerID string, matches []domain.Match) int {
	completed := make([]domain.Match, 0, len(matches))
	for _, m := range matches {
		if m.Status == domain.MatchCompleted && m.Involves(playerID) {
			completed = append(completed, m)
		}
	}
	sort.SliceStable(completed, func(i, j int) bool {
		return completed[i].Date.Before(completed[j].Date)
	})

	streak := 0
	for _, m := range completed {
		if m.WonBy(playerID) {
			if streak > 0 {
				streak++
			} else {
				streak = 1
			}
		} else {
			if streak < 0 {
				streak--
			} else {
				streak = -1
			}
		}
	}
	return streak
}

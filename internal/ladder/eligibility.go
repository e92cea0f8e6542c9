package ladder

import (
	"sort"

	"pingrank/internal/domain"
)

// Eligible reports whether two players may face each other within the given
// rank window. A player with no rank yet (legacy or freshly imported data)
// fails open and is treated as eligible.
func Eligible(a, b domain.Player, window int) bool {
	if a.Rank <= 0 || b.Rank <= 0 {
		return true
	}
	diff := a.Rank - b.Rank
	if diff < 0 {
		diff = -diff
	}
	return diff <= window
}

// EligibleOpponents filters the player set down to legal opponents for the
// challenger: everyone within the given rank window, sorted by rank. The
// challenger itself is never eligible.
func EligibleOpponents(challenger domain.Player, players []domain.Player, window int) []domain.Player {
	eligible := make([]domain.Player, 0, len(players))
	for _, p := range players {
		if p.ID == challenger.ID {
			continue
		}
		if Eligible(challenger, p, window) {
			eligible = append(eligible, p)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].Rank < eligible[j].Rank
	})
	return eligible
}

package ladder

import (
	"sort"

	"pingrank/internal/domain"
)

type RankPatch struct {
	PlayerID string
	Rank     int
}

// NormalizeRanks re-settles the ladder into a contiguous 1..N sequence and
// returns a patch for every player whose rank actually changed. Ordering is
// ladder-positional: players keep their current ladder order (rank
// ascending), players without a rank yet sink to the bottom ordered by
// rating descending, and joinedAt breaks any remaining tie so the result is
// deterministic. Calling it again without an intervening mutation emits no
// patches.
func NormalizeRanks(players []domain.Player) []RankPatch {
	sorted := make([]domain.Player, len(players))
	copy(sorted, players)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		ranked := func(p domain.Player) bool { return p.Rank > 0 }
		switch {
		case ranked(a) && ranked(b):
			if a.Rank != b.Rank {
				return a.Rank < b.Rank
			}
		case ranked(a):
			return true
		case ranked(b):
			return false
		default:
			if a.Rating != b.Rating {
				return a.Rating > b.Rating
			}
		}
		return a.JoinedAt.Before(b.JoinedAt)
	})

	var patches []RankPatch
	for i, p := range sorted {
		if rank := i + 1; p.Rank != rank {
			patches = append(patches, RankPatch{PlayerID: p.ID, Rank: rank})
		}
	}
	return patches
}

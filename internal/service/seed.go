package service

import (
	"context"
	"strings"
	"time"

	"pingrank/internal/constants"
	"pingrank/internal/domain"
)

// SeedPlayers imports an initial roster onto an empty ladder. The first
// name gets the top rating and rank 1; each following player sits one rank
// and one rating step below. Refuses to run when players already exist, so
// a stray import cannot clobber a live ladder.
func (s *LedgerService) SeedPlayers(ctx context.Context, names []string) (int, error) {
	roster := make([]string, 0, len(names))
	for _, name := range names {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			roster = append(roster, trimmed)
		}
	}
	if len(roster) == 0 {
		return 0, domain.ErrNameRequired
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context, players domain.PlayerStore, _ domain.MatchStore) error {
		count, err := players.Count(ctx)
		if err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrRosterNotEmpty
		}

		now := time.Now()
		for i, name := range roster {
			player := &domain.Player{
				Name:     name,
				Rating:   constants.SeedTopRating - i*constants.SeedRatingStep,
				Rank:     i + 1,
				JoinedAt: now,
			}
			if err := players.Insert(ctx, player); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info().Int("count", len(roster)).Msg("roster seeded")
	return len(roster), nil
}

package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"pingrank/internal/constants"
	"pingrank/internal/domain"
	"pingrank/internal/events"
	"pingrank/internal/ladder"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
)

// LedgerService orchestrates every mutation of the player/match store. Each
// operation runs as one atomic transaction and finishes by re-settling the
// rank ladder, so rating, streak, rank and the win/loss counters can never
// be observed half-applied.
type LedgerService struct {
	tx        domain.TxManager
	players   domain.PlayerStore
	matches   domain.MatchStore
	publisher message.Publisher
	logger    zerolog.Logger
}

func NewLedgerService(
	tx domain.TxManager,
	players domain.PlayerStore,
	matches domain.MatchStore,
	publisher message.Publisher,
	logger zerolog.Logger,
) *LedgerService {
	return &LedgerService{
		tx:        tx,
		players:   players,
		matches:   matches,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *LedgerService) ListPlayers(ctx context.Context) ([]domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.players.List(ctx)
}

func (s *LedgerService) ListMatches(ctx context.Context, limit int) ([]domain.Match, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	if limit <= 0 {
		limit = constants.DefaultMatchLimit
	}
	return s.matches.List(ctx, limit)
}

// AddPlayer appends a new player to the bottom of the ladder with the
// default rating and zeroed counters.
func (s *LedgerService) AddPlayer(ctx context.Context, name string) (*domain.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrNameRequired
	}

	player := &domain.Player{
		Name:     name,
		Rating:   constants.DefaultRating,
		JoinedAt: time.Now(),
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context, players domain.PlayerStore, _ domain.MatchStore) error {
		count, err := players.Count(ctx)
		if err != nil {
			return err
		}
		player.Rank = count + 1
		return players.Insert(ctx, player)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("player_id", player.ID).
		Str("name", player.Name).
		Int("rank", player.Rank).
		Msg("player added")
	return player, nil
}

// RemovePlayer deletes the player and closes the rank gap. Matches that
// reference the player stay in the ledger; their names were snapshotted at
// write time.
func (s *LedgerService) RemovePlayer(ctx context.Context, id string) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context, players domain.PlayerStore, _ domain.MatchStore) error {
		if _, err := players.Get(ctx, id); err != nil {
			return err
		}
		if err := players.Delete(ctx, id); err != nil {
			return err
		}
		return s.normalizeRanks(ctx, players)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("player_id", id).Msg("player removed")
	return nil
}

// ScheduleMatch books a future match between two existing players. The
// exact time slot must be free; names are snapshotted so later renames do
// not rewrite the booking. Scheduling has no rating or rank effect.
func (s *LedgerService) ScheduleMatch(ctx context.Context, challengerID, opponentID string, date time.Time) (*domain.Match, error) {
	var match *domain.Match

	err := s.tx.RunInTx(ctx, func(ctx context.Context, players domain.PlayerStore, matches domain.MatchStore) error {
		challenger, err := players.Get(ctx, challengerID)
		if err != nil {
			return err
		}
		opponent, err := players.Get(ctx, opponentID)
		if err != nil {
			return err
		}

		if !ladder.Eligible(*challenger, *opponent, constants.ScheduleRankWindow) {
			return domain.ErrNotEligible
		}

		booked, err := matches.HasScheduledAt(ctx, date)
		if err != nil {
			return err
		}
		if booked {
			return domain.ErrSlotConflict
		}

		match = &domain.Match{
			Status:      domain.MatchScheduled,
			Player1ID:   challenger.ID,
			Player1Name: challenger.Name,
			Player2ID:   opponent.ID,
			Player2Name: opponent.Name,
			Date:        date,
		}
		return matches.Insert(ctx, match)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("match_id", match.ID).
		Str("challenger_id", challengerID).
		Str("opponent_id", opponentID).
		Time("date", date).
		Msg("match scheduled")
	return match, nil
}

// RegisterResult records a completed match. With a matchID it converts that
// scheduled match in place; with an empty matchID it creates a completed
// match directly. Both players' ratings, counters, streaks and ranks are
// settled in the same transaction, and a match.completed event is published
// after commit for the commentary worker.
func (s *LedgerService) RegisterResult(ctx context.Context, matchID, winnerID, loserID string, winnerScore, loserScore int) (*domain.Match, error) {
	if err := validateScores(winnerScore, loserScore); err != nil {
		return nil, err
	}
	if winnerID == loserID {
		return nil, domain.ErrInvalidResult
	}

	var match *domain.Match

	err := s.tx.RunInTx(ctx, func(ctx context.Context, players domain.PlayerStore, matches domain.MatchStore) error {
		winner, err := players.Get(ctx, winnerID)
		if err != nil {
			return err
		}
		loser, err := players.Get(ctx, loserID)
		if err != nil {
			return err
		}

		if matchID != "" {
			match, err = matches.Get(ctx, matchID)
			if err != nil {
				return err
			}
			if match.Status != domain.MatchScheduled {
				return domain.ErrInvalidResult
			}
			booked := (match.Player1ID == winnerID && match.Player2ID == loserID) ||
				(match.Player1ID == loserID && match.Player2ID == winnerID)
			if !booked {
				return domain.ErrInvalidResult
			}
		} else {
			// Direct results use the tighter window; a scheduled match was
			// already validated under the booking window.
			if !ladder.Eligible(*winner, *loser, constants.ResultRankWindow) {
				return domain.ErrNotEligible
			}
			match = &domain.Match{}
		}

		expected := ladder.ExpectedScore(winner.Rating, loser.Rating)
		delta := ladder.Delta(constants.KFactor, expected)

		// A win against a better-ranked player swaps the literal rank
		// numbers; otherwise the ladder order is untouched.
		rankSwap := winner.Rank > loser.Rank
		if rankSwap {
			winner.Rank, loser.Rank = loser.Rank, winner.Rank
		}

		winner.Wins++
		winner.Rating += delta
		loser.Losses++
		loser.Rating -= delta

		match.Status = domain.MatchCompleted
		match.WinnerID = winner.ID
		match.WinnerName = winner.Name
		match.LoserID = loser.ID
		match.LoserName = loser.Name
		match.WinnerScore = winnerScore
		match.LoserScore = loserScore
		match.Date = time.Now()
		match.RatingChange = delta
		match.RankSwap = rankSwap

		if matchID != "" {
			err = matches.Update(ctx, match)
		} else {
			err = matches.Insert(ctx, match)
		}
		if err != nil {
			return err
		}

		// Streaks are replayed from the post-insertion history, never
		// bumped incrementally.
		if err := s.replayStreak(ctx, matches, winner); err != nil {
			return err
		}
		if err := s.replayStreak(ctx, matches, loser); err != nil {
			return err
		}

		if err := players.Update(ctx, winner); err != nil {
			return err
		}
		if err := players.Update(ctx, loser); err != nil {
			return err
		}

		return s.normalizeRanks(ctx, players)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("match_id", match.ID).
		Str("winner_id", winnerID).
		Str("loser_id", loserID).
		Int("rating_change", match.RatingChange).
		Bool("rank_swap", match.RankSwap).
		Msg("result registered")

	s.publishMatchCompleted(match)
	return match, nil
}

// DeleteMatch removes a match from the ledger. Deleting a completed match
// fully reverses its effect on both players — counters, rating, streak and,
// for a rank swap, the literal rank numbers — before the ladder is
// re-settled. Deleting a scheduled match just drops the booking.
func (s *LedgerService) DeleteMatch(ctx context.Context, id string) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context, players domain.PlayerStore, matches domain.MatchStore) error {
		match, err := matches.Get(ctx, id)
		if err != nil {
			return err
		}

		if match.Status == domain.MatchScheduled {
			return matches.Delete(ctx, id)
		}

		winner, err := players.Get(ctx, match.WinnerID)
		if err != nil {
			return err
		}
		loser, err := players.Get(ctx, match.LoserID)
		if err != nil {
			return err
		}

		if winner.Wins > 0 {
			winner.Wins--
		}
		if loser.Losses > 0 {
			loser.Losses--
		}
		winner.Rating -= match.RatingChange
		loser.Rating += match.RatingChange

		if match.RankSwap {
			winner.Rank, loser.Rank = loser.Rank, winner.Rank
		}

		// Drop the match first so the streak replay sees the remaining
		// history without it.
		if err := matches.Delete(ctx, id); err != nil {
			return err
		}
		if err := s.replayStreak(ctx, matches, winner); err != nil {
			return err
		}
		if err := s.replayStreak(ctx, matches, loser); err != nil {
			return err
		}

		if err := players.Update(ctx, winner); err != nil {
			return err
		}
		if err := players.Update(ctx, loser); err != nil {
			return err
		}

		return s.normalizeRanks(ctx, players)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("match_id", id).Msg("match deleted")
	return nil
}

// EligibleOpponents lists legal opponents for the challenger within the
// rank window. A non-positive window falls back to the booking window.
func (s *LedgerService) EligibleOpponents(ctx context.Context, challengerID string, window int) ([]domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if window <= 0 {
		window = constants.ScheduleRankWindow
	}

	challenger, err := s.players.Get(ctx, challengerID)
	if err != nil {
		return nil, err
	}
	players, err := s.players.List(ctx)
	if err != nil {
		return nil, err
	}
	return ladder.EligibleOpponents(*challenger, players, window), nil
}

func (s *LedgerService) replayStreak(ctx context.Context, matches domain.MatchStore, player *domain.Player) error {
	history, err := matches.ListCompletedFor(ctx, player.ID)
	if err != nil {
		return err
	}
	player.Streak = ladder.StreakFor(player.ID, history)
	return nil
}

func (s *LedgerService) normalizeRanks(ctx context.Context, players domain.PlayerStore) error {
	all, err := players.List(ctx)
	if err != nil {
		return err
	}
	for _, patch := range ladder.NormalizeRanks(all) {
		if err := players.UpdateRank(ctx, patch.PlayerID, patch.Rank); err != nil {
			return err
		}
	}
	return nil
}

func (s *LedgerService) publishMatchCompleted(match *domain.Match) {
	payload, err := json.Marshal(events.MatchCompleted{
		MatchID:     match.ID,
		WinnerName:  match.WinnerName,
		LoserName:   match.LoserName,
		WinnerScore: match.WinnerScore,
		LoserScore:  match.LoserScore,
		RankSwap:    match.RankSwap,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("match_id", match.ID).Msg("failed to marshal match.completed event")
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := s.publisher.Publish(events.TopicMatchCompleted, msg); err != nil {
		s.logger.Warn().Err(err).Str("match_id", match.ID).Msg("failed to publish match.completed event")
	}
}

// validateScores enforces strict best-of-3 sets: the winner takes exactly
// two, the loser at most one. Checked before any player state is read.
func validateScores(winnerScore, loserScore int) error {
	if winnerScore != 2 {
		return domain.ErrInvalidResult
	}
	if loserScore != 0 && loserScore != 1 {
		return domain.ErrInvalidResult
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pingrank/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type MatchRepository struct {
	db     DBTX
	logger zerolog.Logger
}

func NewMatchRepository(sqlDB *sql.DB, logger zerolog.Logger) *MatchRepository {
	return &MatchRepository{db: sqlDB, logger: logger}
}

func (r *MatchRepository) WithTx(tx *sql.Tx) *MatchRepository {
	return &MatchRepository{db: tx, logger: r.logger}
}

const matchColumns = `id, status, player1_id, player1_name, player2_id, player2_name,
	winner_id, winner_name, loser_id, loser_name, winner_score, loser_score,
	date, rating_change, rank_swap, commentary, created_at, updated_at`

func (r *MatchRepository) Get(ctx context.Context, id string) (*domain.Match, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE id = ?`, id)

	match, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match %s: %w", id, err)
	}
	return match, nil
}

func (r *MatchRepository) List(ctx context.Context, limit int) ([]domain.Match, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+matchColumns+` FROM matches ORDER BY date DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()
	return collectMatches(rows)
}

// ListCompletedFor returns the player's completed matches oldest first, the
// order the streak replay folds them in.
func (r *MatchRepository) ListCompletedFor(ctx context.Context, playerID string) ([]domain.Match, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+matchColumns+` FROM matches
		 WHERE status = ? AND (winner_id = ? OR loser_id = ?)
		 ORDER BY date ASC`,
		domain.MatchCompleted, playerID, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed matches for %s: %w", playerID, err)
	}
	defer rows.Close()
	return collectMatches(rows)
}

// HasScheduledAt reports whether any scheduled match occupies the exact
// instant. Slot collision is an exact-timestamp check, not a range check.
func (r *MatchRepository) HasScheduledAt(ctx context.Context, date time.Time) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM matches WHERE status = ? AND date = ?`,
		domain.MatchScheduled, date).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check slot: %w", err)
	}
	return count > 0, nil
}

func (r *MatchRepository) Insert(ctx context.Context, match *domain.Match) error {
	if match.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate match id: %w", err)
		}
		match.ID = id
	}

	now := time.Now()
	match.CreatedAt = now
	match.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO matches (`+matchColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		match.ID, match.Status,
		match.Player1ID, match.Player1Name, match.Player2ID, match.Player2Name,
		match.WinnerID, match.WinnerName, match.LoserID, match.LoserName,
		match.WinnerScore, match.LoserScore,
		match.Date, match.RatingChange, match.RankSwap, match.Commentary,
		match.CreatedAt, match.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert match %s: %w", match.ID, err)
	}
	return nil
}

func (r *MatchRepository) Update(ctx context.Context, match *domain.Match) error {
	match.UpdatedAt = time.Now()

	res, err := r.db.ExecContext(ctx,
		`UPDATE matches
		 SET status = ?, player1_id = ?, player1_name = ?, player2_id = ?, player2_name = ?,
		     winner_id = ?, winner_name = ?, loser_id = ?, loser_name = ?,
		     winner_score = ?, loser_score = ?, date = ?,
		     rating_change = ?, rank_swap = ?, commentary = ?, updated_at = ?
		 WHERE id = ?`,
		match.Status,
		match.Player1ID, match.Player1Name, match.Player2ID, match.Player2Name,
		match.WinnerID, match.WinnerName, match.LoserID, match.LoserName,
		match.WinnerScore, match.LoserScore, match.Date,
		match.RatingChange, match.RankSwap, match.Commentary, match.UpdatedAt,
		match.ID)
	if err != nil {
		return fmt.Errorf("failed to update match %s: %w", match.ID, err)
	}
	return requireRow(res, domain.ErrMatchNotFound)
}

func (r *MatchRepository) SetCommentary(ctx context.Context, id, commentary string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE matches SET commentary = ?, updated_at = ? WHERE id = ?`,
		commentary, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set commentary for match %s: %w", id, err)
	}
	return requireRow(res, domain.ErrMatchNotFound)
}

func (r *MatchRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM matches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete match %s: %w", id, err)
	}
	return requireRow(res, domain.ErrMatchNotFound)
}

func collectMatches(rows *sql.Rows) ([]domain.Match, error) {
	var matches []domain.Match
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, *match)
	}
	return matches, rows.Err()
}

func scanMatch(row scanner) (*domain.Match, error) {
	var m domain.Match
	err := row.Scan(&m.ID, &m.Status,
		&m.Player1ID, &m.Player1Name, &m.Player2ID, &m.Player2Name,
		&m.WinnerID, &m.WinnerName, &m.LoserID, &m.LoserName,
		&m.WinnerScore, &m.LoserScore,
		&m.Date, &m.RatingChange, &m.RankSwap, &m.Commentary,
		&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

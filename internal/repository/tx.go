package repository

import (
	"context"
	"database/sql"
	"fmt"

	"pingrank/internal/domain"

	"github.com/rs/zerolog"
)

// TxManager binds the player and match repositories to a single sqlite
// transaction for the duration of fn. Rank normalization reads the whole
// player set, so it shares the same transaction as the rating mutation that
// triggered it.
type TxManager struct {
	db      *sql.DB
	players *PlayerRepository
	matches *MatchRepository
	logger  zerolog.Logger
}

func NewTxManager(sqlDB *sql.DB, players *PlayerRepository, matches *MatchRepository, logger zerolog.Logger) *TxManager {
	return &TxManager{db: sqlDB, players: players, matches: matches, logger: logger}
}

func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context, players domain.PlayerStore, matches domain.MatchStore) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, m.players.WithTx(tx), m.matches.WithTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

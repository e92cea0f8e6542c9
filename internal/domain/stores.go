package domain

import (
	"context"
	"time"
)

// PlayerStore and MatchStore are the persistence surface the ledger works
// against. The sqlite repositories implement them; tests use in-memory
// versions.
type PlayerStore interface {
	Get(ctx context.Context, id string) (*Player, error)
	List(ctx context.Context) ([]Player, error)
	Count(ctx context.Context) (int, error)
	Insert(ctx context.Context, player *Player) error
	Update(ctx context.Context, player *Player) error
	UpdateRank(ctx context.Context, id string, rank int) error
	Delete(ctx context.Context, id string) error
}

type MatchStore interface {
	Get(ctx context.Context, id string) (*Match, error)
	List(ctx context.Context, limit int) ([]Match, error)
	ListCompletedFor(ctx context.Context, playerID string) ([]Match, error)
	HasScheduledAt(ctx context.Context, date time.Time) (bool, error)
	Insert(ctx context.Context, match *Match) error
	Update(ctx context.Context, match *Match) error
	SetCommentary(ctx context.Context, id, commentary string) error
	Delete(ctx context.Context, id string) error
}

// TxManager runs fn against stores bound to a single database transaction.
// If fn returns an error nothing is committed. Every mutating ledger
// operation goes through this: rating, streak, rank and the win/loss
// counters are mutually derived, so a half-applied write corrupts state
// that later reads depend on.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, players PlayerStore, matches MatchStore) error) error
}
